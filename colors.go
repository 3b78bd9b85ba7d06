package canvas

import (
	"strings"

	"golang.org/x/image/colornames"
)

// RGB returns an opaque color given by red, green, and blue in [0,255].
func RGB(r, g, b uint8) Color {
	return Color{float64(r) / 255.0, float64(g) / 255.0, float64(b) / 255.0, 1.0}
}

// RGBA returns a color given by red, green, and blue in [0,255] and alpha in [0,1].
func RGBA(r, g, b uint8, a float64) Color {
	return Color{float64(r) / 255.0, float64(g) / 255.0, float64(b) / 255.0, a}
}

// NamedColor returns the color for a CSS color keyword, case-insensitive.
func NamedColor(name string) (Color, bool) {
	c, ok := colornames.Map[strings.ToLower(name)]
	if !ok {
		return Color{}, false
	}
	return RGB(c.R, c.G, c.B), true
}

// ColorName returns the CSS keyword of an opaque color, preferring the shortest name.
func ColorName(c Color) (string, bool) {
	if c.A != 1.0 {
		return "", false
	}
	name := ""
	for _, n := range colornames.Names {
		if RGB(colornames.Map[n].R, colornames.Map[n].G, colornames.Map[n].B) == c && (name == "" || len(n) < len(name)) {
			name = n
		}
	}
	return name, name != ""
}
