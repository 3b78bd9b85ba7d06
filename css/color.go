package css

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/tdewolff/parse/v2/css"
)

// ParseColor parses a named colour, transparent, #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba(), hsl() or hsla().
// Function arguments must be separated by commas. The keywords none and currentColor are left to the caller.
func ParseColor(s string) (canvas.Color, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "transparent") {
		return canvas.Transparent, nil
	} else if c, ok := canvas.NamedColor(s); ok {
		return c, nil
	} else if strings.HasPrefix(s, "#") {
		return parseHexColor(s)
	}

	cs, warnings := Structure(Lex(s))
	if cs = stripSpace(cs); len(warnings) != 0 || len(cs) != 1 || cs[0].Kind != FunctionToken {
		return canvas.Color{}, fmt.Errorf("bad colour %q", s)
	}
	name := strings.ToLower(cs[0].Data)
	var args []string
	for _, arg := range split(cs[0].Children, ",") {
		args = append(args, Serialize(arg))
	}
	if len(args) == 1 && strings.ContainsAny(args[0], " /") {
		return canvas.Color{}, fmt.Errorf("colour arguments must be comma separated in %q", s)
	}

	switch name {
	case "rgb", "rgba":
		if len(args) != 3 && len(args) != 4 {
			break
		}
		var rgb [3]float64
		for i := range rgb {
			f, err := colorChannel(args[i], 255.0)
			if err != nil {
				return canvas.Color{}, fmt.Errorf("%q: %w", s, err)
			}
			rgb[i] = f
		}
		a, err := alpha(args[3:])
		if err != nil {
			return canvas.Color{}, fmt.Errorf("%q: %w", s, err)
		}
		return canvas.Color{R: rgb[0], G: rgb[1], B: rgb[2], A: a}, nil
	case "hsl", "hsla":
		if len(args) != 3 && len(args) != 4 {
			break
		}
		h, n := ParseNumber(args[0])
		if n == 0 || args[0][n:] != "" && args[0][n:] != "deg" {
			return canvas.Color{}, fmt.Errorf("bad hue in %q", s)
		}
		sat, err := percentage(args[1])
		if err != nil {
			return canvas.Color{}, fmt.Errorf("%q: %w", s, err)
		}
		light, err := percentage(args[2])
		if err != nil {
			return canvas.Color{}, fmt.Errorf("%q: %w", s, err)
		}
		a, err := alpha(args[3:])
		if err != nil {
			return canvas.Color{}, fmt.Errorf("%q: %w", s, err)
		}
		h = math.Mod(h, 360.0)
		if h < 0.0 {
			h += 360.0
		}
		r, g, b := css.HSL2RGB(h/360.0, sat, light)
		return canvas.Color{R: r, G: g, B: b, A: a}, nil
	default:
		return canvas.Color{}, fmt.Errorf("unknown colour function %s()", name)
	}
	return canvas.Color{}, fmt.Errorf("wrong number of colour arguments in %q", s)
}

func parseHexColor(s string) (canvas.Color, error) {
	hex := s[1:]
	if len(hex) == 3 || len(hex) == 4 {
		long := make([]byte, 0, 2*len(hex))
		for i := 0; i < len(hex); i++ {
			long = append(long, hex[i], hex[i])
		}
		hex = string(long)
	}
	if len(hex) != 6 && len(hex) != 8 {
		return canvas.Color{}, fmt.Errorf("bad colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return canvas.Color{}, fmt.Errorf("bad colour %q", s)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return canvas.RGBA(uint8(v>>24), uint8(v>>16), uint8(v>>8), float64(v&0xff)/255.0), nil
}

func colorChannel(arg string, scale float64) (float64, error) {
	f, n := ParseNumber(arg)
	if n == 0 {
		return 0.0, fmt.Errorf("bad colour channel %q", arg)
	} else if arg[n:] == "%" {
		return clamp(f / 100.0), nil
	} else if n != len(arg) {
		return 0.0, fmt.Errorf("bad colour channel %q", arg)
	}
	return clamp(f / scale), nil
}

func percentage(arg string) (float64, error) {
	f, n := ParseNumber(arg)
	if n == 0 || arg[n:] != "%" {
		return 0.0, fmt.Errorf("expected percentage, got %q", arg)
	}
	return clamp(f / 100.0), nil
}

func alpha(args []string) (float64, error) {
	if len(args) == 0 {
		return 1.0, nil
	}
	return colorChannel(args[0], 1.0)
}

func clamp(f float64) float64 {
	return math.Max(0.0, math.Min(1.0, f))
}

// FormatColor writes a colour as #rrggbb, or as rgba() when it is not opaque.
func FormatColor(c canvas.Color) string {
	r, g, b := channel(c.R), channel(c.G), channel(c.B)
	if c.A == 1.0 {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(clamp(c.A), 'f', -1, 64))
}

func channel(f float64) uint8 {
	return uint8(clamp(f)*255.0 + 0.5)
}
