package format

import (
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
)

// CSS is the format of text/css. Its documents are *css.Stylesheet.
type CSS struct{}

// Create implements Format.
func (CSS) Create(data []byte, mimetype string) (Document, error) {
	if mimetype != "text/css" {
		return nil, ErrNotImplemented
	}
	return css.Parse(string(data)), nil
}

// Is implements Format.
func (CSS) Is(doc Document) bool {
	_, ok := doc.(*css.Stylesheet)
	return ok
}

// Links implements LinkScanner.
func (CSS) Links(doc Document) ([]string, error) {
	return doc.(*css.Stylesheet).Links(), nil
}

// FontStyle converts the font-style and font-weight of a @font-face rule or a declaration. Weights of 500 and up
// are bold.
func FontStyle(style, weight string) (canvas.FontSlant, canvas.FontWeight) {
	slant := canvas.FontSlantNormal
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "italic":
		slant = canvas.FontSlantItalic
	case "oblique":
		slant = canvas.FontSlantOblique
	}

	bold := canvas.FontWeightNormal
	switch w := strings.ToLower(strings.TrimSpace(weight)); w {
	case "bold", "bolder":
		bold = canvas.FontWeightBold
	case "", "normal", "lighter":
	default:
		if f, n := css.ParseNumber(w); n == len(w) && 500.0 <= f {
			bold = canvas.FontWeightBold
		}
	}
	return slant, bold
}

// InstallFontFaces installs the fonts of the @font-face rules of a stylesheet into the font set of the host. The
// first source of each rule that is a loaded font document is used. It returns the families that could not be
// installed.
func InstallFontFaces(h Host, base string, sheet *css.Stylesheet) []string {
	var missing []string
	for _, face := range sheet.FontFaces() {
		slant, weight := FontStyle(face.Style, face.Weight)
		installed := false
		for _, src := range face.Sources {
			doc, ok := h.Document(h.ResolveURL(src.URL, base))
			if !ok {
				continue
			}
			if font, ok := doc.(*FontDocument); ok {
				if err := font.Install(h.Fonts(), face.Family, slant, weight); err == nil {
					installed = true
					break
				}
			}
		}
		if !installed {
			missing = append(missing, face.Family)
		}
	}
	return missing
}
