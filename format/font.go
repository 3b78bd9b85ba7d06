package format

import (
	"encoding/binary"
	"fmt"

	"github.com/tdewolff/font"

	"github.com/guixmpp/canvas"
)

var fontMIMEs = map[string]string{
	"font/woff":                     "woff",
	"application/font-woff":         "woff",
	"application/x-font-woff":       "woff",
	"font/woff2":                    "woff2",
	"font/ttf":                      "ttf",
	"font/sfnt":                     "ttf",
	"application/font-sfnt":         "ttf",
	"application/x-font-sfnt":       "ttf",
	"application/font-ttf":          "ttf",
	"application/x-font-ttf":        "ttf",
	"font/otf":                      "otf",
	"application/vnd.ms-fontobject": "eot",
}

// FontDocument is a web font. WOFF, WOFF2 and EOT fonts are decoded to SFNT when created.
type FontDocument struct {
	Data   []byte // TTF or OTF
	Format string // woff, woff2, eot, ttf or otf as downloaded
}

// Install registers the font in a font set under family.
func (doc *FontDocument) Install(fonts *canvas.FontSet, family string, slant canvas.FontSlant, weight canvas.FontWeight) error {
	if err := fonts.Add(family, slant, weight, doc.Data); err != nil {
		return fmt.Errorf("install %s font as %q: %w", doc.Format, family, err)
	}
	return nil
}

// Font is the format of web fonts.
type Font struct{}

// Create implements Format.
func (Font) Create(data []byte, mimetype string) (Document, error) {
	format, ok := fontMIMEs[mimetype]
	if !ok {
		return nil, ErrNotImplemented
	}
	if tag := fontTag(data); tag != "" {
		format = tag
	}
	sfntData, err := font.ToSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	if _, err := canvas.ParseFont(format, sfntData); err != nil {
		return nil, err
	}
	return &FontDocument{
		Data:   sfntData,
		Format: format,
	}, nil
}

// fontTag recognizes the font format from its signature.
func fontTag(b []byte) string {
	if len(b) < 4 {
		return ""
	}
	switch string(b[:4]) {
	case "wOFF":
		return "woff"
	case "wOF2":
		return "woff2"
	case "OTTO":
		return "otf"
	case "true":
		return "ttf"
	}
	if binary.BigEndian.Uint32(b) == 0x00010000 {
		return "ttf"
	} else if 36 <= len(b) && binary.LittleEndian.Uint16(b[34:]) == 0x504C {
		return "eot"
	}
	return ""
}

// Is implements Format.
func (Font) Is(doc Document) bool {
	_, ok := doc.(*FontDocument)
	return ok
}

// Links implements LinkScanner.
func (Font) Links(Document) ([]string, error) {
	return nil, nil
}
