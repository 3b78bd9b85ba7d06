package format

import (
	"math"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/download"
	"github.com/guixmpp/canvas/view"
)

// Text layout of plain text documents.
const (
	TextFont    = "sans-serif"
	TextSize    = 16.0
	TextSpacing = 4.0 // between lines and words
)

// TextDocument is a plain text document.
type TextDocument struct {
	Text string
}

// Text is the format of text/plain. Text is drawn word wrapped in black.
type Text struct{}

// Create implements Format.
func (Text) Create(data []byte, mimetype string) (Document, error) {
	if mimetype != "text/plain" {
		return nil, ErrNotImplemented
	}
	return &TextDocument{strings.ToValidUTF8(string(data), "�")}, nil
}

// Is implements Format.
func (Text) Is(doc Document) bool {
	_, ok := doc.(*TextDocument)
	return ok
}

// Links implements LinkScanner.
func (Text) Links(Document) ([]string, error) {
	return nil, nil
}

// Draw implements Drawer.
func (Text) Draw(_ Host, _ view.View, doc Document, ctx canvas.Context, box canvas.Rect) error {
	text := doc.(*TextDocument).Text

	ctx.Save()
	defer ctx.Restore()
	ctx.NewPath()
	ctx.Rectangle(box.X, box.Y, box.W, box.H)
	ctx.Clip()
	ctx.Translate(box.X, box.Y)

	ctx.SelectFontFace(TextFont, canvas.FontSlantNormal, canvas.FontWeightNormal)
	ctx.SetFontSize(TextSize)
	ctx.SetSource(canvas.Black)

	lines := wrap(ctx, text, box.W)
	lineHeight := TextSize + TextSpacing
	if 1 < len(lines) {
		// spread the lines over the box height
		lineHeight = (box.H - TextSize) / float64(len(lines))
		lineHeight = math.Max(lineHeight, 0.0)
	}
	for i, line := range lines {
		ctx.MoveTo(0.0, TextSize+float64(i)*lineHeight)
		ctx.TextPath(line)
	}
	ctx.Fill()
	return nil
}

// Poke implements Poker.
func (Text) Poke(Host, view.View, Document, canvas.Context, canvas.Rect, float64, float64) ([]dom.Element, error) {
	return nil, nil
}

// Dimensions implements Dimensioner. The width is that of the text on a single line.
func (Text) Dimensions(h Host, _ view.View, doc Document) (float64, float64, error) {
	return textDimensions(h, doc.(*TextDocument).Text)
}

// WidthForHeight implements Sizer.
func (Text) WidthForHeight(h Host, _ view.View, doc Document, _ float64) (float64, error) {
	width, _, err := textDimensions(h, doc.(*TextDocument).Text)
	return width, err
}

// HeightForWidth implements Sizer.
func (Text) HeightForWidth(h Host, _ view.View, doc Document, width float64) (float64, error) {
	return textHeight(h, doc.(*TextDocument).Text, width), nil
}

// BinaryDocument is a document of unknown type.
type BinaryDocument struct {
	Data []byte
}

// Binary is the format of application/octet-stream. Binary data is drawn as a checker board.
type Binary struct{}

// Create implements Format.
func (Binary) Create(data []byte, mimetype string) (Document, error) {
	if mimetype != download.DefaultMIME {
		return nil, ErrNotImplemented
	}
	return &BinaryDocument{data}, nil
}

// Is implements Format.
func (Binary) Is(doc Document) bool {
	_, ok := doc.(*BinaryDocument)
	return ok
}

// Links implements LinkScanner.
func (Binary) Links(Document) ([]string, error) {
	return nil, nil
}

// Draw implements Drawer.
func (Binary) Draw(_ Host, _ view.View, _ Document, ctx canvas.Context, box canvas.Rect) error {
	const d = 11.0
	nx := int(math.Ceil(box.W / d))
	if nx%2 == 0 {
		nx++
	}
	ny := int(math.Ceil(box.H / d))
	if ny%2 == 0 {
		ny++
	}
	dx, dy := box.W/float64(nx), box.H/float64(ny)

	ctx.Save()
	defer ctx.Restore()
	ctx.NewPath()
	ctx.SetSourceRGBA(0.9, 0.4, 0.9, 0.5)
	for x := 0; x < nx; x += 2 {
		for y := 0; y < ny; y += 2 {
			ctx.Rectangle(box.X+float64(x)*dx, box.Y+float64(y)*dy, dx, dy)
		}
	}
	ctx.Fill()
	return nil
}

// Poke implements Poker.
func (Binary) Poke(Host, view.View, Document, canvas.Context, canvas.Rect, float64, float64) ([]dom.Element, error) {
	return nil, nil
}

// Dimensions implements Dimensioner. Binary data is measured as if it were text.
func (Binary) Dimensions(h Host, _ view.View, doc Document) (float64, float64, error) {
	return textDimensions(h, binaryText(doc))
}

// WidthForHeight implements Sizer.
func (Binary) WidthForHeight(h Host, _ view.View, doc Document, _ float64) (float64, error) {
	width, _, err := textDimensions(h, binaryText(doc))
	return width, err
}

// HeightForWidth implements Sizer.
func (Binary) HeightForWidth(h Host, _ view.View, doc Document, width float64) (float64, error) {
	return textHeight(h, binaryText(doc), width), nil
}

func binaryText(doc Document) string {
	return strings.ToValidUTF8(string(doc.(*BinaryDocument).Data), "�")
}

// measure returns a context without output for measuring text.
func measure(h Host) canvas.Context {
	c := canvas.New(canvas.NewRecorder(0, 0))
	if h != nil {
		c.Fonts = h.Fonts()
	}
	c.SelectFontFace(TextFont, canvas.FontSlantNormal, canvas.FontWeightNormal)
	c.SetFontSize(TextSize)
	return c
}

func textDimensions(h Host, text string) (float64, float64, error) {
	ext := measure(h).TextExtents(text)
	return ext.Width, TextSize + TextSpacing, nil
}

func textHeight(h Host, text string, width float64) float64 {
	lines := wrap(measure(h), text, width)
	return float64(len(lines)) * (TextSize + TextSpacing)
}

// wrap breaks text into lines no wider than width. Words wider than width get a line of their own.
func wrap(ctx canvas.Context, text string, width float64) []string {
	space := TextSpacing
	var lines []string
	var line []string
	offset := 0.0
	for _, word := range strings.Fields(text) {
		advance := ctx.TextExtents(word).XAdvance
		if len(line) != 0 && width < offset+space+advance {
			lines = append(lines, strings.Join(line, " "))
			line, offset = line[:0], 0.0
		}
		if len(line) != 0 {
			offset += space
		}
		line = append(line, word)
		offset += advance
	}
	if len(line) != 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	return lines
}
