package format

import (
	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/download"
	"github.com/guixmpp/canvas/view"
)

// NullDocument stands in for a document that is empty or failed to load.
type NullDocument struct {
	Err error // reason of the failed load, nil for empty documents
}

// NewNull returns the placeholder of a failed load.
func NewNull(err error) *NullDocument {
	return &NullDocument{Err: err}
}

// Null is the format of application/x-null. Null documents draw as a red hatched box.
type Null struct{}

// Create implements Format.
func (Null) Create(data []byte, mimetype string) (Document, error) {
	if mimetype != download.NullMIME {
		return nil, ErrNotImplemented
	}
	return &NullDocument{}, nil
}

// Is implements Format.
func (Null) Is(doc Document) bool {
	_, ok := doc.(*NullDocument)
	return ok
}

// Links implements LinkScanner.
func (Null) Links(Document) ([]string, error) {
	return nil, nil
}

// Draw implements Drawer.
func (Null) Draw(_ Host, _ view.View, _ Document, ctx canvas.Context, box canvas.Rect) error {
	DrawPlaceholder(ctx, box)
	return nil
}

// Poke implements Poker.
func (Null) Poke(Host, view.View, Document, canvas.Context, canvas.Rect, float64, float64) ([]dom.Element, error) {
	return nil, nil
}

// Dimensions implements Dimensioner.
func (Null) Dimensions(Host, view.View, Document) (float64, float64, error) {
	return 0.0, 0.0, nil
}

// DrawPlaceholder draws the red hatched box that marks a missing document.
func DrawPlaceholder(ctx canvas.Context, box canvas.Rect) {
	if box.W <= 0.0 || box.H <= 0.0 {
		return
	}
	ctx.Save()
	defer ctx.Restore()

	ctx.NewPath()
	ctx.Rectangle(box.X, box.Y, box.W, box.H)
	ctx.ClipPreserve()
	ctx.SetSourceRGBA(1.0, 0.0, 0.0, 0.2)
	ctx.Fill()

	const d = 8.0
	for x := -box.H; x < box.W; x += d {
		ctx.MoveTo(box.X+x, box.Y+box.H)
		ctx.LineTo(box.X+x+box.H, box.Y)
	}
	ctx.SetSourceRGBA(1.0, 0.0, 0.0, 0.8)
	ctx.SetLineWidth(1.0)
	ctx.Stroke()

	ctx.Rectangle(box.X, box.Y, box.W, box.H)
	ctx.SetLineWidth(2.0)
	ctx.Stroke()
}
