package svg

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/renderers/rasterizer"
	"github.com/guixmpp/canvas/view"
)

// Viewport size of documents decoded without width and height.
const (
	DefaultWidth  = 300.0
	DefaultHeight = 150.0
)

func init() {
	image.RegisterFormat("svg", "<svg", Decode, DecodeConfig)
}

// standalone hosts one document without loading anything it links to. Fragment references within the document
// still resolve.
type standalone struct {
	reg   *format.Registry
	fonts *canvas.FontSet
	warns []format.Warning
}

func newStandalone() *standalone {
	reg := format.Default()
	reg.Prepend(New())
	return &standalone{
		reg:   reg,
		fonts: canvas.DefaultFontSet(),
	}
}

func (h *standalone) Document(string) (format.Document, bool) { return nil, false }
func (h *standalone) URL(format.Document) (string, bool) { return "", false }
func (h *standalone) ResolveURL(rel, _ string) string { return rel }
func (h *standalone) Warn(_ view.View, w format.Warning) { h.warns = append(h.warns, w) }
func (h *standalone) Fonts() *canvas.FontSet { return h.fonts }
func (h *standalone) Pointed(view.View) dom.Element { return nil }
func (h *standalone) Focused(view.View) dom.Element { return nil }
func (h *standalone) Dimensions(v view.View, doc format.Document) (float64, float64, error) {
	return h.reg.Dimensions(h, v, doc)
}

func (h *standalone) Draw(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect) {
	if err := h.reg.Draw(h, v, doc, ctx, box); err != nil {
		h.Warn(v, format.Warnf(format.FeatureWarning, doc, "%v", err))
	}
}

func (h *standalone) Poke(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect, px, py float64) []dom.Element {
	chain, err := h.reg.Poke(h, v, doc, ctx, box, px, py)
	if err != nil {
		h.Warn(v, format.Warnf(format.FeatureWarning, doc, "%v", err))
	}
	return chain
}

func decode(r io.Reader) (*standalone, view.View, format.Document, float64, float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, nil, 0.0, 0.0, err
	}
	h := newStandalone()
	doc, err := h.reg.Create(data, "image/svg+xml")
	if err != nil {
		return nil, nil, nil, 0.0, 0.0, err
	}
	v := view.NewHeadless(DefaultWidth, DefaultHeight)
	w, hgt, err := h.reg.Dimensions(h, v, doc)
	if err != nil {
		return nil, nil, nil, 0.0, 0.0, err
	} else if w <= 0.0 || hgt <= 0.0 {
		return nil, nil, nil, 0.0, 0.0, fmt.Errorf("svg: empty image of %gx%g", w, hgt)
	}
	return h, v, doc, w, hgt, nil
}

// Decode renders an SVG document at its own size on a transparent background. Linked documents are not loaded.
func Decode(r io.Reader) (image.Image, error) {
	h, v, doc, w, hgt, err := decode(r)
	if err != nil {
		return nil, err
	}
	ras := rasterizer.NewRGBA(int(math.Ceil(w)), int(math.Ceil(hgt)), color.Transparent)
	ctx := canvas.New(ras)
	ctx.Fonts = h.fonts
	h.Draw(v, doc, ctx, canvas.Rect{X: 0.0, Y: 0.0, W: w, H: hgt})
	return ras.Image(), nil
}

// DecodeConfig returns the size of an SVG document in pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	_, _, _, w, hgt, err := decode(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.RGBAModel,
		Width:      int(math.Ceil(w)),
		Height:     int(math.Ceil(hgt)),
	}, nil
}
