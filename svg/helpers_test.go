package svg

import (
	"strings"
	"testing"

	"github.com/tdewolff/test"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/view"
)

const testURL = "file:///test.svg"

type host struct {
	reg      *format.Registry
	svg      *Format
	docs     map[string]format.Document
	fonts    *canvas.FontSet
	pointed  dom.Element
	warnings []format.Warning
}

func newHost() *host {
	f := New()
	reg := format.Default()
	reg.Prepend(f)
	return &host{
		reg:   reg,
		svg:   f,
		docs:  map[string]format.Document{},
		fonts: canvas.DefaultFontSet(),
	}
}

func (h *host) Document(url string) (format.Document, bool) {
	doc, ok := h.docs[url]
	return doc, ok
}

func (h *host) URL(doc format.Document) (string, bool) {
	for url, d := range h.docs {
		if d == doc {
			return url, true
		}
	}
	return "", false
}

func (h *host) ResolveURL(rel, base string) string {
	if strings.Contains(rel, ":") {
		return rel
	} else if strings.HasPrefix(rel, "#") {
		return ""
	}
	return base[:strings.LastIndexByte(base, '/')+1] + rel
}

func (h *host) Warn(_ view.View, w format.Warning) {
	h.warnings = append(h.warnings, w)
}

func (h *host) Fonts() *canvas.FontSet {
	return h.fonts
}

func (h *host) Pointed(view.View) dom.Element {
	return h.pointed
}

func (h *host) Focused(view.View) dom.Element {
	return nil
}

func (h *host) Draw(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect) {
	if err := h.reg.Draw(h, v, doc, ctx, box); err != nil {
		h.Warn(v, format.Warnf(format.FeatureWarning, doc, "%v", err))
	}
}

func (h *host) Poke(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect, px, py float64) []dom.Element {
	chain, _ := h.reg.Poke(h, v, doc, ctx, box, px, py)
	return chain
}

func (h *host) Dimensions(v view.View, doc format.Document) (float64, float64, error) {
	return h.reg.Dimensions(h, v, doc)
}

func (h *host) kinds() []format.WarningKind {
	kinds := []format.WarningKind{}
	for _, w := range h.warnings {
		kinds = append(kinds, w.Kind)
	}
	return kinds
}

func (h *host) load(t *testing.T, src string) *dom.Document {
	t.Helper()
	doc, err := h.svg.Create([]byte(src), "image/svg+xml")
	test.Error(t, err)
	h.docs[testURL] = doc
	return doc.(*dom.Document)
}

func (h *host) draw(v *view.Headless, doc *dom.Document) *canvas.Recorder {
	rec := canvas.NewRecorder(int(v.Width), int(v.Height))
	ctx := canvas.New(rec)
	ctx.Fonts = h.fonts
	h.Draw(v, doc, ctx, canvas.Rect{X: 0.0, Y: 0.0, W: v.Width, H: v.Height})
	return rec
}

func (h *host) poke(v *view.Headless, doc *dom.Document, x, y float64) []dom.Element {
	ctx := canvas.New(canvas.NewRecorder(int(v.Width), int(v.Height)))
	ctx.Fonts = h.fonts
	return h.Poke(v, doc, ctx, canvas.Rect{X: 0.0, Y: 0.0, W: v.Width, H: v.Height}, x, y)
}

func byID(t *testing.T, doc *dom.Document, id string) *dom.Node {
	t.Helper()
	n, ok := doc.ElementByID(id)
	if !ok {
		t.Fatalf("no element #%s", id)
	}
	return n
}

func locals(chain []dom.Element) []string {
	names := []string{}
	for _, e := range chain {
		names = append(names, dom.Local(e.Tag()))
	}
	return names
}

func near(a, b, tolerance float64) bool {
	return -tolerance <= a-b && a-b <= tolerance
}

func nearRect(a, b canvas.Rect, tolerance float64) bool {
	return near(a.X, b.X, tolerance) && near(a.Y, b.Y, tolerance) && near(a.W, b.W, tolerance) && near(a.H, b.H, tolerance)
}
