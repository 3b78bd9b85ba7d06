package model

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/tdewolff/test"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/events"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/view"
)

func TestResolveURL(t *testing.T) {
	var tests = []struct {
		rel, base string
		expected  string
	}{
		{"data:text/css,rect{}", "file:///a/b.svg", "data:text/css,rect{}"},
		{"http://example.org/c.css", "file:///a/b.svg", "http://example.org/c.css"},
		{"cid:f00d", "file:///a/b.svg", "cid:f00d"},
		{"c.css", "file:///a/", "file:///a/c.css"},
		{"#id", "file:///a/b.svg#old", "file:///a/b.svg#id"},
		{"#id", "file:///a/b.svg", "file:///a/b.svg#id"},
		{"c.css", "file:///a/b.svg", "file:///a/c.css"},
		{"img/c.png", "file:///a/b.svg#frag", "file:///a/img/c.png"},
		{"c.css", "", "c.css"},
		{"", "file:///a/b.svg", "file:///a/b.svg"},
	}
	for _, tt := range tests {
		t.Run(tt.rel+" "+tt.base, func(t *testing.T) {
			test.String(t, ResolveURL(tt.rel, tt.base), tt.expected)
		})
	}
}

func TestRoot(t *testing.T) {
	test.String(t, Root("file:///a.svg#b"), "file:///a.svg")
	test.String(t, Root("file:///a.svg"), "file:///a.svg")
	test.String(t, Root("data:text/plain,a#b"), "data:text/plain,a#b")

	id, ok := Fragment("file:///a.svg#b")
	test.T(t, ok, true)
	test.String(t, id, "b")
	_, ok = Fragment("data:text/plain,a#b")
	test.T(t, ok, false)
}

func TestOpenEvents(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg><rect width="10" height="10"/></svg>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")
	test.T(t, v.Types(), []string{events.Opening, events.Download, events.BeforeLoad, events.Load, events.Open})

	doc, ok := m.CurrentDocument(v)
	test.T(t, ok, true)
	url, ok := m.URL(doc)
	test.T(t, ok, true)
	test.String(t, url, "mem:///doc.svg")

	_, err := m.OpenDocument(context.Background(), v, "mem:///doc.svg")
	test.T(t, err, ErrAlreadyOpen)

	v.Reset()
	test.Error(t, m.CloseDocument(context.Background(), v))
	test.T(t, v.Types(), []string{events.Closing, events.BeforeUnload, events.Unload, events.Close})
	test.T(t, m.Documents(), []string{})
	test.T(t, m.CloseDocument(context.Background(), v), ErrNotOpen)
}

func TestLoadDedupe(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<?xml-stylesheet href="a.css"?><svg><image href="b.svg" width="10" height="10"/><image href="c.svg" width="10" height="10"/></svg>`, "image/svg+xml"},
		"mem:///b.svg":   {`<?xml-stylesheet href="a.css"?><svg><rect width="10" height="10"/></svg>`, "image/svg+xml"},
		"mem:///c.svg":   {`<?xml-stylesheet href="a.css"?><svg><circle r="5"/></svg>`, "image/svg+xml"},
		"mem:///a.css":   {`rect{fill:red}`, "text/css"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")

	test.T(t, mem.count("mem:///a.css"), 1)
	test.T(t, mem.count("mem:///b.svg"), 1)
	test.T(t, mem.count("mem:///c.svg"), 1)

	sheet, err := m.GetDocument("mem:///a.css")
	test.Error(t, err)
	_, ok := sheet.(*css.Stylesheet)
	test.T(t, ok, true)

	urls := m.Documents()
	sort.Strings(urls)
	test.T(t, urls, []string{"mem:///a.css", "mem:///b.svg", "mem:///c.svg", "mem:///doc.svg"})
}

func TestFragments(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg><defs><g id="g"><rect id="r" width="1" height="1"/></g></defs><use href="#g"/></svg>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")

	for _, url := range m.Documents() {
		test.T(t, strings.Contains(url, "#"), false)
	}

	doc, err := m.GetDocument("mem:///doc.svg")
	test.Error(t, err)
	for _, id := range []string{"g", "r"} {
		frag, err := m.GetDocument("mem:///doc.svg#" + id)
		test.Error(t, err)
		test.T(t, frag.(*dom.Document).Parent() == doc.(*dom.Document), true)
		test.That(t, frag.(*dom.Document).Root.Key() != doc.(*dom.Document).Root.Key())
	}

	_, err = m.GetDocument("mem:///doc.svg#missing")
	test.T(t, errors.Is(err, ErrDocumentNotFound), true)
	_, err = m.GetDocument("mem:///other.svg")
	test.T(t, errors.Is(err, ErrDocumentNotFound), true)
}

func TestDownloadError(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg><image href="missing.png" width="10" height="10"/></svg>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")

	missing, err := m.GetDocument("mem:///missing.png")
	test.Error(t, err)
	_, ok := missing.(*format.NullDocument)
	test.T(t, ok, true)
	test.T(t, v.Types(events.Warning, events.Error), []string{events.Warning, events.Error})

	// the placeholder is drawn in the image's box
	ctx, rec := newContext(m, v)
	m.DrawImage(v, missing, ctx, canvas.Rect{X: 0.0, Y: 0.0, W: 10.0, H: 10.0})
	test.That(t, 0 < len(rec.Ops()))
}

func TestErrorSubstitute(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<?xml-stylesheet href="broken.css"?><svg/>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	v.Handler = func(ev events.DOMEvent) bool {
		if base := ev.Base(); base.Type == events.Error {
			base.Result = Substitute{[]byte("rect{fill:blue}"), "text/css"}
		}
		return true
	}
	open(t, m, v, "mem:///doc.svg")

	doc, err := m.GetDocument("mem:///broken.css")
	test.Error(t, err)
	_, ok := doc.(*css.Stylesheet)
	test.T(t, ok, true)
}

func TestCreateError(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg><g></svg>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")

	doc, _ := m.CurrentDocument(v)
	_, ok := doc.(*format.NullDocument)
	test.T(t, ok, true)
	test.T(t, v.Types(events.ParseError, events.Load), []string{events.ParseError})
}

func TestDownloadVetoAndRedirect(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg":  {`<svg><image href="alias.svg" width="10" height="10"/><image href="blocked.svg" width="10" height="10"/></svg>`, "image/svg+xml"},
		"mem:///real.svg": {`<svg/>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	v.Handler = func(ev events.DOMEvent) bool {
		base := ev.Base()
		if base.Type != events.Download {
			return true
		}
		switch base.Target {
		case "mem:///alias.svg":
			base.Result = "mem:///real.svg"
		case "mem:///blocked.svg":
			return false
		}
		return true
	}
	open(t, m, v, "mem:///doc.svg")

	alias, err := m.GetDocument("mem:///alias.svg")
	test.Error(t, err)
	target, err := m.GetDocument("mem:///real.svg")
	test.Error(t, err)
	test.T(t, alias == target, true)
	test.T(t, mem.count("mem:///alias.svg"), 0)

	blocked, err := m.GetDocument("mem:///blocked.svg")
	test.Error(t, err)
	_, ok := blocked.(*format.NullDocument)
	test.T(t, ok, true)
	test.T(t, mem.count("mem:///blocked.svg"), 0)
}

func TestCancel(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg":  {`<?xml-stylesheet href="slow.css"?><svg/>`, "image/svg+xml"},
		"mem:///slow.css": {`rect{}`, "text/css"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	mem.hook = func(ctx context.Context, url string) error {
		if url == "mem:///slow.css" {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	_, err := m.OpenDocument(ctx, v, "mem:///doc.svg")
	test.T(t, errors.Is(err, context.Canceled), true)
	test.T(t, v.Types(events.Cancelled), []string{events.Cancelled})

	_, err = m.GetDocument("mem:///doc.svg")
	test.Error(t, err)
	_, err = m.GetDocument("mem:///slow.css")
	test.T(t, errors.Is(err, ErrDocumentNotFound), true)
}

func TestSharedDocuments(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<?xml-stylesheet href="a.css"?><svg/>`, "image/svg+xml"},
		"mem:///a.css":   {`rect{fill:red}`, "text/css"},
	})
	m := newModel(mem)
	v1, v2 := view.NewHeadless(100, 100), view.NewHeadless(50, 50)
	open(t, m, v1, "mem:///doc.svg")
	open(t, m, v2, "mem:///doc.svg")
	test.T(t, mem.count("mem:///doc.svg"), 1)
	test.T(t, mem.count("mem:///a.css"), 1)

	test.Error(t, m.CloseDocument(context.Background(), v1))
	test.T(t, len(m.Documents()), 2)
	test.Error(t, m.CloseDocument(context.Background(), v2))
	test.T(t, len(m.Documents()), 0)
}

func TestWarningsDeduplicated(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg><use href="#missing"/></svg>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")
	doc, _ := m.CurrentDocument(v)

	for i := 0; i < 3; i++ {
		ctx, _ := newContext(m, v)
		m.DrawImage(v, doc, ctx, viewport(v))
	}
	test.T(t, len(v.Types(events.Warning)), 1)
	w := v.Events()[len(v.Events())-1].Base().Detail.(format.Warning)
	test.T(t, w.Kind, format.ReferenceWarning)

	// another view sees the warning again
	other := view.NewHeadless(100, 100)
	ctx, _ := newContext(m, other)
	m.DrawImage(other, doc, ctx, viewport(other))
	test.T(t, len(other.Types(events.Warning)), 1)
}

func TestPointerOrder(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg viewBox="0 0 100 100"><g id="G"><rect id="A" width="40" height="40"/></g><rect id="B" x="60" y="60" width="40" height="40"/></svg>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")

	ctx, _ := newContext(m, v)
	chain := m.Motion(v, ctx, viewport(v), view.Sample{X: 20.0, Y: 20.0})
	test.T(t, len(chain), 3)
	id, _ := dom.ID(m.Pointed(v))
	test.String(t, id, "A")

	v.Reset()
	m.Motion(v, ctx, viewport(v), view.Sample{X: 80.0, Y: 80.0})
	mouse := []string{events.MouseOut, events.MouseLeave, events.MouseOver, events.MouseEnter, events.MouseMove}
	test.T(t, targets(v, mouse...), []string{"mouseout(A)", "mouseleave(A)", "mouseleave(G)", "mouseover(B)", "mouseenter(B)", "mousemove(B)"})

	v.Reset()
	m.Leave(v, view.Sample{})
	test.T(t, m.Pointed(v) == nil, true)
	test.T(t, targets(v, events.MouseOut, events.MouseLeave), []string{"mouseout(B)", "mouseleave(B)", "mouseleave()"})
}

func TestHoverRedraw(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg viewBox="0 0 100 100"><style>g:hover rect{stroke:green}</style><g><rect width="50" height="50"/></g></svg>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")
	doc, _ := m.CurrentDocument(v)

	ctx, rec := newContext(m, v)
	m.DrawImage(v, doc, ctx, viewport(v))
	test.T(t, len(rec.Filter(canvas.StrokeOp)), 0)

	m.Motion(v, ctx, viewport(v), view.Sample{X: 25.0, Y: 25.0})
	ctx, rec = newContext(m, v)
	m.DrawImage(v, doc, ctx, viewport(v))
	test.T(t, len(rec.Filter(canvas.StrokeOp)), 1)

	m.Motion(v, ctx, viewport(v), view.Sample{X: 75.0, Y: 75.0})
	ctx, rec = newContext(m, v)
	m.DrawImage(v, doc, ctx, viewport(v))
	test.T(t, len(rec.Filter(canvas.StrokeOp)), 0)
	test.T(t, mem.count("mem:///doc.svg"), 1)
}

func TestFocusOrder(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg><rect id="z" tabindex="0"/><a id="link" href="x.svg"><rect/></a><rect id="two" tabindex="2"/><rect id="one" tabindex="1"/><rect id="skip" tabindex="-1"/></svg>`, "image/svg+xml"},
		"mem:///x.svg":   {`<svg/>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(100, 100)
	open(t, m, v, "mem:///doc.svg")

	ids := []string{}
	for _, e := range m.Focusable(v) {
		id, _ := dom.ID(e)
		ids = append(ids, id)
	}
	test.T(t, ids, []string{"one", "two", "z", "link"})

	id, _ := dom.ID(m.FocusNext(v, false))
	test.String(t, id, "one")
	id, _ = dom.ID(m.FocusNext(v, true))
	test.String(t, id, "link")
	test.T(t, targets(v, events.Focus, events.Blur), []string{"focus(one)", "blur(one)", "focus(link)"})
}

func TestDimensions(t *testing.T) {
	mem := newMemory(map[string]resource{
		"mem:///doc.svg": {`<svg width="200" height="100"/>`, "image/svg+xml"},
	})
	m := newModel(mem)
	v := view.NewHeadless(300, 150)
	open(t, m, v, "mem:///doc.svg")
	doc, _ := m.CurrentDocument(v)

	w, h, err := m.ImageDimensions(v, doc)
	test.Error(t, err)
	test.Float(t, w, 200.0)
	test.Float(t, h, 100.0)

	w, err = m.ImageWidthForHeight(v, doc, 50.0)
	test.Error(t, err)
	test.Float(t, w, 100.0)
	h, err = m.ImageHeightForWidth(v, doc, 50.0)
	test.Error(t, err)
	test.Float(t, h, 25.0)
}
