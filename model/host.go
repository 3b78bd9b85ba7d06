package model

import (
	"sort"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/events"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/view"
)

var _ format.Host = (*Model)(nil)

// Document implements format.Host.
func (m *Model) Document(url string) (format.Document, bool) {
	doc, err := m.GetDocument(url)
	return doc, err == nil
}

// URL implements format.Host.
func (m *Model) URL(doc format.Document) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url, ok := m.urls[doc]
	return url, ok
}

// ResolveURL implements format.Host.
func (m *Model) ResolveURL(rel, base string) string {
	return ResolveURL(rel, base)
}

// Fonts implements format.Host.
func (m *Model) Fonts() *canvas.FontSet {
	return m.fonts
}

// Warn implements format.Host. A warning is emitted to the view and logged the first time the view sees it.
func (m *Model) Warn(v view.View, w format.Warning) {
	s := m.session(v)
	if !s.warn(w) {
		return
	}
	url, _ := s.current()
	m.logger.Warn(w.Message, "kind", string(w.Kind), "url", abbreviate(url), "target", abbreviate(targetKey(w.Target)))
	v.Emit(events.New(events.Warning, w.Target, v, w))
}

// EmitWarning reports a warning to a view, at most once per view.
func (m *Model) EmitWarning(v view.View, kind format.WarningKind, target any, msg string, args ...any) {
	m.Warn(v, format.Warnf(kind, target, msg, args...))
}

// AreNodesOrdered returns true if ancestor is descendant or one of its ancestors.
func (m *Model) AreNodesOrdered(ancestor, descendant dom.Element) bool {
	return m.formats.AreNodesOrdered(ancestor, descendant)
}

// Pointed implements format.Host.
func (m *Model) Pointed(v view.View) dom.Element {
	e, _ := m.session(v).tracker.Pointed().(dom.Element)
	return e
}

// Focused implements format.Host.
func (m *Model) Focused(v view.View) dom.Element {
	e, _ := m.session(v).tracker.Focused().(dom.Element)
	return e
}

// Draw implements format.Host.
func (m *Model) Draw(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect) {
	m.DrawImage(v, doc, ctx, box)
}

// Poke implements format.Host.
func (m *Model) Poke(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect, px, py float64) []dom.Element {
	return m.PokeImage(v, doc, ctx, box, px, py)
}

// Dimensions implements format.Host.
func (m *Model) Dimensions(v view.View, doc format.Document) (float64, float64, error) {
	return m.ImageDimensions(v, doc)
}

// DrawImage draws a document into the box. Documents that no format draws are drawn as placeholders.
func (m *Model) DrawImage(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect) {
	if err := m.formats.Draw(m, v, doc, ctx, box); err != nil {
		m.Warn(v, format.Warnf(format.FeatureWarning, doc, "%v", err))
		format.DrawPlaceholder(ctx, box)
	}
}

// PokeImage returns the chain of elements of a document under the device point (px,py), from outermost to
// deepest.
func (m *Model) PokeImage(v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect, px, py float64) []dom.Element {
	chain, err := m.formats.Poke(m, v, doc, ctx, box, px, py)
	if err != nil {
		m.Warn(v, format.Warnf(format.FeatureWarning, doc, "%v", err))
		return nil
	}
	return chain
}

// ImageDimensions returns the natural size of a document.
func (m *Model) ImageDimensions(v view.View, doc format.Document) (float64, float64, error) {
	return m.formats.Dimensions(m, v, doc)
}

// ImageWidthForHeight returns the width of a document drawn at the given height.
func (m *Model) ImageWidthForHeight(v view.View, doc format.Document, height float64) (float64, error) {
	return m.formats.WidthForHeight(m, v, doc, height)
}

// ImageHeightForWidth returns the height of a document drawn at the given width.
func (m *Model) ImageHeightForWidth(v view.View, doc format.Document, width float64) (float64, error) {
	return m.formats.HeightForWidth(m, v, doc, width)
}

// ElementTabIndex returns the tab index of an element, ok is false for elements that are not focusable.
func (m *Model) ElementTabIndex(doc format.Document, e dom.Element) (int, bool) {
	index, ok, err := m.formats.TabIndex(doc, e)
	if err != nil {
		return 0, false
	}
	return index, ok
}

func elements(chain []dom.Element) []view.Element {
	es := make([]view.Element, len(chain))
	for i, e := range chain {
		es[i] = e
	}
	return es
}

// Motion hit tests the document of the view at the pointer sample and emits the pointer events of the change in
// hover chain. It returns the new chain.
func (m *Model) Motion(v view.View, ctx canvas.Context, box canvas.Rect, sample view.Sample) []dom.Element {
	var chain []dom.Element
	if doc, ok := m.CurrentDocument(v); ok {
		chain = m.PokeImage(v, doc, ctx, box, sample.X, sample.Y)
	}
	m.session(v).tracker.Move(v, elements(chain), sample)
	return chain
}

// Leave empties the hover chain when the pointer leaves the view.
func (m *Model) Leave(v view.View, sample view.Sample) {
	m.session(v).tracker.Move(v, nil, sample)
}

// Press emits mousedown on the pointed element.
func (m *Model) Press(v view.View, button int, sample view.Sample) {
	m.session(v).tracker.Press(v, button, sample)
}

// Release emits mouseup and the click events on the pointed element.
func (m *Model) Release(v view.View, button, clicks int, sample view.Sample) {
	m.session(v).tracker.Release(v, button, clicks, sample)
}

// Scroll emits a wheel event on the pointed element.
func (m *Model) Scroll(v view.View, dx, dy float64, mode events.DeltaMode, sample view.Sample) {
	m.session(v).tracker.Scroll(v, dx, dy, 0.0, mode, sample)
}

// Key emits keydown or keyup on the focused element.
func (m *Model) Key(v view.View, down bool, key, code string, sample view.Sample) {
	m.session(v).tracker.Key(v, down, key, code, sample)
}

// Focus moves the keyboard focus to an element, or removes it for nil.
func (m *Model) Focus(v view.View, e dom.Element) {
	if e == nil {
		m.session(v).tracker.SetFocus(v, nil)
		return
	}
	m.session(v).tracker.SetFocus(v, e)
}

// Focusable returns the focusable elements of the document of a view in tab order: positive tab indices in
// increasing order first, then the elements of index zero in document order.
func (m *Model) Focusable(v view.View) []dom.Element {
	doc, ok := m.CurrentDocument(v)
	if !ok {
		return nil
	}
	d, ok := doc.(*dom.Document)
	if !ok {
		return nil
	}

	type focusable struct {
		e     dom.Element
		index int
	}
	var fs []focusable
	d.Root.Walk(func(n *dom.Node) {
		if index, ok := m.ElementTabIndex(doc, n); ok && 0 <= index {
			fs = append(fs, focusable{n, index})
		}
	})
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].index == 0 || fs[j].index == 0 {
			return fs[i].index != 0 && fs[j].index == 0
		}
		return fs[i].index < fs[j].index
	})
	es := make([]dom.Element, len(fs))
	for i, f := range fs {
		es[i] = f.e
	}
	return es
}

// FocusNext moves the focus to the next focusable element in tab order, or the previous one when backward is set,
// wrapping around. It returns the focused element.
func (m *Model) FocusNext(v view.View, backward bool) dom.Element {
	es := m.Focusable(v)
	if len(es) == 0 {
		return nil
	}
	i := -1
	if focused := m.Focused(v); focused != nil {
		for j, e := range es {
			if e.Key() == focused.Key() {
				i = j
				break
			}
		}
	}
	if backward {
		if i <= 0 {
			i = len(es)
		}
		i--
	} else {
		i = (i + 1) % len(es)
	}
	m.Focus(v, es[i])
	return es[i]
}
