package svg

import (
	"strings"
	"sync"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/view"
)

const defaultFontSize = 16.0

// presentation lists the properties that may be set by style rules and presentation attributes.
var presentation = map[string]bool{
	"alignment-baseline": true, "baseline-shift": true, "clip": true, "clip-path": true, "clip-rule": true,
	"color": true, "color-interpolation": true, "color-interpolation-filters": true, "color-profile": true,
	"color-rendering": true, "cursor": true, "direction": true, "display": true, "dominant-baseline": true,
	"enable-background": true, "fill": true, "fill-opacity": true, "fill-rule": true, "filter": true,
	"flood-color": true, "flood-opacity": true, "font": true, "font-family": true, "font-size": true,
	"font-size-adjust": true, "font-stretch": true, "font-style": true, "font-variant": true, "font-weight": true,
	"glyph-orientation-horizontal": true, "glyph-orientation-vertical": true, "image-rendering": true,
	"kerning": true, "letter-spacing": true, "lighting-color": true, "marker-end": true, "marker-mid": true,
	"marker-start": true, "mask": true, "opacity": true, "overflow": true, "pointer-events": true,
	"shape-rendering": true, "stop-color": true, "stop-opacity": true, "stroke": true, "stroke-dasharray": true,
	"stroke-dashoffset": true, "stroke-linecap": true, "stroke-linejoin": true, "stroke-miterlimit": true,
	"stroke-opacity": true, "stroke-width": true, "text-anchor": true, "text-decoration": true,
	"text-rendering": true, "transform-origin": true, "unicode-bidi": true, "visibility": true,
	"word-spacing": true, "writing-mode": true,
}

// notInherited are not looked up on the parent when an element does not set them.
var notInherited = map[string]bool{
	"display": true, "stop-color": true, "stop-opacity": true, "transform-origin": true, "baseline-shift": true,
	"clip-path": true, "mask": true, "filter": true, "opacity": true, "overflow": true,
}

type attrKey struct {
	elem, name string
}

type attrValue struct {
	value string
	ok    bool
}

// attrCache holds the own values of elements' properties for one view until the next draw.
type attrCache struct {
	mu     sync.Mutex
	values map[attrKey]attrValue
}

func newAttrCache() *attrCache {
	return &attrCache{values: map[attrKey]attrValue{}}
}

func (c *attrCache) get(elem, name string) (attrValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[attrKey{elem, name}]
	return v, ok
}

func (c *attrCache) set(elem, name string, v attrValue) {
	c.mu.Lock()
	c.values[attrKey{elem, name}] = v
	c.mu.Unlock()
}

func (c *attrCache) flush() {
	c.mu.Lock()
	c.values = map[attrKey]attrValue{}
	c.mu.Unlock()
}

type sheetRef struct {
	sheet *css.Stylesheet
	base  string // URL that relative references in the sheet resolve against
}

// stylesheets returns the stylesheets of a document in cascade order: stylesheet instructions first, then
// `<style>` elements, each preceded by its imports.
func (f *Format) stylesheets(h format.Host, doc *dom.Document) []sheetRef {
	top := doc.Top()
	f.mu.Lock()
	refs, ok := f.sheets[top]
	f.mu.Unlock()
	if ok {
		return refs
	}

	base, _ := h.URL(top)
	seen := map[*css.Stylesheet]bool{}
	var add func(*css.Stylesheet, string)
	add = func(sheet *css.Stylesheet, base string) {
		if seen[sheet] {
			return
		}
		seen[sheet] = true
		for _, imp := range sheet.Imports() {
			u := h.ResolveURL(imp, base)
			if doc, ok := h.Document(u); ok {
				if imported, ok := doc.(*css.Stylesheet); ok {
					add(imported, u)
				}
			}
		}
		refs = append(refs, sheetRef{sheet, base})
	}

	for _, href := range top.Stylesheets {
		u := h.ResolveURL(href, base)
		if doc, ok := h.Document(u); ok {
			if sheet, ok := doc.(*css.Stylesheet); ok {
				add(sheet, u)
			}
		}
	}
	for _, n := range top.Find(dom.Name(dom.SVGNamespace, "style")) {
		link, ok := styleURL(n)
		if !ok {
			continue
		}
		if doc, ok := h.Document(link); ok {
			if sheet, ok := doc.(*css.Stylesheet); ok {
				add(sheet, base)
				continue
			}
		}
		add(f.styleSheet(dom.TextContent(n)), base)
	}

	f.mu.Lock()
	f.sheets[top] = refs
	f.mu.Unlock()
	return refs
}

// styleSheet parses the text of a `<style>` element that was not loaded through the host.
func (f *Format) styleSheet(text string) *css.Stylesheet {
	// the NUL prefix keeps style sheets apart from style attributes in the cache
	key := "\x00" + text
	f.mu.Lock()
	defer f.mu.Unlock()
	sheet, ok := f.inline[key]
	if !ok {
		sheet = css.Parse(text)
		f.inline[key] = sheet
	}
	return sheet
}

// painter is one traversal of a document, either drawing or, when pointer is set, hit testing.
type painter struct {
	*Format
	h       format.Host
	v       view.View
	doc     *dom.Document
	base    string
	root    dom.Element
	units   css.Units
	cache   *attrCache
	sheets  []sheetRef
	tests   css.Tests
	pointer *canvas.Point // device space
	using   map[string]bool
}

func (f *Format) painter(h format.Host, v view.View, doc *dom.Document, pointer *canvas.Point) *painter {
	base, ok := h.URL(doc)
	if !ok {
		base, _ = h.URL(doc.Top())
	}
	p := &painter{
		Format:  f,
		h:       h,
		v:       v,
		doc:     doc,
		base:    base,
		root:    doc.Root,
		units:   css.NewUnits(v.DPI()),
		cache:   f.viewCache(v),
		sheets:  f.stylesheets(h, doc),
		pointer: pointer,
		using:   map[string]bool{},
	}
	p.tests = css.Tests{
		Media:       p.media,
		PseudoClass: p.pseudoClass,
	}
	return p
}

func (p *painter) warn(kind format.WarningKind, target any, msg string, args ...any) {
	p.h.Warn(p.v, format.Warnf(kind, target, msg, args...))
}

// search returns the value of a presentation attribute of e, looking at its ancestors for inherited properties.
func (p *painter) search(e dom.Element, name string) (string, bool) {
	if !presentation[name] {
		p.warn(format.ProgrammerWarning, e, "%s is not a presentation attribute", name)
		return "", false
	}
	for e != nil {
		if value, ok := p.own(e, name); ok && value != "inherit" {
			return value, true
		} else if !ok && notInherited[name] {
			return "", false
		}
		e = e.Parent()
	}
	return "", false
}

// own returns the value an element sets itself: its inline style, the winning stylesheet declaration or its XML
// attribute.
func (p *painter) own(e dom.Element, name string) (string, bool) {
	key := e.Key()
	if v, ok := p.cache.get(key, name); ok {
		return v.value, v.ok
	}
	value, ok := p.lookup(e, name)
	value = strings.TrimSpace(value)
	p.cache.set(key, name, attrValue{value, ok})
	return value, ok
}

func (p *painter) lookup(e dom.Element, name string) (string, bool) {
	if style, ok := e.Attr("style"); ok {
		decls := p.matcher(p.inlineSheet(style)).MatchWith(e, "", css.Tests{})
		if value, ok := decls.Get(name); ok {
			return value, true
		}
	}

	var best css.Value
	found := false
	for _, ref := range p.sheets {
		decls := p.matcher(ref.sheet).MatchWith(e, "", p.tests)
		if v, ok := decls[name]; ok && (!found || v.Wins(best)) {
			best, found = v, true
		}
	}
	if found {
		return best.Value, true
	}
	return e.Attr(name)
}

// attr returns the trimmed value of a presentation attribute or def.
func (p *painter) attr(e dom.Element, name, def string) string {
	if value, ok := p.search(e, name); ok {
		return value
	}
	return def
}

func (p *painter) pseudoClass(e dom.Element, name string) bool {
	switch name {
	case "hover", "active":
		pointed := p.h.Pointed(p.v)
		hover := pointed != nil && dom.AreNodesOrdered(e, pointed)
		if name == "active" {
			return hover && p.v.Buttons() != 0
		}
		return hover
	case "focus":
		focused := p.h.Focused(p.v)
		return focused != nil && focused.Key() == e.Key()
	case "focus-within":
		return dom.AreNodesOrdered(e, p.h.Focused(p.v))
	}
	return false
}

// media tests a media query against the viewport of the view, which is a screen.
func (p *painter) media(q css.MediaQuery) bool {
	ok := q.Type == "" || q.Type == "all" || q.Type == "screen"
	for _, feature := range q.Features {
		ok = ok && p.mediaFeature(feature)
	}
	if q.Not {
		return !ok
	}
	return ok
}

func (p *painter) mediaFeature(feature css.MediaFeature) bool {
	w, h := p.v.ViewportWidth(), p.v.ViewportHeight()
	length := func() (float64, bool) {
		l, err := p.units.Em(defaultFontSize).Length(feature.Value)
		return l, err == nil
	}
	switch feature.Name {
	case "width", "min-width", "max-width", "height", "min-height", "max-height":
		l, ok := length()
		if !ok {
			return false
		}
		size := w
		if strings.HasSuffix(feature.Name, "height") {
			size = h
		}
		if strings.HasPrefix(feature.Name, "min-") {
			return l <= size
		} else if strings.HasPrefix(feature.Name, "max-") {
			return size <= l
		}
		return size == l
	case "orientation":
		if feature.Value == "portrait" {
			return w <= h
		}
		return feature.Value == "landscape" && h < w
	case "color":
		return true
	case "prefers-color-scheme":
		return feature.Value == "light"
	}
	return false
}

// length resolves a length against a percentage base and a font size, warning about malformed values.
func (p *painter) length(e dom.Element, s string, base, em float64) float64 {
	l, err := p.units.Percent(base, 0.0).Em(em).Length(s)
	if err != nil {
		p.warn(format.ParseWarning, e, "%v", err)
		return 0.0
	}
	return l
}

// attrLength resolves a length attribute, which is zero when absent.
func (p *painter) attrLength(e dom.Element, name string, base, em float64) float64 {
	s, _ := e.Attr(name)
	return p.length(e, s, base, em)
}

var fontSizes = map[string]float64{
	"xx-small": 9.0,
	"x-small":  10.0,
	"small":    13.0,
	"medium":   16.0,
	"large":    18.0,
	"x-large":  24.0,
	"xx-large": 32.0,
}

// fontSize returns the font size of e given the font size of its parent.
func (p *painter) fontSize(e dom.Element, em float64) float64 {
	s, ok := p.own(e, "font-size")
	if !ok || s == "inherit" {
		return em
	}
	switch s {
	case "smaller":
		return 0.9 * em
	case "larger", "bigger":
		return 1.1 * em
	}
	if size, ok := fontSizes[s]; ok {
		return size
	}
	if size := p.length(e, s, em, em); 0.0 < size {
		return size
	}
	return em
}

// displayed returns false for elements with display none or visibility collapse.
func (p *painter) displayed(e dom.Element) bool {
	if p.attr(e, "display", "inline") == "none" {
		return false
	}
	return p.attr(e, "visibility", "visible") != "collapse"
}

func (p *painter) visible(e dom.Element) bool {
	return p.attr(e, "visibility", "visible") == "visible"
}
