// Package svg draws SVG documents onto a canvas.Context and finds the elements under a pointer with the same
// traversal.
package svg

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/view"
)

// Namespaces of editor metadata that is never drawn.
const (
	SodipodiNamespace = "http://sodipodi.sourceforge.net/DTD/sodipodi-0.dtd"
	InkscapeNamespace = "http://www.inkscape.org/namespaces/inkscape"
)

// ShapeFeature is the SVG 1.1 feature string of basic shapes.
const ShapeFeature = "http://www.w3.org/TR/SVG11/feature#Shape"

// IsSVGMIME returns true for image/svg+xml and image/svg.
func IsSVGMIME(mimetype string) bool {
	return mimetype == "image/svg+xml" || mimetype == "image/svg"
}

func isSVG(e dom.Element) bool {
	ns, _ := dom.Split(e.Tag())
	return ns == dom.SVGNamespace
}

// Format is the SVG format. Its documents are *dom.Document with a root in the SVG namespace.
type Format struct {
	// Features are the feature strings that `<switch>` children may require.
	Features map[string]bool

	// Extensions are the extension URIs that `<switch>` children may require.
	Extensions map[string]bool

	mu       sync.Mutex
	matchers map[*css.Stylesheet]*css.Matcher
	inline   map[string]*css.Stylesheet
	sheets   map[*dom.Document][]sheetRef
	caches   map[view.View]*attrCache
}

// New returns the SVG format supporting the shape feature and no extensions.
func New() *Format {
	return &Format{
		Features:   map[string]bool{ShapeFeature: true},
		Extensions: map[string]bool{},
		matchers:   map[*css.Stylesheet]*css.Matcher{},
		inline:     map[string]*css.Stylesheet{},
		sheets:     map[*dom.Document][]sheetRef{},
		caches:     map[view.View]*attrCache{},
	}
}

// Create implements format.Format.
func (f *Format) Create(data []byte, mimetype string) (format.Document, error) {
	if !IsSVGMIME(mimetype) {
		return nil, format.ErrNotImplemented
	}
	doc, err := dom.ParseNS(data, dom.SVGNamespace)
	if err != nil {
		return nil, fmt.Errorf("svg: %w", err)
	} else if !isSVG(doc.Root) {
		return nil, fmt.Errorf("svg: root element %s is not in the SVG namespace", doc.Root.Tag())
	}
	return doc, nil
}

// Is implements format.Format.
func (f *Format) Is(doc format.Document) bool {
	d, ok := doc.(*dom.Document)
	return ok && d.Root != nil && isSVG(d.Root)
}

// styleURL returns the contents of a `<style>` element as a data URL, so that it loads like any other
// stylesheet.
func styleURL(e dom.Element) (string, bool) {
	mimetype, ok := e.Attr("type")
	if !ok || strings.TrimSpace(mimetype) == "" {
		mimetype = "text/css"
	}
	mimetype = strings.ToLower(strings.TrimSpace(mimetype))
	if mimetype != "text/css" {
		return "", false
	}
	return "data:" + mimetype + "," + url.PathEscape(dom.TextContent(e)), true
}

// paintProperties may hold url() references to other documents.
var paintProperties = []string{"fill", "stroke", "clip-path", "mask", "filter", "marker-start", "marker-mid", "marker-end"}

// Links implements format.LinkScanner. It returns the stylesheet instructions, the `<style>` elements as data
// URLs, the hrefs of all SVG elements except hyperlinks, and the url() references of style and paint attributes.
func (f *Format) Links(doc format.Document) ([]string, error) {
	d := doc.(*dom.Document)
	seen := map[string]bool{}
	links := []string{}
	add := func(link string) {
		if link = strings.TrimSpace(link); link != "" && !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}
	for _, href := range d.Stylesheets {
		add(href)
	}
	d.Root.Walk(func(n *dom.Node) {
		ns, local := dom.Split(n.Tag())
		if ns != dom.SVGNamespace {
			return
		}
		if local == "style" {
			if link, ok := styleURL(n); ok {
				add(link)
			}
			return
		}
		if href, ok := dom.Href(n); ok && local != "a" {
			add(href)
		}
		if style, ok := n.Attr("style"); ok {
			for _, link := range f.inlineSheet(style).Links() {
				add(link)
			}
		}
		for _, name := range paintProperties {
			if value, ok := n.Attr(name); ok {
				if link, ok := paintURL(value); ok {
					add(link)
				}
			}
		}
	})
	return links, nil
}

// Fragment implements format.Fragmenter.
func (f *Format) Fragment(doc format.Document, id string) (format.Document, error) {
	frag, err := doc.(*dom.Document).Fragment(id)
	if err != nil {
		return nil, fmt.Errorf("#%s: %w", id, err)
	}
	return frag, nil
}

// TabIndex implements format.TabIndexer. Hyperlinks are focusable; other elements are left to the tabindex
// attribute handled by the generic XML format.
func (f *Format) TabIndex(doc format.Document, e dom.Element) (int, bool, error) {
	if ns, local := dom.Split(e.Tag()); ns == dom.SVGNamespace && local == "a" {
		if _, ok := e.Attr("tabindex"); !ok {
			if _, ok := dom.Href(e); ok {
				return 0, true, nil
			}
		}
	}
	return 0, false, format.ErrNotImplemented
}

// Dimensions implements format.Dimensioner. The width and height attributes of the root are resolved against
// the viewport; a missing attribute takes the viewport's size.
func (f *Format) Dimensions(h format.Host, v view.View, doc format.Document) (float64, float64, error) {
	root := doc.(*dom.Document).Root
	units := css.NewUnits(v.DPI()).Em(defaultFontSize)
	vw, vh := v.ViewportWidth(), v.ViewportHeight()
	width, height := vw, vh
	if s, ok := root.Attr("width"); ok {
		l, err := units.Percent(vw, 0.0).Length(s)
		if err != nil {
			return 0.0, 0.0, fmt.Errorf("svg width: %w", err)
		}
		width = l
	}
	if s, ok := root.Attr("height"); ok {
		l, err := units.Percent(vh, 0.0).Length(s)
		if err != nil {
			return 0.0, 0.0, fmt.Errorf("svg height: %w", err)
		}
		height = l
	}
	return width, height, nil
}

// WidthForHeight implements format.Sizer, keeping the aspect ratio of the document.
func (f *Format) WidthForHeight(h format.Host, v view.View, doc format.Document, height float64) (float64, error) {
	w, h0, err := f.Dimensions(h, v, doc)
	if err != nil {
		return 0.0, err
	} else if h0 == 0.0 {
		return 0.0, fmt.Errorf("svg: zero height")
	}
	return height * w / h0, nil
}

// HeightForWidth implements format.Sizer, keeping the aspect ratio of the document.
func (f *Format) HeightForWidth(h format.Host, v view.View, doc format.Document, width float64) (float64, error) {
	w, h0, err := f.Dimensions(h, v, doc)
	if err != nil {
		return 0.0, err
	} else if w == 0.0 {
		return 0.0, fmt.Errorf("svg: zero width")
	}
	return width * h0 / w, nil
}

// Open implements format.Opener. The @font-face rules of the document's stylesheets are installed.
func (f *Format) Open(h format.Host, v view.View, doc format.Document) error {
	d := doc.(*dom.Document)
	for _, ref := range f.stylesheets(h, d) {
		for _, family := range format.InstallFontFaces(h, ref.base, ref.sheet) {
			h.Warn(v, format.Warnf(format.ReferenceWarning, doc, "font %q could not be loaded", family))
		}
	}
	return nil
}

// Close implements format.Opener. The attribute cache of the view is dropped.
func (f *Format) Close(h format.Host, v view.View, doc format.Document) error {
	f.mu.Lock()
	delete(f.caches, v)
	f.mu.Unlock()
	return nil
}

// Invalidate implements format.Invalidator. Cached style matches and stylesheet lists are dropped when
// documents load or unload.
func (f *Format) Invalidate() {
	f.mu.Lock()
	f.matchers = map[*css.Stylesheet]*css.Matcher{}
	f.sheets = map[*dom.Document][]sheetRef{}
	f.mu.Unlock()
}

// Draw implements format.Drawer. The attribute cache of the view is flushed first.
func (f *Format) Draw(h format.Host, v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect) error {
	p := f.painter(h, v, doc.(*dom.Document), nil)
	p.cache.flush()
	p.render(ctx, box, p.root, defaultFontSize)
	return nil
}

// Poke implements format.Poker. It returns the chain from the root to the deepest element under the device point
// (px,py); nothing is drawn.
func (f *Format) Poke(h format.Host, v view.View, doc format.Document, ctx canvas.Context, box canvas.Rect, px, py float64) ([]dom.Element, error) {
	p := f.painter(h, v, doc.(*dom.Document), &canvas.Point{X: px, Y: py})
	return p.render(ctx, box, p.root, defaultFontSize), nil
}

// Attribute returns the computed value of a presentation attribute of e as drawn in view v: its inline style,
// the document's stylesheets, its XML attribute or else the value of its parent.
func (f *Format) Attribute(h format.Host, v view.View, doc *dom.Document, e dom.Element, name string) (string, bool) {
	p := f.painter(h, v, doc, nil)
	p.cache = newAttrCache()
	return p.search(e, name)
}

func (f *Format) matcher(sheet *css.Stylesheet) *css.Matcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matchers[sheet]
	if !ok {
		m = css.NewMatcher(sheet, dom.SVGNamespace)
		f.matchers[sheet] = m
	}
	return m
}

func (f *Format) inlineSheet(style string) *css.Stylesheet {
	f.mu.Lock()
	defer f.mu.Unlock()
	sheet, ok := f.inline[style]
	if !ok {
		sheet = css.ParseInline(style)
		f.inline[style] = sheet
	}
	return sheet
}

func (f *Format) viewCache(v view.View) *attrCache {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.caches[v]
	if !ok {
		c = newAttrCache()
		f.caches[v] = c
	}
	return c
}
