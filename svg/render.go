package svg

import (
	"math"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
)

// unrendered elements are only drawn when referenced, or never.
var unrendered = map[string]bool{
	"defs": true, "title": true, "desc": true, "metadata": true, "style": true, "script": true,
	"linearGradient": true, "radialGradient": true, "pattern": true, "stop": true, "clipPath": true,
	"mask": true, "marker": true, "filter": true, "font": true, "font-face": true, "cursor": true, "view": true,
	"animate": true, "animateColor": true, "animateMotion": true, "animateTransform": true, "set": true,
	"tspan": true, "textPath": true,
}

// render draws e, or when hit testing returns the chain of elements from e to the deepest element under the
// pointer.
func (p *painter) render(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) []dom.Element {
	ns, local := dom.Split(e.Tag())
	if ns != dom.SVGNamespace {
		return nil
	}
	switch local {
	case "svg", "g", "a", "symbol":
		return p.group(ctx, box, e, em)
	case "rect", "circle", "ellipse", "line", "polygon", "polyline", "path":
		return p.shape(ctx, box, e, em)
	case "text":
		return p.text(ctx, box, e, em)
	case "image":
		return p.image(ctx, box, e, em)
	case "foreignObject":
		return p.foreignObject(ctx, box, e, em)
	case "use", "switch":
		return p.child(ctx, box, e, em)
	}
	if !unrendered[local] {
		p.warn(format.FeatureWarning, e, "unsupported element <%s>", local)
	}
	return nil
}

// child renders a child of a container. Uses are replaced by overlays of their targets and switches by their
// first child whose requirements are met.
func (p *painter) child(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) []dom.Element {
	ns, local := dom.Split(e.Tag())
	if ns == SodipodiNamespace || ns == InkscapeNamespace {
		return nil
	} else if ns == dom.SVGNamespace && local == "symbol" {
		if _, ok := e.(*dom.Overlay); !ok {
			return nil
		}
	}

	var active []string
	defer func() {
		for _, key := range active {
			delete(p.using, key)
		}
	}()
	for ns == dom.SVGNamespace && (local == "use" || local == "switch") {
		if !p.displayed(e) {
			return nil
		}
		if local == "use" {
			target, ok := p.useTarget(e)
			if !ok {
				return nil
			}
			key := target.Key()
			if p.using[key] {
				p.warn(format.ProgrammerWarning, e, "<use> references one of its ancestors")
				return nil
			}
			p.using[key] = true
			active = append(active, key)
			e = dom.NewUse(e, target)
		} else {
			var ok bool
			if e, ok = p.choose(e); !ok {
				return nil
			}
		}
		ns, local = dom.Split(e.Tag())
	}
	return p.render(ctx, box, e, em)
}

func (p *painter) useTarget(e dom.Element) (dom.Element, bool) {
	href, ok := dom.Href(e)
	if !ok {
		p.warn(format.ReferenceWarning, e, "<use> without href")
		return nil, false
	}
	target, ok := p.reference(href)
	if !ok {
		p.warn(format.ReferenceWarning, e, "<use> target %s not found", href)
	}
	return target, ok
}

// choose returns the first child of a switch whose required features and extensions are supported.
func (p *painter) choose(e dom.Element) (dom.Element, bool) {
	for _, child := range e.Children() {
		if p.supported(child) {
			return child, true
		}
	}
	p.warn(format.FeatureWarning, e, "no child of <switch> has its requirements met")
	return nil, false
}

func (p *painter) supported(e dom.Element) bool {
	if s, ok := e.Attr("requiredFeatures"); ok {
		for _, feature := range strings.Fields(s) {
			if !p.Features[feature] {
				return false
			}
		}
	}
	if s, ok := e.Attr("requiredExtensions"); ok {
		for _, extension := range strings.Fields(s) {
			if !p.Extensions[extension] {
				return false
			}
		}
	}
	return true
}

// hitChain prepends e to the chain of a child when the pointer is inside the current clip.
func (p *painter) hitChain(ctx canvas.Context, e dom.Element, chain []dom.Element) []dom.Element {
	if len(chain) == 0 || p.pointer == nil {
		return nil
	}
	qx, qy := ctx.DeviceToUser(p.pointer.X, p.pointer.Y)
	if !ctx.InClip(qx, qy) {
		return nil
	}
	return append([]dom.Element{e}, chain...)
}

// group renders the children of svg, g, a and symbol elements. Of the children under the pointer the last one,
// drawn on top, is kept.
func (p *painter) group(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) []dom.Element {
	if !p.displayed(e) {
		return nil
	}
	em = p.fontSize(e, em)
	_, local := dom.Split(e.Tag())

	ctx.Save()
	defer ctx.Restore()
	p.transform(ctx, e, box, em)
	switch local {
	case "svg", "symbol":
		var ok bool
		if box, ok = p.viewport(ctx, box, e, em); !ok {
			return nil
		}
	case "g", "a":
		if x, y := p.attrLength(e, "x", box.W, em), p.attrLength(e, "y", box.H, em); x != 0.0 || y != 0.0 {
			ctx.Translate(x, y)
		}
	}
	if local == "a" && p.pointer == nil {
		if href, ok := dom.Href(e); ok {
			ctx.TagBegin("a", "href='"+strings.ReplaceAll(href, "'", "%27")+"'")
			defer ctx.TagEnd("a")
		}
	}

	var chain []dom.Element
	for _, child := range e.Children() {
		if hits := p.child(ctx, box, child, em); 0 < len(hits) {
			chain = hits
		}
	}
	return p.hitChain(ctx, e, chain)
}

// viewport establishes the coordinate system of an svg or symbol element and clips to it. The outer svg element
// fits its viewBox into the box, centered. It returns the viewBox, or false if it is empty.
func (p *painter) viewport(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) (canvas.Rect, bool) {
	outer := e.Key() == p.root.Key()
	w, h := box.W, box.H
	if !outer {
		if s, ok := e.Attr("width"); ok {
			w = p.length(e, s, box.W, em)
		}
		if s, ok := e.Attr("height"); ok {
			h = p.length(e, s, box.H, em)
		}
	}

	vb := canvas.Rect{X: 0.0, Y: 0.0, W: w, H: h}
	hasViewBox := false
	if s, ok := e.Attr("viewBox"); ok {
		if fs, err := css.Numbers(s); err != nil || len(fs) != 4 {
			p.warn(format.ParseWarning, e, "bad viewBox %q", s)
		} else {
			vb = canvas.Rect{X: fs[0], Y: fs[1], W: fs[2], H: fs[3]}
			hasViewBox = true
		}
	}
	if vb.W <= 0.0 || vb.H <= 0.0 || w <= 0.0 || h <= 0.0 {
		return box, false
	}

	if outer {
		s := math.Min(box.W/vb.W, box.H/vb.H)
		ctx.Translate(box.X+(box.W-s*vb.W)/2.0, box.Y+(box.H-s*vb.H)/2.0)
		ctx.Scale(s, s)
		ctx.Translate(-vb.X, -vb.Y)
	} else {
		x := p.attrLength(e, "x", box.W, em)
		y := p.attrLength(e, "y", box.H, em)
		if hasViewBox {
			s := math.Min(w/vb.W, h/vb.H)
			ctx.Translate(x+(w-s*vb.W)/2.0, y+(h-s*vb.H)/2.0)
			ctx.Scale(s, s)
			ctx.Translate(-vb.X, -vb.Y)
		} else {
			ctx.Translate(x, y)
		}
	}
	ctx.NewPath()
	ctx.Rectangle(vb.X, vb.Y, vb.W, vb.H)
	ctx.Clip()
	return vb, true
}

// shape draws a basic shape or path.
func (p *painter) shape(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) []dom.Element {
	if !p.displayed(e) {
		return nil
	}
	em = p.fontSize(e, em)

	ctx.Save()
	defer ctx.Restore()
	p.transform(ctx, e, box, em)
	ctx.NewPath()
	if !p.outline(ctx, e, box, em) {
		ctx.NewPath()
		return nil
	}
	hit := p.paint(ctx, e, box, em)
	ctx.NewPath()
	if hit {
		return []dom.Element{e}
	}
	return nil
}

// image draws a referenced document into the box of an image element. Without width or height the document's
// own size is used, and with only one of them its aspect ratio is kept.
func (p *painter) image(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) []dom.Element {
	if !p.displayed(e) {
		return nil
	}
	href, ok := dom.Href(e)
	if !ok {
		return nil
	}
	doc, ok := p.h.Document(p.h.ResolveURL(href, p.base))
	if !ok {
		p.warn(format.ReferenceWarning, e, "image %s is not loaded", href)
		return nil
	}

	x := p.attrLength(e, "x", box.W, em)
	y := p.attrLength(e, "y", box.H, em)
	w, h := box.W, box.H
	if iw, ih, err := p.h.Dimensions(p.v, doc); err == nil {
		w, h = iw, ih
	}
	sw, okW := e.Attr("width")
	sh, okH := e.Attr("height")
	switch {
	case okW && okH:
		w, h = p.length(e, sw, box.W, em), p.length(e, sh, box.H, em)
	case okW && 0.0 < w:
		width := p.length(e, sw, box.W, em)
		w, h = width, h*width/w
	case okH && 0.0 < h:
		height := p.length(e, sh, box.H, em)
		w, h = w*height/h, height
	}
	if w <= 0.0 || h <= 0.0 {
		return nil
	}

	ctx.Save()
	defer ctx.Restore()
	p.transform(ctx, e, box, em)
	bounds := canvas.Rect{X: x, Y: y, W: w, H: h}
	ctx.NewPath()
	ctx.Rectangle(x, y, w, h)
	ctx.Clip()
	if p.pointer == nil {
		if p.visible(e) {
			p.h.Draw(p.v, doc, ctx, bounds)
		}
		return nil
	}
	qx, qy := ctx.DeviceToUser(p.pointer.X, p.pointer.Y)
	if bounds.Contains(canvas.Point{X: qx, Y: qy}) && ctx.InClip(qx, qy) {
		return []dom.Element{e}
	}
	return nil
}

// foreignObject draws its SVG children as usual and its other children as documents of their own through the
// host.
func (p *painter) foreignObject(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) []dom.Element {
	if !p.displayed(e) {
		return nil
	}
	em = p.fontSize(e, em)
	x := p.attrLength(e, "x", box.W, em)
	y := p.attrLength(e, "y", box.H, em)
	w, h := box.W, box.H
	if s, ok := e.Attr("width"); ok {
		w = p.length(e, s, box.W, em)
	}
	if s, ok := e.Attr("height"); ok {
		h = p.length(e, s, box.H, em)
	}
	if w <= 0.0 || h <= 0.0 {
		return nil
	}

	ctx.Save()
	defer ctx.Restore()
	p.transform(ctx, e, box, em)
	inner := canvas.Rect{X: x, Y: y, W: w, H: h}
	ctx.NewPath()
	ctx.Rectangle(x, y, w, h)
	ctx.Clip()

	var chain []dom.Element
	for _, child := range e.Children() {
		var hits []dom.Element
		if isSVG(child) {
			hits = p.child(ctx, inner, child, em)
		} else if n := dom.Unwrap(child); n != nil {
			doc := dom.NewDocument(n)
			if p.pointer == nil {
				p.h.Draw(p.v, doc, ctx, inner)
			} else {
				hits = p.h.Poke(p.v, doc, ctx, inner, p.pointer.X, p.pointer.Y)
			}
		}
		if 0 < len(hits) {
			chain = hits
		}
	}
	return p.hitChain(ctx, e, chain)
}
