package svg

import (
	"math"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
)

// paintURL returns the reference of a url() paint such as `url(#gradient) red`.
func paintURL(value string) (string, bool) {
	ref, _, ok := splitPaintURL(value)
	return ref, ok
}

func splitPaintURL(value string) (string, string, bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "url(") {
		return "", "", false
	}
	end := strings.IndexByte(value, ')')
	if end == -1 {
		return "", "", false
	}
	return css.Unquote(value[4:end]), strings.TrimSpace(value[end+1:]), true
}

// fraction parses a number or percentage clamped to [0,1], such as an opacity. Empty and null values are 1.
func (p *painter) fraction(e dom.Element, s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return 1.0
	}
	f, n := css.ParseNumber(s)
	if n == 0 || (n != len(s) && s[n:] != "%") {
		p.warn(format.ParseWarning, e, "bad number or percentage %q", s)
		return 1.0
	} else if s[n:] == "%" {
		f /= 100.0
	}
	return math.Max(0.0, math.Min(1.0, f))
}

// color parses a color value, where currentColor is the element's color property. It returns false for none and
// transparent.
func (p *painter) color(e dom.Element, value string) (canvas.Color, bool) {
	switch strings.ToLower(value) {
	case "", "none", "transparent":
		return canvas.Color{}, false
	case "currentcolor":
		value = p.attr(e, "color", "black")
		if strings.EqualFold(value, "currentcolor") {
			value = "black"
		}
	}
	c, err := css.ParseColor(value)
	if err != nil {
		p.warn(format.ParseWarning, e, "%v", err)
		return canvas.Color{}, false
	}
	return c, true
}

// setPaint sets the source for the fill or stroke property of e. It returns false when nothing is to be painted.
func (p *painter) setPaint(ctx canvas.Context, e dom.Element, box canvas.Rect, em float64, name, opacityName, def string) bool {
	value := p.attr(e, name, def)
	opacity := p.fraction(e, p.attr(e, opacityName, "1"))
	if ref, fallback, ok := splitPaintURL(value); ok {
		if p.paintServer(ctx, e, box, em, ref, opacity) {
			return true
		} else if fallback == "" {
			return false
		}
		value = fallback
	}
	c, ok := p.color(e, value)
	if !ok {
		return false
	}
	c.A *= opacity
	if c.A <= 0.0 {
		return false
	}
	ctx.SetSourceRGBA(c.R, c.G, c.B, c.A)
	return true
}

// fill sets the fill rule and the fill paint of e.
func (p *painter) fill(ctx canvas.Context, e dom.Element, box canvas.Rect, em float64) bool {
	switch rule := p.attr(e, "fill-rule", "nonzero"); rule {
	case "evenodd":
		ctx.SetFillRule(canvas.EvenOdd)
	case "nonzero":
		ctx.SetFillRule(canvas.NonZero)
	default:
		p.warn(format.ParseWarning, e, "bad fill-rule %q", rule)
		ctx.SetFillRule(canvas.NonZero)
	}
	return p.setPaint(ctx, e, box, em, "fill", "fill-opacity", "black")
}

// stroke sets the stroke paint and the line style of e.
func (p *painter) stroke(ctx canvas.Context, e dom.Element, box canvas.Rect, em float64) bool {
	if !p.setPaint(ctx, e, box, em, "stroke", "stroke-opacity", "none") {
		return false
	}
	diagonal := math.Sqrt((box.W*box.W + box.H*box.H) / 2.0)
	width := p.length(e, p.attr(e, "stroke-width", "1"), diagonal, em)
	if width <= 0.0 {
		return false
	}
	ctx.SetLineWidth(width)

	switch linecap := p.attr(e, "stroke-linecap", "butt"); linecap {
	case "butt":
		ctx.SetLineCap(canvas.ButtCap)
	case "round":
		ctx.SetLineCap(canvas.RoundCap)
	case "square":
		ctx.SetLineCap(canvas.SquareCap)
	default:
		p.warn(format.FeatureWarning, e, "unsupported stroke-linecap %q", linecap)
	}

	switch linejoin := p.attr(e, "stroke-linejoin", "miter"); linejoin {
	case "miter", "miter-clip":
		ctx.SetLineJoin(canvas.MiterJoin)
	case "round":
		ctx.SetLineJoin(canvas.RoundJoin)
	case "bevel":
		ctx.SetLineJoin(canvas.BevelJoin)
	default:
		p.warn(format.FeatureWarning, e, "unsupported stroke-linejoin %q", linejoin)
	}

	miterlimit := p.attr(e, "stroke-miterlimit", "4")
	if f, n := css.ParseNumber(miterlimit); n == 0 || n != len(miterlimit) || f < 1.0 {
		p.warn(format.ParseWarning, e, "bad stroke-miterlimit %q", miterlimit)
		ctx.SetMiterLimit(4.0)
	} else {
		ctx.SetMiterLimit(f)
	}

	if dasharray := p.attr(e, "stroke-dasharray", "none"); dasharray != "none" && dasharray != "" {
		p.dash(ctx, e, dasharray, diagonal, em)
	}
	return true
}

// dash sets the dash pattern of e. Dashes are scaled by the ratio of the actual path length to pathLength.
func (p *painter) dash(ctx canvas.Context, e dom.Element, dasharray string, diagonal, em float64) {
	fields := strings.FieldsFunc(dasharray, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	dashes := make([]float64, 0, 2*len(fields))
	sum := 0.0
	for _, field := range fields {
		d := p.length(e, field, diagonal, em)
		if d < 0.0 {
			p.warn(format.ParseWarning, e, "negative value in stroke-dasharray %q", dasharray)
			return
		}
		dashes = append(dashes, d)
		sum += d
	}
	if sum <= 0.0 {
		return
	} else if len(dashes)%2 == 1 {
		dashes = append(dashes, dashes...)
	}

	offset := p.length(e, p.attr(e, "stroke-dashoffset", "0"), diagonal, em)
	if s, ok := e.Attr("pathLength"); ok {
		s = strings.TrimSpace(s)
		if declared, n := css.ParseNumber(s); n == len(s) && 0.0 < declared {
			scale := ctx.CopyPath().Length() / declared
			for i := range dashes {
				dashes[i] *= scale
			}
			offset *= scale
		} else {
			p.warn(format.ParseWarning, e, "bad pathLength %q", s)
		}
	}
	ctx.SetDash(dashes, offset)
}

// reference returns the element an href or url() points to: the root of a loaded document or fragment, or an
// element of the same document.
func (p *painter) reference(href string) (dom.Element, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, false
	}
	if doc, ok := p.h.Document(p.h.ResolveURL(href, p.base)); ok {
		if d, ok := doc.(*dom.Document); ok {
			return d.Root, true
		}
		return nil, false
	}
	if strings.HasPrefix(href, "#") {
		if n, ok := p.doc.Top().ElementByID(href[1:]); ok {
			return n, true
		}
	}
	return nil, false
}

// inherit follows the href chain of a gradient or pattern. Each step overlays the referring element on the
// referenced one, so that attributes and stops not given are inherited.
func (p *painter) inherit(server dom.Element, kinds ...string) dom.Element {
	seen := map[string]bool{server.Key(): true}
	for {
		href, ok := dom.Href(server)
		if !ok {
			return server
		}
		target, ok := p.reference(href)
		if !ok {
			p.warn(format.ReferenceWarning, server, "%s not found", href)
			return server
		}
		kindOK := false
		for _, kind := range kinds {
			if target.Tag() == dom.Name(dom.SVGNamespace, kind) {
				kindOK = true
			}
		}
		if !kindOK {
			return server
		} else if seen[target.Key()] {
			p.warn(format.ProgrammerWarning, server, "href cycle through %s", href)
			return server
		}
		seen[target.Key()] = true
		server = dom.NewInherit(server, target)
	}
}

// paintServer sets a gradient or pattern as the source. When hit testing only the reference is checked.
func (p *painter) paintServer(ctx canvas.Context, e dom.Element, box canvas.Rect, em float64, ref string, opacity float64) bool {
	server, ok := p.reference(ref)
	if !ok {
		p.warn(format.ReferenceWarning, e, "paint server %s not found", ref)
		return false
	} else if p.pointer != nil {
		return true
	}
	switch _, local := dom.Split(server.Tag()); local {
	case "linearGradient", "radialGradient":
		return p.gradient(ctx, server, box, em, opacity)
	case "pattern":
		return p.pattern(ctx, server, box, em)
	default:
		p.warn(format.FeatureWarning, server, "unsupported paint server <%s>", local)
	}
	return false
}

// unitLength resolves a gradient or pattern coordinate. In bounding box units it is a fraction or a percentage of
// the bounding box.
func (p *painter) unitLength(e dom.Element, name, def string, bbox bool, base, em float64) float64 {
	s, ok := e.Attr(name)
	if !ok {
		s = def
	}
	if bbox {
		base = 1.0
	}
	return p.length(e, s, base, em)
}

func (p *painter) gradient(ctx canvas.Context, server dom.Element, box canvas.Rect, em float64, opacity float64) bool {
	server = p.inherit(server, "linearGradient", "radialGradient")
	units, _ := server.Attr("gradientUnits")
	bbox := strings.TrimSpace(units) != "userSpaceOnUse"
	var bb canvas.Rect
	if bbox {
		if bb = ctx.PathExtents(); bb.W <= 0.0 || bb.H <= 0.0 {
			return false
		}
	}

	var g *canvas.Gradient
	diagonal := math.Sqrt((box.W*box.W + box.H*box.H) / 2.0)
	if _, local := dom.Split(server.Tag()); local == "linearGradient" {
		x1 := p.unitLength(server, "x1", "0%", bbox, box.W, em)
		y1 := p.unitLength(server, "y1", "0%", bbox, box.H, em)
		x2 := p.unitLength(server, "x2", "100%", bbox, box.W, em)
		y2 := p.unitLength(server, "y2", "0%", bbox, box.H, em)
		g = canvas.NewLinearGradient(x1, y1, x2, y2)
	} else {
		cx := p.unitLength(server, "cx", "50%", bbox, box.W, em)
		cy := p.unitLength(server, "cy", "50%", bbox, box.H, em)
		r := p.unitLength(server, "r", "50%", bbox, diagonal, em)
		fx, fy := cx, cy
		if _, ok := server.Attr("fx"); ok {
			fx = p.unitLength(server, "fx", "50%", bbox, box.W, em)
		}
		if _, ok := server.Attr("fy"); ok {
			fy = p.unitLength(server, "fy", "50%", bbox, box.H, em)
		}
		fr := p.unitLength(server, "fr", "0%", bbox, diagonal, em)
		g = canvas.NewRadialGradient(fx, fy, fr, cx, cy, r)
	}

	m := canvas.Identity
	if s, ok := server.Attr("gradientTransform"); ok {
		var err error
		if m, err = ParseTransform(s, nil); err != nil {
			p.warn(format.ParseWarning, server, "gradientTransform: %v", err)
		}
	}
	if bbox {
		m = canvas.Identity.Translate(bb.X, bb.Y).Scale(bb.W, bb.H).Mul(m)
	}
	g.Matrix = m.Inv()

	switch spread, _ := server.Attr("spreadMethod"); strings.TrimSpace(spread) {
	case "reflect":
		g.Extend = canvas.ExtendReflect
	case "repeat":
		g.Extend = canvas.ExtendRepeat
	default:
		g.Extend = canvas.ExtendPad
	}

	last := 0.0
	for _, stop := range server.Children() {
		if stop.Tag() != dom.Name(dom.SVGNamespace, "stop") {
			continue
		}
		offset, ok := stop.Attr("offset")
		if !ok {
			offset = "0"
		}
		last = math.Max(last, p.fraction(stop, offset))
		c, ok := p.color(stop, p.attr(stop, "stop-color", "black"))
		if !ok {
			c = canvas.Color{}
		}
		c.A *= p.fraction(stop, p.attr(stop, "stop-opacity", "1")) * opacity
		g.AddColorStop(last, c)
	}
	if len(g.Stops) == 0 {
		return false
	} else if len(g.Stops) == 1 {
		c := g.Stops[0].Color
		ctx.SetSourceRGBA(c.R, c.G, c.B, c.A)
		return true
	}
	ctx.SetSource(g)
	return true
}

// maxTile limits the size in pixels of a pattern tile.
const maxTile = 4096

// pattern renders the content of a pattern into a tile at device resolution and sets it as a repeating source.
func (p *painter) pattern(ctx canvas.Context, server dom.Element, box canvas.Rect, em float64) bool {
	server = p.inherit(server, "pattern")
	key := server.Key()
	if p.using[key] {
		p.warn(format.ProgrammerWarning, server, "pattern references itself")
		return false
	}
	p.using[key] = true
	defer delete(p.using, key)

	units, _ := server.Attr("patternUnits")
	bbox := strings.TrimSpace(units) != "userSpaceOnUse"
	bb := box
	if bbox {
		if bb = ctx.PathExtents(); bb.W <= 0.0 || bb.H <= 0.0 {
			return false
		}
	}
	x := p.unitLength(server, "x", "0", bbox, box.W, em)
	y := p.unitLength(server, "y", "0", bbox, box.H, em)
	w := p.unitLength(server, "width", "0", bbox, box.W, em)
	h := p.unitLength(server, "height", "0", bbox, box.H, em)
	if bbox {
		x, y, w, h = bb.X+x*bb.W, bb.Y+y*bb.H, w*bb.W, h*bb.H
	}
	if w <= 0.0 || h <= 0.0 {
		return false
	}

	pt := canvas.Identity
	if s, ok := server.Attr("patternTransform"); ok {
		var err error
		if pt, err = ParseTransform(s, nil); err != nil {
			p.warn(format.ParseWarning, server, "patternTransform: %v", err)
		}
	}
	scale := ctx.Matrix().Mul(pt).ScaleFactor()
	tw, th := int(math.Ceil(w*scale)), int(math.Ceil(h*scale))
	if tw <= 0 || th <= 0 {
		return false
	} else if maxTile < tw || maxTile < th {
		p.warn(format.FeatureWarning, server, "pattern tile of %dx%d pixels is too large", tw, th)
		return false
	}

	tile := ctx.NewSimilar(tw, th)
	tile.Scale(scale, scale)
	content := canvas.Rect{X: 0.0, Y: 0.0, W: w, H: h}
	if s, ok := server.Attr("viewBox"); ok {
		if vb, err := css.Numbers(s); err != nil || len(vb) != 4 || vb[2] <= 0.0 || vb[3] <= 0.0 {
			p.warn(format.ParseWarning, server, "bad viewBox %q", s)
		} else {
			fit := math.Min(w/vb[2], h/vb[3])
			tile.Scale(fit, fit)
			tile.Translate(-vb[0], -vb[1])
			content = canvas.Rect{X: vb[0], Y: vb[1], W: vb[2], H: vb[3]}
		}
	} else if contentUnits, _ := server.Attr("patternContentUnits"); strings.TrimSpace(contentUnits) == "objectBoundingBox" {
		tile.Scale(bb.W, bb.H)
		content = canvas.Rect{X: 0.0, Y: 0.0, W: 1.0, H: 1.0}
	}
	for _, child := range server.Children() {
		p.child(tile, content, child, em)
	}

	pat := tile.Snapshot()
	pat.Extend = canvas.ExtendRepeat
	pat.Matrix = canvas.Identity.Scale(scale, scale).Translate(-x, -y).Mul(pt.Inv())
	ctx.SetSource(pat)
	return true
}

// paint fills and strokes the current path of e, and tests the pointer against it when hit testing.
func (p *painter) paint(ctx canvas.Context, e dom.Element, box canvas.Rect, em float64) bool {
	visible := p.visible(e)
	var qx, qy float64
	inClip := false
	if p.pointer != nil {
		qx, qy = ctx.DeviceToUser(p.pointer.X, p.pointer.Y)
		inClip = ctx.InClip(qx, qy)
	}

	hit := false
	ctx.Save()
	if p.fill(ctx, e, box, em) && p.pointer == nil && visible {
		ctx.FillPreserve()
	}
	if inClip && ctx.InFill(qx, qy) {
		hit = true
	}
	ctx.Restore()

	ctx.Save()
	if p.stroke(ctx, e, box, em) {
		if p.pointer == nil && visible {
			ctx.StrokePreserve()
		} else if inClip && ctx.InStroke(qx, qy) {
			hit = true
		}
	}
	ctx.Restore()
	return hit
}
