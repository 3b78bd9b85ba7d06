package svg

import (
	"math"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
)

// spaceAdvance is the advance of a collapsed space between two text elements.
const spaceAdvance = 3.0

type fontSpec struct {
	family string
	slant  canvas.FontSlant
	weight canvas.FontWeight
	size   float64
}

func (f fontSpec) apply(ctx canvas.Context) {
	ctx.SelectFontFace(f.family, f.slant, f.weight)
	ctx.SetFontSize(f.size)
}

// font returns the font of e. The first family of the font-family list that is installed is chosen, or else the
// last one.
func (p *painter) font(e dom.Element, em float64) fontSpec {
	families := strings.Split(p.attr(e, "font-family", "sans-serif"), ",")
	family := ""
	for _, name := range families {
		family = css.Unquote(name)
		if p.h.Fonts().Has(family) {
			break
		}
	}
	slant, weight := format.FontStyle(p.attr(e, "font-style", "normal"), p.attr(e, "font-weight", "normal"))
	return fontSpec{family, slant, weight, em}
}

// textRun is a piece of text drawn with one font from one origin.
type textRun struct {
	chain    []dom.Element // from the text element to the element holding the run
	text     string
	x, y     float64
	em       float64
	font     fontSpec
	vertical bool
	extents  canvas.TextExtents
}

type textLayout struct {
	x, y  float64
	space bool // the last run ended in collapsed whitespace
	runs  []textRun
}

// firstLength returns the first length of a list attribute such as the x of text elements.
func (p *painter) firstLength(e dom.Element, name string, base, em float64) (float64, bool) {
	s, ok := e.Attr(name)
	if !ok {
		return 0.0, false
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	if len(fields) == 0 {
		return 0.0, false
	}
	return p.length(e, fields[0], base, em), true
}

func isVertical(mode string) bool {
	switch mode {
	case "tb", "tb-rl", "vertical-rl", "vertical-lr":
		return true
	}
	return false
}

// layout positions the runs of a text element and of its tspan descendants.
func (p *painter) layout(ctx canvas.Context, l *textLayout, e dom.Element, chain []dom.Element, box canvas.Rect, em float64, preserve bool) {
	chain = append(chain[:len(chain):len(chain)], e)
	if x, ok := p.firstLength(e, "x", box.W, em); ok {
		l.x = x
	}
	if y, ok := p.firstLength(e, "y", box.H, em); ok {
		l.y = y
	}
	if dx, ok := p.firstLength(e, "dx", box.W, em); ok {
		l.x += dx
	}
	if dy, ok := p.firstLength(e, "dy", box.H, em); ok {
		l.y += dy
	}
	switch space, _ := e.Attr(dom.Name(dom.XMLNamespace, "space")); space {
	case "preserve":
		preserve = true
	case "default":
		preserve = false
	}

	font := p.font(e, em)
	vertical := isVertical(p.attr(e, "writing-mode", "lr"))
	p.addRun(ctx, l, chain, e.Text(), em, font, vertical, preserve)
	for _, child := range e.Children() {
		if ns, local := dom.Split(child.Tag()); ns == dom.SVGNamespace && (local == "tspan" || local == "a") && p.displayed(child) {
			p.layout(ctx, l, child, chain, box, p.fontSize(child, em), preserve)
		}
		p.addRun(ctx, l, chain, child.Tail(), em, font, vertical, preserve)
	}
}

func (p *painter) addRun(ctx canvas.Context, l *textLayout, chain []dom.Element, s string, em float64, font fontSpec, vertical, preserve bool) {
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\r' || r == '\n' || r == '\u00a0' && !preserve {
			return ' '
		}
		return r
	}, s)
	if !preserve {
		words := strings.Fields(s)
		if len(words) == 0 {
			if s != "" && 0 < len(l.runs) && !l.space {
				l.x += spaceAdvance
				l.space = true
			}
			return
		}
		text := strings.Join(words, " ")
		if s[0] == ' ' && 0 < len(l.runs) && !l.space {
			text = " " + text
		}
		l.space = s[len(s)-1] == ' '
		if l.space {
			text += " "
		}
		s = text
	} else if s == "" {
		return
	} else {
		l.space = false
	}

	ctx.Save()
	font.apply(ctx)
	extents := ctx.TextExtents(s)
	ctx.Restore()
	l.runs = append(l.runs, textRun{
		chain:    chain,
		text:     s,
		x:        l.x,
		y:        l.y,
		em:       em,
		font:     font,
		vertical: vertical,
		extents:  extents,
	})
	if vertical {
		l.y += extents.XAdvance
	} else {
		l.x += extents.XAdvance
		l.y += extents.YAdvance
	}
}

// baselineShift returns the vertical offset of a run, positive values moving it down.
func (p *painter) baselineShift(e dom.Element, em float64) float64 {
	switch shift, _ := p.own(e, "baseline-shift"); shift {
	case "", "baseline", "inherit":
		return 0.0
	case "sub":
		return em / 2.0
	case "super":
		return -em / 2.0
	default:
		return -p.length(e, shift, em, em)
	}
}

// text lays out and draws a text element. The text-anchor of the element shifts all its runs together.
func (p *painter) text(ctx canvas.Context, box canvas.Rect, e dom.Element, em float64) []dom.Element {
	if !p.displayed(e) {
		return nil
	}
	em = p.fontSize(e, em)

	ctx.Save()
	defer ctx.Restore()
	p.transform(ctx, e, box, em)

	l := &textLayout{}
	p.layout(ctx, l, e, nil, box, em, false)
	if len(l.runs) == 0 {
		return nil
	}
	x0, x1 := math.Inf(1), math.Inf(-1)
	for _, run := range l.runs {
		x0 = math.Min(x0, run.x)
		x1 = math.Max(x1, run.x+run.extents.XAdvance)
	}
	switch p.attr(e, "text-anchor", "start") {
	case "middle":
		ctx.Translate(-(x1-x0)/2.0, 0.0)
	case "end":
		ctx.Translate(-(x1 - x0), 0.0)
	}

	var chain []dom.Element
	for _, run := range l.runs {
		if p.drawRun(ctx, box, run) {
			chain = run.chain
		}
	}
	return chain
}

func (p *painter) drawRun(ctx canvas.Context, box canvas.Rect, run textRun) bool {
	e := run.chain[len(run.chain)-1]
	shift := 0.0
	for _, elem := range run.chain[1:] {
		shift += p.baselineShift(elem, run.em)
	}

	ctx.Save()
	defer ctx.Restore()
	run.font.apply(ctx)
	ctx.NewPath()
	if run.vertical {
		ctx.Translate(run.x, run.y)
		ctx.Rotate(math.Pi / 2.0)
		ctx.MoveTo(0.0, 0.0)
		ctx.RelMoveTo(0.0, shift)
	} else {
		ctx.MoveTo(run.x, run.y)
		ctx.RelMoveTo(0.0, shift)
	}
	ctx.TextPath(run.text)
	hit := p.paint(ctx, e, box, run.em)
	ctx.NewPath()
	return hit
}
