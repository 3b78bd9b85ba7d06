package svg

import (
	"fmt"
	"math"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
)

const pathCommands = "MmLlHhVvCcSsQqTtAaZz"

// pathScanner reads path data, skipping whitespace and commas between items.
type pathScanner struct {
	s   string
	pos int
}

func (sc *pathScanner) skip() {
	for sc.pos < len(sc.s) {
		switch sc.s[sc.pos] {
		case ' ', '\t', '\r', '\n', '\f', ',':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *pathScanner) done() bool {
	sc.skip()
	return len(sc.s) <= sc.pos
}

func (sc *pathScanner) command() (byte, bool) {
	sc.skip()
	if sc.pos < len(sc.s) && strings.IndexByte(pathCommands, sc.s[sc.pos]) != -1 {
		sc.pos++
		return sc.s[sc.pos-1], true
	}
	return 0, false
}

func (sc *pathScanner) number() (float64, error) {
	sc.skip()
	f, n := css.ParseNumber(sc.s[sc.pos:])
	if n == 0 {
		return 0.0, fmt.Errorf("expected number at %q", sc.rest())
	}
	sc.pos += n
	return f, nil
}

func (sc *pathScanner) numbers(fs []float64) error {
	for i := range fs {
		var err error
		if fs[i], err = sc.number(); err != nil {
			return err
		}
	}
	return nil
}

// flag reads an arc flag, which is a single 0 or 1 that needs no separator.
func (sc *pathScanner) flag() (bool, error) {
	sc.skip()
	if sc.pos < len(sc.s) && (sc.s[sc.pos] == '0' || sc.s[sc.pos] == '1') {
		sc.pos++
		return sc.s[sc.pos-1] == '1', nil
	}
	return false, fmt.Errorf("expected flag at %q", sc.rest())
}

// skipCommand advances to the next command letter.
func (sc *pathScanner) skipCommand() {
	for sc.pos < len(sc.s) && strings.IndexByte(pathCommands, sc.s[sc.pos]) == -1 {
		sc.pos++
	}
}

func (sc *pathScanner) rest() string {
	if 10 < len(sc.s)-sc.pos {
		return sc.s[sc.pos:sc.pos+10] + "..."
	}
	return sc.s[sc.pos:]
}

// drawPath adds the path data d to the context. Malformed commands are reported and skipped up to the next
// command.
func (p *painter) drawPath(ctx canvas.Context, e dom.Element, d string) {
	sc := &pathScanner{s: d}
	var cmd, prev byte
	var cur, start, ctrl canvas.Point
	for !sc.done() {
		if c, ok := sc.command(); ok {
			cmd = c
		} else if cmd == 0 || cmd == 'Z' || cmd == 'z' {
			p.warn(format.ParseWarning, e, "path data: expected command at %q", sc.rest())
			sc.pos++
			sc.skipCommand()
			continue
		} else if cmd == 'M' {
			cmd = 'L'
		} else if cmd == 'm' {
			cmd = 'l'
		}

		var origin canvas.Point
		if 'a' <= cmd && cmd <= 'z' {
			origin = cur
		}
		var err error
		switch cmd {
		case 'M', 'm':
			var a [2]float64
			if err = sc.numbers(a[:]); err == nil {
				cur = canvas.Point{X: origin.X + a[0], Y: origin.Y + a[1]}
				start = cur
				ctx.MoveTo(cur.X, cur.Y)
			}
		case 'L', 'l':
			var a [2]float64
			if err = sc.numbers(a[:]); err == nil {
				cur = canvas.Point{X: origin.X + a[0], Y: origin.Y + a[1]}
				ctx.LineTo(cur.X, cur.Y)
			}
		case 'H', 'h':
			var x float64
			if x, err = sc.number(); err == nil {
				cur.X = origin.X + x
				ctx.LineTo(cur.X, cur.Y)
			}
		case 'V', 'v':
			var y float64
			if y, err = sc.number(); err == nil {
				cur.Y = origin.Y + y
				ctx.LineTo(cur.X, cur.Y)
			}
		case 'C', 'c', 'S', 's':
			var c1 canvas.Point
			var a [4]float64
			if cmd == 'C' || cmd == 'c' {
				var b [2]float64
				if err = sc.numbers(b[:]); err != nil {
					break
				}
				c1 = canvas.Point{X: origin.X + b[0], Y: origin.Y + b[1]}
			} else if strings.IndexByte("CcSs", prev) != -1 {
				c1 = cur.Mul(2.0).Sub(ctrl)
			} else {
				c1 = cur
			}
			if err = sc.numbers(a[:]); err == nil {
				ctrl = canvas.Point{X: origin.X + a[0], Y: origin.Y + a[1]}
				cur = canvas.Point{X: origin.X + a[2], Y: origin.Y + a[3]}
				ctx.CurveTo(c1.X, c1.Y, ctrl.X, ctrl.Y, cur.X, cur.Y)
			}
		case 'Q', 'q', 'T', 't':
			var q canvas.Point
			var a [2]float64
			if cmd == 'Q' || cmd == 'q' {
				if err = sc.numbers(a[:]); err != nil {
					break
				}
				q = canvas.Point{X: origin.X + a[0], Y: origin.Y + a[1]}
			} else if strings.IndexByte("QqTt", prev) != -1 {
				q = cur.Mul(2.0).Sub(ctrl)
			} else {
				q = cur
			}
			if err = sc.numbers(a[:]); err == nil {
				end := canvas.Point{X: origin.X + a[0], Y: origin.Y + a[1]}
				c1 := cur.Add(q.Sub(cur).Mul(2.0 / 3.0))
				c2 := end.Add(q.Sub(end).Mul(2.0 / 3.0))
				ctx.CurveTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
				ctrl, cur = q, end
			}
		case 'A', 'a':
			var radii [3]float64
			var large, sweep bool
			var a [2]float64
			if err = sc.numbers(radii[:]); err != nil {
				break
			} else if large, err = sc.flag(); err != nil {
				break
			} else if sweep, err = sc.flag(); err != nil {
				break
			} else if err = sc.numbers(a[:]); err != nil {
				break
			}
			end := canvas.Point{X: origin.X + a[0], Y: origin.Y + a[1]}
			drawArc(ctx, cur, end, radii[0], radii[1], radii[2], large, sweep)
			cur = end
		case 'Z', 'z':
			ctx.ClosePath()
			cur = start
		}
		if err != nil {
			p.warn(format.ParseWarning, e, "path data %c: %v", cmd, err)
			sc.skipCommand()
			cmd = 0
		}
		prev = cmd
	}
}

// drawArc adds an elliptical arc from p1 to p2 with radii rx and ry, rotated by phi degrees. The center is found
// as described by the SVG implementation notes, and radii too small to span the chord are enlarged uniformly. The
// arc is drawn as a unit circle in a rotated and scaled user space.
func drawArc(ctx canvas.Context, p1, p2 canvas.Point, rx, ry, phi float64, large, sweep bool) {
	if rx == 0.0 || ry == 0.0 {
		ctx.LineTo(p2.X, p2.Y)
		return
	} else if p1.Equals(p2) {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	sinphi, cosphi := math.Sincos(canvas.DegToRad(phi))

	// midpoint of the chord in the rotated frame
	dx, dy := (p1.X-p2.X)/2.0, (p1.Y-p2.Y)/2.0
	x1 := cosphi*dx + sinphi*dy
	y1 := -sinphi*dx + cosphi*dy

	if lambda := x1*x1/(rx*rx) + y1*y1/(ry*ry); 1.0 < lambda {
		rx *= math.Sqrt(lambda)
		ry *= math.Sqrt(lambda)
	}

	num := rx*rx*ry*ry - rx*rx*y1*y1 - ry*ry*x1*x1
	den := rx*rx*y1*y1 + ry*ry*x1*x1
	coef := 0.0
	if den != 0.0 && 0.0 < num {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cx1 := coef * rx * y1 / ry
	cy1 := -coef * ry * x1 / rx
	cx := cosphi*cx1 - sinphi*cy1 + (p1.X+p2.X)/2.0
	cy := sinphi*cx1 + cosphi*cy1 + (p1.Y+p2.Y)/2.0

	theta0 := math.Atan2((y1-cy1)/ry, (x1-cx1)/rx)
	theta1 := math.Atan2((-y1-cy1)/ry, (-x1-cx1)/rx)
	dtheta := theta1 - theta0
	if !sweep && 0.0 < dtheta {
		dtheta -= 2.0 * math.Pi
	} else if sweep && dtheta < 0.0 {
		dtheta += 2.0 * math.Pi
	}

	ctx.Save()
	ctx.Translate(cx, cy)
	ctx.Rotate(canvas.DegToRad(phi))
	ctx.Scale(rx, ry)
	if sweep {
		ctx.Arc(0.0, 0.0, 1.0, theta0, theta0+dtheta)
	} else {
		ctx.ArcNegative(0.0, 0.0, 1.0, theta0, theta0+dtheta)
	}
	ctx.Restore()
}

// ellipseArc adds an arc of the ellipse centered at (cx,cy) with radii rx and ry.
func ellipseArc(ctx canvas.Context, cx, cy, rx, ry, theta0, theta1 float64) {
	ctx.Save()
	ctx.Translate(cx, cy)
	ctx.Scale(rx, ry)
	ctx.Arc(0.0, 0.0, 1.0, theta0, theta1)
	ctx.Restore()
}

func roundedRect(ctx canvas.Context, x, y, w, h, rx, ry float64) {
	ctx.MoveTo(x+rx, y)
	ctx.LineTo(x+w-rx, y)
	ellipseArc(ctx, x+w-rx, y+ry, rx, ry, -math.Pi/2.0, 0.0)
	ctx.LineTo(x+w, y+h-ry)
	ellipseArc(ctx, x+w-rx, y+h-ry, rx, ry, 0.0, math.Pi/2.0)
	ctx.LineTo(x+rx, y+h)
	ellipseArc(ctx, x+rx, y+h-ry, rx, ry, math.Pi/2.0, math.Pi)
	ctx.LineTo(x, y+ry)
	ellipseArc(ctx, x+rx, y+ry, rx, ry, math.Pi, 3.0*math.Pi/2.0)
	ctx.ClosePath()
}

// points parses the points attribute of polygons and polylines into coordinate pairs.
func (p *painter) points(e dom.Element, s string, box canvas.Rect, em float64) []canvas.Point {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	if len(fields)%2 == 1 {
		p.warn(format.ParseWarning, e, "odd number of coordinates in points")
		fields = fields[:len(fields)-1]
	}
	points := make([]canvas.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		points = append(points, canvas.Point{
			X: p.length(e, fields[i], box.W, em),
			Y: p.length(e, fields[i+1], box.H, em),
		})
	}
	return points
}

// outline adds the path of a basic shape to the context. It returns false if the shape has nothing to draw.
func (p *painter) outline(ctx canvas.Context, e dom.Element, box canvas.Rect, em float64) bool {
	_, local := dom.Split(e.Tag())
	switch local {
	case "rect":
		x := p.attrLength(e, "x", box.W, em)
		y := p.attrLength(e, "y", box.H, em)
		sw, okW := e.Attr("width")
		sh, okH := e.Attr("height")
		if !okW || !okH {
			p.warn(format.ParseWarning, e, "rect without width or height")
			return false
		}
		w, h := p.length(e, sw, box.W, em), p.length(e, sh, box.H, em)
		if w <= 0.0 || h <= 0.0 {
			return false
		}
		srx, okRx := e.Attr("rx")
		sry, okRy := e.Attr("ry")
		if !okRx {
			srx = sry
		} else if !okRy {
			sry = srx
		}
		rx := math.Min(p.length(e, srx, box.W, em), w/2.0)
		ry := math.Min(p.length(e, sry, box.H, em), h/2.0)
		if 0.0 < rx && 0.0 < ry {
			roundedRect(ctx, x, y, w, h, rx, ry)
		} else {
			ctx.Rectangle(x, y, w, h)
		}
	case "circle":
		r := p.attrLength(e, "r", math.Sqrt((box.W*box.W+box.H*box.H)/2.0), em)
		if r <= 0.0 {
			return false
		}
		cx := p.attrLength(e, "cx", box.W, em)
		cy := p.attrLength(e, "cy", box.H, em)
		ctx.MoveTo(cx+r, cy)
		ctx.Arc(cx, cy, r, 0.0, 2.0*math.Pi)
		ctx.ClosePath()
	case "ellipse":
		rx := p.attrLength(e, "rx", box.W, em)
		ry := p.attrLength(e, "ry", box.H, em)
		if rx <= 0.0 || ry <= 0.0 {
			return false
		}
		cx := p.attrLength(e, "cx", box.W, em)
		cy := p.attrLength(e, "cy", box.H, em)
		ctx.MoveTo(cx+rx, cy)
		ellipseArc(ctx, cx, cy, rx, ry, 0.0, 2.0*math.Pi)
		ctx.ClosePath()
	case "line":
		ctx.MoveTo(p.attrLength(e, "x1", box.W, em), p.attrLength(e, "y1", box.H, em))
		ctx.LineTo(p.attrLength(e, "x2", box.W, em), p.attrLength(e, "y2", box.H, em))
	case "polygon", "polyline":
		s, _ := e.Attr("points")
		points := p.points(e, s, box, em)
		if len(points) == 0 {
			return false
		}
		x := p.attrLength(e, "x", box.W, em)
		y := p.attrLength(e, "y", box.H, em)
		for i, pt := range points {
			if i == 0 {
				ctx.MoveTo(x+pt.X, y+pt.Y)
			} else {
				ctx.LineTo(x+pt.X, y+pt.Y)
			}
		}
		if local == "polygon" {
			ctx.ClosePath()
		}
	case "path":
		d, ok := e.Attr("d")
		if !ok {
			return false
		}
		p.drawPath(ctx, e, d)
	default:
		return false
	}
	return true
}
