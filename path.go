package canvas

import (
	"math"
	"strconv"
	"strings"
)

// Tolerance is the maximum deviation from the original path in device units when flattening curves.
var Tolerance = 0.01

// PathCmd is a path segment command.
type PathCmd int

// see PathCmd
const (
	MoveToCmd PathCmd = iota
	LineToCmd
	CubeToCmd
	CloseCmd
)

func (cmd PathCmd) String() string {
	switch cmd {
	case MoveToCmd:
		return "M"
	case LineToCmd:
		return "L"
	case CubeToCmd:
		return "C"
	case CloseCmd:
		return "z"
	}
	return "?"
}

// Segment is a single path command with its control and end points. MoveTo, LineTo and Close carry one point,
// CubeTo carries two control points and the end point.
type Segment struct {
	Cmd PathCmd
	P   [3]Point
}

// End returns the end point of the segment.
func (s Segment) End() Point {
	if s.Cmd == CubeToCmd {
		return s.P[2]
	}
	return s.P[0]
}

// Path is a collection of MoveTo, LineTo, CubeTo and Close path commands. Arcs are converted to cubic Béziers
// when added. The zero value is an empty path.
type Path struct {
	segs  []Segment
	start Point // start of the current subpath
}

// Empty returns true if p is an empty path or consists of only MoveTos and Closes.
func (p *Path) Empty() bool {
	for _, seg := range p.segs {
		if seg.Cmd != MoveToCmd && seg.Cmd != CloseCmd {
			return false
		}
	}
	return true
}

// Segments returns the path segments.
func (p *Path) Segments() []Segment {
	return p.segs
}

// Len returns the number of segments.
func (p *Path) Len() int {
	return len(p.segs)
}

// Copy returns a copy of p.
func (p *Path) Copy() *Path {
	q := &Path{start: p.start}
	q.segs = append(make([]Segment, 0, len(p.segs)), p.segs...)
	return q
}

// Reset clears the path.
func (p *Path) Reset() {
	p.segs = p.segs[:0]
	p.start = Point{}
}

// CurrentPoint returns the end point of the last segment and whether there is one.
func (p *Path) CurrentPoint() (Point, bool) {
	if len(p.segs) == 0 {
		return Point{}, false
	}
	return p.segs[len(p.segs)-1].End(), true
}

// MoveTo starts a new subpath at (x,y).
func (p *Path) MoveTo(x, y float64) {
	pt := Point{x, y}
	if 0 < len(p.segs) && p.segs[len(p.segs)-1].Cmd == MoveToCmd {
		p.segs[len(p.segs)-1].P[0] = pt
	} else {
		p.segs = append(p.segs, Segment{Cmd: MoveToCmd, P: [3]Point{pt}})
	}
	p.start = pt
}

// LineTo adds a linear segment to (x,y). Without a current point it acts as MoveTo.
func (p *Path) LineTo(x, y float64) {
	if len(p.segs) == 0 {
		p.MoveTo(x, y)
		return
	} else if p.segs[len(p.segs)-1].Cmd == CloseCmd {
		p.MoveTo(p.start.X, p.start.Y)
	}
	p.segs = append(p.segs, Segment{Cmd: LineToCmd, P: [3]Point{{x, y}}})
}

// CubeTo adds a cubic Bézier segment with control points (x1,y1) and (x2,y2) ending at (x,y).
func (p *Path) CubeTo(x1, y1, x2, y2, x, y float64) {
	if len(p.segs) == 0 {
		p.MoveTo(x1, y1)
	} else if p.segs[len(p.segs)-1].Cmd == CloseCmd {
		p.MoveTo(p.start.X, p.start.Y)
	}
	p.segs = append(p.segs, Segment{Cmd: CubeToCmd, P: [3]Point{{x1, y1}, {x2, y2}, {x, y}}})
}

// Close closes the current subpath with a linear segment back to its start.
func (p *Path) Close() {
	if len(p.segs) == 0 || p.segs[len(p.segs)-1].Cmd == CloseCmd {
		return
	}
	p.segs = append(p.segs, Segment{Cmd: CloseCmd, P: [3]Point{p.start}})
}

// Arc adds a circular arc centered at (cx,cy) with radius r from angle theta0 to theta1 in radians. When
// negative is false the arc sweeps in the direction of increasing angles, otherwise of decreasing angles. A line
// is added from the current point to the start of the arc.
func (p *Path) Arc(cx, cy, r, theta0, theta1 float64, negative bool) {
	if !negative && theta1 < theta0 {
		theta1 = theta0 + angleNorm(theta1-theta0)
	} else if negative && theta0 < theta1 {
		theta1 = theta0 - angleNorm(theta0-theta1)
	}

	start := Point{cx + r*math.Cos(theta0), cy + r*math.Sin(theta0)}
	if len(p.segs) == 0 || p.segs[len(p.segs)-1].Cmd == CloseCmd {
		p.MoveTo(start.X, start.Y)
	} else {
		p.LineTo(start.X, start.Y)
	}
	if r <= 0.0 || equal(theta0, theta1) {
		return
	}

	// split into segments of at most a quarter circle
	n := int(math.Ceil(math.Abs(theta1-theta0)/(math.Pi/2.0) - 1e-9))
	dtheta := (theta1 - theta0) / float64(n)
	k := 4.0 / 3.0 * math.Tan(dtheta/4.0)
	for i := 0; i < n; i++ {
		a0 := theta0 + float64(i)*dtheta
		a1 := a0 + dtheta
		sin0, cos0 := math.Sincos(a0)
		sin1, cos1 := math.Sincos(a1)
		p.CubeTo(
			cx+r*(cos0-k*sin0), cy+r*(sin0+k*cos0),
			cx+r*(cos1+k*sin1), cy+r*(sin1-k*cos1),
			cx+r*cos1, cy+r*sin1,
		)
	}
}

// Append appends the segments of q to p.
func (p *Path) Append(q *Path) {
	for _, seg := range q.segs {
		switch seg.Cmd {
		case MoveToCmd:
			p.MoveTo(seg.P[0].X, seg.P[0].Y)
		case LineToCmd:
			p.LineTo(seg.P[0].X, seg.P[0].Y)
		case CubeToCmd:
			p.CubeTo(seg.P[0].X, seg.P[0].Y, seg.P[1].X, seg.P[1].Y, seg.P[2].X, seg.P[2].Y)
		case CloseCmd:
			p.Close()
		}
	}
}

// Transform returns a copy of the path with all points transformed by m.
func (p *Path) Transform(m Matrix) *Path {
	q := p.Copy()
	for i := range q.segs {
		n := 1
		if q.segs[i].Cmd == CubeToCmd {
			n = 3
		}
		for j := 0; j < n; j++ {
			q.segs[i].P[j] = m.Dot(q.segs[i].P[j])
		}
	}
	q.start = m.Dot(q.start)
	return q
}

// Polyline is a flattened subpath.
type Polyline struct {
	Points []Point
	Closed bool
}

// Flatten converts all curves to linear segments with a maximum deviation of tolerance.
func (p *Path) Flatten(tolerance float64) []Polyline {
	var polys []Polyline
	var cur *Polyline
	var last Point
	for _, seg := range p.segs {
		switch seg.Cmd {
		case MoveToCmd:
			polys = append(polys, Polyline{Points: []Point{seg.P[0]}})
			cur = &polys[len(polys)-1]
			last = seg.P[0]
		case LineToCmd:
			cur.Points = append(cur.Points, seg.P[0])
			last = seg.P[0]
		case CubeToCmd:
			cur.Points = flattenCube(cur.Points, last, seg.P[0], seg.P[1], seg.P[2], tolerance)
			last = seg.P[2]
		case CloseCmd:
			cur.Closed = true
			last = seg.P[0]
		}
	}
	return polys
}

func flattenCube(points []Point, p0, p1, p2, p3 Point, tolerance float64) []Point {
	// the second difference bounds the deviation of the chord from the curve
	dd := math.Max(p0.Sub(p1.Mul(2.0)).Add(p2).Length(), p1.Sub(p2.Mul(2.0)).Add(p3).Length())
	n := int(math.Ceil(math.Sqrt(0.75 * dd / tolerance)))
	if n < 1 {
		n = 1
	} else if 1000 < n {
		n = 1000
	}
	for i := 1; i <= n; i++ {
		points = append(points, cubeAt(p0, p1, p2, p3, float64(i)/float64(n)))
	}
	return points
}

func cubeAt(p0, p1, p2, p3 Point, t float64) Point {
	mt := 1.0 - t
	a := mt * mt * mt
	b := 3.0 * mt * mt * t
	c := 3.0 * mt * t * t
	d := t * t * t
	return Point{
		a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// Bounds returns the exact bounding box of the path, curves included.
func (p *Path) Bounds() Rect {
	first := true
	var x0, y0, x1, y1 float64
	add := func(q Point) {
		if first {
			x0, y0, x1, y1 = q.X, q.Y, q.X, q.Y
			first = false
			return
		}
		x0, y0 = math.Min(x0, q.X), math.Min(y0, q.Y)
		x1, y1 = math.Max(x1, q.X), math.Max(y1, q.Y)
	}
	for _, poly := range p.Flatten(Tolerance / 10.0) {
		if len(poly.Points) < 2 {
			continue
		}
		for _, q := range poly.Points {
			add(q)
		}
	}
	if first {
		return Rect{}
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// maxLengthSteps bounds the number of chords a cubic Bézier is measured with.
const maxLengthSteps = 1000

// Length returns the length of the path. Cubic Béziers are measured by chords, in a number of steps proportional
// to the length of their control polygon.
func (p *Path) Length() float64 {
	length := 0.0
	var last Point
	for _, seg := range p.segs {
		switch seg.Cmd {
		case MoveToCmd:
			last = seg.P[0]
		case LineToCmd, CloseCmd:
			length += seg.P[0].Sub(last).Length()
			last = seg.P[0]
		case CubeToCmd:
			ctrl := seg.P[0].Sub(last).Length() + seg.P[1].Sub(seg.P[0]).Length() + seg.P[2].Sub(seg.P[1]).Length()
			steps := maxLengthSteps
			if 3.0*ctrl < float64(maxLengthSteps-2) {
				steps = 2 + int(3.0*ctrl)
			}
			cube := 0.0
			prev := last
			for i := 1; i <= steps; i++ {
				q := cubeAt(last, seg.P[0], seg.P[1], seg.P[2], float64(i)/float64(steps))
				cube += q.Sub(prev).Length()
				prev = q
			}
			length += cube
			last = seg.P[2]
		}
	}
	return length
}

// Contains returns true if the point is inside the filled path, using the given fill rule.
func (p *Path) Contains(x, y float64, rule FillRule) bool {
	winding := 0
	for _, poly := range p.Flatten(Tolerance) {
		pts := poly.Points
		n := len(pts)
		if n < 2 {
			continue
		}
		// subpaths are implicitly closed for filling
		for i := 0; i < n; i++ {
			a, b := pts[i], pts[(i+1)%n]
			if a.Y <= y {
				if y < b.Y && 0.0 < isLeft(a, b, x, y) {
					winding++
				}
			} else if b.Y <= y && isLeft(a, b, x, y) < 0.0 {
				winding--
			}
		}
	}
	if rule == EvenOdd {
		return winding%2 != 0
	}
	return winding != 0
}

func isLeft(a, b Point, x, y float64) float64 {
	return (b.X-a.X)*(y-a.Y) - (x-a.X)*(b.Y-a.Y)
}

// StrokeContains returns true if the point lies within halfWidth of the path outline. Joins and caps are
// approximated by round ones.
func (p *Path) StrokeContains(x, y, halfWidth float64) bool {
	q := Point{x, y}
	for _, poly := range p.Flatten(Tolerance) {
		pts := poly.Points
		if len(pts) == 1 {
			if pts[0].Sub(q).Length() <= halfWidth {
				return true
			}
			continue
		}
		for i := 1; i < len(pts); i++ {
			if distSegment(q, pts[i-1], pts[i]) <= halfWidth {
				return true
			}
		}
		if poly.Closed && distSegment(q, pts[len(pts)-1], pts[0]) <= halfWidth {
			return true
		}
	}
	return false
}

func distSegment(q, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0.0 {
		return q.Sub(a).Length()
	}
	t := math.Max(0.0, math.Min(1.0, q.Sub(a).Dot(ab)/l2))
	return q.Sub(a.Add(ab.Mul(t))).Length()
}

// String returns a string that represents the path similar to the SVG path data format.
func (p *Path) String() string {
	sb := strings.Builder{}
	for _, seg := range p.segs {
		if sb.Len() != 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(seg.Cmd.String())
		if seg.Cmd == CloseCmd {
			continue
		}
		n := 1
		if seg.Cmd == CubeToCmd {
			n = 3
		}
		for j := 0; j < n; j++ {
			sb.WriteString(num(seg.P[j].X))
			sb.WriteString(" ")
			sb.WriteString(num(seg.P[j].Y))
			if j+1 < n {
				sb.WriteString(" ")
			}
		}
	}
	return sb.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
