package canvas

import (
	"image"
	"image/color"
	"math"
)

// FillRule is the algorithm to specify which area is to be filled and which not, in particular when multiple
// subpaths overlap.
type FillRule int

// see FillRule
const (
	NonZero FillRule = iota
	EvenOdd
)

func (fillRule FillRule) String() string {
	switch fillRule {
	case NonZero:
		return "NonZero"
	case EvenOdd:
		return "EvenOdd"
	}
	return "FillRule(?)"
}

// LineCap is the shape at the open ends of a stroke.
type LineCap int

// see LineCap
const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

// LineJoin is the shape where two stroke segments meet.
type LineJoin int

// see LineJoin
const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

// Extend specifies how a gradient or pattern is painted outside of its defined area.
type Extend int

// see Extend
const (
	ExtendPad Extend = iota
	ExtendRepeat
	ExtendReflect
	ExtendNone
)

////////////////////////////////////////////////////////////////

// Paint is the source of a fill or stroke operation, one of Color, *Gradient or *Pattern.
type Paint interface {
	// At returns the color of the paint at point p in pattern space.
	At(p Point) color.RGBA
}

// Color is a non-premultiplied RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// Transparent is the fully transparent color.
var Transparent = Color{}

// Black is the opaque black color.
var Black = Color{0.0, 0.0, 0.0, 1.0}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	rgba := c.toRGBA()
	return rgba.RGBA()
}

// At implements Paint.
func (c Color) At(Point) color.RGBA {
	return c.toRGBA()
}

func (c Color) toRGBA() color.RGBA {
	a := clamp01(c.A)
	return color.RGBA{
		uint8(clamp01(c.R)*a*255.0 + 0.5),
		uint8(clamp01(c.G)*a*255.0 + 0.5),
		uint8(clamp01(c.B)*a*255.0 + 0.5),
		uint8(a*255.0 + 0.5),
	}
}

func clamp01(f float64) float64 {
	if f < 0.0 {
		return 0.0
	} else if 1.0 < f {
		return 1.0
	}
	return f
}

// Stop is a color stop of a gradient.
type Stop struct {
	Offset float64
	Color  Color
}

// GradientKind distinguishes linear and radial gradients.
type GradientKind int

// see GradientKind
const (
	Linear GradientKind = iota
	Radial
)

// Gradient is a linear or radial color gradient. Linear gradients run from (X0,Y0) to (X1,Y1), radial gradients
// from the focal circle at (X0,Y0) with radius R0 to the circle at (X1,Y1) with radius R1. Matrix maps user space
// to gradient space.
type Gradient struct {
	Kind       GradientKind
	X0, Y0, R0 float64
	X1, Y1, R1 float64
	Stops      []Stop
	Matrix     Matrix
	Extend     Extend
}

// NewLinearGradient returns a linear gradient from (x0,y0) to (x1,y1).
func NewLinearGradient(x0, y0, x1, y1 float64) *Gradient {
	return &Gradient{Kind: Linear, X0: x0, Y0: y0, X1: x1, Y1: y1, Matrix: Identity}
}

// NewRadialGradient returns a radial gradient between the circles (x0,y0,r0) and (x1,y1,r1).
func NewRadialGradient(x0, y0, r0, x1, y1, r1 float64) *Gradient {
	return &Gradient{Kind: Radial, X0: x0, Y0: y0, R0: r0, X1: x1, Y1: y1, R1: r1, Matrix: Identity}
}

// AddColorStop adds a color stop at offset, stops must be added in order.
func (g *Gradient) AddColorStop(offset float64, c Color) {
	g.Stops = append(g.Stops, Stop{offset, c})
}

// At implements Paint.
func (g *Gradient) At(p Point) color.RGBA {
	if len(g.Stops) == 0 {
		return color.RGBA{}
	}
	p = g.Matrix.Dot(p)

	var t float64
	if g.Kind == Linear {
		d := Point{g.X1 - g.X0, g.Y1 - g.Y0}
		if d.IsZero() {
			return g.Stops[len(g.Stops)-1].Color.toRGBA()
		}
		t = p.Sub(Point{g.X0, g.Y0}).Dot(d) / d.Dot(d)
	} else {
		var ok bool
		if t, ok = g.radialT(p); !ok {
			return color.RGBA{}
		}
	}

	switch g.Extend {
	case ExtendRepeat:
		t -= math.Floor(t)
	case ExtendReflect:
		t = math.Abs(t - 2.0*math.Floor(t/2.0+0.5))
	case ExtendNone:
		if t < 0.0 || 1.0 < t {
			return color.RGBA{}
		}
	}
	return g.colorAt(t).toRGBA()
}

// radialT solves for the largest t such that p lies on the circle interpolated between both circles with a
// non-negative radius.
func (g *Gradient) radialT(p Point) (float64, bool) {
	cdx, cdy, dr := g.X1-g.X0, g.Y1-g.Y0, g.R1-g.R0
	pdx, pdy := p.X-g.X0, p.Y-g.Y0
	a := cdx*cdx + cdy*cdy - dr*dr
	b := pdx*cdx + pdy*cdy + g.R0*dr
	c := pdx*pdx + pdy*pdy - g.R0*g.R0
	if math.Abs(a) < Epsilon {
		if b == 0.0 {
			return 0.0, false
		}
		t := c / (2.0 * b)
		return t, 0.0 <= g.R0+t*dr
	}
	disc := b*b - a*c
	if disc < 0.0 {
		return 0.0, false
	}
	sq := math.Sqrt(disc)
	t1, t2 := (b+sq)/a, (b-sq)/a
	if t1 < t2 {
		t1, t2 = t2, t1
	}
	if 0.0 <= g.R0+t1*dr {
		return t1, true
	} else if 0.0 <= g.R0+t2*dr {
		return t2, true
	}
	return 0.0, false
}

func (g *Gradient) colorAt(t float64) Color {
	if t <= g.Stops[0].Offset {
		return g.Stops[0].Color
	}
	for i := 1; i < len(g.Stops); i++ {
		s0, s1 := g.Stops[i-1], g.Stops[i]
		if t <= s1.Offset {
			if s1.Offset-s0.Offset < Epsilon {
				return s1.Color
			}
			f := (t - s0.Offset) / (s1.Offset - s0.Offset)
			return Color{
				s0.Color.R + f*(s1.Color.R-s0.Color.R),
				s0.Color.G + f*(s1.Color.G-s0.Color.G),
				s0.Color.B + f*(s1.Color.B-s0.Color.B),
				s0.Color.A + f*(s1.Color.A-s0.Color.A),
			}
		}
	}
	return g.Stops[len(g.Stops)-1].Color
}

// Pattern paints an image. Matrix maps user space to image pixel space.
type Pattern struct {
	Image  image.Image
	Matrix Matrix
	Extend Extend
}

// NewPattern returns a pattern painting img with its origin at the user space origin.
func NewPattern(img image.Image) *Pattern {
	return &Pattern{Image: img, Matrix: Identity, Extend: ExtendNone}
}

// At implements Paint.
func (p *Pattern) At(q Point) color.RGBA {
	if p.Image == nil {
		return color.RGBA{}
	}
	q = p.Matrix.Dot(q)
	b := p.Image.Bounds()
	x, y := int(math.Floor(q.X)), int(math.Floor(q.Y))
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return color.RGBA{}
	}
	switch p.Extend {
	case ExtendRepeat:
		x, y = mod(x, w), mod(y, h)
	case ExtendReflect:
		x, y = reflect(x, w), reflect(y, h)
	case ExtendPad:
		x, y = min(max(x, 0), w-1), min(max(y, 0), h-1)
	default:
		if x < 0 || w <= x || y < 0 || h <= y {
			return color.RGBA{}
		}
	}
	return color.RGBAModel.Convert(p.Image.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

func reflect(a, n int) int {
	a = mod(a, 2*n)
	if n <= a {
		a = 2*n - 1 - a
	}
	return a
}

// Source is a paint locked to the transformation that was current when it was set. Matrix maps user space at that
// time to device space.
type Source struct {
	Paint  Paint
	Matrix Matrix
}

// At returns the color at device point p.
func (s Source) At(p Point) color.RGBA {
	if s.Paint == nil {
		return color.RGBA{}
	}
	return s.Paint.At(s.Matrix.Inv().Dot(p))
}

// IsSolid returns the color if the source is a plain color.
func (s Source) IsSolid() (Color, bool) {
	c, ok := s.Paint.(Color)
	return c, ok
}

// StrokeStyle holds the stroke properties in user space.
type StrokeStyle struct {
	Width      float64
	Cap        LineCap
	Join       LineJoin
	MiterLimit float64
	Dashes     []float64
	DashOffset float64
}

// ClipPath is a clipping region in device space.
type ClipPath struct {
	Path *Path
	Rule FillRule
}

// DrawState is the graphics state passed along with each drawing operation.
type DrawState struct {
	Matrix   Matrix // user to device space
	Source   Source
	FillRule FillRule
	Stroke   StrokeStyle
	Clip     []ClipPath
}

// InClip returns true if the device point lies in all clip paths.
func (st *DrawState) InClip(p Point) bool {
	for _, clip := range st.Clip {
		if !clip.Path.Contains(p.X, p.Y, clip.Rule) {
			return false
		}
	}
	return true
}

// Renderer is the backend of a Canvas. Paths are given in device space.
type Renderer interface {
	Size() (int, int)
	Fill(path *Path, st *DrawState)
	Stroke(path *Path, st *DrawState)
	Tag(begin bool, name, attributes string)

	// NewSimilar returns an empty renderer of the same kind used for offscreen drawing.
	NewSimilar(width, height int) Renderer

	// Image returns the drawn content, or nil if the renderer does not produce pixels.
	Image() image.Image
}
