package canvas

import (
	"image"
	"math"
	"strings"
)

type state struct {
	m        Matrix
	source   Source
	fillRule FillRule
	stroke   StrokeStyle
	clip     []ClipPath

	fontFamily string
	fontSlant  FontSlant
	fontWeight FontWeight
	fontSize   float64
}

// Canvas is a Context that builds paths and hands drawing operations to a Renderer.
type Canvas struct {
	r      Renderer
	Fonts  *FontSet
	states []state
	state
	path *Path // in device space
}

// New returns a canvas drawing to the given renderer, using the default font set.
func New(r Renderer) *Canvas {
	return &Canvas{
		r:     r,
		Fonts: DefaultFontSet(),
		state: state{
			m:      Identity,
			source: Source{Black, Identity},
			stroke: StrokeStyle{
				Width:      2.0,
				MiterLimit: 10.0,
			},
			fontFamily: "sans-serif",
			fontSize:   10.0,
		},
		path: &Path{},
	}
}

// Renderer returns the renderer backing the canvas.
func (c *Canvas) Renderer() Renderer {
	return c.r
}

// Size returns the device size.
func (c *Canvas) Size() (int, int) {
	return c.r.Size()
}

// Save pushes the graphics state.
func (c *Canvas) Save() {
	st := c.state
	st.clip = append([]ClipPath{}, c.clip...)
	st.stroke.Dashes = append([]float64{}, c.stroke.Dashes...)
	c.states = append(c.states, st)
}

// Restore pops the graphics state. Unbalanced restores are ignored.
func (c *Canvas) Restore() {
	if len(c.states) == 0 {
		return
	}
	c.state = c.states[len(c.states)-1]
	c.states = c.states[:len(c.states)-1]
}

// Translate moves the user space origin.
func (c *Canvas) Translate(tx, ty float64) {
	c.m = c.m.Translate(tx, ty)
}

// Scale scales the user space.
func (c *Canvas) Scale(sx, sy float64) {
	c.m = c.m.Scale(sx, sy)
}

// Rotate rotates the user space by theta radians.
func (c *Canvas) Rotate(theta float64) {
	c.m = c.m.Rotate(theta)
}

// Transform applies m before the current transformation.
func (c *Canvas) Transform(m Matrix) {
	c.m = c.m.Mul(m)
}

// Matrix returns the current transformation matrix.
func (c *Canvas) Matrix() Matrix {
	return c.m
}

// SetMatrix replaces the current transformation matrix.
func (c *Canvas) SetMatrix(m Matrix) {
	c.m = m
}

// DeviceToUser maps a device point to user space.
func (c *Canvas) DeviceToUser(x, y float64) (float64, float64) {
	p := c.m.Inv().Dot(Point{x, y})
	return p.X, p.Y
}

// UserToDevice maps a user point to device space.
func (c *Canvas) UserToDevice(x, y float64) (float64, float64) {
	p := c.m.Dot(Point{x, y})
	return p.X, p.Y
}

// NewPath clears the current path.
func (c *Canvas) NewPath() {
	c.path = &Path{}
}

// MoveTo begins a new subpath.
func (c *Canvas) MoveTo(x, y float64) {
	p := c.m.Dot(Point{x, y})
	c.path.MoveTo(p.X, p.Y)
}

// LineTo adds a line to the path.
func (c *Canvas) LineTo(x, y float64) {
	p := c.m.Dot(Point{x, y})
	c.path.LineTo(p.X, p.Y)
}

// CurveTo adds a cubic Bézier to the path.
func (c *Canvas) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	p1 := c.m.Dot(Point{x1, y1})
	p2 := c.m.Dot(Point{x2, y2})
	p3 := c.m.Dot(Point{x3, y3})
	c.path.CubeTo(p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y)
}

// RelMoveTo begins a new subpath relative to the current point.
func (c *Canvas) RelMoveTo(dx, dy float64) {
	x, y, _ := c.CurrentPoint()
	c.MoveTo(x+dx, y+dy)
}

// RelLineTo adds a line relative to the current point.
func (c *Canvas) RelLineTo(dx, dy float64) {
	x, y, _ := c.CurrentPoint()
	c.LineTo(x+dx, y+dy)
}

// ClosePath closes the current subpath.
func (c *Canvas) ClosePath() {
	c.path.Close()
}

// Rectangle adds a closed rectangle subpath.
func (c *Canvas) Rectangle(x, y, w, h float64) {
	c.MoveTo(x, y)
	c.LineTo(x+w, y)
	c.LineTo(x+w, y+h)
	c.LineTo(x, y+h)
	c.ClosePath()
}

// Arc adds a circular arc in the direction of increasing angles. A line connects the current point to the start
// of the arc.
func (c *Canvas) Arc(xc, yc, r, theta0, theta1 float64) {
	c.arc(xc, yc, r, theta0, theta1, false)
}

// ArcNegative adds a circular arc in the direction of decreasing angles.
func (c *Canvas) ArcNegative(xc, yc, r, theta0, theta1 float64) {
	c.arc(xc, yc, r, theta0, theta1, true)
}

func (c *Canvas) arc(xc, yc, r, theta0, theta1 float64, negative bool) {
	arc := &Path{}
	if cur, ok := c.path.CurrentPoint(); ok {
		p := c.m.Inv().Dot(cur)
		arc.MoveTo(p.X, p.Y)
	}
	arc.Arc(xc, yc, r, theta0, theta1, negative)
	segs := arc.Transform(c.m).Segments()
	if _, ok := c.path.CurrentPoint(); ok && 0 < len(segs) && segs[0].Cmd == MoveToCmd {
		segs = segs[1:]
	}
	for _, seg := range segs {
		switch seg.Cmd {
		case MoveToCmd:
			c.path.MoveTo(seg.P[0].X, seg.P[0].Y)
		case LineToCmd:
			c.path.LineTo(seg.P[0].X, seg.P[0].Y)
		case CubeToCmd:
			c.path.CubeTo(seg.P[0].X, seg.P[0].Y, seg.P[1].X, seg.P[1].Y, seg.P[2].X, seg.P[2].Y)
		}
	}
}

// CurrentPoint returns the current point in user space.
func (c *Canvas) CurrentPoint() (float64, float64, bool) {
	cur, ok := c.path.CurrentPoint()
	if !ok {
		return 0.0, 0.0, false
	}
	p := c.m.Inv().Dot(cur)
	return p.X, p.Y, true
}

// CopyPath returns the current path in user space.
func (c *Canvas) CopyPath() *Path {
	return c.path.Transform(c.m.Inv())
}

// AppendPath appends a path given in user space.
func (c *Canvas) AppendPath(p *Path) {
	c.path.Append(p.Transform(c.m))
}

// PathExtents returns the bounding box of the current path in user space.
func (c *Canvas) PathExtents() Rect {
	return c.CopyPath().Bounds()
}

// SetSource sets the paint used by fill and stroke operations. The paint is locked to the current transformation.
func (c *Canvas) SetSource(p Paint) {
	c.source = Source{p, c.m}
}

// SetSourceRGBA sets a solid color source.
func (c *Canvas) SetSourceRGBA(r, g, b, a float64) {
	c.SetSource(Color{r, g, b, a})
}

// SetFillRule sets the fill rule.
func (c *Canvas) SetFillRule(rule FillRule) {
	c.fillRule = rule
}

// SetLineWidth sets the stroke width in user space.
func (c *Canvas) SetLineWidth(width float64) {
	c.stroke.Width = width
}

// LineWidth returns the stroke width.
func (c *Canvas) LineWidth() float64 {
	return c.stroke.Width
}

// SetLineCap sets the stroke line cap.
func (c *Canvas) SetLineCap(cap LineCap) {
	c.stroke.Cap = cap
}

// SetLineJoin sets the stroke line join.
func (c *Canvas) SetLineJoin(join LineJoin) {
	c.stroke.Join = join
}

// SetMiterLimit sets the stroke miter limit.
func (c *Canvas) SetMiterLimit(limit float64) {
	c.stroke.MiterLimit = limit
}

// SetDash sets the dash pattern, an empty pattern disables dashing.
func (c *Canvas) SetDash(dashes []float64, offset float64) {
	c.stroke.Dashes = append([]float64{}, dashes...)
	c.stroke.DashOffset = offset
}

func (c *Canvas) drawState() *DrawState {
	return &DrawState{
		Matrix:   c.m,
		Source:   c.source,
		FillRule: c.fillRule,
		Stroke:   c.stroke,
		Clip:     c.clip,
	}
}

// Fill fills the current path and clears it.
func (c *Canvas) Fill() {
	c.FillPreserve()
	c.NewPath()
}

// FillPreserve fills the current path.
func (c *Canvas) FillPreserve() {
	if !c.path.Empty() {
		c.r.Fill(c.path.Copy(), c.drawState())
	}
}

// Stroke strokes the current path and clears it.
func (c *Canvas) Stroke() {
	c.StrokePreserve()
	c.NewPath()
}

// StrokePreserve strokes the current path.
func (c *Canvas) StrokePreserve() {
	if !c.path.Empty() && 0.0 < c.stroke.Width {
		c.r.Stroke(c.path.Copy(), c.drawState())
	}
}

// Paint paints the source everywhere within the clip.
func (c *Canvas) Paint() {
	w, h := c.r.Size()
	p := &Path{}
	p.MoveTo(0.0, 0.0)
	p.LineTo(float64(w), 0.0)
	p.LineTo(float64(w), float64(h))
	p.LineTo(0.0, float64(h))
	p.Close()
	st := c.drawState()
	st.FillRule = NonZero
	c.r.Fill(p, st)
}

// Clip intersects the clip region with the current path and clears it.
func (c *Canvas) Clip() {
	c.ClipPreserve()
	c.NewPath()
}

// ClipPreserve intersects the clip region with the current path.
func (c *Canvas) ClipPreserve() {
	c.clip = append(c.clip[:len(c.clip):len(c.clip)], ClipPath{c.path.Copy(), c.fillRule})
}

// InFill returns true if the user point is inside the area filled by the current path, ignoring the clip.
func (c *Canvas) InFill(x, y float64) bool {
	p := c.m.Dot(Point{x, y})
	return c.path.Contains(p.X, p.Y, c.fillRule)
}

// InStroke returns true if the user point is inside the area covered by stroking the current path, ignoring the
// clip.
func (c *Canvas) InStroke(x, y float64) bool {
	if c.stroke.Width <= 0.0 {
		return false
	}
	user := c.path.Transform(c.m.Inv())
	return user.StrokeContains(x, y, c.stroke.Width/2.0)
}

// InClip returns true if the user point is inside the clip region.
func (c *Canvas) InClip(x, y float64) bool {
	p := c.m.Dot(Point{x, y})
	for _, clip := range c.clip {
		if !clip.Path.Contains(p.X, p.Y, clip.Rule) {
			return false
		}
	}
	return true
}

// SelectFontFace selects the font used by TextPath and TextExtents.
func (c *Canvas) SelectFontFace(family string, slant FontSlant, weight FontWeight) {
	c.fontFamily = strings.TrimSpace(family)
	c.fontSlant = slant
	c.fontWeight = weight
}

// SetFontSize sets the font size in user space.
func (c *Canvas) SetFontSize(size float64) {
	c.fontSize = size
}

func (c *Canvas) font() *Font {
	return c.Fonts.Match(c.fontFamily, c.fontSlant, c.fontWeight)
}

// TextPath adds the outlines of s to the current path at the current point, and advances the current point.
func (c *Canvas) TextPath(s string) {
	f := c.font()
	x, y, _ := c.CurrentPoint()
	if f == nil {
		return
	}
	adv := textPath(c.path, c.m.Translate(x, y), f, c.fontSize, s)
	c.MoveTo(x+adv, y)
}

// TextExtents measures s with the current font.
func (c *Canvas) TextExtents(s string) TextExtents {
	f := c.font()
	if f == nil {
		return TextExtents{}
	}
	return textExtents(f, c.fontSize, s)
}

// TagBegin opens a tagged group, such as a hyperlink.
func (c *Canvas) TagBegin(name, attributes string) {
	c.r.Tag(true, name, attributes)
}

// TagEnd closes a tagged group.
func (c *Canvas) TagEnd(name string) {
	c.r.Tag(false, name, "")
}

// NewSimilar returns an offscreen canvas of the same kind sharing the font set.
func (c *Canvas) NewSimilar(width, height int) Context {
	similar := New(c.r.NewSimilar(width, height))
	similar.Fonts = c.Fonts
	return similar
}

// Snapshot returns the drawn content as a pattern. Renderers without pixels give a pattern with a nil image.
func (c *Canvas) Snapshot() *Pattern {
	return NewPattern(c.r.Image())
}

// Image returns the drawn content of the renderer.
func (c *Canvas) Image() image.Image {
	return c.r.Image()
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
