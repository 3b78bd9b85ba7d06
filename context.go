package canvas

// Context is a stateful 2D drawing context in the style of cairo. Coordinates are given in user space, which is
// mapped to device space by the current transformation matrix. The path under construction is kept in device
// space, so changing the transformation does not affect segments already added.
type Context interface {
	Save()
	Restore()

	Translate(tx, ty float64)
	Scale(sx, sy float64)
	Rotate(theta float64)
	Transform(m Matrix)
	Matrix() Matrix
	SetMatrix(m Matrix)
	DeviceToUser(x, y float64) (float64, float64)
	UserToDevice(x, y float64) (float64, float64)

	NewPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CurveTo(x1, y1, x2, y2, x3, y3 float64)
	RelMoveTo(dx, dy float64)
	RelLineTo(dx, dy float64)
	ClosePath()
	Rectangle(x, y, w, h float64)
	Arc(xc, yc, r, theta0, theta1 float64)
	ArcNegative(xc, yc, r, theta0, theta1 float64)
	CurrentPoint() (float64, float64, bool)
	CopyPath() *Path
	AppendPath(p *Path)
	PathExtents() Rect

	SetSource(p Paint)
	SetSourceRGBA(r, g, b, a float64)
	SetFillRule(rule FillRule)
	SetLineWidth(width float64)
	LineWidth() float64
	SetLineCap(cap LineCap)
	SetLineJoin(join LineJoin)
	SetMiterLimit(limit float64)
	SetDash(dashes []float64, offset float64)

	Fill()
	FillPreserve()
	Stroke()
	StrokePreserve()
	Paint()
	Clip()
	ClipPreserve()

	InFill(x, y float64) bool
	InStroke(x, y float64) bool
	InClip(x, y float64) bool

	SelectFontFace(family string, slant FontSlant, weight FontWeight)
	SetFontSize(size float64)
	TextPath(s string)
	TextExtents(s string) TextExtents

	TagBegin(name, attributes string)
	TagEnd(name string)

	// NewSimilar returns an empty context of the same kind for offscreen drawing, such as pattern tiles.
	NewSimilar(width, height int) Context

	// Snapshot returns the current content as a pattern paint.
	Snapshot() *Pattern
}
