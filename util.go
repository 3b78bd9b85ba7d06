package canvas

import (
	"fmt"
	"math"

	"golang.org/x/image/math/fixed"
)

// Epsilon is the smallest number below which we assume the value to be zero.
const Epsilon = 1e-10

// equal returns true if a and b are equal with tolerance Epsilon.
func equal(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// angleNorm returns the angle theta in the range [0,2PI).
func angleNorm(theta float64) float64 {
	theta = math.Mod(theta, 2.0*math.Pi)
	if theta < 0.0 {
		theta += 2.0 * math.Pi
	}
	return theta
}

func toP26_6(p Point) fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.Int26_6(p.X * 64.0), Y: fixed.Int26_6(p.Y * 64.0)}
}

// ToP26_6 converts a point to fixed point coordinates as used by the rasterizers.
func ToP26_6(p Point) fixed.Point26_6 {
	return toP26_6(p)
}

////////////////////////////////////////////////////////////////

// Point is a coordinate in 2D space.
type Point struct {
	X, Y float64
}

// IsZero returns true if P is exactly zero.
func (p Point) IsZero() bool {
	return p.X == 0.0 && p.Y == 0.0
}

// Equals returns true if P and Q are equal with tolerance Epsilon.
func (p Point) Equals(q Point) bool {
	return equal(p.X, q.X) && equal(p.Y, q.Y)
}

// Add adds Q to P.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub subtracts Q from P.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Mul multiplies x and y by f.
func (p Point) Mul(f float64) Point {
	return Point{f * p.X, f * p.Y}
}

// Dot returns the dot product between OP and OQ.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Length returns the length of OP.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Interpolate returns a point on PQ that is linearly interpolated by t, ie. t=0 returns P and t=1 returns Q.
func (p Point) Interpolate(q Point, t float64) Point {
	return Point{(1-t)*p.X + t*q.X, (1-t)*p.Y + t*q.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

////////////////////////////////////////////////////////////////

// Rect is a rectangle in 2D defined by a position and its width and height.
type Rect struct {
	X, Y, W, H float64
}

// Empty returns true if the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0.0 || r.H <= 0.0
}

// Contains returns true if the point lies inside the rectangle or on its edge.
func (r Rect) Contains(p Point) bool {
	return r.X <= p.X && p.X <= r.X+r.W && r.Y <= p.Y && p.Y <= r.Y+r.H
}

// Add returns a rectangle that encompasses both r and q.
func (r Rect) Add(q Rect) Rect {
	if q.W == 0.0 && q.H == 0.0 && q.X == 0.0 && q.Y == 0.0 {
		return r
	} else if r.W == 0.0 && r.H == 0.0 && r.X == 0.0 && r.Y == 0.0 {
		return q
	}
	x0 := math.Min(r.X, q.X)
	y0 := math.Min(r.Y, q.Y)
	x1 := math.Max(r.X+r.W, q.X+q.W)
	y1 := math.Max(r.Y+r.H, q.Y+q.H)
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", r.X, r.Y, r.X+r.W, r.Y+r.H)
}

////////////////////////////////////////////////////////////////

// Matrix is used for affine transformations. The first row holds a c e and the second b d f, so that a point is
// transformed as x' = a*x + c*y + e and y' = b*x + d*y + f. This matches the argument order of the SVG matrix()
// function.
type Matrix [2][3]float64

// Identity is the identity affine transformation matrix, ie. transforms any point to itself.
var Identity = Matrix{
	{1.0, 0.0, 0.0},
	{0.0, 1.0, 0.0},
}

// NewMatrix returns the matrix given by the SVG matrix(a,b,c,d,e,f) arguments.
func NewMatrix(a, b, c, d, e, f float64) Matrix {
	return Matrix{
		{a, c, e},
		{b, d, f},
	}
}

// Mul multiplies the current matrix by the given matrix, ie. q is applied before m.
func (m Matrix) Mul(q Matrix) Matrix {
	return Matrix{{
		m[0][0]*q[0][0] + m[0][1]*q[1][0],
		m[0][0]*q[0][1] + m[0][1]*q[1][1],
		m[0][0]*q[0][2] + m[0][1]*q[1][2] + m[0][2],
	}, {
		m[1][0]*q[0][0] + m[1][1]*q[1][0],
		m[1][0]*q[0][1] + m[1][1]*q[1][1],
		m[1][0]*q[0][2] + m[1][1]*q[1][2] + m[1][2],
	}}
}

// Dot returns the dot product between the matrix and the given vector, ie. applying the transformation.
func (m Matrix) Dot(p Point) Point {
	return Point{
		m[0][0]*p.X + m[0][1]*p.Y + m[0][2],
		m[1][0]*p.X + m[1][1]*p.Y + m[1][2],
	}
}

// Translate adds a translation in x and y that is applied before the current transformation.
func (m Matrix) Translate(x, y float64) Matrix {
	return m.Mul(Matrix{
		{1.0, 0.0, x},
		{0.0, 1.0, y},
	})
}

// Rotate adds a rotation transformation with theta in radians. With the y-axis pointing down a positive angle
// turns clockwise.
func (m Matrix) Rotate(theta float64) Matrix {
	sintheta, costheta := math.Sincos(theta)
	return m.Mul(Matrix{
		{costheta, -sintheta, 0.0},
		{sintheta, costheta, 0.0},
	})
}

// Scale adds a scaling transformation in sx and sy.
func (m Matrix) Scale(sx, sy float64) Matrix {
	return m.Mul(Matrix{
		{sx, 0.0, 0.0},
		{0.0, sy, 0.0},
	})
}

// Det returns the matrix determinant.
func (m Matrix) Det() float64 {
	return m[0][0]*m[1][1] - m[0][1]*m[1][0]
}

// IsSingular returns true if the matrix cannot be inverted.
func (m Matrix) IsSingular() bool {
	return math.Abs(m.Det()) < Epsilon
}

// Inv returns the matrix inverse. A singular matrix returns the identity.
func (m Matrix) Inv() Matrix {
	det := m.Det()
	if equal(det, 0.0) {
		return Identity
	}
	return Matrix{{
		m[1][1] / det,
		-m[0][1] / det,
		-(m[1][1]*m[0][2] - m[0][1]*m[1][2]) / det,
	}, {
		-m[1][0] / det,
		m[0][0] / det,
		-(-m[1][0]*m[0][2] + m[0][0]*m[1][2]) / det,
	}}
}

// ScaleFactor returns the geometric mean of the scaling in x and y, used to map line widths from user to
// device space.
func (m Matrix) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(m.Det()))
}

// Equals returns true if both matrices are equal with a tolerance of Epsilon.
func (m Matrix) Equals(q Matrix) bool {
	return equal(m[0][0], q[0][0]) && equal(m[0][1], q[0][1]) && equal(m[1][0], q[1][0]) && equal(m[1][1], q[1][1]) && equal(m[0][2], q[0][2]) && equal(m[1][2], q[1][2])
}

// String returns a string representation of the affine transformation matrix as six values, where [a b c d e f]
// denotes the same transformation as the SVG matrix(a,b,c,d,e,f).
func (m Matrix) String() string {
	return fmt.Sprintf("[%g %g %g %g %g %g]", m[0][0], m[1][0], m[0][1], m[1][1], m[0][2], m[1][2])
}
