package canvas

import (
	"math"
	"testing"

	"github.com/tdewolff/test"
)

func TestAngleNorm(t *testing.T) {
	test.Float(t, angleNorm(0.0), 0.0)
	test.Float(t, angleNorm(1.0*math.Pi), 1.0*math.Pi)
	test.Float(t, angleNorm(2.0*math.Pi), 0.0)
	test.Float(t, angleNorm(3.0*math.Pi), 1.0*math.Pi)
	test.Float(t, angleNorm(-1.0*math.Pi), 1.0*math.Pi)
	test.Float(t, angleNorm(-2.0*math.Pi), 0.0)
}

func TestColors(t *testing.T) {
	c, ok := NamedColor("Red")
	test.That(t, ok)
	test.T(t, c, Color{1.0, 0.0, 0.0, 1.0})
	_, ok = NamedColor("reddish")
	test.That(t, !ok)

	name, ok := ColorName(RGB(255, 0, 0))
	test.That(t, ok)
	test.String(t, name, "red")
	_, ok = ColorName(RGBA(255, 0, 0, 0.5))
	test.That(t, !ok)
}

func TestPoint(t *testing.T) {
	p := Point{3, 4}
	test.T(t, p.Mul(2.0), Point{6, 8})
	test.T(t, p.Add(Point{1, 1}), Point{4, 5})
	test.T(t, p.Sub(Point{1, 1}), Point{2, 3})
	test.Float(t, p.Dot(Point{3, 0}), 9.0)
	test.Float(t, p.Length(), 5.0)
	test.T(t, Point{}.Interpolate(p, 0.5), Point{1.5, 2.0})
	test.That(t, Point{}.IsZero())
	test.That(t, p.Equals(Point{3, 4 + 1e-12}))
	test.String(t, p.String(), "(3,4)")
}

func TestRect(t *testing.T) {
	r := Rect{0, 0, 5, 5}
	test.T(t, r.Add(Rect{5, 5, 5, 5}), Rect{0, 0, 10, 10})
	test.T(t, r.Add(Rect{}), r)
	test.T(t, Rect{}.Add(r), r)
	test.That(t, r.Contains(Point{5, 5}))
	test.That(t, !r.Contains(Point{5.1, 5}))
	test.That(t, Rect{0, 0, 0, 5}.Empty())
	test.String(t, r.String(), "(0,0)-(5,5)")
}

func TestMatrix(t *testing.T) {
	p := Point{3, 4}
	test.T(t, Identity.Translate(2.0, 2.0).Dot(p), Point{5.0, 6.0})
	test.T(t, Identity.Scale(2.0, 2.0).Dot(p), Point{6.0, 8.0})
	test.T(t, Identity.Scale(1.0, -1.0).Dot(p), Point{3.0, -4.0})
	test.That(t, Identity.Rotate(math.Pi/2.0).Dot(p).Equals(Point{-4.0, 3.0}))
	test.That(t, Identity.Scale(2.0, 4.0).Inv().Equals(Identity.Scale(0.5, 0.25)))
	test.That(t, Identity.Rotate(math.Pi/2.0).Inv().Equals(Identity.Rotate(-math.Pi/2.0)))

	// translation is applied before the scaling
	m := Identity.Scale(2.0, 2.0).Translate(1.0, 0.0)
	test.T(t, m.Dot(Point{0.0, 0.0}), Point{2.0, 0.0})
	test.That(t, m.Mul(m.Inv()).Equals(Identity))

	test.T(t, NewMatrix(1, 2, 3, 4, 5, 6).Dot(Point{1, 1}), Point{9.0, 12.0})
	test.Float(t, Identity.Scale(2.0, 8.0).ScaleFactor(), 4.0)
	test.That(t, Identity.Scale(0.0, 1.0).IsSingular())
	test.T(t, Identity.Scale(0.0, 1.0).Inv(), Identity)
	test.String(t, NewMatrix(1, 2, 3, 4, 5, 6).String(), "[1 2 3 4 5 6]")
}
