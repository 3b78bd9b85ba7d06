package svg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/guixmpp/canvas"
	"github.com/tdewolff/test"
)

func render(width, height int, draw func(*canvas.Canvas)) string {
	buf := &bytes.Buffer{}
	r := New(buf, width, height, nil)
	draw(canvas.New(r))
	if err := r.Close(); err != nil {
		panic(err)
	}
	return buf.String()
}

func TestSVGFill(t *testing.T) {
	s := render(40, 40, func(c *canvas.Canvas) {
		c.SetSourceRGBA(1, 0, 0, 0.5)
		c.SetFillRule(canvas.EvenOdd)
		c.Rectangle(10, 10, 20, 20)
		c.Fill()
	})
	test.That(t, strings.HasPrefix(s, `<svg version="1.1" width="40" height="40" viewBox="0 0 40 40"`))
	test.That(t, strings.HasSuffix(s, "</svg>"))
	test.That(t, strings.Contains(s, `<path d="M10 10L30 10L30 30L10 30z" fill="#f00" fill-opacity=".5" fill-rule="evenodd"/>`), s)
}

func TestSVGStroke(t *testing.T) {
	s := render(40, 40, func(c *canvas.Canvas) {
		c.Scale(2, 2)
		c.SetLineCap(canvas.RoundCap)
		c.MoveTo(1, 1)
		c.LineTo(5, 1)
		c.Stroke()
	})
	test.That(t, strings.Contains(s, `<path d="M1 1L5 1" transform="matrix(2 0 0 2 0 0)" style="fill:none;stroke:#000;stroke-width:2;stroke-linecap:round;stroke-miterlimit:10"/>`), s)
}

func TestSVGClip(t *testing.T) {
	s := render(40, 40, func(c *canvas.Canvas) {
		c.Rectangle(0, 0, 20, 20)
		c.Clip()
		c.Rectangle(0, 0, 40, 40)
		c.Fill()
		c.Rectangle(5, 5, 40, 40)
		c.Fill()
	})
	test.T(t, strings.Count(s, "<clipPath"), 1)
	test.T(t, strings.Count(s, `<g clip-path="url(#c1)">`), 2)
}

func TestSVGGradient(t *testing.T) {
	s := render(40, 40, func(c *canvas.Canvas) {
		g := canvas.NewLinearGradient(0, 0, 40, 0)
		g.AddColorStop(0, canvas.Color{R: 1, A: 1})
		g.AddColorStop(1, canvas.Color{B: 1, A: 0.25})
		g.Extend = canvas.ExtendReflect
		c.SetSource(g)
		c.Rectangle(0, 0, 40, 40)
		c.Fill()
	})
	test.That(t, strings.Contains(s, `<linearGradient id="g1" gradientUnits="userSpaceOnUse" x1="0" y1="0" x2="40" y2="0" spreadMethod="reflect"><stop offset="0" stop-color="#f00"/><stop offset="1" stop-color="#00f" stop-opacity=".25"/></linearGradient>`), s)
	test.That(t, strings.Contains(s, `fill="url(#g1)"`), s)
}

func TestSVGTag(t *testing.T) {
	s := render(10, 10, func(c *canvas.Canvas) {
		c.TagBegin("a", "href='x.svg?a=1&b=2'")
		c.Rectangle(0, 0, 10, 10)
		c.Fill()
		c.TagEnd("a")
	})
	test.That(t, strings.Contains(s, `<a href='x.svg?a=1&amp;b=2'><path d="M0 0L10 0L10 10L0 10z"/></a>`), s)
}

func TestSVGCompression(t *testing.T) {
	buf := &bytes.Buffer{}
	r := New(buf, 10, 10, &Options{Compression: 9})
	test.Error(t, r.Close())
	test.T(t, buf.Bytes()[:2], []byte{0x1f, 0x8b})
}
