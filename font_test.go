package canvas

import (
	"testing"

	"github.com/tdewolff/test"
	"golang.org/x/image/font/gofont/gomono"
)

func TestFontSetMatch(t *testing.T) {
	fs := NewFontSet()
	test.That(t, fs.Has("Serif"))
	test.That(t, !fs.Has("fantasy"))

	regular := fs.Match("sans-serif", FontSlantNormal, FontWeightNormal)
	test.That(t, regular != nil)
	test.T(t, fs.Match("sans-serif", FontSlantOblique, FontWeightNormal), fs.Match("sans-serif", FontSlantItalic, FontWeightNormal))
	test.T(t, fs.Match("fantasy", FontSlantNormal, FontWeightNormal), regular)

	// monospace has no italic, the slant is dropped before the weight
	test.T(t, fs.Match("monospace", FontSlantItalic, FontWeightBold), fs.Match("monospace", FontSlantNormal, FontWeightBold))
}

func TestFontSetAdd(t *testing.T) {
	fs := NewFontSet()
	test.Error(t, fs.Add("Code", FontSlantNormal, FontWeightNormal, gomono.TTF))
	test.That(t, fs.Has("code"))
	test.String(t, fs.Match("CODE", FontSlantItalic, FontWeightBold).Name(), "Code")
	test.That(t, fs.Add("broken", FontSlantNormal, FontWeightNormal, []byte("not a font")) != nil)
}

func TestTextExtents(t *testing.T) {
	f := DefaultFontSet().Match("monospace", FontSlantNormal, FontWeightNormal)
	ext := textExtents(f, 10.0, "ab")
	one := textExtents(f, 10.0, "a")
	test.FloatDiff(t, ext.XAdvance, 2.0*one.XAdvance, 1e-6)
	test.That(t, 0.0 < ext.Width && ext.Width <= ext.XAdvance+1.0)
	test.That(t, ext.YBearing < 0.0)

	empty := textExtents(f, 10.0, " ")
	test.That(t, 0.0 < empty.XAdvance)
	test.Float(t, empty.Width, 0.0)

	ascent, descent := f.Metrics(10.0)
	test.That(t, 0.0 < ascent && 0.0 < descent)
}

func TestFontShape(t *testing.T) {
	f := DefaultFontSet().Match("serif", FontSlantNormal, FontWeightNormal)
	test.That(t, f.face != nil)

	f.mu.Lock()
	liga := f.shape("fi", 10.0)
	plain := f.shape("ab", 10.0)
	f.mu.Unlock()
	test.T(t, len(liga), 1)
	test.T(t, len(plain), 2)
	test.That(t, 0.0 < plain[0].advance)

	// without a shaper every rune maps to its own glyph
	kerned := &Font{name: f.name, sfnt: f.sfnt}
	test.T(t, len(kerned.shapeKerned([]rune("fi"), 10.0)), 2)
	test.FloatDiff(t, textExtents(kerned, 10.0, "ab").XAdvance, textExtents(f, 10.0, "ab").XAdvance, 0.5)
}
