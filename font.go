package canvas

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// FontSlant is the slant of a font face.
type FontSlant int

// see FontSlant
const (
	FontSlantNormal FontSlant = iota
	FontSlantItalic
	FontSlantOblique
)

// FontWeight is the weight of a font face.
type FontWeight int

// see FontWeight
const (
	FontWeightNormal FontWeight = iota
	FontWeightBold
)

// TextExtents are the measurements of a string in user space. The bearings are relative to the current point.
type TextExtents struct {
	XBearing, YBearing float64
	Width, Height      float64
	XAdvance, YAdvance float64
}

// Font is a parsed TrueType or OpenType font. Text runs are shaped with HarfBuzz and outlined from the sfnt
// tables.
type Font struct {
	name   string
	sfnt   *sfnt.Font
	face   *gotext.Face
	shaper shaping.HarfbuzzShaper
	buf    sfnt.Buffer
	mu     sync.Mutex
}

// ParseFont parses a TTF or OTF font.
func ParseFont(name string, b []byte) (*Font, error) {
	f, err := sfnt.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", name, err)
	}
	face, err := gotext.ParseTTF(bytes.NewReader(b))
	if err != nil {
		// shaping is unavailable, runs fall back to the kerning table
		face = nil
	}
	return &Font{name: name, sfnt: f, face: face}, nil
}

// Name returns the name of the font.
func (f *Font) Name() string {
	return f.name
}

// glyph is a shaped glyph, its offset is relative to the pen position with y pointing down.
type glyph struct {
	index   sfnt.GlyphIndex
	dx, dy  float64
	advance float64
}

// shape returns the positioned glyphs of s at size. The caller holds f.mu.
func (f *Font) shape(s string, size float64) []glyph {
	rs := []rune(s)
	if len(rs) == 0 {
		return nil
	} else if f.face == nil {
		return f.shapeKerned(rs, size)
	}

	out := f.shaper.Shape(shaping.Input{
		Text:      rs,
		RunStart:  0,
		RunEnd:    len(rs),
		Direction: di.DirectionLTR,
		Face:      f.face,
		Size:      fixed.Int26_6(size * 64.0),
		Script:    language.LookupScript(rs[0]),
		Language:  language.NewLanguage("en"),
	})
	glyphs := make([]glyph, len(out.Glyphs))
	for i, g := range out.Glyphs {
		glyphs[i] = glyph{
			index:   sfnt.GlyphIndex(g.GlyphID),
			dx:      float64(g.XOffset) / 64.0,
			dy:      -float64(g.YOffset) / 64.0,
			advance: float64(g.XAdvance) / 64.0,
		}
	}
	return glyphs
}

// shapeKerned maps runes to glyphs one by one and applies pair kerning.
func (f *Font) shapeKerned(rs []rune, size float64) []glyph {
	ppem := fixed.Int26_6(size * 64.0)
	glyphs := make([]glyph, 0, len(rs))
	for _, r := range rs {
		gi, err := f.sfnt.GlyphIndex(&f.buf, r)
		if err != nil {
			continue
		}
		if 0 < len(glyphs) {
			if kern, err := f.sfnt.Kern(&f.buf, glyphs[len(glyphs)-1].index, gi, ppem, font.HintingNone); err == nil {
				glyphs[len(glyphs)-1].advance += float64(kern) / 64.0
			}
		}
		g := glyph{index: gi}
		if adv, err := f.sfnt.GlyphAdvance(&f.buf, gi, ppem, font.HintingNone); err == nil {
			g.advance = float64(adv) / 64.0
		}
		glyphs = append(glyphs, g)
	}
	return glyphs
}

// glyphPath appends the outline of glyph gi at size to p with its origin at (x,y). The caller holds f.mu.
func (f *Font) glyphPath(p *Path, m Matrix, gi sfnt.GlyphIndex, size, x, y float64) {
	segments, err := f.sfnt.LoadGlyph(&f.buf, gi, fixed.Int26_6(size*64.0), nil)
	if err != nil {
		return
	}
	pt := func(q fixed.Point26_6) Point {
		return m.Dot(Point{x + float64(q.X)/64.0, y + float64(q.Y)/64.0})
	}
	contour := false
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if contour {
				p.Close()
			}
			contour = true
			a := pt(seg.Args[0])
			p.MoveTo(a.X, a.Y)
		case sfnt.SegmentOpLineTo:
			a := pt(seg.Args[0])
			p.LineTo(a.X, a.Y)
		case sfnt.SegmentOpQuadTo:
			start, _ := p.CurrentPoint()
			c, a := pt(seg.Args[0]), pt(seg.Args[1])
			c1 := start.Interpolate(c, 2.0/3.0)
			c2 := a.Interpolate(c, 2.0/3.0)
			p.CubeTo(c1.X, c1.Y, c2.X, c2.Y, a.X, a.Y)
		case sfnt.SegmentOpCubeTo:
			c1, c2, a := pt(seg.Args[0]), pt(seg.Args[1]), pt(seg.Args[2])
			p.CubeTo(c1.X, c1.Y, c2.X, c2.Y, a.X, a.Y)
		}
	}
	if contour {
		p.Close()
	}
}

// Metrics returns the ascent and descent at the given size, both positive.
func (f *Font) Metrics(size float64) (float64, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	metrics, err := f.sfnt.Metrics(&f.buf, fixed.Int26_6(size*64.0), font.HintingNone)
	if err != nil {
		return size, 0.0
	}
	return float64(metrics.Ascent) / 64.0, float64(metrics.Descent) / 64.0
}

////////////////////////////////////////////////////////////////

type fontKey struct {
	family string
	slant  FontSlant
	weight FontWeight
}

// FontSet maps font family names and styles to fonts. Generic families serif, sans-serif and monospace resolve
// to embedded fonts.
type FontSet struct {
	mu    sync.RWMutex
	fonts map[fontKey]*Font
}

// NewFontSet returns a font set with the embedded generic families.
func NewFontSet() *FontSet {
	fs := &FontSet{fonts: map[fontKey]*Font{}}
	embedded := []struct {
		family string
		slant  FontSlant
		weight FontWeight
		b      []byte
	}{
		{"sans-serif", FontSlantNormal, FontWeightNormal, goregular.TTF},
		{"sans-serif", FontSlantItalic, FontWeightNormal, goitalic.TTF},
		{"sans-serif", FontSlantNormal, FontWeightBold, gobold.TTF},
		{"sans-serif", FontSlantItalic, FontWeightBold, gobolditalic.TTF},
		{"monospace", FontSlantNormal, FontWeightNormal, gomono.TTF},
		{"monospace", FontSlantNormal, FontWeightBold, gomonobold.TTF},
		{"serif", FontSlantNormal, FontWeightNormal, lmroman10regular.TTF},
		{"serif", FontSlantItalic, FontWeightNormal, lmroman10italic.TTF},
		{"serif", FontSlantNormal, FontWeightBold, lmroman10bold.TTF},
		{"serif", FontSlantItalic, FontWeightBold, lmroman10bolditalic.TTF},
	}
	for _, e := range embedded {
		if err := fs.Add(e.family, e.slant, e.weight, e.b); err != nil {
			panic(err)
		}
	}
	return fs
}

var defaultFonts struct {
	once sync.Once
	fs   *FontSet
}

// DefaultFontSet returns the process-wide font set used by new canvases.
func DefaultFontSet() *FontSet {
	defaultFonts.once.Do(func() {
		defaultFonts.fs = NewFontSet()
	})
	return defaultFonts.fs
}

// Add parses a TTF or OTF font and registers it under family.
func (fs *FontSet) Add(family string, slant FontSlant, weight FontWeight, b []byte) error {
	f, err := ParseFont(family, b)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	fs.fonts[fontKey{strings.ToLower(family), slant, weight}] = f
	fs.mu.Unlock()
	return nil
}

// Has returns true if any style of the family is registered.
func (fs *FontSet) Has(family string) bool {
	family = strings.ToLower(family)
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	for key := range fs.fonts {
		if key.family == family {
			return true
		}
	}
	return false
}

// Match returns the best font for the family and style, falling back to sans-serif. Oblique matches italic.
func (fs *FontSet) Match(family string, slant FontSlant, weight FontWeight) *Font {
	if slant == FontSlantOblique {
		slant = FontSlantItalic
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	for _, fam := range []string{strings.ToLower(family), "sans-serif"} {
		for _, key := range []fontKey{
			{fam, slant, weight},
			{fam, FontSlantNormal, weight},
			{fam, slant, FontWeightNormal},
			{fam, FontSlantNormal, FontWeightNormal},
		} {
			if f, ok := fs.fonts[key]; ok {
				return f
			}
		}
	}
	return nil
}

// textPath appends the outline of s to p in device space and returns the advance in user space.
func textPath(p *Path, m Matrix, f *Font, size float64, s string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	x := 0.0
	for _, g := range f.shape(s, size) {
		f.glyphPath(p, m, g.index, size, x+g.dx, g.dy)
		x += g.advance
	}
	return x
}

func textExtents(f *Font, size float64, s string) TextExtents {
	p := &Path{}
	adv := textPath(p, Identity, f, size, s)
	ext := TextExtents{XAdvance: adv}
	if p.Empty() {
		return ext
	}
	b := p.Bounds()
	ext.XBearing, ext.YBearing = b.X, b.Y
	ext.Width, ext.Height = b.W, b.H
	if math.IsNaN(ext.Width) {
		ext.Width = 0.0
	}
	return ext
}
