package format

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/tdewolff/test"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/view"
)

type host struct {
	reg      *Registry
	docs     map[string]Document
	fonts    *canvas.FontSet
	warnings []Warning
}

func newHost() *host {
	return &host{
		reg:   Default(),
		docs:  map[string]Document{},
		fonts: canvas.NewFontSet(),
	}
}

func (h *host) Document(url string) (Document, bool) {
	doc, ok := h.docs[url]
	return doc, ok
}

func (h *host) URL(doc Document) (string, bool) {
	for url, d := range h.docs {
		if d == doc {
			return url, true
		}
	}
	return "", false
}

func (h *host) ResolveURL(rel, base string) string {
	if strings.Contains(rel, ":") {
		return rel
	}
	return base[:strings.LastIndexByte(base, '/')+1] + rel
}

func (h *host) Warn(_ view.View, w Warning) {
	h.warnings = append(h.warnings, w)
}

func (h *host) Fonts() *canvas.FontSet {
	return h.fonts
}

func (h *host) Pointed(view.View) dom.Element {
	return nil
}

func (h *host) Focused(view.View) dom.Element {
	return nil
}

func (h *host) Draw(v view.View, doc Document, ctx canvas.Context, box canvas.Rect) {
	if err := h.reg.Draw(h, v, doc, ctx, box); err != nil {
		h.Warn(v, Warning{CreateWarning, err.Error(), doc})
	}
}

func (h *host) Poke(v view.View, doc Document, ctx canvas.Context, box canvas.Rect, px, py float64) []dom.Element {
	chain, _ := h.reg.Poke(h, v, doc, ctx, box, px, py)
	return chain
}

func (h *host) Dimensions(v view.View, doc Document) (float64, float64, error) {
	return h.reg.Dimensions(h, v, doc)
}

func encodePNG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	buf := &bytes.Buffer{}
	test.Error(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestRegistryCreate(t *testing.T) {
	reg := Default()
	var tests = []struct {
		mime string
		data []byte
		is   Format
	}{
		{"application/x-null", nil, Null{}},
		{"text/plain", []byte("hello void"), Text{}},
		{"application/octet-stream", []byte{0, 1, 2}, Binary{}},
		{"text/css", []byte("rect { fill: red }"), CSS{}},
		{"application/xml", []byte("<a><b id='x'/></a>"), XML{}},
		{"image/svg+xml", []byte("<svg xmlns='http://www.w3.org/2000/svg'/>"), XML{}},
		{"text/html", []byte("<p>hello</p>"), XML{}},
		{"font/ttf", goregular.TTF, Font{}},
		{"image/png", encodePNG(t, 4, 2), Raster{}},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			doc, err := reg.Create(tt.data, tt.mime)
			test.Error(t, err)
			f, ok := reg.Format(doc)
			test.That(t, ok)
			test.T(t, f, tt.is)
		})
	}

	_, err := reg.Create([]byte("x"), "application/x-unknown")
	test.That(t, errors.Is(err, ErrNotImplemented))

	_, err = reg.Create([]byte("<a>"), "text/xml")
	test.That(t, err != nil && !errors.Is(err, ErrNotImplemented))

	_, err = reg.Create([]byte("not a png"), "image/png")
	test.That(t, err != nil)
}

func TestRegistryOrder(t *testing.T) {
	reg := Default()
	reg.Prepend(fakeFormat{})
	doc, err := reg.Create([]byte("hello"), "text/plain")
	test.Error(t, err)
	test.T(t, doc, Document("fake"))

	// fakeFormat passes everything else on
	doc, err = reg.Create([]byte("hello"), "application/x-null")
	test.Error(t, err)
	_, ok := doc.(*NullDocument)
	test.That(t, ok)
}

type fakeFormat struct{}

func (fakeFormat) Create(data []byte, mimetype string) (Document, error) {
	if mimetype == "text/plain" {
		return "fake", nil
	}
	return nil, ErrNotImplemented
}

func (fakeFormat) Is(doc Document) bool {
	return doc == "fake"
}

func TestLinks(t *testing.T) {
	reg := Default()
	doc, err := reg.Create([]byte(`<?xml-stylesheet href="a.css"?><?xml-stylesheet href="b.css"?><a/>`), "text/xml")
	test.Error(t, err)
	links, err := reg.Links(doc)
	test.Error(t, err)
	test.T(t, links, []string{"a.css", "b.css"})

	doc, err = reg.Create([]byte(`@import "base.css"; rect { fill: url(#g) }`), "text/css")
	test.Error(t, err)
	links, err = reg.Links(doc)
	test.Error(t, err)
	test.T(t, links, []string{"base.css", "#g"})

	doc, err = reg.Create([]byte("text"), "text/plain")
	test.Error(t, err)
	links, err = reg.Links(doc)
	test.Error(t, err)
	test.T(t, len(links), 0)

	_, err = reg.Links(struct{}{})
	test.That(t, errors.Is(err, ErrNotImplemented))
}

func TestXMLFragment(t *testing.T) {
	reg := Default()
	doc, err := reg.Create([]byte(`<a><b id="x" tabindex="2"/><c/></a>`), "application/xml")
	test.Error(t, err)

	frag, err := reg.Fragment(doc, "x")
	test.Error(t, err)
	test.T(t, frag.(*dom.Document).Parent(), doc.(*dom.Document))
	test.String(t, frag.(*dom.Document).Root.Tag(), "b")

	_, err = reg.Fragment(doc, "missing")
	test.That(t, errors.Is(err, dom.ErrFragmentNotFound))

	index, ok, err := reg.TabIndex(doc, frag.(*dom.Document).Root)
	test.Error(t, err)
	test.That(t, ok)
	test.T(t, index, 2)
	_, ok, err = reg.TabIndex(doc, doc.(*dom.Document).Root)
	test.Error(t, err)
	test.That(t, !ok)
}

func TestNullDraw(t *testing.T) {
	rec := canvas.NewRecorder(100, 100)
	ctx := canvas.New(rec)
	h := newHost()
	test.Error(t, h.reg.Draw(h, nil, NewNull(errors.New("failed")), ctx, canvas.Rect{X: 10, Y: 10, W: 50, H: 20}))

	fills := rec.Filter(canvas.FillOp)
	test.T(t, len(fills), 1)
	c, _ := fills[0].State.Source.IsSolid()
	test.Float(t, c.R, 1.0)
	test.Float(t, c.G, 0.0)
	test.T(t, fills[0].Path.Bounds(), canvas.Rect{X: 10, Y: 10, W: 50, H: 20})
	test.T(t, len(rec.Filter(canvas.StrokeOp)), 2)

	chain, err := h.reg.Poke(h, nil, NewNull(nil), ctx, canvas.Rect{W: 50, H: 50}, 5, 5)
	test.Error(t, err)
	test.T(t, len(chain), 0)
}

func TestTextDraw(t *testing.T) {
	rec := canvas.NewRecorder(200, 200)
	ctx := canvas.New(rec)
	h := newHost()
	doc, err := h.reg.Create([]byte("hello void\nhello void"), "text/plain")
	test.Error(t, err)
	test.Error(t, h.reg.Draw(h, nil, doc, ctx, canvas.Rect{X: 0, Y: 0, W: 200, H: 200}))

	fills := rec.Filter(canvas.FillOp)
	test.T(t, len(fills), 1)
	c, _ := fills[0].State.Source.IsSolid()
	test.T(t, c, canvas.Black)
	b := fills[0].Path.Bounds()
	test.That(t, 0.0 <= b.X && b.X+b.W <= 200.0)
	test.That(t, 0.0 < b.Y && b.Y < TextSize)
	test.T(t, len(fills[0].State.Clip), 1)
}

func TestWrap(t *testing.T) {
	ctx := measure(nil)
	word := ctx.TextExtents("word").XAdvance

	test.T(t, wrap(ctx, "", 100), []string(nil))
	test.T(t, wrap(ctx, "word word", 2*word+TextSpacing+1), []string{"word word"})
	test.T(t, wrap(ctx, "word word", 2*word), []string{"word", "word"})
	test.T(t, wrap(ctx, " word\t\nword  ", 1), []string{"word", "word"})

	h := newHost()
	height, err := h.reg.HeightForWidth(h, nil, &TextDocument{"word word word"}, word+1)
	test.Error(t, err)
	test.Float(t, height, 3*(TextSize+TextSpacing))
}

func TestBinaryDraw(t *testing.T) {
	rec := canvas.NewRecorder(100, 100)
	ctx := canvas.New(rec)
	h := newHost()
	test.Error(t, h.reg.Draw(h, nil, &BinaryDocument{[]byte{0xff}}, ctx, canvas.Rect{X: 0, Y: 0, W: 33, H: 22}))

	fills := rec.Filter(canvas.FillOp)
	test.T(t, len(fills), 1)
	c, _ := fills[0].State.Source.IsSolid()
	test.T(t, c, canvas.Color{R: 0.9, G: 0.4, B: 0.9, A: 0.5})

	// 3x3 cells, only the four corners are filled
	p := fills[0].Path
	test.That(t, p.Contains(5, 5, canvas.NonZero))
	test.That(t, !p.Contains(16, 5, canvas.NonZero))
	test.That(t, !p.Contains(16, 11, canvas.NonZero))
	test.That(t, p.Contains(27, 18, canvas.NonZero))
}

func TestRaster(t *testing.T) {
	h := newHost()
	doc, err := h.reg.Create(encodePNG(t, 4, 2), "image/png")
	test.Error(t, err)
	test.String(t, doc.(*RasterDocument).Format, "png")

	w, hh, err := h.reg.Dimensions(h, nil, doc)
	test.Error(t, err)
	test.Float(t, w, 4)
	test.Float(t, hh, 2)

	width, err := h.reg.WidthForHeight(h, nil, doc, 10)
	test.Error(t, err)
	test.Float(t, width, 20)
	height, err := h.reg.HeightForWidth(h, nil, doc, 10)
	test.Error(t, err)
	test.Float(t, height, 5)

	rec := canvas.NewRecorder(100, 100)
	ctx := canvas.New(rec)
	box := canvas.Rect{X: 10, Y: 10, W: 40, H: 20}
	test.Error(t, h.reg.Draw(h, nil, doc, ctx, box))
	fills := rec.Filter(canvas.FillOp)
	test.T(t, len(fills), 1)
	test.T(t, fills[0].Path.Bounds(), box)
	test.T(t, fills[0].State.Source.At(canvas.Point{X: 30, Y: 20}), color.RGBA{255, 0, 0, 255})

	chain, err := h.reg.Poke(h, nil, doc, ctx, box, 30, 20)
	test.Error(t, err)
	test.T(t, chain, []dom.Element{doc.(*RasterDocument).Node})
	chain, err = h.reg.Poke(h, nil, doc, ctx, box, 60, 20)
	test.Error(t, err)
	test.T(t, len(chain), 0)
}

func TestFont(t *testing.T) {
	h := newHost()
	doc, err := h.reg.Create(goregular.TTF, "application/x-font-ttf")
	test.Error(t, err)
	font := doc.(*FontDocument)
	test.String(t, font.Format, "ttf")
	test.Bytes(t, font.Data, goregular.TTF)

	test.That(t, !h.fonts.Has("Web Sans"))
	test.Error(t, font.Install(h.fonts, "Web Sans", canvas.FontSlantNormal, canvas.FontWeightNormal))
	test.That(t, h.fonts.Has("web sans"))

	_, err = h.reg.Create([]byte("wOFFgarbage"), "font/woff")
	test.That(t, err != nil)

	test.String(t, fontTag([]byte("wOF2....")), "woff2")
	test.String(t, fontTag([]byte("OTTO")), "otf")
	test.String(t, fontTag([]byte{0, 1, 0, 0}), "ttf")
	test.String(t, fontTag([]byte("xyz")), "")
}

func TestInstallFontFaces(t *testing.T) {
	h := newHost()
	doc, err := h.reg.Create(goregular.TTF, "font/ttf")
	test.Error(t, err)
	h.docs["http://a/fonts/web.ttf"] = doc

	sheet := css.Parse(`
		@font-face { font-family: "Web Sans"; src: url(missing.woff2) format("woff2"), url(fonts/web.ttf); font-weight: 700 }
		@font-face { font-family: Gone; src: url(gone.ttf) }`)
	missing := InstallFontFaces(h, "http://a/style.css", sheet)
	test.T(t, missing, []string{"Gone"})
	test.That(t, h.fonts.Has("Web Sans"))
	test.String(t, h.fonts.Match("Web Sans", canvas.FontSlantNormal, canvas.FontWeightBold).Name(), "Web Sans")
}

func TestFontStyle(t *testing.T) {
	var tests = []struct {
		style, weight string
		slant         canvas.FontSlant
		bold          canvas.FontWeight
	}{
		{"", "", canvas.FontSlantNormal, canvas.FontWeightNormal},
		{"italic", "bold", canvas.FontSlantItalic, canvas.FontWeightBold},
		{"oblique", "400", canvas.FontSlantOblique, canvas.FontWeightNormal},
		{"normal", "500", canvas.FontSlantNormal, canvas.FontWeightBold},
		{"normal", "900", canvas.FontSlantNormal, canvas.FontWeightBold},
		{"normal", "lighter", canvas.FontSlantNormal, canvas.FontWeightNormal},
		{"normal", "heavy", canvas.FontSlantNormal, canvas.FontWeightNormal},
	}
	for _, tt := range tests {
		t.Run(tt.style+" "+tt.weight, func(t *testing.T) {
			slant, bold := FontStyle(tt.style, tt.weight)
			test.T(t, slant, tt.slant)
			test.T(t, bold, tt.bold)
		})
	}
}

func TestWarning(t *testing.T) {
	w := Warnf(ParseWarning, nil, "bad path %q", "M x")
	test.String(t, w.Error(), `parse: bad path "M x"`)
}
