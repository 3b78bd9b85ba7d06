package rasterizer

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/golang/freetype/raster"
	"github.com/guixmpp/canvas"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"
	"golang.org/x/image/vector"
)

// Writer encodes an image.
type Writer func(io.Writer, image.Image) error

// PNGWriter writes the image as a PNG file.
func PNGWriter() Writer {
	return func(w io.Writer, img image.Image) error {
		return png.Encode(w, img)
	}
}

// JPGWriter writes the image as a JPG file.
func JPGWriter(opts *jpeg.Options) Writer {
	return func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, opts)
	}
}

// GIFWriter writes the image as a GIF file.
func GIFWriter(opts *gif.Options) Writer {
	return func(w io.Writer, img image.Image) error {
		return gif.Encode(w, img, opts)
	}
}

// TIFFWriter writes the image as a TIFF file.
func TIFFWriter(opts *tiff.Options) Writer {
	return func(w io.Writer, img image.Image) error {
		return tiff.Encode(w, img, opts)
	}
}

// Rasterizer is a rasterizing renderer.
type Rasterizer struct {
	img draw.Image
}

// New returns a renderer that draws to a rasterized image.
func New(img draw.Image) *Rasterizer {
	return &Rasterizer{
		img: img,
	}
}

// NewRGBA returns a renderer drawing to a new image of the given size filled with background.
func NewRGBA(width, height int, background color.Color) *Rasterizer {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if background != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	}
	return New(img)
}

// Size returns the size of the image in pixels.
func (r *Rasterizer) Size() (int, int) {
	size := r.img.Bounds().Size()
	return size.X, size.Y
}

// Image returns the destination image.
func (r *Rasterizer) Image() image.Image {
	return r.img
}

// NewSimilar returns a rasterizer on a new transparent image.
func (r *Rasterizer) NewSimilar(width, height int) canvas.Renderer {
	return New(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// Tag is ignored, images carry no links.
func (r *Rasterizer) Tag(bool, string, string) {
}

// Fill renders a filled path in device space.
func (r *Rasterizer) Fill(path *canvas.Path, st *canvas.DrawState) {
	if st.FillRule == canvas.EvenOdd {
		r.fillEvenOdd(path, st)
		return
	}
	r.render(st, func(w, h int, scanner rasterx.Scanner) {
		filler := rasterx.NewFiller(w, h, scanner)
		addPath(filler, path)
		filler.Draw()
	})
}

// fillEvenOdd composites the source through an even-odd coverage mask, as the rasterx scanner only fills by the
// nonzero rule.
func (r *Rasterizer) fillEvenOdd(path *canvas.Path, st *canvas.DrawState) {
	w, h := r.Size()
	if w <= 0 || h <= 0 {
		return
	}
	mask := evenOddMask(w, h, path)
	if clip := clipMask(w, h, st.Clip); clip != nil {
		intersect(mask, clip)
	}
	bounds := r.img.Bounds()
	draw.DrawMask(r.img, bounds, sourceImage(st.Source, bounds), bounds.Min, mask, image.Point{}, draw.Over)
}

// Stroke renders a stroked path in device space. The stroke width and dashes are given in user space and scaled
// by the transformation that was current when stroking.
func (r *Rasterizer) Stroke(path *canvas.Path, st *canvas.DrawState) {
	scale := st.Matrix.ScaleFactor()
	width := st.Stroke.Width * scale
	if width <= 0.0 {
		return
	}
	var dashes []float64
	for _, d := range st.Stroke.Dashes {
		dashes = append(dashes, d*scale)
	}

	capFunc := rasterx.ButtCap
	switch st.Stroke.Cap {
	case canvas.RoundCap:
		capFunc = rasterx.RoundCap
	case canvas.SquareCap:
		capFunc = rasterx.SquareCap
	}
	gapFunc := rasterx.FlatGap
	joinMode := rasterx.Miter
	switch st.Stroke.Join {
	case canvas.RoundJoin:
		joinMode = rasterx.Round
		gapFunc = rasterx.RoundGap
	case canvas.BevelJoin:
		joinMode = rasterx.Bevel
	}

	r.render(st, func(w, h int, scanner rasterx.Scanner) {
		dasher := rasterx.NewDasher(w, h, scanner)
		dasher.SetStroke(fixed.Int26_6(width*64.0), fixed.Int26_6(st.Stroke.MiterLimit*64.0), capFunc, capFunc, gapFunc, joinMode, dashes, st.Stroke.DashOffset*scale)
		addPath(dasher, path)
		dasher.Draw()
	})
}

// render draws directly onto the destination when there is no clip, otherwise onto a transparent layer that is
// composited through the clip mask.
func (r *Rasterizer) render(st *canvas.DrawState, fn func(int, int, rasterx.Scanner)) {
	w, h := r.Size()
	if w <= 0 || h <= 0 {
		return
	}
	if len(st.Clip) == 0 {
		scanner := rasterx.NewScannerGV(w, h, r.img, r.img.Bounds())
		setSource(scanner, st.Source)
		fn(w, h, scanner)
		return
	}

	layer := image.NewRGBA(r.img.Bounds())
	scanner := rasterx.NewScannerGV(w, h, layer, layer.Bounds())
	setSource(scanner, st.Source)
	fn(w, h, scanner)
	draw.DrawMask(r.img, r.img.Bounds(), layer, layer.Bounds().Min, clipMask(w, h, st.Clip), image.Point{}, draw.Over)
}

func setSource(scanner rasterx.Scanner, src canvas.Source) {
	if col, ok := src.IsSolid(); ok {
		scanner.SetColor(col)
		return
	}
	inv := src.Matrix.Inv()
	paint := src.Paint
	scanner.SetColor(rasterx.ColorFunc(func(x, y int) color.Color {
		if paint == nil {
			return color.RGBA{}
		}
		return paint.At(inv.Dot(canvas.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}))
	}))
}

// sourceImage returns the source as an image in device space.
func sourceImage(src canvas.Source, bounds image.Rectangle) image.Image {
	if col, ok := src.IsSolid(); ok {
		return image.NewUniform(col)
	}
	return paintImage{src.Paint, src.Matrix.Inv(), bounds}
}

// paintImage evaluates a paint at the pixel centers.
type paintImage struct {
	paint  canvas.Paint
	inv    canvas.Matrix
	bounds image.Rectangle
}

func (p paintImage) ColorModel() color.Model {
	return color.RGBAModel
}

func (p paintImage) Bounds() image.Rectangle {
	return p.bounds
}

func (p paintImage) At(x, y int) color.Color {
	if p.paint == nil {
		return color.RGBA{}
	}
	return p.paint.At(p.inv.Dot(canvas.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}))
}

func addPath(a rasterx.Adder, path *canvas.Path) {
	open := false
	for _, seg := range path.Segments() {
		switch seg.Cmd {
		case canvas.MoveToCmd:
			if open {
				a.Stop(false)
			}
			a.Start(canvas.ToP26_6(seg.P[0]))
			open = true
		case canvas.LineToCmd:
			a.Line(canvas.ToP26_6(seg.P[0]))
		case canvas.CubeToCmd:
			a.CubeBezier(canvas.ToP26_6(seg.P[0]), canvas.ToP26_6(seg.P[1]), canvas.ToP26_6(seg.P[2]))
		case canvas.CloseCmd:
			a.Stop(true)
			open = false
		}
	}
	if open {
		a.Stop(false)
	}
}

// clipMask returns the intersection of all clip paths as an alpha mask.
func clipMask(w, h int, clips []canvas.ClipPath) *image.Alpha {
	var mask *image.Alpha
	for _, clip := range clips {
		m := image.NewAlpha(image.Rect(0, 0, w, h))
		if clip.Rule == canvas.NonZero {
			ras := vector.NewRasterizer(w, h)
			toVector(ras, clip.Path)
			ras.Draw(m, m.Bounds(), image.Opaque, image.Point{})
		} else {
			m = evenOddMask(w, h, clip.Path)
		}
		if mask == nil {
			mask = m
			continue
		}
		intersect(mask, m)
	}
	return mask
}

// intersect multiplies the coverage of mask by that of m, both of the same size.
func intersect(mask, m *image.Alpha) {
	for i := range mask.Pix {
		mask.Pix[i] = uint8(uint16(mask.Pix[i]) * uint16(m.Pix[i]) / 255)
	}
}

// evenOddMask returns the coverage of the path filled by the even-odd rule. Open subpaths are closed.
func evenOddMask(w, h int, path *canvas.Path) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	ras := raster.NewRasterizer(w, h)
	ras.UseNonZeroWinding = false

	var start fixed.Point26_6
	open := false
	for _, seg := range path.Segments() {
		switch seg.Cmd {
		case canvas.MoveToCmd:
			if open {
				ras.Add1(start)
			}
			start = canvas.ToP26_6(seg.P[0])
			ras.Start(start)
			open = true
		case canvas.LineToCmd:
			ras.Add1(canvas.ToP26_6(seg.P[0]))
		case canvas.CubeToCmd:
			ras.Add3(canvas.ToP26_6(seg.P[0]), canvas.ToP26_6(seg.P[1]), canvas.ToP26_6(seg.P[2]))
		case canvas.CloseCmd:
			ras.Add1(start)
			open = false
		}
	}
	if open {
		ras.Add1(start)
	}
	ras.Rasterize(raster.NewAlphaSrcPainter(m))
	return m
}

func toVector(ras *vector.Rasterizer, path *canvas.Path) {
	for _, seg := range path.Segments() {
		switch seg.Cmd {
		case canvas.MoveToCmd:
			ras.MoveTo(float32(seg.P[0].X), float32(seg.P[0].Y))
		case canvas.LineToCmd:
			ras.LineTo(float32(seg.P[0].X), float32(seg.P[0].Y))
		case canvas.CubeToCmd:
			ras.CubeTo(float32(seg.P[0].X), float32(seg.P[0].Y), float32(seg.P[1].X), float32(seg.P[1].Y), float32(seg.P[2].X), float32(seg.P[2].Y))
		case canvas.CloseCmd:
			ras.ClosePath()
		}
	}
}
