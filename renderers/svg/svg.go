package svg

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/renderers/rasterizer"
)

// ImageEncoding selects how pattern images are embedded.
type ImageEncoding int

// see ImageEncoding
const (
	Lossless ImageEncoding = iota
	Lossy
)

type Options struct {
	Compression int
	ImageEncoding
}

var DefaultOptions = Options{
	ImageEncoding: Lossless,
}

// SVG is a scalable vector graphics renderer. Paths arrive in device space and are written in pixel units.
type SVG struct {
	w             io.Writer
	zw            *gzip.Writer
	width, height int
	clips         map[*canvas.Path]string
	gradients     map[*canvas.Gradient]string
	nextID        int
	opts          *Options
	err           error
}

// New returns a scalable vector graphics (SVG) renderer of the given size in pixels.
func New(w io.Writer, width, height int, opts *Options) *SVG {
	if opts == nil {
		defaultOptions := DefaultOptions
		opts = &defaultOptions
	}

	r := &SVG{
		w:         w,
		width:     width,
		height:    height,
		clips:     map[*canvas.Path]string{},
		gradients: map[*canvas.Gradient]string{},
		opts:      opts,
	}
	if opts.Compression != 0 {
		if opts.Compression < gzip.HuffmanOnly || gzip.BestCompression < opts.Compression {
			opts.Compression = -1
		}
		r.zw, _ = gzip.NewWriterLevel(w, opts.Compression)
		r.w = r.zw
	}
	r.printf(`<svg version="1.1" width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">`, width, height, width, height)
	return r
}

func (r *SVG) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// Close finishes the SVG and returns the first write error.
func (r *SVG) Close() error {
	r.printf("</svg>")
	if r.zw != nil {
		if err := r.zw.Close(); err != nil && r.err == nil { // does not close underlying writer
			r.err = err
		}
	}
	return r.err
}

// Size returns the size of the canvas in pixels.
func (r *SVG) Size() (int, int) {
	return r.width, r.height
}

// Image returns nil, an SVG holds no pixels.
func (r *SVG) Image() image.Image {
	return nil
}

// NewSimilar returns a raster renderer, since offscreen content is embedded as an image.
func (r *SVG) NewSimilar(width, height int) canvas.Renderer {
	return rasterizer.NewRGBA(width, height, canvas.Transparent)
}

// Tag opens or closes a structural element such as a hyperlink.
func (r *SVG) Tag(begin bool, name, attributes string) {
	if !begin {
		r.printf("</%s>", name)
	} else if attributes == "" {
		r.printf("<%s>", name)
	} else {
		r.printf("<%s %s>", name, strings.ReplaceAll(attributes, "&", "&amp;"))
	}
}

// Fill writes the path filled with the current source.
func (r *SVG) Fill(path *canvas.Path, st *canvas.DrawState) {
	if path.Empty() || st.Source.Paint == nil {
		return
	}
	paint, opacity := r.writePaint(st.Source, canvas.Identity)
	groups := r.openClips(st.Clip)
	r.printf(`<path d="%s`, pathData(path))
	if paint != "#000" {
		r.printf(`" fill="%s`, paint)
	}
	if opacity < 1.0 {
		r.printf(`" fill-opacity="%v`, dec(opacity))
	}
	if st.FillRule == canvas.EvenOdd {
		r.printf(`" fill-rule="evenodd`)
	}
	r.printf(`"/>`)
	r.closeClips(groups)
}

// Stroke writes the path stroked with the current source. The path is mapped back to user space and written with
// the user to device transformation, so that stroke widths and dashes keep their user space meaning.
func (r *SVG) Stroke(path *canvas.Path, st *canvas.DrawState) {
	if path.Empty() || st.Source.Paint == nil || st.Stroke.Width <= 0.0 || st.Matrix.IsSingular() {
		return
	}
	inv := st.Matrix.Inv()
	paint, opacity := r.writePaint(st.Source, inv)
	groups := r.openClips(st.Clip)

	b := &strings.Builder{}
	fmt.Fprintf(b, "fill:none;stroke:%s", paint)
	if opacity < 1.0 {
		fmt.Fprintf(b, ";stroke-opacity:%v", dec(opacity))
	}
	if st.Stroke.Width != 1.0 {
		fmt.Fprintf(b, ";stroke-width:%v", dec(st.Stroke.Width))
	}
	switch st.Stroke.Cap {
	case canvas.RoundCap:
		fmt.Fprintf(b, ";stroke-linecap:round")
	case canvas.SquareCap:
		fmt.Fprintf(b, ";stroke-linecap:square")
	}
	switch st.Stroke.Join {
	case canvas.RoundJoin:
		fmt.Fprintf(b, ";stroke-linejoin:round")
	case canvas.BevelJoin:
		fmt.Fprintf(b, ";stroke-linejoin:bevel")
	default:
		// a miter line join is the default
		if st.Stroke.MiterLimit != 4.0 && 1.0 <= st.Stroke.MiterLimit {
			fmt.Fprintf(b, ";stroke-miterlimit:%v", dec(st.Stroke.MiterLimit))
		}
	}
	if 0 < len(st.Stroke.Dashes) {
		fmt.Fprintf(b, ";stroke-dasharray:%v", dec(st.Stroke.Dashes[0]))
		for _, dash := range st.Stroke.Dashes[1:] {
			fmt.Fprintf(b, " %v", dec(dash))
		}
		if st.Stroke.DashOffset != 0.0 {
			fmt.Fprintf(b, ";stroke-dashoffset:%v", dec(st.Stroke.DashOffset))
		}
	}

	r.printf(`<path d="%s`, pathData(path.Transform(inv)))
	if !st.Matrix.Equals(canvas.Identity) {
		r.printf(`" transform="%s`, matrix(st.Matrix))
	}
	r.printf(`" style="%s"/>`, b.String())
	r.closeClips(groups)
}

// openClips wraps the following content in a group per clip path and returns the number of groups opened.
func (r *SVG) openClips(clips []canvas.ClipPath) int {
	for _, clip := range clips {
		id, ok := r.clips[clip.Path]
		if !ok {
			id = r.id("c")
			r.clips[clip.Path] = id
			r.printf(`<clipPath id="%s"><path d="%s`, id, pathData(clip.Path))
			if clip.Rule == canvas.EvenOdd {
				r.printf(`" clip-rule="evenodd`)
			}
			r.printf(`"/></clipPath>`)
		}
		r.printf(`<g clip-path="url(#%s)">`, id)
	}
	return len(clips)
}

func (r *SVG) closeClips(n int) {
	for i := 0; i < n; i++ {
		r.printf("</g>")
	}
}

func (r *SVG) id(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s%d", prefix, r.nextID)
}

// writePaint writes the definitions needed by a source and returns the fill or stroke value with its opacity.
// The space matrix maps device space to the coordinate space of the element that uses the paint.
func (r *SVG) writePaint(src canvas.Source, space canvas.Matrix) (string, float64) {
	switch paint := src.Paint.(type) {
	case canvas.Color:
		return color(paint), paint.A
	case *canvas.Gradient:
		// gradient space to element space
		m := space.Mul(src.Matrix).Mul(paint.Matrix.Inv())
		id := r.writeGradient(paint, m)
		return "url(#" + id + ")", 1.0
	case *canvas.Pattern:
		if paint.Image == nil {
			return "none", 1.0
		}
		m := space.Mul(src.Matrix).Mul(paint.Matrix.Inv())
		id := r.writePattern(paint, m)
		return "url(#" + id + ")", 1.0
	}
	return "none", 1.0
}

func (r *SVG) writeGradient(g *canvas.Gradient, m canvas.Matrix) string {
	id := r.id("g")
	if g.Kind == canvas.Linear {
		r.printf(`<linearGradient id="%s" gradientUnits="userSpaceOnUse" x1="%v" y1="%v" x2="%v" y2="%v`, id, num(g.X0), num(g.Y0), num(g.X1), num(g.Y1))
	} else {
		r.printf(`<radialGradient id="%s" gradientUnits="userSpaceOnUse" fx="%v" fy="%v" fr="%v" cx="%v" cy="%v" r="%v`, id, num(g.X0), num(g.Y0), num(g.R0), num(g.X1), num(g.Y1), num(g.R1))
	}
	if !m.Equals(canvas.Identity) {
		r.printf(`" gradientTransform="%s`, matrix(m))
	}
	switch g.Extend {
	case canvas.ExtendRepeat:
		r.printf(`" spreadMethod="repeat`)
	case canvas.ExtendReflect:
		r.printf(`" spreadMethod="reflect`)
	}
	r.printf(`">`)
	for _, stop := range g.Stops {
		r.printf(`<stop offset="%v" stop-color="%s`, dec(stop.Offset), color(stop.Color))
		if stop.Color.A < 1.0 {
			r.printf(`" stop-opacity="%v`, dec(stop.Color.A))
		}
		r.printf(`"/>`)
	}
	if g.Kind == canvas.Linear {
		r.printf("</linearGradient>")
	} else {
		r.printf("</radialGradient>")
	}
	return id
}

func (r *SVG) writePattern(p *canvas.Pattern, m canvas.Matrix) string {
	id := r.id("p")
	b := p.Image.Bounds()
	r.printf(`<pattern id="%s" patternUnits="userSpaceOnUse" width="%d" height="%d`, id, b.Dx(), b.Dy())
	if !m.Equals(canvas.Identity) {
		r.printf(`" patternTransform="%s`, matrix(m))
	}
	r.printf(`"><image width="%d" height="%d" xlink:href="`, b.Dx(), b.Dy())
	r.writeImage(p.Image)
	r.printf(`"/></pattern>`)
	return id
}

func (r *SVG) writeImage(img image.Image) {
	buf := &bytes.Buffer{}
	mimetype := "image/png"
	if r.opts.ImageEncoding == Lossy {
		mimetype = "image/jpg"
		if err := jpeg.Encode(buf, img, nil); err != nil && r.err == nil {
			r.err = err
		}
	} else if err := png.Encode(buf, img); err != nil && r.err == nil {
		r.err = err
	}
	r.printf("data:%s;base64,%s", mimetype, base64.StdEncoding.EncodeToString(buf.Bytes()))
}
