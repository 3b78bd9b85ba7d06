package format

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WEBP decoder

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/view"
)

var rasterMIMEs = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
}

// RasterDocument is a decoded raster image.
type RasterDocument struct {
	Image  image.Image
	Format string // name of the decoder, such as png

	// Node is reported by hit tests inside the image.
	Node *dom.Node
}

// Width returns the width in pixels.
func (doc *RasterDocument) Width() int {
	return doc.Image.Bounds().Dx()
}

// Height returns the height in pixels.
func (doc *RasterDocument) Height() int {
	return doc.Image.Bounds().Dy()
}

// Raster is the format of PNG, JPEG, GIF, WEBP, BMP and TIFF images.
type Raster struct{}

// Create implements Format.
func (Raster) Create(data []byte, mimetype string) (Document, error) {
	if _, ok := rasterMIMEs[mimetype]; !ok {
		return nil, ErrNotImplemented
	}
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mimetype, err)
	}
	return &RasterDocument{
		Image:  img,
		Format: name,
		Node:   dom.NewNode("image"),
	}, nil
}

// Is implements Format.
func (Raster) Is(doc Document) bool {
	_, ok := doc.(*RasterDocument)
	return ok
}

// Links implements LinkScanner.
func (Raster) Links(Document) ([]string, error) {
	return nil, nil
}

// Dimensions implements Dimensioner.
func (Raster) Dimensions(_ Host, _ view.View, doc Document) (float64, float64, error) {
	img := doc.(*RasterDocument)
	return float64(img.Width()), float64(img.Height()), nil
}

// Draw implements Drawer. The image is stretched to fill the box.
func (Raster) Draw(_ Host, _ view.View, doc Document, ctx canvas.Context, box canvas.Rect) error {
	img := doc.(*RasterDocument)
	w, h := float64(img.Width()), float64(img.Height())
	if w == 0.0 || h == 0.0 {
		return nil
	}

	ctx.Save()
	defer ctx.Restore()
	ctx.Translate(box.X, box.Y)
	ctx.Scale(box.W/w, box.H/h)
	ctx.SetSource(canvas.NewPattern(img.Image))
	ctx.NewPath()
	ctx.Rectangle(0.0, 0.0, w, h)
	ctx.Fill()
	return nil
}

// Poke implements Poker. The image is hit anywhere inside the box.
func (Raster) Poke(_ Host, _ view.View, doc Document, ctx canvas.Context, box canvas.Rect, px, py float64) ([]dom.Element, error) {
	qx, qy := ctx.DeviceToUser(px, py)
	if box.X <= qx && qx <= box.X+box.W && box.Y <= qy && qy <= box.Y+box.H && ctx.InClip(qx, qy) {
		return []dom.Element{doc.(*RasterDocument).Node}, nil
	}
	return nil, nil
}
