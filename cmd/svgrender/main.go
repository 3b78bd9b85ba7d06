package main

import (
	"context"
	"fmt"
	"image/color"
	"image/gif"
	"image/jpeg"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pkg/browser"
	"github.com/tdewolff/argp"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	minifySVG "github.com/tdewolff/minify/v2/svg"
	"golang.org/x/image/tiff"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/download"
	"github.com/guixmpp/canvas/events"
	"github.com/guixmpp/canvas/format"
	"github.com/guixmpp/canvas/model"
	"github.com/guixmpp/canvas/renderers/rasterizer"
	"github.com/guixmpp/canvas/renderers/svg"
	"github.com/guixmpp/canvas/view"
)

type Render struct {
	Width       float64 `short:"W" desc:"Viewport width, default is the natural width"`
	Height      float64 `short:"H" desc:"Viewport height, default is the natural height"`
	Output      string  `short:"o" desc:"Output file (.png, .jpg, .gif, .tif or .svg)"`
	Background  string  `short:"b" default:"white" desc:"Background color name, or transparent"`
	Quality     int     `short:"q" default:"90" desc:"JPEG quality"`
	Compression int     `default:"0" desc:"Gzip level for SVG output"`
	Open        bool    `desc:"Open the output in the browser"`
	Verbose     bool    `short:"v" desc:"Log downloads and warnings"`
	Input       string  `index:"0" desc:"Input file or URL"`
}

type Poke struct {
	Width   float64 `short:"W" desc:"Viewport width, default is the natural width"`
	Height  float64 `short:"H" desc:"Viewport height, default is the natural height"`
	X       float64 `short:"x" desc:"Pointer X coordinate"`
	Y       float64 `short:"y" desc:"Pointer Y coordinate"`
	Verbose bool    `short:"v" desc:"Log downloads and warnings"`
	Input   string  `index:"0" desc:"Input file or URL"`
}

type Info struct {
	Minify  bool   `short:"m" desc:"Print the minified SVG source"`
	Verbose bool   `short:"v" desc:"Log downloads and warnings"`
	Input   string `index:"0" desc:"Input file or URL"`
}

func main() {
	root := argp.NewCmd(&Render{}, "SVG document renderer and hit tester")
	root.AddCmd(&Poke{}, "poke", "List the elements under a point, outermost first")
	root.AddCmd(&Info{}, "info", "Show document size, loaded resources and warnings")
	root.Parse()
	root.PrintHelp()
}

// location returns the URL of a command line argument, local paths become file: URLs.
func location(input string) (string, error) {
	if download.Scheme(input) != "" {
		return input, nil
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// document is an opened document with the view it is shown in.
type document struct {
	m   *model.Model
	v   *view.Headless
	doc format.Document
}

func open(input string, width, height float64, verbose bool) (*document, error) {
	if input == "" {
		return nil, argp.ShowUsage
	}
	url, err := location(input)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := model.New(&model.Options{Logger: newLogger(verbose)})
	v := view.NewHeadless(width, height)
	doc, err := m.OpenDocument(ctx, v, url)
	if err != nil {
		return nil, err
	} else if doc == nil {
		return nil, fmt.Errorf("%s: opening was cancelled", input)
	}

	if width <= 0.0 || height <= 0.0 {
		w, h, err := m.ImageDimensions(v, doc)
		if err != nil {
			return nil, err
		}
		if width <= 0.0 && height <= 0.0 {
			width, height = w, h
		} else if width <= 0.0 {
			if width, err = m.ImageWidthForHeight(v, doc, height); err != nil {
				return nil, err
			}
		} else if height, err = m.ImageHeightForWidth(v, doc, width); err != nil {
			return nil, err
		}
		v.Width, v.Height = math.Ceil(width), math.Ceil(height)
	}
	return &document{m, v, doc}, nil
}

func (d *document) box() canvas.Rect {
	return canvas.Rect{X: 0.0, Y: 0.0, W: d.v.Width, H: d.v.Height}
}

func (d *document) close() error {
	return d.m.CloseDocument(context.Background(), d.v)
}

func background(name string) (color.Color, error) {
	if name == "" || name == "transparent" {
		return canvas.Transparent, nil
	}
	c, ok := canvas.NamedColor(strings.ToLower(name))
	if !ok {
		return nil, fmt.Errorf("unknown color %s", name)
	}
	return c, nil
}

func (cmd *Render) Run() error {
	if cmd.Output == "" {
		fmt.Println("ERROR: must specify output filename")
		return argp.ShowUsage
	}
	bg, err := background(cmd.Background)
	if err != nil {
		return err
	}

	d, err := open(cmd.Input, cmd.Width, cmd.Height, cmd.Verbose)
	if err != nil {
		return err
	}
	defer d.close()

	f, err := os.Create(cmd.Output)
	if err != nil {
		return err
	}
	defer f.Close()

	width, height := int(d.v.Width), int(d.v.Height)
	if ext := strings.ToLower(filepath.Ext(cmd.Output)); ext == ".svg" || ext == ".svgz" {
		opts := svg.DefaultOptions
		opts.Compression = cmd.Compression
		if ext == ".svgz" && opts.Compression == 0 {
			opts.Compression = -1
		}
		r := svg.New(f, width, height, &opts)
		ctx := canvas.New(r)
		ctx.Fonts = d.m.Fonts()
		d.m.DrawImage(d.v, d.doc, ctx, d.box())
		if err := r.Close(); err != nil {
			return err
		}
	} else {
		var writer rasterizer.Writer
		switch ext {
		case ".png":
			writer = rasterizer.PNGWriter()
		case ".jpg", ".jpeg":
			writer = rasterizer.JPGWriter(&jpeg.Options{Quality: cmd.Quality})
		case ".gif":
			writer = rasterizer.GIFWriter(&gif.Options{NumColors: 256})
		case ".tif", ".tiff":
			writer = rasterizer.TIFFWriter(&tiff.Options{Compression: tiff.Deflate})
		default:
			return fmt.Errorf("unknown output format %s", ext)
		}
		r := rasterizer.NewRGBA(width, height, bg)
		ctx := canvas.New(r)
		ctx.Fonts = d.m.Fonts()
		d.m.DrawImage(d.v, d.doc, ctx, d.box())
		if err := writer(f, r.Image()); err != nil {
			return err
		}
	}

	if cmd.Open {
		abs, err := filepath.Abs(cmd.Output)
		if err != nil {
			return err
		}
		return browser.OpenFile(abs)
	}
	return nil
}

func (cmd *Poke) Run() error {
	d, err := open(cmd.Input, cmd.Width, cmd.Height, cmd.Verbose)
	if err != nil {
		return err
	}
	defer d.close()

	rec := canvas.NewRecorder(int(d.v.Width), int(d.v.Height))
	ctx := canvas.New(rec)
	ctx.Fonts = d.m.Fonts()
	chain := d.m.Motion(d.v, ctx, d.box(), view.Sample{X: cmd.X, Y: cmd.Y, ScreenX: cmd.X, ScreenY: cmd.Y})
	for depth, e := range chain {
		fmt.Printf("%s%s", strings.Repeat("  ", depth), dom.Local(e.Tag()))
		if id, ok := dom.ID(e); ok {
			fmt.Printf(" #%s", id)
		}
		if href, ok := dom.Href(e); ok {
			fmt.Printf(" -> %s", href)
		}
		fmt.Println()
	}
	if len(chain) == 0 {
		fmt.Println("no element")
	}
	return nil
}

func (cmd *Info) Run() error {
	d, err := open(cmd.Input, 0.0, 0.0, cmd.Verbose)
	if err != nil {
		return err
	}
	defer d.close()

	if cmd.Minify {
		return writeMinified(os.Stdout, cmd.Input)
	}

	w, h, err := d.m.ImageDimensions(d.v, d.doc)
	if err != nil {
		return err
	}
	url, _ := d.m.CurrentLocation(d.v)
	fmt.Println("Location:", url)
	fmt.Printf("Size: %gx%g\n", w, h)
	fmt.Println("Documents:")
	for _, url := range d.m.Documents() {
		fmt.Println("  " + url)
	}

	// warnings of drawing are only reported once the document is drawn
	rec := canvas.NewRecorder(int(math.Ceil(w)), int(math.Ceil(h)))
	ctx := canvas.New(rec)
	ctx.Fonts = d.m.Fonts()
	d.m.DrawImage(d.v, d.doc, ctx, d.box())

	warnings := 0
	for _, ev := range d.v.Events() {
		base := ev.Base()
		if base.Type != events.Warning {
			continue
		}
		if warning, ok := base.Detail.(format.Warning); ok {
			if warnings == 0 {
				fmt.Println("Warnings:")
			}
			fmt.Printf("  %s: %s\n", warning.Kind, warning.Message)
			warnings++
		}
	}
	return nil
}

// writeMinified writes the source of a local SVG file minified.
func writeMinified(w io.Writer, input string) error {
	if download.Scheme(input) != "" && download.Scheme(input) != "file" {
		return fmt.Errorf("%s: only local files can be minified", input)
	}
	filename := input
	if download.Scheme(input) == "file" {
		var err error
		if filename, err = download.FilePath(input); err != nil {
			return err
		}
	}
	r, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer r.Close()

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", minifySVG.Minify)
	if err := m.Minify("image/svg+xml", w, r); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
