package format

import (
	"errors"
	"fmt"
	"sync"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/view"
)

// Registry is an ordered list of formats. Calls are passed to each format in turn until one accepts.
type Registry struct {
	mu      sync.RWMutex
	formats []Format
}

// NewRegistry returns a registry trying the formats in the given order.
func NewRegistry(formats ...Format) *Registry {
	return &Registry{formats: formats}
}

// Default returns a registry with the leaf formats: null, text, binary, stylesheets, fonts, raster images and
// generic XML. Formats for richer documents are inserted in front with Prepend.
func Default() *Registry {
	return NewRegistry(Null{}, Text{}, Binary{}, CSS{}, Font{}, Raster{}, XML{})
}

// Prepend inserts a format before all others.
func (r *Registry) Prepend(f Format) {
	r.mu.Lock()
	r.formats = append([]Format{f}, r.formats...)
	r.mu.Unlock()
}

// Append adds a format after all others.
func (r *Registry) Append(f Format) {
	r.mu.Lock()
	r.formats = append(r.formats, f)
	r.mu.Unlock()
}

// Formats returns the formats in order.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Format{}, r.formats...)
}

func notImplemented(what string, doc Document) error {
	return fmt.Errorf("%s of %T: %w", what, doc, ErrNotImplemented)
}

// Create returns the document of the first format that handles the MIME type.
func (r *Registry) Create(data []byte, mimetype string) (Document, error) {
	for _, f := range r.Formats() {
		doc, err := f.Create(data, mimetype)
		if errors.Is(err, ErrNotImplemented) {
			continue
		} else if err != nil {
			return nil, err
		}
		return doc, nil
	}
	return nil, fmt.Errorf("no format for %s: %w", mimetype, ErrNotImplemented)
}

// Format returns the first format that recognizes the document.
func (r *Registry) Format(doc Document) (Format, bool) {
	for _, f := range r.Formats() {
		if f.Is(doc) {
			return f, true
		}
	}
	return nil, false
}

// Links returns the URLs a document refers to.
func (r *Registry) Links(doc Document) ([]string, error) {
	for _, f := range r.Formats() {
		if c, ok := f.(LinkScanner); ok && f.Is(doc) {
			links, err := c.Links(doc)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return links, err
		}
	}
	return nil, notImplemented("links", doc)
}

// Draw draws a document into the box.
func (r *Registry) Draw(h Host, v view.View, doc Document, ctx canvas.Context, box canvas.Rect) error {
	for _, f := range r.Formats() {
		if c, ok := f.(Drawer); ok && f.Is(doc) {
			err := c.Draw(h, v, doc, ctx, box)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return err
		}
	}
	return notImplemented("draw", doc)
}

// Poke returns the elements under the device point (px,py), from outermost to deepest.
func (r *Registry) Poke(h Host, v view.View, doc Document, ctx canvas.Context, box canvas.Rect, px, py float64) ([]dom.Element, error) {
	for _, f := range r.Formats() {
		if c, ok := f.(Poker); ok && f.Is(doc) {
			chain, err := c.Poke(h, v, doc, ctx, box, px, py)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return chain, err
		}
	}
	return nil, notImplemented("poke", doc)
}

// Dimensions returns the natural size of a document.
func (r *Registry) Dimensions(h Host, v view.View, doc Document) (float64, float64, error) {
	for _, f := range r.Formats() {
		if c, ok := f.(Dimensioner); ok && f.Is(doc) {
			width, height, err := c.Dimensions(h, v, doc)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return width, height, err
		}
	}
	return 0.0, 0.0, notImplemented("dimensions", doc)
}

// WidthForHeight returns the width of a document drawn at the given height.
func (r *Registry) WidthForHeight(h Host, v view.View, doc Document, height float64) (float64, error) {
	for _, f := range r.Formats() {
		if c, ok := f.(Sizer); ok && f.Is(doc) {
			width, err := c.WidthForHeight(h, v, doc, height)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return width, err
		}
	}
	w, hh, err := r.Dimensions(h, v, doc)
	if err != nil {
		return 0.0, err
	} else if hh == 0.0 {
		return 0.0, nil
	}
	return height * w / hh, nil
}

// HeightForWidth returns the height of a document drawn at the given width.
func (r *Registry) HeightForWidth(h Host, v view.View, doc Document, width float64) (float64, error) {
	for _, f := range r.Formats() {
		if c, ok := f.(Sizer); ok && f.Is(doc) {
			height, err := c.HeightForWidth(h, v, doc, width)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return height, err
		}
	}
	w, hh, err := r.Dimensions(h, v, doc)
	if err != nil {
		return 0.0, err
	} else if w == 0.0 {
		return 0.0, nil
	}
	return width * hh / w, nil
}

// TabIndex returns the tab index of an element of a document.
func (r *Registry) TabIndex(doc Document, e dom.Element) (int, bool, error) {
	for _, f := range r.Formats() {
		if c, ok := f.(TabIndexer); ok && f.Is(doc) {
			index, ok, err := c.TabIndex(doc, e)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return index, ok, err
		}
	}
	return 0, false, nil
}

// Fragment returns the part of a document identified by id.
func (r *Registry) Fragment(doc Document, id string) (Document, error) {
	for _, f := range r.Formats() {
		if c, ok := f.(Fragmenter); ok && f.Is(doc) {
			frag, err := c.Fragment(doc, id)
			if errors.Is(err, ErrNotImplemented) {
				continue
			}
			return frag, err
		}
	}
	return nil, notImplemented("fragment", doc)
}

// Open notifies the formats of a document that it has been loaded. All formats recognizing the document are
// notified.
func (r *Registry) Open(h Host, v view.View, doc Document) error {
	var errs []error
	for _, f := range r.Formats() {
		if c, ok := f.(Opener); ok && f.Is(doc) {
			if err := c.Open(h, v, doc); err != nil && !errors.Is(err, ErrNotImplemented) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close notifies the formats of a document that it is closed.
func (r *Registry) Close(h Host, v view.View, doc Document) error {
	var errs []error
	for _, f := range r.Formats() {
		if c, ok := f.(Opener); ok && f.Is(doc) {
			if err := c.Close(h, v, doc); err != nil && !errors.Is(err, ErrNotImplemented) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Invalidate drops the caches of all formats.
func (r *Registry) Invalidate() {
	for _, f := range r.Formats() {
		if c, ok := f.(Invalidator); ok {
			c.Invalidate()
		}
	}
}

// AreNodesOrdered returns true if ancestor is descendant or one of its ancestors.
func (r *Registry) AreNodesOrdered(ancestor, descendant dom.Element) bool {
	return dom.AreNodesOrdered(ancestor, descendant)
}
