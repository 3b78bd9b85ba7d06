// Package format turns downloaded bytes into documents and dispatches drawing, hit testing and queries on a document
// to the format that handles it.
//
// A Format creates documents and recognizes its own documents. Everything else is optional: a format implements
// the capability interfaces it supports, and any capability method may return ErrNotImplemented to pass the call
// on to the next format in the registry.
package format

import (
	"errors"
	"fmt"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/view"
)

// ErrNotImplemented is returned by a format that does not handle a document or MIME type.
var ErrNotImplemented = errors.New("not implemented")

// Document is a document created by a format. All documents are pointers.
type Document any

// Format creates documents from bytes.
type Format interface {
	// Create returns a document for the data, or ErrNotImplemented if the MIME type is not handled.
	Create(data []byte, mimetype string) (Document, error)

	// Is returns true if the document was created by this format.
	Is(doc Document) bool
}

// LinkScanner lists the URLs a document refers to.
type LinkScanner interface {
	Links(doc Document) ([]string, error)
}

// Drawer draws a document into a box.
type Drawer interface {
	Draw(h Host, v view.View, doc Document, ctx canvas.Context, box canvas.Rect) error
}

// Poker returns the chain of elements under the device point (px,py), from the outermost to the deepest.
type Poker interface {
	Poke(h Host, v view.View, doc Document, ctx canvas.Context, box canvas.Rect, px, py float64) ([]dom.Element, error)
}

// Dimensioner returns the natural size of a document.
type Dimensioner interface {
	Dimensions(h Host, v view.View, doc Document) (float64, float64, error)
}

// Sizer returns the size along one axis for a given size along the other. Formats without it keep the aspect ratio
// of their dimensions.
type Sizer interface {
	WidthForHeight(h Host, v view.View, doc Document, height float64) (float64, error)
	HeightForWidth(h Host, v view.View, doc Document, width float64) (float64, error)
}

// TabIndexer returns the tab index of an element, ok is false for elements that are not focusable.
type TabIndexer interface {
	TabIndex(doc Document, e dom.Element) (int, bool, error)
}

// Fragmenter returns the part of a document identified by a URL fragment.
type Fragmenter interface {
	Fragment(doc Document, id string) (Document, error)
}

// Opener is notified when a document has been loaded with all its links, and when it is closed.
type Opener interface {
	Open(h Host, v view.View, doc Document) error
	Close(h Host, v view.View, doc Document) error
}

// Invalidator drops the caches of a format. It is called whenever documents are loaded or unloaded.
type Invalidator interface {
	Invalidate()
}

// Host is the model as seen from a format. It gives access to the other loaded documents and dispatches nested
// drawing back through the registry.
type Host interface {
	// Document returns a loaded document, or the fragment of one for URLs with a fragment.
	Document(url string) (Document, bool)

	// URL returns the URL a document was loaded from.
	URL(doc Document) (string, bool)

	// ResolveURL resolves rel against base.
	ResolveURL(rel, base string) string

	// Warn reports a problem. Warnings are deduplicated per view.
	Warn(v view.View, w Warning)

	// Fonts returns the font set used for text and web fonts.
	Fonts() *canvas.FontSet

	// Pointed returns the deepest element under the pointer of a view, or nil.
	Pointed(v view.View) dom.Element

	// Focused returns the element holding the keyboard focus of a view, or nil.
	Focused(v view.View) dom.Element

	Draw(v view.View, doc Document, ctx canvas.Context, box canvas.Rect)
	Poke(v view.View, doc Document, ctx canvas.Context, box canvas.Rect, px, py float64) []dom.Element
	Dimensions(v view.View, doc Document) (float64, float64, error)
}

// WarningKind classifies a warning.
type WarningKind string

// see WarningKind
const (
	DownloadWarning   WarningKind = "download"   // transport failure
	CreateWarning     WarningKind = "create"     // malformed document
	ReferenceWarning  WarningKind = "reference"  // missing referenced element or document
	ParseWarning      WarningKind = "parse"      // malformed attribute value
	FeatureWarning    WarningKind = "feature"    // unsupported element, operator or feature
	ProgrammerWarning WarningKind = "programmer" // violated invariant such as a reference cycle
)

// Warning is a problem found while loading or rendering. Warnings never stop a render.
type Warning struct {
	Kind    WarningKind
	Message string
	Target  any // the element, document or URL the warning is about
}

func (w Warning) Error() string {
	return string(w.Kind) + ": " + w.Message
}

// Warnf returns a warning with a formatted message.
func Warnf(kind WarningKind, target any, format string, args ...any) Warning {
	return Warning{kind, fmt.Sprintf(format, args...), target}
}
