package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guixmpp/canvas/dom"
)

// IsXMLMIME returns true for the MIME types of XML documents: text/xml, application/xml and the +xml types.
func IsXMLMIME(mimetype string) bool {
	return mimetype == "text/xml" || mimetype == "application/xml" || strings.HasSuffix(mimetype, "+xml")
}

// IsHTMLMIME returns true for SGML and HTML documents, which are converted to XML trees.
func IsHTMLMIME(mimetype string) bool {
	switch mimetype {
	case "text/sgml", "application/sgml", "text/html":
		return true
	}
	return false
}

// XML is the format of XML documents. SGML and HTML documents are parsed into the same tree.
type XML struct{}

// Create implements Format.
func (XML) Create(data []byte, mimetype string) (Document, error) {
	if IsXMLMIME(mimetype) {
		doc, err := dom.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		return doc, nil
	} else if IsHTMLMIME(mimetype) {
		doc, err := dom.ParseHTML(data)
		if err != nil {
			return nil, fmt.Errorf("html: %w", err)
		}
		return doc, nil
	}
	return nil, ErrNotImplemented
}

// Is implements Format.
func (XML) Is(doc Document) bool {
	_, ok := doc.(*dom.Document)
	return ok
}

// Links implements LinkScanner. The links of a generic XML document are its stylesheet instructions.
func (XML) Links(doc Document) ([]string, error) {
	return append([]string{}, doc.(*dom.Document).Stylesheets...), nil
}

// Fragment implements Fragmenter.
func (XML) Fragment(doc Document, id string) (Document, error) {
	frag, err := doc.(*dom.Document).Fragment(id)
	if err != nil {
		return nil, fmt.Errorf("#%s: %w", id, err)
	}
	return frag, nil
}

// TabIndex implements TabIndexer. Elements are focusable when they carry a tabindex attribute.
func (XML) TabIndex(_ Document, e dom.Element) (int, bool, error) {
	s, ok := e.Attr("tabindex")
	if !ok {
		return 0, false, nil
	}
	index, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false, fmt.Errorf("tabindex: %w", err)
	}
	return index, true, nil
}
