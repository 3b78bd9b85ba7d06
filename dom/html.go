package dom

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
)

var htmlNamespaces = map[string]string{
	"svg":   SVGNamespace,
	"math":  "http://www.w3.org/1998/Math/MathML",
	"xlink": XLinkNamespace,
	"xml":   XMLNamespace,
}

// ParseHTML parses an SGML or HTML document into an XML tree. HTML elements have no namespace; embedded SVG
// keeps its namespace.
func ParseHTML(b []byte) (*Document, error) {
	top, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	var convert func(*html.Node) *Node
	convert = func(h *html.Node) *Node {
		attrs := make([]Attr, 0, len(h.Attr))
		for _, attr := range h.Attr {
			attrs = append(attrs, Attr{Name(htmlNamespaces[attr.Namespace], attr.Key), attr.Val})
		}
		n := NewNode(Name(htmlNamespaces[h.Namespace], h.Data), attrs...)
		var prev *Node
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.ElementNode:
				prev = convert(c)
				n.Append(prev)
			case html.TextNode:
				if prev != nil {
					prev.tail += c.Data
				} else {
					n.text += c.Data
				}
			}
		}
		return n
	}
	for c := top.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return NewDocument(convert(c)), nil
		}
	}
	return nil, fmt.Errorf("expected root element")
}
