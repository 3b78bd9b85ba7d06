package dom

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
	"golang.org/x/net/html/charset"
)

type scope struct {
	prefixes map[string]string
	parent   *scope
}

func (s *scope) lookup(prefix string) (string, bool) {
	for ; s != nil; s = s.parent {
		if ns, ok := s.prefixes[prefix]; ok {
			return ns, true
		}
	}
	return "", false
}

// Parse parses an XML document.
func Parse(b []byte) (*Document, error) {
	return ParseNS(b, "")
}

// ParseNS parses an XML document whose unprefixed elements without a default namespace declaration belong to
// defaultNS. Documents declaring a non UTF-8 encoding are decoded first.
func ParseNS(b []byte, defaultNS string) (*Document, error) {
	if enc := declaredEncoding(b); enc != "" && !strings.EqualFold(enc, "utf-8") && !strings.EqualFold(enc, "us-ascii") {
		r, err := charset.NewReaderLabel(enc, bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", enc, err)
		}
		if b, err = io.ReadAll(r); err != nil {
			return nil, err
		}
	}

	z := parse.NewInputBytes(append([]byte{}, b...))
	l := xml.NewLexer(z)

	var root *Node
	var stylesheets []string
	var stack []*Node
	var prev *Node // last closed element, receives tail text
	sc := &scope{prefixes: map[string]string{"xml": XMLNamespace, "": defaultNS}}

	addText := func(text string) {
		if len(stack) == 0 {
			return
		} else if prev != nil && prev.parent == stack[len(stack)-1] {
			prev.tail += text
		} else {
			stack[len(stack)-1].text += text
		}
	}

	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			if l.Err() != io.EOF {
				return nil, l.Err()
			} else if root == nil {
				return nil, fmt.Errorf("expected root element")
			} else if len(stack) != 0 {
				return nil, fmt.Errorf("unclosed element %s", Local(stack[len(stack)-1].tag))
			}
			doc := NewDocument(root)
			doc.Stylesheets = stylesheets
			return doc, nil
		case xml.StartTagPIToken:
			target := string(l.Text())
			attrs := map[string]string{}
			for {
				tt, _ = l.Next()
				if tt != xml.AttributeToken {
					break
				}
				attrs[string(l.Text())] = attrValue(l.AttrVal())
			}
			if target == "xml-stylesheet" && root == nil {
				if href, ok := attrs["href"]; ok {
					stylesheets = append(stylesheets, href)
				}
			}
		case xml.StartTagToken:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("junk after document element")
			}
			name := string(l.Text())
			var raw []Attr
			for {
				tt, _ = l.Next()
				if tt != xml.AttributeToken {
					break
				}
				raw = append(raw, Attr{string(l.Text()), attrValue(l.AttrVal())})
			}

			sc = &scope{prefixes: map[string]string{}, parent: sc}
			attrs := make([]Attr, 0, len(raw))
			for _, attr := range raw {
				if attr.Name == "xmlns" {
					sc.prefixes[""] = attr.Value
				} else if strings.HasPrefix(attr.Name, "xmlns:") {
					sc.prefixes[attr.Name[6:]] = attr.Value
				}
			}
			for _, attr := range raw {
				if attr.Name == "xmlns" || strings.HasPrefix(attr.Name, "xmlns:") {
					continue
				}
				if i := strings.IndexByte(attr.Name, ':'); i != -1 {
					ns, ok := sc.lookup(attr.Name[:i])
					if !ok {
						return nil, fmt.Errorf("undeclared namespace prefix %s", attr.Name[:i])
					}
					attr.Name = Name(ns, attr.Name[i+1:])
				}
				attrs = append(attrs, attr)
			}
			tag := name
			if i := strings.IndexByte(name, ':'); i != -1 {
				ns, ok := sc.lookup(name[:i])
				if !ok {
					return nil, fmt.Errorf("undeclared namespace prefix %s", name[:i])
				}
				tag = Name(ns, name[i+1:])
			} else if ns, _ := sc.lookup(""); ns != "" {
				tag = Name(ns, name)
			}

			n := NewNode(tag, attrs...)
			if len(stack) == 0 {
				root = n
			} else {
				stack[len(stack)-1].Append(n)
			}
			prev = nil
			if tt == xml.StartTagCloseVoidToken {
				prev = n
				sc = sc.parent
			} else {
				stack = append(stack, n)
			}
		case xml.EndTagToken:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end tag %s", string(data))
			}
			n := stack[len(stack)-1]
			if local := Local(n.tag); local != string(l.Text()) && !strings.HasSuffix(string(l.Text()), ":"+local) {
				return nil, fmt.Errorf("mismatched end tag %s for %s", string(l.Text()), local)
			}
			stack = stack[:len(stack)-1]
			prev = n
			sc = sc.parent
		case xml.TextToken:
			addText(html.UnescapeString(string(data)))
		case xml.CDATAToken:
			addText(string(l.Text()))
		}
	}
}

func attrValue(b []byte) string {
	if 2 <= len(b) && (b[0] == '"' || b[0] == '\'') && b[len(b)-1] == b[0] {
		b = b[1 : len(b)-1]
	}
	return html.UnescapeString(string(b))
}

// declaredEncoding returns the encoding of the `<?xml?>` declaration, if any.
func declaredEncoding(b []byte) string {
	if !bytes.HasPrefix(bytes.TrimLeft(b, "\ufeff \t\r\n"), []byte("<?xml ")) {
		return ""
	}
	l := xml.NewLexer(parse.NewInputBytes(append([]byte{}, b...)))
	for {
		tt, _ := l.Next()
		if tt == xml.ErrorToken || tt == xml.StartTagToken {
			return ""
		} else if tt == xml.StartTagPIToken && string(l.Text()) == "xml" {
			for {
				tt, _ = l.Next()
				if tt != xml.AttributeToken {
					return ""
				} else if string(l.Text()) == "encoding" {
					return attrValue(l.AttrVal())
				}
			}
		}
	}
}
