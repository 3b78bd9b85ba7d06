// Package dom holds the XML document tree used by the stylesheet matcher and the SVG painter.
package dom

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Namespaces.
const (
	SVGNamespace   = "http://www.w3.org/2000/svg"
	XLinkNamespace = "http://www.w3.org/1999/xlink"
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XHTMLNamespace = "http://www.w3.org/1999/xhtml"
)

// ErrFragmentNotFound is returned when no element carries the requested id.
var ErrFragmentNotFound = errors.New("fragment not found")

// Name returns the namespaced name `{ns}local`, or local when ns is empty.
func Name(ns, local string) string {
	if ns == "" {
		return local
	}
	return "{" + ns + "}" + local
}

// Split splits a namespaced name into namespace and local name.
func Split(name string) (string, string) {
	if strings.HasPrefix(name, "{") {
		if i := strings.IndexByte(name, '}'); i != -1 {
			return name[1:i], name[i+1:]
		}
	}
	return "", name
}

// Local returns the local part of a namespaced name.
func Local(name string) string {
	_, local := Split(name)
	return local
}

// Attr is an attribute with a namespaced name.
type Attr struct {
	Name, Value string
}

// Element is a node of the document tree. It is implemented by *Node and by the overlays built for `<use>` and
// gradient references.
type Element interface {
	Tag() string
	Attrs() []Attr
	Attr(name string) (string, bool)
	Parent() Element
	Children() []Element
	Text() string
	Tail() string
	Key() string
}

var nodeSeq uint64

// Node is an element parsed from a document.
type Node struct {
	tag      string
	attrs    []Attr
	text     string
	tail     string
	parent   *Node
	children []*Node
	key      string
}

// NewNode returns a detached element.
func NewNode(tag string, attrs ...Attr) *Node {
	return &Node{
		tag:   tag,
		attrs: attrs,
		key:   "n" + strconv.FormatUint(atomic.AddUint64(&nodeSeq, 1), 10),
	}
}

// Append adds a child element.
func (n *Node) Append(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
}

// SetText sets the text before the first child.
func (n *Node) SetText(text string) {
	n.text = text
}

// SetTail sets the text after the element's end tag.
func (n *Node) SetTail(tail string) {
	n.tail = tail
}

// Set sets an attribute, keeping the attribute order.
func (n *Node) Set(name, value string) {
	for i, attr := range n.attrs {
		if attr.Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{name, value})
}

func (n *Node) Tag() string {
	return n.tag
}

func (n *Node) Attrs() []Attr {
	return n.attrs
}

func (n *Node) Attr(name string) (string, bool) {
	for _, attr := range n.attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Parent returns the parent element or nil for the root.
func (n *Node) Parent() Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []Element {
	children := make([]Element, len(n.children))
	for i, child := range n.children {
		children[i] = child
	}
	return children
}

func (n *Node) Text() string {
	return n.text
}

func (n *Node) Tail() string {
	return n.tail
}

// Key returns an identifier unique to the node.
func (n *Node) Key() string {
	return n.key
}

func (n *Node) String() string {
	return "<" + Local(n.tag) + ">"
}

// Walk calls fn for n and every descendant in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.children {
		child.Walk(fn)
	}
}

// TextContent returns the concatenated text of the element and its descendants.
func TextContent(e Element) string {
	sb := strings.Builder{}
	var walk func(Element)
	walk = func(e Element) {
		sb.WriteString(e.Text())
		for _, child := range e.Children() {
			walk(child)
			sb.WriteString(child.Tail())
		}
	}
	walk(e)
	return sb.String()
}

// ID returns the id or xml:id of an element.
func ID(e Element) (string, bool) {
	if id, ok := e.Attr("id"); ok {
		return id, true
	}
	return e.Attr(Name(XMLNamespace, "id"))
}

// Href returns the href or xlink:href of an element.
func Href(e Element) (string, bool) {
	if href, ok := e.Attr(Name(XLinkNamespace, "href")); ok {
		return href, true
	}
	return e.Attr("href")
}

// Root returns the outermost ancestor.
func Root(e Element) Element {
	for {
		parent := e.Parent()
		if parent == nil {
			return e
		}
		e = parent
	}
}

// AreNodesOrdered returns true if ancestor is descendant or one of its ancestors. An overlay stands in for the
// element that references it.
func AreNodesOrdered(ancestor, descendant Element) bool {
	if ancestor == nil || descendant == nil {
		return false
	}
	keys := []string{ancestor.Key()}
	if overlay, ok := ancestor.(*Overlay); ok {
		keys = append(keys, overlay.Site().Key())
	}
	for e := descendant; e != nil; e = e.Parent() {
		key := e.Key()
		for _, k := range keys {
			if k == key {
				return true
			}
		}
	}
	return false
}

// Document is a parsed XML document or a fragment of one.
type Document struct {
	Root *Node

	// Stylesheets lists the hrefs of `<?xml-stylesheet?>` instructions in document order.
	Stylesheets []string

	parent *Document
	ids    map[string]*Node

	mu        sync.Mutex
	fragments map[string]*Document
}

// NewDocument returns a document for a tree and indexes its ids.
func NewDocument(root *Node) *Document {
	doc := &Document{
		Root:      root,
		ids:       map[string]*Node{},
		fragments: map[string]*Document{},
	}
	root.Walk(func(n *Node) {
		if id, ok := ID(n); ok {
			if _, exists := doc.ids[id]; !exists {
				doc.ids[id] = n
			}
		}
	})
	return doc
}

// Parent returns the document a fragment was taken from, or nil.
func (d *Document) Parent() *Document {
	return d.parent
}

// Top returns the outermost document.
func (d *Document) Top() *Document {
	for d.parent != nil {
		d = d.parent
	}
	return d
}

// ElementByID returns the element with the given id.
func (d *Document) ElementByID(id string) (*Node, bool) {
	n, ok := d.ids[id]
	return n, ok
}

// Fragment returns the document rooted at the element with the given id. Repeated calls return the same
// document.
func (d *Document) Fragment(id string) (*Document, error) {
	top := d.Top()
	top.mu.Lock()
	defer top.mu.Unlock()
	if frag, ok := top.fragments[id]; ok {
		return frag, nil
	}
	n, ok := top.ids[id]
	if !ok {
		return nil, ErrFragmentNotFound
	}
	frag := &Document{
		Root:        n,
		Stylesheets: top.Stylesheets,
		parent:      top,
		ids:         top.ids,
	}
	top.fragments[id] = frag
	return frag, nil
}

// Find returns all elements with the given tag in document order.
func (d *Document) Find(tag string) []*Node {
	var nodes []*Node
	d.Root.Walk(func(n *Node) {
		if n.tag == tag {
			nodes = append(nodes, n)
		}
	})
	return nodes
}

func sortedAttrs(attrs []Attr) string {
	sorted := append([]Attr{}, attrs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	sb := strings.Builder{}
	for _, attr := range sorted {
		sb.WriteString(" ")
		sb.WriteString(attr.Name)
		sb.WriteString("=")
		sb.WriteString(strconv.Quote(attr.Value))
	}
	return sb.String()
}
