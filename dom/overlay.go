package dom

import (
	"strings"
)

// Overlay is an element composed of a referring site and a referenced target, such as a `<use>` element and the
// element it points to, or a gradient and the gradient its href inherits from. The target is never modified.
//
// The tag is the target's tag. Attributes are the target's overridden by the site's, except that the target's
// href is kept (or dropped if it has none) and `transform` and `gradientTransform` concatenate site and target.
// The parent is the site, so that ancestor walks pass through the referring element.
type Overlay struct {
	site, target Element
	attrs        []Attr
	inherit      bool
	key          string
}

func mergeAttrs(site, target Element, skip map[string]bool, prefix string) []Attr {
	attrs := []Attr{}
	set := func(name, value string) {
		for i, attr := range attrs {
			if attr.Name == name {
				attrs[i].Value = value
				return
			}
		}
		attrs = append(attrs, Attr{name, value})
	}
	del := func(name string) {
		for i, attr := range attrs {
			if attr.Name == name {
				attrs = append(attrs[:i], attrs[i+1:]...)
				return
			}
		}
	}

	attrs = append(attrs, target.Attrs()...)
	for _, attr := range site.Attrs() {
		if !skip[attr.Name] {
			set(attr.Name, attr.Value)
		}
	}
	for _, name := range []string{Name(XLinkNamespace, "href"), "href"} {
		if value, ok := target.Attr(name); ok {
			set(name, value)
		} else {
			del(name)
		}
	}
	for _, name := range []string{"transform", "gradientTransform"} {
		siteTransform, _ := site.Attr(name)
		if name == "transform" && prefix != "" {
			siteTransform = strings.TrimSpace(siteTransform + " " + prefix)
		}
		if siteTransform == "" {
			continue
		}
		if targetTransform, ok := target.Attr(name); ok {
			set(name, siteTransform+" "+targetTransform)
		} else {
			set(name, siteTransform)
		}
	}
	return attrs
}

// NewUse returns the overlay that instantiates target at a `<use>` site. The site's x and y become a translation
// between the site's and the target's transforms.
func NewUse(site, target Element) *Overlay {
	prefix := ""
	x, _ := site.Attr("x")
	y, _ := site.Attr("y")
	if x != "" || y != "" {
		if x == "" {
			x = "0"
		}
		if y == "" {
			y = "0"
		}
		prefix = "translate(" + x + "," + y + ")"
	}
	skip := map[string]bool{"x": true, "y": true}
	if Local(target.Tag()) != "symbol" && Local(target.Tag()) != "svg" {
		skip["width"] = true
		skip["height"] = true
	}
	o := &Overlay{
		site:   site,
		target: target,
		attrs:  mergeAttrs(site, target, skip, prefix),
	}
	o.key = site.Key() + "|" + target.Tag() + sortedAttrs(o.attrs)
	return o
}

// NewInherit returns the overlay of an element that inherits attributes and, when it has no element children of
// its own, children from target.
func NewInherit(site, target Element) *Overlay {
	o := &Overlay{
		site:    site,
		target:  target,
		attrs:   mergeAttrs(site, target, nil, ""),
		inherit: true,
	}
	o.key = site.Key() + "|" + target.Tag() + sortedAttrs(o.attrs)
	return o
}

// Site returns the referring element.
func (o *Overlay) Site() Element {
	return o.site
}

// Target returns the referenced element.
func (o *Overlay) Target() Element {
	return o.target
}

func (o *Overlay) Tag() string {
	if o.inherit {
		return o.site.Tag()
	}
	return o.target.Tag()
}

func (o *Overlay) Attrs() []Attr {
	return o.attrs
}

func (o *Overlay) Attr(name string) (string, bool) {
	for _, attr := range o.attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (o *Overlay) Parent() Element {
	return o.site
}

// Children returns the target's children reparented to the overlay.
func (o *Overlay) Children() []Element {
	src := o.target
	if o.inherit && 0 < len(o.site.Children()) {
		src = o.site
	}
	children := src.Children()
	for i, child := range children {
		children[i] = &Shadow{child, o}
	}
	return children
}

func (o *Overlay) Text() string {
	return o.target.Text()
}

func (o *Overlay) Tail() string {
	return o.site.Tail()
}

// Key identifies the overlay by its tag, its sorted attributes and its site.
func (o *Overlay) Key() string {
	return o.key
}

func (o *Overlay) String() string {
	return "<" + Local(o.Tag()) + " overlay>"
}

// Shadow is a descendant of an overlay. It reads from the underlying element but reports the overlay side of the
// tree as its parent.
type Shadow struct {
	Element
	parent Element
}

// Underlying returns the wrapped element.
func (s *Shadow) Underlying() Element {
	return s.Element
}

func (s *Shadow) Parent() Element {
	return s.parent
}

func (s *Shadow) Children() []Element {
	children := s.Element.Children()
	for i, child := range children {
		children[i] = &Shadow{child, s}
	}
	return children
}

func (s *Shadow) Key() string {
	return s.parent.Key() + "/" + s.Element.Key()
}

// Unwrap returns the parsed node underneath shadows, or nil for overlays.
func Unwrap(e Element) *Node {
	for {
		switch v := e.(type) {
		case *Node:
			return v
		case *Shadow:
			e = v.Element
		default:
			return nil
		}
	}
}
