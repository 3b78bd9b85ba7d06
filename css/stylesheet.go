package css

import (
	"fmt"
	"strings"
)

// RuleKind is the kind of a rule.
type RuleKind int

// see RuleKind
const (
	StyleRule    RuleKind = iota // selectors { declarations }
	AtStyleRule                  // @font-face { declarations }
	AtBlockRule                  // @media prelude { rules }
	AtSimpleRule                 // @import prelude;
)

var atStyleRules = map[string]bool{
	"font-face":         true,
	"color-profile":     true,
	"counter-style":     true,
	"swash":             true,
	"annotation":        true,
	"ornaments":         true,
	"stylistic":         true,
	"styleset":          true,
	"character-variant": true,
	"page":              true,
}

var atBlockRules = map[string]bool{
	"font-feature-values": true,
	"font-palette-values": true,
	"keyframes":           true,
	"layer":               true,
	"media":               true,
	"supports":            true,
}

var atSimpleRules = map[string]bool{
	"charset":   true,
	"import":    true,
	"namespace": true,
}

// Declaration is a property or custom property declaration.
type Declaration struct {
	Name      string
	Values    []Component
	Important bool
}

// Value returns the declared value as text.
func (d Declaration) Value() string {
	return Serialize(d.Values)
}

func (d Declaration) String() string {
	s := d.Name + ":" + d.Value()
	if d.Important {
		s += "!important"
	}
	return s
}

// Rule is a style rule or an at-rule.
type Rule struct {
	Kind         RuleKind
	Name         string // at-rule name
	Prelude      []Component
	Media        []MediaQuery // for @media
	Selectors    SelectorList // for style rules
	Declarations []Declaration
	Rules        []Rule // nested scope of block at-rules
}

// Stylesheet is a parsed stylesheet.
type Stylesheet struct {
	Rules    []Rule
	Warnings []string
}

// Parse parses a stylesheet. Syntax problems never fail the parse, they are collected in Warnings and the
// offending item is skipped.
func Parse(src string) *Stylesheet {
	components, warnings := Structure(Lex(src))
	sheet := &Stylesheet{Warnings: warnings}
	sheet.Rules = sheet.blocks(components)
	return sheet
}

// ParseInline parses the contents of a style attribute as the declarations of a `* { ... }` rule.
func ParseInline(style string) *Stylesheet {
	return Parse("* {" + style + "}")
}

func (sheet *Stylesheet) warn(format string, args ...any) {
	sheet.Warnings = append(sheet.Warnings, fmt.Sprintf(format, args...))
}

func (sheet *Stylesheet) blocks(components []Component) []Rule {
	rules := []Rule{}
	for _, item := range Items(components) {
		last := item[len(item)-1]
		if item[0].Kind == AtToken && item[0].Group == NoBracket {
			name := strings.ToLower(item[0].Data)
			prelude := item[1:]
			if last.Group == Curly || last.Is(";") {
				prelude = prelude[:len(prelude)-1]
			}
			prelude = stripSpace(prelude)

			if atStyleRules[name] {
				if last.Group != Curly {
					sheet.warn("@%s without block", name)
					continue
				}
				rules = append(rules, Rule{
					Kind:         AtStyleRule,
					Name:         name,
					Prelude:      prelude,
					Declarations: sheet.declarations(last.Children),
				})
			} else if atBlockRules[name] {
				if last.Group != Curly {
					sheet.warn("@%s without block", name)
					continue
				}
				rule := Rule{
					Kind:    AtBlockRule,
					Name:    name,
					Prelude: prelude,
				}
				if name == "media" {
					rule.Media = ParseMedia(prelude)
				}
				if name == "keyframes" || name == "font-feature-values" || name == "font-palette-values" {
					rule.Rules = []Rule{} // not style scopes
				} else {
					rule.Rules = sheet.blocks(last.Children)
				}
				rules = append(rules, rule)
			} else if atSimpleRules[name] {
				if !last.Is(";") && last.Group == Curly {
					sheet.warn("@%s with block", name)
					continue
				}
				rules = append(rules, Rule{
					Kind:    AtSimpleRule,
					Name:    name,
					Prelude: prelude,
				})
			} else {
				sheet.warn("unsupported at-rule @%s", name)
			}
			continue
		}

		if last.Group != Curly {
			sheet.warn("style rule without block: %s", Serialize(item))
			continue
		}
		selectors, err := ParseSelectors(item[:len(item)-1])
		if err != nil {
			sheet.warn("%v", err)
			continue
		}
		rules = append(rules, Rule{
			Kind:         StyleRule,
			Selectors:    selectors,
			Declarations: sheet.declarations(last.Children),
		})
	}
	return rules
}

func (sheet *Stylesheet) declarations(components []Component) []Declaration {
	decls := []Declaration{}
	for _, item := range Items(components) {
		if item[len(item)-1].Is(";") {
			item = stripSpace(item[:len(item)-1])
		}
		colon := -1
		for i, c := range item {
			if c.Group == NoBracket && c.Is(":") {
				colon = i
				break
			}
		}
		if colon == -1 {
			sheet.warn("declaration without colon: %s", Serialize(item))
			continue
		}
		name := stripSpace(item[:colon])
		if len(name) != 1 || name[0].Kind != IdentToken && name[0].Kind != VarToken {
			sheet.warn("bad declaration name: %s", Serialize(name))
			continue
		}

		values := stripSpace(item[colon+1:])
		important := false
		if n := len(values); 2 <= n && values[n-1].Kind == IdentToken && strings.EqualFold(values[n-1].Data, "important") && values[n-2].Is("!") {
			important = true
			values = stripSpace(values[:n-2])
		}
		decls = append(decls, Declaration{
			Name:      strings.ToLower(name[0].Data),
			Values:    values,
			Important: important,
		})
		if name[0].Kind == VarToken {
			decls[len(decls)-1].Name = name[0].Data
		}
	}
	return decls
}

// Walk calls fn for every rule, descending into block at-rules.
func (sheet *Stylesheet) Walk(fn func(Rule)) {
	var walk func([]Rule)
	walk = func(rules []Rule) {
		for _, rule := range rules {
			fn(rule)
			if rule.Kind == AtBlockRule {
				walk(rule.Rules)
			}
		}
	}
	walk(sheet.Rules)
}

// Imports returns the URLs of @import rules.
func (sheet *Stylesheet) Imports() []string {
	var urls []string
	for _, rule := range sheet.Rules {
		if rule.Kind != AtSimpleRule || rule.Name != "import" || len(rule.Prelude) == 0 {
			continue
		}
		if first := rule.Prelude[0]; first.Kind == URLToken || first.Kind == StringToken {
			urls = append(urls, first.Data)
		}
	}
	return urls
}

func urls(cs []Component, fn func(string)) {
	for _, c := range cs {
		if c.Kind == URLToken && c.Group == NoBracket {
			fn(c.Data)
		} else if c.Kind == FunctionToken && strings.EqualFold(c.Data, "url") && 0 < len(c.Children) && c.Children[0].Kind == StringToken {
			fn(c.Children[0].Data)
		} else if c.IsGroup() {
			urls(c.Children, fn)
		}
	}
}

// Links returns all URLs a stylesheet refers to: @import targets, url() values of style declarations and the
// sources of @font-face rules, in that order and without duplicates.
func (sheet *Stylesheet) Links() []string {
	seen := map[string]bool{}
	var links []string
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			links = append(links, u)
		}
	}
	for _, u := range sheet.Imports() {
		add(u)
	}
	sheet.Walk(func(rule Rule) {
		if rule.Kind == StyleRule {
			for _, decl := range rule.Declarations {
				urls(decl.Values, add)
			}
		}
	})
	for _, face := range sheet.FontFaces() {
		for _, src := range face.Sources {
			add(src.URL)
		}
	}
	return links
}

// FontSource is one entry of a @font-face src list.
type FontSource struct {
	URL    string
	Format string
}

// FontFace is a @font-face rule.
type FontFace struct {
	Family  string
	Style   string
	Weight  string
	Sources []FontSource
}

// FontFaces returns the @font-face rules.
func (sheet *Stylesheet) FontFaces() []FontFace {
	var faces []FontFace
	for _, rule := range sheet.Rules {
		if rule.Kind != AtStyleRule || rule.Name != "font-face" {
			continue
		}
		face := FontFace{Style: "normal", Weight: "normal"}
		for _, decl := range rule.Declarations {
			switch decl.Name {
			case "font-family":
				face.Family = Unquote(decl.Value())
			case "font-style":
				face.Style = decl.Value()
			case "font-weight":
				face.Weight = decl.Value()
			case "src":
				for _, part := range split(decl.Values, ",") {
					src := FontSource{}
					for _, c := range part {
						if c.Kind == URLToken {
							src.URL = c.Data
						} else if c.Kind == FunctionToken && strings.EqualFold(c.Data, "url") && 0 < len(c.Children) {
							src.URL = Unquote(Serialize(c.Children))
						} else if c.Kind == FunctionToken && strings.EqualFold(c.Data, "format") && 0 < len(c.Children) {
							src.Format = Unquote(Serialize(c.Children))
						}
					}
					if src.URL != "" {
						face.Sources = append(face.Sources, src)
					}
				}
			}
		}
		if face.Family != "" {
			faces = append(faces, face)
		}
	}
	return faces
}

// Unquote strips whitespace and optional matching quotes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if 2 <= len(s) && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
