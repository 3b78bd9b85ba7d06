package css

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/dom"
	"github.com/tdewolff/test"
)

func tokenString(tokens []Token) string {
	parts := []string{}
	for _, t := range tokens {
		parts = append(parts, t.Kind.String()+"("+t.Data+")")
	}
	return strings.Join(parts, " ")
}

func TestLex(t *testing.T) {
	var tests = []struct {
		src      string
		expected string
	}{
		{"a  b", "Ident(a) Space( ) Ident(b)"},
		{"1.5e3px 50%", "Number(1.5e3px) Space( ) Number(50%)"},
		{"#fff", "Hash(#fff)"},
		{"--main:1", "Var(--main) Delim(:) Number(1)"},
		{"/* x */a", "Ident(a)"},
		{`"a\41 b"`, "String(aAb)"},
		{`'a\41 b'`, "String(a41 b)"},
		{"url( x.png )", "URL(x.png)"},
		{"rgb(1)", "Function(rgb) Delim(() Number(1) Delim())"},
		{"@media", "At(media)"},
		{"a~=b", "Ident(a) Delim(~) Delim(=) Ident(b)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			test.String(t, tokenString(Lex(tt.src)), tt.expected)
		})
	}
}

func TestStructure(t *testing.T) {
	cs, warnings := Structure(Lex("a { b: rgb(1, 2) [c] }"))
	test.T(t, len(warnings), 0)
	test.T(t, len(cs), 3)
	test.T(t, cs[2].Group, Curly)
	test.String(t, Serialize(cs), "a { b: rgb(1, 2) [c] }")

	curly := stripSpace(cs[2].Children)
	test.T(t, curly[3].Kind, FunctionToken)
	test.T(t, len(split(curly[3].Children, ",")), 2)

	cs, warnings = Structure(Lex("a { b: (c"))
	test.T(t, len(warnings), 2)
	test.T(t, cs[len(cs)-1].Group, Curly)

	_, warnings = Structure(Lex("a ) b"))
	test.T(t, len(warnings), 1)
}

func TestParse(t *testing.T) {
	sheet := Parse(`
@charset "utf-8";
@import url(base.css);
@import "more.css";
@font-face { font-family: "Sans"; src: url(sans.woff2) format("woff2"), url('sans.ttf'); }
@media screen and (min-width: 600px) { rect { fill: red } }
@keyframes spin { from { opacity: 0 } }
rect, .a > circle { fill: blue !important; --size: 2px; background: url(bg.png) }
@unknown x;
`)
	test.T(t, len(sheet.Warnings), 1)
	kinds := []RuleKind{}
	for _, rule := range sheet.Rules {
		kinds = append(kinds, rule.Kind)
	}
	test.T(t, kinds, []RuleKind{AtSimpleRule, AtSimpleRule, AtSimpleRule, AtStyleRule, AtBlockRule, AtBlockRule, StyleRule})

	media := sheet.Rules[4]
	test.String(t, media.Name, "media")
	test.T(t, media.Media, []MediaQuery{{Type: "screen", Features: []MediaFeature{{"min-width", "600px"}}}})
	test.T(t, len(media.Rules), 1)
	test.T(t, len(sheet.Rules[5].Rules), 0)

	style := sheet.Rules[6]
	test.String(t, style.Selectors.String(), "rect, .a > circle")
	test.T(t, len(style.Declarations), 3)
	test.String(t, style.Declarations[0].Name, "fill")
	test.String(t, style.Declarations[0].Value(), "blue")
	test.That(t, style.Declarations[0].Important)
	test.String(t, style.Declarations[1].Name, "--size")

	test.T(t, sheet.Imports(), []string{"base.css", "more.css"})
	test.T(t, sheet.Links(), []string{"base.css", "more.css", "bg.png", "sans.woff2", "sans.ttf"})
	test.T(t, sheet.FontFaces(), []FontFace{{
		Family:  "Sans",
		Style:   "normal",
		Weight:  "normal",
		Sources: []FontSource{{"sans.woff2", "woff2"}, {"sans.ttf", ""}},
	}})
}

func TestParseRecovers(t *testing.T) {
	sheet := Parse("a { fill red; stroke: blue } b > { fill: red } c { fill: green }")
	test.T(t, len(sheet.Rules), 2)
	test.T(t, len(sheet.Rules[0].Declarations), 1)
	test.T(t, 0 < len(sheet.Warnings), true)
}

func TestSpecificity(t *testing.T) {
	var tests = []struct {
		selector string
		expected []int
	}{
		{"rect", []int{2}},
		{"*", []int{1}},
		{".a", []int{10}},
		{"[x=y]", []int{20}},
		{"#a", []int{30}},
		{"#a.b", []int{40}},
		{"rect.a:hover", []int{52}},
		{"a:active", []int{43}},
		{"g rect", []int{2}},
		{"g > #a rect", []int{30}},
		{"p::before", []int{102}},
		{"a, #b, .c .d", []int{2, 30, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			cs, _ := Structure(Lex(tt.selector))
			list, err := ParseSelectors(cs)
			test.Error(t, err)
			test.T(t, list.Specificity(), tt.expected)
		})
	}
}

func TestSelectorErrors(t *testing.T) {
	var tests = []string{
		"a >",
		"> a",
		"a,,b",
		"[=x]",
		"a{",
	}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			cs, _ := Structure(Lex(tt))
			_, err := ParseSelectors(cs)
			test.That(t, err != nil)
		})
	}
}

// tree builds <svg><g class="a"><rect id="r1"/><circle/></g><rect class="b c" x="1"/></svg>.
func tree() (*dom.Node, *dom.Node, *dom.Node, *dom.Node, *dom.Node) {
	svg := dom.NewNode("svg")
	g := dom.NewNode("g", dom.Attr{Name: "class", Value: "a"})
	r1 := dom.NewNode("rect", dom.Attr{Name: "id", Value: "r1"})
	circle := dom.NewNode("circle")
	r2 := dom.NewNode("rect", dom.Attr{Name: "class", Value: "b c"}, dom.Attr{Name: "x", Value: "1"})
	svg.Append(g)
	g.Append(r1)
	g.Append(circle)
	svg.Append(r2)
	return svg, g, r1, circle, r2
}

func TestMatch(t *testing.T) {
	svg, g, r1, circle, r2 := tree()
	sheet := Parse(`
rect { fill: red; stroke: black }
.a rect { fill: blue }
svg > rect { stroke: white }
rect { stroke: gray }
#r1 { opacity: 0.5 }
rect + rect, circle ~ rect { opacity: 0 }
rect ~ circle { opacity: 0.2 }
[x="1"] { width: 1 }
.c { height: 2 }
[class~=b] { rx: 3 }
[x^="1"] { ry: 4 }
g:first-child { display: inline }
rect:last-child { display: none }
:root { color: green }
circle:nth-child(2n) { visibility: hidden }
rect:not(.b) { cursor: pointer }
rect { fill: yellow !important }
`)
	m := NewMatcher(sheet, "")
	warnings := []string{}
	m.Warn = func(msg string) { warnings = append(warnings, msg) }

	get := func(e dom.Element, name string) string {
		v, _ := m.Match(e, "").Get(name)
		return v
	}
	test.String(t, get(r1, "fill"), "yellow")
	test.String(t, get(r1, "stroke"), "gray")
	test.String(t, get(r2, "stroke"), "gray")
	test.String(t, get(r1, "opacity"), "0.5")
	test.String(t, get(r2, "opacity"), "")
	test.String(t, get(circle, "opacity"), "0.2")
	test.String(t, get(r2, "width"), "1")
	test.String(t, get(r2, "height"), "2")
	test.String(t, get(r2, "rx"), "3")
	test.String(t, get(r2, "ry"), "")
	test.String(t, get(g, "display"), "inline")
	test.String(t, get(r2, "display"), "none")
	test.String(t, get(svg, "color"), "green")
	test.String(t, get(g, "color"), "")
	test.String(t, get(circle, "visibility"), "hidden")
	test.String(t, get(r1, "cursor"), "pointer")
	test.String(t, get(r2, "cursor"), "")
	test.T(t, warnings, []string{"unsupported attribute selector operator ^="})
}

func TestMatchNamespace(t *testing.T) {
	rect := dom.NewNode(dom.Name(dom.SVGNamespace, "rect"))
	m := NewMatcher(Parse("rect { fill: red }"), dom.SVGNamespace)
	v, ok := m.Match(rect, "").Get("fill")
	test.That(t, ok)
	test.String(t, v, "red")

	m = NewMatcher(Parse("rect { fill: red }"), "")
	_, ok = m.Match(rect, "").Get("fill")
	test.That(t, !ok)
}

func TestMatchPseudoElement(t *testing.T) {
	_, _, r1, _, _ := tree()
	m := NewMatcher(Parse("rect { fill: red } rect::marker { fill: blue }"), "")
	v, _ := m.Match(r1, "").Get("fill")
	test.String(t, v, "red")
	v, _ = m.Match(r1, "marker").Get("fill")
	test.String(t, v, "blue")
}

func TestMatchHoverCache(t *testing.T) {
	_, g, r1, _, _ := tree()
	m := NewMatcher(Parse("g:hover rect { stroke: green } rect { stroke: black }"), "")
	hovered := map[string]bool{}
	calls := 0
	m.PseudoClass = func(e dom.Element, name string) bool {
		calls++
		return name == "hover" && hovered[e.Key()]
	}

	stroke := func() string {
		v, _ := m.Match(r1, "").Get("stroke")
		return v
	}
	test.String(t, stroke(), "black")
	hovered[g.Key()] = true
	test.String(t, stroke(), "green")
	test.String(t, stroke(), "green")
	hovered[g.Key()] = false
	test.String(t, stroke(), "black")

	// both outcomes are cached and reused
	test.T(t, len(m.cache[cacheKey{r1.Key(), ""}]), 2)
	hovered[g.Key()] = true
	test.String(t, stroke(), "green")
	test.T(t, len(m.cache[cacheKey{r1.Key(), ""}]), 2)

	m.Reset()
	test.T(t, len(m.cache), 0)
	test.String(t, stroke(), "green")
	test.That(t, 0 < calls)
}

func TestMatchMedia(t *testing.T) {
	_, _, r1, _, _ := tree()
	m := NewMatcher(Parse(`
rect { fill: black }
@media print { rect { fill: gray } }
@media screen and (min-width: 600px) { rect { fill: red } }
@supports (display: grid) { rect { stroke: blue } }
`), "")
	width := 800.0
	m.Media = func(q MediaQuery) bool {
		if q.Type != "" && q.Type != "screen" && q.Type != "all" {
			return q.Not
		}
		for _, f := range q.Features {
			if f.Name == "min-width" {
				v, _ := NewUnits(0).Length(f.Value)
				if width < v {
					return q.Not
				}
			}
		}
		return !q.Not
	}
	v, _ := m.Match(r1, "").Get("fill")
	test.String(t, v, "red")
	v, _ = m.Match(r1, "").Get("stroke")
	test.String(t, v, "blue")

	width = 400.0
	v, _ = m.Match(r1, "").Get("fill")
	test.String(t, v, "black")
}

func TestMatchRepeatable(t *testing.T) {
	// a rule matched for an element gives the same declarations for every re-check with equal pseudo-classes
	svg, g, r1, circle, r2 := tree()
	sheet := Parse("g:hover > rect { fill: red } :hover { stroke: blue } rect:active { opacity: 0 } .c { fill: green }")
	states := []map[string]bool{
		{},
		{g.Key(): true},
		{g.Key(): true, r1.Key(): true},
		{svg.Key(): true, r2.Key(): true},
	}
	m := NewMatcher(sheet, "")
	fresh := NewMatcher(sheet, "")
	for i, state := range states {
		pseudo := func(e dom.Element, name string) bool {
			return state[e.Key()]
		}
		m.PseudoClass = pseudo
		fresh.PseudoClass = pseudo
		for _, e := range []dom.Element{svg, g, r1, circle, r2} {
			fresh.Reset()
			t.Run(fmt.Sprintf("%d/%v", i, e), func(t *testing.T) {
				test.T(t, m.Match(e, ""), fresh.Match(e, ""))
				test.T(t, m.Match(e, ""), fresh.Match(e, ""))
			})
		}
	}
}

func TestNth(t *testing.T) {
	var tests = []struct {
		arg     string
		matches []int
	}{
		{"odd", []int{1, 3, 5}},
		{"even", []int{2, 4, 6}},
		{"3", []int{3}},
		{"n", []int{1, 2, 3, 4, 5, 6}},
		{"2n+1", []int{1, 3, 5}},
		{"3n", []int{3, 6}},
		{"-n+2", []int{1, 2}},
		{"n+4", []int{4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			cs, _ := Structure(Lex(tt.arg))
			a, b, ok := parseNth(cs)
			test.That(t, ok)
			matches := []int{}
			for i := 1; i <= 6; i++ {
				if nthMatches(a, b, i) {
					matches = append(matches, i)
				}
			}
			test.T(t, matches, tt.matches)
		})
	}
}

func TestUnits(t *testing.T) {
	u := NewUnits(96.0).Percent(200.0, 10.0).Em(16.0)
	var tests = []struct {
		s        string
		expected float64
	}{
		{"", 0.0},
		{"null", 0.0},
		{"12", 12.0},
		{"12px", 12.0},
		{"72pt", 96.0},
		{"1pc", 16.0},
		{"1in", 96.0},
		{"2.54cm", 96.0},
		{"25.4mm", 96.0},
		{"101.6Q", 96.0},
		{"2em", 32.0},
		{"2ex", 16.0},
		{"50%", 110.0},
		{"-1.5e1", -15.0},
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			f, err := u.Length(tt.s)
			test.Error(t, err)
			test.Float(t, f, tt.expected)
		})
	}

	_, err := NewUnits(0).Length("50%")
	test.T(t, err != nil, true)
	_, err = NewUnits(0).Length("1em")
	test.T(t, err != nil, true)
	_, err = u.Length("1furlong")
	test.T(t, err != nil, true)
	_, err = u.Length("px")
	test.T(t, err != nil, true)

	fs, err := Numbers("1,2 3, -4.5e1")
	test.Error(t, err)
	test.T(t, fs, []float64{1, 2, 3, -45})
}

func TestParseColor(t *testing.T) {
	var tests = []struct {
		s        string
		expected canvas.Color
	}{
		{"red", canvas.RGB(255, 0, 0)},
		{"Navy", canvas.RGB(0, 0, 128)},
		{"transparent", canvas.Transparent},
		{"#f00", canvas.RGB(255, 0, 0)},
		{"#00ff0080", canvas.RGBA(0, 255, 0, 128.0/255.0)},
		{"#123456", canvas.RGB(0x12, 0x34, 0x56)},
		{"rgb(255, 0, 0)", canvas.RGB(255, 0, 0)},
		{"rgb(100%,0%,0%)", canvas.RGB(255, 0, 0)},
		{"rgba(0,0,255,0.5)", canvas.RGBA(0, 0, 255, 0.5)},
		{"hsl(120, 100%, 50%)", canvas.RGB(0, 255, 0)},
		{"hsla(240deg,100%,50%,0.25)", canvas.RGBA(0, 0, 255, 0.25)},
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			c, err := ParseColor(tt.s)
			test.Error(t, err)
			test.Floats(t, []float64{c.R, c.G, c.B, c.A}, []float64{tt.expected.R, tt.expected.G, tt.expected.B, tt.expected.A})
		})
	}

	for _, s := range []string{"rgb(1 2 3)", "rgb(1,2)", "#12", "#ggg", "foo(1,2,3)", "notacolor", "hsl(1,2,3)"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseColor(s)
			test.That(t, err != nil)
		})
	}
}

func TestColorRoundTrip(t *testing.T) {
	inputs := []string{"red", "cornflowerblue", "#abc", "#a1b2c3", "rgb(10,20,30)", "rgba(10,20,30,0.5)", "hsl(200,50%,40%)", "hsla(10,80%,60%,0.1)"}
	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			c, err := ParseColor(s)
			test.Error(t, err)
			c2, err := ParseColor(FormatColor(c))
			test.Error(t, err)
			for _, d := range []float64{c.R - c2.R, c.G - c2.G, c.B - c2.B, c.A - c2.A} {
				test.That(t, math.Abs(d) <= 0.5/255.0+1e-9, FormatColor(c))
			}
		})
	}
}
