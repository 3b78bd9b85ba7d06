package css

import (
	"fmt"
	"strings"
)

// Bracket is the kind of a group.
type Bracket int

// see Bracket
const (
	NoBracket Bracket = iota
	Curly             // {}
	Brace             // ()
	Square            // []
)

var brackets = map[string]Bracket{"{": Curly, "(": Brace, "[": Square}
var closers = map[string]Bracket{"}": Curly, ")": Brace, "]": Square}

func (b Bracket) open() string {
	return [...]string{"", "{", "(", "["}[b]
}

func (b Bracket) close() string {
	return [...]string{"", "}", ")", "]"}[b]
}

// Component is a token or a bracketed group of components. A function token owns the parenthesized group that
// follows it.
type Component struct {
	Token
	Group    Bracket
	Children []Component
}

// IsGroup returns true for bracketed groups.
func (c Component) IsGroup() bool {
	return c.Group != NoBracket
}

func (c Component) String() string {
	if c.Group == NoBracket {
		return c.Token.String()
	}
	name := ""
	if c.Kind == FunctionToken {
		name = c.Data
	}
	return name + c.Group.open() + Serialize(c.Children) + c.Group.close()
}

// Serialize writes components back to text.
func Serialize(cs []Component) string {
	sb := strings.Builder{}
	for _, c := range cs {
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Structure matches brackets and returns the top-level components. Unbalanced brackets are closed at the end of
// input and reported as warnings; stray closing brackets are dropped.
func Structure(tokens []Token) ([]Component, []string) {
	type frame struct {
		group      Component
		components []Component
	}
	var warnings []string
	var stack []frame
	components := []Component{}

	closeGroup := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		top.group.Children = components
		components = append(top.components, top.group)
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind == FunctionToken && i+1 < len(tokens) && tokens[i+1].Is("(") {
			stack = append(stack, frame{Component{Token: t, Group: Brace}, components})
			components = []Component{}
			i++
			continue
		} else if t.Kind == DelimToken {
			if b, ok := brackets[t.Data]; ok {
				stack = append(stack, frame{Component{Token: t, Group: b}, components})
				components = []Component{}
				continue
			} else if b, ok := closers[t.Data]; ok {
				depth := -1
				for j := len(stack) - 1; 0 <= j; j-- {
					if stack[j].group.Group == b {
						depth = j
						break
					}
				}
				if depth == -1 {
					warnings = append(warnings, fmt.Sprintf("unmatched %s", t.Data))
					continue
				}
				for depth < len(stack)-1 {
					warnings = append(warnings, fmt.Sprintf("unclosed %s before %s", stack[len(stack)-1].group.Group.open(), t.Data))
					closeGroup()
				}
				closeGroup()
				continue
			}
		}
		components = append(components, Component{Token: t})
	}
	for 0 < len(stack) {
		warnings = append(warnings, fmt.Sprintf("unclosed %s at end of input", stack[len(stack)-1].group.Group.open()))
		closeGroup()
	}
	return components, warnings
}

// Items splits components into items ending at a semicolon or a curly group. Items are stripped of surrounding
// whitespace and empty items are dropped.
func Items(cs []Component) [][]Component {
	var items [][]Component
	var item []Component
	for _, c := range cs {
		item = append(item, c)
		if c.Is(";") || c.Group == Curly {
			if item = stripSpace(item); 0 < len(item) && !(len(item) == 1 && item[0].Is(";")) {
				items = append(items, item)
			}
			item = nil
		}
	}
	if item = stripSpace(item); 0 < len(item) {
		items = append(items, item)
	}
	return items
}

func isSpace(c Component) bool {
	return c.Group == NoBracket && c.Kind == SpaceToken
}

func stripSpace(cs []Component) []Component {
	for 0 < len(cs) && isSpace(cs[0]) {
		cs = cs[1:]
	}
	for 0 < len(cs) && isSpace(cs[len(cs)-1]) {
		cs = cs[:len(cs)-1]
	}
	return cs
}

// split splits components at top-level delimiters.
func split(cs []Component, delim string) [][]Component {
	parts := [][]Component{}
	var part []Component
	for _, c := range cs {
		if c.Group == NoBracket && c.Is(delim) {
			parts = append(parts, stripSpace(part))
			part = nil
			continue
		}
		part = append(part, c)
	}
	return append(parts, stripSpace(part))
}
