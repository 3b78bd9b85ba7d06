package css

import (
	"fmt"
	"strings"
)

// SimpleKind is the kind of a simple selector.
type SimpleKind int

// see SimpleKind
const (
	TagSelector SimpleKind = iota
	UniversalSelector
	ClassSelector
	IDSelector
	AttrSelector
	AttrPresentSelector
	PseudoClassSelector
	PseudoClassFuncSelector
	PseudoElementSelector
	PercentageSelector // keyframe selectors
)

// Simple is a simple selector.
type Simple struct {
	Kind  SimpleKind
	Name  string
	Op    string      // attribute operator
	Value string      // attribute value
	Args  []Component // pseudo-class function arguments
}

func (s Simple) String() string {
	switch s.Kind {
	case UniversalSelector:
		return "*"
	case ClassSelector:
		return "." + s.Name
	case IDSelector:
		return "#" + s.Name
	case AttrSelector:
		return "[" + s.Name + s.Op + fmt.Sprintf("%q", s.Value) + "]"
	case AttrPresentSelector:
		return "[" + s.Name + "]"
	case PseudoClassSelector:
		return ":" + s.Name
	case PseudoClassFuncSelector:
		return ":" + s.Name + "(" + Serialize(s.Args) + ")"
	case PseudoElementSelector:
		return "::" + s.Name
	}
	return s.Name
}

// Specificity returns the weight of the simple selector.
func (s Simple) Specificity() int {
	switch s.Kind {
	case TagSelector:
		return 2
	case UniversalSelector, PercentageSelector:
		return 1
	case ClassSelector:
		return 10
	case AttrSelector, AttrPresentSelector:
		return 20
	case IDSelector:
		return 30
	case PseudoClassSelector, PseudoClassFuncSelector:
		if s.Name == "active" {
			return 41
		}
		return 40
	case PseudoElementSelector:
		return 100
	}
	return 0
}

// Compound is a sequence of simple selectors without combinators, such as `rect.a:hover`.
type Compound []Simple

func (c Compound) String() string {
	sb := strings.Builder{}
	for _, s := range c {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Specificity is the sum of its simple selectors.
func (c Compound) Specificity() int {
	n := 0
	for _, s := range c {
		n += s.Specificity()
	}
	return n
}

// PseudoElement returns the pseudo-element the compound selects, if any.
func (c Compound) PseudoElement() string {
	for _, s := range c {
		if s.Kind == PseudoElementSelector {
			return s.Name
		}
	}
	return ""
}

// Combinator joins compounds: descendant ' ', child '>', next sibling '+' or subsequent sibling '~'.
type Combinator byte

// Selector is a sequence of compounds joined by combinators. Combinators[i] joins Compounds[i] and
// Compounds[i+1].
type Selector struct {
	Compounds   []Compound
	Combinators []Combinator
}

func (sel Selector) String() string {
	sb := strings.Builder{}
	for i, c := range sel.Compounds {
		if 0 < i {
			if comb := sel.Combinators[i-1]; comb == ' ' {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(" " + string(comb) + " ")
			}
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Specificity is the maximum of its compounds.
func (sel Selector) Specificity() int {
	n := 0
	for _, c := range sel.Compounds {
		if m := c.Specificity(); n < m {
			n = m
		}
	}
	return n
}

// Subject returns the rightmost compound.
func (sel Selector) Subject() Compound {
	return sel.Compounds[len(sel.Compounds)-1]
}

// SelectorList is a comma separated list of selectors.
type SelectorList []Selector

func (list SelectorList) String() string {
	parts := make([]string, len(list))
	for i, sel := range list {
		parts[i] = sel.String()
	}
	return strings.Join(parts, ", ")
}

// Specificity returns the specificity of each branch.
func (list SelectorList) Specificity() []int {
	ns := make([]int, len(list))
	for i, sel := range list {
		ns[i] = sel.Specificity()
	}
	return ns
}

// ParseSelectors parses a comma separated selector list.
func ParseSelectors(cs []Component) (SelectorList, error) {
	list := SelectorList{}
	for _, part := range split(stripSpace(cs), ",") {
		if len(part) == 0 {
			return nil, fmt.Errorf("empty selector in %s", Serialize(cs))
		}
		sel, err := parseSelector(part)
		if err != nil {
			return nil, err
		}
		list = append(list, sel)
	}
	return list, nil
}

func parseSelector(cs []Component) (Selector, error) {
	sel := Selector{}
	var compound []Component
	var comb Combinator
	flush := func() error {
		if len(compound) == 0 {
			return nil
		}
		c, err := parseCompound(compound)
		if err != nil {
			return err
		}
		if 0 < len(sel.Compounds) {
			if comb == 0 {
				comb = ' '
			}
			sel.Combinators = append(sel.Combinators, comb)
		}
		sel.Compounds = append(sel.Compounds, c)
		compound = nil
		comb = 0
		return nil
	}
	for _, c := range cs {
		if isSpace(c) {
			if err := flush(); err != nil {
				return sel, err
			}
		} else if c.Group == NoBracket && (c.Is(">") || c.Is("+") || c.Is("~")) {
			if err := flush(); err != nil {
				return sel, err
			} else if len(sel.Compounds) == 0 || comb != 0 {
				return sel, fmt.Errorf("misplaced combinator in %s", Serialize(cs))
			}
			comb = Combinator(c.Data[0])
		} else {
			compound = append(compound, c)
		}
	}
	if err := flush(); err != nil {
		return sel, err
	} else if comb != 0 || len(sel.Compounds) == 0 {
		return sel, fmt.Errorf("dangling combinator in %s", Serialize(cs))
	}
	return sel, nil
}

func parseCompound(cs []Component) (Compound, error) {
	compound := Compound{}
	for i := 0; i < len(cs); i++ {
		c := cs[i]
		switch {
		case c.Group == Square:
			s, err := parseAttr(c.Children)
			if err != nil {
				return nil, err
			}
			compound = append(compound, s)
		case c.IsGroup():
			return nil, fmt.Errorf("unexpected %s in selector", c.String())
		case i == 0 && c.Kind == IdentToken:
			compound = append(compound, Simple{Kind: TagSelector, Name: c.Data})
		case i == 0 && c.Is("*"):
			compound = append(compound, Simple{Kind: UniversalSelector})
		case c.Kind == NumberToken && strings.HasSuffix(c.Data, "%"):
			compound = append(compound, Simple{Kind: PercentageSelector, Name: c.Data})
		case c.Kind == HashToken:
			compound = append(compound, Simple{Kind: IDSelector, Name: c.Data[1:]})
		case c.Is(".") && i+1 < len(cs) && cs[i+1].Kind == IdentToken:
			compound = append(compound, Simple{Kind: ClassSelector, Name: cs[i+1].Data})
			i++
		case c.Is(":") && i+2 < len(cs) && cs[i+1].Is(":") && cs[i+2].Kind == IdentToken:
			compound = append(compound, Simple{Kind: PseudoElementSelector, Name: strings.ToLower(cs[i+2].Data)})
			i += 2
		case c.Is(":") && i+1 < len(cs) && cs[i+1].Kind == IdentToken:
			compound = append(compound, Simple{Kind: PseudoClassSelector, Name: strings.ToLower(cs[i+1].Data)})
			i++
		case c.Is(":") && i+1 < len(cs) && cs[i+1].Kind == FunctionToken:
			compound = append(compound, Simple{Kind: PseudoClassFuncSelector, Name: strings.ToLower(cs[i+1].Data), Args: cs[i+1].Children})
			i++
		default:
			return nil, fmt.Errorf("unexpected %s in selector", c.String())
		}
	}
	return compound, nil
}

func parseAttr(cs []Component) (Simple, error) {
	cs = stripSpace(cs)
	if len(cs) == 0 || cs[0].Kind != IdentToken {
		return Simple{}, fmt.Errorf("bad attribute selector [%s]", Serialize(cs))
	}
	name := cs[0].Data
	rest := stripSpace(cs[1:])
	if len(rest) == 0 {
		return Simple{Kind: AttrPresentSelector, Name: name}, nil
	}

	op := ""
	i := 0
	for ; i < len(rest) && rest[i].Kind == DelimToken && strings.ContainsAny(rest[i].Data, "=~|^$*"); i++ {
		op += rest[i].Data
	}
	value := stripSpace(rest[i:])
	if op == "" || len(value) != 1 {
		return Simple{}, fmt.Errorf("bad attribute selector [%s]", Serialize(cs))
	}
	return Simple{Kind: AttrSelector, Name: name, Op: op, Value: value[0].Data}, nil
}
