package css

import (
	"strconv"
	"strings"
	"sync"

	"github.com/guixmpp/canvas/dom"
)

// Value is a winning declaration value.
type Value struct {
	Value     string
	Priority  int
	Important bool
}

// Wins returns true if v, declared after w, overrides w. Important values win, then the higher priority; ties go to
// the later declaration.
func (v Value) Wins(w Value) bool {
	if v.Important != w.Important {
		return v.Important
	}
	return w.Priority <= v.Priority
}

// Declarations maps property names to their winning values.
type Declarations map[string]Value

// Get returns the value of a property.
func (d Declarations) Get(name string) (string, bool) {
	v, ok := d[name]
	return v.Value, ok
}

type observation struct {
	elem  dom.Element // nil for media tests
	name  string
	value bool
	media MediaQuery
}

type cacheKey struct {
	path   string
	pseudo string
}

type cacheEntry struct {
	observations []observation
	result       Declarations
}

// Matcher matches the style rules of one stylesheet against elements.
//
// Match results are cached per element and pseudo-element together with the pseudo-class and media test
// outcomes they depended on. A cached result is reused when those tests give the same outcomes again, so that
// hovering does not rematch the whole document. Reset drops the cache.
type Matcher struct {
	Sheet *Stylesheet

	// Namespace is the namespace of unprefixed type selectors.
	Namespace string

	// Media tests a media query, nil means no media query matches.
	Media func(MediaQuery) bool

	// PseudoClass tests dynamic pseudo-classes such as hover, nil means none match.
	PseudoClass func(e dom.Element, name string) bool

	// Warn receives unsupported selector reports.
	Warn func(msg string)

	rules []indexedRule
	byTag map[string][]int

	mu    sync.Mutex
	cache map[cacheKey][]cacheEntry
	warns map[string]bool
}

type indexedRule struct {
	selector Selector
	decls    []Declaration
	media    [][]MediaQuery // enclosing @media rules, all must match
	priority int
}

// NewMatcher indexes the style rules of a stylesheet, including those nested in @media and @supports.
func NewMatcher(sheet *Stylesheet, namespace string) *Matcher {
	m := &Matcher{
		Sheet:     sheet,
		Namespace: namespace,
		byTag:     map[string][]int{},
		cache:     map[cacheKey][]cacheEntry{},
		warns:     map[string]bool{},
	}
	var index func([]Rule, [][]MediaQuery)
	index = func(rules []Rule, media [][]MediaQuery) {
		for _, rule := range rules {
			switch rule.Kind {
			case StyleRule:
				for _, sel := range rule.Selectors {
					tag := ""
					for _, s := range sel.Subject() {
						if s.Kind == TagSelector {
							tag = dom.Name(namespace, s.Name)
						}
					}
					m.byTag[tag] = append(m.byTag[tag], len(m.rules))
					m.rules = append(m.rules, indexedRule{
						selector: sel,
						decls:    rule.Declarations,
						media:    media,
						priority: sel.Specificity(),
					})
				}
			case AtBlockRule:
				if rule.Name == "media" {
					index(rule.Rules, append(media[:len(media):len(media)], rule.Media))
				} else if rule.Name == "supports" || rule.Name == "layer" {
					index(rule.Rules, media)
				}
			}
		}
	}
	index(sheet.Rules, nil)
	return m
}

// Reset drops all cached match results.
func (m *Matcher) Reset() {
	m.mu.Lock()
	m.cache = map[cacheKey][]cacheEntry{}
	m.mu.Unlock()
}

func (m *Matcher) warn(msg string) {
	if m.Warn != nil && !m.warns[msg] {
		m.warns[msg] = true
		m.Warn(msg)
	}
}

// Tests are the outcomes of media queries and dynamic pseudo-classes for one match. A nil function means no query
// or pseudo-class matches.
type Tests struct {
	Media       func(MediaQuery) bool
	PseudoClass func(e dom.Element, name string) bool
}

// matching carries the observations of one match run.
type matching struct {
	*Matcher
	tests        Tests
	observations []observation
}

func (r *matching) pseudoClass(e dom.Element, name string) bool {
	for _, obs := range r.observations {
		if obs.elem != nil && obs.name == name && obs.elem.Key() == e.Key() {
			return obs.value
		}
	}
	value := false
	if r.tests.PseudoClass != nil {
		value = r.tests.PseudoClass(e, name)
	}
	r.observations = append(r.observations, observation{elem: e, name: name, value: value})
	return value
}

func (r *matching) media(q MediaQuery) bool {
	key := q.String()
	for _, obs := range r.observations {
		if obs.elem == nil && obs.name == key {
			return obs.value
		}
	}
	value := false
	if r.tests.Media != nil {
		value = r.tests.Media(q)
	}
	r.observations = append(r.observations, observation{name: key, value: value, media: q})
	return value
}

func agrees(observations []observation, tests Tests) bool {
	for _, obs := range observations {
		var value bool
		if obs.elem == nil {
			value = tests.Media != nil && tests.Media(obs.media)
		} else {
			value = tests.PseudoClass != nil && tests.PseudoClass(obs.elem, obs.name)
		}
		if value != obs.value {
			return false
		}
	}
	return true
}

// Match returns the declarations that win for an element, or for one of its pseudo-elements when pseudo is not
// empty. Media queries and pseudo-classes are tested with the Media and PseudoClass fields.
func (m *Matcher) Match(e dom.Element, pseudo string) Declarations {
	return m.MatchWith(e, pseudo, Tests{m.Media, m.PseudoClass})
}

// MatchWith is like Match but takes the media and pseudo-class tests of the caller, so that views with different
// pointers can share one matcher and its cache.
func (m *Matcher) MatchWith(e dom.Element, pseudo string, tests Tests) Declarations {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey{e.Key(), pseudo}
	for _, entry := range m.cache[key] {
		if agrees(entry.observations, tests) {
			return entry.result
		}
	}

	r := &matching{Matcher: m, tests: tests}
	result := Declarations{}
	for _, i := range m.candidates(e.Tag()) {
		rule := m.rules[i]
		if rule.selector.Subject().PseudoElement() != pseudo {
			continue
		}
		ok := true
		for _, queries := range rule.media {
			matched := false
			for _, q := range queries {
				if r.media(q) {
					matched = true
					break
				}
			}
			if !matched {
				ok = false
				break
			}
		}
		if !ok || !r.matchSelector(rule.selector, len(rule.selector.Compounds)-1, e) {
			continue
		}
		for _, decl := range rule.decls {
			v := Value{
				Value:     decl.Value(),
				Priority:  rule.priority,
				Important: decl.Important,
			}
			if cur, ok := result[decl.Name]; !ok || v.Wins(cur) {
				result[decl.Name] = v
			}
		}
	}
	m.cache[key] = append(m.cache[key], cacheEntry{r.observations, result})
	return result
}

// candidates returns the indices of the universal rules and the rules for tag in source order.
func (m *Matcher) candidates(tag string) []int {
	a, b := m.byTag[""], m.byTag[tag]
	if tag == "" {
		b = nil
	}
	is := make([]int, 0, len(a)+len(b))
	for 0 < len(a) || 0 < len(b) {
		if len(b) == 0 || 0 < len(a) && a[0] < b[0] {
			is, a = append(is, a[0]), a[1:]
		} else {
			is, b = append(is, b[0]), b[1:]
		}
	}
	return is
}

func (r *matching) matchSelector(sel Selector, i int, e dom.Element) bool {
	if e == nil || !r.matchCompound(sel.Compounds[i], e) {
		return false
	} else if i == 0 {
		return true
	}
	switch sel.Combinators[i-1] {
	case '>':
		return r.matchSelector(sel, i-1, e.Parent())
	case ' ':
		for a := e.Parent(); a != nil; a = a.Parent() {
			if r.matchSelector(sel, i-1, a) {
				return true
			}
		}
	case '+':
		return r.matchSelector(sel, i-1, previous(e))
	case '~':
		for s := previous(e); s != nil; s = previous(s) {
			if r.matchSelector(sel, i-1, s) {
				return true
			}
		}
	}
	return false
}

func siblings(e dom.Element) ([]dom.Element, int) {
	parent := e.Parent()
	if parent == nil {
		return []dom.Element{e}, 0
	}
	children := parent.Children()
	key := e.Key()
	for i, child := range children {
		if child.Key() == key {
			return children, i
		}
	}
	return []dom.Element{e}, 0
}

func previous(e dom.Element) dom.Element {
	children, i := siblings(e)
	if i == 0 {
		return nil
	}
	return children[i-1]
}

func classes(e dom.Element) []string {
	class, _ := e.Attr("class")
	return strings.Fields(class)
}

func (r *matching) matchCompound(c Compound, e dom.Element) bool {
	for _, s := range c {
		if !r.matchSimple(s, e) {
			return false
		}
	}
	return true
}

func (r *matching) matchSimple(s Simple, e dom.Element) bool {
	switch s.Kind {
	case UniversalSelector, PseudoElementSelector:
		return true
	case TagSelector:
		return e.Tag() == dom.Name(r.Namespace, s.Name)
	case ClassSelector:
		for _, class := range classes(e) {
			if class == s.Name {
				return true
			}
		}
		return false
	case IDSelector:
		id, ok := dom.ID(e)
		return ok && id == s.Name
	case AttrPresentSelector:
		_, ok := e.Attr(s.Name)
		return ok
	case AttrSelector:
		v, ok := e.Attr(s.Name)
		switch s.Op {
		case "=":
			return ok && v == s.Value
		case "~=":
			if ok {
				for _, word := range strings.Fields(v) {
					if word == s.Value {
						return true
					}
				}
			}
			return false
		}
		r.warn("unsupported attribute selector operator " + s.Op)
		return false
	case PseudoClassSelector:
		children, i := siblings(e)
		switch s.Name {
		case "empty":
			return len(e.Children()) == 0 && e.Text() == ""
		case "first-child":
			return i == 0
		case "last-child":
			return i == len(children)-1
		case "only-child":
			return len(children) == 1
		case "first-of-type", "last-of-type", "only-of-type":
			n, k := 0, 0
			for j, child := range children {
				if child.Tag() == e.Tag() {
					if j < i {
						k++
					}
					n++
				}
			}
			return s.Name == "first-of-type" && k == 0 || s.Name == "last-of-type" && k == n-1 || s.Name == "only-of-type" && n == 1
		case "root":
			return e.Parent() == nil
		}
		return r.pseudoClass(e, s.Name)
	case PseudoClassFuncSelector:
		switch s.Name {
		case "nth-child":
			a, b, ok := parseNth(s.Args)
			if !ok {
				r.warn("bad nth-child argument " + Serialize(s.Args))
				return false
			}
			_, i := siblings(e)
			return nthMatches(a, b, i+1)
		case "not":
			sel, err := parseSelector(stripSpace(s.Args))
			if err != nil || len(sel.Compounds) != 1 {
				r.warn("unsupported :not argument " + Serialize(s.Args))
				return false
			}
			return !r.matchCompound(sel.Compounds[0], e)
		}
		r.warn("unsupported pseudo-class function :" + s.Name)
		return false
	case PercentageSelector:
		return false
	}
	return false
}

// parseNth parses the an+b syntax including odd and even.
func parseNth(cs []Component) (int, int, bool) {
	s := strings.ToLower(strings.ReplaceAll(Serialize(cs), " ", ""))
	switch s {
	case "odd":
		return 2, 1, true
	case "even":
		return 2, 0, true
	}
	i := strings.IndexByte(s, 'n')
	if i == -1 {
		b, err := strconv.Atoi(s)
		return 0, b, err == nil
	}
	a := 1
	switch s[:i] {
	case "", "+":
	case "-":
		a = -1
	default:
		var err error
		if a, err = strconv.Atoi(s[:i]); err != nil {
			return 0, 0, false
		}
	}
	b := 0
	if rest := s[i+1:]; rest != "" {
		var err error
		if b, err = strconv.Atoi(strings.TrimPrefix(rest, "+")); err != nil {
			return 0, 0, false
		}
	}
	return a, b, true
}

func nthMatches(a, b, index int) bool {
	if a == 0 {
		return index == b
	}
	n := index - b
	return n%a == 0 && 0 <= n/a
}
