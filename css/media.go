package css

import (
	"strings"
)

// MediaFeature is a parenthesized media test such as `(min-width: 600px)`.
type MediaFeature struct {
	Name  string
	Value string
}

// MediaQuery is one comma separated branch of a media query list.
type MediaQuery struct {
	Not      bool
	Only     bool
	Type     string // empty means all
	Features []MediaFeature
}

func (q MediaQuery) String() string {
	var parts []string
	if q.Not {
		parts = append(parts, "not")
	} else if q.Only {
		parts = append(parts, "only")
	}
	if q.Type != "" {
		parts = append(parts, q.Type)
	}
	for _, f := range q.Features {
		if f.Value == "" {
			parts = append(parts, "("+f.Name+")")
		} else {
			parts = append(parts, "("+f.Name+":"+f.Value+")")
		}
	}
	return strings.Join(parts, " and ")
}

// ParseMedia parses an @media prelude.
func ParseMedia(prelude []Component) []MediaQuery {
	var queries []MediaQuery
	for _, part := range split(prelude, ",") {
		if len(part) == 0 {
			continue
		}
		q := MediaQuery{}
		for _, c := range part {
			if c.Group == Brace && c.Kind != FunctionToken {
				f := MediaFeature{}
				kv := split(c.Children, ":")
				f.Name = strings.ToLower(Serialize(kv[0]))
				if 1 < len(kv) {
					f.Value = Serialize(kv[1])
				}
				q.Features = append(q.Features, f)
			} else if c.Kind == IdentToken {
				switch word := strings.ToLower(c.Data); word {
				case "and":
				case "not":
					q.Not = true
				case "only":
					q.Only = true
				default:
					q.Type = word
				}
			}
		}
		queries = append(queries, q)
	}
	return queries
}
