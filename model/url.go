package model

import (
	"strings"

	"github.com/guixmpp/canvas/download"
)

// ResolveURL returns the absolute URL of rel relative to base. Data URLs and URLs with a scheme are absolute, a
// bare fragment replaces the fragment of base, and other URLs are relative to the directory of base.
func ResolveURL(rel, base string) string {
	switch {
	case strings.HasPrefix(rel, "data:"):
		return rel
	case download.Scheme(rel) != "":
		return rel
	case rel == "":
		return base
	case strings.HasSuffix(base, "/"):
		return base + rel
	case rel[0] == '#':
		return Root(base) + rel
	case base != "":
		if i := strings.LastIndexByte(Root(base), '/'); i != -1 {
			return base[:i+1] + rel
		}
		return rel
	}
	return rel
}

// Root returns the URL without its fragment. Data URLs may contain # in their payload and are returned whole.
func Root(url string) string {
	if strings.HasPrefix(url, "data:") {
		return url
	} else if i := strings.LastIndexByte(url, '#'); i != -1 {
		return url[:i]
	}
	return url
}

// Fragment returns the fragment of a URL without the #, ok is false if it has none.
func Fragment(url string) (string, bool) {
	root := Root(url)
	if len(root) == len(url) {
		return "", false
	}
	return url[len(root)+1:], true
}

func isData(url string) bool {
	return strings.HasPrefix(url, "data:")
}

func abbreviate(url string) string {
	if 64 < len(url) {
		return url[:61] + "..."
	}
	return url
}
