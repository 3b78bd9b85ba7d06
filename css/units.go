package css

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/strconv"
)

// ErrNoPercentageBase is returned for percentages when no base was given.
var ErrNoPercentageBase = errors.New("percentage without base")

// ErrNoEmSize is returned for em and ex lengths when no font size was given.
var ErrNoEmSize = errors.New("font-relative length without font size")

// DefaultDPI is the resolution of CSS pixels.
const DefaultDPI = 96.0

// ParseNumber parses a number at the start of s and returns it with the number of bytes consumed. Zero bytes
// consumed means s does not start with a number.
func ParseNumber(s string) (float64, int) {
	return strconv.ParseFloat([]byte(s))
}

// Units resolves lengths against a resolution, a percentage base and a font size.
type Units struct {
	DPI    float64
	EmSize float64 // zero when unknown

	base, origin float64
	hasBase      bool
}

// NewUnits returns units at the given resolution, or at DefaultDPI if dpi is not positive.
func NewUnits(dpi float64) Units {
	if dpi <= 0.0 {
		dpi = DefaultDPI
	}
	return Units{DPI: dpi}
}

// Percent returns units where 100% is base, offset by origin.
func (u Units) Percent(base, origin float64) Units {
	u.base, u.origin, u.hasBase = base, origin, true
	return u
}

// Em returns units with the given font size.
func (u Units) Em(size float64) Units {
	u.EmSize = size
	return u
}

// Length parses a number followed by an optional unit among px, pt, pc, in, cm, mm, Q, em, ex and % and returns
// it in pixels. Empty and null values are zero.
func (u Units) Length(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return 0.0, nil
	}
	f, n := ParseNumber(s)
	if n == 0 {
		return 0.0, fmt.Errorf("bad length %q", s)
	}
	unit := s[n:]
	if unit != "Q" {
		unit = strings.ToLower(unit)
	}
	switch unit {
	case "", "px":
		return f, nil
	case "pt":
		return f * u.DPI / 72.0, nil
	case "pc":
		return f * u.DPI / 6.0, nil
	case "in":
		return f * u.DPI, nil
	case "cm":
		return f * u.DPI / 2.54, nil
	case "mm":
		return f * u.DPI / 25.4, nil
	case "Q":
		return f * u.DPI / (2.54 * 40.0), nil
	case "em", "ex":
		if u.EmSize == 0.0 {
			return 0.0, fmt.Errorf("%q: %w", s, ErrNoEmSize)
		} else if unit == "ex" {
			return f * u.EmSize / 2.0, nil
		}
		return f * u.EmSize, nil
	case "%":
		if !u.hasBase {
			return 0.0, fmt.Errorf("%q: %w", s, ErrNoPercentageBase)
		}
		return f*u.base/100.0 + u.origin, nil
	}
	return 0.0, fmt.Errorf("unknown unit in %q", s)
}

// Numbers parses a list of numbers separated by whitespace and/or commas.
func Numbers(s string) ([]float64, error) {
	var fs []float64
	for {
		s = strings.TrimLeft(s, " \t\r\n,")
		if s == "" {
			return fs, nil
		}
		f, n := ParseNumber(s)
		if n == 0 {
			return fs, fmt.Errorf("bad number in %q", s)
		}
		fs = append(fs, f)
		s = s[n:]
	}
}
