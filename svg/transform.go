package svg

import (
	"fmt"
	"math"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/guixmpp/canvas/css"
	"github.com/guixmpp/canvas/dom"
	"github.com/guixmpp/canvas/format"
)

// ParseTransform parses a transform list such as `translate(10,10) rotate(45)`. The arguments of translate are
// lengths resolved by length, all others are numbers. Transformations with a singular matrix are skipped. On
// error, the matrix of the transformations before the offending one is returned.
func ParseTransform(s string, length func(string) (float64, error)) (canvas.Matrix, error) {
	m := canvas.Identity
	for {
		s = strings.TrimLeft(s, " \t\r\n,")
		if s == "" {
			return m, nil
		}
		open := strings.IndexByte(s, '(')
		if open == -1 {
			return m, fmt.Errorf("bad transform %q", s)
		}
		end := strings.IndexByte(s[open:], ')')
		if end == -1 {
			return m, fmt.Errorf("unterminated transform %q", s)
		}
		name := strings.TrimSpace(s[:open])
		args := strings.FieldsFunc(s[open+1:open+end], func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
		})
		s = s[open+end+1:]

		t, err := transformFunction(name, args, length)
		if err != nil {
			return m, err
		} else if !t.IsSingular() {
			m = m.Mul(t)
		}
	}
}

func transformFunction(name string, args []string, length func(string) (float64, error)) (canvas.Matrix, error) {
	nums := make([]float64, len(args))
	for i, arg := range args {
		var err error
		if name == "translate" && length != nil {
			nums[i], err = length(arg)
		} else {
			f, n := css.ParseNumber(arg)
			if n == 0 || n != len(arg) {
				err = fmt.Errorf("bad number %q", arg)
			}
			nums[i] = f
		}
		if err != nil {
			return canvas.Identity, fmt.Errorf("%s: %w", name, err)
		}
	}

	m := canvas.Identity
	switch {
	case name == "matrix" && len(nums) == 6:
		return canvas.NewMatrix(nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]), nil
	case name == "translate" && len(nums) == 1:
		return m.Translate(nums[0], 0.0), nil
	case name == "translate" && len(nums) == 2:
		return m.Translate(nums[0], nums[1]), nil
	case name == "scale" && len(nums) == 1:
		return m.Scale(nums[0], nums[0]), nil
	case name == "scale" && len(nums) == 2:
		return m.Scale(nums[0], nums[1]), nil
	case name == "rotate" && len(nums) == 1:
		return m.Rotate(canvas.DegToRad(nums[0])), nil
	case name == "rotate" && len(nums) == 3:
		return m.Translate(nums[1], nums[2]).Rotate(canvas.DegToRad(nums[0])).Translate(-nums[1], -nums[2]), nil
	case name == "skewX" && len(nums) == 1:
		return canvas.NewMatrix(1.0, 0.0, math.Tan(canvas.DegToRad(nums[0])), 1.0, 0.0, 0.0), nil
	case name == "skewY" && len(nums) == 1:
		return canvas.NewMatrix(1.0, math.Tan(canvas.DegToRad(nums[0])), 0.0, 1.0, 0.0, 0.0), nil
	}
	return m, fmt.Errorf("unsupported transformation %s with %d arguments", name, len(nums))
}

var originKeywords = map[string]string{
	"left":   "0%",
	"top":    "0%",
	"center": "50%",
	"right":  "100%",
	"bottom": "100%",
}

// transformMatrix returns the matrix of a transform attribute of e around its transform-origin.
func (p *painter) transformMatrix(e dom.Element, s string, box canvas.Rect, em float64) canvas.Matrix {
	m, err := ParseTransform(s, func(arg string) (float64, error) {
		return p.units.Percent(box.W, 0.0).Em(em).Length(arg)
	})
	if err != nil {
		p.warn(format.ParseWarning, e, "transform: %v", err)
	}

	if origin, ok := p.search(e, "transform-origin"); ok {
		fields := strings.Fields(origin)
		var ox, oy float64
		for i, field := range fields {
			if i == 2 {
				break
			}
			if keyword, ok := originKeywords[field]; ok {
				field = keyword
			}
			if i == 0 {
				ox = p.length(e, field, box.W, em)
			} else {
				oy = p.length(e, field, box.H, em)
			}
		}
		m = canvas.Identity.Translate(ox, oy).Mul(m).Translate(-ox, -oy)
	}
	return m
}

// transform applies a transform attribute of e to the context.
func (p *painter) transform(ctx canvas.Context, e dom.Element, box canvas.Rect, em float64) {
	if s, ok := e.Attr("transform"); ok {
		ctx.Transform(p.transformMatrix(e, s, box, em))
	}
}
