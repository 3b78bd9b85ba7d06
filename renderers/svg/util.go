package svg

import (
	"fmt"
	"math"
	"strings"

	"github.com/guixmpp/canvas"
	"github.com/tdewolff/minify/v2"
)

// precision is the number of significant digits written for coordinates.
const precision = 5

////////////////////////////////////////////////////////////////

type num float64

func (f num) String() string {
	s := fmt.Sprintf("%.*g", precision, f)
	if num(math.MaxInt32) < f || f < num(math.MinInt32) {
		if i := strings.IndexAny(s, ".eE"); i == -1 {
			s += ".0"
		}
	}
	return string(minify.Number([]byte(s), precision))
}

type dec float64

func (f dec) String() string {
	s := fmt.Sprintf("%.*f", precision, f)
	s = string(minify.Decimal([]byte(s), precision))
	if dec(math.MaxInt32) < f || f < dec(math.MinInt32) {
		if i := strings.IndexByte(s, '.'); i == -1 {
			s += ".0"
		}
	}
	return s
}

func color(c canvas.Color) string {
	r := uint8(math.Round(math.Max(0.0, math.Min(1.0, c.R)) * 255.0))
	g := uint8(math.Round(math.Max(0.0, math.Min(1.0, c.G)) * 255.0))
	b := uint8(math.Round(math.Max(0.0, math.Min(1.0, c.B)) * 255.0))
	if r%17 == 0 && g%17 == 0 && b%17 == 0 {
		return fmt.Sprintf("#%x%x%x", r/17, g/17, b/17)
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func matrix(m canvas.Matrix) string {
	return fmt.Sprintf("matrix(%v %v %v %v %v %v)", num(m[0][0]), num(m[1][0]), num(m[0][1]), num(m[1][1]), num(m[0][2]), num(m[1][2]))
}

// pathData returns the path in the SVG path data format with absolute commands.
func pathData(p *canvas.Path) string {
	sb := strings.Builder{}
	for _, seg := range p.Segments() {
		sb.WriteString(seg.Cmd.String())
		switch seg.Cmd {
		case canvas.MoveToCmd, canvas.LineToCmd:
			fmt.Fprintf(&sb, "%v %v", num(seg.P[0].X), num(seg.P[0].Y))
		case canvas.CubeToCmd:
			fmt.Fprintf(&sb, "%v %v %v %v %v %v", num(seg.P[0].X), num(seg.P[0].Y), num(seg.P[1].X), num(seg.P[1].Y), num(seg.P[2].X), num(seg.P[2].Y))
		}
	}
	return sb.String()
}
