package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/leather-drafts/internal/pattern"
)

// Format renders pieces as DSL source. Parsing the output yields the same
// pieces. Unresolved ARC commands are written as comments.
func Format(pieces []pattern.Piece) string {
	var b strings.Builder
	for i, pc := range pieces {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "PIECE %s\n", pc.Name)
		for _, c := range pc.Paths {
			switch c.Type {
			case pattern.Move, pattern.Line:
				fmt.Fprintf(&b, "%s %s\n", c.Type, pt(*c.Data.To))
			case pattern.Curve:
				fmt.Fprintf(&b, "CURVE %s -> %s -> %s\n", pt(*c.Data.CP1), pt(*c.Data.CP2), pt(*c.Data.To))
			case pattern.Arc:
				if c.IsRawArc() {
					fmt.Fprintf(&b, "# unresolved arc: %v\n", c.Data.Raw)
					continue
				}
				large := ""
				if c.Data.Large {
					large = " LARGE"
				}
				fmt.Fprintf(&b, "ARC R=%s SWEEP=%s%s TO %s\n", num(c.Data.Radius), c.Data.Sweep, large, pt(*c.Data.To))
			case pattern.Close:
				b.WriteString("CLOSE\n")
			}
		}
		for _, n := range pc.Notches {
			fmt.Fprintf(&b, "NOTCH %s,%s %q\n", num(n.X), num(n.Y), n.Label)
		}
		for _, d := range pc.Drills {
			fmt.Fprintf(&b, "DRILL %s,%s %q\n", num(d.X), num(d.Y), d.Label)
		}
		if pc.Grain != nil {
			fmt.Fprintf(&b, "GRAIN %s -> %s\n", pt(pc.Grain[0]), pt(pc.Grain[1]))
		}
		if pc.SeamAllowance != nil {
			fmt.Fprintf(&b, "SA %s\n", num(*pc.SeamAllowance))
		}
		b.WriteString("END\n")
	}
	return b.String()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func pt(p pattern.Point) string { return num(p.X) + "," + num(p.Y) }
