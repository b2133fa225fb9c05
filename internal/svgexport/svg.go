// Package svgexport renders pattern previews as SVG.
//
// Coordinates are written in hundredths of the pattern unit so that svgo's
// integer API keeps 0.01 precision; the viewBox maps them back to real size.
// The y axis is flipped so previews match the DXF orientation.
package svgexport

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// sub is the number of SVG user units per pattern unit.
const sub = 100

// Drawn sizes in millimetres, independent of the pattern unit.
const (
	labelGapMM   = 12.0
	nameRaiseMM  = 2.0
	notchArmMM   = 1.5
	drillMM      = 1.0
	labelShiftMM = 4.0
	grainHeadMM  = 4.0
)

// scale converts millimetre sizes to the pattern unit.
type scale float64

func newScale(unit string) scale {
	return scale(units.Convert(1, units.MM, units.Normalize(unit)))
}

// of returns mm in pattern units.
func (s scale) of(mm float64) float64 { return mm * float64(s) }

// user returns mm in SVG user units, never less than one.
func (s scale) user(mm float64) int {
	return max(1, int(math.Round(s.of(mm)*sub)))
}

// styles holds the stroke and text styles sized for one unit.
type styles struct {
	cut, sa, notch, drill, grain, label, name string
}

func newStyles(s scale) styles {
	stroke := func(color string, mm float64) string {
		return fmt.Sprintf("fill:none;stroke:%s;stroke-width:%d", color, s.user(mm))
	}
	font := func(color string, mm float64) string {
		return fmt.Sprintf("font-family:sans-serif;font-size:%dpx;fill:%s", s.user(mm), color)
	}
	return styles{
		cut:   stroke("#000", 0.3),
		sa:    stroke("#d00", 0.2) + fmt.Sprintf(";stroke-dasharray:%d,%d", s.user(2), s.user(1)),
		notch: stroke("#080", 0.25),
		drill: stroke("#00c", 0.2),
		grain: stroke("#a60", 0.2),
		label: font("#444", 5),
		name:  font("#000", 8),
	}
}

// Options configures rendering.
type Options struct {
	// Margin separates stacked pieces and pads the sheet, in millimetres.
	Margin float64
	// FlattenTol is used only to compute bounds of curved outlines.
	FlattenTol float64
}

// DefaultOptions returns the options used by the package stage.
func DefaultOptions() Options {
	return Options{Margin: 20, FlattenTol: geom.DefaultFlattenTol}
}

// placed is a piece with its translation on the sheet.
type placed struct {
	piece *pattern.Piece
	off   geom.Vec
	box   r2.Box
}

// Bounds returns the extent of everything drawn for a piece: outline,
// allowance, marks and grain line.
func Bounds(pc *pattern.Piece, tol float64) r2.Box {
	pts := append([]geom.Vec{}, pc.Outline(tol).Points...)
	pts = append(pts, pc.Allowance()...)
	for _, n := range pc.Notches {
		pts = append(pts, n.Vec())
	}
	for _, d := range pc.Drills {
		pts = append(pts, d.Vec())
	}
	if pc.Grain != nil {
		pts = append(pts, pc.Grain[0].Vec(), pc.Grain[1].Vec())
	}
	return geom.Bounds(pts)
}

// layout stacks pieces top to bottom, left aligned, leaving room for the
// name label under each one.
func layout(pieces []pattern.Piece, s scale, opts Options) ([]placed, r2.Box) {
	margin, gap := s.of(opts.Margin), s.of(labelGapMM)
	var (
		out    []placed
		sheet  r2.Box
		cursor float64
		first  = true
	)
	for i := range pieces {
		pc := &pieces[i]
		b := Bounds(pc, opts.FlattenTol)
		off := geom.Vec{X: -b.Min.X, Y: cursor - b.Max.Y}
		box := r2.Box{Min: r2.Add(b.Min, off), Max: r2.Add(b.Max, off)}
		box.Min.Y -= gap
		out = append(out, placed{piece: pc, off: off, box: box})
		if first {
			sheet, first = box, false
		} else {
			sheet = geom.UnionBounds(sheet, box)
		}
		cursor = box.Min.Y - margin
	}
	m := geom.Vec{X: margin, Y: margin}
	return out, r2.Box{Min: r2.Sub(sheet.Min, m), Max: r2.Add(sheet.Max, m)}
}

// Sheet writes every piece of the pattern to one SVG document.
func Sheet(w io.Writer, p *pattern.Pattern, opts Options) error {
	s := newScale(p.Units)
	items, box := layout(p.Pieces, s, opts)
	return render(w, "pattern", p.Units, s, items, box)
}

// Piece writes a single piece to its own SVG document.
func Piece(w io.Writer, pc *pattern.Piece, unit string, opts Options) error {
	s := newScale(unit)
	items, box := layout([]pattern.Piece{*pc}, s, opts)
	return render(w, pc.Name, unit, s, items, box)
}

func render(w io.Writer, title, unit string, s scale, items []placed, box r2.Box) error {
	ew := &errWriter{w: w}
	minX, maxX := math.Floor(box.Min.X), math.Ceil(box.Max.X)
	minY, maxY := math.Floor(-box.Max.Y), math.Ceil(-box.Min.Y)
	width, height := int(maxX-minX), int(maxY-minY)
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	canvas := svg.New(ew)
	canvas.StartviewUnit(width, height, svgUnit(unit),
		int(minX)*sub, int(minY)*sub, width*sub, height*sub)
	canvas.Title(title)
	st := newStyles(s)
	for _, it := range items {
		drawPiece(canvas, it, s, st)
	}
	canvas.End()
	return ew.err
}

func svgUnit(unit string) string {
	switch u := units.Normalize(unit); u {
	case units.MM, units.CM, units.IN:
		return u
	}
	return ""
}

// xy converts a pattern coordinate to SVG user units.
func xy(v, off geom.Vec) (int, int) {
	return int(math.Round((v.X + off.X) * sub)), int(math.Round(-(v.Y + off.Y) * sub))
}

func drawPiece(canvas *svg.SVG, it placed, s scale, st styles) {
	pc := it.piece
	arm, shift := s.user(notchArmMM), s.user(labelShiftMM)
	canvas.Gid(sanitizeID(pc.Name))
	if d := PathData(pc.Paths, it.off); d != "" {
		canvas.Path(d, st.cut)
	}
	if d := PathData(pc.SAPaths, it.off); d != "" {
		canvas.Path(d, st.sa)
	}
	for _, n := range pc.Notches {
		x, y := xy(n.Vec(), it.off)
		canvas.Line(x-arm, y, x+arm, y, st.notch)
		canvas.Line(x, y-arm, x, y+arm, st.notch)
		if n.Label != "" {
			canvas.Text(x+shift, y-shift, n.Label, st.label)
		}
	}
	for _, d := range pc.Drills {
		x, y := xy(d.Vec(), it.off)
		canvas.Circle(x, y, s.user(drillMM), st.drill)
		if d.Label != "" {
			canvas.Text(x+shift, y-shift, d.Label, st.label)
		}
	}
	if pc.Grain != nil {
		canvas.Path(grainPath(pc.Grain[0].Vec(), pc.Grain[1].Vec(), it.off, s.of(grainHeadMM)), st.grain)
	}
	nx, ny := xy(geom.Vec{X: it.box.Min.X, Y: it.box.Min.Y + s.of(nameRaiseMM)}, geom.Vec{})
	canvas.Text(nx, ny, pc.Name, st.name)
	canvas.Gend()
}

// PathData converts path commands to an SVG path string, translated by off.
// Curves become C segments and arcs A segments.
func PathData(cmds []pattern.Command, off geom.Vec) string {
	var b strings.Builder
	pen := false
	for _, c := range cmds {
		switch c.Type {
		case pattern.Move, pattern.Line:
			if c.Data.To == nil {
				continue
			}
			letter := "L"
			if c.Type == pattern.Move || !pen {
				letter = "M"
			}
			x, y := xy(c.Data.To.Vec(), off)
			fmt.Fprintf(&b, "%s%d %d ", letter, x, y)
			pen = true
		case pattern.Curve:
			if !pen || c.Data.CP1 == nil || c.Data.CP2 == nil || c.Data.To == nil {
				continue
			}
			x1, y1 := xy(c.Data.CP1.Vec(), off)
			x2, y2 := xy(c.Data.CP2.Vec(), off)
			x, y := xy(c.Data.To.Vec(), off)
			fmt.Fprintf(&b, "C%d %d %d %d %d %d ", x1, y1, x2, y2, x, y)
		case pattern.Arc:
			if !pen || c.IsRawArc() {
				continue
			}
			r := int(math.Round(c.Data.Radius * sub))
			large, sweep := 0, 0
			if c.Data.Large {
				large = 1
			}
			// y is flipped, so clockwise in pattern space is the positive
			// angle direction on screen.
			if c.Data.Sweep == pattern.CW {
				sweep = 1
			}
			x, y := xy(c.Data.To.Vec(), off)
			fmt.Fprintf(&b, "A%d %d 0 %d %d %d %d ", r, r, large, sweep, x, y)
		case pattern.Close:
			if pen {
				b.WriteString("Z ")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// grainPath draws the grain line with an arrow head of length head at both
// ends.
func grainPath(a, b, off geom.Vec, head float64) string {
	dir := r2.Sub(b, a)
	l := r2.Norm(dir)
	if l < geom.Eps {
		x, y := xy(a, off)
		return fmt.Sprintf("M%d %d l1 0", x, y)
	}
	u := r2.Scale(1/l, dir)
	n := geom.Vec{X: -u.Y, Y: u.X}
	tip := func(p geom.Vec, back geom.Vec) string {
		l := r2.Add(r2.Add(p, r2.Scale(head, back)), r2.Scale(head/2, n))
		r := r2.Sub(r2.Add(p, r2.Scale(head, back)), r2.Scale(head/2, n))
		lx, ly := xy(l, off)
		px, py := xy(p, off)
		rx, ry := xy(r, off)
		return fmt.Sprintf("M%d %d L%d %d L%d %d", lx, ly, px, py, rx, ry)
	}
	ax, ay := xy(a, off)
	bx, by := xy(b, off)
	return fmt.Sprintf("M%d %d L%d %d %s %s", ax, ay, bx, by, tip(b, r2.Scale(-1, u)), tip(a, u))
}

// sanitizeID makes a piece name usable as an XML id.
func sanitizeID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') || s[0] == '-' {
		s = "p_" + s
	}
	return s
}

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err == nil {
		_, e.err = e.w.Write(p)
	}
	return len(p), nil
}
