package pattern

import (
	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
)

// Polyline is a flattened outline.
type Polyline struct {
	Points []geom.Vec
	Closed bool
}

// Flatten converts path commands into a polyline. Curves are subdivided to
// tol (chord deviation), arcs by sagitta. Commands that need a pen are
// skipped until one is set; unresolved ARC commands are skipped. When the
// path is closed the last point equals the first.
func Flatten(cmds []Command, tol float64) Polyline {
	var (
		verts  []geom.Vec
		pen    *geom.Vec
		closed bool
	)
	setPen := func(v geom.Vec) {
		verts = append(verts, v)
		pen = &v
	}
	for _, c := range cmds {
		switch c.Type {
		case Move, Line:
			if c.Data.To == nil {
				continue
			}
			setPen(c.Data.To.Vec())
		case Curve:
			if pen == nil || c.Data.CP1 == nil || c.Data.CP2 == nil || c.Data.To == nil {
				continue
			}
			pts := geom.FlattenCubic(*pen, c.Data.CP1.Vec(), c.Data.CP2.Vec(), c.Data.To.Vec(), tol)
			verts = append(verts, pts[1:]...)
			to := c.Data.To.Vec()
			pen = &to
		case Arc:
			if pen == nil || c.IsRawArc() {
				if c.IsRawArc() {
					monitoring.L().Sugar().Warnf("skipping unresolved ARC %v", c.Data.Raw)
				}
				continue
			}
			a, err := geom.NewArc(*pen, c.Data.To.Vec(), c.Data.Radius, c.Data.Sweep == CCW, c.Data.Large)
			if err != nil {
				// zero-length arc contributes nothing
				continue
			}
			pts := a.Flatten(tol)
			verts = append(verts, pts[1:]...)
			to := c.Data.To.Vec()
			pen = &to
		case Close:
			closed = true
		}
	}
	if closed && len(verts) > 0 && !geom.Near(verts[0], verts[len(verts)-1], geom.Eps) {
		verts = append(verts, verts[0])
	}
	return Polyline{Points: verts, Closed: closed}
}

// Outline flattens the piece's cut path.
func (p *Piece) Outline(tol float64) Polyline {
	return Flatten(p.Paths, tol)
}

// Allowance returns the seam allowance ring, or nil when none was
// constructed.
func (p *Piece) Allowance() []geom.Vec {
	if len(p.SAPaths) == 0 {
		return nil
	}
	return Flatten(p.SAPaths, geom.DefaultFlattenTol).Points
}

// PathFromRing converts a closed ring into MOVE/LINE commands with coordinates
// rounded to file precision. The ring stays closed after rounding.
func PathFromRing(ring []geom.Vec) []Command {
	if len(ring) == 0 {
		return nil
	}
	cmds := make([]Command, 0, len(ring))
	cmds = append(cmds, MoveTo(Round3(ring[0].X), Round3(ring[0].Y)))
	for _, v := range ring[1:] {
		cmds = append(cmds, LineTo(Round3(v.X), Round3(v.Y)))
	}
	if !geom.IsClosed(ring) {
		cmds = append(cmds, LineTo(Round3(ring[0].X), Round3(ring[0].Y)))
	}
	return cmds
}
