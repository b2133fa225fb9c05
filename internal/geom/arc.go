package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrDegenerateArc is returned for arcs whose endpoints coincide or whose
// radius is not positive.
var ErrDegenerateArc = errors.New("degenerate arc")

// Arc is a circular arc in y-up coordinates. Sweep is positive for
// counter-clockwise arcs.
type Arc struct {
	Start, End, Center Vec
	Radius             float64
	StartAngle         float64
	Sweep              float64
}

// NewArc builds the arc from start to end with the given radius. ccw selects
// the direction, large selects the arc longer than a half circle. A radius
// shorter than half the chord is scaled up to fit, as SVG does.
func NewArc(start, end Vec, radius float64, ccw, large bool) (Arc, error) {
	chord := r2.Sub(end, start)
	d := r2.Norm(chord)
	if d == 0 || radius <= 0 {
		return Arc{}, ErrDegenerateArc
	}
	if radius < d/2 {
		radius = d / 2
	}
	h := math.Sqrt(math.Max(0, radius*radius-d*d/4))
	left := Vec{X: -chord.Y / d, Y: chord.X / d}
	m := mid(start, end)

	// The minor CCW arc has its centre to the left of the chord.
	side := 1.0
	if ccw == large {
		side = -1
	}
	center := r2.Add(m, r2.Scale(side*h, left))

	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(end.Y-center.Y, end.X-center.X)
	sweep := a1 - a0
	if ccw {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	} else {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	}
	return Arc{
		Start:      start,
		End:        end,
		Center:     center,
		Radius:     radius,
		StartAngle: a0,
		Sweep:      sweep,
	}, nil
}

// CCW reports whether the arc runs counter-clockwise.
func (a Arc) CCW() bool { return a.Sweep > 0 }

// Large reports whether the arc spans more than half a circle.
func (a Arc) Large() bool { return math.Abs(a.Sweep) > math.Pi }

// Bulge is the LWPOLYLINE bulge factor for the arc: tan(sweep/4).
func (a Arc) Bulge() float64 {
	return math.Tan(a.Sweep / 4)
}

// PointAt returns the point at fraction t of the sweep.
func (a Arc) PointAt(t float64) Vec {
	ang := a.StartAngle + t*a.Sweep
	return Vec{
		X: a.Center.X + a.Radius*math.Cos(ang),
		Y: a.Center.Y + a.Radius*math.Sin(ang),
	}
}

// Flatten returns a polyline through the arc whose sagitta stays within tol.
// The first point is Start and the last is End exactly.
func (a Arc) Flatten(tol float64) []Vec {
	if tol <= 0 {
		tol = DefaultFlattenTol
	}
	step := math.Abs(a.Sweep)
	if tol < a.Radius {
		step = 2 * math.Acos(1-tol/a.Radius)
	}
	n := int(math.Ceil(math.Abs(a.Sweep) / step))
	if n < 1 {
		n = 1
	}
	out := make([]Vec, 0, n+1)
	out = append(out, a.Start)
	for i := 1; i < n; i++ {
		out = append(out, a.PointAt(float64(i)/float64(n)))
	}
	return append(out, a.End)
}
