package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultMiterLimit matches the miter limit used for seam allowances.
const DefaultMiterLimit = 4.0

// Offset grows a closed ring outward by delta using miter joins. Convex
// corners whose miter would exceed limit*delta are bevelled. The result is a
// closed ring (last point equals first) with the same orientation as the
// input; nil is returned for rings with fewer than three distinct points.
//
// Concave features narrower than 2*delta can fold over; callers check the
// result with SelfIntersections.
func Offset(ring []Vec, delta, limit float64) []Vec {
	pts := dropCollinear(Dedupe(Open(ring), 1e-7))
	n := len(pts)
	if n < 3 {
		return nil
	}
	if limit < 1 {
		limit = DefaultMiterLimit
	}

	// Outward normals: right-hand for CCW rings, left-hand for CW.
	orient := 1.0
	if SignedArea(pts) < 0 {
		orient = -1
	}
	normals := make([]Vec, n)
	for i := 0; i < n; i++ {
		e := r2.Sub(pts[(i+1)%n], pts[i])
		l := r2.Norm(e)
		normals[i] = Vec{X: orient * e.Y / l, Y: -orient * e.X / l}
	}

	out := make([]Vec, 0, n+4)
	for i := 0; i < n; i++ {
		n1 := normals[(i+n-1)%n]
		n2 := normals[i]
		v := pts[i]

		q := 1 + r2.Dot(n1, n2)
		turn := orient * r2.Cross(r2.Sub(v, pts[(i+n-1)%n]), r2.Sub(pts[(i+1)%n], v))
		convex := turn > 0

		switch {
		case q < 1e-9:
			// the path doubles back on itself
			out = append(out, r2.Add(v, r2.Scale(delta, n1)), r2.Add(v, r2.Scale(delta, n2)))
		case convex && math.Sqrt(2/q) > limit:
			out = append(out, r2.Add(v, r2.Scale(delta, n1)), r2.Add(v, r2.Scale(delta, n2)))
		default:
			out = append(out, r2.Add(v, r2.Scale(delta/q, r2.Add(n1, n2))))
		}
	}
	return Close(out)
}

// dropCollinear removes vertices that lie on the line through their
// neighbours.
func dropCollinear(pts []Vec) []Vec {
	if len(pts) < 3 {
		return pts
	}
	out := make([]Vec, 0, len(pts))
	n := len(pts)
	for i := 0; i < n; i++ {
		prev := pts[(i+n-1)%n]
		next := pts[(i+1)%n]
		a := r2.Sub(pts[i], prev)
		b := r2.Sub(next, pts[i])
		if math.Abs(r2.Cross(a, b)) <= 1e-9*r2.Norm(a)*r2.Norm(b) && r2.Dot(a, b) > 0 {
			continue
		}
		out = append(out, pts[i])
	}
	return out
}
