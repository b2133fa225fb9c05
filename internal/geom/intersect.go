package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Crossing records two segments of a polyline that intersect. Segment i runs
// from point i to point i+1.
type Crossing struct {
	SegA, SegB int
	At         Vec
}

// SelfIntersections returns the crossings between non-adjacent segments of
// a polyline. When the polyline is a closed ring the first and last segments
// are treated as adjacent. The check is O(n²).
func SelfIntersections(pts []Vec) []Crossing {
	n := len(pts) - 1
	if n < 3 {
		return nil
	}
	closed := IsClosed(pts)
	var out []Crossing
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if closed && i == 0 && j == n-1 {
				continue
			}
			if at, ok := segmentIntersection(pts[i], pts[i+1], pts[j], pts[j+1]); ok {
				out = append(out, Crossing{SegA: i, SegB: j, At: at})
			}
		}
	}
	return out
}

// IsSimple reports whether the polyline has no self-intersections.
func IsSimple(pts []Vec) bool {
	return len(SelfIntersections(pts)) == 0
}

func segmentIntersection(p1, p2, q1, q2 Vec) (Vec, bool) {
	r := r2.Sub(p2, p1)
	s := r2.Sub(q2, q1)
	denom := r2.Cross(r, s)
	qp := r2.Sub(q1, p1)

	if math.Abs(denom) < 1e-12 {
		if math.Abs(r2.Cross(qp, r)) > 1e-9 {
			return Vec{}, false // parallel
		}
		// collinear: overlap of projections onto r
		rr := r2.Dot(r, r)
		if rr == 0 {
			return Vec{}, false
		}
		t0 := r2.Dot(qp, r) / rr
		t1 := t0 + r2.Dot(s, r)/rr
		lo, hi := math.Min(t0, t1), math.Max(t0, t1)
		if hi < 0 || lo > 1 {
			return Vec{}, false
		}
		t := math.Max(0, lo)
		return r2.Add(p1, r2.Scale(t, r)), true
	}

	t := r2.Cross(qp, s) / denom
	u := r2.Cross(qp, r) / denom
	const e = 1e-12
	if t < -e || t > 1+e || u < -e || u > 1+e {
		return Vec{}, false
	}
	return r2.Add(p1, r2.Scale(t, r)), true
}
