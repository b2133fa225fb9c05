package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec is a 2D point or vector.
type Vec = r2.Vec

// DefaultFlattenTol is the chord tolerance (mm) used when none is given.
const DefaultFlattenTol = 0.2

// maxFlattenDepth bounds subdivision for degenerate control polygons.
const maxFlattenDepth = 24

// DistToSegment returns the distance from p to the segment a-b.
func DistToSegment(p, a, b Vec) float64 {
	d := r2.Sub(b, a)
	l2 := r2.Norm2(d)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), d) / l2
	t = math.Max(0, math.Min(1, t))
	proj := r2.Add(a, r2.Scale(t, d))
	return r2.Norm(r2.Sub(p, proj))
}

func mid(a, b Vec) Vec {
	return Vec{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// CubicAt evaluates the cubic Bezier p0..p3 at t in [0,1].
func CubicAt(p0, p1, p2, p3 Vec, t float64) Vec {
	u := 1 - t
	return Vec{
		X: u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X,
		Y: u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y,
	}
}

// FlattenCubic approximates a cubic Bezier with a polyline by adaptive de
// Casteljau subdivision. A span is accepted once both inner control points
// lie within tol of its chord. The result starts with p0 and ends with p3.
func FlattenCubic(p0, p1, p2, p3 Vec, tol float64) []Vec {
	if tol <= 0 {
		tol = DefaultFlattenTol
	}
	type span struct {
		a, b, c, d Vec
		depth      int
	}
	out := []Vec{p0}
	stack := []span{{p0, p1, p2, p3, 0}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		err := math.Max(DistToSegment(s.b, s.a, s.d), DistToSegment(s.c, s.a, s.d))
		if err <= tol || s.depth >= maxFlattenDepth {
			out = append(out, s.d)
			continue
		}
		ab, bc, cd := mid(s.a, s.b), mid(s.b, s.c), mid(s.c, s.d)
		abc, bcd := mid(ab, bc), mid(bc, cd)
		abcd := mid(abc, bcd)
		// right half first so the left half is processed next
		stack = append(stack, span{abcd, bcd, cd, s.d, s.depth + 1})
		stack = append(stack, span{s.a, ab, abc, abcd, s.depth + 1})
	}
	return out
}
