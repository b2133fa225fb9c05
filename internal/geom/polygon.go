package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Eps is the coordinate tolerance used for point equality.
const Eps = 1e-9

// Near reports whether a and b are within eps of each other.
func Near(a, b Vec, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

// IsClosed reports whether the polyline ends on its first point.
func IsClosed(pts []Vec) bool {
	return len(pts) > 1 && Near(pts[0], pts[len(pts)-1], Eps)
}

// Open strips the closing duplicate from a ring.
func Open(pts []Vec) []Vec {
	if IsClosed(pts) {
		return pts[:len(pts)-1]
	}
	return pts
}

// Close appends the first point when the polyline does not already end on it.
func Close(pts []Vec) []Vec {
	if len(pts) == 0 || IsClosed(pts) {
		return pts
	}
	return append(pts, pts[0])
}

// Dedupe drops consecutive points closer than eps.
func Dedupe(pts []Vec, eps float64) []Vec {
	if len(pts) == 0 {
		return nil
	}
	out := []Vec{pts[0]}
	for _, p := range pts[1:] {
		if !Near(p, out[len(out)-1], eps) {
			out = append(out, p)
		}
	}
	return out
}

// SignedArea returns the shoelace area of a ring: positive when
// counter-clockwise. A closing duplicate point is allowed.
func SignedArea(ring []Vec) float64 {
	pts := Open(ring)
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += r2.Cross(pts[i], pts[j])
	}
	return a / 2
}

// Area returns the absolute area of a ring.
func Area(ring []Vec) float64 {
	return math.Abs(SignedArea(ring))
}

// Length returns the total length of a polyline.
func Length(pts []Vec) float64 {
	var l float64
	for i := 1; i < len(pts); i++ {
		l += r2.Norm(r2.Sub(pts[i], pts[i-1]))
	}
	return l
}

// Bounds returns the axis aligned bounding box of points. The zero Box is
// returned for an empty slice.
func Bounds(pts []Vec) r2.Box {
	if len(pts) == 0 {
		return r2.Box{}
	}
	b := r2.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// UnionBounds merges two boxes, treating a zero box as empty.
func UnionBounds(a, b r2.Box) r2.Box {
	if a == (r2.Box{}) {
		return b
	}
	if b == (r2.Box{}) {
		return a
	}
	return r2.Box{
		Min: Vec{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y)},
		Max: Vec{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y)},
	}
}

// Contains reports whether p lies inside the ring (even-odd rule).
func Contains(ring []Vec, p Vec) bool {
	pts := Open(ring)
	in := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				in = !in
			}
		}
	}
	return in
}
