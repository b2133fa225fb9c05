package geom

import (
	"math"
	"testing"
)

func TestDistToSegment(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b Vec
		want    float64
	}{
		{"perpendicular foot inside", Vec{X: 5, Y: 3}, Vec{}, Vec{X: 10}, 3},
		{"beyond end clamps", Vec{X: 13, Y: 4}, Vec{}, Vec{X: 10}, 5},
		{"before start clamps", Vec{X: -3, Y: -4}, Vec{}, Vec{X: 10}, 5},
		{"degenerate segment", Vec{X: 3, Y: 4}, Vec{}, Vec{}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistToSegment(tt.p, tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("DistToSegment = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFlattenCubic_StraightCurveIsOneSegment(t *testing.T) {
	p0, p3 := Vec{}, Vec{X: 30}
	pts := FlattenCubic(p0, Vec{X: 10}, Vec{X: 20}, p3, 0.2)

	if len(pts) != 2 {
		t.Fatalf("expected 2 points for a straight cubic, got %d", len(pts))
	}
	if pts[0] != p0 || pts[1] != p3 {
		t.Errorf("endpoints = %v, want %v and %v", pts, p0, p3)
	}
}

func TestFlattenCubic_WithinTolerance(t *testing.T) {
	p0, p1, p2, p3 := Vec{}, Vec{Y: 100}, Vec{X: 100, Y: 100}, Vec{X: 100}

	for _, tol := range []float64{1, 0.2, 0.05} {
		pts := FlattenCubic(p0, p1, p2, p3, tol)
		if pts[0] != p0 || pts[len(pts)-1] != p3 {
			t.Fatalf("tol=%g: endpoints not preserved", tol)
		}

		// every sampled curve point must be close to the polyline
		for i := 0; i <= 200; i++ {
			c := CubicAt(p0, p1, p2, p3, float64(i)/200)
			best := math.Inf(1)
			for k := 1; k < len(pts); k++ {
				best = math.Min(best, DistToSegment(c, pts[k-1], pts[k]))
			}
			if best > tol*1.01 {
				t.Fatalf("tol=%g: sample %d deviates %f", tol, i, best)
			}
		}
	}
}

func TestFlattenCubic_TighterToleranceAddsPoints(t *testing.T) {
	p0, p1, p2, p3 := Vec{}, Vec{Y: 50}, Vec{X: 50, Y: 50}, Vec{X: 50}
	coarse := FlattenCubic(p0, p1, p2, p3, 2)
	fine := FlattenCubic(p0, p1, p2, p3, 0.01)
	if len(fine) <= len(coarse) {
		t.Errorf("expected more points for tighter tolerance: coarse=%d fine=%d", len(coarse), len(fine))
	}
}

func TestFlattenCubic_NonPositiveToleranceUsesDefault(t *testing.T) {
	p0, p1, p2, p3 := Vec{}, Vec{Y: 50}, Vec{X: 50, Y: 50}, Vec{X: 50}
	a := FlattenCubic(p0, p1, p2, p3, 0)
	b := FlattenCubic(p0, p1, p2, p3, DefaultFlattenTol)
	if len(a) != len(b) {
		t.Errorf("tol=0 gave %d points, default gave %d", len(a), len(b))
	}
}
