package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffset_Square(t *testing.T) {
	for _, name := range []string{"ccw", "cw"} {
		t.Run(name, func(t *testing.T) {
			ring := square(0, 0, 100)
			if name == "cw" {
				for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
					ring[i], ring[j] = ring[j], ring[i]
				}
			}
			out := Offset(ring, 8, DefaultMiterLimit)
			require.NotNil(t, out)
			assert.True(t, IsClosed(out), "offset ring must be closed")
			assert.Len(t, out, 5)

			b := Bounds(out)
			assert.InDelta(t, -8, b.Min.X, 1e-9)
			assert.InDelta(t, -8, b.Min.Y, 1e-9)
			assert.InDelta(t, 108, b.Max.X, 1e-9)
			assert.InDelta(t, 108, b.Max.Y, 1e-9)
			assert.InDelta(t, 116*116, Area(out), 1e-6)
			assert.Equal(t, math.Signbit(SignedArea(ring)), math.Signbit(SignedArea(out)), "orientation preserved")
		})
	}
}

func TestOffset_ConcaveCornerMitersInward(t *testing.T) {
	// L shape, CCW
	ring := []Vec{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 20}, {X: 0, Y: 20}, {X: 0, Y: 0}}
	out := Offset(ring, 2, DefaultMiterLimit)
	require.NotNil(t, out)
	assert.True(t, IsSimple(out))

	// the reflex vertex (10,10) moves diagonally outward to (12,12)
	found := false
	for _, p := range out {
		if Near(p, Vec{X: 12, Y: 12}, 1e-9) {
			found = true
		}
	}
	assert.True(t, found, "expected mitered reflex point at (12,12), got %v", out)
	assert.Greater(t, Area(out), Area(ring))
}

func TestOffset_SharpCornerIsBevelled(t *testing.T) {
	// a thin triangle with a very acute apex at (100,0)
	ring := []Vec{{X: 0, Y: -5}, {X: 100, Y: 0}, {X: 0, Y: 5}, {X: 0, Y: -5}}
	out := Offset(ring, 2, DefaultMiterLimit)
	require.NotNil(t, out)

	// 3 corners, apex and base corners may each bevel; apex must
	assert.Greater(t, len(out)-1, 3)
	for _, p := range out {
		assert.Less(t, p.X, 100+2*DefaultMiterLimit+1e-9, "miter exceeded limit at %v", p)
	}
}

func TestOffset_DropsCollinearAndDegenerate(t *testing.T) {
	ring := []Vec{{X: 0}, {X: 5}, {X: 10}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0}}
	out := Offset(ring, 1, DefaultMiterLimit)
	assert.Len(t, out, 5, "collinear vertex should be removed")

	assert.Nil(t, Offset([]Vec{{X: 0}, {X: 1}, {X: 0}}, 1, 4))
	assert.Nil(t, Offset(nil, 1, 4))
}
