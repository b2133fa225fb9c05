package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArc_QuarterCircle(t *testing.T) {
	// CCW quarter from (10,0) to (0,10) around the origin
	a, err := NewArc(Vec{X: 10}, Vec{Y: 10}, 10, true, false)
	require.NoError(t, err)

	assert.InDelta(t, 0, a.Center.X, 1e-9)
	assert.InDelta(t, 0, a.Center.Y, 1e-9)
	assert.InDelta(t, math.Pi/2, a.Sweep, 1e-9)
	assert.True(t, a.CCW())
	assert.False(t, a.Large())
	assert.InDelta(t, math.Tan(math.Pi/8), a.Bulge(), 1e-12)
}

func TestNewArc_DirectionsAndLargeFlag(t *testing.T) {
	start, end := Vec{X: 10}, Vec{Y: 10}

	cw, err := NewArc(start, end, 10, false, false)
	require.NoError(t, err)
	assert.Less(t, cw.Sweep, 0.0)
	assert.False(t, cw.Large())
	// minor CW arc bulges the other way: centre at (10,10)
	assert.InDelta(t, 10, cw.Center.X, 1e-9)
	assert.InDelta(t, 10, cw.Center.Y, 1e-9)

	big, err := NewArc(start, end, 10, false, true)
	require.NoError(t, err)
	assert.True(t, big.Large())
	assert.InDelta(t, -3*math.Pi/2, big.Sweep, 1e-9)
	assert.InDelta(t, 0, big.Center.X, 1e-9)
}

func TestNewArc_SmallRadiusIsScaled(t *testing.T) {
	a, err := NewArc(Vec{}, Vec{X: 20}, 1, true, false)
	require.NoError(t, err)
	assert.InDelta(t, 10, a.Radius, 1e-9)
	assert.InDelta(t, math.Pi, math.Abs(a.Sweep), 1e-9)
}

func TestNewArc_Degenerate(t *testing.T) {
	_, err := NewArc(Vec{X: 1}, Vec{X: 1}, 5, true, false)
	assert.ErrorIs(t, err, ErrDegenerateArc)

	_, err = NewArc(Vec{}, Vec{X: 1}, 0, true, false)
	assert.ErrorIs(t, err, ErrDegenerateArc)
}

func TestArcFlatten(t *testing.T) {
	a, err := NewArc(Vec{X: 100}, Vec{X: -100}, 100, true, false)
	require.NoError(t, err)

	pts := a.Flatten(0.1)
	require.GreaterOrEqual(t, len(pts), 3)
	assert.Equal(t, a.Start, pts[0])
	assert.Equal(t, a.End, pts[len(pts)-1])

	for i := 1; i < len(pts); i++ {
		m := mid(pts[i-1], pts[i])
		dist := a.Radius - math.Hypot(m.X-a.Center.X, m.Y-a.Center.Y)
		assert.LessOrEqual(t, dist, 0.1+1e-9, "segment %d sagitta", i)
	}
	// CCW from +x to -x passes through +y
	assert.Greater(t, pts[len(pts)/2].Y, 0.0)
}
