package construct

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/banshee-data/leather-drafts/internal/config"
	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/pattern"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func rect(name string, w, h float64) pattern.Piece {
	return pattern.Piece{Name: name, Paths: []pattern.Command{
		pattern.MoveTo(0, 0),
		pattern.LineTo(w, 0),
		pattern.LineTo(w, h),
		pattern.LineTo(0, h),
		pattern.ClosePath(),
	}}
}

func bowtie(name string) pattern.Piece {
	return pattern.Piece{Name: name, Paths: []pattern.Command{
		pattern.MoveTo(0, 0),
		pattern.LineTo(10, 10),
		pattern.LineTo(10, 0),
		pattern.LineTo(0, 10),
		pattern.ClosePath(),
	}}
}

func f(v float64) *float64 { return &v }

func TestRun_RectangleAllowance(t *testing.T) {
	in := &pattern.Pattern{Units: "mm", Pieces: []pattern.Piece{rect("panel", 140, 520)}}
	out, rep, err := Run(context.Background(), in, &config.ConstructOptions{SeamAllowance: f(8)})
	require.NoError(t, err)

	sa := out.Pieces[0].Allowance()
	require.NotEmpty(t, sa)
	assert.True(t, geom.IsClosed(sa))
	b := geom.Bounds(sa)
	assert.InDelta(t, -8, b.Min.X, 1e-9)
	assert.InDelta(t, -8, b.Min.Y, 1e-9)
	assert.InDelta(t, 148, b.Max.X, 1e-9)
	assert.InDelta(t, 528, b.Max.Y, 1e-9)

	for _, c := range out.Pieces[0].SAPaths[1:] {
		assert.Equal(t, pattern.Line, c.Type)
	}
	assert.Equal(t, pattern.Move, out.Pieces[0].SAPaths[0].Type)

	assert.Nil(t, in.Pieces[0].SAPaths, "input must not be modified")
	assert.Equal(t, 4, rep.Pieces[0].OutlineVertices)
	assert.Equal(t, 4, rep.Pieces[0].AllowanceVertices)
	assert.Empty(t, rep.Pieces[0].Skipped)
}

func TestRun_AllowanceInPatternUnits(t *testing.T) {
	tests := []struct {
		units string
		want  float64
	}{
		{"mm", 8},
		{"cm", 0.8},
		{"in", 8 / 25.4},
		{"unitless", 8},
	}
	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			in := &pattern.Pattern{Units: tt.units, Pieces: []pattern.Piece{rect("panel", 10, 10)}}
			out, rep, err := Run(context.Background(), in, &config.ConstructOptions{SeamAllowance: f(8)})
			require.NoError(t, err)

			b := geom.Bounds(out.Pieces[0].Allowance())
			assert.InDelta(t, -tt.want, b.Min.X, 1e-9)
			assert.InDelta(t, 10+tt.want, b.Max.Y, 1e-9)
			assert.Equal(t, 8.0, rep.Pieces[0].SeamAllowance, "report keeps millimetres")
			assert.Equal(t, tt.units, out.Units)
		})
	}
}

func TestRun_AllowancePrecedence(t *testing.T) {
	a := rect("a", 100, 100)
	a.SeamAllowance = f(5)
	b := rect("b", 100, 100)
	b.SeamAllowance = f(5)
	c := rect("c", 100, 100)
	in := &pattern.Pattern{Pieces: []pattern.Piece{a, b, c}}
	opts := &config.ConstructOptions{
		SeamAllowance: f(10),
		Pieces:        map[string]config.PieceOptions{"a": {SeamAllowance: f(2)}},
	}
	_, rep, err := Run(context.Background(), in, opts)
	require.NoError(t, err)
	got := []float64{rep.Pieces[0].SeamAllowance, rep.Pieces[1].SeamAllowance, rep.Pieces[2].SeamAllowance}
	assert.Equal(t, []float64{2, 5, 10}, got)
}

func TestRun_PreservesOrder(t *testing.T) {
	var pieces []pattern.Piece
	names := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9"}
	for i, n := range names {
		pieces = append(pieces, rect(n, float64(10+i), 20))
	}
	out, rep, err := Run(context.Background(), &pattern.Pattern{Pieces: pieces},
		&config.ConstructOptions{SeamAllowance: f(1), Concurrency: intPtr(3)})
	require.NoError(t, err)
	for i, n := range names {
		assert.Equal(t, n, out.Pieces[i].Name)
		assert.Equal(t, n, rep.Pieces[i].Name)
		assert.InDelta(t, float64(10+i)+1, geom.Bounds(out.Pieces[i].Allowance()).Max.X, 1e-9)
	}
}

func intPtr(v int) *int { return &v }

func TestRun_Skips(t *testing.T) {
	line := pattern.Piece{Name: "line", Paths: []pattern.Command{pattern.MoveTo(0, 0), pattern.LineTo(5, 0)}}
	in := &pattern.Pattern{Pieces: []pattern.Piece{line, rect("zero", 10, 10)}}
	in.Pieces[1].SAPaths = []pattern.Command{pattern.MoveTo(0, 0)}

	out, rep, err := Run(context.Background(), in, &config.ConstructOptions{
		SeamAllowance: f(4),
		Pieces:        map[string]config.PieceOptions{"zero": {SeamAllowance: f(0)}},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Pieces[0].SAPaths)
	assert.Equal(t, SkipTooFewVerts, rep.Pieces[0].Skipped)
	assert.Nil(t, out.Pieces[1].SAPaths, "stale sa_paths are dropped")
	assert.Equal(t, SkipNoAllowance, rep.Pieces[1].Skipped)
}

func TestRun_NilOptionsMeansNoAllowance(t *testing.T) {
	out, rep, err := Run(context.Background(), &pattern.Pattern{Pieces: []pattern.Piece{rect("a", 1, 1)}}, nil)
	require.NoError(t, err)
	assert.Nil(t, out.Pieces[0].SAPaths)
	assert.Equal(t, SkipNoAllowance, rep.Pieces[0].Skipped)
}

func TestRun_Intersections(t *testing.T) {
	in := &pattern.Pattern{Pieces: []pattern.Piece{rect("ok", 10, 10), bowtie("bow")}}

	_, rep, err := Run(context.Background(), in, &config.ConstructOptions{SeamAllowance: f(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"bow"}, rep.Intersecting())
	assert.Greater(t, rep.Pieces[1].OutlineCrossings, 0)

	_, rep, err = Run(context.Background(), in, &config.ConstructOptions{SeamAllowance: f(1), FailOnIntersection: boolPtr(true)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIntersection))
	assert.NotNil(t, rep)
}

func boolPtr(v bool) *bool { return &v }

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Run(ctx, &pattern.Pattern{Pieces: []pattern.Piece{rect("a", 1, 1)}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
