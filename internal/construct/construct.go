// Package construct applies construction transforms to a drafted pattern.
// It currently adds the seam allowance ring of every piece.
package construct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/leather-drafts/internal/config"
	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// ErrIntersection is returned when fail_on_intersection is set and an
// outline or allowance crosses itself.
var ErrIntersection = errors.New("self-intersecting geometry")

// Reasons a piece gets no allowance.
const (
	SkipNoAllowance = "no seam allowance"
	SkipTooFewVerts = "outline has fewer than 3 vertices"
	SkipDegenerate  = "offset produced no ring"
)

// PieceReport describes what happened to one piece.
type PieceReport struct {
	Name               string  `json:"name"`
	SeamAllowance      float64 `json:"seam_allowance"`
	OutlineVertices    int     `json:"outline_vertices"`
	AllowanceVertices  int     `json:"allowance_vertices"`
	OutlineCrossings   int     `json:"outline_crossings"`
	AllowanceCrossings int     `json:"allowance_crossings"`
	Skipped            string  `json:"skipped,omitempty"`
}

// Intersecting reports whether the outline or allowance crosses itself.
func (r PieceReport) Intersecting() bool {
	return r.OutlineCrossings > 0 || r.AllowanceCrossings > 0
}

// Report summarizes a construct run in piece order.
type Report struct {
	Pieces []PieceReport `json:"pieces"`
}

// Intersecting lists the pieces whose geometry crosses itself.
func (r *Report) Intersecting() []string {
	var names []string
	for _, p := range r.Pieces {
		if p.Intersecting() {
			names = append(names, p.Name)
		}
	}
	return names
}

// Run returns a copy of in with sa_paths computed for every piece. The input
// pattern is not modified. Pieces are offset concurrently; output order
// matches input order.
func Run(ctx context.Context, in *pattern.Pattern, opts *config.ConstructOptions) (*pattern.Pattern, *Report, error) {
	if opts == nil {
		opts = config.DefaultConstructOptions()
	}
	out := &pattern.Pattern{Units: in.Units, Pieces: make([]pattern.Piece, len(in.Pieces))}
	copy(out.Pieces, in.Pieces)
	rep := &Report{Pieces: make([]PieceReport, len(in.Pieces))}
	unit := units.Normalize(in.Units)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.GetConcurrency())
	for i := range out.Pieces {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pc := &out.Pieces[i]
			sa := opts.AllowanceFor(pc.Name, pc.SeamAllowance)
			dist := units.Convert(sa, units.MM, unit)
			pc.SAPaths, rep.Pieces[i] = offsetPiece(pc, sa, dist, opts.GetFlattenTol(), opts.GetMiterLimit())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if bad := rep.Intersecting(); len(bad) > 0 {
		if opts.GetFailOnIntersection() {
			return nil, rep, fmt.Errorf("%w: %s", ErrIntersection, strings.Join(bad, ", "))
		}
		monitoring.L().Warn("self-intersecting pieces", zap.Strings("pieces", bad))
	}
	return out, rep, nil
}

// offsetPiece offsets the outline by dist, the allowance sa (mm) expressed
// in the pattern's units.
func offsetPiece(pc *pattern.Piece, sa, dist, tol, limit float64) ([]pattern.Command, PieceReport) {
	rep := PieceReport{Name: pc.Name, SeamAllowance: sa}
	outline := pc.Outline(tol).Points
	ring := geom.Close(geom.Dedupe(geom.Open(outline), geom.Eps))
	rep.OutlineVertices = len(geom.Open(ring))
	rep.OutlineCrossings = len(geom.SelfIntersections(ring))

	log := monitoring.L().With(zap.String("piece", pc.Name))
	switch {
	case sa <= 0:
		rep.Skipped = SkipNoAllowance
		return nil, rep
	case rep.OutlineVertices < 3:
		rep.Skipped = SkipTooFewVerts
		log.Debug("skipping allowance", zap.Int("vertices", rep.OutlineVertices))
		return nil, rep
	}

	off := geom.Offset(ring, dist, limit)
	if off == nil {
		rep.Skipped = SkipDegenerate
		return nil, rep
	}
	cmds := pattern.PathFromRing(off)
	rep.AllowanceVertices = len(cmds) - 1
	rep.AllowanceCrossings = len(geom.SelfIntersections(pattern.Flatten(cmds, tol).Points))
	log.Debug("seam allowance",
		zap.Float64("mm", sa),
		zap.Float64("distance", dist),
		zap.Int("outline_vertices", rep.OutlineVertices),
		zap.Int("allowance_vertices", rep.AllowanceVertices))
	return cmds, rep
}
