// Package validate checks pattern geometry for problems that would spoil a
// cut: missing or broken outlines, marks off the piece, crossings.
package validate

import (
	"fmt"
	"sort"

	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/pattern"
)

// Severity of an issue.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

// Issue codes.
const (
	CodeDuplicateName          = "duplicate_name"
	CodeEmptyOutline           = "empty_outline"
	CodeOpenOutline            = "open_outline"
	CodeTooFewVertices         = "too_few_vertices"
	CodeOutlineIntersects      = "outline_self_intersection"
	CodeAllowanceIntersects    = "allowance_self_intersection"
	CodeNotchOutside           = "notch_outside"
	CodeDrillOutside           = "drill_outside"
	CodeMissingGrain           = "missing_grain"
	CodeUnresolvedArc          = "unresolved_arc"
	CodeAllowanceInsideOutline = "allowance_inside_outline"
)

// Issue is one finding.
type Issue struct {
	Piece    string   `json:"piece"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", i.Severity, i.Piece, i.Code, i.Message)
}

// Options tunes the checks.
type Options struct {
	// FlattenTol is the curve flattening tolerance.
	FlattenTol float64
	// MarkTolerance is how far a notch or drill may sit outside the outline,
	// in pattern units. Notches normally sit on the edge.
	MarkTolerance float64
	// RequireGrain turns a missing grain line into an error.
	RequireGrain bool
}

// DefaultOptions returns the options used by the validate command.
func DefaultOptions() Options {
	return Options{FlattenTol: geom.DefaultFlattenTol, MarkTolerance: 0.5}
}

// Pattern runs every check and returns issues ordered by piece, then
// severity (errors first).
func Pattern(p *pattern.Pattern, opts Options) []Issue {
	var issues []Issue
	seen := map[string]int{}
	for i := range p.Pieces {
		pc := &p.Pieces[i]
		seen[pc.Name]++
		if seen[pc.Name] == 2 {
			issues = append(issues, Issue{pc.Name, Error, CodeDuplicateName, "piece name is used more than once"})
		}
		issues = append(issues, Piece(pc, opts)...)
	}
	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Piece != issues[b].Piece {
			return issues[a].Piece < issues[b].Piece
		}
		return issues[a].Severity == Error && issues[b].Severity != Error
	})
	return issues
}

// Piece checks one piece.
func Piece(pc *pattern.Piece, opts Options) []Issue {
	var issues []Issue
	add := func(sev Severity, code, format string, args ...any) {
		issues = append(issues, Issue{Piece: pc.Name, Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	for i, c := range pc.Paths {
		if c.IsRawArc() {
			add(Warning, CodeUnresolvedArc, "path %d: ARC has no endpoint and radius and is ignored", i)
		}
	}
	if pc.Grain == nil {
		sev := Warning
		if opts.RequireGrain {
			sev = Error
		}
		add(sev, CodeMissingGrain, "no grain line")
	}

	line := pc.Outline(opts.FlattenTol)
	if len(line.Points) == 0 {
		add(Error, CodeEmptyOutline, "piece has no outline")
		return issues
	}
	ring := geom.Dedupe(geom.Open(line.Points), geom.Eps)
	if len(ring) < 3 {
		add(Error, CodeTooFewVertices, "outline has %d distinct vertices, need at least 3", len(ring))
		return issues
	}
	if !line.Closed && !geom.IsClosed(line.Points) {
		add(Warning, CodeOpenOutline, "outline is not closed; it is treated as closed")
	}
	closed := geom.Close(ring)
	if xs := geom.SelfIntersections(closed); len(xs) > 0 {
		add(Error, CodeOutlineIntersects, "outline crosses itself %d time(s), first near (%.3f, %.3f)", len(xs), xs[0].At.X, xs[0].At.Y)
	}

	for i, n := range pc.Notches {
		if d := outside(closed, n.Vec()); d > opts.MarkTolerance {
			add(Warning, CodeNotchOutside, "notch %d %q at (%g, %g) is %.3f outside the outline", i, n.Label, n.X, n.Y, d)
		}
	}
	for i, d := range pc.Drills {
		if dist := outside(closed, d.Vec()); dist > opts.MarkTolerance {
			add(Error, CodeDrillOutside, "drill %d %q at (%g, %g) is %.3f outside the outline", i, d.Label, d.X, d.Y, dist)
		}
	}

	if sa := pc.Allowance(); len(sa) > 0 {
		if xs := geom.SelfIntersections(sa); len(xs) > 0 {
			add(Error, CodeAllowanceIntersects, "seam allowance crosses itself %d time(s), first near (%.3f, %.3f)", len(xs), xs[0].At.X, xs[0].At.Y)
		}
		if geom.Area(sa) < geom.Area(closed) {
			add(Warning, CodeAllowanceInsideOutline, "seam allowance encloses less area than the outline")
		}
	}
	return issues
}

// outside returns how far p lies outside ring, or 0 when it is inside.
func outside(ring []geom.Vec, p geom.Vec) float64 {
	if geom.Contains(ring, p) {
		return 0
	}
	best := -1.0
	for i := 0; i+1 < len(ring); i++ {
		if d := geom.DistToSegment(p, ring[i], ring[i+1]); best < 0 || d < best {
			best = d
		}
	}
	return best
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == Error {
			return true
		}
	}
	return false
}
