// Package report produces the measurements and proofs that accompany a
// packaged pattern: summary.json, report.html and per-piece proof plots.
package report

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/units"
	"github.com/banshee-data/leather-drafts/internal/validate"
	"github.com/banshee-data/leather-drafts/internal/version"
)

// Box is an axis aligned bounding box in millimetres.
type Box struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	MaxX   float64 `json:"max_x"`
	MaxY   float64 `json:"max_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PieceSummary holds the measurements of one piece. Lengths are in mm and
// areas in mm².
type PieceSummary struct {
	Name          string  `json:"name"`
	Area          float64 `json:"area_mm2"`
	Perimeter     float64 `json:"perimeter_mm"`
	Bounds        Box     `json:"bbox_mm"`
	AllowanceArea float64 `json:"allowance_area_mm2"`
	SeamAllowance float64 `json:"seam_allowance_band_mm2"`
	Notches       int     `json:"notches"`
	Drills        int     `json:"drills"`
	HasGrain      bool    `json:"has_grain"`
}

// Totals sums the per-piece values.
type Totals struct {
	Pieces        int     `json:"pieces"`
	Area          float64 `json:"area_mm2"`
	AllowanceArea float64 `json:"allowance_area_mm2"`
	Perimeter     float64 `json:"perimeter_mm"`
	Notches       int     `json:"notches"`
	Drills        int     `json:"drills"`
}

// Summary is the content of summary.json.
type Summary struct {
	Generator string           `json:"generator"`
	Units     string           `json:"source_units"`
	Pieces    []PieceSummary   `json:"pieces"`
	Totals    Totals           `json:"totals"`
	Issues    []validate.Issue `json:"issues"`
}

// Summarize measures every piece. Values are converted from the pattern
// units to millimetres; unitless patterns are reported as-is.
func Summarize(p *pattern.Pattern, tol float64) *Summary {
	unit := units.Normalize(p.Units)
	mm := func(v float64) float64 { return round2(units.ToMM(v, unit)) }
	mm2 := func(v float64) float64 {
		f := units.ToMM(1, unit)
		return round2(v * f * f)
	}

	s := &Summary{
		Generator: version.String(),
		Units:     unit,
		Pieces:    make([]PieceSummary, 0, len(p.Pieces)),
		Issues:    validate.Pattern(p, validate.Options{FlattenTol: tol, MarkTolerance: 0.5}),
	}
	if s.Issues == nil {
		s.Issues = []validate.Issue{}
	}
	for i := range p.Pieces {
		pc := &p.Pieces[i]
		outline := pc.Outline(tol).Points
		ring := geom.Close(outline)
		b := geom.Bounds(outline)
		ps := PieceSummary{
			Name:      pc.Name,
			Area:      mm2(geom.Area(ring)),
			Perimeter: mm(geom.Length(ring)),
			Bounds: Box{
				MinX: mm(b.Min.X), MinY: mm(b.Min.Y), MaxX: mm(b.Max.X), MaxY: mm(b.Max.Y),
				Width: mm(b.Max.X - b.Min.X), Height: mm(b.Max.Y - b.Min.Y),
			},
			Notches:  len(pc.Notches),
			Drills:   len(pc.Drills),
			HasGrain: pc.Grain != nil,
		}
		if sa := pc.Allowance(); len(sa) > 0 {
			ps.AllowanceArea = mm2(geom.Area(sa))
			ps.SeamAllowance = round2(ps.AllowanceArea - ps.Area)
		}
		s.Pieces = append(s.Pieces, ps)

		s.Totals.Pieces++
		s.Totals.Area += ps.Area
		s.Totals.AllowanceArea += ps.AllowanceArea
		s.Totals.Perimeter += ps.Perimeter
		s.Totals.Notches += ps.Notches
		s.Totals.Drills += ps.Drills
	}
	s.Totals.Area = round2(s.Totals.Area)
	s.Totals.AllowanceArea = round2(s.Totals.AllowanceArea)
	s.Totals.Perimeter = round2(s.Totals.Perimeter)
	return s
}

// JSON renders the summary as indented JSON.
func (s *Summary) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return append(data, '\n'), nil
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
