package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// proofPad is the space around a piece on its proof, in mm.
const proofPad = 15.0

func xys(pts []geom.Vec, f float64) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, p := range pts {
		out[i] = plotter.XY{X: p.X * f, Y: p.Y * f}
	}
	return out
}

func marks(ms []pattern.Mark, f float64) plotter.XYs {
	out := make(plotter.XYs, len(ms))
	for i, m := range ms {
		out[i] = plotter.XY{X: m.X * f, Y: m.Y * f}
	}
	return out
}

// Proof plots one piece on millimetre axes with a grid. The canvas is sized
// so the data area is close to real size for print checks.
func Proof(pc *pattern.Piece, unit string, tol float64) (*plot.Plot, vg.Length, vg.Length, error) {
	f := units.ToMM(1, units.Normalize(unit))
	outline := pc.Outline(tol).Points
	sa := pc.Allowance()

	p := plot.New()
	p.Title.Text = pc.Name
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"
	p.Add(plotter.NewGrid())

	if len(outline) > 1 {
		l, err := plotter.NewLine(xys(outline, f))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("outline: %w", err)
		}
		l.Color = color.Black
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add("cut", l)
	}
	if len(sa) > 1 {
		l, err := plotter.NewLine(xys(sa, f))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("allowance: %w", err)
		}
		l.Color = color.RGBA{R: 220, A: 255}
		l.Width = vg.Points(0.75)
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
		p.Legend.Add("allowance", l)
	}
	if len(pc.Notches) > 0 {
		s, err := plotter.NewScatter(marks(pc.Notches, f))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("notches: %w", err)
		}
		s.GlyphStyle.Shape = draw.CrossGlyph{}
		s.GlyphStyle.Color = color.RGBA{G: 140, A: 255}
		p.Add(s)
		p.Legend.Add("notch", s)
	}
	if len(pc.Drills) > 0 {
		s, err := plotter.NewScatter(marks(pc.Drills, f))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("drills: %w", err)
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
		p.Add(s)
		p.Legend.Add("drill", s)
	}
	if pc.Grain != nil {
		l, err := plotter.NewLine(xys([]geom.Vec{pc.Grain[0].Vec(), pc.Grain[1].Vec()}, f))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("grain: %w", err)
		}
		l.Color = color.RGBA{R: 170, G: 100, A: 255}
		p.Add(l)
		p.Legend.Add("grain", l)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	b := geom.Bounds(append(append([]geom.Vec{}, outline...), sa...))
	p.X.Min, p.X.Max = b.Min.X*f-proofPad, b.Max.X*f+proofPad
	p.Y.Min, p.Y.Max = b.Min.Y*f-proofPad, b.Max.Y*f+proofPad

	// Axis labels and ticks take roughly 20mm on each axis.
	w := vg.Length(p.X.Max-p.X.Min)*vg.Millimeter + 20*vg.Millimeter
	h := vg.Length(p.Y.Max-p.Y.Min)*vg.Millimeter + 25*vg.Millimeter
	w = vg.Length(math.Max(float64(w), float64(60*vg.Millimeter)))
	h = vg.Length(math.Max(float64(h), float64(60*vg.Millimeter)))
	return p, w, h, nil
}

// ProofSVG renders the proof of one piece as SVG.
func ProofSVG(pc *pattern.Piece, unit string, tol float64) ([]byte, error) {
	p, w, h, err := Proof(pc, unit, tol)
	if err != nil {
		return nil, err
	}
	wt, err := p.WriterTo(w, h, "svg")
	if err != nil {
		return nil, fmt.Errorf("failed to render proof: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render proof: %w", err)
	}
	return buf.Bytes(), nil
}
