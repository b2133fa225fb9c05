package dxf

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/leather-drafts/internal/config"
	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// layerColors are the ACI colours of the logical layers.
var layerColors = map[string]int{
	config.LayerCut:   7,
	config.LayerSA:    1,
	config.LayerNotch: 3,
	config.LayerDrill: 5,
	config.LayerGrain: 2,
	config.LayerText:  8,
}

// Marker sizes in millimetres; converted to the output units.
const (
	notchSize     = 3.0
	labelOffset   = 4.0
	labelHeight   = 2.5
	drillRadius   = 1.0
	nameHeight    = 5.0
	nameClearance = 10.0
)

// Build converts a constructed pattern into a drawing.
func Build(p *pattern.Pattern, opts *config.ExportOptions) (*Drawing, error) {
	if opts == nil {
		opts = config.DefaultExportOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	from, to := units.Normalize(p.Units), opts.GetUnits()
	f := units.Convert(1, from, to)
	size := func(mm float64) float64 { return units.Convert(mm, units.MM, to) }

	d := &Drawing{Units: to}
	seen := map[string]bool{}
	for _, name := range config.DefaultLayers {
		mapped := opts.Layer(name)
		if seen[mapped] {
			continue
		}
		seen[mapped] = true
		d.Layers = append(d.Layers, Layer{Name: mapped, Color: layerColors[name]})
	}
	layer := opts.Layer
	scale := func(v geom.Vec) geom.Vec { return geom.Vec{X: v.X * f, Y: v.Y * f} }

	for i := range p.Pieces {
		pc := &p.Pieces[i]
		ob := &outlineBuilder{
			layer:   layer(config.LayerCut),
			tol:     opts.GetFlattenTol(),
			bulge:   opts.GetArcs() == config.ArcsBulge,
			splines: opts.GetSplines(),
			scale:   scale,
		}
		d.Add(ob.build(pc.Paths)...)

		var extent []geom.Vec
		extent = append(extent, pc.Outline(opts.GetFlattenTol()).Points...)
		if sa := pc.Allowance(); len(sa) > 2 {
			ring := geom.Open(sa)
			verts := make([]geom.Vec, len(ring))
			for j, v := range ring {
				verts[j] = scale(v)
			}
			d.Add(&LWPolyline{Layer: layer(config.LayerSA), Vertices: verts, Closed: true})
			extent = append(extent, sa...)
		}

		for _, n := range pc.Notches {
			c := scale(n.Vec())
			s := size(notchSize)
			d.Add(
				&Line{Layer: layer(config.LayerNotch), A: geom.Vec{X: c.X - s, Y: c.Y}, B: geom.Vec{X: c.X + s, Y: c.Y}},
				&Line{Layer: layer(config.LayerNotch), A: geom.Vec{X: c.X, Y: c.Y - s}, B: geom.Vec{X: c.X, Y: c.Y + s}},
			)
			addLabel(d, layer(config.LayerText), c, n.Label, size)
		}
		for _, dr := range pc.Drills {
			c := scale(dr.Vec())
			d.Add(&Circle{Layer: layer(config.LayerDrill), Center: c, Radius: size(drillRadius)})
			addLabel(d, layer(config.LayerText), c, dr.Label, size)
		}
		if pc.Grain != nil {
			d.Add(&Line{Layer: layer(config.LayerGrain), A: scale(pc.Grain[0].Vec()), B: scale(pc.Grain[1].Vec())})
		}

		b := geom.Bounds(extent)
		at := geom.Vec{X: b.Min.X * f, Y: b.Min.Y*f - size(nameClearance)}
		d.Add(&Text{Layer: layer(config.LayerText), At: at, Height: size(nameHeight), Value: pc.Name})
	}
	return d, nil
}

func addLabel(d *Drawing, layer string, at geom.Vec, label string, size func(float64) float64) {
	if label == "" {
		return
	}
	off := size(labelOffset)
	d.Add(&Text{Layer: layer, At: geom.Vec{X: at.X + off, Y: at.Y + off}, Height: size(labelHeight), Value: label})
}

// Write builds the drawing and writes it to path, creating parent
// directories.
func Write(fsys fsutil.FileSystem, path string, p *pattern.Pattern, opts *config.ExportOptions) error {
	d, err := Build(p, opts)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to render DXF: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write DXF: %w", err)
	}
	monitoring.L().Sugar().Debugf("wrote %s: %d entities, %d layers", path, len(d.Entities), len(d.Layers))
	return nil
}

// outlineBuilder turns path commands into CUT entities. Each subpath becomes
// one LWPOLYLINE, or with splines a chain of LWPOLYLINE runs and SPLINEs
// that share endpoints.
type outlineBuilder struct {
	layer   string
	tol     float64
	bulge   bool
	splines bool
	scale   func(geom.Vec) geom.Vec

	out    []Entity
	cur    *LWPolyline
	start  *geom.Vec
	pen    *geom.Vec
	broken bool // the current subpath was split by a spline
}

func (b *outlineBuilder) vertex(v geom.Vec) {
	sv := b.scale(v)
	if b.cur == nil {
		b.cur = &LWPolyline{Layer: b.layer}
	}
	if n := len(b.cur.Vertices); n > 0 && geom.Near(b.cur.Vertices[n-1], sv, geom.Eps) {
		return
	}
	b.cur.Vertices = append(b.cur.Vertices, sv)
}

// flush ends the current run.
func (b *outlineBuilder) flush(closed bool) {
	if b.cur == nil {
		return
	}
	pl := b.cur
	b.cur = nil
	if closed {
		if n := len(pl.Vertices); n > 1 && geom.Near(pl.Vertices[0], pl.Vertices[n-1], geom.Eps) {
			pl.Vertices = pl.Vertices[:n-1]
			if len(pl.Bulges) > n-1 {
				pl.Bulges = pl.Bulges[:n-1]
			}
		}
		pl.Closed = true
	}
	if len(pl.Vertices) < 2 {
		return
	}
	b.out = append(b.out, pl)
}

// returned reports whether the current run is a whole subpath that ends
// where it started.
func (b *outlineBuilder) returned() bool {
	if b.broken || b.cur == nil || len(b.cur.Vertices) < 3 {
		return false
	}
	return geom.Near(b.cur.Vertices[0], b.cur.Vertices[len(b.cur.Vertices)-1], geom.Eps)
}

func (b *outlineBuilder) moveTo(v geom.Vec) {
	b.flush(b.returned())
	b.start, b.pen, b.broken = &v, &v, false
	b.vertex(v)
}

func (b *outlineBuilder) build(cmds []pattern.Command) []Entity {
	for _, c := range cmds {
		switch c.Type {
		case pattern.Move:
			if c.Data.To != nil {
				b.moveTo(c.Data.To.Vec())
			}
		case pattern.Line:
			if c.Data.To == nil {
				continue
			}
			to := c.Data.To.Vec()
			if b.pen == nil {
				b.moveTo(to)
				continue
			}
			b.vertex(to)
			b.pen = &to
		case pattern.Curve:
			if b.pen == nil || c.Data.CP1 == nil || c.Data.CP2 == nil || c.Data.To == nil {
				continue
			}
			to := c.Data.To.Vec()
			if b.splines {
				b.flush(false)
				b.out = append(b.out, &Spline{Layer: b.layer, Control: [4]geom.Vec{
					b.scale(*b.pen), b.scale(c.Data.CP1.Vec()), b.scale(c.Data.CP2.Vec()), b.scale(to),
				}})
				b.broken = true
				b.vertex(to)
			} else {
				pts := geom.FlattenCubic(*b.pen, c.Data.CP1.Vec(), c.Data.CP2.Vec(), to, b.tol)
				for _, p := range pts[1:] {
					b.vertex(p)
				}
			}
			b.pen = &to
		case pattern.Arc:
			if c.IsRawArc() {
				monitoring.L().Sugar().Warnf("skipping unresolved ARC in DXF export: %v", c.Data.Raw)
				continue
			}
			if b.pen == nil {
				continue
			}
			to := c.Data.To.Vec()
			a, err := geom.NewArc(*b.pen, to, c.Data.Radius, c.Data.Sweep == pattern.CCW, c.Data.Large)
			if err != nil {
				continue
			}
			if b.bulge {
				b.vertex(*b.pen)
				pl := b.cur
				for len(pl.Bulges) < len(pl.Vertices) {
					pl.Bulges = append(pl.Bulges, 0)
				}
				pl.Bulges[len(pl.Vertices)-1] = a.Bulge()
				b.vertex(to)
			} else {
				for _, p := range a.Flatten(b.tol)[1:] {
					b.vertex(p)
				}
			}
			b.pen = &to
		case pattern.Close:
			if b.pen == nil || b.start == nil {
				continue
			}
			if !geom.Near(*b.pen, *b.start, geom.Eps) {
				b.vertex(*b.start)
			}
			b.flush(!b.broken)
			b.pen = b.start
		}
	}
	b.flush(b.returned())
	return b.out
}
