// Package dxf writes pattern pieces as AutoCAD 2004 (AC1018) DXF drawings.
//
// A Drawing is a flat list of entities on named layers. WriteTo emits the
// complete section structure (HEADER, CLASSES, TABLES, BLOCKS, ENTITIES,
// OBJECTS) with unique handles and owner references.
package dxf

import (
	"bytes"
	"io"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// Version is the $ACADVER written to every drawing.
const Version = "AC1018"

// Layer is a layer table entry.
type Layer struct {
	Name  string
	Color int
}

// Entity is a drawable element in model space.
type Entity interface {
	// LayerName returns the layer the entity is drawn on.
	LayerName() string
	// Points returns the vertices used for the drawing extents.
	Points() []geom.Vec
	write(w *writer, owner string)
}

// LWPolyline is a lightweight polyline. Bulges, when set, has one entry per
// vertex: the bulge of the segment starting at that vertex.
type LWPolyline struct {
	Layer    string
	Vertices []geom.Vec
	Bulges   []float64
	Closed   bool
}

// Line is a single segment.
type Line struct {
	Layer string
	A, B  geom.Vec
}

// Circle is a full circle.
type Circle struct {
	Layer  string
	Center geom.Vec
	Radius float64
}

// Text is a single line of text anchored at its lower left corner.
type Text struct {
	Layer  string
	At     geom.Vec
	Height float64
	Value  string
}

// Spline is a cubic Bezier segment written as a clamped degree 3 B-spline
// with four control points.
type Spline struct {
	Layer   string
	Control [4]geom.Vec
}

// BezierKnots is the knot vector of a single cubic Bezier span.
var BezierKnots = []float64{0, 0, 0, 0, 1, 1, 1, 1}

func (e *LWPolyline) LayerName() string { return e.Layer }
func (e *Line) LayerName() string       { return e.Layer }
func (e *Circle) LayerName() string     { return e.Layer }
func (e *Text) LayerName() string       { return e.Layer }
func (e *Spline) LayerName() string     { return e.Layer }

func (e *LWPolyline) Points() []geom.Vec { return e.Vertices }
func (e *Line) Points() []geom.Vec       { return []geom.Vec{e.A, e.B} }
func (e *Text) Points() []geom.Vec       { return []geom.Vec{e.At} }
func (e *Spline) Points() []geom.Vec     { return e.Control[:] }

func (e *Circle) Points() []geom.Vec {
	r := geom.Vec{X: e.Radius, Y: e.Radius}
	return []geom.Vec{r2.Sub(e.Center, r), r2.Add(e.Center, r)}
}

func entityHeader(w *writer, kind, owner, layer, subclass string) {
	w.pair(0, kind)
	w.pair(5, w.next())
	w.pair(330, owner)
	w.pair(100, "AcDbEntity")
	w.str(8, layer)
	w.pair(100, subclass)
}

func (e *LWPolyline) write(w *writer, owner string) {
	entityHeader(w, "LWPOLYLINE", owner, e.Layer, "AcDbPolyline")
	w.integer(90, len(e.Vertices))
	flags := 0
	if e.Closed {
		flags = 1
	}
	w.integer(70, flags)
	w.float(43, 0)
	for i, v := range e.Vertices {
		w.float(10, v.X)
		w.float(20, v.Y)
		if i < len(e.Bulges) && e.Bulges[i] != 0 {
			w.float(42, e.Bulges[i])
		}
	}
}

func (e *Line) write(w *writer, owner string) {
	entityHeader(w, "LINE", owner, e.Layer, "AcDbLine")
	w.point(10, e.A.X, e.A.Y)
	w.point(11, e.B.X, e.B.Y)
}

func (e *Circle) write(w *writer, owner string) {
	entityHeader(w, "CIRCLE", owner, e.Layer, "AcDbCircle")
	w.point(10, e.Center.X, e.Center.Y)
	w.float(40, e.Radius)
}

func (e *Text) write(w *writer, owner string) {
	entityHeader(w, "TEXT", owner, e.Layer, "AcDbText")
	w.point(10, e.At.X, e.At.Y)
	w.float(40, e.Height)
	w.str(1, e.Value)
	w.pair(100, "AcDbText")
}

func (e *Spline) write(w *writer, owner string) {
	entityHeader(w, "SPLINE", owner, e.Layer, "AcDbSpline")
	w.float(210, 0)
	w.float(220, 0)
	w.float(230, 1)
	w.integer(70, 8) // planar
	w.integer(71, 3)
	w.integer(72, len(BezierKnots))
	w.integer(73, len(e.Control))
	w.integer(74, 0)
	w.float(42, 1e-10)
	w.float(43, 1e-10)
	for _, k := range BezierKnots {
		w.float(40, k)
	}
	for _, c := range e.Control {
		w.point(10, c.X, c.Y)
	}
}

// Drawing is a DXF document under construction.
type Drawing struct {
	Units    string
	Layers   []Layer
	Entities []Entity
}

// Add appends entities.
func (d *Drawing) Add(e ...Entity) {
	d.Entities = append(d.Entities, e...)
}

// Extents returns the bounding box of every entity.
func (d *Drawing) Extents() r2.Box {
	var pts []geom.Vec
	for _, e := range d.Entities {
		pts = append(pts, e.Points()...)
	}
	return geom.Bounds(pts)
}

// handles of the fixed objects every drawing carries.
type handles struct {
	modelRecord, paperRecord string
	root, groups, layouts    string
	modelLayout, paperLayout string
}

// WriteTo writes the complete drawing. Body sections are rendered first so
// that $HANDSEED can be written in the header.
func (d *Drawing) WriteTo(out io.Writer) (int64, error) {
	var body bytes.Buffer
	bw := newWriter(&body, 1)
	d.writeBody(bw)
	if err := bw.flush(); err != nil {
		return 0, err
	}

	cw := &countWriter{w: out}
	hw := newWriter(cw, 0)
	d.writeHeader(hw, bw.next())
	if err := hw.flush(); err != nil {
		return cw.n, err
	}
	if _, err := body.WriteTo(cw); err != nil {
		return cw.n, err
	}
	tw := newWriter(cw, 0)
	tw.pair(0, "EOF")
	err := tw.flush()
	return cw.n, err
}

func (d *Drawing) writeHeader(w *writer, handseed string) {
	ext := d.Extents()
	w.pair(0, "SECTION")
	w.pair(2, "HEADER")
	w.pair(9, "$ACADVER")
	w.pair(1, Version)
	w.pair(9, "$DWGCODEPAGE")
	w.pair(3, "ANSI_1252")
	w.pair(9, "$INSBASE")
	w.point(10, 0, 0)
	w.pair(9, "$EXTMIN")
	w.point(10, ext.Min.X, ext.Min.Y)
	w.pair(9, "$EXTMAX")
	w.point(10, ext.Max.X, ext.Max.Y)
	w.pair(9, "$INSUNITS")
	w.integer(70, units.InsUnits(d.Units))
	w.pair(9, "$MEASUREMENT")
	measurement := 0
	if units.IsMetric(d.Units) {
		measurement = 1
	}
	w.integer(70, measurement)
	w.pair(9, "$LUNITS")
	w.integer(70, 2)
	w.pair(9, "$HANDSEED")
	w.pair(5, handseed)
	w.pair(0, "ENDSEC")
}

func (d *Drawing) writeBody(w *writer) {
	w.pair(0, "SECTION")
	w.pair(2, "CLASSES")
	w.pair(0, "ENDSEC")

	// Object handles are fixed up front so block records can point at their layouts.
	h := handles{root: w.next(), groups: w.next(), layouts: w.next()}
	h.modelLayout, h.paperLayout = w.next(), w.next()
	d.writeTables(w, &h)

	w.pair(0, "SECTION")
	w.pair(2, "BLOCKS")
	writeBlock(w, h.modelRecord, "*Model_Space", false)
	writeBlock(w, h.paperRecord, "*Paper_Space", true)
	w.pair(0, "ENDSEC")

	w.pair(0, "SECTION")
	w.pair(2, "ENTITIES")
	for _, e := range d.Entities {
		e.write(w, h.modelRecord)
	}
	w.pair(0, "ENDSEC")

	writeObjects(w, h)
}

func writeBlock(w *writer, owner, name string, paper bool) {
	w.pair(0, "BLOCK")
	w.pair(5, w.next())
	w.pair(330, owner)
	w.pair(100, "AcDbEntity")
	if paper {
		w.integer(67, 1)
	}
	w.pair(8, "0")
	w.pair(100, "AcDbBlockBegin")
	w.pair(2, name)
	w.integer(70, 0)
	w.point(10, 0, 0)
	w.pair(3, name)
	w.pair(1, "")
	w.pair(0, "ENDBLK")
	w.pair(5, w.next())
	w.pair(330, owner)
	w.pair(100, "AcDbEntity")
	if paper {
		w.integer(67, 1)
	}
	w.pair(8, "0")
	w.pair(100, "AcDbBlockEnd")
}

func writeObjects(w *writer, h handles) {
	w.pair(0, "SECTION")
	w.pair(2, "OBJECTS")
	w.pair(0, "DICTIONARY")
	w.pair(5, h.root)
	w.pair(330, "0")
	w.pair(100, "AcDbDictionary")
	w.integer(281, 1)
	w.pair(3, "ACAD_GROUP")
	w.pair(350, h.groups)
	w.pair(3, "ACAD_LAYOUT")
	w.pair(350, h.layouts)

	w.pair(0, "DICTIONARY")
	w.pair(5, h.groups)
	w.pair(330, h.root)
	w.pair(100, "AcDbDictionary")
	w.integer(281, 1)

	w.pair(0, "DICTIONARY")
	w.pair(5, h.layouts)
	w.pair(330, h.root)
	w.pair(100, "AcDbDictionary")
	w.integer(281, 1)
	w.pair(3, "Layout1")
	w.pair(350, h.paperLayout)
	w.pair(3, "Model")
	w.pair(350, h.modelLayout)

	writeLayout(w, h.modelLayout, h.layouts, h.modelRecord, "Model", 0)
	writeLayout(w, h.paperLayout, h.layouts, h.paperRecord, "Layout1", 1)
	w.pair(0, "ENDSEC")
}

// writeLayout writes a LAYOUT object bound to its block record.
func writeLayout(w *writer, handle, owner, record, name string, tab int) {
	w.pair(0, "LAYOUT")
	w.pair(5, handle)
	w.pair(330, owner)
	w.pair(100, "AcDbPlotSettings")
	w.pair(1, "")
	w.integer(70, 0)
	w.pair(100, "AcDbLayout")
	w.pair(1, name)
	w.integer(70, 1)
	w.integer(71, tab)
	w.float(10, 0)
	w.float(20, 0)
	w.float(11, 420)
	w.float(21, 297)
	w.point(12, 0, 0)
	w.point(14, 0, 0)
	w.point(15, 0, 0)
	w.float(146, 0)
	w.integer(76, 0)
	w.pair(330, record)
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
