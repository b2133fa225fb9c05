// Package geom implements the 2D geometry the pattern pipeline needs:
// Bezier and arc flattening, polygon measures, seam allowance offsetting and
// self-intersection checks.
//
// All coordinates are plain float64 pairs in pattern units (normally mm),
// y-axis up, using gonum's r2.Vec.
package geom
