// Package pattern defines the pattern JSON exchanged between pipeline stages
// and the flattening of piece paths into polylines.
package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/leather-drafts/internal/geom"
)

// CommandType names a path command.
type CommandType string

// Path command types.
const (
	Move  CommandType = "MOVE"
	Line  CommandType = "LINE"
	Curve CommandType = "CURVE"
	Arc   CommandType = "ARC"
	Close CommandType = "CLOSE"
)

// Sweep directions for ARC commands.
const (
	CW  = "CW"
	CCW = "CCW"
)

// Sentinel errors.
var (
	ErrMissingPoint = errors.New("missing point")
	ErrUnknownType  = errors.New("unknown command type")
)

// Point is a coordinate pair serialised as [x, y].
type Point struct {
	X, Y float64
}

// Vec converts the point for geometry routines.
func (p Point) Vec() geom.Vec { return geom.Vec{X: p.X, Y: p.Y} }

// FromVec converts a geometry vector to a Point.
func FromVec(v geom.Vec) Point { return Point{X: v.X, Y: v.Y} }

// MarshalJSON encodes the point as a two element array.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two element array.
func (p *Point) UnmarshalJSON(b []byte) error {
	var xy []float64
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point: expected [x, y], got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// Mark is a labelled location (notch or drill hole) serialised as
// [x, y, "label"].
type Mark struct {
	X, Y  float64
	Label string
}

// Vec returns the mark position.
func (m Mark) Vec() geom.Vec { return geom.Vec{X: m.X, Y: m.Y} }

// MarshalJSON encodes the mark as a three element array.
func (m Mark) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{m.X, m.Y, m.Label})
}

// UnmarshalJSON decodes [x, y, "label"]. The label may be omitted.
func (m *Mark) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("mark: %w", err)
	}
	if len(raw) < 2 || len(raw) > 3 {
		return fmt.Errorf("mark: expected [x, y, label], got %d values", len(raw))
	}
	if err := json.Unmarshal(raw[0], &m.X); err != nil {
		return fmt.Errorf("mark x: %w", err)
	}
	if err := json.Unmarshal(raw[1], &m.Y); err != nil {
		return fmt.Errorf("mark y: %w", err)
	}
	m.Label = ""
	if len(raw) == 3 {
		var label any
		if err := json.Unmarshal(raw[2], &label); err != nil {
			return fmt.Errorf("mark label: %w", err)
		}
		if label != nil {
			m.Label = fmt.Sprint(label)
		}
	}
	return nil
}

// CommandData carries the operands of a path command. Only the fields the
// command type needs are set.
type CommandData struct {
	To     *Point  `json:"to,omitempty"`
	CP1    *Point  `json:"cp1,omitempty"`
	CP2    *Point  `json:"cp2,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Sweep  string  `json:"sweep,omitempty"`
	Large  bool    `json:"large,omitempty"`
	Raw    any     `json:"raw,omitempty"`
}

// Command is one path command.
type Command struct {
	Type CommandType `json:"type"`
	Data CommandData `json:"data"`
}

// MoveTo returns a MOVE command.
func MoveTo(x, y float64) Command { return Command{Type: Move, Data: CommandData{To: &Point{x, y}}} }

// LineTo returns a LINE command.
func LineTo(x, y float64) Command { return Command{Type: Line, Data: CommandData{To: &Point{x, y}}} }

// CurveTo returns a cubic CURVE command.
func CurveTo(cp1, cp2, to Point) Command {
	return Command{Type: Curve, Data: CommandData{CP1: &cp1, CP2: &cp2, To: &to}}
}

// ArcTo returns an ARC command.
func ArcTo(to Point, radius float64, sweep string, large bool) Command {
	return Command{Type: Arc, Data: CommandData{To: &to, Radius: radius, Sweep: sweep, Large: large}}
}

// ClosePath returns a CLOSE command.
func ClosePath() Command { return Command{Type: Close, Data: CommandData{}} }

// IsRawArc reports whether an ARC command was never resolved to endpoints.
func (c Command) IsRawArc() bool {
	return c.Type == Arc && c.Data.To == nil
}

// Validate checks that the command has the operands its type requires.
func (c Command) Validate() error {
	switch c.Type {
	case Move, Line:
		if c.Data.To == nil {
			return fmt.Errorf("%s: %w: to", c.Type, ErrMissingPoint)
		}
	case Curve:
		if c.Data.CP1 == nil || c.Data.CP2 == nil || c.Data.To == nil {
			return fmt.Errorf("%s: %w: cp1, cp2 and to are required", c.Type, ErrMissingPoint)
		}
	case Arc:
		if c.IsRawArc() {
			return nil
		}
		if c.Data.Radius <= 0 {
			return fmt.Errorf("ARC: radius must be positive, got %g", c.Data.Radius)
		}
		if c.Data.Sweep != CW && c.Data.Sweep != CCW {
			return fmt.Errorf("ARC: sweep must be CW or CCW, got %q", c.Data.Sweep)
		}
	case Close:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
	}
	return nil
}

// Segment is the grain line, serialised as [[x1,y1],[x2,y2]].
type Segment [2]Point

// Piece is one pattern piece.
type Piece struct {
	Name          string    `json:"name"`
	Paths         []Command `json:"paths"`
	Notches       []Mark    `json:"notches"`
	Drills        []Mark    `json:"drills"`
	Grain         *Segment  `json:"grain"`
	SeamAllowance *float64  `json:"seam_allowance,omitempty"`
	SAPaths       []Command `json:"sa_paths,omitempty"`
}

// Pattern is the document passed between stages.
type Pattern struct {
	Units  string  `json:"units"`
	Pieces []Piece `json:"pieces"`
}

// Validate checks every command of every piece.
func (p *Pattern) Validate() error {
	for i := range p.Pieces {
		pc := &p.Pieces[i]
		if pc.Name == "" {
			return fmt.Errorf("piece %d: name is required", i)
		}
		for j, c := range pc.Paths {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("piece %q path %d: %w", pc.Name, j, err)
			}
		}
		for j, c := range pc.SAPaths {
			if c.Type != Move && c.Type != Line {
				return fmt.Errorf("piece %q sa_path %d: only MOVE and LINE allowed, got %s", pc.Name, j, c.Type)
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("piece %q sa_path %d: %w", pc.Name, j, err)
			}
		}
	}
	return nil
}

// Piece returns the named piece, or nil.
func (p *Pattern) Piece(name string) *Piece {
	for i := range p.Pieces {
		if p.Pieces[i].Name == name {
			return &p.Pieces[i]
		}
	}
	return nil
}

// Round3 rounds to three decimals, the precision stored in pattern files.
func Round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0 // normalize -0
	}
	return r
}
