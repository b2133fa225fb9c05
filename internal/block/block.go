// Package block decodes parametric block definitions and drafts them into
// patterns by evaluating their expressions against measurements.
package block

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/pattern"
)

// ErrBadExpr is returned for block values that are neither strings nor
// numbers.
var ErrBadExpr = errors.New("expression must be a string or a number")

// Expr is an unevaluated expression. Plain numbers are accepted and kept as
// their decimal text.
type Expr string

func exprFrom(v any) (Expr, error) {
	switch t := v.(type) {
	case string:
		return Expr(t), nil
	case float64:
		return Expr(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case int:
		return Expr(strconv.Itoa(t)), nil
	case int64:
		return Expr(strconv.FormatInt(t, 10)), nil
	case uint64:
		return Expr(strconv.FormatUint(t, 10)), nil
	}
	return "", fmt.Errorf("%w, got %T", ErrBadExpr, v)
}

// UnmarshalJSON accepts a string or a number.
func (e *Expr) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	x, err := exprFrom(v)
	if err != nil {
		return err
	}
	*e = x
	return nil
}

// UnmarshalYAML accepts any scalar.
func (e *Expr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w", n.Line, ErrBadExpr)
	}
	*e = Expr(n.Value)
	return nil
}

// Param is one named derived value.
type Param struct {
	Name string
	Expr Expr
}

// Params keeps declaration order, which is evaluation order: a param may refer
// to any param declared before it.
type Params []Param

// UnmarshalJSON decodes an object while preserving key order.
func (p *Params) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("params must be an object, got %v", tok)
	}
	seen := map[string]bool{}
	var out Params
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key := kt.(string)
		if seen[key] {
			return fmt.Errorf("duplicate param %q", key)
		}
		seen[key] = true
		var e Expr
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("param %q: %w", key, err)
		}
		out = append(out, Param{Name: key, Expr: e})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// UnmarshalYAML decodes a mapping while preserving key order.
func (p *Params) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: params must be a mapping", n.Line)
	}
	seen := map[string]bool{}
	out := make(Params, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if seen[key] {
			return fmt.Errorf("line %d: duplicate param %q", n.Content[i].Line, key)
		}
		seen[key] = true
		var e Expr
		if err := n.Content[i+1].Decode(&e); err != nil {
			return fmt.Errorf("param %q: %w", key, err)
		}
		out = append(out, Param{Name: key, Expr: e})
	}
	*p = out
	return nil
}

// PathDef is a path command whose operands are expressions.
type PathDef struct {
	Type pattern.CommandType

	// Point is the target of MOVE and LINE.
	Point []Expr

	CP1, CP2, To []Expr

	// ARC operands. From optionally names the arc start.
	From   []Expr
	Radius Expr
	Sweep  string
	Large  bool

	// Raw holds ARC operands that do not name an endpoint and radius.
	Raw any
}

type arcExpr struct {
	From   []Expr `json:"from" yaml:"from"`
	To     []Expr `json:"to" yaml:"to"`
	Radius Expr   `json:"radius" yaml:"radius"`
	Sweep  string `json:"sweep" yaml:"sweep"`
	Large  bool   `json:"large" yaml:"large"`
}

type curveExpr struct {
	CP1 []Expr `json:"cp1" yaml:"cp1"`
	CP2 []Expr `json:"cp2" yaml:"cp2"`
	To  []Expr `json:"to" yaml:"to"`
}

// fill decodes the expr operand of a command of type typ.
func (d *PathDef) fill(typ string, present bool, decode func(any) error) error {
	d.Type = pattern.CommandType(strings.ToUpper(typ))
	switch d.Type {
	case pattern.Move, pattern.Line:
		if !present {
			return fmt.Errorf("%s requires expr [x, y]", d.Type)
		}
		return decode(&d.Point)
	case pattern.Curve:
		var c curveExpr
		if !present {
			return fmt.Errorf("CURVE requires expr {cp1, cp2, to}")
		}
		if err := decode(&c); err != nil {
			return err
		}
		d.CP1, d.CP2, d.To = c.CP1, c.CP2, c.To
	case pattern.Arc:
		var a arcExpr
		if present && decode(&a) == nil && len(a.To) > 0 && a.Radius != "" {
			d.From, d.To, d.Radius, d.Large = a.From, a.To, a.Radius, a.Large
			d.Sweep = strings.ToUpper(a.Sweep)
			if d.Sweep == "" {
				d.Sweep = pattern.CCW
			}
			return nil
		}
		if present {
			var raw any
			if err := decode(&raw); err != nil {
				return err
			}
			d.Raw = raw
		}
	case pattern.Close:
	default:
		return fmt.Errorf("%w: %q", pattern.ErrUnknownType, typ)
	}
	return nil
}

// UnmarshalJSON decodes {"type": ..., "expr": ...}.
func (d *PathDef) UnmarshalJSON(b []byte) error {
	var aux struct {
		Type string          `json:"type"`
		Expr json.RawMessage `json:"expr"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	present := len(aux.Expr) > 0 && string(aux.Expr) != "null"
	return d.fill(aux.Type, present, func(v any) error { return json.Unmarshal(aux.Expr, v) })
}

// UnmarshalYAML decodes {type: ..., expr: ...}.
func (d *PathDef) UnmarshalYAML(n *yaml.Node) error {
	var aux struct {
		Type string    `yaml:"type"`
		Expr yaml.Node `yaml:"expr"`
	}
	if err := n.Decode(&aux); err != nil {
		return err
	}
	present := aux.Expr.Kind != 0 && aux.Expr.Tag != "!!null"
	return d.fill(aux.Type, present, aux.Expr.Decode)
}

// MarkDef is a notch or drill: [x, y, "label"].
type MarkDef struct {
	X, Y  Expr
	Label string
}

func markFrom(vals []any) (MarkDef, error) {
	if len(vals) < 2 || len(vals) > 3 {
		return MarkDef{}, fmt.Errorf("mark: expected [x, y, label], got %d values", len(vals))
	}
	x, err := exprFrom(vals[0])
	if err != nil {
		return MarkDef{}, fmt.Errorf("mark x: %w", err)
	}
	y, err := exprFrom(vals[1])
	if err != nil {
		return MarkDef{}, fmt.Errorf("mark y: %w", err)
	}
	m := MarkDef{X: x, Y: y}
	if len(vals) == 3 && vals[2] != nil {
		m.Label = fmt.Sprint(vals[2])
	}
	return m, nil
}

// UnmarshalJSON decodes a mark array.
func (m *MarkDef) UnmarshalJSON(b []byte) error {
	var vals []any
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	v, err := markFrom(vals)
	*m = v
	return err
}

// UnmarshalYAML decodes a mark sequence.
func (m *MarkDef) UnmarshalYAML(n *yaml.Node) error {
	var vals []any
	if err := n.Decode(&vals); err != nil {
		return err
	}
	v, err := markFrom(vals)
	*m = v
	return err
}

// PieceDef is one parametric piece.
type PieceDef struct {
	Name          string    `json:"name" yaml:"name"`
	Params        Params    `json:"params" yaml:"params"`
	Paths         []PathDef `json:"paths" yaml:"paths"`
	Notches       []MarkDef `json:"notches" yaml:"notches"`
	Drills        []MarkDef `json:"drills" yaml:"drills"`
	Grain         []Expr    `json:"grain" yaml:"grain"`
	SeamAllowance *Expr     `json:"seam_allowance,omitempty" yaml:"seam_allowance,omitempty"`
}

// Block is a parametric block: shared params and the pieces built from them.
type Block struct {
	Params Params     `json:"params" yaml:"params"`
	Pieces []PieceDef `json:"pieces" yaml:"pieces"`
}

// maxBlockSize bounds block files.
const maxBlockSize = 8 * 1024 * 1024

// Load reads a block from JSON, or YAML when the extension is .yml/.yaml.
func Load(fsys fsutil.FileSystem, path string) (*Block, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat block: %w", err)
	}
	if info.Size() > maxBlockSize {
		return nil, fmt.Errorf("block file too large: %d bytes (max %d)", info.Size(), maxBlockSize)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read block: %w", err)
	}
	var b Block
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &b)
	default:
		err = json.Unmarshal(data, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse block %s: %w", path, err)
	}
	return &b, nil
}
