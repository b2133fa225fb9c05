package block

import (
	"fmt"

	"github.com/banshee-data/leather-drafts/internal/expr"
	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/recipe"
	"github.com/banshee-data/leather-drafts/internal/units"
)

// NewEnv builds the evaluation environment: M is the body, F the fit and O
// the recipe options. Either argument may be nil.
func NewEnv(m *recipe.Measurements, r *recipe.Recipe) expr.Env {
	if m == nil {
		m = &recipe.Measurements{}
	}
	if r == nil {
		r = &recipe.Recipe{}
	}
	body, fit := m.Body, m.Fit
	if body == nil {
		body = map[string]float64{}
	}
	if fit == nil {
		fit = map[string]float64{}
	}
	return expr.Env{"M": body, "F": fit, "O": r.Options()}
}

// evalParams evaluates params in order, adding each to env.
func evalParams(params Params, env expr.Env) error {
	for _, p := range params {
		v, err := expr.Eval(string(p.Expr), env)
		if err != nil {
			return fmt.Errorf("param %s: %w", p.Name, err)
		}
		env[p.Name] = v
	}
	return nil
}

// Draft evaluates the block against the measurements and recipe. Shared
// params are evaluated first, then each piece's params on a copy of the
// environment. Coordinates are rounded to three decimals.
func Draft(b *Block, m *recipe.Measurements, r *recipe.Recipe) (*pattern.Pattern, error) {
	env := NewEnv(m, r)
	if err := evalParams(b.Params, env); err != nil {
		return nil, err
	}
	out := &pattern.Pattern{Units: units.MM, Pieces: make([]pattern.Piece, 0, len(b.Pieces))}
	for i, def := range b.Pieces {
		if def.Name == "" {
			return nil, fmt.Errorf("piece %d: name is required", i)
		}
		pc, err := draftPiece(def, env.Clone())
		if err != nil {
			return nil, fmt.Errorf("piece %q: %w", def.Name, err)
		}
		out.Pieces = append(out.Pieces, pc)
	}
	return out, nil
}

type evaluator struct {
	env expr.Env
}

func (e evaluator) num(x Expr) (float64, error) {
	v, err := expr.Eval(string(x), e.env)
	if err != nil {
		return 0, err
	}
	return pattern.Round3(v), nil
}

func (e evaluator) point(xs []Expr) (pattern.Point, error) {
	if len(xs) != 2 {
		return pattern.Point{}, fmt.Errorf("expected [x, y], got %d values", len(xs))
	}
	x, err := e.num(xs[0])
	if err != nil {
		return pattern.Point{}, err
	}
	y, err := e.num(xs[1])
	if err != nil {
		return pattern.Point{}, err
	}
	return pattern.Point{X: x, Y: y}, nil
}

func (e evaluator) mark(d MarkDef) (pattern.Mark, error) {
	p, err := e.point([]Expr{d.X, d.Y})
	if err != nil {
		return pattern.Mark{}, err
	}
	return pattern.Mark{X: p.X, Y: p.Y, Label: d.Label}, nil
}

func draftPiece(def PieceDef, env expr.Env) (pattern.Piece, error) {
	if err := evalParams(def.Params, env); err != nil {
		return pattern.Piece{}, err
	}
	ev := evaluator{env: env}
	pc := pattern.Piece{Name: def.Name, Paths: make([]pattern.Command, 0, len(def.Paths))}

	var pen *pattern.Point
	for i, pd := range def.Paths {
		cmds, to, err := ev.command(pd, pen)
		if err != nil {
			return pattern.Piece{}, fmt.Errorf("path %d (%s): %w", i, pd.Type, err)
		}
		pc.Paths = append(pc.Paths, cmds...)
		if to != nil {
			pen = to
		}
	}

	for i, n := range def.Notches {
		m, err := ev.mark(n)
		if err != nil {
			return pattern.Piece{}, fmt.Errorf("notch %d: %w", i, err)
		}
		pc.Notches = append(pc.Notches, m)
	}
	for i, d := range def.Drills {
		m, err := ev.mark(d)
		if err != nil {
			return pattern.Piece{}, fmt.Errorf("drill %d: %w", i, err)
		}
		pc.Drills = append(pc.Drills, m)
	}

	if len(def.Grain) > 0 {
		if len(def.Grain) != 4 {
			return pattern.Piece{}, fmt.Errorf("grain: expected [x1, y1, x2, y2], got %d values", len(def.Grain))
		}
		a, err := ev.point(def.Grain[:2])
		if err != nil {
			return pattern.Piece{}, fmt.Errorf("grain: %w", err)
		}
		b, err := ev.point(def.Grain[2:])
		if err != nil {
			return pattern.Piece{}, fmt.Errorf("grain: %w", err)
		}
		pc.Grain = &pattern.Segment{a, b}
	}

	if def.SeamAllowance != nil {
		sa, err := ev.num(*def.SeamAllowance)
		if err != nil {
			return pattern.Piece{}, fmt.Errorf("seam_allowance: %w", err)
		}
		if sa < 0 {
			return pattern.Piece{}, fmt.Errorf("seam_allowance must not be negative, got %g", sa)
		}
		pc.SeamAllowance = &sa
	}
	return pc, nil
}

// command evaluates one path definition. It returns the commands to append
// and the new pen position, if any.
func (e evaluator) command(pd PathDef, pen *pattern.Point) ([]pattern.Command, *pattern.Point, error) {
	switch pd.Type {
	case pattern.Move, pattern.Line:
		p, err := e.point(pd.Point)
		if err != nil {
			return nil, nil, err
		}
		return []pattern.Command{{Type: pd.Type, Data: pattern.CommandData{To: &p}}}, &p, nil
	case pattern.Curve:
		cp1, err := e.point(pd.CP1)
		if err != nil {
			return nil, nil, fmt.Errorf("cp1: %w", err)
		}
		cp2, err := e.point(pd.CP2)
		if err != nil {
			return nil, nil, fmt.Errorf("cp2: %w", err)
		}
		to, err := e.point(pd.To)
		if err != nil {
			return nil, nil, fmt.Errorf("to: %w", err)
		}
		return []pattern.Command{pattern.CurveTo(cp1, cp2, to)}, &to, nil
	case pattern.Arc:
		if pd.To == nil {
			monitoring.L().Sugar().Warnf("ARC without to/radius kept unresolved: %v", pd.Raw)
			return []pattern.Command{{Type: pattern.Arc, Data: pattern.CommandData{Raw: pd.Raw}}}, nil, nil
		}
		return e.arc(pd, pen)
	case pattern.Close:
		return []pattern.Command{pattern.ClosePath()}, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", pattern.ErrUnknownType, pd.Type)
}

func (e evaluator) arc(pd PathDef, pen *pattern.Point) ([]pattern.Command, *pattern.Point, error) {
	var cmds []pattern.Command
	if pd.From != nil {
		from, err := e.point(pd.From)
		if err != nil {
			return nil, nil, fmt.Errorf("from: %w", err)
		}
		switch {
		case pen == nil:
			cmds = append(cmds, pattern.MoveTo(from.X, from.Y))
		case !geom.Near(pen.Vec(), from.Vec(), geom.Eps):
			cmds = append(cmds, pattern.LineTo(from.X, from.Y))
		}
		pen = &from
	}
	if pen == nil {
		return nil, nil, fmt.Errorf("ARC needs a from point or a preceding MOVE")
	}
	to, err := e.point(pd.To)
	if err != nil {
		return nil, nil, fmt.Errorf("to: %w", err)
	}
	r, err := e.num(pd.Radius)
	if err != nil {
		return nil, nil, fmt.Errorf("radius: %w", err)
	}
	if r <= 0 {
		return nil, nil, fmt.Errorf("radius must be positive, got %g", r)
	}
	if pd.Sweep != pattern.CW && pd.Sweep != pattern.CCW {
		return nil, nil, fmt.Errorf("sweep must be CW or CCW, got %q", pd.Sweep)
	}
	cmds = append(cmds, pattern.ArcTo(to, r, pd.Sweep, pd.Large))
	return cmds, &to, nil
}
