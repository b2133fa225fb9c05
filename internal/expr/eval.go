package expr

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Evaluation errors.
var (
	ErrUnknownName  = errors.New("name not allowed")
	ErrUnknownField = errors.New("unknown field")
	ErrDivByZero    = errors.New("division by zero")
	ErrNotCallable  = errors.New("not callable")
	ErrType         = errors.New("type error")
	ErrNonFinite    = errors.New("result is not finite")
)

// Env binds names to values. A value is a number (any Go numeric type) or a
// namespace: map[string]float64 or map[string]any.
type Env map[string]any

// Clone returns a shallow copy so piece-local params do not leak.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

type builtin func(args []float64) (float64, error)

// value is the runtime representation: exactly one field is set.
type value struct {
	num *float64
	ns  map[string]any
	fn  builtin
}

func numVal(f float64) value { return value{num: &f} }

var builtins = map[string]builtin{
	"abs": func(a []float64) (float64, error) {
		if len(a) != 1 {
			return 0, fmt.Errorf("%w: abs takes 1 argument, got %d", ErrType, len(a))
		}
		return math.Abs(a[0]), nil
	},
	"min": func(a []float64) (float64, error) {
		if len(a) == 0 {
			return 0, fmt.Errorf("%w: min needs at least 1 argument", ErrType)
		}
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	},
	"max": func(a []float64) (float64, error) {
		if len(a) == 0 {
			return 0, fmt.Errorf("%w: max needs at least 1 argument", ErrType)
		}
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	},
	// round rounds half to even: round(2.5) == 2, round(1.005, 2) == 1.0
	"round": func(a []float64) (float64, error) {
		switch len(a) {
		case 1:
			return math.RoundToEven(a[0]), nil
		case 2:
			p := math.Pow(10, math.Trunc(a[1]))
			return math.RoundToEven(a[0]*p) / p, nil
		default:
			return 0, fmt.Errorf("%w: round takes 1 or 2 arguments, got %d", ErrType, len(a))
		}
	},
}

// Eval evaluates the expression against env.
func (e *Expr) Eval(env Env) (float64, error) {
	v, err := e.root.eval(env)
	if err != nil {
		return 0, fmt.Errorf("evaluating %q: %w", e.src, err)
	}
	if v.num == nil {
		return 0, fmt.Errorf("evaluating %q: %w: result is not a number", e.src, ErrType)
	}
	if math.IsNaN(*v.num) || math.IsInf(*v.num, 0) {
		return 0, fmt.Errorf("evaluating %q: %w: %g", e.src, ErrNonFinite, *v.num)
	}
	return *v.num, nil
}

// Eval parses and evaluates src in one step.
func Eval(src string, env Env) (float64, error) {
	e, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return e.Eval(env)
}

func (n numNode) eval(Env) (value, error) { return numVal(n.v), nil }

func (n nameNode) eval(env Env) (value, error) {
	if v, ok := env[n.name]; ok {
		return toValue(n.name, v)
	}
	if fn, ok := builtins[n.name]; ok {
		return value{fn: fn}, nil
	}
	return value{}, fmt.Errorf("%w: %s", ErrUnknownName, n.name)
}

func (n attrNode) eval(env Env) (value, error) {
	base, err := n.base.eval(env)
	if err != nil {
		return value{}, err
	}
	if base.ns == nil {
		return value{}, fmt.Errorf("%w: cannot read .%s of a non-namespace", ErrType, n.attr)
	}
	v, ok := base.ns[n.attr]
	if !ok {
		return value{}, fmt.Errorf("%w: %s (have %s)", ErrUnknownField, n.attr, keys(base.ns))
	}
	return toValue(n.attr, v)
}

func (n unaryNode) eval(env Env) (value, error) {
	x, err := evalNum(n.x, env)
	if err != nil {
		return value{}, err
	}
	if n.op == "-" {
		return numVal(-x), nil
	}
	return numVal(x), nil
}

func (n binNode) eval(env Env) (value, error) {
	l, err := evalNum(n.l, env)
	if err != nil {
		return value{}, err
	}
	r, err := evalNum(n.r, env)
	if err != nil {
		return value{}, err
	}
	switch n.op {
	case "+":
		return numVal(l + r), nil
	case "-":
		return numVal(l - r), nil
	case "*":
		return numVal(l * r), nil
	case "/":
		if r == 0 {
			return value{}, ErrDivByZero
		}
		return numVal(l / r), nil
	case "**":
		if l == 0 && r < 0 {
			return value{}, ErrDivByZero
		}
		res := math.Pow(l, r)
		if math.IsNaN(res) {
			return value{}, fmt.Errorf("%w: %g ** %g is not real", ErrType, l, r)
		}
		return numVal(res), nil
	}
	return value{}, fmt.Errorf("unknown operator %q", n.op)
}

func (n callNode) eval(env Env) (value, error) {
	fn, err := n.fn.eval(env)
	if err != nil {
		return value{}, err
	}
	if fn.fn == nil {
		return value{}, ErrNotCallable
	}
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		if args[i], err = evalNum(a, env); err != nil {
			return value{}, err
		}
	}
	res, err := fn.fn(args)
	if err != nil {
		return value{}, err
	}
	return numVal(res), nil
}

func evalNum(n node, env Env) (float64, error) {
	v, err := n.eval(env)
	if err != nil {
		return 0, err
	}
	if v.num == nil {
		return 0, fmt.Errorf("%w: operand is not a number", ErrType)
	}
	return *v.num, nil
}

func toValue(name string, v any) (value, error) {
	switch x := v.(type) {
	case float64:
		return numVal(x), nil
	case float32:
		return numVal(float64(x)), nil
	case int:
		return numVal(float64(x)), nil
	case int64:
		return numVal(float64(x)), nil
	case bool:
		if x {
			return numVal(1), nil
		}
		return numVal(0), nil
	case map[string]any:
		return value{ns: x}, nil
	case map[string]float64:
		ns := make(map[string]any, len(x))
		for k, f := range x {
			ns[k] = f
		}
		return value{ns: ns}, nil
	}
	return value{}, fmt.Errorf("%w: %s has unsupported type %T", ErrType, name, v)
}

func keys(m map[string]any) string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return strings.Join(ks, ", ")
}
