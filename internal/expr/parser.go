package expr

import (
	"fmt"
	"strings"
)

// node is a parsed expression tree.
type node interface {
	eval(env Env) (value, error)
}

type (
	numNode  struct{ v float64 }
	nameNode struct{ name string }
	attrNode struct {
		base node
		attr string
	}
	unaryNode struct {
		op string
		x  node
	}
	binNode struct {
		op   string
		l, r node
	}
	callNode struct {
		fn   node
		args []node
	}
)

// Expr is a compiled expression.
type Expr struct {
	src  string
	root node
}

// String returns the source text.
func (e *Expr) String() string { return e.src }

// Parse compiles src. A surrounding pair of braces is stripped first.
//
// Grammar (loosest first):
//
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = ("-" | "+") unary | power
//	power   = postfix [ "**" unary ]
//	postfix = atom { "." ident | "(" args ")" }
func Parse(src string) (*Expr, error) {
	s := Unwrap(src)
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{src: s, toks: toks}
	root, err := p.sum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return &Expr{src: s, root: root}, nil
}

// Unwrap strips surrounding whitespace and one pair of braces.
func Unwrap(src string) string {
	s := strings.TrimSpace(src)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Expr: p.src, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) sum() (node, error) {
	l, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next().text
		r, err := p.product()
		if err != nil {
			return nil, err
		}
		l = binNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) product() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/") {
		op := p.next().text
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = binNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) unary() (node, error) {
	if p.isOp("-", "+") {
		op := p.next().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, x: x}, nil
	}
	return p.power()
}

func (p *parser) power() (node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		p.next()
		// right associative; the exponent may carry a sign: 2**-1
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return binNode{op: "**", l: base, r: exp}, nil
	}
	return base, nil
}

func (p *parser) postfix() (node, error) {
	n, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			t := p.next()
			if t.kind != tokIdent {
				return nil, p.errorf(t, "expected attribute name after '.'")
			}
			n = attrNode{base: n, attr: t.text}
		case tokLParen:
			p.next()
			var args []node
			if p.peek().kind != tokRParen {
				for {
					a, err := p.sum()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.peek().kind != tokComma {
						break
					}
					p.next()
				}
			}
			if t := p.next(); t.kind != tokRParen {
				return nil, p.errorf(t, "expected ')'")
			}
			n = callNode{fn: n, args: args}
		default:
			return n, nil
		}
	}
}

func (p *parser) atom() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numNode{v: t.num}, nil
	case tokIdent:
		return nameNode{name: t.text}, nil
	case tokLParen:
		n, err := p.sum()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, p.errorf(c, "expected ')'")
		}
		return n, nil
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of expression")
	default:
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
}
