// Package dsl parses the line oriented piece DSL:
//
//	PIECE <name>
//	MOVE x,y
//	LINE x,y
//	CURVE x1,y1 -> x2,y2 -> x3,y3
//	ARC [x,y] R=<radius> SWEEP=<CW|CCW> [LARGE] TO x,y
//	CLOSE
//	NOTCH x,y "label"
//	DRILL x,y "label"
//	GRAIN x1,y1 -> x2,y2
//	SA <millimetres>
//	END
//
// Blank lines and lines starting with # are ignored.
package dsl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/pattern"
)

// Parse errors.
var (
	ErrOutsidePiece   = errors.New("command outside of PIECE/END block")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnclosedPiece  = errors.New("PIECE without END")
	ErrNonFinite      = errors.New("number must be finite")
)

// ParseError reports the offending line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseString parses DSL source text.
func ParseString(src string) ([]pattern.Piece, error) {
	return Parse(strings.NewReader(src))
}

// Parse reads DSL source and returns the pieces in order of appearance.
// A trailing PIECE without END is an error.
func Parse(r io.Reader) ([]pattern.Piece, error) {
	var (
		pieces  []pattern.Piece
		current *pattern.Piece
		pen     *pattern.Point
		startLn int
	)
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fail := func(err error) error {
			return &ParseError{Line: ln, Text: line, Err: err}
		}

		keyword, rest := splitKeyword(line)
		if keyword == "PIECE" {
			name := strings.TrimSpace(rest)
			if name == "" {
				return nil, fail(errors.New("PIECE requires a name"))
			}
			if current != nil {
				pieces = append(pieces, *current)
			}
			current = &pattern.Piece{Name: name}
			pen = nil
			startLn = ln
			continue
		}
		if keyword == "END" && rest == "" {
			if current != nil {
				pieces = append(pieces, *current)
			}
			current, pen = nil, nil
			continue
		}
		if current == nil {
			return nil, fail(ErrOutsidePiece)
		}

		switch keyword {
		case "MOVE", "LINE":
			p, err := parsePoint(rest)
			if err != nil {
				return nil, fail(err)
			}
			current.Paths = append(current.Paths, pattern.Command{
				Type: pattern.CommandType(keyword),
				Data: pattern.CommandData{To: &p},
			})
			pen = &p
		case "CURVE":
			pts, err := parseChain(rest, 3)
			if err != nil {
				return nil, fail(err)
			}
			current.Paths = append(current.Paths, pattern.CurveTo(pts[0], pts[1], pts[2]))
			pen = &pts[2]
		case "ARC":
			cmds, to, err := parseArc(rest, pen)
			if err != nil {
				return nil, fail(err)
			}
			current.Paths = append(current.Paths, cmds...)
			pen = &to
		case "CLOSE":
			if rest != "" {
				return nil, fail(errors.New("CLOSE takes no arguments"))
			}
			current.Paths = append(current.Paths, pattern.ClosePath())
		case "NOTCH", "DRILL":
			m, err := parseMark(rest)
			if err != nil {
				return nil, fail(err)
			}
			if keyword == "NOTCH" {
				current.Notches = append(current.Notches, m)
			} else {
				current.Drills = append(current.Drills, m)
			}
		case "GRAIN":
			pts, err := parseChain(rest, 2)
			if err != nil {
				return nil, fail(err)
			}
			current.Grain = &pattern.Segment{pts[0], pts[1]}
		case "SA":
			v, err := parseNumber(rest)
			if err != nil {
				return nil, fail(fmt.Errorf("bad seam allowance: %w", err))
			}
			if v < 0 {
				return nil, fail(errors.New("seam allowance must not be negative"))
			}
			current.SeamAllowance = &v
		default:
			return nil, fail(ErrUnknownCommand)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading DSL: %w", err)
	}
	if current != nil {
		return nil, &ParseError{Line: startLn, Text: "PIECE " + current.Name, Err: ErrUnclosedPiece}
	}
	return pieces, nil
}

func splitKeyword(line string) (string, string) {
	kw, rest, _ := strings.Cut(line, " ")
	return strings.ToUpper(kw), strings.TrimSpace(rest)
}

func parsePoint(s string) (pattern.Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return pattern.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := parseNumber(xs)
	if err != nil {
		return pattern.Point{}, fmt.Errorf("bad x coordinate: %w", err)
	}
	y, err := parseNumber(ys)
	if err != nil {
		return pattern.Point{}, fmt.Errorf("bad y coordinate: %w", err)
	}
	return pattern.Point{X: x, Y: y}, nil
}

// parseNumber parses a finite float. NaN and infinities are rejected.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w, got %q", ErrNonFinite, strings.TrimSpace(s))
	}
	return v, nil
}

// parseChain parses "x,y -> x,y -> ..." with exactly n points.
func parseChain(s string, n int) ([]pattern.Point, error) {
	parts := strings.Split(s, "->")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d points separated by '->', got %d", n, len(parts))
	}
	pts := make([]pattern.Point, n)
	for i, part := range parts {
		p, err := parsePoint(part)
		if err != nil {
			return nil, err
		}
		pts[i] = p
	}
	return pts, nil
}

func parseMark(s string) (pattern.Mark, error) {
	coords, label, hasLabel := strings.Cut(s, `"`)
	p, err := parsePoint(coords)
	if err != nil {
		return pattern.Mark{}, err
	}
	m := pattern.Mark{X: p.X, Y: p.Y}
	if hasLabel {
		quoted := `"` + strings.TrimSpace(label)
		if unq, err := strconv.Unquote(quoted); err == nil {
			m.Label = unq
		} else {
			// Hand-written labels need not be valid Go strings.
			m.Label = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), `"`))
		}
	}
	return m, nil
}

// parseArc handles ARC [x,y] R=<r> SWEEP=<CW|CCW> [LARGE] TO x,y. A leading
// start point becomes the pen when there is none, or is joined to the pen
// with a LINE when it differs.
func parseArc(s string, pen *pattern.Point) ([]pattern.Command, pattern.Point, error) {
	head, tail, ok := strings.Cut(s, " TO ")
	if !ok {
		if strings.HasPrefix(s, "TO ") {
			head, tail = "", strings.TrimPrefix(s, "TO ")
		} else {
			return nil, pattern.Point{}, errors.New("ARC requires TO x,y")
		}
	}
	to, err := parsePoint(tail)
	if err != nil {
		return nil, pattern.Point{}, err
	}

	var (
		cmds   []pattern.Command
		radius float64
		sweep  string
		large  bool
	)
	for _, f := range strings.Fields(head) {
		key, val, hasVal := strings.Cut(f, "=")
		switch strings.ToUpper(key) {
		case "R":
			if radius, err = parseNumber(val); err != nil || radius <= 0 {
				return nil, pattern.Point{}, fmt.Errorf("bad arc radius %q", val)
			}
		case "SWEEP":
			sweep = strings.ToUpper(val)
			if sweep != pattern.CW && sweep != pattern.CCW {
				return nil, pattern.Point{}, fmt.Errorf("SWEEP must be CW or CCW, got %q", val)
			}
		case "LARGE":
			large = true
		default:
			if hasVal {
				return nil, pattern.Point{}, fmt.Errorf("unknown ARC option %q", key)
			}
			start, err := parsePoint(f)
			if err != nil {
				return nil, pattern.Point{}, err
			}
			switch {
			case pen == nil:
				cmds = append(cmds, pattern.MoveTo(start.X, start.Y))
			case !geom.Near(pen.Vec(), start.Vec(), geom.Eps):
				cmds = append(cmds, pattern.LineTo(start.X, start.Y))
			}
			pen = &start
		}
	}
	if radius == 0 {
		return nil, pattern.Point{}, errors.New("ARC requires R=<radius>")
	}
	if sweep == "" {
		return nil, pattern.Point{}, errors.New("ARC requires SWEEP=CW|CCW")
	}
	if pen == nil {
		return nil, pattern.Point{}, errors.New("ARC needs a start point or a preceding MOVE")
	}
	cmds = append(cmds, pattern.ArcTo(to, radius, sweep, large))
	return cmds, to, nil
}
