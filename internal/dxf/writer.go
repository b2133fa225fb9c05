package dxf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// writer emits DXF group code/value pairs and allocates entity handles.
// The first write error is kept and later writes become no-ops.
type writer struct {
	w      *bufio.Writer
	err    error
	handle uint64
}

func newWriter(w io.Writer, firstHandle uint64) *writer {
	return &writer{w: bufio.NewWriter(w), handle: firstHandle}
}

// next allocates a handle.
func (w *writer) next() string {
	h := strconv.FormatUint(w.handle, 16)
	w.handle++
	return strings.ToUpper(h)
}

func (w *writer) pair(code int, value string) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, "%3d\n%s\n", code, value)
}

func (w *writer) str(code int, s string) { w.pair(code, encodeText(s)) }

func (w *writer) integer(code int, v int) { w.pair(code, strconv.Itoa(v)) }

func (w *writer) float(code int, v float64) { w.pair(code, formatFloat(v)) }

// point writes x, y, z with the given base code (10, 11, ...).
func (w *writer) point(code int, x, y float64) {
	w.float(code, x)
	w.float(code+10, y)
	w.float(code+20, 0)
}

func (w *writer) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func formatFloat(v float64) string {
	v = math.Round(v*1e9) / 1e9
	if v == 0 {
		return "0.0"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// encodeText escapes characters outside printable ASCII as \U+XXXX, the
// form AutoCAD reads in ANSI_1252 drawings. Control characters become
// spaces.
func encodeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20:
			b.WriteByte(' ')
		case r > 0x7e:
			fmt.Fprintf(&b, `\U+%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
