package svgexport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/geom"
	"github.com/banshee-data/leather-drafts/internal/pattern"
)

func panel() pattern.Piece {
	sa := []pattern.Command{
		pattern.MoveTo(-8, -8), pattern.LineTo(148, -8), pattern.LineTo(148, 528),
		pattern.LineTo(-8, 528), pattern.LineTo(-8, -8),
	}
	return pattern.Piece{
		Name: "front panel",
		Paths: []pattern.Command{
			pattern.MoveTo(0, 0),
			pattern.LineTo(0, 520),
			pattern.LineTo(140, 520),
			pattern.LineTo(140, 0),
			pattern.ClosePath(),
		},
		Notches: []pattern.Mark{{X: 20, Y: 520, Label: "CF hem"}},
		Drills:  []pattern.Mark{{X: 70, Y: 260, Label: "<snap>"}},
		Grain:   &pattern.Segment{{X: 30, Y: 20}, {X: 30, Y: 300}},
		SAPaths: sa,
	}
}

func wellFormed(t *testing.T, data []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			t.Fatalf("SVG is not well formed XML: %v\n%s", err, data)
		}
	}
}

func TestPathData(t *testing.T) {
	cmds := []pattern.Command{
		pattern.MoveTo(0, 0),
		pattern.LineTo(10, 0),
		pattern.CurveTo(pattern.Point{X: 10, Y: 5}, pattern.Point{X: 5, Y: 10}, pattern.Point{X: 0, Y: 10}),
		pattern.ArcTo(pattern.Point{X: 0, Y: 0}, 5, pattern.CCW, false),
		pattern.ClosePath(),
	}
	got := PathData(cmds, geom.Vec{})
	want := "M0 0 L1000 0 C1000 -500 500 -1000 0 -1000 A500 500 0 0 0 0 0 Z"
	assert.Equal(t, want, got)

	cw := PathData([]pattern.Command{pattern.MoveTo(0, 0), pattern.ArcTo(pattern.Point{X: 1, Y: 0}, 1, pattern.CW, true)}, geom.Vec{X: 1, Y: 1})
	assert.Equal(t, "M100 -100 A100 100 0 1 1 200 -100", cw)
}

func TestPathData_SkipsWithoutPen(t *testing.T) {
	cmds := []pattern.Command{
		pattern.CurveTo(pattern.Point{}, pattern.Point{}, pattern.Point{X: 1}),
		{Type: pattern.Arc, Data: pattern.CommandData{Raw: "x"}},
		pattern.LineTo(2, 2),
		pattern.ClosePath(),
	}
	assert.Equal(t, "M200 -200 Z", PathData(cmds, geom.Vec{}))
	assert.Equal(t, "", PathData(nil, geom.Vec{}))
}

func TestSheet(t *testing.T) {
	second := panel()
	second.Name = "back"
	p := &pattern.Pattern{Units: "mm", Pieces: []pattern.Piece{panel(), second}}

	var buf bytes.Buffer
	require.NoError(t, Sheet(&buf, p, DefaultOptions()))
	out := buf.String()
	wellFormed(t, buf.Bytes())

	assert.Contains(t, out, `mm"`)
	assert.Contains(t, out, "viewBox=")
	assert.Contains(t, out, "front panel")
	assert.Contains(t, out, `id="front_panel"`)
	assert.Contains(t, out, "&lt;snap&gt;")
	assert.Equal(t, 2, strings.Count(out, "stroke-dasharray"), "one allowance per piece")
	assert.Equal(t, 2, strings.Count(out, "<circle"), "one drill per piece")
}

func TestLayout_StacksWithoutOverlap(t *testing.T) {
	a, b := panel(), panel()
	b.Name = "b"
	items, sheet := layout([]pattern.Piece{a, b}, newScale("mm"), DefaultOptions())
	require.Len(t, items, 2)
	assert.Greater(t, items[0].box.Min.Y, items[1].box.Max.Y, "second piece sits below the first")
	assert.InDelta(t, 0, items[0].box.Min.X, 1e-9)
	assert.InDelta(t, 0, items[1].box.Min.X, 1e-9)
	assert.LessOrEqual(t, sheet.Min.Y, items[1].box.Min.Y)
	assert.GreaterOrEqual(t, sheet.Max.Y, items[0].box.Max.Y)
}

func square(side float64) pattern.Piece {
	return pattern.Piece{
		Name: "square",
		Paths: []pattern.Command{
			pattern.MoveTo(0, 0), pattern.LineTo(side, 0), pattern.LineTo(side, side),
			pattern.LineTo(0, side), pattern.ClosePath(),
		},
	}
}

func TestLayout_MarginInMillimetres(t *testing.T) {
	tests := []struct {
		unit       string
		margin     float64
		gap        float64
		wantStroke string
	}{
		{"mm", 20, 12, "stroke-width:30"},
		{"cm", 2, 1.2, "stroke-width:3"},
		{"in", 20 / 25.4, 12 / 25.4, "stroke-width:1"},
		{"unitless", 20, 12, "stroke-width:30"},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			items, sheet := layout([]pattern.Piece{square(10)}, newScale(tt.unit), DefaultOptions())
			require.Len(t, items, 1)
			assert.InDelta(t, -10-tt.gap, items[0].box.Min.Y, 1e-9)
			assert.InDelta(t, -tt.margin, sheet.Min.X, 1e-9)
			assert.InDelta(t, 10+tt.margin, sheet.Max.X, 1e-9)
			assert.InDelta(t, tt.margin, sheet.Max.Y, 1e-9)
			assert.Contains(t, newStyles(newScale(tt.unit)).cut, tt.wantStroke)
		})
	}
}

func TestSheet_CentimetrePreviewFitsPiece(t *testing.T) {
	p := &pattern.Pattern{Units: "cm", Pieces: []pattern.Piece{square(10)}}
	var buf bytes.Buffer
	require.NoError(t, Sheet(&buf, p, DefaultOptions()))
	wellFormed(t, buf.Bytes())
	// 10 cm piece plus 2 cm margin each side.
	assert.Contains(t, buf.String(), `width="14cm"`)
}

func TestSvgUnit(t *testing.T) {
	assert.Equal(t, "mm", svgUnit(""))
	assert.Equal(t, "in", svgUnit("inches"))
	assert.Equal(t, "", svgUnit("unitless"))
}

func TestWrite(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	p := &pattern.Pattern{Units: "mm", Pieces: []pattern.Piece{panel()}}
	written, err := Write(fsys, "out", p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("out", "pattern.svg"),
		filepath.Join("out", "pieces", "front_panel.svg"),
	}, written)
	for _, name := range written {
		data, err := fsys.ReadFile(name)
		require.NoError(t, err)
		wellFormed(t, data)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSheet_ReportsWriteError(t *testing.T) {
	err := Sheet(failWriter{}, &pattern.Pattern{Pieces: []pattern.Piece{panel()}}, DefaultOptions())
	assert.EqualError(t, err, "disk full")
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "front_panel", sanitizeID("front panel"))
	assert.Equal(t, "p_1st", sanitizeID("1st"))
	assert.Equal(t, "p_", sanitizeID(""))
}
