package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/ledger"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/pipeline"
	"github.com/banshee-data/leather-drafts/internal/project"
	"github.com/banshee-data/leather-drafts/internal/validate"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newApp(fsutil.OSFileSystem{}).rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "leatherdrafts "), out)
}

func TestProjectPipeline(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "alice")

	out, err := run(t, "init", "alice", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "project ready: "+dir)
	assert.Contains(t, out, filepath.Join(dir, project.RecipeFile))

	for _, args := range [][]string{
		{"draft", "-p", dir},
		{"construct", "-p", dir},
		{"package", "-p", dir},
		{"export-dxf", "-p", dir, "--units", "in", "--arcs", "bulge"},
	} {
		out, err := run(t, args...)
		require.NoError(t, err, "%v: %s", args, out)
		assert.Contains(t, out, "wrote ")
	}

	data, err := os.ReadFile(filepath.Join(dir, project.OutputsDir, "alice.dxf"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "AC1018")
	assert.FileExists(t, filepath.Join(dir, project.OutputsDir, project.PackageDir, "report.html"))

	out, err = run(t, "runs", "list", "-p", dir)
	require.NoError(t, err)
	for _, stage := range []string{"draft", "construct", "package", "export-dxf"} {
		assert.Contains(t, out, stage)
	}
	assert.Contains(t, out, string(ledger.StatusSucceeded))

	out, err = run(t, "runs", "list", "-p", dir, "--json", "--stage", "export-dxf")
	require.NoError(t, err)
	var runs []ledger.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, map[string]any{"units": "in", "splines": false, "flatten_tol": 0.2, "arcs": "bulge"}, runs[0].Params)

	out, err = run(t, "runs", "show", "-p", dir, runs[0].ID[:8])
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].ID)
	assert.Contains(t, out, "alice.dxf")

	out, err = run(t, "runs", "prune", "-p", dir, "--keep", "1")
	require.NoError(t, err)
	assert.Equal(t, "pruned 3 run(s)\n", out)
}

func TestInit_RejectsBadClient(t *testing.T) {
	_, err := run(t, "init", "../escape", "--root", t.TempDir())
	assert.Error(t, err)
}

func TestDraft_RequiresOut(t *testing.T) {
	_, err := run(t, "draft")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out is required")
}

func TestDraftDemoAndValidate(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")

	out, err := run(t, "draft", "--out", base)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 pieces)")

	_, err = run(t, "validate", "--in", base)
	assert.NoError(t, err)
}

func TestValidate_FailsOnErrors(t *testing.T) {
	in := filepath.Join(t.TempDir(), "bow.json")
	require.NoError(t, pattern.Save(fsutil.OSFileSystem{}, in, &pattern.Pattern{
		Units: "mm",
		Pieces: []pattern.Piece{{
			Name: "bow",
			Paths: []pattern.Command{
				pattern.MoveTo(0, 0), pattern.LineTo(100, 100), pattern.LineTo(100, 0),
				pattern.LineTo(0, 100), pattern.ClosePath(),
			},
		}},
	}))

	out, err := run(t, "validate", "--in", in)
	require.ErrorIs(t, err, pipeline.ErrInvalid)
	assert.Contains(t, out, validate.CodeOutlineIntersects)

	out, err = run(t, "validate", "--in", in, "--json")
	require.ErrorIs(t, err, pipeline.ErrInvalid)
	var issues []validate.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &issues))
	assert.NotEmpty(t, issues)
}

func TestRuns_NoLedger(t *testing.T) {
	_, err := run(t, "runs", "list")
	assert.ErrorIs(t, err, errNoLedger)
}

func TestExportFlags_OverrideFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("export.yml", []byte("units: cm\narcs: segment\nlayer_map:\n  CUT: OUTLINE\n"), 0644))

	var f exportFlags
	cmd := &cobra.Command{}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Set("arcs", "bulge"))
	require.NoError(t, cmd.Flags().Set("splines", "on"))

	opts, err := f.exportOptions(cmd, fsys, "export.yml")
	require.NoError(t, err)
	assert.Equal(t, "cm", opts.GetUnits())
	assert.Equal(t, "bulge", opts.GetArcs())
	assert.True(t, opts.GetSplines())
	assert.Equal(t, 0.2, opts.GetFlattenTol())
	assert.Equal(t, "OUTLINE", opts.Layer("CUT"))
}

func TestExportFlags_Invalid(t *testing.T) {
	for _, tc := range []struct{ flag, value string }{
		{"splines", "maybe"},
		{"units", "furlong"},
		{"arcs", "nurbs"},
		{"flatten-tol", "-1"},
	} {
		var f exportFlags
		cmd := &cobra.Command{}
		f.register(cmd)
		require.NoError(t, cmd.Flags().Set(tc.flag, tc.value))
		_, err := f.exportOptions(cmd, fsutil.NewMemoryFileSystem(), "")
		assert.Error(t, err, "--%s %s", tc.flag, tc.value)
	}
}

func TestConstructFlags_SeamAllowance(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("options.yml", []byte("seam_allowance: 8\nmiter_limit: 3\n"), 0644))

	var f constructFlags
	cmd := &cobra.Command{}
	cmd.Flags().Float64Var(&f.seamAllowance, "seam-allowance", 0, "")
	require.NoError(t, cmd.Flags().Set("seam-allowance", "12"))
	f.in, f.options, f.out = "base.json", "options.yml", "constructed.json"

	req, err := f.request(cmd, fsys, nil)
	require.NoError(t, err)
	require.NotNil(t, req.Options)
	assert.Equal(t, "options.yml", req.OptionsPath)
	assert.Equal(t, 12.0, req.Options.GetSeamAllowance())
	assert.Equal(t, 3.0, req.Options.GetMiterLimit())
}

func TestPlanFlags_ProjectLayout(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	l, err := project.New("projects", "bob")
	require.NoError(t, err)
	_, err = project.Init(fsys, l)
	require.NoError(t, err)

	var f planFlags
	cmd := &cobra.Command{}
	f.export.register(cmd)
	plan, err := f.plan(cmd, fsys, l)
	require.NoError(t, err)

	assert.Equal(t, l.Recipe(), plan.Draft.Recipe)
	assert.Equal(t, l.Base(), plan.Construct.In)
	assert.Equal(t, l.Options(), plan.Construct.OptionsPath)
	assert.Equal(t, l.Constructed(), plan.Export.In)
	assert.Equal(t, l.DXF(), plan.Export.Out)
	assert.ElementsMatch(t,
		[]string{l.Recipe(), l.Measurements(), l.Options(), l.Block()},
		watched(fsys, plan))
}
