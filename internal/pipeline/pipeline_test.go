package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/leather-drafts/internal/config"
	"github.com/banshee-data/leather-drafts/internal/construct"
	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/ledger"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/project"
	"github.com/banshee-data/leather-drafts/internal/validate"
)

type memRecorder struct {
	mu   sync.Mutex
	runs []*ledger.Run
}

func (m *memRecorder) Begin(_ context.Context, stage string, inputs []string, params map[string]any) (*ledger.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := &ledger.Run{ID: fmt.Sprint(len(m.runs) + 1), Stage: stage, Status: ledger.StatusRunning, Inputs: inputs, Params: params}
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *memRecorder) Finish(ctx context.Context, run *ledger.Run, artifacts []ledger.Artifact, runErr error) error {
	return ledger.Discard.Finish(ctx, run, artifacts, runErr)
}

type failingRecorder struct{}

func (failingRecorder) Begin(context.Context, string, []string, map[string]any) (*ledger.Run, error) {
	return nil, errors.New("database is locked")
}

func (failingRecorder) Finish(context.Context, *ledger.Run, []ledger.Artifact, error) error {
	return nil
}

func TestDraft_Demo(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rec := &memRecorder{}
	r := New(fsys, rec)

	p, err := r.Draft(context.Background(), DraftRequest{Out: "tmp/base.json"})
	require.NoError(t, err)
	require.Len(t, p.Pieces, 1)
	assert.Equal(t, "front_panel_A", p.Pieces[0].Name)

	saved, err := pattern.Load(fsys, "tmp/base.json")
	require.NoError(t, err)
	assert.Equal(t, "mm", saved.Units)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, StageDraft, run.Stage)
	assert.Equal(t, ledger.StatusSucceeded, run.Status)
	assert.Equal(t, "tmp/base.json", run.Output)
	assert.Len(t, run.OutputSHA256, 64)
}

func TestDraft_DSLFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	src := "PIECE tab\nMOVE 0,0\nLINE 30,0\nLINE 30,10\nCLOSE\nEND\n"
	require.NoError(t, fsys.WriteFile("tab.dsl", []byte(src), 0644))

	p, err := New(fsys, nil).Draft(context.Background(), DraftRequest{DSL: "tab.dsl", Out: "base.json"})
	require.NoError(t, err)
	require.Len(t, p.Pieces, 1)
	assert.Equal(t, "tab", p.Pieces[0].Name)
}

func TestDraft_BlockNeedsMeasurements(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rec := &memRecorder{}
	_, err := New(fsys, rec).Draft(context.Background(), DraftRequest{Block: "block.json", Out: "base.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires measurements")
	require.Len(t, rec.runs, 1)
	assert.Equal(t, ledger.StatusFailed, rec.runs[0].Status)
	assert.False(t, fsys.Exists("base.json"))
}

func TestDraft_LedgerUnavailable(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	_, err := New(fsys, failingRecorder{}).Draft(context.Background(), DraftRequest{Out: "base.json"})
	require.NoError(t, err, "ledger errors do not fail the stage")
	assert.True(t, fsys.Exists("base.json"))
}

func starterPlan(t *testing.T, fsys fsutil.FileSystem) (*project.Layout, Plan) {
	t.Helper()
	l, err := project.New("projects", "acme")
	require.NoError(t, err)
	_, err = project.Init(fsys, l)
	require.NoError(t, err)
	return l, Plan{
		Draft:     DraftRequest{Recipe: l.Recipe(), Measurements: l.Measurements(), Out: l.Base()},
		Construct: ConstructRequest{OptionsPath: l.Options(), Out: l.Constructed()},
		Package:   PackageRequest{Out: l.Package(), Title: l.Client},
		Export:    ExportRequest{Out: l.DXF(), Options: config.DefaultExportOptions()},
	}
}

func TestRun_StarterProject(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rec := &memRecorder{}
	l, plan := starterPlan(t, fsys)

	require.NoError(t, New(fsys, rec).Run(context.Background(), plan))

	constructed, err := pattern.Load(fsys, l.Constructed())
	require.NoError(t, err)
	require.Len(t, constructed.Pieces, 3)
	for _, pc := range constructed.Pieces {
		assert.NotEmpty(t, pc.SAPaths, "piece %s", pc.Name)
	}

	for _, path := range []string{
		filepath.Join(l.Package(), "pattern.svg"),
		filepath.Join(l.Package(), "pieces", "front.svg"),
		filepath.Join(l.Package(), "proofs", "collar.svg"),
		filepath.Join(l.Package(), "summary.json"),
		filepath.Join(l.Package(), "report.html"),
		l.DXF(),
	} {
		assert.True(t, fsys.Exists(path), "missing %s", path)
	}

	data, err := fsys.ReadFile(l.DXF())
	require.NoError(t, err)
	assert.Contains(t, string(data), "AC1018")

	var stages []string
	for _, run := range rec.runs {
		stages = append(stages, run.Stage)
		assert.Equal(t, ledger.StatusSucceeded, run.Status, run.Stage)
		for _, a := range run.Artifacts {
			assert.Len(t, a.SHA256, 64, a.Path)
		}
	}
	assert.Equal(t, []string{StageDraft, StageConstruct, StagePackage, StageExportDXF}, stages)
	assert.Equal(t, []string{l.Recipe(), l.Measurements()}, rec.runs[0].Inputs)
	assert.Equal(t, l.Base(), rec.runs[1].Inputs[0], "stages are linked")
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rec := &memRecorder{}
	_, plan := starterPlan(t, fsys)
	plan.Construct.OptionsPath = "missing.yml"

	err := New(fsys, rec).Run(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), StageConstruct+":"), err.Error())
	assert.Len(t, rec.runs, 1, "construct fails before opening a run")
}

func bowTie() *pattern.Pattern {
	return &pattern.Pattern{Units: "mm", Pieces: []pattern.Piece{{
		Name: "bow",
		Paths: []pattern.Command{
			pattern.MoveTo(0, 0), pattern.LineTo(100, 100), pattern.LineTo(100, 0),
			pattern.LineTo(0, 100), pattern.ClosePath(),
		},
	}}}
}

func TestConstruct_FailOnIntersection(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, pattern.Save(fsys, "base.json", bowTie()))
	rec := &memRecorder{}

	fail := true
	sa := 5.0
	rep, err := New(fsys, rec).Construct(context.Background(), ConstructRequest{
		In:      "base.json",
		Options: &config.ConstructOptions{SeamAllowance: &sa, FailOnIntersection: &fail},
		Out:     "constructed.json",
	})
	require.ErrorIs(t, err, construct.ErrIntersection)
	require.NotNil(t, rep)
	assert.Equal(t, []string{"bow"}, rep.Intersecting())
	assert.False(t, fsys.Exists("constructed.json"))
	require.Len(t, rec.runs, 1)
	assert.Equal(t, ledger.StatusFailed, rec.runs[0].Status)
	assert.Equal(t, true, rec.runs[0].Params["fail_on_intersection"])
}

func TestValidate(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, pattern.Save(fsys, "bow.json", bowTie()))
	rec := &memRecorder{}

	issues, err := New(fsys, rec).Validate(context.Background(), ValidateRequest{In: "bow.json"})
	require.ErrorIs(t, err, ErrInvalid)
	require.NotEmpty(t, issues)
	codes := map[string]bool{}
	for _, is := range issues {
		codes[is.Code] = true
	}
	assert.True(t, codes[validate.CodeOutlineIntersects])
	assert.Equal(t, ledger.StatusFailed, rec.runs[0].Status)
}

func TestValidate_Clean(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	r := New(fsys, nil)
	_, err := r.Draft(context.Background(), DraftRequest{Out: "base.json"})
	require.NoError(t, err)

	issues, err := r.Validate(context.Background(), ValidateRequest{In: "base.json"})
	require.NoError(t, err)
	assert.False(t, validate.HasErrors(issues))
}

func TestPlan_Inputs(t *testing.T) {
	plan := Plan{
		Draft:     DraftRequest{Recipe: "r.yml", Measurements: "m.json", Block: ""},
		Construct: ConstructRequest{OptionsPath: "o.yml"},
	}
	assert.Equal(t, []string{"r.yml", "m.json", "o.yml"}, plan.Inputs())
}
