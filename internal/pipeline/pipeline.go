// Package pipeline runs the drafting stages as file-to-file transforms and
// records each execution in the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/banshee-data/leather-drafts/internal/block"
	"github.com/banshee-data/leather-drafts/internal/config"
	"github.com/banshee-data/leather-drafts/internal/construct"
	"github.com/banshee-data/leather-drafts/internal/dsl"
	"github.com/banshee-data/leather-drafts/internal/dxf"
	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/ledger"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/pattern"
	"github.com/banshee-data/leather-drafts/internal/recipe"
	"github.com/banshee-data/leather-drafts/internal/report"
	"github.com/banshee-data/leather-drafts/internal/svgexport"
	"github.com/banshee-data/leather-drafts/internal/units"
	"github.com/banshee-data/leather-drafts/internal/validate"
)

// Stage names as recorded in the ledger.
const (
	StageDraft     = "draft"
	StageConstruct = "construct"
	StagePackage   = "package"
	StageExportDXF = "export-dxf"
	StageValidate  = "validate"
)

// ErrInvalid is returned by Validate when the pattern has error issues.
var ErrInvalid = errors.New("pattern has validation errors")

// Runner executes stages against a filesystem.
type Runner struct {
	FS     fsutil.FileSystem
	Ledger ledger.Recorder
}

// New returns a Runner. A nil recorder discards runs.
func New(fsys fsutil.FileSystem, rec ledger.Recorder) *Runner {
	if rec == nil {
		rec = ledger.Discard
	}
	return &Runner{FS: fsys, Ledger: rec}
}

// record wraps a stage: it opens a ledger run, executes fn and closes the
// run with digests of the files fn reports as written. Ledger failures are
// logged, never fatal to the stage.
func (r *Runner) record(ctx context.Context, stage string, inputs []string, params map[string]any, fn func() ([]string, error)) error {
	log := monitoring.L().With(zap.String("stage", stage))
	run, err := r.Ledger.Begin(ctx, stage, inputs, params)
	if err != nil {
		log.Warn("ledger unavailable", zap.Error(err))
		run = nil
	}

	outputs, runErr := fn()

	if run == nil {
		return runErr
	}
	artifacts := make([]ledger.Artifact, 0, len(outputs))
	for _, path := range outputs {
		sum, err := fsutil.SHA256(r.FS, path)
		if err != nil {
			log.Warn("failed to hash output", zap.String("path", path), zap.Error(err))
		}
		artifacts = append(artifacts, ledger.Artifact{Path: path, SHA256: sum})
	}
	if err := r.Ledger.Finish(ctx, run, artifacts, runErr); err != nil {
		log.Warn("failed to finish ledger run", zap.String("run", run.ID), zap.Error(err))
	}
	if runErr == nil {
		log.Info("stage complete", zap.String("run", run.ID), zap.Int("outputs", len(outputs)))
	}
	return runErr
}

// DraftRequest names the draft stage inputs. Block overrides the recipe's
// block; without any block the DSL file, or the built-in demo piece, is
// compiled.
type DraftRequest struct {
	Recipe       string
	Measurements string
	Block        string
	DSL          string
	Out          string
}

// Draft writes the base pattern.
func (r *Runner) Draft(ctx context.Context, req DraftRequest) (*pattern.Pattern, error) {
	var out *pattern.Pattern
	inputs := nonEmpty(req.Recipe, req.Measurements, req.Block, req.DSL)
	err := r.record(ctx, StageDraft, inputs, map[string]any{"out": req.Out}, func() ([]string, error) {
		p, err := r.draft(req)
		if err != nil {
			return nil, err
		}
		if err := pattern.Save(r.FS, req.Out, p); err != nil {
			return nil, err
		}
		out = p
		return []string{req.Out}, nil
	})
	return out, err
}

func (r *Runner) draft(req DraftRequest) (*pattern.Pattern, error) {
	var rec *recipe.Recipe
	if req.Recipe != "" {
		rec = recipe.LoadRecipe(r.FS, req.Recipe)
	} else {
		rec = &recipe.Recipe{}
	}

	blockPath := req.Block
	if blockPath == "" {
		blockPath = rec.BlockPath()
	}
	if blockPath != "" {
		if req.Measurements == "" {
			return nil, fmt.Errorf("drafting block %s requires measurements", blockPath)
		}
		m, err := recipe.LoadMeasurements(r.FS, req.Measurements)
		if err != nil {
			return nil, err
		}
		b, err := block.Load(r.FS, blockPath)
		if err != nil {
			return nil, err
		}
		monitoring.L().Info("drafting from block", zap.String("block", blockPath), zap.Int("pieces", len(b.Pieces)))
		return block.Draft(b, m, rec)
	}

	src := dsl.Demo
	if req.DSL != "" {
		data, err := r.FS.ReadFile(req.DSL)
		if err != nil {
			return nil, fmt.Errorf("failed to read DSL: %w", err)
		}
		src = string(data)
	} else {
		monitoring.L().Info("no block or DSL given, drafting the demo piece")
	}
	pieces, err := dsl.ParseString(src)
	if err != nil {
		return nil, err
	}
	return &pattern.Pattern{Units: units.MM, Pieces: pieces}, nil
}

// ConstructRequest names the construct stage inputs. Options, when set,
// takes precedence over OptionsPath.
type ConstructRequest struct {
	In          string
	OptionsPath string
	Options     *config.ConstructOptions
	Out         string
}

// Construct adds seam allowances and writes the constructed pattern.
func (r *Runner) Construct(ctx context.Context, req ConstructRequest) (*construct.Report, error) {
	var rep *construct.Report
	inputs := nonEmpty(req.In, req.OptionsPath)
	opts, err := r.constructOptions(req)
	if err != nil {
		return nil, err
	}
	params := map[string]any{
		"seam_allowance":       opts.GetSeamAllowance(),
		"miter_limit":          opts.GetMiterLimit(),
		"flatten_tol":          opts.GetFlattenTol(),
		"fail_on_intersection": opts.GetFailOnIntersection(),
	}
	err = r.record(ctx, StageConstruct, inputs, params, func() ([]string, error) {
		in, err := pattern.Load(r.FS, req.In)
		if err != nil {
			return nil, err
		}
		out, report, err := construct.Run(ctx, in, opts)
		rep = report
		if err != nil {
			return nil, err
		}
		if err := pattern.Save(r.FS, req.Out, out); err != nil {
			return nil, err
		}
		return []string{req.Out}, nil
	})
	return rep, err
}

func (r *Runner) constructOptions(req ConstructRequest) (*config.ConstructOptions, error) {
	if req.Options != nil {
		return req.Options, req.Options.Validate()
	}
	if req.OptionsPath == "" {
		return config.DefaultConstructOptions(), nil
	}
	return config.LoadConstructOptions(r.FS, req.OptionsPath)
}

// PackageRequest names the package stage inputs.
type PackageRequest struct {
	In    string
	Out   string
	Title string
}

// Package writes the SVG previews, proofs, summary and HTML report into Out
// and returns the written paths.
func (r *Runner) Package(ctx context.Context, req PackageRequest) ([]string, error) {
	var written []string
	err := r.record(ctx, StagePackage, []string{req.In}, map[string]any{"out": req.Out}, func() ([]string, error) {
		p, err := pattern.Load(r.FS, req.In)
		if err != nil {
			return nil, err
		}
		svgOpts := svgexport.DefaultOptions()
		files, err := svgexport.Write(r.FS, req.Out, p, svgOpts)
		written = append(written, files...)
		if err != nil {
			return written, err
		}
		files, err = report.Write(r.FS, req.Out, p, svgOpts.FlattenTol, report.HTMLOptions{Title: req.Title})
		written = append(written, files...)
		return written, err
	})
	return written, err
}

// ExportRequest names the export-dxf stage inputs.
type ExportRequest struct {
	In      string
	Out     string
	Options *config.ExportOptions
}

// ExportDXF writes the DXF drawing.
func (r *Runner) ExportDXF(ctx context.Context, req ExportRequest) error {
	opts := req.Options
	if opts == nil {
		opts = config.DefaultExportOptions()
	}
	params := map[string]any{
		"units":       opts.GetUnits(),
		"splines":     opts.GetSplines(),
		"flatten_tol": opts.GetFlattenTol(),
		"arcs":        opts.GetArcs(),
	}
	return r.record(ctx, StageExportDXF, []string{req.In}, params, func() ([]string, error) {
		p, err := pattern.Load(r.FS, req.In)
		if err != nil {
			return nil, err
		}
		if err := dxf.Write(r.FS, req.Out, p, opts); err != nil {
			return nil, err
		}
		return []string{req.Out}, nil
	})
}

// ValidateRequest names the pattern to check.
type ValidateRequest struct {
	In      string
	Options validate.Options
}

// Validate checks a pattern. It returns ErrInvalid alongside the issues when
// any issue is an error.
func (r *Runner) Validate(ctx context.Context, req ValidateRequest) ([]validate.Issue, error) {
	var issues []validate.Issue
	opts := req.Options
	if opts.FlattenTol <= 0 {
		opts.FlattenTol = validate.DefaultOptions().FlattenTol
	}
	params := map[string]any{"require_grain": opts.RequireGrain}
	err := r.record(ctx, StageValidate, []string{req.In}, params, func() ([]string, error) {
		p, err := pattern.Load(r.FS, req.In)
		if err != nil {
			return nil, err
		}
		issues = validate.Pattern(p, opts)
		if n := countErrors(issues); n > 0 {
			return nil, fmt.Errorf("%w: %d error(s)", ErrInvalid, n)
		}
		return nil, nil
	})
	return issues, err
}

func countErrors(issues []validate.Issue) int {
	n := 0
	for _, is := range issues {
		if is.Severity == validate.Error {
			n++
		}
	}
	return n
}

// Plan is a full draft, construct, package, export-dxf chain.
type Plan struct {
	Draft     DraftRequest
	Construct ConstructRequest
	Package   PackageRequest
	Export    ExportRequest
}

// Inputs are the source files a plan reads, for watching.
func (p *Plan) Inputs() []string {
	return nonEmpty(p.Draft.Recipe, p.Draft.Measurements, p.Draft.Block, p.Draft.DSL, p.Construct.OptionsPath)
}

// Link points every stage's input at the previous stage's output.
func (p *Plan) Link() {
	p.Construct.In = p.Draft.Out
	p.Package.In = p.Construct.Out
	p.Export.In = p.Construct.Out
}

// Run executes all four stages in order, stopping at the first failure.
func (r *Runner) Run(ctx context.Context, plan Plan) error {
	plan.Link()
	if _, err := r.Draft(ctx, plan.Draft); err != nil {
		return fmt.Errorf("%s: %w", StageDraft, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.Construct(ctx, plan.Construct); err != nil {
		return fmt.Errorf("%s: %w", StageConstruct, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.Package(ctx, plan.Package); err != nil {
		return fmt.Errorf("%s: %w", StagePackage, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.ExportDXF(ctx, plan.Export); err != nil {
		return fmt.Errorf("%s: %w", StageExportDXF, err)
	}
	return nil
}

func nonEmpty(paths ...string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
