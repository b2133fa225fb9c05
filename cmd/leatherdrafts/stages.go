package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/leather-drafts/internal/config"
	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/pipeline"
	"github.com/banshee-data/leather-drafts/internal/project"
	"github.com/banshee-data/leather-drafts/internal/validate"
)

type draftFlags struct {
	recipe       string
	measurements string
	block        string
	dsl          string
	out          string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.recipe, "recipe", "", "recipe YAML")
	cmd.Flags().StringVar(&f.measurements, "measurements", "", "measurements JSON")
	cmd.Flags().StringVar(&f.block, "block", "", "parametric block JSON/YAML (overrides the recipe's block)")
	cmd.Flags().StringVar(&f.dsl, "dsl", "", "path DSL file, used when no block is given")
}

func (f *draftFlags) request(fsys fsutil.FileSystem, l *project.Layout) pipeline.DraftRequest {
	req := pipeline.DraftRequest{
		Recipe:       f.recipe,
		Measurements: f.measurements,
		Block:        f.block,
		DSL:          f.dsl,
		Out:          f.out,
	}
	if l == nil {
		return req
	}
	if req.DSL == "" {
		req.Recipe = pick(req.Recipe, existing(fsys, l.Recipe()))
	}
	req.Measurements = pick(req.Measurements, existing(fsys, l.Measurements()))
	req.Out = pick(req.Out, l.Base())
	return req
}

func (a *app) draftCmd() *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft the base pattern from a recipe, block or DSL file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.layout()
			if err != nil {
				return err
			}
			req := f.request(a.fs, l)
			if err := required("out", req.Out); err != nil {
				return err
			}
			r, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()

			p, err := r.Draft(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pieces)\n", req.Out, len(p.Pieces))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.out, "out", "", "base pattern JSON to write")
	return cmd
}

type constructFlags struct {
	in            string
	options       string
	out           string
	seamAllowance float64
}

func (f *constructFlags) request(cmd *cobra.Command, fsys fsutil.FileSystem, l *project.Layout) (pipeline.ConstructRequest, error) {
	req := pipeline.ConstructRequest{In: f.in, OptionsPath: f.options, Out: f.out}
	if l != nil {
		req.In = pick(req.In, l.Base())
		req.OptionsPath = pick(req.OptionsPath, existing(fsys, l.Options()))
		req.Out = pick(req.Out, l.Constructed())
	}
	if cmd.Flags().Changed("seam-allowance") {
		opts := config.DefaultConstructOptions()
		if req.OptionsPath != "" {
			loaded, err := config.LoadConstructOptions(fsys, req.OptionsPath)
			if err != nil {
				return req, err
			}
			opts = loaded
		}
		sa := f.seamAllowance
		opts.SeamAllowance = &sa
		req.Options = opts
	}
	return req, nil
}

func (a *app) constructCmd() *cobra.Command {
	var f constructFlags
	cmd := &cobra.Command{
		Use:   "construct",
		Short: "Add seam allowances to a base pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.layout()
			if err != nil {
				return err
			}
			req, err := f.request(cmd, a.fs, l)
			if err != nil {
				return err
			}
			if err := required("in", req.In); err != nil {
				return err
			}
			if err := required("out", req.Out); err != nil {
				return err
			}
			r, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()

			rep, err := r.Construct(cmd.Context(), req)
			if rep != nil {
				if names := rep.Intersecting(); len(names) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "self-intersecting geometry: %s\n", strings.Join(names, ", "))
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", req.Out)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.in, "in", "", "base pattern JSON")
	cmd.Flags().StringVar(&f.options, "options", "", "construct options YAML")
	cmd.Flags().StringVar(&f.out, "out", "", "constructed pattern JSON to write")
	cmd.Flags().Float64Var(&f.seamAllowance, "seam-allowance", 0, "default seam allowance in mm (overrides the options file)")
	return cmd
}

func (a *app) packageCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Write SVG previews, proofs, summary and HTML report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.layout()
			if err != nil {
				return err
			}
			req := pipeline.PackageRequest{In: in, Out: out, Title: "Pattern report"}
			if l != nil {
				req.In = pick(req.In, l.Constructed())
				req.Out = pick(req.Out, l.Package())
				req.Title = l.Client + " pattern report"
			}
			if err := required("in", req.In); err != nil {
				return err
			}
			if err := required("out", req.Out); err != nil {
				return err
			}
			r, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()

			files, err := r.Package(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", len(files), req.Out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "constructed pattern JSON")
	cmd.Flags().StringVar(&out, "out", "", "output directory")
	return cmd
}

type exportFlags struct {
	in         string
	out        string
	options    string
	units      string
	splines    string
	flattenTol float64
	arcs       string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.units, "units", "mm", "output units: mm, cm, in or unitless")
	cmd.Flags().StringVar(&f.splines, "splines", "off", "write cubic curves as SPLINE entities: on or off")
	cmd.Flags().Float64Var(&f.flattenTol, "flatten-tol", 0.2, "chord tolerance for faceted curves and arcs")
	cmd.Flags().StringVar(&f.arcs, "arcs", config.ArcsSegment, "arc output: segment or bulge")
}

// exportOptions loads the options file, if any, and applies the flags the
// user set on top of it.
func (f *exportFlags) exportOptions(cmd *cobra.Command, fsys fsutil.FileSystem, path string) (*config.ExportOptions, error) {
	opts := &config.ExportOptions{}
	if path != "" {
		loaded, err := config.LoadExportOptions(fsys, path)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("units") {
		u := f.units
		opts.Units = &u
	}
	if flags.Changed("splines") {
		on, err := config.ParseSwitch(f.splines)
		if err != nil {
			return nil, fmt.Errorf("--splines: %w", err)
		}
		opts.Splines = &on
	}
	if flags.Changed("flatten-tol") {
		tol := f.flattenTol
		opts.FlattenTol = &tol
	}
	if flags.Changed("arcs") {
		arcs := f.arcs
		opts.Arcs = &arcs
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (a *app) exportCmd() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export-dxf",
		Short: "Export a constructed pattern to DXF (AC1018)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.layout()
			if err != nil {
				return err
			}
			req := pipeline.ExportRequest{In: f.in, Out: f.out}
			optionsPath := f.options
			if l != nil {
				req.In = pick(req.In, l.Constructed())
				req.Out = pick(req.Out, l.DXF())
				optionsPath = pick(optionsPath, existing(a.fs, l.ExportOptions()))
			}
			if err := required("in", req.In); err != nil {
				return err
			}
			if err := required("out", req.Out); err != nil {
				return err
			}
			if req.Options, err = f.exportOptions(cmd, a.fs, optionsPath); err != nil {
				return err
			}
			r, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()

			if err := r.ExportDXF(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", req.Out)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.in, "in", "", "constructed pattern JSON")
	cmd.Flags().StringVar(&f.out, "out", "", "DXF file to write")
	cmd.Flags().StringVar(&f.options, "options", "", "export options YAML (units, splines, flatten_tol, arcs, layer_map)")
	f.register(cmd)
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	var (
		in           string
		requireGrain bool
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a pattern for geometry and marking problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.layout()
			if err != nil {
				return err
			}
			if l != nil {
				in = pick(in, l.Constructed())
			}
			if err := required("in", in); err != nil {
				return err
			}
			r, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()

			opts := validate.DefaultOptions()
			opts.RequireGrain = requireGrain
			issues, err := r.Validate(cmd.Context(), pipeline.ValidateRequest{In: in, Options: opts})
			if err != nil && !errors.Is(err, pipeline.ErrInvalid) {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if issues == nil {
					issues = []validate.Issue{}
				}
				if encErr := enc.Encode(issues); encErr != nil {
					return encErr
				}
				return err
			}
			for _, is := range issues {
				fmt.Fprintln(w, is.String())
			}
			if len(issues) == 0 {
				fmt.Fprintln(w, "OK")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "pattern JSON")
	cmd.Flags().BoolVar(&requireGrain, "require-grain", false, "treat a missing grain line as an error")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print issues as JSON")
	return cmd
}
