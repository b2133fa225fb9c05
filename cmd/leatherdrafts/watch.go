package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/pipeline"
	"github.com/banshee-data/leather-drafts/internal/project"
	"github.com/banshee-data/leather-drafts/internal/recipe"
	"github.com/banshee-data/leather-drafts/internal/watch"
)

// planFlags drive a full draft, construct, package, export-dxf chain.
type planFlags struct {
	draft         draftFlags
	export        exportFlags
	options       string
	exportOptions string
	outDir        string
}

// plan lays the chain out under l, or under --out-dir without a project.
func (f *planFlags) plan(cmd *cobra.Command, fsys fsutil.FileSystem, l *project.Layout) (pipeline.Plan, error) {
	var plan pipeline.Plan
	if l == nil {
		l = &project.Layout{Dir: f.outDir, Client: "pattern"}
	}

	plan.Draft = f.draft.request(fsys, l)
	plan.Construct = pipeline.ConstructRequest{
		OptionsPath: pick(f.options, existing(fsys, l.Options())),
		Out:         l.Constructed(),
	}
	plan.Package = pipeline.PackageRequest{Out: l.Package(), Title: l.Client + " pattern report"}

	opts, err := f.export.exportOptions(cmd, fsys, pick(f.exportOptions, existing(fsys, l.ExportOptions())))
	if err != nil {
		return plan, err
	}
	plan.Export = pipeline.ExportRequest{Out: l.DXF(), Options: opts}
	plan.Link()
	return plan, nil
}

// watched lists the plan inputs plus the block its recipe names.
func watched(fsys fsutil.FileSystem, plan pipeline.Plan) []string {
	paths := plan.Inputs()
	if plan.Draft.Block == "" && plan.Draft.Recipe != "" {
		if b := recipe.LoadRecipe(fsys, plan.Draft.Recipe).BlockPath(); b != "" {
			paths = append(paths, b)
		}
	}
	return paths
}

func (a *app) watchCmd() *cobra.Command {
	var (
		f        planFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rerun the full pipeline whenever an input changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.layout()
			if err != nil {
				return err
			}
			plan, err := f.plan(cmd, a.fs, l)
			if err != nil {
				return err
			}
			r, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()

			paths := watched(a.fs, plan)
			w, err := watch.New(paths)
			if err != nil {
				return err
			}
			defer w.Close()
			w.Debounce = debounce

			log := monitoring.L()
			rerun := func(ctx context.Context, _ []string) error {
				if err := r.Run(ctx, plan); err != nil {
					return err
				}
				log.Info("pipeline complete", zap.String("dxf", plan.Export.Out), zap.String("package", plan.Package.Out))
				return nil
			}
			if err := rerun(cmd.Context(), nil); err != nil {
				log.Error("initial run failed", zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "watching %d file(s), Ctrl-C to stop\n", len(paths))
			return w.Run(cmd.Context(), rerun)
		},
	}
	f.draft.register(cmd)
	f.export.register(cmd)
	cmd.Flags().StringVar(&f.options, "options", "", "construct options YAML")
	cmd.Flags().StringVar(&f.exportOptions, "export-options", "", "export options YAML")
	cmd.Flags().StringVar(&f.outDir, "out-dir", ".", "output directory when no --project is set")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a rerun")
	return cmd
}
