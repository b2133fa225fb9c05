package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/leather-drafts/internal/fsutil"
	"github.com/banshee-data/leather-drafts/internal/ledger"
	"github.com/banshee-data/leather-drafts/internal/monitoring"
	"github.com/banshee-data/leather-drafts/internal/pipeline"
	"github.com/banshee-data/leather-drafts/internal/project"
)

var errNoLedger = errors.New("no ledger: set --ledger or --project")

// app holds the global flags shared by every command.
type app struct {
	fs fsutil.FileSystem

	verbose    bool
	logJSON    bool
	ledgerPath string
	projectDir string

	flush func()
}

func newApp(fsys fsutil.FileSystem) *app {
	return &app{fs: fsys}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "leatherdrafts",
		Short:         "Leather garment pattern drafting pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flush, err := monitoring.Init(monitoring.Options{Verbose: a.verbose, JSON: a.logJSON})
			if err != nil {
				return err
			}
			a.flush = flush
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.flush != nil {
				a.flush()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&a.logJSON, "log-json", false, "log as JSON instead of console text")
	pf.StringVar(&a.ledgerPath, "ledger", "", "run ledger database (default <project>/tmp/ledger.db with --project)")
	pf.StringVarP(&a.projectDir, "project", "p", "", "project directory; supplies default inputs and outputs")

	cmd.AddCommand(
		a.draftCmd(),
		a.constructCmd(),
		a.packageCmd(),
		a.exportCmd(),
		a.validateCmd(),
		a.initCmd(),
		a.runsCmd(),
		a.watchCmd(),
		versionCmd(),
	)
	return cmd
}

// execute runs the root command and reports the error the way main does.
func (a *app) execute(ctx context.Context, args []string) error {
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

// layout returns the --project layout, or nil when no project is set.
func (a *app) layout() (*project.Layout, error) {
	if a.projectDir == "" {
		return nil, nil
	}
	return project.Open(a.fs, a.projectDir)
}

func (a *app) resolveLedger(l *project.Layout) string {
	if a.ledgerPath != "" {
		return a.ledgerPath
	}
	if l != nil {
		return l.Ledger()
	}
	return ""
}

// openLedger opens the configured ledger. It returns errNoLedger when
// neither --ledger nor --project is set.
func (a *app) openLedger() (*ledger.DB, error) {
	l, err := a.layout()
	if err != nil {
		return nil, err
	}
	path := a.resolveLedger(l)
	if path == "" {
		return nil, errNoLedger
	}
	return ledger.Open(path)
}

// runner builds a stage runner recording into the ledger when one is
// configured. A ledger that fails to open is logged and skipped.
func (a *app) runner() (*pipeline.Runner, func(), error) {
	l, err := a.layout()
	if err != nil {
		return nil, nil, err
	}
	path := a.resolveLedger(l)
	if path == "" {
		return pipeline.New(a.fs, nil), func() {}, nil
	}
	db, err := ledger.Open(path)
	if err != nil {
		monitoring.L().Warn("run ledger disabled", zap.String("path", path), zap.Error(err))
		return pipeline.New(a.fs, nil), func() {}, nil
	}
	return pipeline.New(a.fs, db), func() { _ = db.Close() }, nil
}

// pick returns flag when set, otherwise fallback.
func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

// existing returns path when it exists on fsys.
func existing(fsys fsutil.FileSystem, path string) string {
	if path != "" && fsys.Exists(path) {
		return path
	}
	return ""
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required (or set --project)", name)
	}
	return nil
}
