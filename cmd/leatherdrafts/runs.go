package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/banshee-data/leather-drafts/internal/ledger"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Faint(true)

	statusStyles = map[ledger.Status]lipgloss.Style{
		ledger.StatusSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		ledger.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		ledger.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
)

func (a *app) runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
	}
	cmd.AddCommand(a.runsListCmd(), a.runsShowCmd(), a.runsPruneCmd())
	return cmd
}

func (a *app) runsListCmd() *cobra.Command {
	var (
		f      ledger.Filter
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openLedger()
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []ledger.Run{}
				}
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), runsTable(runs))
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Stage, "stage", "", "only runs of this stage")
	cmd.Flags().IntVar(&f.Limit, "limit", 20, "maximum runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}

func runsTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.Stage,
			renderStatus(r.Status),
			r.StartedAt.Local().Format(time.DateTime),
			formatDuration(r.Duration()),
			r.Output,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STAGE", "STATUS", "STARTED", "DURATION", "OUTPUT").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func (a *app) runsShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run; a unique id prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openLedger()
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := db.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), run)
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	return cmd
}

func printRun(w io.Writer, r *ledger.Run) {
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", label+":")), value)
	}
	field("Run", r.ID)
	field("Stage", r.Stage)
	field("Status", renderStatus(r.Status))
	field("Started", r.StartedAt.Local().Format(time.RFC3339))
	if r.FinishedAt != nil {
		field("Finished", r.FinishedAt.Local().Format(time.RFC3339))
		field("Duration", formatDuration(r.Duration()))
	}
	field("Inputs", strings.Join(r.Inputs, ", "))
	if len(r.Params) > 0 {
		params, _ := json.Marshal(r.Params)
		field("Params", string(params))
	}
	field("Error", r.Error)
	if len(r.Artifacts) > 0 {
		fmt.Fprintln(w, labelStyle.Render("Artifacts:"))
		for _, art := range r.Artifacts {
			fmt.Fprintf(w, "  %s  %s\n", shortHash(art.SHA256), art.Path)
		}
	}
}

func (a *app) runsPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative, got %d", keep)
			}
			db, err := a.openLedger()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d run(s)\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "number of newest runs to keep")
	return cmd
}

func renderStatus(s ledger.Status) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortHash(sum string) string {
	if sum == "" {
		return strings.Repeat("-", 12)
	}
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
