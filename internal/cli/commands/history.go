package commands

import (
	"fmt"

	"github.com/ApiratRepublic/RePublic/internal/cli/output"
	"github.com/ApiratRepublic/RePublic/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded validation runs",
		Long: `List recent validation runs from the state database, or show the datasets
and per-check error counts of one run.`,
		Example: `  gdbcheck history
  gdbcheck history --limit 5 -o json
  gdbcheck history 3f6c9a1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cc.Engine.Store()
			if store == nil {
				return fmt.Errorf("run history is disabled (state_path is empty)")
			}
			if len(args) == 1 {
				return showRun(cc.Renderer, store, args[0])
			}
			return listRuns(cc.Renderer, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func runInfo(run *state.Run) output.RunInfo {
	info := output.RunInfo{
		ID:        run.ID,
		Status:    string(run.Status),
		RootDir:   run.RootDir,
		StartedAt: formatTime(run.StartedAt),
		Datasets:  run.Datasets,
		Layers:    run.Layers,
		Entries:   run.Entries,
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		info.CompletedAt = formatTime(*run.CompletedAt)
	}
	return info
}

func listRuns(r *output.Renderer, store state.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	out := output.HistoryOutput{Runs: make([]output.RunInfo, 0, len(runs))}
	for _, run := range runs {
		out.Runs = append(out.Runs, runInfo(run))
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Header(1, "Runs")
	if len(out.Runs) == 0 {
		r.Muted("No runs recorded.")
		return nil
	}
	rows := make([][]any, 0, len(out.Runs))
	for _, run := range out.Runs {
		rows = append(rows, []any{run.ID, run.Status, run.StartedAt, run.Datasets, run.Layers, run.Entries})
	}
	r.Table([]string{"ID", "Status", "Started", "Datasets", "Layers", "Errors"}, rows)
	return nil
}

func showRun(r *output.Renderer, store state.Store, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", id, err)
	}
	datasets, err := store.ListDatasetRuns(id)
	if err != nil {
		return fmt.Errorf("failed to load datasets of run %s: %w", id, err)
	}
	counts, err := store.GetCheckCounts(id)
	if err != nil {
		return fmt.Errorf("failed to load check counts of run %s: %w", id, err)
	}

	out := output.RunDetailOutput{Run: runInfo(run)}
	for _, d := range datasets {
		out.Datasets = append(out.Datasets, output.DatasetInfo{
			Dataset: d.Dataset,
			Status:  string(d.Status),
			Layers:  d.Layers,
			Entries: d.Entries,
			Report:  d.ReportPath,
			Error:   d.Error,
		})
	}
	for _, c := range counts {
		out.Checks = append(out.Checks, output.CheckInfo{Dataset: c.Dataset, Layer: c.Layer, Check: c.Check, Count: c.Count})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Header(1, "Run "+run.ID)
	r.Println(output.FormatKeyValue("Status", out.Run.Status))
	r.Println(output.FormatKeyValue("Root", out.Run.RootDir))
	r.Println(output.FormatKeyValue("Started", out.Run.StartedAt))
	if out.Run.CompletedAt != "" {
		r.Println(output.FormatKeyValue("Completed", out.Run.CompletedAt))
	}
	if out.Run.Error != "" {
		r.Println(output.FormatKeyValue("Error", out.Run.Error))
	}
	r.Println()
	r.Header(2, "Datasets")
	rows := make([][]any, 0, len(out.Datasets))
	for _, d := range out.Datasets {
		rows = append(rows, []any{d.Dataset, d.Status, d.Layers, d.Entries, d.Report})
	}
	r.Table([]string{"Dataset", "Status", "Layers", "Errors", "Report"}, rows)
	if len(out.Checks) > 0 {
		r.Println()
		r.Header(2, "Errors by check")
		rows = rows[:0]
		for _, c := range out.Checks {
			rows = append(rows, []any{c.Dataset, c.Layer, c.Check, c.Count})
		}
		r.Table([]string{"Dataset", "Layer", "Check", "Count"}, rows)
	}
	return nil
}
