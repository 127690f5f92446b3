package commands

import (
	"errors"
	"fmt"

	"github.com/ApiratRepublic/RePublic/internal/cli/output"
	"github.com/ApiratRepublic/RePublic/internal/engine"
	"github.com/spf13/cobra"
)

// ErrEntriesFound is returned by validate --fail-on-errors when any dataset
// has ledger entries or could not be validated.
var ErrEntriesFound = errors.New("validation errors found")

// Dataset statuses shown by validate.
const (
	statusValid   = "valid"
	statusInvalid = "invalid"
	statusFailed  = "failed"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var failOnErrors bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every dataset under the root directory",
		Long: `Discover datasets under root_dir and validate each classified layer.

Datasets with errors get a dated error report in report_dir. A run summary
workbook lists the record count of every layer and the error count per check.`,
		Example: `  # Validate the current directory
  gdbcheck validate

  # Validate a survey tree with CSV reports
  gdbcheck validate --root-dir /data/zones --report-format csv

  # Fail the process when any error is found
  gdbcheck validate --fail-on-errors -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, failOnErrors)
		},
	}

	cmd.Flags().BoolVar(&failOnErrors, "fail-on-errors", false, "Exit non-zero when any dataset has errors")
	return cmd
}

func runValidate(cmd *cobra.Command, failOnErrors bool) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return err
	}

	res, runErr := cc.Engine.Validate(cmd.Context())
	if res == nil {
		return runErr
	}
	out := buildValidateOutput(res)

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderValidateMarkdown(r, out)
	default:
		renderValidateText(r, out)
	}

	if runErr != nil {
		return runErr
	}
	if failOnErrors && (out.Summary.Entries > 0 || out.Summary.Failed > 0) {
		return ErrEntriesFound
	}
	return nil
}

func buildValidateOutput(res *engine.RunResult) output.ValidateOutput {
	out := output.ValidateOutput{
		RunID:       res.RunID,
		Datasets:    make([]output.DatasetInfo, 0, len(res.Datasets)),
		SummaryFile: res.SummaryPath,
	}
	for _, d := range res.Datasets {
		info := output.DatasetInfo{
			Dataset: d.Dataset,
			Status:  statusValid,
			Layers:  d.Layers(),
			Entries: d.Entries(),
			Report:  d.ReportPath,
		}
		switch {
		case d.Err != nil:
			info.Status = statusFailed
			info.Error = d.Err.Error()
		case info.Entries > 0:
			info.Status = statusInvalid
		}
		out.Datasets = append(out.Datasets, info)
	}
	for _, p := range res.Discovery {
		out.Problems = append(out.Problems, output.Problem{Path: p.Path, Message: p.Message})
	}
	t := res.Totals()
	out.Summary = output.ValidateSummary{
		Datasets: t.Datasets,
		Failed:   res.Failed(),
		Layers:   t.Layers,
		Entries:  t.Entries,
	}
	return out
}

func renderValidateText(r *output.Renderer, out output.ValidateOutput) {
	r.Header(1, "Validation")
	if len(out.Datasets) == 0 {
		r.Muted("No datasets found.")
	}
	for _, d := range out.Datasets {
		switch d.Status {
		case statusValid:
			r.StatusLine(d.Dataset, "success", fmt.Sprintf("%d layers", d.Layers))
		case statusInvalid:
			r.StatusLine(d.Dataset, "warning", fmt.Sprintf("%d layers, %d errors -> %s", d.Layers, d.Entries, d.Report))
		default:
			r.StatusLine(d.Dataset, "failed", d.Error)
		}
	}
	for _, p := range out.Problems {
		r.Warning(fmt.Sprintf("%s: %s", p.Path, p.Message))
	}
	r.Println()
	s := out.Summary
	msg := fmt.Sprintf("%d datasets, %d layers, %d errors, %d failed", s.Datasets, s.Layers, s.Entries, s.Failed)
	if s.Entries == 0 && s.Failed == 0 {
		r.Success(msg)
	} else {
		r.Println(msg)
	}
	if out.SummaryFile != "" {
		r.Muted("Summary: " + out.SummaryFile)
	}
}

func renderValidateMarkdown(r *output.Renderer, out output.ValidateOutput) {
	r.Println(output.FormatHeader(1, "Validation"))
	rows := make([][]any, 0, len(out.Datasets))
	for _, d := range out.Datasets {
		note := d.Report
		if d.Error != "" {
			note = d.Error
		}
		rows = append(rows, []any{d.Dataset, d.Status, d.Layers, d.Entries, note})
	}
	r.Table([]string{"Dataset", "Status", "Layers", "Errors", "Report"}, rows)
	if len(out.Problems) > 0 {
		r.Println()
		r.Println(output.FormatHeader(2, "Problems"))
		for _, p := range out.Problems {
			r.Printf("- %s: %s\n", p.Path, p.Message)
		}
	}
	r.Println()
	s := out.Summary
	r.Println(output.FormatKeyValue("Datasets", fmt.Sprint(s.Datasets)))
	r.Println(output.FormatKeyValue("Layers", fmt.Sprint(s.Layers)))
	r.Println(output.FormatKeyValue("Errors", fmt.Sprint(s.Entries)))
	r.Println(output.FormatKeyValue("Failed", fmt.Sprint(s.Failed)))
	if out.SummaryFile != "" {
		r.Println(output.FormatKeyValue("Summary", out.SummaryFile))
	}
}
