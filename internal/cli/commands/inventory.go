package commands

import (
	"github.com/ApiratRepublic/RePublic/internal/cli/output"
	"github.com/ApiratRepublic/RePublic/internal/report"
	"github.com/ApiratRepublic/RePublic/pkg/core"
	"github.com/spf13/cobra"
)

// NewInventoryCommand creates the inventory command.
func NewInventoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Count layers of each kind per dataset",
		Long: `Discover datasets under root_dir and count the layers matching each layer
kind, without validating records. The counts are written to inventory_file.`,
		Example: `  gdbcheck inventory --root-dir /data/zones
  gdbcheck inventory -o json`,
		Args: cobra.NoArgs,
		RunE: runInventory,
	}
}

func runInventory(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return err
	}

	rows, err := cc.Engine.Inventory(cmd.Context())
	if err != nil {
		return err
	}
	out := buildInventoryOutput(rows, cc.Cfg.InventoryFile)

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Inventory")
	header := []string{"Dataset"}
	for _, k := range core.LayerKinds() {
		header = append(header, k.String())
	}
	tableRows := make([][]any, 0, len(rows))
	for _, row := range out.Datasets {
		line := []any{row.Dataset}
		for _, k := range core.LayerKinds() {
			line = append(line, row.Counts[k.String()])
		}
		tableRows = append(tableRows, line)
	}
	r.Table(header, tableRows)
	for _, row := range out.Datasets {
		if row.Error != "" {
			r.Warning(row.Dataset + ": " + row.Error)
		}
	}
	if out.File != "" {
		r.Muted("Inventory: " + out.File)
	}
	return nil
}

func buildInventoryOutput(rows []report.Inventory, file string) output.InventoryOutput {
	out := output.InventoryOutput{Datasets: make([]output.InventoryRow, 0, len(rows)), File: file}
	for _, row := range rows {
		info := output.InventoryRow{Dataset: row.Dataset, Counts: make(map[string]int)}
		for _, k := range core.LayerKinds() {
			info.Counts[k.String()] = row.Counts[k]
		}
		if row.Err != nil {
			info.Error = row.Err.Error()
		}
		out.Datasets = append(out.Datasets, info)
	}
	return out
}
