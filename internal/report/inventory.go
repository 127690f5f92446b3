package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// InventorySheet is the worksheet name of the inventory workbook.
const InventorySheet = "Inventory"

// Inventory is the per-kind layer count of one dataset.
type Inventory struct {
	Dataset string
	Counts  map[core.LayerKind]int
	// Err is set when the dataset could not be enumerated; counts stay zero.
	Err error
}

// CountKinds counts the layers matching each kind's pattern. Every pattern
// is tested, so a name matching two patterns counts for both.
func CountKinds(layers []string) map[core.LayerKind]int {
	out := make(map[core.LayerKind]int, len(core.LayerKinds()))
	for _, k := range core.LayerKinds() {
		out[k] = 0
		for _, l := range layers {
			if k.Matches(l) {
				out[k]++
			}
		}
	}
	return out
}

// InventoryHeader returns the inventory columns: Dataset then one per kind.
func InventoryHeader() []string {
	h := []string{"Dataset"}
	for _, k := range core.LayerKinds() {
		h = append(h, k.String())
	}
	return h
}

// WriteInventory saves the inventory workbook to path.
func WriteInventory(path string, rows []Inventory) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create inventory directory: %w", err)
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		row := []any{ShortPath(r.Dataset)}
		for _, k := range core.LayerKinds() {
			row = append(row, r.Counts[k])
		}
		out[i] = row
	}
	return writeWorkbook(path, sheet{name: InventorySheet, header: InventoryHeader(), rows: out})
}
