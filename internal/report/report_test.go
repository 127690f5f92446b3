package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ApiratRepublic/RePublic/internal/audit"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

const ref = "/data/49_มุกดาหาร/GDB_49_2/zone.gpkg"

func TestNaming(t *testing.T) {
	tests := []struct {
		ref   string
		short string
		base  string
	}{
		{ref, "49_มุกดาหาร/GDB_49_2", "49_มุกดาหาร_GDB_49_2"},
		{"/data/a b/c:d/x.gpkg", "a b/c:d", "a_b_c_d"},
		{"rel/one/two/x.duckdb", "one/two", "one_two"},
		{"x.gpkg", "x.gpkg", "x.gpkg"},
		{"gis/public", "gis/public", "gis_public"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.short, ShortPath(tt.ref))
			assert.Equal(t, tt.base, Basename(tt.ref))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"XLSX", FormatXLSX, false},
		{" csv ", FormatCSV, false},
		{"json", FormatJSON, false},
		{"ods", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func entries() []core.ErrorEntry {
	l := audit.NewLedger(ref, func() time.Time { return fixedTime })
	seg := l.Segment("ROAD_01")
	seg.AddRecord(core.CheckDataRequired, 7, "STREET_NAME", "", "STREET_NAME ต้องไม่ว่าง")
	seg.Add(core.CheckDuplicatedPolygon, core.FormatObjectIDs([]int64{1, 2}), "", "", "duplicated polygon")
	l.Merge(seg)
	return l.Entries()
}

func TestErrorReportPath(t *testing.T) {
	got := ErrorReportPath("/reports", fixedTime, ref, FormatCSV)
	assert.Equal(t, filepath.Join("/reports", "2025-03-14", "49_มุกดาหาร_GDB_49_2_error_report.csv"), got)
}

func TestWriteErrorReportXLSX(t *testing.T) {
	path := ErrorReportPath(t.TempDir(), fixedTime, ref, FormatXLSX)
	require.NoError(t, WriteErrorReport(path, FormatXLSX, entries()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{ErrorsSheet}, f.GetSheetList())
	rows, err := f.GetRows(ErrorsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, core.EntryColumns, rows[0])
	assert.Equal(t, []string{
		"2025-03-14 09:30:00", "49_มุกดาหาร/GDB_49_2", "ROAD_01", "Data Required",
		"7", "STREET_NAME", "", "STREET_NAME ต้องไม่ว่าง",
	}, rows[1][:8])
	assert.Equal(t, "[1, 2]", rows[2][4])
}

func TestWriteErrorReportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	require.NoError(t, WriteErrorReport(path, FormatCSV, entries()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimPrefix(string(raw), "\ufeff")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(core.EntryColumns, ","), lines[0])
	assert.Contains(t, lines[2], `"[1, 2]"`)
}

func TestWriteErrorReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "r.json")
	require.NoError(t, WriteErrorReport(path, FormatJSON, entries()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]string
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Duplicated Polygon", got[1]["Check_Type"])
	assert.Equal(t, "49_มุกดาหาร/GDB_49_2", got[0]["Dataset"])
	assert.Equal(t, "7", got[0]["Object_ID(s)"])
}

func TestWriteErrorReportUnknownFormat(t *testing.T) {
	err := WriteErrorReport(filepath.Join(t.TempDir(), "r.ods"), Format("ods"), nil)
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	l := audit.NewLedger(ref, func() time.Time { return fixedTime })
	road := l.Segment("ROAD_01")
	road.AddRecord(core.CheckDataRequired, 1, "STREET_NAME", "", "m")
	road.AddRecord(core.CheckDataRequired, 2, "STREET_NAME", "", "m")
	road.AddRecord(core.CheckDataFormat, 2, "ROAD_RN", "x", "m")
	block := l.Segment("BLOCK_FIX_01")
	block.AddRecord(core.CheckDuplicateValue, 3, "BLOCK_FIX_RN", "4", "m")
	l.Merge(road, block)

	s := NewSummary()
	s.Add(fixedTime, &audit.DatasetResult{
		Dataset: ref,
		Ledger:  l,
		Layers: []audit.LayerResult{
			{Layer: "ROAD_01", Records: 12},
			{Layer: "BLOCK_FIX_01", CountErr: errors.New("boom")},
		},
	})
	s.Add(fixedTime, nil)

	assert.Equal(t, []ErrorSum{
		{Dataset: ref, Layer: "BLOCK_FIX_01", Check: core.CheckDuplicateValue, Count: 1},
		{Dataset: ref, Layer: "ROAD_01", Check: core.CheckDataFormat, Count: 1},
		{Dataset: ref, Layer: "ROAD_01", Check: core.CheckDataRequired, Count: 2},
	}, s.Errors())

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, s.Write(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{AllDataSheet, ErrorSumSheet}, f.GetSheetList())

	all, err := f.GetRows(AllDataSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Timestamp", "Dataset", "Layer", "Count"},
		{"2025-03-14 09:30:00", "49_มุกดาหาร/GDB_49_2", "BLOCK_FIX_01", "Error"},
		{"2025-03-14 09:30:00", "49_มุกดาหาร/GDB_49_2", "ROAD_01", "12"},
	}, all)

	sums, err := f.GetRows(ErrorSumSheet)
	require.NoError(t, err)
	require.Len(t, sums, 4)
	assert.Equal(t, []string{"49_มุกดาหาร/GDB_49_2", "ROAD_01", "Data Required", "2"}, sums[3])
}

func TestEmptySummaryStillWritesSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, NewSummary().Write(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(ErrorSumSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCountKinds(t *testing.T) {
	got := CountKinds([]string{
		"PARCEL_01_02", "parcel_01_03", "PARCEL_01_NS3K_02", "ROAD_01", "ROAD_1",
		"BLOCK_FIX_01", "BLOCK_BLUE_02", "PARCEL_REL_01", "NS3K_REL_01", "notes",
	})
	assert.Equal(t, 2, got[core.LayerParcel])
	assert.Equal(t, 1, got[core.LayerParcelNS3K])
	assert.Equal(t, 1, got[core.LayerRoad])
	assert.Equal(t, 1, got[core.LayerBlockFix])
	assert.Equal(t, 0, got[core.LayerBlockPrice])
	assert.Equal(t, 1, got[core.LayerBlockBlue])
	assert.Equal(t, 1, got[core.LayerParcelRel])
	assert.Equal(t, 1, got[core.LayerNS3KRel])
	assert.Len(t, got, len(core.LayerKinds()))
}

func TestWriteInventory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	require.NoError(t, WriteInventory(path, []Inventory{
		{Dataset: ref, Counts: CountKinds([]string{"ROAD_01", "ROAD_02"})},
		{Dataset: "/x/y/z/broken.gpkg", Err: errors.New("corrupt")},
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(InventorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, InventoryHeader(), rows[0])
	assert.Equal(t, []string{"49_มุกดาหาร/GDB_49_2", "0", "0", "2", "0", "0", "0", "0", "0"}, rows[1])
	assert.Equal(t, "y/z", rows[2][0])
	assert.Equal(t, "0", rows[2][3])
}
