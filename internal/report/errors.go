package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// ErrorsSheet is the worksheet name of the xlsx error report.
const ErrorsSheet = "Errors"

// DayLayout names the dated report subdirectory.
const DayLayout = "2006-01-02"

// ErrorReportPath returns <dir>/<day>/<basename>_error_report.<ext>.
func ErrorReportPath(dir string, day time.Time, ref string, f Format) string {
	return filepath.Join(dir, day.Format(DayLayout), Basename(ref)+"_error_report"+f.Ext())
}

// WriteErrorReport writes the dataset's entries to path, creating parent
// directories. Dataset references are rendered as short paths.
func WriteErrorReport(path string, f Format, entries []core.ErrorEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	var err error
	switch f {
	case FormatXLSX:
		err = writeErrorsXLSX(path, entries)
	case FormatCSV:
		err = writeErrorsCSV(path, entries)
	case FormatJSON:
		err = writeErrorsJSON(path, entries)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
	if err != nil {
		return fmt.Errorf("write error report %s: %w", path, err)
	}
	return nil
}

func writeErrorsXLSX(path string, entries []core.ErrorEntry) error {
	rows := make([][]any, len(entries))
	for i, e := range entries {
		cells := e.Row(ShortPath)
		row := make([]any, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		rows[i] = row
	}
	return writeWorkbook(path, sheet{name: ErrorsSheet, header: core.EntryColumns, rows: rows})
}

func writeErrorsCSV(path string, entries []core.ErrorEntry) (err error) {
	file, err := os.Create(path) //nolint:gosec // path is built from configured report_dir
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	// UTF-8 byte order mark so spreadsheet tools read Thai text correctly.
	if _, err := file.WriteString("\ufeff"); err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.Write(core.EntryColumns); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write(e.Row(ShortPath)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// jsonEntry is one entry of the json report, keyed like the sheet columns.
type jsonEntry struct {
	Timestamp    string `json:"Timestamp"`
	Dataset      string `json:"Dataset"`
	Layer        string `json:"Layer"`
	CheckType    string `json:"Check_Type"`
	ObjectIDs    string `json:"Object_ID(s)"`
	FieldName    string `json:"Field_Name"`
	InvalidValue string `json:"Invalid_Value"`
	Message      string `json:"Message"`
}

func writeErrorsJSON(path string, entries []core.ErrorEntry) (err error) {
	out := make([]jsonEntry, len(entries))
	for i, e := range entries {
		r := e.Row(ShortPath)
		out[i] = jsonEntry{
			Timestamp: r[0], Dataset: r[1], Layer: r[2], CheckType: r[3],
			ObjectIDs: r[4], FieldName: r[5], InvalidValue: r[6], Message: r[7],
		}
	}

	file, err := os.Create(path) //nolint:gosec // path is built from configured report_dir
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
