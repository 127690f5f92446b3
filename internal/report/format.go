package report

import (
	"fmt"
	"strings"
)

// Format is the file format of the per-dataset error report.
type Format string

// Supported report formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatXLSX, FormatCSV, FormatJSON} }

// ParseFormat resolves a format name case-insensitively. An empty name is xlsx.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatXLSX, nil
	}
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q (valid: xlsx, csv, json)", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }
