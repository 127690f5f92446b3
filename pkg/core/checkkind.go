package core

import "strings"

// =============================================================================
// CheckKind
// =============================================================================

// CheckKind classifies an error entry. The set is fixed and exhaustive.
type CheckKind string

// Check kinds, in the order they are documented in reports.
const (
	CheckField             CheckKind = "Field Check"
	CheckFieldType         CheckKind = "Field Type"
	CheckDataFormat        CheckKind = "Data Format"
	CheckDataSpecified     CheckKind = "Data Specified"
	CheckDataRequired      CheckKind = "Data Required"
	CheckConditional       CheckKind = "Conditional Rule"
	CheckDuplicateValue    CheckKind = "Duplicate Value"
	CheckDuplicateUTM      CheckKind = "Duplicate UTM"
	CheckOneToOne          CheckKind = "OneToOne"
	CheckCursor            CheckKind = "Cursor Error"
	CheckGeometry          CheckKind = "Geometry Error"
	CheckDuplicatedPolygon CheckKind = "Duplicated Polygon"
	CheckValidator         CheckKind = "Validator Error"
)

// AllCheckKinds lists every check kind.
func AllCheckKinds() []CheckKind {
	return []CheckKind{
		CheckField, CheckFieldType, CheckDataFormat, CheckDataSpecified,
		CheckDataRequired, CheckConditional, CheckDuplicateValue, CheckDuplicateUTM,
		CheckOneToOne, CheckCursor, CheckGeometry, CheckDuplicatedPolygon, CheckValidator,
	}
}

// String returns the label written to reports.
func (c CheckKind) String() string { return string(c) }

// ParseCheckKind resolves a label case-insensitively.
// Returns the check kind and true if valid.
func ParseCheckKind(s string) (CheckKind, bool) {
	for _, c := range AllCheckKinds() {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// IsInfrastructure reports whether the check kind describes a failure to read
// the dataset rather than a defect in its data.
func (c CheckKind) IsInfrastructure() bool {
	switch c {
	case CheckCursor, CheckGeometry, CheckValidator:
		return true
	default:
		return false
	}
}
