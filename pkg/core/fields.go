package core

import "strings"

// LogicalType is the expected family of a field.
type LogicalType int

// Logical types.
const (
	LogicalText LogicalType = iota
	LogicalNumeric
)

// String returns the label used in field-type messages.
func (t LogicalType) String() string {
	if t == LogicalNumeric {
		return "Number"
	}
	return "String"
}

// Physical type names reported by sources. Adapters map their native column
// types onto these names.
const (
	TypeString       = "String"
	TypeInteger      = "Integer"
	TypeSmallInteger = "SmallInteger"
	TypeDouble       = "Double"
	TypeSingle       = "Single"
	TypeOID          = "OID"
	TypeGeometry     = "Geometry"
	TypeDate         = "Date"
	TypeBlob         = "Blob"
	TypeGUID         = "GUID"
)

var numericTypes = map[string]bool{
	"SmallInteger": true,
	"Integer":      true,
	"Single":       true,
	"Double":       true,
	"Float":        true,
	"DoubleFloat":  true,
	"SingleFloat":  true,
	"OID":          true,
}

// Lower-cased spellings some drivers report.
var numericTypesFolded = map[string]bool{
	"double":       true,
	"single":       true,
	"float":        true,
	"integer":      true,
	"smallinteger": true,
	"short":        true,
	"long":         true,
}

// IsNumericType reports whether a physical type name belongs to the numeric
// family. The check is an exact allow-list; unknown names are not numeric.
func IsNumericType(t string) bool {
	if t == "" {
		return false
	}
	return numericTypes[t] || numericTypesFolded[strings.ToLower(t)]
}

// IsTextType reports whether a physical type name is the text type.
func IsTextType(t string) bool {
	return t == TypeString
}

// SatisfiesType reports whether a physical type satisfies a logical type.
func SatisfiesType(physical string, expected LogicalType) bool {
	if expected == LogicalNumeric {
		return IsNumericType(physical)
	}
	return IsTextType(physical)
}

// Field is one entry of a layer's schema as reported by the source.
type Field struct {
	Name string
	Type string
}

// FieldRegistry maps upper-cased field names to physical type names.
type FieldRegistry map[string]string

// NewFieldRegistry builds a registry from introspected fields.
func NewFieldRegistry(fields []Field) FieldRegistry {
	reg := make(FieldRegistry, len(fields))
	for _, f := range fields {
		reg[strings.ToUpper(f.Name)] = f.Type
	}
	return reg
}

// Has reports whether the field exists, ignoring case.
func (r FieldRegistry) Has(name string) bool {
	_, ok := r[strings.ToUpper(name)]
	return ok
}

// Type returns the physical type of a field.
func (r FieldRegistry) Type(name string) (string, bool) {
	t, ok := r[strings.ToUpper(name)]
	return t, ok
}

// Present filters names down to those present in the registry, keeping order.
func (r FieldRegistry) Present(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if r.Has(n) {
			out = append(out, strings.ToUpper(n))
		}
	}
	return out
}
