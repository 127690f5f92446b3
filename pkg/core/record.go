package core

import "strings"

// Record is one row read from a cursor: an object id plus values keyed by
// upper-cased field name. Records are ephemeral and must not be retained.
type Record struct {
	OID    int64
	Values map[string]Scalar
}

// NewRecord builds a record, upper-casing field names.
func NewRecord(oid int64, values map[string]Scalar) Record {
	r := Record{OID: oid, Values: make(map[string]Scalar, len(values))}
	for k, v := range values {
		r.Values[strings.ToUpper(k)] = v
	}
	return r
}

// Get returns the value of a field, or Null when the field was not read.
func (r Record) Get(field string) Scalar {
	if v, ok := r.Values[strings.ToUpper(field)]; ok {
		return v
	}
	return Null()
}
