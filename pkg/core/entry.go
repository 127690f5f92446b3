package core

import (
	"strconv"
	"strings"
	"time"
)

// NoObjectID marks entries that are not tied to one record, such as schema checks.
const NoObjectID int64 = -1

// ObjectIDNotApplicable is rendered for entries spanning many records without a list.
const ObjectIDNotApplicable = "N/A"

// TimestampLayout is the layout used to render entry timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// EntryColumns is the stable column order of a rendered entry.
var EntryColumns = []string{
	"Timestamp", "Dataset", "Layer", "Check_Type", "Object_ID(s)", "Field_Name", "Invalid_Value", "Message",
}

// ErrorEntry is one reported defect. Entries are immutable once appended to a ledger.
type ErrorEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Dataset      string    `json:"dataset"`
	Layer        string    `json:"layer"`
	Check        CheckKind `json:"check_kind"`
	ObjectIDs    string    `json:"object_ids"`
	Field        string    `json:"field"`
	InvalidValue string    `json:"invalid_value"`
	Message      string    `json:"message"`
}

// Row renders the entry in EntryColumns order. The dataset column is passed
// through display so callers can shorten paths.
func (e ErrorEntry) Row(display func(string) string) []string {
	ds := e.Dataset
	if display != nil {
		ds = display(ds)
	}
	return []string{
		e.Timestamp.Format(TimestampLayout),
		ds,
		e.Layer,
		e.Check.String(),
		e.ObjectIDs,
		e.Field,
		e.InvalidValue,
		e.Message,
	}
}

// FormatObjectID renders a single object id.
func FormatObjectID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// FormatObjectIDs renders a list of ids as "[1, 5, 9]".
func FormatObjectIDs(ids []int64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte(']')
	return b.String()
}
