package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ScalarKind identifies which variant a Scalar holds.
type ScalarKind uint8

// Scalar variants.
const (
	KindNull ScalarKind = iota
	KindNumber
	KindText
)

// Scalar is a dynamically typed field value read from a record cursor.
// The zero value is Null.
type Scalar struct {
	kind ScalarKind
	num  float64
	text string
}

// Null returns the null scalar.
func Null() Scalar { return Scalar{} }

// Number wraps a numeric value.
func Number(f float64) Scalar { return Scalar{kind: KindNumber, num: f} }

// Text wraps a string value.
func Text(s string) Scalar { return Scalar{kind: KindText, text: s} }

// FromAny converts a value scanned by database/sql into a Scalar.
func FromAny(v any) Scalar {
	switch x := v.(type) {
	case nil:
		return Null()
	case Scalar:
		return x
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case int:
		return Number(float64(x))
	case int8:
		return Number(float64(x))
	case int16:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case float32:
		return Number(float64(x))
	case float64:
		return Number(x)
	case bool:
		if x {
			return Number(1)
		}
		return Number(0)
	case time.Time:
		return Text(x.Format(time.DateTime))
	case interface{ Float64() float64 }:
		// driver decimal types
		return Number(x.Float64())
	default:
		return Text(fmt.Sprint(x))
	}
}

// Kind reports the variant.
func (s Scalar) Kind() ScalarKind { return s.kind }

// IsNull reports whether s is null.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// IsNumber reports whether s holds a number.
func (s Scalar) IsNumber() bool { return s.kind == KindNumber }

// IsText reports whether s holds a string.
func (s Scalar) IsText() bool { return s.kind == KindText }

// Str returns the text payload and whether s is Text.
func (s Scalar) Str() (string, bool) {
	return s.text, s.kind == KindText
}

// AsNumber applies the numeric coercion policy: a value qualifies if it is
// already numeric, or a non-empty string of ASCII digits. A digit string too
// long for float64 still qualifies and yields +Inf.
func (s Scalar) AsNumber() (float64, bool) {
	switch s.kind {
	case KindNumber:
		return s.num, true
	case KindText:
		if !isDigits(s.text) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s.text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Integral returns the integer part of a value that passed AsNumber as a
// float64, for values beyond the int64 range. ok is false for non-numeric,
// infinite or NaN values.
func (s Scalar) Integral() (float64, bool) {
	f, ok := s.AsNumber()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Trunc(f), true
}

// AsDigitString returns the text when s is a non-empty string of ASCII digits.
func (s Scalar) AsDigitString() (string, bool) {
	if s.kind == KindText && isDigits(s.text) {
		return s.text, true
	}
	return "", false
}

// Truncate returns the integer part of a value that passed AsNumber.
// ok is false when the value is not numeric or cannot be represented as an int64.
func (s Scalar) Truncate() (int64, bool) {
	f, ok := s.AsNumber()
	if !ok {
		return 0, false
	}
	return truncate(f)
}

// TruncateLoose truncates like Truncate but also accepts decimal strings such
// as " 4000.0 ", matching how scale fields are commonly stored as text.
func (s Scalar) TruncateLoose() (int64, bool) {
	if s.kind == KindText {
		f, err := strconv.ParseFloat(strings.TrimSpace(s.text), 64)
		if err != nil {
			return 0, false
		}
		return truncate(f)
	}
	return s.Truncate()
}

func truncate(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t > math.MaxInt64 || t < math.MinInt64 {
		return 0, false
	}
	return int64(t), true
}

// Truthy reports whether the value would count as present in a boolean
// context: non-null, non-empty text, non-zero number.
func (s Scalar) Truthy() bool {
	switch s.kind {
	case KindNumber:
		return s.num != 0
	case KindText:
		return s.text != ""
	}
	return false
}

// Blank reports whether s is null or text made only of whitespace.
func (s Scalar) Blank() bool {
	switch s.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(s.text) == ""
	}
	return false
}

// Equal compares kind and payload. Numbers compare by value.
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindNumber:
		return s.num == o.num
	case KindText:
		return s.text == o.text
	}
	return true
}

// String renders the value for reports. Null renders as the empty string.
func (s Scalar) String() string {
	switch s.kind {
	case KindNumber:
		return formatNumber(s.num)
	case KindText:
		return s.text
	}
	return ""
}

// Key renders a type-tagged canonical form, so that Text("1") and Number(1)
// never collide inside a composite key while Number(1) and Number(1.0) do.
func (s Scalar) Key() string {
	switch s.kind {
	case KindNumber:
		return "n:" + formatNumber(s.num)
	case KindText:
		return "s:" + s.text
	}
	return "null"
}

// Repr renders the value the way it appears inside a rendered key tuple:
// text quoted, numbers bare, null as None.
func (s Scalar) Repr() string {
	switch s.kind {
	case KindNumber:
		return formatNumber(s.num)
	case KindText:
		return "'" + s.text + "'"
	}
	return "None"
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsDigits reports whether s is a non-empty string of ASCII digits.
func IsDigits(s string) bool { return isDigits(s) }
