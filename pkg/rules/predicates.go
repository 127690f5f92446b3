package rules

import (
	"strconv"
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

func outcome(ok bool) Outcome {
	if ok {
		return Pass
	}
	return Fail
}

// DigitText passes text made of exactly n ASCII digits.
func DigitText(n int) Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		s, ok := v.AsDigitString()
		return outcome(ok && len(s) == n)
	}
}

// BranchCode passes text whose trimmed form is exactly 8 ASCII digits.
func BranchCode() Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		s, ok := v.Str()
		if !ok {
			return Fail
		}
		s = strings.TrimSpace(s)
		return outcome(len(s) == 8 && core.IsDigits(s))
	}
}

// TextEquals passes text equal to want.
func TextEquals(want string) Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		s, ok := v.Str()
		return outcome(ok && s == want)
	}
}

// NumberLike passes values accepted by the numeric coercion policy.
func NumberLike() Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		_, ok := v.AsNumber()
		return outcome(ok)
	}
}

// NumberLikeOrNull passes null or values accepted by the numeric coercion policy.
func NumberLikeOrNull() Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if v.IsNull() {
			return Pass
		}
		_, ok := v.AsNumber()
		return outcome(ok)
	}
}

// NotNull passes any non-null value.
func NotNull() Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		return outcome(!v.IsNull())
	}
}

// NotBlank passes values that are neither null nor whitespace-only text.
func NotBlank() Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		return outcome(!v.Blank())
	}
}

// NotPlaceholder passes present values that are not blank and not the "-"
// placeholder. Zero numbers count as absent.
func NotPlaceholder() Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if !v.Truthy() {
			return Fail
		}
		if s, ok := v.Str(); ok {
			s = strings.TrimSpace(s)
			return outcome(s != "" && s != "-")
		}
		return Pass
	}
}

// IntIn passes numeric values whose integer part is in set. Values outside the
// numeric coercion policy fail.
func IntIn(set IntSet) Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if _, ok := v.AsNumber(); !ok {
			return Fail
		}
		return member(v, set)
	}
}

// member tests the integer part of a numeric value against set. Finite values
// beyond int64 are never members; infinite ones cannot be truncated.
func member(v core.Scalar, set IntSet) Outcome {
	if n, ok := v.Truncate(); ok {
		return outcome(set.Contains(n))
	}
	if _, ok := v.Integral(); ok {
		return Fail
	}
	return Malformed
}

// Optional passes null and otherwise defers to t.
func Optional(t Test) Test {
	return func(v core.Scalar, rec core.Record) Outcome {
		if v.IsNull() {
			return Pass
		}
		return t(v, rec)
	}
}

// CodeIn checks a code against set. Null fails unless allowZeroOrNull is set,
// in which case null and 0 both pass. Non-numeric values are skipped because a
// separate format rule reports them.
func CodeIn(set IntSet, allowZeroOrNull bool) Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if v.IsNull() {
			return outcome(allowZeroOrNull)
		}
		if _, ok := v.AsNumber(); !ok {
			return Skip
		}
		if n, ok := v.Truncate(); ok && allowZeroOrNull && n == 0 {
			return Pass
		}
		return member(v, set)
	}
}

// NumberIn passes numeric values equal to a member of set. Text never passes,
// even when it spells a member.
func NumberIn(set IntSet) Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if !v.IsNumber() {
			return Fail
		}
		f, _ := v.AsNumber()
		n, ok := v.Truncate()
		return outcome(ok && float64(n) == f && set.Contains(n))
	}
}

// NonZero fails null values and numeric values equal to zero.
func NonZero() Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if v.IsNull() {
			return Fail
		}
		if f, ok := v.AsNumber(); ok && f == 0 {
			return Fail
		}
		return Pass
	}
}

// InTextSet passes values whose rendered, trimmed form is in set. Null fails.
func InTextSet(set TextSet) Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if v.IsNull() {
			return Fail
		}
		return outcome(set.Contains(v.String()))
	}
}

// PrefixOf passes text that starts with the text of another field. The check
// only applies when both values are text.
func PrefixOf(field string) Test {
	return func(v core.Scalar, rec core.Record) Outcome {
		s, ok := v.Str()
		if !ok {
			return Pass
		}
		prefix, ok := rec.Get(field).Str()
		if !ok {
			return Pass
		}
		return outcome(strings.HasPrefix(s, prefix))
	}
}

// ScaleIn passes values whose loosely parsed integer part is in set.
// Null fails; unparseable values are malformed.
func ScaleIn(set IntSet) Test {
	return func(v core.Scalar, _ core.Record) Outcome {
		if v.IsNull() {
			return Fail
		}
		n, ok := v.TruncateLoose()
		if !ok {
			return Malformed
		}
		return outcome(set.Contains(n))
	}
}

// ScaleBand constrains a 2-digit map sheet code according to the scale held
// in scaleField. When the scale is not the given one the step passes. When
// exact is set the code must equal it; otherwise its value must be in lo..hi.
func ScaleBand(scaleField string, scale int64, exact string, lo, hi int64) Test {
	return func(v core.Scalar, rec core.Record) Outcome {
		s, ok := rec.Get(scaleField).TruncateLoose()
		if !ok || s != scale {
			return Pass
		}
		text, _ := v.Str()
		if exact != "" {
			return outcome(text == exact)
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Skip
		}
		return outcome(n >= lo && n <= hi)
	}
}

// FieldNotBlank holds when the field is neither null nor whitespace-only text.
func FieldNotBlank(field string) *Cond {
	return &Cond{
		Desc: field + " is not blank",
		Test: func(rec core.Record) bool { return !rec.Get(field).Blank() },
	}
}

// FieldBlank holds when the field is null or whitespace-only text.
func FieldBlank(field string) *Cond {
	return &Cond{
		Desc: field + " is blank",
		Test: func(rec core.Record) bool { return rec.Get(field).Blank() },
	}
}

// FieldsPresent holds when every field has a truthy value.
func FieldsPresent(fields ...string) *Cond {
	return &Cond{
		Desc: strings.Join(fields, " and ") + " present",
		Test: func(rec core.Record) bool {
			for _, f := range fields {
				if !rec.Get(f).Truthy() {
					return false
				}
			}
			return true
		},
	}
}

// FieldPasses holds when t passes on the field's value.
func FieldPasses(field, desc string, t Test) *Cond {
	return &Cond{
		Desc: desc,
		Test: func(rec core.Record) bool { return t(rec.Get(field), rec) == Pass },
	}
}

// FieldIntIn holds when the field's integer part is in set.
func FieldIntIn(field string, set IntSet) *Cond {
	return &Cond{
		Desc: field + " in " + set.String(),
		Test: func(rec core.Record) bool {
			n, ok := rec.Get(field).Truncate()
			return ok && set.Contains(n)
		},
	}
}

// FieldNonZeroNumber holds when the field is numeric with a non-zero integer part.
func FieldNonZeroNumber(field string) *Cond {
	return &Cond{
		Desc: field + " is a non-zero number",
		Test: func(rec core.Record) bool {
			f, ok := rec.Get(field).Integral()
			return ok && f != 0
		},
	}
}
