// Package rules holds the declarative rule model and the fixed per-layer catalogs.
//
// A catalog is data: an ordered list of Rule values built from a small
// predicate library. The evaluator in internal/audit interprets the rules;
// nothing in this package reads datasets.
package rules

import (
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Kind tags a Rule variant.
type Kind int

// Rule variants.
const (
	KindRequiredField Kind = iota
	KindFieldType
	KindFormat
	KindDomain
	KindConditional
	KindUniqueness
	KindOneToOne
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindRequiredField:
		return "required"
	case KindFieldType:
		return "type"
	case KindFormat:
		return "format"
	case KindDomain:
		return "domain"
	case KindConditional:
		return "conditional"
	case KindUniqueness:
		return "uniqueness"
	case KindOneToOne:
		return "one-to-one"
	default:
		return "unknown"
	}
}

// IsSchema reports whether rules of this kind run once per layer against the
// field registry rather than per record.
func (k Kind) IsSchema() bool {
	return k == KindRequiredField || k == KindFieldType
}

// Outcome is the result of testing one value.
type Outcome int

// Outcomes.
const (
	// Pass moves on to the next step.
	Pass Outcome = iota
	// Fail emits the step's entry and stops the rule.
	Fail
	// Skip stops the rule silently; a precondition is reported elsewhere.
	Skip
	// Malformed stops the rule because a present value could not be truncated
	// to an integer. Strict evaluation reports it; lenient evaluation skips it.
	Malformed
)

// Test inspects the rule's target value in the context of its record.
type Test func(v core.Scalar, rec core.Record) Outcome

// Step is one check in a rule's chain. Steps run in order until one does not pass.
type Step struct {
	Check   core.CheckKind
	Test    Test
	Message string
}

// Cond is a record-level predicate used for guards and gates.
type Cond struct {
	Desc string
	Test func(rec core.Record) bool
}

// Holds reports whether the condition is satisfied; a nil Cond always holds.
func (c *Cond) Holds(rec core.Record) bool {
	return c == nil || c.Test(rec)
}

// KeyMode controls how a field contributes to a composite key.
type KeyMode int

// Key modes.
const (
	// KeyRaw uses the value as read.
	KeyRaw KeyMode = iota
	// KeyScope uses trimmed text, or "NULL" when the value is absent.
	KeyScope
	// KeyInteger truncates the value; records whose value does not pass the
	// numeric coercion policy are not indexed.
	KeyInteger
	// KeyIntegerOrRaw truncates when possible and falls back to the raw value.
	KeyIntegerOrRaw
	// KeyScopeText uses trimmed text, empty text included; any non-text value
	// scopes as "NULL".
	KeyScopeText
)

// KeyPart is one component of a composite key.
type KeyPart struct {
	Field string
	Mode  KeyMode
}

// FieldSpec declares the expected logical type of a field.
type FieldSpec struct {
	Name     string
	Expected core.LogicalType
}

// Rule is one declarative check. Which fields are meaningful depends on Kind:
//
//   - RequiredField: Field
//   - FieldType: Field, Expected
//   - Format, Domain, Conditional: Field, Guard, Steps (Allowed for listing)
//   - Uniqueness: Field (reported), Scope, Value, Gate, Check, Message
//   - OneToOne: Pair, Check, Message
type Rule struct {
	ID       string
	Kind     Kind
	Field    string
	Expected core.LogicalType
	Guard    *Cond
	Steps    []Step
	Allowed  []string
	Scope    []KeyPart
	Value    []KeyPart
	Gate     *Cond
	FullKey  bool
	Pair     [2]string
	Check    core.CheckKind
	Message  string
	Describe string
}

// Fields returns every field the rule reads from a record.
func (r Rule) Fields() []string {
	var out []string
	switch r.Kind {
	case KindUniqueness:
		for _, p := range r.Scope {
			out = append(out, p.Field)
		}
		for _, p := range r.Value {
			out = append(out, p.Field)
		}
	case KindOneToOne:
		out = append(out, r.Pair[0], r.Pair[1])
	case KindRequiredField, KindFieldType:
		return nil
	default:
		out = append(out, r.Field)
	}
	return out
}

// Summary is a one-line description used by the rules listing.
func (r Rule) Summary() string {
	if r.Describe != "" {
		return r.Describe
	}
	switch r.Kind {
	case KindRequiredField:
		return r.Field + " must exist"
	case KindFieldType:
		return r.Field + " must be " + r.Expected.String()
	case KindUniqueness:
		return keyNames(r.Value) + " unique within " + keyNames(r.Scope)
	case KindOneToOne:
		return r.Pair[0] + " <-> " + r.Pair[1] + " one-to-one"
	case KindDomain:
		return r.Field + " in {" + strings.Join(r.Allowed, ", ") + "}"
	}
	return r.Field
}

func keyNames(parts []KeyPart) string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Field
	}
	return strings.Join(names, "+")
}

// ExpandMessage replaces {FIELD} placeholders with the record's rendered values.
func ExpandMessage(msg string, rec core.Record) string {
	if !strings.Contains(msg, "{") {
		return msg
	}
	var b strings.Builder
	for {
		i := strings.IndexByte(msg, '{')
		if i < 0 {
			b.WriteString(msg)
			break
		}
		j := strings.IndexByte(msg[i:], '}')
		if j < 0 {
			b.WriteString(msg)
			break
		}
		b.WriteString(msg[:i])
		name := msg[i+1 : i+j]
		if v, ok := rec.Values[strings.ToUpper(name)]; ok {
			b.WriteString(v.String())
		} else if isFieldName(name) {
			b.WriteString("")
		} else {
			b.WriteString(msg[i : i+j+1])
		}
		msg = msg[i+j+1:]
	}
	return b.String()
}

func isFieldName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
