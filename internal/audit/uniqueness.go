package audit

import (
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/core"
	"github.com/ApiratRepublic/RePublic/pkg/rules"
)

// keySep joins the canonical forms of key parts. It cannot occur in a
// type-tagged Scalar key for ordinary text.
const keySep = "\x1f"

type keyGroup struct {
	scope string
	value string
	repr  string
	ids   []int64
}

// KeyIndex accumulates object ids per composite key for one uniqueness rule.
// Keys are kept in insertion order so resolution is deterministic.
type KeyIndex struct {
	rule   rules.Rule
	groups map[string]*keyGroup
	order  []*keyGroup
}

// NewKeyIndex creates an empty index for rule.
func NewKeyIndex(rule rules.Rule) *KeyIndex {
	return &KeyIndex{rule: rule, groups: make(map[string]*keyGroup)}
}

// Observe adds the record to the index when the rule's gate holds and every
// value part can be keyed.
func (x *KeyIndex) Observe(rec core.Record) {
	if !x.rule.Gate.Holds(rec) {
		return
	}

	var canon, scope, value, repr []string
	for _, p := range x.rule.Scope {
		s := scopeFor(rec.Get(p.Field), p.Mode)
		canon = append(canon, "s:"+s)
		scope = append(scope, s)
		repr = append(repr, core.Text(s).Repr())
	}
	for _, p := range x.rule.Value {
		v, ok := keyValue(rec.Get(p.Field), p.Mode)
		if !ok {
			return
		}
		canon = append(canon, v.Key())
		value = append(value, v.String())
		repr = append(repr, v.Repr())
	}

	k := strings.Join(canon, keySep)
	g, ok := x.groups[k]
	if !ok {
		g = &keyGroup{
			scope: strings.Join(scope, "/"),
			value: strings.Join(value, "/"),
			repr:  "(" + strings.Join(repr, ", ") + ")",
		}
		x.groups[k] = g
		x.order = append(x.order, g)
	}
	g.ids = append(g.ids, rec.OID)
}

// Len returns the number of distinct keys.
func (x *KeyIndex) Len() int { return len(x.order) }

// Resolve emits one entry per key mapped to more than one record and returns
// the number of flagged keys. The index is drained afterwards.
func (x *KeyIndex) Resolve(seg *Segment) int {
	flagged := 0
	for _, g := range x.order {
		if len(g.ids) < 2 {
			continue
		}
		flagged++
		invalid := g.value
		if x.rule.FullKey {
			invalid = g.repr
		}
		msg := strings.NewReplacer("{scope}", g.scope, "{value}", g.value).Replace(x.rule.Message)
		seg.Add(x.rule.Check, core.FormatObjectIDs(g.ids), x.rule.Field, invalid, msg)
	}
	x.groups = make(map[string]*keyGroup)
	x.order = nil
	return flagged
}

// scopeText renders a scope part: trimmed text, or "NULL" when the value is absent.
func scopeText(v core.Scalar) string {
	if !v.Truthy() {
		return "NULL"
	}
	return strings.TrimSpace(v.String())
}

// scopeFor renders a scope part under mode. Only KeyScopeText differs from
// scopeText: it keeps empty text and scopes non-text values as "NULL".
func scopeFor(v core.Scalar, mode rules.KeyMode) string {
	if mode != rules.KeyScopeText {
		return scopeText(v)
	}
	s, ok := v.Str()
	if !ok {
		return "NULL"
	}
	return strings.TrimSpace(s)
}

func keyValue(v core.Scalar, mode rules.KeyMode) (core.Scalar, bool) {
	switch mode {
	case rules.KeyInteger:
		f, ok := v.Integral()
		if !ok {
			return v, false
		}
		return core.Number(f), true
	case rules.KeyIntegerOrRaw:
		if n, ok := v.TruncateLoose(); ok {
			return core.Number(float64(n)), true
		}
		return v, true
	case rules.KeyScope, rules.KeyScopeText:
		return core.Text(scopeFor(v, mode)), true
	default:
		return v, true
	}
}
