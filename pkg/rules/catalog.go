package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Overlap output groups.
const (
	OverlapParcel = "PARCEL"
	OverlapRoad   = "ROAD"
	OverlapBlock  = "BLOCK"
)

// Catalog is the ordered rule set for one layer kind.
type Catalog struct {
	Kind     core.LayerKind
	Required []string
	Types    []FieldSpec
	Rules    []Rule

	// Geometry enables the exact-overlap check; OverlapGroup names the
	// output folder for materialized duplicates.
	Geometry     bool
	OverlapGroup string
}

// SchemaRules returns the required-field and field-type rules, in order.
func (c *Catalog) SchemaRules() []Rule {
	out := make([]Rule, 0, len(c.Required)+len(c.Types))
	for _, r := range c.Rules {
		if r.Kind.IsSchema() {
			out = append(out, r)
		}
	}
	return out
}

// RecordRules returns the rules evaluated during the record pass, in order.
func (c *Catalog) RecordRules() []Rule {
	var out []Rule
	for _, r := range c.Rules {
		if !r.Kind.IsSchema() {
			out = append(out, r)
		}
	}
	return out
}

// CursorFields lists every field the record rules read, required fields first.
func (c *Catalog) CursorFields() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		f = strings.ToUpper(f)
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range c.Required {
		add(f)
	}
	for _, r := range c.Rules {
		for _, f := range r.Fields() {
			add(f)
		}
	}
	return out
}

// catalogBuilder assembles a catalog. Schema rules are generated from the
// required and typed field lists and always precede record rules.
type catalogBuilder struct {
	c       Catalog
	records []Rule
}

func newCatalog(kind core.LayerKind) *catalogBuilder {
	return &catalogBuilder{c: Catalog{Kind: kind}}
}

func (b *catalogBuilder) require(fields ...string) *catalogBuilder {
	b.c.Required = append(b.c.Required, fields...)
	return b
}

func (b *catalogBuilder) text(fields ...string) *catalogBuilder {
	for _, f := range fields {
		b.c.Types = append(b.c.Types, FieldSpec{Name: f, Expected: core.LogicalText})
	}
	return b
}

func (b *catalogBuilder) numeric(fields ...string) *catalogBuilder {
	for _, f := range fields {
		b.c.Types = append(b.c.Types, FieldSpec{Name: f, Expected: core.LogicalNumeric})
	}
	return b
}

func (b *catalogBuilder) add(rules ...Rule) *catalogBuilder {
	b.records = append(b.records, rules...)
	return b
}

func (b *catalogBuilder) overlap(group string) *catalogBuilder {
	b.c.Geometry = true
	b.c.OverlapGroup = group
	return b
}

func (b *catalogBuilder) build() *Catalog {
	prefix := b.c.Kind.String()
	rules := make([]Rule, 0, len(b.c.Required)+len(b.c.Types)+len(b.records))
	for _, f := range b.c.Required {
		rules = append(rules, Rule{
			ID:      fmt.Sprintf("%s.%s.required", prefix, f),
			Kind:    KindRequiredField,
			Field:   f,
			Check:   core.CheckField,
			Message: "field not found",
		})
	}
	for _, spec := range b.c.Types {
		rules = append(rules, Rule{
			ID:       fmt.Sprintf("%s.%s.type", prefix, spec.Name),
			Kind:     KindFieldType,
			Field:    spec.Name,
			Expected: spec.Expected,
			Check:    core.CheckFieldType,
			Message:  "must be " + spec.Expected.String(),
		})
	}
	seen := make(map[string]int)
	for _, r := range b.records {
		if r.ID == "" {
			r.ID = fmt.Sprintf("%s.%s.%s", prefix, ruleSubject(r), r.Kind)
		}
		seen[r.ID]++
		if n := seen[r.ID]; n > 1 {
			r.ID = fmt.Sprintf("%s.%d", r.ID, n)
		}
		rules = append(rules, r)
	}
	c := b.c
	c.Rules = rules
	c.Required = slices.Clone(b.c.Required)
	c.Types = slices.Clone(b.c.Types)
	return &c
}

func ruleSubject(r Rule) string {
	switch r.Kind {
	case KindOneToOne:
		return r.Pair[0] + "-" + r.Pair[1]
	case KindUniqueness:
		return keyNames(r.Value)
	}
	return r.Field
}

// step builds one check of a rule chain.
func step(check core.CheckKind, test Test, msg string) Step {
	return Step{Check: check, Test: test, Message: msg}
}

// Format checks the shape of a single field's value.
func Format(field string, steps ...Step) Rule {
	return Rule{Kind: KindFormat, Field: field, Steps: steps}
}

// Domain checks membership of a field's value in a fixed text set.
func Domain(field string, guard *Cond, set TextSet, check core.CheckKind, msg string) Rule {
	return Rule{
		Kind:    KindDomain,
		Field:   field,
		Guard:   guard,
		Allowed: set.Values(),
		Steps:   []Step{step(check, InTextSet(set), msg)},
	}
}

// Conditional checks a field only when guard holds on the record.
func Conditional(field string, guard *Cond, steps ...Step) Rule {
	return Rule{Kind: KindConditional, Field: field, Guard: guard, Steps: steps}
}

// Unique requires value to be unique within scope. field names the reported field.
func Unique(field string, check core.CheckKind, scope, value []KeyPart, msg string) Rule {
	return Rule{
		Kind:    KindUniqueness,
		Field:   field,
		Scope:   scope,
		Value:   value,
		Check:   check,
		Message: msg,
	}
}

// OneToOne requires a bijective mapping between two fields across the layer.
func OneToOne(a, b, msg string) Rule {
	return Rule{
		Kind:    KindOneToOne,
		Pair:    [2]string{a, b},
		Check:   core.CheckOneToOne,
		Message: msg,
	}
}
