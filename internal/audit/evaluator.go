package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/ApiratRepublic/RePublic/pkg/core"
	"github.com/ApiratRepublic/RePublic/pkg/rules"
)

// State is a stage of the per-layer evaluation lifecycle.
type State int

// Evaluator states, in lifecycle order.
const (
	StateIdle State = iota
	StateSchemaChecked
	StateStreaming
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSchemaChecked:
		return "schema-checked"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ErrState is returned when an evaluator method is called out of order.
var ErrState = errors.New("evaluator called out of order")

// EvalOptions tunes rule evaluation.
type EvalOptions struct {
	// StrictNumeric reports present values whose integer part cannot be
	// taken as Data Format instead of skipping the range check.
	StrictNumeric bool
}

type finalizer interface {
	Resolve(seg *Segment) int
}

// Evaluator applies one catalog to one layer. It owns its key and pair
// indexes for the duration of the run and is not safe for concurrent use.
type Evaluator struct {
	catalog *rules.Catalog
	seg     *Segment
	opts    EvalOptions
	state   State

	active     []rules.Rule
	observers  []func(core.Record)
	finalizers []finalizer

	records int64
	flagged int
}

// NewEvaluator creates an evaluator writing to seg.
func NewEvaluator(c *rules.Catalog, seg *Segment, opts EvalOptions) *Evaluator {
	return &Evaluator{catalog: c, seg: seg, opts: opts}
}

// State returns the current lifecycle state.
func (e *Evaluator) State() State { return e.state }

// Records returns the number of records streamed so far.
func (e *Evaluator) Records() int64 { return e.records }

// Flagged returns the number of duplicate keys and one-to-one contradictions
// reported by Finalize.
func (e *Evaluator) Flagged() int { return e.flagged }

// CheckSchema runs the required-field and field-type rules against reg and
// binds the record rules whose fields all exist.
func (e *Evaluator) CheckSchema(reg core.FieldRegistry) error {
	if e.state != StateIdle {
		return fmt.Errorf("check schema in state %s: %w", e.state, ErrState)
	}

	for _, r := range e.catalog.SchemaRules() {
		switch r.Kind {
		case rules.KindRequiredField:
			if !reg.Has(r.Field) {
				e.schemaEntry(r.Check, r.Field, "", r.Field+" "+r.Message)
			}
		case rules.KindFieldType:
			t, ok := reg.Type(r.Field)
			if ok && !core.SatisfiesType(t, r.Expected) {
				e.schemaEntry(r.Check, r.Field, t, r.Field+" "+r.Message)
			}
		}
	}

	for _, r := range e.catalog.RecordRules() {
		if !allPresent(reg, r.Fields()) {
			continue
		}
		e.active = append(e.active, r)
		switch r.Kind {
		case rules.KindUniqueness:
			x := NewKeyIndex(r)
			e.observers = append(e.observers, x.Observe)
			e.finalizers = append(e.finalizers, x)
		case rules.KindOneToOne:
			p := NewPairIndex(r)
			e.observers = append(e.observers, p.Observe)
			e.finalizers = append(e.finalizers, p)
		}
	}

	e.state = StateSchemaChecked
	return nil
}

func allPresent(reg core.FieldRegistry, fields []string) bool {
	for _, f := range fields {
		if !reg.Has(f) {
			return false
		}
	}
	return true
}

func (e *Evaluator) schemaEntry(check core.CheckKind, field, invalid, msg string) {
	e.seg.AddRecord(check, core.NoObjectID, field, invalid, msg)
}

// Observe evaluates every record rule against rec in catalog order.
func (e *Evaluator) Observe(rec core.Record) error {
	switch e.state {
	case StateSchemaChecked:
		e.state = StateStreaming
	case StateStreaming:
	default:
		return fmt.Errorf("observe in state %s: %w", e.state, ErrState)
	}
	e.records++

	for _, r := range e.active {
		switch r.Kind {
		case rules.KindFormat, rules.KindDomain, rules.KindConditional:
			e.evalSteps(r, rec)
		}
	}
	for _, obs := range e.observers {
		obs(rec)
	}
	return nil
}

func (e *Evaluator) evalSteps(r rules.Rule, rec core.Record) {
	if !r.Guard.Holds(rec) {
		return
	}
	v := rec.Get(r.Field)
	for _, st := range r.Steps {
		switch st.Test(v, rec) {
		case rules.Pass:
			continue
		case rules.Fail:
			e.seg.AddRecord(st.Check, rec.OID, r.Field, v.String(), rules.ExpandMessage(st.Message, rec))
		case rules.Malformed:
			if e.opts.StrictNumeric {
				e.seg.AddRecord(core.CheckDataFormat, rec.OID, r.Field, v.String(),
					r.Field+" is not a valid integer")
			}
		}
		return
	}
}

// Abort records a failed record stream. Entries and index state gathered so
// far are kept and Finalize still runs.
func (e *Evaluator) Abort(err error) {
	e.seg.AddRecord(core.CheckCursor, core.NoObjectID, "", "", err.Error())
}

// Consume streams cur through Observe until it is exhausted or fails. A
// cursor failure is recorded with Abort; it is not returned.
func (e *Evaluator) Consume(ctx context.Context, cur core.Cursor) error {
	defer cur.Close()
	for cur.Next() {
		if err := ctx.Err(); err != nil {
			e.Abort(err)
			return nil
		}
		if err := e.Observe(cur.Record()); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		e.Abort(err)
	}
	return nil
}

// Finalize resolves the uniqueness and one-to-one indexes in catalog order.
func (e *Evaluator) Finalize() error {
	switch e.state {
	case StateSchemaChecked, StateStreaming:
	default:
		return fmt.Errorf("finalize in state %s: %w", e.state, ErrState)
	}
	e.state = StateFinalizing
	for _, f := range e.finalizers {
		e.flagged += f.Resolve(e.seg)
	}
	e.finalizers = nil
	e.observers = nil
	e.state = StateDone
	return nil
}
