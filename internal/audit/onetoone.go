package audit

import (
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/core"
	"github.com/ApiratRepublic/RePublic/pkg/rules"
)

type pair struct {
	a, b core.Scalar
}

// PairIndex collects (a, b) value pairs for a one-to-one rule and reports
// values of either field that map to more than one partner.
type PairIndex struct {
	rule  rules.Rule
	pairs []pair
}

// NewPairIndex creates an empty index for rule.
func NewPairIndex(rule rules.Rule) *PairIndex {
	return &PairIndex{rule: rule}
}

// Observe records the pair when both values are present.
func (p *PairIndex) Observe(rec core.Record) {
	a := rec.Get(p.rule.Pair[0])
	b := rec.Get(p.rule.Pair[1])
	if !a.Truthy() || !b.Truthy() {
		return
	}
	p.pairs = append(p.pairs, pair{a: a, b: b})
}

// Resolve replays the pairs in observation order and emits one entry per
// (field, value) the first time that value is seen with a second partner.
// The first-seen mapping is kept as the reference. It returns the number of
// entries emitted and drains the index.
func (p *PairIndex) Resolve(seg *Segment) int {
	fieldA, fieldB := p.rule.Pair[0], p.rule.Pair[1]
	forward := make(map[string]core.Scalar)
	backward := make(map[string]core.Scalar)
	reported := make(map[string]bool)
	emitted := 0

	check := func(seen map[string]core.Scalar, field, other string, v, partner core.Scalar) {
		k := v.Key()
		first, ok := seen[k]
		if !ok {
			seen[k] = partner
			return
		}
		rk := field + keySep + k
		if first.Equal(partner) || reported[rk] {
			return
		}
		reported[rk] = true
		emitted++
		msg := strings.NewReplacer(
			"{value}", v.String(),
			"{other}", other,
			"{first}", first.String(),
			"{next}", partner.String(),
		).Replace(p.rule.Message)
		seg.Add(p.rule.Check, core.ObjectIDNotApplicable, field, v.String(), msg)
	}

	for _, pr := range p.pairs {
		check(forward, fieldA, fieldB, pr.a, pr.b)
		check(backward, fieldB, fieldA, pr.b, pr.a)
	}
	p.pairs = nil
	return emitted
}
