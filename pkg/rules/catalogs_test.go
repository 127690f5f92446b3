package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

func TestEveryKindHasCatalog(t *testing.T) {
	all := All()
	require.Len(t, all, len(core.LayerKinds()))
	for i, k := range core.LayerKinds() {
		assert.Equal(t, k, all[i].Kind)
	}
}

func TestForLayer(t *testing.T) {
	c, ok := ForLayer("road_01")
	require.True(t, ok)
	assert.Equal(t, core.LayerRoad, c.Kind)

	_, ok = ForLayer("LANDMARK_01")
	assert.False(t, ok)
}

func TestCatalogRuleIDsUnique(t *testing.T) {
	for _, c := range All() {
		seen := make(map[string]bool)
		for _, r := range c.Rules {
			assert.False(t, seen[r.ID], "%s: duplicate id %s", c.Kind, r.ID)
			seen[r.ID] = true
		}
	}
}

func TestSchemaRulesPrecedeRecordRules(t *testing.T) {
	for _, c := range All() {
		schema := true
		for _, r := range c.Rules {
			if !r.Kind.IsSchema() {
				schema = false
				continue
			}
			assert.True(t, schema, "%s: schema rule %s after record rules", c.Kind, r.ID)
		}
		assert.Len(t, c.SchemaRules(), len(c.Required)+len(c.Types))
	}
}

func TestGeometryFlags(t *testing.T) {
	tests := []struct {
		kind  core.LayerKind
		group string
	}{
		{core.LayerParcel, OverlapParcel},
		{core.LayerParcelNS3K, OverlapParcel},
		{core.LayerRoad, OverlapRoad},
		{core.LayerBlockFix, OverlapBlock},
		{core.LayerBlockPrice, OverlapBlock},
		{core.LayerBlockBlue, OverlapBlock},
		{core.LayerParcelRel, ""},
		{core.LayerNS3KRel, ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c, ok := ForKind(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.group != "", c.Geometry)
			assert.Equal(t, tt.group, c.OverlapGroup)
		})
	}
}

func kindsOf(rs []Rule, k Kind) []Rule {
	var out []Rule
	for _, r := range rs {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

func TestParcelUniquenessOrder(t *testing.T) {
	c, _ := ForKind(core.LayerParcel)
	u := kindsOf(c.Rules, KindUniqueness)
	require.Len(t, u, 2)
	assert.Equal(t, UTMKeyField, u[0].Field)
	assert.Equal(t, core.CheckDuplicateUTM, u[0].Check)
	assert.True(t, u[0].FullKey)
	assert.NotNil(t, u[0].Gate)
	assert.Equal(t, "PARCEL_RN", u[1].Field)
	assert.Equal(t, core.CheckDuplicateValue, u[1].Check)
}

func TestRoadPairBeforeUniqueness(t *testing.T) {
	c, _ := ForKind(core.LayerRoad)
	var order []Kind
	for _, r := range c.RecordRules() {
		if r.Kind == KindOneToOne || r.Kind == KindUniqueness {
			order = append(order, r.Kind)
		}
	}
	assert.Equal(t, []Kind{KindOneToOne, KindUniqueness}, order)
	assert.Len(t, c.Required, 13)
}

func TestBlockFixUniquenessBeforePair(t *testing.T) {
	c, _ := ForKind(core.LayerBlockFix)
	var order []Kind
	for _, r := range c.RecordRules() {
		if r.Kind == KindOneToOne || r.Kind == KindUniqueness {
			order = append(order, r.Kind)
		}
	}
	assert.Equal(t, []Kind{KindUniqueness, KindOneToOne}, order)

	price, _ := ForKind(core.LayerBlockPrice)
	assert.Empty(t, kindsOf(price.Rules, KindOneToOne))
}

func TestRelCatalogs(t *testing.T) {
	rel, _ := ForKind(core.LayerParcelRel)
	ns3k, _ := ForKind(core.LayerNS3KRel)

	assert.Contains(t, rel.Required, "PARCEL_RN")
	assert.Contains(t, ns3k.Required, "NS3K_RN")
	assert.Len(t, rel.Required, 15)
	assert.Len(t, rel.Types, 14)
	assert.Len(t, ns3k.RecordRules(), len(rel.RecordRules())+1)
}

func TestCursorFields(t *testing.T) {
	c, _ := ForKind(core.LayerParcel)
	fields := c.CursorFields()
	assert.Equal(t, "UTMMAP1", fields[0])
	assert.Contains(t, fields, "LAND_NO")
	assert.Contains(t, fields, "BRANCH_CODE")
}

func TestRuleSummary(t *testing.T) {
	c, _ := ForKind(core.LayerBlockBlue)
	d := kindsOf(c.Rules, KindDomain)
	require.Len(t, d, 1)
	assert.Equal(t, "BLOCK_TYPE_ID in {1, 2, 3}", d[0].Summary())
}
