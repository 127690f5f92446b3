package audit

import (
	"time"

	"github.com/ApiratRepublic/RePublic/internal/testutil"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func roadFields() []core.Field {
	return []core.Field{
		testutil.TextField("STREET_NAME"),
		testutil.TextField("STREET_CODE"),
		testutil.NumberField("STREET_DEPTH"),
		testutil.TextField("LAND_USE"),
		testutil.TextField("STREET_TYPE"),
		testutil.NumberField("STREET_WIDTH"),
		testutil.NumberField("STREET_AREA"),
		testutil.TextField("BRANCH_CODE"),
		testutil.NumberField("PARCEL_TYPE"),
		testutil.NumberField("TD_RP3_TYPE_CODE"),
		testutil.NumberField("STREET_RN"),
		testutil.TextField("CHANGWAT_CODE"),
		testutil.TextField("STREET_SMG"),
	}
}

// road builds a valid road record; overrides replace fields by name.
func road(oid int64, overrides ...any) core.Record {
	kv := []any{
		"STREET_NAME", "Main Rd",
		"STREET_CODE", "R001",
		"STREET_DEPTH", 10,
		"LAND_USE", "ที่อยู่อาศัย",
		"STREET_TYPE", "ลาดยาง",
		"STREET_WIDTH", 6,
		"STREET_AREA", 100,
		"BRANCH_CODE", "66000001",
		"PARCEL_TYPE", 1,
		"TD_RP3_TYPE_CODE", 1,
		"STREET_RN", oid,
		"CHANGWAT_CODE", "66",
		"STREET_SMG", "x",
	}
	return override(oid, kv, overrides)
}

func parcelFields() []core.Field {
	return []core.Field{
		testutil.TextField("UTMMAP1"),
		testutil.NumberField("UTMMAP2"),
		testutil.TextField("UTMMAP3"),
		testutil.TextField("UTMMAP4"),
		testutil.NumberField("UTMSCALE"),
		testutil.NumberField("LAND_NO"),
		testutil.NumberField("PARCEL_TYPE"),
		testutil.TextField("CHANGWAT_CODE"),
		testutil.TextField("BRANCH_CODE"),
		testutil.NumberField("PARCEL_RN"),
	}
}

func parcel(oid int64, overrides ...any) core.Record {
	kv := []any{
		"UTMMAP1", "5042",
		"UTMMAP2", 1,
		"UTMMAP3", "1234",
		"UTMMAP4", "05",
		"UTMSCALE", 1000,
		"LAND_NO", oid,
		"PARCEL_TYPE", 1,
		"CHANGWAT_CODE", "66",
		"BRANCH_CODE", "66000001",
		"PARCEL_RN", oid,
	}
	return override(oid, kv, overrides)
}

func blockFixFields() []core.Field {
	return []core.Field{
		testutil.TextField("STREET_NAME"),
		testutil.TextField("STREET_CODE"),
		testutil.TextField("BRANCH_CODE"),
		testutil.NumberField("BLOCK_FIX_RN"),
	}
}

func blockFix(oid int64, overrides ...any) core.Record {
	kv := []any{
		"STREET_NAME", "Main Rd",
		"STREET_CODE", "R001",
		"BRANCH_CODE", "66000001",
		"BLOCK_FIX_RN", oid,
	}
	return override(oid, kv, overrides)
}

func ns3kFields() []core.Field {
	return []core.Field{
		testutil.TextField("UTMMAP1"),
		testutil.NumberField("UTMMAP2"),
		testutil.TextField("UTMMAP3"),
		testutil.TextField("UTMMAP4"),
		testutil.NumberField("UTMSCALE"),
		testutil.NumberField("LAND_NO"),
		testutil.NumberField("PARCEL_TYPE"),
		testutil.TextField("CHANGWAT_CODE"),
		testutil.TextField("BRANCH_CODE"),
		testutil.NumberField("NS3K_RN"),
	}
}

func ns3k(oid int64, overrides ...any) core.Record {
	kv := []any{
		"UTMMAP1", "5042",
		"UTMMAP2", 1,
		"UTMMAP3", "0000",
		"UTMMAP4", "001",
		"UTMSCALE", 5000,
		"LAND_NO", oid,
		"PARCEL_TYPE", 3,
		"CHANGWAT_CODE", "66",
		"BRANCH_CODE", "66000001",
		"NS3K_RN", oid,
	}
	return override(oid, kv, overrides)
}

func blockPriceFields() []core.Field {
	return []core.Field{
		testutil.TextField("STREET_NAME"),
		testutil.TextField("STREET_CODE"),
		testutil.TextField("BRANCH_CODE"),
		testutil.NumberField("BLOCK_PRICE_RN"),
	}
}

func blockPrice(oid int64, overrides ...any) core.Record {
	kv := []any{
		"STREET_NAME", "Main Rd",
		"STREET_CODE", "R001",
		"BRANCH_CODE", "66000001",
		"BLOCK_PRICE_RN", oid,
	}
	return override(oid, kv, overrides)
}

func blockBlueFields() []core.Field {
	return []core.Field{
		testutil.TextField("BRANCH_CODE"),
		testutil.NumberField("BLOCK_BLUE_RN"),
		testutil.NumberField("BLOCK_TYPE_ID"),
	}
}

func blockBlue(oid int64, overrides ...any) core.Record {
	kv := []any{
		"BRANCH_CODE", "66000001",
		"BLOCK_BLUE_RN", oid,
		"BLOCK_TYPE_ID", 1,
	}
	return override(oid, kv, overrides)
}

// relFields lists a relation layer's fields; parcelRN is PARCEL_RN or NS3K_RN.
func relFields(parcelRN string) []core.Field {
	fields := []core.Field{testutil.TextField("BRANCH_CODE")}
	for _, f := range []string{"REL_RN", parcelRN, "STREET_RN", "BLOCK_FIX_RN", "BLOCK_BLUE_RN",
		"BLOCK_PRICE_RN", "TABLE_NO", "SUB_TABLE_NO", "DEPTH_R", "DEPTH_GROUP",
		"START_X", "START_Y", "END_X", "END_Y"} {
		fields = append(fields, testutil.NumberField(f))
	}
	return fields
}

func rel(parcelRN string, oid int64, overrides ...any) core.Record {
	kv := []any{
		"BRANCH_CODE", "66000001",
		"REL_RN", oid,
		parcelRN, 1,
		"STREET_RN", 1,
		"BLOCK_FIX_RN", 1,
		"BLOCK_BLUE_RN", 1,
		"BLOCK_PRICE_RN", 1,
		"TABLE_NO", 41,
		"SUB_TABLE_NO", 0,
		"DEPTH_R", 20,
		"DEPTH_GROUP", 1,
		"START_X", 100,
		"START_Y", 200,
		"END_X", 110,
		"END_Y", 210,
	}
	return override(oid, kv, overrides)
}

func override(oid int64, kv, overrides []any) core.Record {
	idx := make(map[string]int)
	for i := 0; i < len(kv); i += 2 {
		idx[kv[i].(string)] = i
	}
	for i := 0; i+1 < len(overrides); i += 2 {
		name := overrides[i].(string)
		if j, ok := idx[name]; ok {
			kv[j+1] = overrides[i+1]
		} else {
			kv = append(kv, name, overrides[i+1])
		}
	}
	return testutil.Rec(oid, kv...)
}

func checks(entries []core.ErrorEntry) []core.CheckKind {
	out := make([]core.CheckKind, len(entries))
	for i, e := range entries {
		out[i] = e.Check
	}
	return out
}
