package rules

import (
	"strconv"
	"sync"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

const (
	fieldBranch   = "BRANCH_CODE"
	fieldChangwat = "CHANGWAT_CODE"
	fieldName     = "STREET_NAME"
	fieldCode     = "STREET_CODE"
	fieldTD       = "TD_RP3_TYPE_CODE"
	fieldScale    = "UTMSCALE"
	fieldLandNo   = "LAND_NO"

	// UTMKeyField is the reported field of the map-sheet uniqueness rule.
	UTMKeyField = "PRIMARY_KEY"
)

var catalogs = sync.OnceValue(func() map[core.LayerKind]*Catalog {
	d := DefaultDomains()
	out := make(map[core.LayerKind]*Catalog)
	for _, c := range []*Catalog{
		parcelCatalog(d),
		parcelNS3KCatalog(d),
		roadCatalog(d),
		blockFixCatalog(),
		blockPriceCatalog(),
		blockBlueCatalog(d),
		relCatalog(core.LayerParcelRel, "PARCEL_RN", d),
		relCatalog(core.LayerNS3KRel, "NS3K_RN", d),
	} {
		out[c.Kind] = c
	}
	return out
})

// ForKind returns the catalog bound to a layer kind.
func ForKind(k core.LayerKind) (*Catalog, bool) {
	c, ok := catalogs()[k]
	return c, ok
}

// ForLayer classifies a layer name and returns its catalog.
func ForLayer(layer string) (*Catalog, bool) {
	k, ok := core.ClassifyLayer(layer)
	if !ok {
		return nil, false
	}
	return ForKind(k)
}

// All returns every catalog in classification order.
func All() []*Catalog {
	out := make([]*Catalog, 0, len(core.LayerKinds()))
	for _, k := range core.LayerKinds() {
		if c, ok := ForKind(k); ok {
			out = append(out, c)
		}
	}
	return out
}

// --- shared rule fragments ---

func changwatFormat() Rule {
	return Format(fieldChangwat,
		step(core.CheckDataFormat, DigitText(2), "CHANGWAT_CODE must be a 2-digit string"))
}

func branchFormat() Rule {
	return Format(fieldBranch,
		step(core.CheckDataFormat, BranchCode(), "BRANCH_CODE must be an 8-digit string"))
}

func branchPrefix(guard *Cond) Rule {
	return Conditional(fieldBranch, guard,
		step(core.CheckConditional, PrefixOf(fieldChangwat),
			"first 2 digits of BRANCH_CODE do not match CHANGWAT_CODE {CHANGWAT_CODE}"))
}

func numberFormat(field string, check core.CheckKind, msg string) Rule {
	return Format(field, step(check, NumberLike(), msg))
}

func codeDomain(field string, set IntSet, test Test, msg string) Rule {
	allowed := make([]string, 0, len(set.values))
	for _, v := range set.values {
		allowed = append(allowed, strconv.FormatInt(v, 10))
	}
	return Rule{
		Kind:    KindDomain,
		Field:   field,
		Allowed: allowed,
		Steps:   []Step{step(core.CheckDataSpecified, test, msg)},
	}
}

func rnUnique(field, msg string) Rule {
	return Unique(field, core.CheckDuplicateValue,
		[]KeyPart{{Field: fieldBranch, Mode: KeyScope}},
		[]KeyPart{{Field: field, Mode: KeyInteger}},
		msg)
}

// streetRNUnique scopes by text only: an empty BRANCH_CODE forms its own
// group, apart from null or numeric codes.
func streetRNUnique() Rule {
	return Unique("STREET_RN", core.CheckDuplicateValue,
		[]KeyPart{{Field: fieldBranch, Mode: KeyScopeText}},
		[]KeyPart{{Field: "STREET_RN", Mode: KeyInteger}},
		"STREET_RN duplicated within BRANCH_CODE '{scope}'")
}

func utmUnique() Rule {
	r := Unique(UTMKeyField, core.CheckDuplicateUTM,
		[]KeyPart{{Field: fieldBranch, Mode: KeyScope}},
		[]KeyPart{
			{Field: "UTMMAP1", Mode: KeyRaw},
			{Field: "UTMMAP2", Mode: KeyRaw},
			{Field: "UTMMAP3", Mode: KeyRaw},
			{Field: "UTMMAP4", Mode: KeyRaw},
			{Field: fieldScale, Mode: KeyIntegerOrRaw},
			{Field: fieldLandNo, Mode: KeyRaw},
		},
		"BRANCH_CODE+UTMMAP1+UTMMAP2+UTMMAP3+UTMMAP4+UTMSCALE+LAND_NO is not unique")
	r.Gate = FieldNonZeroNumber(fieldLandNo)
	r.FullKey = true
	return r
}

func streetPairs(msg string) Rule {
	return OneToOne(fieldName, fieldCode, msg)
}

// --- catalogs ---

func parcelCatalog(d *Domains) *Catalog {
	return newCatalog(core.LayerParcel).
		require("UTMMAP1", "UTMMAP2", "UTMMAP3", "UTMMAP4", fieldScale, fieldLandNo,
			"PARCEL_TYPE", fieldChangwat, fieldBranch, "PARCEL_RN").
		text("UTMMAP1").
		numeric("UTMMAP2").
		text("UTMMAP3", "UTMMAP4").
		numeric(fieldScale, fieldLandNo, "PARCEL_TYPE").
		text(fieldChangwat, fieldBranch).
		add(
			Format("UTMMAP1",
				step(core.CheckDataFormat, DigitText(4), "UTMMAP1 must be a 4-digit string")),
			Format("UTMMAP2",
				step(core.CheckFieldType, NumberLike(), "UTMMAP2 must be a number and not empty"),
				step(core.CheckDataFormat, IntIn(IntRange(1, 4)), "UTMMAP2 must be 1 - 4")),
			Format("UTMMAP3",
				step(core.CheckDataFormat, DigitText(4), "UTMMAP3 must be a 4-digit string")),
			Conditional("UTMMAP4", nil,
				step(core.CheckDataFormat, DigitText(2), "UTMMAP4 of a PARCEL layer must be a 2-digit string"),
				step(core.CheckConditional, ScaleBand(fieldScale, 4000, "00", 0, 0),
					"UTMMAP4 must be '00' because UTMSCALE=4000"),
				step(core.CheckConditional, ScaleBand(fieldScale, 2000, "", 1, 4),
					"UTMMAP4 must be between '01'-'04' because UTMSCALE=2000"),
				step(core.CheckConditional, ScaleBand(fieldScale, 1000, "", 1, 16),
					"UTMMAP4 must be between '01'-'16' because UTMSCALE=1000"),
				step(core.CheckConditional, ScaleBand(fieldScale, 500, "", 1, 64),
					"UTMMAP4 must be between '01'-'64' because UTMSCALE=500")),
			Conditional(fieldScale, nil,
				step(core.CheckConditional, ScaleIn(d.ParcelScales),
					"UTMSCALE of a PARCEL layer must be 4000, 2000, 1000 or 500")),
			changwatFormat(),
			branchFormat(),
			branchPrefix(FieldPasses(fieldBranch, "BRANCH_CODE well formed", BranchCode())),
			numberFormat("PARCEL_RN", core.CheckFieldType, "PARCEL_RN must be a number and not empty"),
			utmUnique(),
			rnUnique("PARCEL_RN", "PARCEL_RN duplicated within BRANCH_CODE '{scope}'"),
		).
		overlap(OverlapParcel).
		build()
}

func parcelNS3KCatalog(d *Domains) *Catalog {
	return newCatalog(core.LayerParcelNS3K).
		require("UTMMAP1", "UTMMAP2", "UTMMAP3", "UTMMAP4", fieldScale, fieldLandNo,
			"PARCEL_TYPE", fieldChangwat, fieldBranch, "NS3K_RN").
		text("UTMMAP1").
		numeric("UTMMAP2").
		text("UTMMAP3", "UTMMAP4").
		numeric(fieldScale, fieldLandNo, "PARCEL_TYPE").
		text(fieldChangwat, fieldBranch).
		add(
			Format("UTMMAP1",
				step(core.CheckDataFormat, DigitText(4), "UTMMAP1 must be a 4-digit string")),
			Format("UTMMAP2",
				step(core.CheckDataFormat, NumberLike(), "UTMMAP2 must be a number"),
				step(core.CheckDataFormat, IntIn(IntRange(1, 4)), "UTMMAP2 must be between 1-4")),
			Conditional("UTMMAP3", nil,
				step(core.CheckConditional, TextEquals(d.NS3KUTMMAP3), "UTMMAP3 of an NS3K layer must be '0000'")),
			Format("UTMMAP4",
				step(core.CheckDataFormat, DigitText(3), "UTMMAP4 must be a 3-digit string")),
			Conditional(fieldScale, nil,
				step(core.CheckConditional, ScaleIn(NewIntSet(d.NS3KScale)),
					"UTMSCALE of an NS3K layer must be "+strconv.FormatInt(d.NS3KScale, 10))),
			Conditional("PARCEL_TYPE", nil,
				step(core.CheckConditional, NumberIn(NewIntSet(d.NS3KType)),
					"PARCEL_TYPE of an NS3K layer must be "+strconv.FormatInt(d.NS3KType, 10))),
			changwatFormat(),
			branchFormat(),
			branchPrefix(FieldPasses(fieldBranch, "BRANCH_CODE well formed", BranchCode())),
			numberFormat("NS3K_RN", core.CheckFieldType, "NS3K_RN must be a number"),
			utmUnique(),
			rnUnique("NS3K_RN", "NS3K_RN duplicated within BRANCH_CODE '{scope}'"),
		).
		overlap(OverlapParcel).
		build()
}

func roadCatalog(d *Domains) *Catalog {
	named := FieldNotBlank(fieldName)
	unnamed := FieldBlank(fieldName)
	both := FieldsPresent(fieldBranch, fieldChangwat)

	return newCatalog(core.LayerRoad).
		require(fieldName, fieldCode, "STREET_DEPTH", "LAND_USE", "STREET_TYPE", "STREET_WIDTH",
			"STREET_AREA", fieldBranch, "PARCEL_TYPE", fieldTD, "STREET_RN", fieldChangwat, "STREET_SMG").
		text(fieldName, fieldCode).
		numeric("STREET_DEPTH").
		text("LAND_USE", "STREET_TYPE").
		numeric("STREET_WIDTH", "STREET_AREA").
		text(fieldBranch).
		numeric("PARCEL_TYPE", fieldTD, "STREET_RN").
		text(fieldChangwat, "STREET_SMG").
		add(
			Domain("LAND_USE", named, d.LandUse, core.CheckDataSpecified,
				"LAND_USE must be one of "+d.LandUse.String()+" when STREET_NAME is set"),
			Domain("STREET_TYPE", named, d.StreetType, core.CheckDataSpecified,
				"STREET_TYPE must be one of "+d.StreetType.String()+" when STREET_NAME is set"),
			changwatFormat(),
			Conditional(fieldBranch, both,
				step(core.CheckDataFormat, BranchCode(), "BRANCH_CODE must be an 8-digit string")),
			branchPrefix(both),
			Format(fieldTD,
				step(core.CheckDataFormat, NumberLikeOrNull(), "TD_RP3_TYPE_CODE must be numeric")),
			Conditional(fieldTD, named,
				step(core.CheckDataSpecified, CodeIn(d.TDRP3, false),
					"TD_RP3_TYPE_CODE must be one of "+d.TDRP3.String()+" because STREET_NAME is set")),
			Conditional(fieldTD, unnamed,
				step(core.CheckDataSpecified, CodeIn(d.TDRP3, true),
					"TD_RP3_TYPE_CODE must be {0, None} or "+d.TDRP3.String()+" because STREET_NAME is blank")),
			Conditional(fieldName, FieldIntIn(fieldTD, d.TDRP3),
				step(core.CheckDataRequired, NotBlank(),
					"STREET_NAME must not be blank because TD_RP3_TYPE_CODE is {TD_RP3_TYPE_CODE}")),
			numberFormat("STREET_RN", core.CheckDataFormat, "STREET_RN must be a number"),
			streetPairs("{value} is linked to more than one {other} ({first} vs {next})"),
			streetRNUnique(),
		).
		overlap(OverlapRoad).
		build()
}

func blockStreetName() Rule {
	return Format(fieldName,
		step(core.CheckDataRequired, NotPlaceholder(), "STREET_NAME must not be empty, blank or '-'"))
}

func blockFixCatalog() *Catalog {
	return newCatalog(core.LayerBlockFix).
		require(fieldName, fieldCode, fieldBranch, "BLOCK_FIX_RN").
		text(fieldName, fieldCode, fieldBranch).
		numeric("BLOCK_FIX_RN").
		add(
			blockStreetName(),
			branchFormat(),
			numberFormat("BLOCK_FIX_RN", core.CheckDataFormat, "BLOCK_FIX_RN must be a number"),
			rnUnique("BLOCK_FIX_RN", "BLOCK_FIX_RN duplicated within BRANCH_CODE '{scope}'"),
			streetPairs("{value} has more than one {other}"),
		).
		overlap(OverlapBlock).
		build()
}

func blockPriceCatalog() *Catalog {
	return newCatalog(core.LayerBlockPrice).
		require(fieldName, fieldCode, fieldBranch, "BLOCK_PRICE_RN").
		text(fieldName, fieldCode, fieldBranch).
		numeric("BLOCK_PRICE_RN").
		add(
			blockStreetName(),
			branchFormat(),
			numberFormat("BLOCK_PRICE_RN", core.CheckDataFormat, "BLOCK_PRICE_RN must be a number"),
			rnUnique("BLOCK_PRICE_RN", "BLOCK_PRICE_RN duplicated within BRANCH_CODE '{scope}'"),
		).
		overlap(OverlapBlock).
		build()
}

func blockBlueCatalog(d *Domains) *Catalog {
	return newCatalog(core.LayerBlockBlue).
		require(fieldBranch, "BLOCK_BLUE_RN", "BLOCK_TYPE_ID").
		text(fieldBranch).
		numeric("BLOCK_BLUE_RN", "BLOCK_TYPE_ID").
		add(
			branchFormat(),
			numberFormat("BLOCK_BLUE_RN", core.CheckDataFormat, "BLOCK_BLUE_RN must be a number"),
			codeDomain("BLOCK_TYPE_ID", d.BlockType, NumberIn(d.BlockType),
				"BLOCK_TYPE_ID must be 1, 2 or 3"),
			rnUnique("BLOCK_BLUE_RN", "BLOCK_BLUE_RN duplicated within BRANCH_CODE '{scope}'"),
		).
		overlap(OverlapBlock).
		build()
}

func relCatalog(kind core.LayerKind, parcelRN string, d *Domains) *Catalog {
	numeric := []string{"REL_RN", parcelRN, "STREET_RN", "BLOCK_FIX_RN", "BLOCK_BLUE_RN", "BLOCK_PRICE_RN",
		"TABLE_NO", "SUB_TABLE_NO", "DEPTH_R", "DEPTH_GROUP", "START_X", "START_Y", "END_X", "END_Y"}

	b := newCatalog(kind).
		require(append([]string{fieldBranch}, numeric...)...).
		numeric(numeric...).
		add(
			branchFormat(),
			numberFormat("REL_RN", core.CheckDataFormat, "REL_RN must be a number"),
		)
	if kind == core.LayerNS3KRel {
		b.add(numberFormat(parcelRN, core.CheckDataFormat, parcelRN+" must be a number"))
	}
	b.add(
		codeDomain("TABLE_NO", d.TableNo, IntIn(d.TableNo), "TABLE_NO must be one of "+d.TableNo.String()),
		codeDomain("SUB_TABLE_NO", d.SubTableNo, Optional(IntIn(d.SubTableNo)), "SUB_TABLE_NO must be 0-6 or empty"),
	)
	for _, f := range []string{"DEPTH_R", "START_X", "START_Y", "END_X", "END_Y"} {
		b.add(Format(f, step(core.CheckDataRequired, NonZero(), f+" must not be 0 or empty")))
	}
	b.add(rnUnique("REL_RN", "REL_RN duplicated within BRANCH_CODE '{scope}'"))
	return b.build()
}
