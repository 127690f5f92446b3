package rules

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// TextSet is an immutable set of allowed text values. Membership compares the
// trimmed, NFC-normalized form so visually identical Thai strings typed with
// different code-point sequences still match.
type TextSet struct {
	values []string
	index  map[string]struct{}
}

// NewTextSet builds a set, preserving declaration order for display.
func NewTextSet(values ...string) TextSet {
	s := TextSet{values: slices.Clone(values), index: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.index[normalizeText(v)] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member.
func (s TextSet) Contains(v string) bool {
	_, ok := s.index[normalizeText(v)]
	return ok
}

// Values returns the members in declaration order.
func (s TextSet) Values() []string { return slices.Clone(s.values) }

// String renders the set for messages.
func (s TextSet) String() string {
	return "{" + strings.Join(s.values, ", ") + "}"
}

func normalizeText(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

// IntSet is an immutable set of allowed integer codes.
type IntSet struct {
	values []int64
}

// NewIntSet builds a set; values are kept sorted.
func NewIntSet(values ...int64) IntSet {
	v := slices.Clone(values)
	slices.Sort(v)
	return IntSet{values: slices.Compact(v)}
}

// IntRange builds the set lo..hi inclusive.
func IntRange(lo, hi int64) IntSet {
	v := make([]int64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		v = append(v, i)
	}
	return IntSet{values: v}
}

// Contains reports whether v is a member.
func (s IntSet) Contains(v int64) bool {
	_, ok := slices.BinarySearch(s.values, v)
	return ok
}

// Values returns the members in ascending order.
func (s IntSet) Values() []int64 { return slices.Clone(s.values) }

// String renders the set as "[1, 2, 3]".
func (s IntSet) String() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Domains holds the constant value sets shared by the catalogs.
type Domains struct {
	LandUse      TextSet
	StreetType   TextSet
	TDRP3        IntSet
	TableNo      IntSet
	SubTableNo   IntSet
	BlockType    IntSet
	ParcelScales IntSet
	NS3KScale    int64
	NS3KType     int64
	NS3KUTMMAP3  string
}

// DefaultDomains returns the process-wide domain data. It is built once and
// must be treated as read-only.
var DefaultDomains = sync.OnceValue(func() *Domains {
	return &Domains{
		LandUse: NewTextSet(
			"พาณิชยกรรม",
			"อุตสาหกรรม",
			"พาณิชยกรรมและที่อยู่อาศัย",
			"ที่อยู่อาศัย",
			"ที่อยู่อาศัยและเกษตรกรรม",
			"ส่วนราชการ",
			"เกษตรกรรม",
			"พื้นที่ป่าสงวน",
			"พื้นที่อุทยาน",
		),
		StreetType: NewTextSet(
			"คอนกรีต",
			"ลาดยาง",
			"หินคลุก",
			"ลูกรัง",
			"ดิน",
			"น้ำ",
			"ไม้",
			"ทางไม่มีสภาพ",
		),
		TDRP3:        NewIntSet(1, 2, 3, 4, 5, 6, 8),
		TableNo:      NewIntSet(1, 2, 3, 41, 42, 5, 6, 7),
		SubTableNo:   IntRange(0, 6),
		BlockType:    NewIntSet(1, 2, 3),
		ParcelScales: NewIntSet(4000, 2000, 1000, 500),
		NS3KScale:    5000,
		NS3KType:     3,
		NS3KUTMMAP3:  "0000",
	}
})
