package core

import (
	"regexp"
	"strings"
)

// LayerKind is the closed set of layer families the rule catalogs know about.
type LayerKind int

// Layer kinds, in classification order.
const (
	LayerUnknown LayerKind = iota
	LayerParcel
	LayerParcelNS3K
	LayerRoad
	LayerBlockFix
	LayerBlockPrice
	LayerBlockBlue
	LayerParcelRel
	LayerNS3KRel
)

type layerKindInfo struct {
	name    string
	pattern *regexp.Regexp
}

var layerKinds = map[LayerKind]layerKindInfo{
	LayerParcel:     {"PARCEL", regexp.MustCompile(`^PARCEL_\p{Nd}{2}_\p{Nd}{2}$`)},
	LayerParcelNS3K: {"PARCEL_NS3K", regexp.MustCompile(`^PARCEL_\p{Nd}{2}_NS3K_\p{Nd}{2}$`)},
	LayerRoad:       {"ROAD", regexp.MustCompile(`^ROAD_\p{Nd}{2}$`)},
	LayerBlockFix:   {"BLOCK_FIX", regexp.MustCompile(`^BLOCK_FIX_\p{Nd}{2}$`)},
	LayerBlockPrice: {"BLOCK_PRICE", regexp.MustCompile(`^BLOCK_PRICE_\p{Nd}{2}$`)},
	LayerBlockBlue:  {"BLOCK_BLUE", regexp.MustCompile(`^BLOCK_BLUE_\p{Nd}{2}$`)},
	LayerParcelRel:  {"PARCEL_REL", regexp.MustCompile(`^PARCEL_REL_\p{Nd}{2}$`)},
	LayerNS3KRel:    {"NS3K_REL", regexp.MustCompile(`^NS3K_REL_\p{Nd}{2}$`)},
}

// LayerKinds returns the known kinds in classification order.
func LayerKinds() []LayerKind {
	return []LayerKind{
		LayerParcel, LayerParcelNS3K, LayerRoad, LayerBlockFix,
		LayerBlockPrice, LayerBlockBlue, LayerParcelRel, LayerNS3KRel,
	}
}

// String returns the kind's canonical name, e.g. "BLOCK_FIX".
func (k LayerKind) String() string {
	if info, ok := layerKinds[k]; ok {
		return info.name
	}
	return "UNKNOWN"
}

// Pattern returns the layer-name pattern for the kind, or "" for unknown kinds.
func (k LayerKind) Pattern() string {
	if info, ok := layerKinds[k]; ok {
		return info.pattern.String()
	}
	return ""
}

// Matches reports whether a layer name matches this kind's pattern, ignoring case.
func (k LayerKind) Matches(layer string) bool {
	info, ok := layerKinds[k]
	if !ok {
		return false
	}
	return info.pattern.MatchString(strings.ToUpper(strings.TrimSpace(layer)))
}

// ClassifyLayer matches a layer name against every pattern in order and
// returns the first kind that matches.
func ClassifyLayer(layer string) (LayerKind, bool) {
	for _, k := range LayerKinds() {
		if k.Matches(layer) {
			return k, true
		}
	}
	return LayerUnknown, false
}

// ParseLayerKind resolves a canonical kind name case-insensitively.
func ParseLayerKind(s string) (LayerKind, bool) {
	for _, k := range LayerKinds() {
		if strings.EqualFold(k.String(), strings.TrimSpace(s)) {
			return k, true
		}
	}
	return LayerUnknown, false
}
