// Package gpkg provides a GeoPackage dataset source.
//
// This file registers the source with the adapter registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/ApiratRepublic/RePublic/pkg/adapters/gpkg"
package gpkg

import (
	"log/slog"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
)

func init() {
	adapter.Register(Name, func(logger *slog.Logger) adapter.Source { return New(logger) })
}
