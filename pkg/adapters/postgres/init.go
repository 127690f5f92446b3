// Package postgres provides a PostGIS dataset source. Each schema of a
// database is one dataset and each base table in it is a layer.
//
// This file registers the source with the adapter registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/ApiratRepublic/RePublic/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
)

func init() {
	adapter.Register(Name, func(logger *slog.Logger) adapter.Source { return New(logger) })
}
