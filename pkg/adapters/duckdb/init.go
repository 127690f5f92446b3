package duckdb

import (
	"log/slog"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
)

func init() {
	adapter.Register(Name, func(logger *slog.Logger) adapter.Source { return New(logger) })
}
