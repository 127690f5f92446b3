// Package adapter provides the dataset source contract and the shared
// database/sql implementation used by the concrete sources.
//
// This package contains the public contract that all sources must implement.
// Concrete implementations are in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"
	"log/slog"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Source opens datasets of one storage kind.
type Source interface {
	// Name returns the registered type name.
	Name() string

	// Open opens one dataset described by cfg. The dataset owns its
	// connection until Close.
	Open(ctx context.Context, cfg core.SourceConfig) (core.Dataset, error)
}

// Discoverer is implemented by sources whose datasets are not files, such
// as database schemas. Discover returns one SourceConfig per dataset.
type Discoverer interface {
	Discover(ctx context.Context, cfg core.SourceConfig) ([]core.SourceConfig, error)
}

// Factory constructs a source. A nil logger is replaced with a discard logger.
type Factory func(logger *slog.Logger) Source

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
