// Package config provides the shared configuration types and defaults for
// gdbcheck, decoupled from CLI flag handling.
package config

import (
	"github.com/ApiratRepublic/RePublic/internal/discovery"
)

// SourceConfig configures one dataset source.
type SourceConfig struct {
	Type string `koanf:"type" yaml:"type"`

	// File sources: extensions claimed under root_dir
	Extensions []string `koanf:"extensions" yaml:"extensions,omitempty"`

	// Column overrides
	GeometryColumn string `koanf:"geometry_column" yaml:"geometry_column,omitempty"`
	OIDColumn      string `koanf:"oid_column" yaml:"oid_column,omitempty"`

	// Database sources
	DSN     string   `koanf:"dsn" yaml:"dsn,omitempty"`
	Schemas []string `koanf:"schemas" yaml:"schemas,omitempty"`

	// Params holds source-specific settings (e.g., DuckDB extensions, postgres host)
	Params map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// Discovery converts the configuration to a discovery source.
func (s SourceConfig) Discovery() discovery.Source {
	return discovery.Source{
		Type:           s.Type,
		Extensions:     s.Extensions,
		GeometryColumn: s.GeometryColumn,
		OIDColumn:      s.OIDColumn,
		DSN:            expandEnvVars(s.DSN),
		Schemas:        s.Schemas,
		Params:         s.Params,
	}
}

// DiscoverySources converts a list of source configurations.
func DiscoverySources(sources []SourceConfig) []discovery.Source {
	out := make([]discovery.Source, len(sources))
	for i, s := range sources {
		out[i] = s.Discovery()
	}
	return out
}
