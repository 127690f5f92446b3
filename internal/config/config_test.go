package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("workers: 2\n"), 0o644))

	assert.Equal(t, root, FindProjectRoot(nested, 10))
	assert.Empty(t, FindProjectRoot(nested, 2))
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), FindConfigFile(root))
	assert.Empty(t, FindConfigFile(nested))
}

func TestDiscoverySources(t *testing.T) {
	t.Setenv("GDBCHECK_TEST_PG", "host=db dbname=gis")
	got := DiscoverySources([]SourceConfig{
		{Type: "gpkg", Extensions: []string{".gpkg"}, OIDColumn: "fid"},
		{Type: "postgres", DSN: "${GDBCHECK_TEST_PG}", Schemas: []string{"zone_a"}},
		{Type: "postgres", DSN: "${GDBCHECK_TEST_UNSET}"},
	})
	require.Len(t, got, 3)
	assert.Equal(t, "fid", got[0].OIDColumn)
	assert.Equal(t, "host=db dbname=gis", got[1].DSN)
	assert.Equal(t, []string{"zone_a"}, got[1].Schemas)
	assert.Equal(t, "${GDBCHECK_TEST_UNSET}", got[2].DSN)
}

func TestDefaultSources(t *testing.T) {
	var types []string
	for _, s := range DefaultSources() {
		types = append(types, s.Type)
	}
	assert.Equal(t, []string{"gpkg", "duckdb"}, types)
}
