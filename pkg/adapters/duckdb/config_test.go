package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name: "no params",
			want: &Params{},
		},
		{
			name:    "misspelled key is rejected",
			input:   map[string]any{"extension": []any{"spatial"}},
			wantErr: true,
		},
		{
			name: "spatial survey database",
			input: map[string]any{
				"extensions": []any{"spatial"},
				"settings":   map[string]any{"threads": 2},
			},
			want: &Params{
				Extensions: []string{"spatial"},
				Settings:   map[string]string{"threads": "2"},
			},
		},
		{
			name: "zone archive attached from object storage",
			input: map[string]any{
				"extensions": []any{"spatial", "httpfs"},
				"secrets": []any{
					map[string]any{
						"type":     "s3",
						"provider": "credential_chain",
						"region":   "ap-southeast-1",
						"scope":    "s3://survey-zones",
						"use_ssl":  true,
					},
				},
			},
			want: &Params{
				Extensions: []string{"spatial", "httpfs"},
				Secrets: []SecretConfig{{
					Type:     "s3",
					Provider: "credential_chain",
					Region:   "ap-southeast-1",
					Scope:    "s3://survey-zones",
					UseSSL:   boolPtr(true),
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupStatements(t *testing.T) {
	p := &Params{
		Extensions: []string{"spatial"},
		Settings:   map[string]string{"threads": "4", "memory_limit": "4GB"},
		Secrets: []SecretConfig{{
			Type:     "s3",
			Provider: "config",
			Region:   "ap-southeast-1",
			Scope:    []any{"s3://a", "s3://b"},
			UseSSL:   boolPtr(false),
		}},
	}
	assert.Equal(t, []string{
		"INSTALL spatial",
		"LOAD spatial",
		"SET memory_limit = '4GB'",
		"SET threads = '4'",
		"CREATE OR REPLACE SECRET gdbcheck_secret_1 (TYPE s3, PROVIDER config, REGION 'ap-southeast-1', USE_SSL false, SCOPE 's3://a', SCOPE 's3://b')",
	}, p.setupStatements())

	assert.Empty(t, (&Params{}).setupStatements())
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, "spatialDROP", quoteBare("spatial; DROP"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}

func boolPtr(b bool) *bool {
	return &b
}
