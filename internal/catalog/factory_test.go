package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/logger"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CatalogConfig
		wantErr bool
	}{
		{
			name: "file primary",
			cfg:  config.CatalogConfig{Primary: config.CatalogBackendFile, FilePath: "testdata/universities.json", CacheSize: 16},
		},
		{
			name:    "postgres without a connection",
			cfg:     config.CatalogConfig{Primary: config.CatalogBackendPostgres},
			wantErr: true,
		},
		{
			name:    "elasticsearch fallback without a client",
			cfg:     config.CatalogConfig{Primary: config.CatalogBackendFile, Fallback: config.CatalogBackendElasticsearch, FilePath: "testdata/universities.json"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     config.CatalogConfig{Primary: "mongodb"},
			wantErr: true,
		},
		{
			name:    "missing file",
			cfg:     config.CatalogConfig{Primary: config.CatalogBackendFile, FilePath: "testdata/nope.json"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewFromConfig(tt.cfg, Backends{}, logger.NewTestLogger(t))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			u, err := p.GetByID(context.Background(), 2)
			require.NoError(t, err)
			assert.Equal(t, "Harbor State University", u.Name)
			assert.Equal(t, "file", BackendName(p))
		})
	}
}

func TestNewFromConfig_SameFallbackIsIgnored(t *testing.T) {
	cfg := config.CatalogConfig{
		Primary:  config.CatalogBackendFile,
		Fallback: config.CatalogBackendFile,
		FilePath: "testdata/universities.json",
	}
	p, err := NewFromConfig(cfg, Backends{}, logger.NewNoOpLogger())
	require.NoError(t, err)

	// same primary and fallback collapses to a single backend
	_, isCached := p.(*CachedProvider)
	assert.True(t, isCached)
	assert.Equal(t, "file", BackendName(p))
}
