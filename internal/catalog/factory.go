package catalog

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/database"
	"study-abroad-engine/internal/common/logger"
)

// Backends carries the connections a configured catalog may need. Unused ones may be nil.
type Backends struct {
	Postgres      *database.PostgresClient
	Elasticsearch *elasticsearch.Client
}

// NewFromConfig builds the configured primary, wraps it with the breaker fallback when one is
// configured, and fronts the result with the id cache.
func NewFromConfig(cfg config.CatalogConfig, backends Backends, log logger.Logger) (Provider, error) {
	primary, err := newBackend(cfg.Primary, cfg, backends)
	if err != nil {
		return nil, fmt.Errorf("catalog primary: %w", err)
	}

	provider := primary
	if cfg.Fallback != "" && cfg.Fallback != cfg.Primary {
		fallback, err := newBackend(cfg.Fallback, cfg, backends)
		if err != nil {
			return nil, fmt.Errorf("catalog fallback: %w", err)
		}
		provider = NewFallbackProvider(primary, fallback, BreakerSettings{
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         config.GetDuration(cfg.Breaker.Interval),
			Timeout:          config.GetDuration(cfg.Breaker.Timeout),
			FailureThreshold: cfg.Breaker.ConsecutiveFailures,
		}, log)
	}

	cached, err := NewCachedProvider(provider, cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("catalog cache: %w", err)
	}

	log.Info("catalog ready", map[string]interface{}{
		"primary":   cfg.Primary,
		"fallback":  cfg.Fallback,
		"cacheSize": cfg.CacheSize,
	})
	return cached, nil
}

func newBackend(name string, cfg config.CatalogConfig, backends Backends) (Provider, error) {
	switch name {
	case config.CatalogBackendFile, "":
		return NewFileProvider(cfg.FilePath)
	case config.CatalogBackendPostgres:
		if backends.Postgres == nil {
			return nil, fmt.Errorf("postgres backend selected but no connection is configured")
		}
		return NewPostgresProvider(backends.Postgres, cfg.Table)
	case config.CatalogBackendElasticsearch:
		if backends.Elasticsearch == nil {
			return nil, fmt.Errorf("elasticsearch backend selected but no client is configured")
		}
		return NewElasticsearchProvider(backends.Elasticsearch, cfg.Index), nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", name)
	}
}
