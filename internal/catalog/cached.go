package catalog

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"study-abroad-engine/internal/models"
)

const defaultCacheSize = 512

// CachedProvider keeps recently fetched universities in a bounded LRU. Search and Filter
// always reach the inner provider.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[int64, models.University]
}

func NewCachedProvider(inner Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[int64, models.University](size)
	if err != nil {
		return nil, err
	}
	return &CachedProvider{inner: inner, cache: cache}, nil
}

func (p *CachedProvider) Name() string { return BackendName(p.inner) }

func (p *CachedProvider) GetByID(ctx context.Context, id int64) (*models.University, error) {
	if u, ok := p.cache.Get(id); ok {
		c := u.Clone()
		return &c, nil
	}
	u, err := p.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.cache.Add(id, u.Clone())
	return u, nil
}

func (p *CachedProvider) Search(ctx context.Context, text string) ([]models.University, error) {
	return p.inner.Search(ctx, text)
}

func (p *CachedProvider) Filter(ctx context.Context, f Filter) ([]models.University, error) {
	return p.inner.Filter(ctx, f)
}

// Purge drops every cached record.
func (p *CachedProvider) Purge() {
	p.cache.Purge()
}

func (p *CachedProvider) Len() int {
	return p.cache.Len()
}
