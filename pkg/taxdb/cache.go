package taxdb

import (
	"context"
	"sync"
)

// Cache memoizes successful lookups for the lifetime of a run. Failed
// lookups are not cached, so a failing id re-consults the authority on
// every access. Cached slices are shared; callers must not mutate them.
type Cache struct {
	authority Resolver

	mu       sync.Mutex
	lineages map[TaxID][]TaxID
	ranks    map[TaxID]string
	names    map[TaxID]string
}

func NewCache(authority Resolver) *Cache {
	return &Cache{
		authority: authority,
		lineages:  make(map[TaxID][]TaxID),
		ranks:     make(map[TaxID]string),
		names:     make(map[TaxID]string),
	}
}

func (c *Cache) Lineage(ctx context.Context, id TaxID) ([]TaxID, error) {
	c.mu.Lock()
	cached, ok := c.lineages[id]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	lineage, err := c.authority.Lineage(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lineages[id] = lineage
	c.mu.Unlock()
	return lineage, nil
}

func (c *Cache) Rank(ctx context.Context, id TaxID) (string, error) {
	c.mu.Lock()
	cached, ok := c.ranks[id]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	rank, err := c.authority.Rank(ctx, id)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.ranks[id] = rank
	c.mu.Unlock()
	return rank, nil
}

func (c *Cache) Name(ctx context.Context, id TaxID) (string, error) {
	c.mu.Lock()
	cached, ok := c.names[id]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	name, err := c.authority.Name(ctx, id)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.names[id] = name
	c.mu.Unlock()
	return name, nil
}
