package taxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// countingAuthority serves fixed answers and counts how often each lookup
// actually reaches it.
type countingAuthority struct {
	mu       sync.Mutex
	lineages map[TaxID][]TaxID
	ranks    map[TaxID]string
	names    map[TaxID]string
	calls    int
}

func (a *countingAuthority) bump() {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
}

func (a *countingAuthority) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *countingAuthority) Lineage(_ context.Context, id TaxID) ([]TaxID, error) {
	a.bump()
	if l, ok := a.lineages[id]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("taxid %d: %w", id, ErrTaxonNotFound)
}

func (a *countingAuthority) Rank(_ context.Context, id TaxID) (string, error) {
	a.bump()
	if r, ok := a.ranks[id]; ok {
		return r, nil
	}
	return "", fmt.Errorf("taxid %d: %w", id, ErrTaxonNotFound)
}

func (a *countingAuthority) Name(_ context.Context, id TaxID) (string, error) {
	a.bump()
	if n, ok := a.names[id]; ok {
		return n, nil
	}
	return "", fmt.Errorf("taxid %d: %w", id, ErrTaxonNotFound)
}

func newCountingAuthority() *countingAuthority {
	return &countingAuthority{
		lineages: map[TaxID][]TaxID{562: {1, 561, 562}},
		ranks:    map[TaxID]string{562: "species"},
		names:    map[TaxID]string{562: "Escherichia coli"},
	}
}

func TestCacheMemoizesSuccesses(t *testing.T) {
	authority := newCountingAuthority()
	cache := NewCache(authority)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		lineage, err := cache.Lineage(ctx, 562)
		if err != nil {
			t.Fatalf("Lineage: %v", err)
		}
		if len(lineage) != 3 || lineage[2] != 562 {
			t.Fatalf("unexpected lineage %v", lineage)
		}
		if _, err := cache.Rank(ctx, 562); err != nil {
			t.Fatalf("Rank: %v", err)
		}
		if _, err := cache.Name(ctx, 562); err != nil {
			t.Fatalf("Name: %v", err)
		}
	}

	if got := authority.callCount(); got != 3 {
		t.Errorf("authority consulted %d times, want 3 (one per operation)", got)
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	authority := newCountingAuthority()
	cache := NewCache(authority)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.Lineage(ctx, 42); !errors.Is(err, ErrTaxonNotFound) {
			t.Fatalf("Lineage(42): got %v, want ErrTaxonNotFound", err)
		}
	}

	if got := authority.callCount(); got != 2 {
		t.Errorf("authority consulted %d times, want 2 (failures re-consult)", got)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	authority := newCountingAuthority()
	cache := NewCache(authority)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lineage, err := cache.Lineage(ctx, 562)
			if err != nil || len(lineage) != 3 {
				t.Errorf("concurrent Lineage: %v %v", lineage, err)
			}
		}()
	}
	wg.Wait()
}
