package domain

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"pkgabidiff.dev/pkg/pkgabidiff/internal/adapter"
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// DefaultSymbolCacheSize is the smallest number of memoized symbol counts.
const DefaultSymbolCacheSize = 1024

// SymbolCacheSize returns a cache size that holds one count per old object,
// so no count is evicted during a run.
func SymbolCacheSize(objects int) int {
	return max(objects, DefaultSymbolCacheSize)
}

// SymbolCounts memoizes symbol counts per dump for the duration of a run.
type SymbolCounts struct {
	counter adapter.SymbolCounter
	cache   *lru.Cache
	group   singleflight.Group
}

// NewSymbolCounts constructs a SymbolCounts holding up to size entries.
func NewSymbolCounts(counter adapter.SymbolCounter, size int) (*SymbolCounts, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create symbol count cache: %w", err)
	}

	return &SymbolCounts{counter: counter, cache: cache}, nil
}

// Count returns the number of symbols in dump, asking the counter once.
func (s *SymbolCounts) Count(ctx context.Context, dump m.Path) (int, error) {
	if v, ok := s.cache.Get(dump); ok {
		if n, ok := v.(int); ok {
			return n, nil
		}
	}

	v, err, _ := s.group.Do(string(dump), func() (interface{}, error) {
		if v, ok := s.cache.Get(dump); ok {
			return v, nil
		}

		n, err := s.counter.CountSymbols(ctx, dump)
		if err != nil {
			return 0, err
		}

		s.cache.Add(dump, n)

		return n, nil
	})
	if err != nil {
		return 0, err
	}

	n, _ := v.(int)

	return n, nil
}
