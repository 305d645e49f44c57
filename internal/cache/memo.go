package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Key hashes the JSON encoding of parts into a stable content key. Inputs
// that encode identically share a key.
func Key(parts ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("cache key: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Memo memoizes computations in a Cache. Concurrent misses for the same
// key run the computation once and share its result.
type Memo[T any] struct {
	cache Cache[T]
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// MemoStats counts lookups served by a Memo.
type MemoStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

func NewMemo[T any](c Cache[T]) *Memo[T] {
	return &Memo[T]{cache: c}
}

// Do returns the cached value for key, computing and storing it on a miss.
// hit reports whether the value came from the cache. Errors are not cached.
func (m *Memo[T]) Do(key string, compute func() (T, error)) (value T, hit bool, err error) {
	if v, ok := m.cache.Get(key); ok {
		m.hits.Add(1)
		return v, true, nil
	}
	m.misses.Add(1)
	res, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.cache.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		m.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.(T), false, nil
}

// Stats returns the current entry count and lookup counters.
func (m *Memo[T]) Stats() MemoStats {
	return MemoStats{
		Entries: m.cache.Size(),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}
}

// Forget drops key from the cache.
func (m *Memo[T]) Forget(key string) {
	m.cache.Delete(key)
	m.group.Forget(key)
}
