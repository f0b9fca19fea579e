package sqlite

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

const (
	cacheMaxEntries = 1 << 14
	cacheCounters   = cacheMaxEntries * 10
)

// recordCache is a read-through cache of records keyed by id. Each
// repository owns one; values are cloned on the way in and out so callers
// never share memory with the cache.
type recordCache[T any] struct {
	c     *ristretto.Cache
	clone func(T) T
}

func newRecordCache[T any](clone func(T) T) (*recordCache[T], error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheCounters,
		MaxCost:     cacheMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating record cache: %w", err)
	}
	return &recordCache[T]{c: c, clone: clone}, nil
}

func (rc *recordCache[T]) get(id string) (T, bool) {
	var zero T
	v, ok := rc.c.Get(id)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return rc.clone(t), true
}

// put stores v and waits for the write to land so a later invalidate cannot
// be overtaken by a buffered set.
func (rc *recordCache[T]) put(id string, v T) {
	rc.c.Set(id, rc.clone(v), 1)
	rc.c.Wait()
}

func (rc *recordCache[T]) invalidate(id string) {
	rc.c.Del(id)
}

func (rc *recordCache[T]) close() {
	rc.c.Close()
}
