// Package regmap implements the concurrent-map discipline spec.md §5
// requires of every process-global registry (tunnel, table-id, port,
// flow-id, miss-context): many concurrent readers, a single mutator at
// a time, and deferred reclamation of anything a reader might still be
// holding a pointer to across a concurrent Delete. The teacher guards
// its own shared maps (rw_core's device/logical-device maps) with a
// plain sync.RWMutex; this generalizes that idiom into a reusable
// generic type and adds the epoch hook the spec's reclamation
// requirement needs, which the teacher's maps never needed because
// they never freed anything out from under a reader.
package regmap

import (
	"sync"

	"github.com/flowcore/nicoffload/internal/epoch"
)

// Map is a concurrent map[K]V with RWMutex semantics: Get/Range take
// the read lock, Set/Delete/Update take the write lock. Delete defers
// the actual cleanup of the removed value to a Reclaimer so in-flight
// readers that fetched the value before the delete can keep using it.
type Map[K comparable, V any] struct {
	mu   sync.RWMutex
	m    map[K]V
	recl *epoch.Reclaimer
}

// New returns an empty Map. recl may be nil, in which case Delete runs
// any cleanup immediately instead of deferring it.
func New[K comparable, V any](recl *epoch.Reclaimer) *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V), recl: recl}
}

// Get returns the value for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[key]
	return v, ok
}

// Set inserts or overwrites key's value.
func (m *Map[K, V]) Set(key K, val V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = val
}

// Delete removes key from the map immediately — no new lookup will
// find it — and, if cleanup is non-nil, arranges for cleanup(oldValue)
// to run once every reader that could have observed the old value
// before this call has quiesced. Returns the removed value and whether
// it was present.
func (m *Map[K, V]) Delete(key K, cleanup func(V)) (V, bool) {
	m.mu.Lock()
	old, ok := m.m[key]
	delete(m.m, key)
	m.mu.Unlock()

	if ok && cleanup != nil {
		if m.recl != nil {
			m.recl.Defer(func() { cleanup(old) })
		} else {
			cleanup(old)
		}
	}
	return old, ok
}

// Update atomically fetches key, applies fn, and stores the result.
// fn is called under the write lock; it must not call back into m.
func (m *Map[K, V]) Update(key K, fn func(old V, ok bool) V) V {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.m[key]
	nv := fn(old, ok)
	m.m[key] = nv
	return nv
}

// Range calls fn for every entry under the read lock. Range stops
// early if fn returns false. fn must not call back into m.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.m {
		if !fn(k, v) {
			return
		}
	}
}

// Len returns the number of entries currently in the map.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}
