// Package tunnel implements the tunnel registry spec.md §4.B describes:
// interning (dst-IP, src-IP, tun-id) triples into a small dense
// outer-id with a refcount, so the translator can match hardware rules
// on a single register instead of the full triple. Grounded on the
// teacher's device-registry pattern (rw_core/core/device keeps a
// refcounted proxy per logical object in db/model); generalized here
// onto internal/pool + internal/regmap per DESIGN.md.
package tunnel

import (
	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/epoch"
	"github.com/flowcore/nicoffload/internal/pool"
	"github.com/flowcore/nicoffload/internal/regmap"
)

var logger = corelog.AddPackage("tunnel")

// InvalidOuterID is the sentinel spec.md §4.B returns from GetOrAlloc on
// pool exhaustion. Matches the reference's 0xffff_ffff, truncated into
// a 16-bit intern space: spec.md §4.A allocates outer-ids from
// [1, 65536), so no valid id can ever equal this 32-bit sentinel value.
const InvalidOuterID uint32 = 0xffff_ffff

// Key identifies a tunnel by its 3-tuple.
type Key struct {
	DstIP uint32
	SrcIP uint32
	TunID uint64
}

type entry struct {
	key      Key
	outerID  uint32
	refcount int
}

// Registry interns tunnel triples into outer-ids with refcounting.
// The key→entry and outer-id→entry maps always agree on membership
// (spec.md §3's "two maps... always agree").
type Registry struct {
	ids     *pool.Pool
	byKey   *regmap.Map[Key, *entry]
	byOuter *regmap.Map[uint32, *entry]
}

// New returns an empty Registry backed by the outer-id pool [1, 65536)
// spec.md §4.A specifies, with entries reclaimed through recl.
func New(recl *epoch.Reclaimer) *Registry {
	return &Registry{
		ids:     pool.New(1, 65536),
		byKey:   regmap.New[Key, *entry](recl),
		byOuter: regmap.New[uint32, *entry](recl),
	}
}

// GetOrAlloc interns key, returning its outer-id. On a hit, the
// refcount is incremented and the existing id returned. On a miss, a
// new id is allocated from the pool and inserted into both maps. If
// the pool is exhausted, InvalidOuterID is returned and the registry
// is not mutated.
func (r *Registry) GetOrAlloc(key Key) uint32 {
	if e, ok := r.byKey.Get(key); ok {
		e.refcount++
		return e.outerID
	}

	id, ok := r.ids.Alloc()
	if !ok {
		logger.Warnw("tunnel-pool-exhausted", corelog.Fields{"key": key})
		return InvalidOuterID
	}

	// Re-check under the map's own serialization: Get/insert here isn't
	// atomic across byKey.Get and Set, but spec.md §5 places flow_put
	// serialization (and thus tunnel interning for one key) above the
	// core; concurrent GetOrAlloc for *different* flow-ids referring to
	// the *same* triple racing here is the one case this would double
	// allocate. Guard it explicitly via Update's atomic fetch-and-store.
	created := false
	e := r.byKey.Update(key, func(old *entry, exists bool) *entry {
		if exists {
			old.refcount++
			return old
		}
		created = true
		return &entry{key: key, outerID: id, refcount: 1}
	})
	if !created {
		r.ids.Free(id)
		return e.outerID
	}
	r.byOuter.Set(id, e)
	return id
}

// Unref decrements key's refcount. At zero, the entry is removed from
// both maps, its id returned to the pool, and the entry memory
// scheduled for deferred reclamation.
func (r *Registry) Unref(key Key) {
	e, ok := r.byKey.Get(key)
	if !ok {
		logger.Warnw("tunnel-unref-missing", corelog.Fields{"key": key})
		return
	}

	zero := false
	r.byKey.Update(key, func(old *entry, exists bool) *entry {
		if !exists {
			return old
		}
		old.refcount--
		if old.refcount <= 0 {
			zero = true
		}
		return old
	})
	if !zero {
		return
	}

	r.byKey.Delete(key, nil)
	r.byOuter.Delete(e.outerID, func(*entry) {
		r.ids.Free(e.outerID)
	})
}

// LookupByID returns the triple interned under outerID, used by the
// preprocessor to restore packet metadata on miss.
func (r *Registry) LookupByID(outerID uint32) (Key, bool) {
	e, ok := r.byOuter.Get(outerID)
	if !ok {
		return Key{}, false
	}
	return e.key, true
}

// Len returns the number of currently-interned triples, for tests and
// metrics.
func (r *Registry) Len() int {
	return r.byKey.Len()
}

// Snapshot is one interned triple, exported for internal/snapshot's
// registry-state persistence.
type Snapshot struct {
	Key      Key
	OuterID  uint32
	Refcount int
}

// Entries returns every currently-interned triple, for internal/snapshot.
func (r *Registry) Entries() []Snapshot {
	var out []Snapshot
	r.byKey.Range(func(_ Key, e *entry) bool {
		out = append(out, Snapshot{Key: e.key, OuterID: e.outerID, Refcount: e.refcount})
		return true
	})
	return out
}
