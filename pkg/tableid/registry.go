// Package tableid implements the table-id registry spec.md §4.C
// describes: a mirror of pkg/tunnel with two independent key spaces —
// recirculation ids and port ids — sharing one hw-table-id pool in
// [64, 65280). Grounded the same way as pkg/tunnel (DESIGN.md); the
// two key spaces are modeled as two Registry instances over one shared
// *pool.Pool rather than duplicating the allocator.
package tableid

import (
	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/epoch"
	"github.com/flowcore/nicoffload/internal/pool"
	"github.com/flowcore/nicoffload/internal/regmap"
	"github.com/flowcore/nicoffload/pkg/offload"
)

var logger = corelog.AddPackage("tableid")

// Base and Limit of the dynamic table range spec.md §3 and §4.A define:
// [64, 65280).
const (
	Base  = uint32(offload.DynamicTableBase)
	Limit = uint32(offload.DynamicTableLimit)
)

// Kind distinguishes the two key spaces the shared pool serves.
type Kind int

const (
	KindRecirc Kind = iota
	KindPort
)

type entry struct {
	key      uint32
	tableID  offload.TableID
	kind     Kind
	refcount int
}

// Pool is the single hw-table-id allocator shared by a recirc-id
// registry and a port-id registry, per spec.md §4.C ("two distinct key
// spaces... sharing one id pool").
type Pool struct {
	ids    *pool.Pool
	recirc *Registry
	port   *Registry
}

// NewPool constructs the shared pool and its two key-space registries.
func NewPool(recl *epoch.Reclaimer) *Pool {
	p := &Pool{ids: pool.New(Base, Limit)}
	p.recirc = &Registry{kind: KindRecirc, ids: p.ids, byKey: regmap.New[uint32, *entry](recl), byTable: regmap.New[offload.TableID, *entry](recl)}
	p.port = &Registry{kind: KindPort, ids: p.ids, byKey: regmap.New[uint32, *entry](recl), byTable: regmap.New[offload.TableID, *entry](recl)}
	return p
}

// Recirc returns the recirc-id key-space registry.
func (p *Pool) Recirc() *Registry { return p.recirc }

// Port returns the port-id key-space registry.
func (p *Pool) Port() *Registry { return p.port }

// Registry interns one key space (recirc-id or port-id) into hw-table
// ids drawn from the pool it shares with its sibling key space.
type Registry struct {
	kind    Kind
	ids     *pool.Pool
	byKey   *regmap.Map[uint32, *entry]
	byTable *regmap.Map[offload.TableID, *entry]
}

// GetOrAlloc interns key (a recirc-id or a port-id depending on which
// Registry this is), lazily allocating a new hw-table-id on first
// reference ("allocation is lazy: the first caller... triggers
// creation of a new hardware table", spec.md §4.C). Returns
// offload.TableUnknown on exhaustion, never mutating the registry.
func (r *Registry) GetOrAlloc(key uint32) offload.TableID {
	if e, ok := r.byKey.Get(key); ok {
		e.refcount++
		return e.tableID
	}

	id, ok := r.ids.Alloc()
	if !ok {
		logger.Warnw("tableid-pool-exhausted", corelog.Fields{"key": key, "kind": r.kind})
		return offload.TableUnknown
	}

	created := false
	e := r.byKey.Update(key, func(old *entry, exists bool) *entry {
		if exists {
			old.refcount++
			return old
		}
		created = true
		return &entry{key: key, tableID: offload.TableID(id), kind: r.kind, refcount: 1}
	})
	if !created {
		r.ids.Free(id)
		return e.tableID
	}
	r.byTable.Set(e.tableID, e)
	return e.tableID
}

// Unref decrements key's refcount, freeing the hw-table-id back to the
// shared pool once it reaches zero.
func (r *Registry) Unref(key uint32) {
	e, ok := r.byKey.Get(key)
	if !ok {
		logger.Warnw("tableid-unref-missing", corelog.Fields{"key": key, "kind": r.kind})
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
	r.byTable.Delete(e.tableID, func(*entry) {
		r.ids.Free(uint32(e.tableID))
	})
}

// LookupByTable returns the external key (recirc-id or port-id)
// interned under tableID.
func (r *Registry) LookupByTable(tableID offload.TableID) (uint32, bool) {
	e, ok := r.byTable.Get(tableID)
	if !ok {
		return 0, false
	}
	return e.key, true
}

// Len returns the number of currently-interned keys in this key space.
func (r *Registry) Len() int {
	return r.byKey.Len()
}

// Snapshot is one interned key, exported for internal/snapshot's
// registry-state persistence.
type Snapshot struct {
	Key      uint32
	TableID  offload.TableID
	Refcount int
}

// Entries returns every currently-interned key in this key space, for
// internal/snapshot.
func (r *Registry) Entries() []Snapshot {
	var out []Snapshot
	r.byKey.Range(func(_ uint32, e *entry) bool {
		out = append(out, Snapshot{Key: e.key, TableID: e.tableID, Refcount: e.refcount})
		return true
	})
	return out
}
