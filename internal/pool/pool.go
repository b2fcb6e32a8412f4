// Package pool implements the fixed-range identifier pools spec.md
// §4.A describes: allocate any free id in [base, limit), free it back,
// refuse allocation when exhausted, and treat a double-free as fatal.
// There is no third-party bitset library in the example corpus (the
// closest analogue, a sharded sync.Map, solves a different problem);
// a single mutex plus a free-list is the teacher's own idiom for small
// guarded counters (see rw_core's per-component locks), generalized
// here to a reusable range allocator.
package pool

import (
	"fmt"
	"sync"

	"github.com/flowcore/nicoffload/internal/corelog"
)

var logger = corelog.AddPackage("pool")

// Pool allocates ids from [base, limit). Freed ids are reused first
// (most recently freed first); when none is free, the next
// never-issued id in the range is handed out, in ascending order.
type Pool struct {
	mu       sync.Mutex
	base     uint32
	limit    uint32
	next     uint32 // next never-yet-issued id, grows toward limit
	free     []uint32
	allocated map[uint32]bool
}

// New returns a pool covering [base, limit). Panics if base >= limit,
// a construction-time programming error rather than a runtime failure.
func New(base, limit uint32) *Pool {
	if base >= limit {
		panic(fmt.Sprintf("pool: invalid range [%d, %d)", base, limit))
	}
	return &Pool{
		base:      base,
		limit:     limit,
		next:      base,
		allocated: make(map[uint32]bool),
	}
}

// Alloc returns a free id and true, or (0, false) if the pool is
// exhausted (spec.md §4.A: "must refuse allocation when exhausted").
func (p *Pool) Alloc() (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		p.allocated[id] = true
		return id, true
	}
	if p.next >= p.limit {
		return 0, false
	}
	id := p.next
	p.next++
	p.allocated[id] = true
	return id, true
}

// Free returns id to the pool. A double-free is an invariant violation
// (spec.md §7): fatal, not a returned error, because it represents a
// bug in the caller's bookkeeping.
func (p *Pool) Free(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.allocated[id] {
		logger.Fatalw("pool-double-free", corelog.Fields{"id": id, "base": p.base, "limit": p.limit})
		return
	}
	delete(p.allocated, id)
	p.free = append(p.free, id)
}

// Len returns the number of currently-allocated ids, for metrics and
// tests.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.allocated)
}

// Capacity returns limit - base.
func (p *Pool) Capacity() uint32 {
	return p.limit - p.base
}
