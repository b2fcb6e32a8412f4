// Package epoch implements the deferred-reclamation scheme spec.md §5
// requires of every process-global map: a reader that obtained a
// pointer before a concurrent remove must be able to safely dereference
// it until the next quiescent boundary. No pack example vendors a
// lock-free concurrent map with epoch reclamation (DPDK's cmap/ovsrcu,
// which the reference C implementation uses, has no Go equivalent in
// the corpus), so this is deliberately the simplest scheme that
// satisfies the contract: frees are queued, and a background ticker —
// the same goroutine+ticker shutdown idiom the teacher uses for its
// Kafka reconnect loop (kafka/sarama_client.go) — age them out once
// enough ticks have passed that every reader active at removal time
// must have finished (spec.md §5: "preprocess" never suspends, so one
// tick longer than any single control-plane call is a safe quiescence
// window).
package epoch

import (
	"sync"
	"time"
)

// quiesceTicks is how many Tick calls a deferred free waits before it
// runs. Two is enough under a single global ticker: a free queued just
// before a tick is guaranteed to wait for one full subsequent tick
// interval, which spec.md §5 asserts suffices because preprocess has no
// suspension points and control operations do not hold references
// across tick boundaries.
const quiesceTicks = 2

type batch struct {
	tick  uint64
	frees []func()
}

// Reclaimer queues cleanup functions and runs each only after the
// quiescence window has elapsed.
type Reclaimer struct {
	mu      sync.Mutex
	tick    uint64
	pending []batch

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New returns a Reclaimer with no background ticker running; call Run
// to start one, or Tick manually from tests.
func New() *Reclaimer {
	return &Reclaimer{stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

// Defer queues free to run after the next quiescence window. free must
// be idempotent-safe to skip entirely if the Reclaimer is stopped
// before it runs (process shutdown order doesn't guarantee drains).
func (r *Reclaimer) Defer(free func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.pending); n > 0 && r.pending[n-1].tick == r.tick {
		r.pending[n-1].frees = append(r.pending[n-1].frees, free)
		return
	}
	r.pending = append(r.pending, batch{tick: r.tick, frees: []func(){free}})
}

// Tick advances the epoch and runs every batch old enough to have
// outlived quiesceTicks.
func (r *Reclaimer) Tick() {
	r.mu.Lock()
	r.tick++
	cutoff := r.tick
	var ready []func()
	kept := r.pending[:0]
	for _, b := range r.pending {
		if cutoff-b.tick >= quiesceTicks {
			ready = append(ready, b.frees...)
		} else {
			kept = append(kept, b)
		}
	}
	r.pending = kept
	r.mu.Unlock()

	for _, f := range ready {
		f()
	}
}

// Run starts a background goroutine that calls Tick every interval
// until Stop is called.
func (r *Reclaimer) Run(interval time.Duration) {
	go func() {
		defer close(r.doneCh)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				r.Tick()
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop halts the background ticker and waits for it to exit. Any
// frees still pending are dropped, matching process-shutdown semantics
// (the hardware/driver state they referenced is going away with the
// process too).
func (r *Reclaimer) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	<-r.doneCh
}

// Pending reports how many deferred frees have not yet run, for tests
// and metrics.
func (r *Reclaimer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.pending {
		n += len(b.frees)
	}
	return n
}
