package tunnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/nicoffload/internal/epoch"
)

func TestGetOrAllocHitIncrementsRefcount(t *testing.T) {
	r := New(nil)
	k := Key{DstIP: 1, SrcIP: 2, TunID: 3}

	id1 := r.GetOrAlloc(k)
	require.NotEqual(t, InvalidOuterID, id1)

	id2 := r.GetOrAlloc(k)
	assert.Equal(t, id1, id2, "a hit must return the same outer-id")
	assert.Equal(t, 1, r.Len())
}

func TestLookupByID(t *testing.T) {
	r := New(nil)
	k := Key{DstIP: 10, SrcIP: 20, TunID: 30}
	id := r.GetOrAlloc(k)

	got, ok := r.LookupByID(id)
	require.True(t, ok)
	assert.Equal(t, k, got)
}

func TestUnrefRemovesOnZero(t *testing.T) {
	recl := epoch.New()
	r := New(recl)
	k := Key{DstIP: 1, SrcIP: 1, TunID: 1}

	id := r.GetOrAlloc(k)
	r.GetOrAlloc(k) // refcount now 2

	r.Unref(k)
	_, ok := r.LookupByID(id)
	assert.True(t, ok, "still referenced once, must remain")

	r.Unref(k)
	_, ok = r.LookupByID(id)
	assert.False(t, ok, "key must be gone from lookups immediately")

	recl.Tick()
	recl.Tick()

	reused := r.GetOrAlloc(Key{DstIP: 99, SrcIP: 99, TunID: 99})
	assert.Equal(t, id, reused, "the freed id must be returned to the pool after quiescence")
}

func TestExhaustionReturnsInvalidSentinelWithoutMutation(t *testing.T) {
	reg := New(nil)
	// Drain the pool directly so GetOrAlloc sees exhaustion without
	// needing 65535 distinct triples.
	for {
		if _, ok := reg.ids.Alloc(); !ok {
			break
		}
	}

	before := reg.Len()
	got := reg.GetOrAlloc(Key{DstIP: 1, SrcIP: 1, TunID: 1})
	assert.Equal(t, InvalidOuterID, got)
	assert.Equal(t, before, reg.Len(), "exhaustion must not mutate the registry")
}
