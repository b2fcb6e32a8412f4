package tableid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/nicoffload/internal/epoch"
	"github.com/flowcore/nicoffload/pkg/offload"
)

func TestRecircAndPortShareOnePool(t *testing.T) {
	p := NewPool(nil)

	t1 := p.Recirc().GetOrAlloc(1)
	require.NotEqual(t, offload.TableUnknown, t1)

	t2 := p.Port().GetOrAlloc(1) // same external key, different key space
	require.NotEqual(t, offload.TableUnknown, t2)
	assert.NotEqual(t, t1, t2, "recirc and port key spaces must not collide even with the same external key")
}

func TestGetOrAllocHitIncrementsRefcount(t *testing.T) {
	p := NewPool(nil)
	id1 := p.Recirc().GetOrAlloc(5)
	id2 := p.Recirc().GetOrAlloc(5)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, p.Recirc().Len())
}

func TestUnrefFreesIdBackToSharedPool(t *testing.T) {
	recl := epoch.New()
	p := NewPool(recl)

	id := p.Recirc().GetOrAlloc(1)
	p.Recirc().Unref(1)

	_, ok := p.Recirc().LookupByTable(id)
	assert.False(t, ok)

	recl.Tick()
	recl.Tick()

	reused := p.Port().GetOrAlloc(999)
	assert.Equal(t, id, reused, "the freed hw-table-id must be reusable by the other key space")
}

func TestLookupByTable(t *testing.T) {
	p := NewPool(nil)
	id := p.Port().GetOrAlloc(7)
	key, ok := p.Port().LookupByTable(id)
	require.True(t, ok)
	assert.Equal(t, uint32(7), key)
}
