package flowreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
)

type fakeNetdev struct{ dpPort uint32 }

func (f *fakeNetdev) DpPort() uint32            { return f.dpPort }
func (f *fakeNetdev) NumRxQueues() uint16       { return 1 }
func (f *fakeNetdev) HwPortID() uint16          { return 0 }
func (f *fakeNetdev) IsUplink() bool            { return true }
func (f *fakeNetdev) TypeString() string        { return "dpdk" }
func (f *fakeNetdev) PopHeader(p []byte) []byte { return p }

func setup() (*porttable.Table, *Registry) {
	ports := porttable.New(nil)
	ports.Add(&fakeNetdev{dpPort: 1}, 1, 0)
	return ports, New(ports, nil)
}

func TestPutThenLookup(t *testing.T) {
	_, reg := setup()
	id := offload.NewFlowID()
	rec := offload.NewRecord(id, 1)

	old, err := reg.Put(1, rec)
	require.NoError(t, err)
	assert.Nil(t, old)

	dp, ok := reg.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, uint32(1), dp)
}

func TestPutReplacesExisting(t *testing.T) {
	_, reg := setup()
	id := offload.NewFlowID()
	recA := offload.NewRecord(id, 1)
	recB := offload.NewRecord(id, 1)

	_, err := reg.Put(1, recA)
	require.NoError(t, err)
	old, err := reg.Put(1, recB)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Same(t, recA, old)

	got, ok := reg.Get(1, id)
	require.True(t, ok)
	assert.Same(t, recB, got)
}

func TestRemove(t *testing.T) {
	_, reg := setup()
	id := offload.NewFlowID()
	rec := offload.NewRecord(id, 1)
	reg.Put(1, rec)

	got, ok := reg.Remove(1, id)
	require.True(t, ok)
	assert.Same(t, rec, got)

	_, ok = reg.Lookup(id)
	assert.False(t, ok)
}

func TestPutUnknownPortReturnsNotFound(t *testing.T) {
	_, reg := setup()
	_, err := reg.Put(999, offload.NewRecord(offload.NewFlowID(), 1))
	assert.ErrorIs(t, err, offload.ErrNotFound)
}
