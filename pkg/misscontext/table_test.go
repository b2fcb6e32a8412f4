package misscontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/nicoffload/pkg/offload"
)

func TestSaveFlowThenLookup(t *testing.T) {
	tbl := New(nil)
	tbl.SaveFlow(100, 5, false, 7, 1, false)

	rec, ok := tbl.Lookup(100)
	require.True(t, ok)
	assert.Equal(t, VariantFlow, rec.Variant)
	assert.Equal(t, uint32(7), rec.Flow.OuterID)
	assert.Equal(t, uint32(1), rec.Flow.InPort)
}

func TestSaveCTBothDirectionsShareOneEntry(t *testing.T) {
	tbl := New(nil)
	tbl.SaveCT(200, offload.RuleHandle{Handle: "init"}, 1, 2, 3, 4, DirectionInit)
	tbl.SaveCT(200, offload.RuleHandle{Handle: "reply"}, 1, 2, 3, 4, DirectionReply)

	rec, ok := tbl.Lookup(200)
	require.True(t, ok)
	assert.Equal(t, VariantCT, rec.Variant)
	assert.True(t, rec.CT.HasInit)
	assert.True(t, rec.CT.HasReply)
	assert.Equal(t, "init", rec.CT.HandleInit.Handle)
	assert.Equal(t, "reply", rec.CT.HandleReply.Handle)
	assert.Equal(t, 1, tbl.Len())
}

func TestSaveFlowThenCTUpgradesToFlowAndCT(t *testing.T) {
	tbl := New(nil)
	tbl.SaveFlow(300, 5, false, 7, 1, false)
	tbl.SaveCT(300, offload.RuleHandle{}, 1, 2, 3, 4, DirectionInit)

	rec, ok := tbl.Lookup(300)
	require.True(t, ok)
	assert.Equal(t, VariantFlowAndCT, rec.Variant)
	require.NotNil(t, rec.Flow)
	require.NotNil(t, rec.CT)
}

func TestSaveVxlan(t *testing.T) {
	tbl := New(nil)
	tbl.SaveVxlan(42, 10)

	rec, ok := tbl.Lookup(42)
	require.True(t, ok)
	assert.Equal(t, VariantVxlan, rec.Variant)
	assert.Equal(t, uint32(10), rec.Vxlan.VirtualPort)
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	tbl := New(nil)
	_, ok := tbl.Lookup(999)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	tbl := New(nil)
	tbl.SaveVxlan(1, 1)
	tbl.Delete(1)
	_, ok := tbl.Lookup(1)
	assert.False(t, ok)
}
