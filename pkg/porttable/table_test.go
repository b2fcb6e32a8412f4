package porttable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/nicoffload/pkg/offload"
)

type fakeNetdev struct {
	dpPort   uint32
	typ      string
	hwPortID uint16
	numRxQ   uint16
}

func (f *fakeNetdev) DpPort() uint32         { return f.dpPort }
func (f *fakeNetdev) NumRxQueues() uint16    { return f.numRxQ }
func (f *fakeNetdev) HwPortID() uint16       { return f.hwPortID }
func (f *fakeNetdev) IsUplink() bool         { return f.typ == "dpdk" }
func (f *fakeNetdev) TypeString() string     { return f.typ }
func (f *fakeNetdev) PopHeader(p []byte) []byte { return p }

func TestAddPhysicalPort(t *testing.T) {
	tbl := New(nil)
	nd := &fakeNetdev{dpPort: 1, typ: "dpdk", hwPortID: 0, numRxQ: 4}
	p := tbl.Add(nd, 1, 0)

	assert.Equal(t, offload.PortKindPhysical, p.Kind)
	assert.Equal(t, uint16(4), p.NumRxQueues)
	assert.Equal(t, 1, tbl.NumPhysical())

	got, ok := tbl.Get(1)
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestAddVxlanPortInstallsMarkIndex(t *testing.T) {
	tbl := New(nil)
	nd := &fakeNetdev{dpPort: 10, typ: "vxlan"}
	p := tbl.Add(nd, 10, 42)

	assert.Equal(t, offload.PortKindVxlan, p.Kind)
	assert.Equal(t, offload.TableVxlan, p.TableID)

	got, ok := tbl.ByMark(42)
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestDelRemovesFromIndices(t *testing.T) {
	tbl := New(nil)
	nd := &fakeNetdev{dpPort: 10, typ: "vxlan"}
	tbl.Add(nd, 10, 42)

	p, ok := tbl.Del(10)
	require.True(t, ok)
	assert.Equal(t, uint32(10), p.DpPort)

	_, ok = tbl.Get(10)
	assert.False(t, ok)
	_, ok = tbl.ByMark(42)
	assert.False(t, ok)
}

func TestDefaultRuleBookkeeping(t *testing.T) {
	tbl := New(nil)
	nd := &fakeNetdev{dpPort: 10, typ: "vxlan"}
	p := tbl.Add(nd, 10, 42)

	_, ok := p.DefaultRule(offload.TableVxlan)
	assert.False(t, ok)

	h := offload.RuleHandle{Handle: "h1", Table: offload.TableVxlan}
	p.SetDefaultRule(offload.TableVxlan, h)

	got, ok := p.DefaultRule(offload.TableVxlan)
	require.True(t, ok)
	assert.Equal(t, h, got)

	p.ClearDefaultRule(offload.TableVxlan)
	_, ok = p.DefaultRule(offload.TableVxlan)
	assert.False(t, ok)
}

func TestUplinks(t *testing.T) {
	tbl := New(nil)
	tbl.Add(&fakeNetdev{dpPort: 1, typ: "dpdk"}, 1, 0)
	tbl.Add(&fakeNetdev{dpPort: 2, typ: "dpdk"}, 2, 0)
	tbl.Add(&fakeNetdev{dpPort: 10, typ: "vxlan"}, 10, 42)

	up := tbl.Uplinks()
	assert.Len(t, up, 2)
}
