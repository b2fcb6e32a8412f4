package translate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/nicoffload/pkg/misscontext"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
	"github.com/flowcore/nicoffload/pkg/tableid"
	"github.com/flowcore/nicoffload/pkg/tunnel"
)

type fakeNetdev struct {
	dpPort   uint32
	typ      string
	hwPortID uint16
	numRxQ   uint16
}

func (f *fakeNetdev) DpPort() uint32            { return f.dpPort }
func (f *fakeNetdev) NumRxQueues() uint16       { return f.numRxQ }
func (f *fakeNetdev) HwPortID() uint16          { return f.hwPortID }
func (f *fakeNetdev) IsUplink() bool            { return f.typ == "dpdk" }
func (f *fakeNetdev) TypeString() string        { return f.typ }
func (f *fakeNetdev) PopHeader(p []byte) []byte { return p }

type fakeDriver struct {
	created   int
	failAfter int // fail the Nth+1 RuleCreate call, 0 = never fail
}

func (d *fakeDriver) RuleCreate(ctx context.Context, netdev offload.Netdev, attr offload.Attr, patterns []offload.PatternItem, actions []offload.ActionItem) (interface{}, error) {
	d.created++
	if d.failAfter != 0 && d.created > d.failAfter {
		return nil, offload.ErrDriverFailure
	}
	return d.created, nil
}

func (d *fakeDriver) RuleDestroy(ctx context.Context, netdev offload.Netdev, handle interface{}) error {
	return nil
}

func newTestTranslator(driver offload.Driver) (*Translator, *porttable.Table) {
	ports := porttable.New(nil)
	tunnels := tunnel.New(nil)
	tables := tableid.NewPool(nil)
	miss := misscontext.New(nil)
	return New(driver, tunnels, tables, ports, miss), ports
}

func TestTranslateOutputScenario1(t *testing.T) {
	drv := &fakeDriver{}
	tr, ports := newTestTranslator(drv)

	in := &fakeNetdev{dpPort: 1, typ: "dpdk", numRxQ: 4}
	ports.Add(in, 1, 0)
	out := &fakeNetdev{dpPort: 2, typ: "dpdk", hwPortID: 1}
	ports.Add(out, 2, 0)

	m := offload.Match{
		Flow: offload.Flow{DlType: 0x0800, NwProto: 17, NwSrc: 0x0a000001, NwDst: 0x0a000002, TpDst: 4789},
		Wildcards: offload.Wildcards{NwProto: 0xff, NwSrc: 0xffffffff, NwDst: 0xffffffff, TpDst: 0xffff},
	}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 2}}

	rec, err := tr.Put(context.Background(), in, m, actions, offload.NewFlowID())
	require.NoError(t, err)
	require.Len(t, rec.Rules, 1)
	assert.Equal(t, offload.TableRoot, rec.Rules[0].Table)
}

func TestTranslateTunnelPopScenario3(t *testing.T) {
	drv := &fakeDriver{}
	tr, ports := newTestTranslator(drv)

	up := &fakeNetdev{dpPort: 1, typ: "dpdk", numRxQ: 4}
	ports.Add(up, 1, 0)
	vx := &fakeNetdev{dpPort: 10, typ: "vxlan"}
	vport := ports.Add(vx, 10, 100)

	m := offload.Match{
		Flow:      offload.Flow{InPort: 1, DlType: 0x0800, NwProto: 17, TpDst: 4789},
		Wildcards: offload.Wildcards{NwProto: 0xff, TpDst: 0xffff},
	}
	actions := offload.ActionList{{Type: offload.ActionTypeTunnelPop, OutputPort: 10}}

	rec, err := tr.Put(context.Background(), up, m, actions, offload.NewFlowID())
	require.NoError(t, err)
	require.Len(t, rec.Rules, 1)
	assert.Equal(t, offload.TableRoot, rec.Rules[0].Table)

	_, ok := vport.DefaultRule(offload.TableVxlan)
	assert.True(t, ok, "default rule must be installed exactly once")
}

func TestTranslateRejectsUnsupportedMatch(t *testing.T) {
	drv := &fakeDriver{}
	tr, ports := newTestTranslator(drv)
	in := &fakeNetdev{dpPort: 1, typ: "dpdk"}
	ports.Add(in, 1, 0)

	m := offload.Match{Flow: offload.Flow{HasIPv6: true}}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 1}}

	_, err := tr.Put(context.Background(), in, m, actions, offload.NewFlowID())
	assert.ErrorIs(t, err, offload.ErrUnsupported)
	assert.Equal(t, 0, drv.created, "no state must be mutated on validator rejection")
}

func TestTranslateDriverFailureAtFirstRuleRollsBack(t *testing.T) {
	drv := &failingDriver{}
	tr, ports := newTestTranslator(drv)
	in := &fakeNetdev{dpPort: 1, typ: "dpdk"}
	ports.Add(in, 1, 0)
	out := &fakeNetdev{dpPort: 2, typ: "dpdk", hwPortID: 1}
	ports.Add(out, 2, 0)

	m := offload.Match{Flow: offload.Flow{RecircID: 7}}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 2}}

	_, err := tr.Put(context.Background(), in, m, actions, offload.NewFlowID())
	assert.ErrorIs(t, err, offload.ErrDriverFailure)
	assert.Equal(t, 0, tr.tables.Recirc().Len(), "a first-rule driver failure must roll back the recirc table-id allocation")
}

type failingDriver struct{}

func (failingDriver) RuleCreate(ctx context.Context, netdev offload.Netdev, attr offload.Attr, patterns []offload.PatternItem, actions []offload.ActionItem) (interface{}, error) {
	return nil, offload.ErrDriverFailure
}
func (failingDriver) RuleDestroy(ctx context.Context, netdev offload.Netdev, handle interface{}) error {
	return nil
}
