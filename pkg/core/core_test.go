package core

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcore/nicoffload/internal/metrics"
	"github.com/flowcore/nicoffload/pkg/offload"
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

type fakeDriver struct{ created, destroyed int }

func (d *fakeDriver) RuleCreate(ctx context.Context, netdev offload.Netdev, attr offload.Attr, patterns []offload.PatternItem, actions []offload.ActionItem) (interface{}, error) {
	d.created++
	return d.created, nil
}

func (d *fakeDriver) RuleDestroy(ctx context.Context, netdev offload.Netdev, handle interface{}) error {
	d.destroyed++
	return nil
}

const testMinReservedMark = 1 << 20

func TestPortAddRejectsDuplicate(t *testing.T) {
	c := New(&fakeDriver{}, testMinReservedMark)
	defer c.Close()

	in := &fakeNetdev{dpPort: 1, typ: "dpdk", numRxQ: 4}
	require.NoError(t, c.PortAdd(in, 1))
	err := c.PortAdd(in, 1)
	assert.ErrorIs(t, err, ENODEV)
}

func TestPortAddVxlanAllocatesDistinctExceptionMarks(t *testing.T) {
	c := New(&fakeDriver{}, testMinReservedMark)
	defer c.Close()

	v1 := &fakeNetdev{dpPort: 10, typ: "vxlan"}
	v2 := &fakeNetdev{dpPort: 11, typ: "vxlan"}
	require.NoError(t, c.PortAdd(v1, 10))
	require.NoError(t, c.PortAdd(v2, 11))

	p1, _ := c.ports.Get(10)
	p2, _ := c.ports.Get(11)
	assert.NotEqual(t, p1.ExceptionMark, p2.ExceptionMark)
	assert.GreaterOrEqual(t, p1.ExceptionMark, uint32(testMinReservedMark))
}

func TestFlowPutThenFlowDel(t *testing.T) {
	drv := &fakeDriver{}
	c := New(drv, testMinReservedMark)
	defer c.Close()

	in := &fakeNetdev{dpPort: 1, typ: "dpdk", numRxQ: 4}
	out := &fakeNetdev{dpPort: 2, typ: "dpdk", hwPortID: 1}
	require.NoError(t, c.PortAdd(in, 1))
	require.NoError(t, c.PortAdd(out, 2))

	m := offload.Match{
		Flow:      offload.Flow{DlType: 0x0800, NwProto: 17, NwSrc: 0x0a000001, NwDst: 0x0a000002, TpDst: 4789},
		Wildcards: offload.Wildcards{NwProto: 0xff, NwSrc: 0xffffffff, NwDst: 0xffffffff, TpDst: 0xffff},
	}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 2}}
	flowID := offload.NewFlowID()

	require.NoError(t, c.FlowPut(context.Background(), in, m, actions, flowID))
	require.NoError(t, c.FlowDel(context.Background(), flowID))

	err := c.FlowDel(context.Background(), flowID)
	assert.ErrorIs(t, err, EINVAL)
}

func TestFlowPutReplaceDestroysOldRecord(t *testing.T) {
	drv := &fakeDriver{}
	c := New(drv, testMinReservedMark)
	defer c.Close()

	in := &fakeNetdev{dpPort: 1, typ: "dpdk", numRxQ: 4}
	out := &fakeNetdev{dpPort: 2, typ: "dpdk", hwPortID: 1}
	require.NoError(t, c.PortAdd(in, 1))
	require.NoError(t, c.PortAdd(out, 2))

	m := offload.Match{
		Flow:      offload.Flow{DlType: 0x0800, NwProto: 17, NwSrc: 0x0a000001, NwDst: 0x0a000002, TpDst: 4789},
		Wildcards: offload.Wildcards{NwProto: 0xff, NwSrc: 0xffffffff, NwDst: 0xffffffff, TpDst: 0xffff},
	}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 2}}
	flowID := offload.NewFlowID()

	require.NoError(t, c.FlowPut(context.Background(), in, m, actions, flowID))
	require.NoError(t, c.FlowPut(context.Background(), in, m, actions, flowID))

	assert.Equal(t, 1, drv.destroyed, "replacing a flow-id must destroy exactly the old record's rules")
}

func TestFlowPutUnsupportedMatchReturnsEOPNOTSUPP(t *testing.T) {
	c := New(&fakeDriver{}, testMinReservedMark)
	defer c.Close()

	in := &fakeNetdev{dpPort: 1, typ: "dpdk"}
	require.NoError(t, c.PortAdd(in, 1))

	m := offload.Match{Flow: offload.Flow{HasIPv6: true}}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 1}}

	err := c.FlowPut(context.Background(), in, m, actions, offload.NewFlowID())
	assert.ErrorIs(t, err, EOPNOTSUPP)
	assert.True(t, errors.Is(err, EOPNOTSUPP))
}

func TestPortDelDestroysOwnedFlows(t *testing.T) {
	drv := &fakeDriver{}
	c := New(drv, testMinReservedMark)
	defer c.Close()

	in := &fakeNetdev{dpPort: 1, typ: "dpdk", numRxQ: 4}
	out := &fakeNetdev{dpPort: 2, typ: "dpdk", hwPortID: 1}
	require.NoError(t, c.PortAdd(in, 1))
	require.NoError(t, c.PortAdd(out, 2))

	m := offload.Match{
		Flow:      offload.Flow{DlType: 0x0800, NwProto: 17, NwSrc: 0x0a000001, NwDst: 0x0a000002, TpDst: 4789},
		Wildcards: offload.Wildcards{NwProto: 0xff, NwSrc: 0xffffffff, NwDst: 0xffffffff, TpDst: 0xffff},
	}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 2}}
	flowID := offload.NewFlowID()
	require.NoError(t, c.FlowPut(context.Background(), in, m, actions, flowID))

	require.NoError(t, c.PortDel(context.Background(), 1))

	_, ok := c.flows.Lookup(flowID)
	assert.False(t, ok, "port_del must forget every flow-id it owned")
}

func TestPortDelUnknownPortReturnsENODEV(t *testing.T) {
	c := New(&fakeDriver{}, testMinReservedMark)
	defer c.Close()
	err := c.PortDel(context.Background(), 99)
	assert.ErrorIs(t, err, ENODEV)
}

func TestMetricsGaugesTrackLiveState(t *testing.T) {
	drv := &fakeDriver{}
	c := New(drv, testMinReservedMark)
	defer c.Close()
	m := metrics.New()
	c.SetMetrics(m)

	in := &fakeNetdev{dpPort: 1, typ: "dpdk", numRxQ: 4}
	out := &fakeNetdev{dpPort: 2, typ: "dpdk", hwPortID: 1}
	require.NoError(t, c.PortAdd(in, 1))
	require.NoError(t, c.PortAdd(out, 2))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PortsActive))

	match := offload.Match{
		Flow:      offload.Flow{DlType: 0x0800, NwProto: 17, NwSrc: 0x0a000001, NwDst: 0x0a000002, TpDst: 4789},
		Wildcards: offload.Wildcards{NwProto: 0xff, NwSrc: 0xffffffff, NwDst: 0xffffffff, TpDst: 0xffff},
	}
	actions := offload.ActionList{{Type: offload.ActionTypeOutput, OutputPort: 2}}
	flowID := offload.NewFlowID()
	require.NoError(t, c.FlowPut(context.Background(), in, match, actions, flowID))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FlowsActive))

	require.NoError(t, c.FlowDel(context.Background(), flowID))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.FlowsActive))
}
