package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowcore/nicoffload/pkg/misscontext"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/tunnel"
)

type fakeNetdev struct{ popped bool }

func (f *fakeNetdev) DpPort() uint32      { return 10 }
func (f *fakeNetdev) NumRxQueues() uint16 { return 0 }
func (f *fakeNetdev) HwPortID() uint16    { return 0 }
func (f *fakeNetdev) IsUplink() bool      { return false }
func (f *fakeNetdev) TypeString() string  { return "vxlan" }
func (f *fakeNetdev) PopHeader(p []byte) []byte {
	f.popped = true
	return p
}

func TestOnMissVxlanRestoresInPortAndPops(t *testing.T) {
	miss := misscontext.New(nil)
	miss.SaveVxlan(42, 10)
	pp := New(miss, tunnel.New(nil))

	pkt := &Packet{}
	nd := &fakeNetdev{}
	pp.OnMiss(pkt, 42, nd)

	assert.Equal(t, uint32(10), pkt.InPort)
	assert.True(t, nd.popped)
}

func TestOnMissCTRestoresStateAndTunnel(t *testing.T) {
	tunnels := tunnel.New(nil)
	key := tunnel.Key{DstIP: 1, SrcIP: 2, TunID: 3}
	outerID := tunnels.GetOrAlloc(key)

	miss := misscontext.New(nil)
	miss.SaveCT(77, offload.RuleHandle{}, 55, 9, 1, outerID, misscontext.DirectionInit)

	pp := New(miss, tunnels)
	pkt := &Packet{}
	pp.OnMiss(pkt, 77, nil)

	assert.Equal(t, offload.CtStateEstablished, pkt.CtState)
	assert.Equal(t, uint32(55), pkt.CtMark)
	assert.Equal(t, uint16(9), pkt.CtZone)
	assert.Equal(t, key.DstIP, pkt.TunnelDst)
}

func TestOnMissStaleMarkDoesNotMutatePacket(t *testing.T) {
	miss := misscontext.New(nil)
	pp := New(miss, tunnel.New(nil))

	pkt := &Packet{InPort: 5}
	pp.OnMiss(pkt, 999, nil)
	assert.Equal(t, uint32(5), pkt.InPort, "absence must leave the packet untouched, never fail it")
}
