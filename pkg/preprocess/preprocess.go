// Package preprocess implements the preprocessor spec.md §4.K
// describes: on a software miss, look up the packet's mark in the
// miss-context table and restore whatever metadata the hardware rule
// had implicitly consumed. Grounded on spec.md §4.K directly; the
// "look up a tag, mutate the packet in place, never fail" shape
// mirrors the datapath-facing helpers spec.md keeps out of scope, so
// there is no teacher analogue beyond the general defensive-lookup
// idiom the teacher applies at its own protocol boundaries.
package preprocess

import (
	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/pkg/misscontext"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/tunnel"
)

var logger = corelog.AddPackage("preprocess")

// Packet is the minimal packet-metadata surface the preprocessor
// restores fields on. The real packet structure is out of scope
// (spec.md §1); this is the narrow slice of it the core actually
// touches.
type Packet struct {
	InPort  uint32
	CtState offload.CtState
	CtZone  uint16
	CtMark  uint32

	TunnelID  uint64
	TunnelSrc uint32
	TunnelDst uint32

	Raw []byte
}

// Preprocessor restores metadata on miss by consulting the
// miss-context table and, for vxlan misses, the tunnel registry (to
// resolve an outer-id back to its 3-tuple) and the owning netdev (to
// pop its header).
type Preprocessor struct {
	miss    *misscontext.Table
	tunnels *tunnel.Registry
}

// New returns a Preprocessor over miss and tunnels.
func New(miss *misscontext.Table, tunnels *tunnel.Registry) *Preprocessor {
	return &Preprocessor{miss: miss, tunnels: tunnels}
}

// OnMiss looks up mark and restores whatever metadata it names onto
// pkt. Absence is logged and the recovery attempt dropped — the
// packet itself is never failed (spec.md §4.K, §7 "never silently
// drops packets").
func (p *Preprocessor) OnMiss(pkt *Packet, mark uint32, netdev offload.Netdev) {
	rec, ok := p.miss.Lookup(mark)
	if !ok {
		logger.Debugw("preprocess-miss-stale-mark", corelog.Fields{"mark": mark})
		return
	}

	switch rec.Variant {
	case misscontext.VariantCT:
		p.restoreCT(pkt, rec.CT)
	case misscontext.VariantFlowAndCT:
		// Both halves were saved independently (spec.md §4.F) and may
		// each carry their own outer-id; restore the flow's in-port
		// first so restoreCT's tunnel fields win if both are present.
		p.restoreFlow(pkt, rec.Flow)
		p.restoreCT(pkt, rec.CT)
	case misscontext.VariantVxlan:
		p.restoreVxlan(pkt, rec.Vxlan, netdev)
	case misscontext.VariantFlow:
		p.restoreFlow(pkt, rec.Flow)
	}
}

func (p *Preprocessor) restoreCT(pkt *Packet, ct *misscontext.CTData) {
	if ct == nil {
		return
	}
	pkt.CtState = offload.CtStateEstablished
	pkt.CtZone = ct.Zone
	pkt.CtMark = ct.CTMark

	if ct.OuterID == 0 || ct.OuterID == tunnel.InvalidOuterID {
		return
	}
	key, ok := p.tunnels.LookupByID(ct.OuterID)
	if !ok {
		logger.Warnw("preprocess-ct-outer-id-stale", corelog.Fields{"outer_id": ct.OuterID})
		return
	}
	pkt.TunnelDst = key.DstIP
	pkt.TunnelSrc = key.SrcIP
	pkt.TunnelID = key.TunID
}

func (p *Preprocessor) restoreVxlan(pkt *Packet, vx *misscontext.VxlanData, netdev offload.Netdev) {
	if vx == nil {
		return
	}
	if netdev != nil {
		pkt.Raw = netdev.PopHeader(pkt.Raw)
	}
	pkt.InPort = vx.VirtualPort
}

func (p *Preprocessor) restoreFlow(pkt *Packet, fd *misscontext.FlowData) {
	if fd == nil {
		return
	}
	pkt.InPort = fd.InPort
	if fd.OuterID == 0 || fd.OuterID == tunnel.InvalidOuterID {
		return
	}
	key, ok := p.tunnels.LookupByID(fd.OuterID)
	if !ok {
		return
	}
	pkt.TunnelDst = key.DstIP
	pkt.TunnelSrc = key.SrcIP
	pkt.TunnelID = key.TunID
}
