// Package translate implements the translator spec.md §4.J describes:
// the component that drives the identifier registries and pattern/
// action builders to turn a validated, classified (match, actions,
// flow-id) into one or more installed hardware rules. Grounded on
// spec.md §4.J directly (pattern/action synthesis has no teacher
// analogue — OpenFlow-to-device-flow decomposition in
// rw_core/flow_decomposition is the closest shape: walk a logical
// description, emit a list of concrete per-device rules, across a
// fixed set of tables).
package translate

import (
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/pattern"
)

// synthesizePattern builds the pattern list for m per spec.md §4.J's
// "Pattern synthesis" rules. isVxlanSource selects the vxlan-decap
// outer-header variant (outer IPv4 forced UDP + UDP + VXLAN VNI)
// instead of the plain L2/VLAN/IPv4/L4 pattern.
func synthesizePattern(m offload.Match, isVxlanSource bool) []offload.PatternItem {
	f := m.Flow
	w := m.Wildcards
	b := pattern.NewBuilder()

	if isVxlanSource {
		b.Add("ipv4", &ipv4Spec{Proto: 17}, &ipv4Mask{Proto: 0xff})
		b.Add("udp", &udpSpec{Dst: f.TpDst}, &udpMask{Dst: w.TpDst})
		vni := uint32(f.TunnelID >> 32)
		b.Add("vxlan", &vxlanSpec{VNI: vni}, &vxlanMask{VNI: 0xffffff})
		return b.Finish()
	}

	if !w.DlSrc.IsZero() || !w.DlDst.IsZero() {
		b.Add("eth", &ethSpec{Src: f.DlSrc, Dst: f.DlDst}, &ethMask{Src: w.DlSrc, Dst: w.DlDst})
	} else {
		b.Add("eth", &ethSpec{}, &ethMask{})
	}

	if f.VlanTCI != 0 && w.VlanTCI != 0 {
		b.Add("vlan", &vlanSpec{TCI: f.VlanTCI}, &vlanMask{TCI: w.VlanTCI, InnerType: 0})
	}

	if f.DlType == 0x0800 {
		l4Mask := w.NwProto
		if hasL4Item(f.NwProto) {
			l4Mask = 0 // the L4 item itself is the constraint
		}
		b.Add("ipv4", &ipv4Spec{Src: f.NwSrc, Dst: f.NwDst, Proto: f.NwProto}, &ipv4Mask{Src: w.NwSrc, Dst: w.NwDst, Proto: l4Mask})
		addL4Item(b, f, w)
	}

	return b.Finish()
}

func hasL4Item(nwProto uint8) bool {
	switch nwProto {
	case 6, 17, 132, 1:
		return true
	default:
		return false
	}
}

func addL4Item(b *pattern.Builder, f offload.Flow, w offload.Wildcards) {
	portMask := func(mask uint16) uint16 {
		if mask != 0 && mask != 0xffff {
			// spec.md §4.J: "port masks other than 0 or 0xffff are
			// unsupported" — the validator/classifier reject these
			// upstream; synthesizePattern treats an out-of-contract mask
			// as fully wildcarded rather than guessing.
			return 0
		}
		return mask
	}

	switch f.NwProto {
	case 6:
		b.Add("tcp", &l4Spec{Src: f.TpSrc, Dst: f.TpDst}, &l4Mask{Src: portMask(w.TpSrc), Dst: portMask(w.TpDst)})
	case 17:
		b.Add("udp", &l4Spec{Src: f.TpSrc, Dst: f.TpDst}, &l4Mask{Src: portMask(w.TpSrc), Dst: portMask(w.TpDst)})
	case 132:
		b.Add("sctp", &l4Spec{Src: f.TpSrc, Dst: f.TpDst}, &l4Mask{Src: portMask(w.TpSrc), Dst: portMask(w.TpDst)})
	case 1:
		b.Add("icmp", &icmpSpec{Type: uint8(f.TpSrc), Code: uint8(f.TpDst)}, &icmpMask{Type: uint8(w.TpSrc), Code: uint8(w.TpDst)})
	}
}

// The spec/mask structs below are borrowed storage for one install
// (spec.md §9 "arena + index"): callers keep them alive only for the
// duration of the driver call that consumes the pattern list the
// builder produced.

type ethSpec struct {
	Src, Dst offload.MacAddr
}
type ethMask struct {
	Src, Dst offload.MacAddr
}
type vlanSpec struct{ TCI uint16 }
type vlanMask struct{ TCI, InnerType uint16 }
type ipv4Spec struct {
	Src, Dst uint32
	Proto    uint8
}
type ipv4Mask struct {
	Src, Dst uint32
	Proto    uint8
}
type l4Spec struct{ Src, Dst uint16 }
type l4Mask struct{ Src, Dst uint16 }
type icmpSpec struct{ Type, Code uint8 }
type icmpMask struct{ Type, Code uint8 }
type udpSpec struct{ Dst uint16 }
type udpMask struct{ Dst uint16 }
type vxlanSpec struct{ VNI uint32 }
type vxlanMask struct{ VNI uint32 }
