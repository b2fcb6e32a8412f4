package offload

// MacAddr is a 6-byte ethernet address.
type MacAddr [6]byte

// IsZero reports whether every byte of the address is zero.
func (m MacAddr) IsZero() bool { return m == MacAddr{} }

// Label128 is a 128-bit value, used for ct_label.
type Label128 [16]byte

// IsZero reports whether every byte is zero.
func (l Label128) IsZero() bool { return l == Label128{} }

// CtState is a bitset of connection-tracking state flags. Only
// established is representable in hardware (spec.md §4.H); every other
// bit makes the match unsupported.
type CtState uint32

const CtStateEstablished CtState = 1 << 0

// Flow carries the matched value for every field the pipeline or the
// validator cares about. It mirrors the field set spec.md enumerates
// across §4.H (validator) and §4.J (pattern synthesis) rather than a
// full OpenFlow flow key — fields the core never inspects are not
// represented.
type Flow struct {
	InPort uint32

	DlSrc  MacAddr
	DlDst  MacAddr
	DlType uint16 // EtherType, e.g. 0x0800 for IPv4, 0x8100 for VLAN tag present

	VlanTCI uint16

	NwSrc   uint32 // IPv4 source, host order
	NwDst   uint32 // IPv4 destination, host order
	NwProto uint8  // IP protocol: 6=TCP, 17=UDP, 132=SCTP, 1=ICMP
	NwFrag  uint8

	TpSrc uint16 // L4 source port, or ICMP type in the low byte
	TpDst uint16 // L4 destination port, or ICMP code in the low byte

	TunnelID  uint64 // VXLAN VNI lives in the high 32 bits
	TunnelSrc uint32 // outer IPv4 source (tunnel 3-tuple)
	TunnelDst uint32 // outer IPv4 destination (tunnel 3-tuple)

	RecircID uint32

	CtState   CtState
	CtZone    uint16
	CtMark    uint32
	CtLabel   Label128
	CtNwProto uint8
	CtTpSrc   uint16
	CtTpDst   uint16

	Metadata     uint64
	SkbPriority  uint32
	PktMark      uint32
	DpHash       uint32
	ConjID       uint32
	ActsetOutput uint32

	// Exotic header families spec.md §4.H rejects outright whenever
	// matched at all; the core only ever needs to know "is this
	// matched", never the field value itself.
	HasIPv6 bool
	HasMPLS bool
	HasND   bool
	HasNSH  bool
	HasARP  bool
	HasIGMP bool
}

// Wildcards mirrors Flow field-for-field, but each field holds a mask:
// a zero mask means the corresponding Flow field is wildcarded
// (unconstrained); a non-zero mask means at least one bit of the field
// is matched. Boolean "Has*" fields in Flow are themselves already
// wildcard-collapsed (false means "don't care"), so Wildcards carries
// no counterpart for them.
type Wildcards struct {
	DlSrc   MacAddr
	DlDst   MacAddr
	DlType  uint16
	VlanTCI uint16
	NwSrc   uint32
	NwDst   uint32
	NwProto uint8
	NwFrag  uint8
	TpSrc   uint16
	TpDst   uint16

	TunnelID  uint64
	TunnelSrc uint32
	TunnelDst uint32

	CtState   CtState
	CtZone    uint16
	CtMark    uint32
	CtLabel   Label128
	CtNwProto uint8
	CtTpSrc   uint16
	CtTpDst   uint16

	Metadata     uint64
	SkbPriority  uint32
	PktMark      uint32
	DpHash       uint32
	ConjID       uint32
	ActsetOutput uint32
}

// Match pairs a matched value with the wildcard mask that qualifies it,
// exactly as the datapath attributes described in spec.md §6 do.
type Match struct {
	Flow      Flow
	Wildcards Wildcards
}

// InPortIs reports whether the match's in-port equals port. Match has
// no access to the port table, so whether the in-port is virtual is
// for callers to look up.
func (m *Match) InPortIs(port uint32) bool { return m.Flow.InPort == port }

// StripZeroWildcards returns a copy of m in which every Flow field
// whose Wildcards counterpart is zero is itself zeroed, i.e. the
// "zero-wildcard-stripped match" spec.md §4.H validates against. Fields
// with no Wildcards counterpart (RecircID, TunnelID's VNI-only view,
// the boolean Has* flags) are never stripped — they are either always
// significant (RecircID) or already wildcard-collapsed.
func (m *Match) StripZeroWildcards() Flow {
	f := m.Flow
	w := m.Wildcards
	if w.DlSrc.IsZero() {
		f.DlSrc = MacAddr{}
	}
	if w.DlDst.IsZero() {
		f.DlDst = MacAddr{}
	}
	if w.DlType == 0 {
		f.DlType = 0
	}
	if w.VlanTCI == 0 {
		f.VlanTCI = 0
	}
	if w.NwSrc == 0 {
		f.NwSrc = 0
	}
	if w.NwDst == 0 {
		f.NwDst = 0
	}
	if w.NwProto == 0 {
		f.NwProto = 0
	}
	if w.NwFrag == 0 {
		f.NwFrag = 0
	}
	if w.TpSrc == 0 {
		f.TpSrc = 0
	}
	if w.TpDst == 0 {
		f.TpDst = 0
	}
	if w.TunnelID == 0 {
		f.TunnelID = 0
	}
	if w.TunnelSrc == 0 {
		f.TunnelSrc = 0
	}
	if w.TunnelDst == 0 {
		f.TunnelDst = 0
	}
	if w.CtState == 0 {
		f.CtState = 0
	}
	if w.CtZone == 0 {
		f.CtZone = 0
	}
	if w.CtMark == 0 {
		f.CtMark = 0
	}
	if w.CtLabel.IsZero() {
		f.CtLabel = Label128{}
	}
	if w.CtNwProto == 0 {
		f.CtNwProto = 0
	}
	if w.CtTpSrc == 0 {
		f.CtTpSrc = 0
	}
	if w.CtTpDst == 0 {
		f.CtTpDst = 0
	}
	if w.Metadata == 0 {
		f.Metadata = 0
	}
	if w.SkbPriority == 0 {
		f.SkbPriority = 0
	}
	if w.PktMark == 0 {
		f.PktMark = 0
	}
	if w.DpHash == 0 {
		f.DpHash = 0
	}
	if w.ConjID == 0 {
		f.ConjID = 0
	}
	if w.ActsetOutput == 0 {
		f.ActsetOutput = 0
	}
	return f
}
