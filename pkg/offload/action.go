package offload

// ActionType enumerates the action kinds the netlink-style TLV stream
// carries (spec.md §6 "Datapath attributes consumed").
type ActionType int

const (
	ActionTypeOutput ActionType = iota
	ActionTypeTunnelPop
	ActionTypeTunnelPush
	ActionTypeClone
	ActionTypeCT
	ActionTypeRecirc
	ActionTypePushVlan
	ActionTypePopVlan
	ActionTypeSet
	ActionTypeSetMasked
)

// NatMode is the CT sub-TLV's nat attribute (spec.md §6).
type NatMode int

const (
	NatNone NatMode = iota
	NatSrc
	NatDst
)

// CTArgs is the CT sub-TLV stream spec.md §6 recognises: zone, commit,
// force_commit, helper, mark, labels, eventmask, nat.
type CTArgs struct {
	Zone         uint16
	Commit       bool
	ForceCommit  bool
	Helper       string
	Mark         uint32
	MarkMask     uint32
	Labels       Label128
	LabelsMask   Label128
	EventMask    uint32
	Nat          NatMode
	RecircTarget uint32 // recirc-id to jump into post-CT, 0 if none
}

// SetField identifies one settable OXM-style field for the set /
// set_masked actions.
type SetFieldID int

const (
	SetFieldVlanVid SetFieldID = iota
	SetFieldDlSrc
	SetFieldDlDst
	SetFieldNwSrc
	SetFieldNwDst
	SetFieldTpSrc
	SetFieldTpDst
	SetFieldTunnelID
)

// SetArgs carries the field/value (and, for set_masked, mask) payload
// of a set or set_masked action.
type SetArgs struct {
	Field SetFieldID
	Value uint64
	Mask  uint64 // only meaningful for SetMasked
}

// Action is one entry of the action-list TLV stream. Exactly one of the
// pointer fields is non-nil depending on Type; Clone nests a sub-list
// since clone(tunnel_push, output) is the only representable shape
// (spec.md §4.I).
type Action struct {
	Type       ActionType
	OutputPort uint32   // ActionTypeOutput
	Clone      []Action // ActionTypeClone
	CT         *CTArgs  // ActionTypeCT
	RecircID   uint32   // ActionTypeRecirc
	PushVlanTPID uint16 // ActionTypePushVlan
	Set        *SetArgs // ActionTypeSet / ActionTypeSetMasked
}

// ActionList is the ordered action-list of a logical flow.
type ActionList []Action

// HasType reports whether any top-level action (not descending into
// Clone) has the given type.
func (a ActionList) HasType(t ActionType) bool {
	for _, act := range a {
		if act.Type == t {
			return true
		}
	}
	return false
}

// Last returns the final action in the list, or the zero Action and
// false if the list is empty.
func (a ActionList) Last() (Action, bool) {
	if len(a) == 0 {
		return Action{}, false
	}
	return a[len(a)-1], true
}

// CloneTunnelPushOutput returns the tunnel_push and output pair nested
// inside the first clone action, if present. Ok is false for any other
// shape.
func (a ActionList) CloneTunnelPushOutput() (push Action, output Action, ok bool) {
	for _, act := range a {
		if act.Type != ActionTypeClone {
			continue
		}
		if len(act.Clone) != 2 {
			return Action{}, Action{}, false
		}
		if act.Clone[0].Type != ActionTypeTunnelPush || act.Clone[1].Type != ActionTypeOutput {
			return Action{}, Action{}, false
		}
		return act.Clone[0], act.Clone[1], true
	}
	return Action{}, Action{}, false
}
