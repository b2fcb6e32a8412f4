// Package offload holds the data types shared by every component of the
// flow-offload core: the pipeline's fixed table ids, the logical
// flow-id, and the match/action types the translator consumes. It has
// no behaviour of its own beyond small, obviously-correct helpers —
// every stateful engine lives in a sibling package.
package offload

import (
	"fmt"

	"github.com/google/uuid"
)

// TableID identifies one table in the pipeline. The four low ids are
// fixed by the pipeline layout; the range [64, 65280) is handed out
// dynamically by the table-id registry for per-recirc-id and per-port
// tables. Rule jumps must go from a lower TableID to a higher one.
type TableID uint32

const (
	TableUnknown TableID = 0
	TableRoot    TableID = 1
	TableVxlan   TableID = 2
	TableCT      TableID = 3
	TableCTNAT   TableID = 4
)

// DynamicTableBase and DynamicTableLimit bound the reserved range the
// table-id registry (pkg/tableid) allocates from.
const (
	DynamicTableBase  = 64
	DynamicTableLimit = 65280
)

func (t TableID) String() string {
	switch t {
	case TableUnknown:
		return "UNKNOWN"
	case TableRoot:
		return "ROOT"
	case TableVxlan:
		return "VXLAN"
	case TableCT:
		return "CT"
	case TableCTNAT:
		return "CT_NAT"
	default:
		return fmt.Sprintf("TABLE(%d)", uint32(t))
	}
}

// FlowID is the 128-bit logical flow identifier supplied by the
// datapath (GLOSSARY: "Flow-id"). It is byte-for-byte compatible with
// uuid.UUID so admin RPCs and log lines can render it canonically.
type FlowID [16]byte

// String renders the flow-id in canonical UUID form.
func (f FlowID) String() string {
	return uuid.UUID(f).String()
}

// IsZero reports whether f is the zero flow-id (never a valid
// datapath-assigned id, used as a sentinel in tests and indices).
func (f FlowID) IsZero() bool {
	return f == FlowID{}
}

// NewFlowID generates a random flow-id, for tests and synthetic
// scenarios; the datapath is the sole authority on real flow-ids.
func NewFlowID() FlowID {
	return FlowID(uuid.New())
}

// PortKind classifies a datapath port the way the port table (4.D)
// does: by what the netdev type string resolves to.
type PortKind int

const (
	PortKindUnknown PortKind = iota
	PortKindPhysical
	PortKindVxlan
)

func (k PortKind) String() string {
	switch k {
	case PortKindPhysical:
		return "physical"
	case PortKindVxlan:
		return "vxlan"
	default:
		return "unknown"
	}
}

// MatchKind is the classifier's (4.I) tag for where in the pipeline a
// flow's pattern belongs.
type MatchKind int

const (
	MatchRoot MatchKind = iota
	MatchVportRoot
	MatchRecirc
)

func (k MatchKind) String() string {
	switch k {
	case MatchRoot:
		return "root"
	case MatchVportRoot:
		return "vport-root"
	case MatchRecirc:
		return "recirc"
	default:
		return "unknown"
	}
}

// ActionKind is the classifier's (4.I) tag for which translation recipe
// an action list requires.
type ActionKind int

const (
	ActionKindOutput ActionKind = iota
	ActionKindTunnelPop
	ActionKindCT
)

func (k ActionKind) String() string {
	switch k {
	case ActionKindTunnelPop:
		return "tnl-pop"
	case ActionKindCT:
		return "ct"
	default:
		return "output"
	}
}
