package offload

import "github.com/flowcore/nicoffload/pkg/tunnel"

// RecordState is the per-offload-record state machine spec.md §4.L
// defines: empty → partial → installed → replacing → destroyed.
type RecordState int

const (
	StateEmpty RecordState = iota
	StatePartial
	StateInstalled
	StateReplacing
	StateDestroyed
)

func (s RecordState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StateInstalled:
		return "installed"
	case StateReplacing:
		return "replacing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Record is the offload record spec.md §3 describes: the vector of
// hardware rules one logical flow-id produced, across one or multiple
// uplinks. Invariant: Count <= Capacity; AddRule refuses a rule past
// capacity, and pkg/translate sizes each record to the rules its recipe
// installs. Record is otherwise a plain data holder.
type Record struct {
	FlowID   FlowID
	Capacity int
	Rules    []RuleHandle
	State    RecordState
	Owned    OwnedResources
}

// OwnedResources lists every side-resource a translate recipe
// allocated while building this record's rules, beyond the rules
// themselves: recirc/clone hw-table-ids (pkg/tableid), a
// translator-owned mark (internal/pool, doubling as the
// pkg/misscontext key), and any tunnel 3-tuples interned for this flow
// (pkg/tunnel). Translator.Destroy releases every one of these exactly
// once a record is torn down, per spec.md §2's flow_del data flow
// ("driver destroy each -> unref B, C -> delete F entry").
type OwnedResources struct {
	RecircKeys []uint32
	TunnelKeys []tunnel.Key
	Mark       uint32
	HasMark    bool
}

// NewRecord returns an empty record pre-sized to capacity (1 for local
// rules, N for tunnel fanout across N uplinks).
func NewRecord(id FlowID, capacity int) *Record {
	return &Record{FlowID: id, Capacity: capacity, Rules: make([]RuleHandle, 0, capacity), State: StateEmpty}
}

// AddRecircKey records a recirc/clone hw-table-id key this record's
// recipe allocated, so Destroy can unref it on teardown.
func (r *Record) AddRecircKey(key uint32) {
	r.Owned.RecircKeys = append(r.Owned.RecircKeys, key)
}

// AddTunnelKey records a tunnel 3-tuple this record's recipe interned,
// so Destroy can unref it on teardown.
func (r *Record) AddTunnelKey(key tunnel.Key) {
	r.Owned.TunnelKeys = append(r.Owned.TunnelKeys, key)
}

// SetMark records the translator-owned mark this record's recipe
// allocated, so Destroy can free it and delete its miss-context entry
// on teardown.
func (r *Record) SetMark(mark uint32) {
	r.Owned.Mark = mark
	r.Owned.HasMark = true
}

// AddRule appends a rule handle, transitioning empty→partial on the
// first addition and partial→installed once Count reaches Capacity.
// Returns false without mutating the record if it is already at
// capacity (caller must destroy the rule it just installed).
func (r *Record) AddRule(h RuleHandle) bool {
	if len(r.Rules) >= r.Capacity {
		return false
	}
	r.Rules = append(r.Rules, h)
	if r.State == StateEmpty {
		r.State = StatePartial
	}
	if len(r.Rules) >= r.Capacity {
		r.State = StateInstalled
	}
	return true
}

// Count returns the number of rules currently installed.
func (r *Record) Count() int { return len(r.Rules) }
