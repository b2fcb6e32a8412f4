// Package misscontext implements the miss-context table spec.md §4.F
// describes: a process-global map from a hardware "mark" value to a
// tagged-union recovery record, used by pkg/preprocess to restore
// packet metadata a hardware rule had implicitly consumed. Grounded on
// spec.md §3/§4.F directly (no corpus analogue — this is a domain-
// specific lookaside table); built on internal/regmap for the same
// concurrency contract as the other registries.
package misscontext

import (
	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/epoch"
	"github.com/flowcore/nicoffload/internal/regmap"
	"github.com/flowcore/nicoffload/pkg/offload"
)

var logger = corelog.AddPackage("misscontext")

// Variant tags which payload a Record carries (spec.md §3: "Variant ∈
// {CT-miss, flow-miss, flow-and-CT-miss, vxlan-miss}").
type Variant int

const (
	VariantFlow Variant = iota
	VariantCT
	VariantFlowAndCT
	VariantVxlan
)

func (v Variant) String() string {
	switch v {
	case VariantCT:
		return "ct-miss"
	case VariantFlowAndCT:
		return "flow-and-ct-miss"
	case VariantVxlan:
		return "vxlan-miss"
	default:
		return "flow-miss"
	}
}

// Direction distinguishes the two halves of a connection-tracking flow
// that share one miss-context entry (spec.md §4.F).
type Direction int

const (
	DirectionInit Direction = iota
	DirectionReply
)

// FlowData is the flow-miss payload: {outer-id, hw-id, kind-flag,
// in-port} per spec.md §3.
type FlowData struct {
	OuterID uint32
	HwID    offload.TableID
	IsPort  bool
	InPort  uint32
}

// CTData is the CT-miss payload: {ct-mark, zone, ct-state, outer-id,
// per-direction in-port and rule-handle} per spec.md §3. Init and
// reply directions are recorded independently in the same record.
type CTData struct {
	CTMark  uint32
	Zone    uint16
	CTState uint32
	OuterID uint32

	HasInit  bool
	InPortInit uint32
	HandleInit offload.RuleHandle

	HasReply  bool
	InPortReply uint32
	HandleReply offload.RuleHandle
}

// VxlanData is the vxlan-miss payload: the virtual port whose header
// must be popped and substituted as the packet's in-port.
type VxlanData struct {
	VirtualPort uint32
}

// Record is one miss-context entry. Exactly the fields matching
// Variant are meaningful.
type Record struct {
	Mark    uint32
	Variant Variant
	Flow    *FlowData
	CT      *CTData
	Vxlan   *VxlanData
}

// Table is the process-global mark → Record map.
type Table struct {
	m *regmap.Map[uint32, *Record]
}

// New returns an empty miss-context table reclaimed through recl.
func New(recl *epoch.Reclaimer) *Table {
	return &Table{m: regmap.New[uint32, *Record](recl)}
}

// SaveFlow inserts a flow-miss record for mark, or — if a CT-miss
// record already exists there — upgrades it in place to
// flow-and-CT-miss (spec.md §4.F).
func (t *Table) SaveFlow(mark, hwID uint32, isPort bool, outerID, inPort uint32, hasCT bool) {
	rec := t.m.Update(mark, func(old *Record, exists bool) *Record {
		flow := &FlowData{OuterID: outerID, HwID: offload.TableID(hwID), IsPort: isPort, InPort: inPort}
		if exists && old.CT != nil {
			old.Flow = flow
			old.Variant = VariantFlowAndCT
			return old
		}
		variant := VariantFlow
		if hasCT {
			variant = VariantFlowAndCT
		}
		return &Record{Mark: mark, Variant: variant, Flow: flow}
	})
	_ = rec
}

// SaveCT inserts or updates the CT-miss payload for mark. direction's
// fields are filled independently so init and reply can arrive in
// either order and share one entry, per spec.md §4.F.
func (t *Table) SaveCT(mark uint32, handle offload.RuleHandle, ctMark uint32, zone uint16, ctState uint32, outerID uint32, direction Direction) {
	t.m.Update(mark, func(old *Record, exists bool) *Record {
		var rec *Record
		if exists {
			rec = old
		} else {
			rec = &Record{Mark: mark, Variant: VariantCT}
		}
		if rec.CT == nil {
			rec.CT = &CTData{}
			if rec.Variant == VariantFlow {
				rec.Variant = VariantFlowAndCT
			} else if rec.Flow == nil {
				rec.Variant = VariantCT
			}
		}
		rec.CT.CTMark = ctMark
		rec.CT.Zone = zone
		rec.CT.CTState = ctState
		rec.CT.OuterID = outerID
		switch direction {
		case DirectionInit:
			rec.CT.HasInit = true
			rec.CT.HandleInit = handle
		case DirectionReply:
			rec.CT.HasReply = true
			rec.CT.HandleReply = handle
		}
		return rec
	})
}

// SaveVxlan inserts a vxlan-miss record for mark (the per-port
// exception-mark default rule; spec.md §4.J "ensures a default rule
// exists... with a mark = port.exception_mark").
func (t *Table) SaveVxlan(mark uint32, virtualPort uint32) {
	t.m.Set(mark, &Record{Mark: mark, Variant: VariantVxlan, Vxlan: &VxlanData{VirtualPort: virtualPort}})
}

// Lookup returns mark's record, or ok=false if none (stale or never
// registered) — the preprocessor must not fail the packet either way.
func (t *Table) Lookup(mark uint32) (*Record, bool) {
	return t.m.Get(mark)
}

// Delete removes mark's record.
func (t *Table) Delete(mark uint32) {
	if _, ok := t.m.Delete(mark, nil); !ok {
		logger.Debugw("misscontext-delete-missing", corelog.Fields{"mark": mark})
	}
}

// Len returns the number of live miss-context entries, for tests and
// metrics.
func (t *Table) Len() int { return t.m.Len() }
