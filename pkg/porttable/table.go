// Package porttable implements the port table spec.md §4.D describes:
// the process-global map from datapath port to port record, plus the
// mark→port secondary index (ByMark); the preprocessor resolves marks
// through pkg/misscontext, not through this index. Grounded on the
// teacher's device-registry pattern in rw_core/core/device (one record
// per managed object, looked up by a stable numeric key), adapted onto
// internal/regmap for the concurrency contract spec.md §5 demands.
package porttable

import (
	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/epoch"
	"github.com/flowcore/nicoffload/internal/regmap"
	"github.com/flowcore/nicoffload/pkg/offload"
)

var logger = corelog.AddPackage("porttable")

// MaxDefaultRules bounds the per-table default-rule array spec.md §3
// specifies ("bounded array of 31") — one slot per dynamic pipeline
// table a physical port could ever decap into, mirrored from the
// reference's RTE_FLOW_MAX_TABLES.
const MaxDefaultRules = 31

// Port is the port record spec.md §3 describes.
type Port struct {
	DpPort        uint32
	Netdev        offload.Netdev
	Kind          offload.PortKind
	HwPortID      uint16 // physical only
	NumRxQueues   uint16 // physical only
	TableID       offload.TableID // virtual only
	ExceptionMark uint32          // virtual only

	defaultRules [MaxDefaultRules]*offload.RuleHandle
	flows        *regmap.Map[offload.FlowID, *offload.Record]
}

// DefaultRule returns the default rule installed for table, if any.
func (p *Port) DefaultRule(table offload.TableID) (offload.RuleHandle, bool) {
	idx := defaultRuleSlot(table)
	if idx < 0 || p.defaultRules[idx] == nil {
		return offload.RuleHandle{}, false
	}
	return *p.defaultRules[idx], true
}

// SetDefaultRule records the default rule installed for table.
func (p *Port) SetDefaultRule(table offload.TableID, h offload.RuleHandle) {
	idx := defaultRuleSlot(table)
	if idx < 0 {
		logger.Fatalw("default-rule-table-out-of-range", corelog.Fields{"table": table})
		return
	}
	p.defaultRules[idx] = &h
}

// ClearDefaultRule removes the bookkeeping for table's default rule
// (the caller destroys the hardware rule itself).
func (p *Port) ClearDefaultRule(table offload.TableID) {
	idx := defaultRuleSlot(table)
	if idx < 0 {
		return
	}
	p.defaultRules[idx] = nil
}

// DefaultRules returns every currently-recorded default rule, for
// port-del teardown.
func (p *Port) DefaultRules() []offload.RuleHandle {
	var out []offload.RuleHandle
	for _, h := range p.defaultRules {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out
}

// Flows returns the per-port flow-id→offload-record map.
func (p *Port) Flows() *regmap.Map[offload.FlowID, *offload.Record] { return p.flows }

func defaultRuleSlot(table offload.TableID) int {
	// Dynamic tables start at 64; slots 0-4 cover the fixed tables
	// (UNKNOWN is never installed into but reserves a slot to keep the
	// indexing scheme simple), slots 5-30 cover a bounded window of
	// dynamic tables — a port installs a default rule into at most the
	// handful of vxlan/recirc tables it actually decaps into.
	if table < 5 {
		return int(table)
	}
	dyn := int(table) - offload.DynamicTableBase
	if dyn < 0 || dyn >= MaxDefaultRules-5 {
		return -1
	}
	return 5 + dyn
}

// Table is the process-global datapath-port → Port map, plus the
// mark → Port secondary index.
type Table struct {
	ports      *regmap.Map[uint32, *Port]
	markToPort *regmap.Map[uint32, *Port]
	recl       *epoch.Reclaimer
	numPhys    int
}

// New returns an empty port table reclaimed through recl.
func New(recl *epoch.Reclaimer) *Table {
	return &Table{
		ports:      regmap.New[uint32, *Port](recl),
		markToPort: regmap.New[uint32, *Port](recl),
		recl:       recl,
	}
}

// Add classifies netdev's kind from its type string and installs a new
// port record under dpPort (spec.md §4.D "port_add"). exceptionMark is
// only consulted for vxlan ports.
func (t *Table) Add(netdev offload.Netdev, dpPort uint32, exceptionMark uint32) *Port {
	p := &Port{
		DpPort: dpPort,
		Netdev: netdev,
		flows:  regmap.New[offload.FlowID, *offload.Record](t.recl),
	}

	switch netdev.TypeString() {
	case "dpdk":
		p.Kind = offload.PortKindPhysical
		p.HwPortID = netdev.HwPortID()
		p.NumRxQueues = netdev.NumRxQueues()
		t.numPhys++
	case "vxlan":
		p.Kind = offload.PortKindVxlan
		p.TableID = offload.TableVxlan
		p.ExceptionMark = exceptionMark
		t.markToPort.Set(exceptionMark, p)
	default:
		p.Kind = offload.PortKindUnknown
	}

	t.ports.Set(dpPort, p)
	return p
}

// Del destroys dpPort's record. The caller is responsible for
// destroying every hardware rule Del returns before discarding them;
// Del itself only removes bookkeeping (spec.md §4.D: "destroys every
// offload record... destroys every default rule... removes from
// indices").
func (t *Table) Del(dpPort uint32) (*Port, bool) {
	p, ok := t.ports.Get(dpPort)
	if !ok {
		return nil, false
	}
	t.ports.Delete(dpPort, nil)
	if p.Kind == offload.PortKindVxlan {
		t.markToPort.Delete(p.ExceptionMark, nil)
	}
	if p.Kind == offload.PortKindPhysical {
		t.numPhys--
	}
	return p, true
}

// Get returns the port record for dpPort.
func (t *Table) Get(dpPort uint32) (*Port, bool) {
	return t.ports.Get(dpPort)
}

// ByMark resolves the mark→port secondary index.
func (t *Table) ByMark(mark uint32) (*Port, bool) {
	return t.markToPort.Get(mark)
}

// NumPhysical returns the current physical-port count, used by the
// translator to pre-size a fanout record.
func (t *Table) NumPhysical() int {
	return t.numPhys
}

// Uplinks returns every currently-registered physical port that faces
// the external fabric, used by the translator's tunnel-decap fanout. A
// physical port whose netdev reports IsUplink() false is not a
// fanout target.
func (t *Table) Uplinks() []*Port {
	var out []*Port
	t.ports.Range(func(_ uint32, p *Port) bool {
		if p.Kind == offload.PortKindPhysical && p.Netdev.IsUplink() {
			out = append(out, p)
		}
		return true
	})
	return out
}

// All returns every currently-registered port, for the admin
// introspection surface and the snapshot store.
func (t *Table) All() []*Port {
	var out []*Port
	t.ports.Range(func(_ uint32, p *Port) bool {
		out = append(out, p)
		return true
	})
	return out
}
