// Package flowreg implements the flow-id registry spec.md §4.E
// describes: idempotent put/remove of a logical flow-id's offload
// record within its owning port's flow map (pkg/porttable.Port.Flows),
// plus the flow-id→datapath-port side index flow_del uses when the
// caller doesn't supply the netdev. Grounded on the teacher's
// rw_core/core/device per-device flow map plus its companion reverse
// index (device lookup by flow-id is a recurring need across
// rw_core/core/device/agent_flow_loader.go and the graph package).
package flowreg

import (
	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/internal/epoch"
	"github.com/flowcore/nicoffload/internal/regmap"
	"github.com/flowcore/nicoffload/pkg/offload"
	"github.com/flowcore/nicoffload/pkg/porttable"
)

var logger = corelog.AddPackage("flowreg")

// Registry binds flow-ids to the port that owns their offload record.
type Registry struct {
	ports    *porttable.Table
	byFlowID *regmap.Map[offload.FlowID, uint32] // flow-id -> dp_port
}

// New returns a registry backed by ports, reclaimed through recl.
func New(ports *porttable.Table, recl *epoch.Reclaimer) *Registry {
	return &Registry{
		ports:    ports,
		byFlowID: regmap.New[offload.FlowID, uint32](recl),
	}
}

// Put installs record under dpPort, first removing and returning any
// prior record for the same flow-id (spec.md §4.E: "if a record
// already exists, it is removed... before inserting the new record").
// The caller destroys the returned old record's rules; Put itself only
// updates bookkeeping.
func (r *Registry) Put(dpPort uint32, record *offload.Record) (*offload.Record, error) {
	port, ok := r.ports.Get(dpPort)
	if !ok {
		return nil, offload.ErrNotFound
	}

	old, _ := port.Flows().Delete(record.FlowID, nil)
	port.Flows().Set(record.FlowID, record)
	r.byFlowID.Set(record.FlowID, dpPort)
	return old, nil
}

// Remove unlinks flowID from its owning port's flow map and the side
// index, returning the record so the caller can destroy its rules.
// Remove does not resolve the port itself: a caller that does not know
// dpPort resolves it with Lookup first.
func (r *Registry) Remove(dpPort uint32, flowID offload.FlowID) (*offload.Record, bool) {
	port, ok := r.ports.Get(dpPort)
	if !ok {
		return nil, false
	}
	rec, ok := port.Flows().Delete(flowID, nil)
	if ok {
		r.byFlowID.Delete(flowID, nil)
	}
	return rec, ok
}

// Lookup resolves the datapath port owning flowID, for flow_del calls
// that don't carry the netdev.
func (r *Registry) Lookup(flowID offload.FlowID) (uint32, bool) {
	return r.byFlowID.Get(flowID)
}

// Get returns flowID's current offload record on dpPort without
// removing it.
func (r *Registry) Get(dpPort uint32, flowID offload.FlowID) (*offload.Record, bool) {
	port, ok := r.ports.Get(dpPort)
	if !ok {
		return nil, false
	}
	return port.Flows().Get(flowID)
}

// Len returns the number of currently-installed flows across all ports,
// for the metrics gauge and the admin introspection surface.
func (r *Registry) Len() int {
	return r.byFlowID.Len()
}

// ForgetPort drops every flow-id of dpPort from the side index. Called
// by pkg/core during port_del after it has destroyed the port's flow
// records.
func (r *Registry) ForgetPort(dpPort uint32, flowIDs []offload.FlowID) {
	for _, id := range flowIDs {
		if owner, ok := r.byFlowID.Get(id); ok && owner == dpPort {
			r.byFlowID.Delete(id, nil)
		} else if ok {
			logger.Warnw("flowreg-forget-port-mismatch", corelog.Fields{"flow_id": id.String(), "dp_port": dpPort, "owner": owner})
		}
	}
}
