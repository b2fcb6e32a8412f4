// Package adminapi implements the read-mostly introspection surface
// SPEC_FULL.md §4.O describes: ListPorts, ListFlows, GetFlow,
// GetRegistryStats, and the one mutating call, Reconcile, which
// compares a restored snapshot against the live registries and logs
// divergence through Core.ReconcilePort. Grounded on the teacher's
// vendored pkg/grpc server wrapper (GrpcServer: one *grpc.Server,
// AddService appends registration funcs, Start/Stop own the
// listener), adapted to a hand-written grpc.ServiceDesc plus a JSON
// wire codec (codec.go) instead of protoc-generated stubs — there is
// no .proto source for this surface, and a JSON codec lets ordinary Go
// structs stand in for proto messages without one.
package adminapi

// PortInfo is the admin-surface view of one port record.
type PortInfo struct {
	DpPort        uint32 `json:"dp_port"`
	Kind          string `json:"kind"`
	ExceptionMark uint32 `json:"exception_mark,omitempty"`
	FlowCount     int    `json:"flow_count"`
}

// FlowInfo is the admin-surface view of one installed flow.
type FlowInfo struct {
	FlowID string `json:"flow_id"`
	DpPort uint32 `json:"dp_port"`
	State  string `json:"state"`
	Rules  int    `json:"rules"`
}

// ListPortsRequest takes no parameters.
type ListPortsRequest struct{}

// ListPortsResponse lists every currently-registered port.
type ListPortsResponse struct {
	Ports []PortInfo `json:"ports"`
}

// ListFlowsRequest scopes the listing to one port.
type ListFlowsRequest struct {
	DpPort uint32 `json:"dp_port"`
}

// ListFlowsResponse lists every flow installed on the requested port.
type ListFlowsResponse struct {
	Flows []FlowInfo `json:"flows"`
}

// GetFlowRequest looks up one flow by its canonical uuid string.
type GetFlowRequest struct {
	FlowID string `json:"flow_id"`
}

// GetFlowResponse reports whether FlowID was found and, if so, its
// current state.
type GetFlowResponse struct {
	Flow  FlowInfo `json:"flow"`
	Found bool     `json:"found"`
}

// GetRegistryStatsRequest takes no parameters.
type GetRegistryStatsRequest struct{}

// GetRegistryStatsResponse reports the live size of every shared
// registry, for capacity monitoring.
type GetRegistryStatsResponse struct {
	Ports           int `json:"ports"`
	Flows           int `json:"flows"`
	TunnelEntries   int `json:"tunnel_entries"`
	RecircTableIDs  int `json:"recirc_table_ids"`
	PortTableIDs    int `json:"port_table_ids"`
}

// ReconcileRequest triggers a divergence check for one port against
// the most recently restored snapshot.
type ReconcileRequest struct {
	DpPort uint32 `json:"dp_port"`
}

// ReconcileResponse reports whether a snapshot existed to reconcile
// against.
type ReconcileResponse struct {
	Reconciled bool `json:"reconciled"`
}
