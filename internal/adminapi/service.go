package adminapi

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName is the fully-qualified name a hand-rolled client dials
// against — the same role a .proto package+service declaration plays
// for protoc-gen-go-grpc's generated constant.
const serviceName = "flowcore.admin.FlowCoreAdmin"

// FlowCoreAdminServer is the interface *Server implements; split out so
// the generated-shape handlers below depend on an interface rather
// than the concrete type, exactly as protoc-gen-go-grpc emits it.
type FlowCoreAdminServer interface {
	ListPorts(context.Context, *ListPortsRequest) (*ListPortsResponse, error)
	ListFlows(context.Context, *ListFlowsRequest) (*ListFlowsResponse, error)
	GetFlow(context.Context, *GetFlowRequest) (*GetFlowResponse, error)
	GetRegistryStats(context.Context, *GetRegistryStatsRequest) (*GetRegistryStatsResponse, error)
	Reconcile(context.Context, *ReconcileRequest) (*ReconcileResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FlowCoreAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPorts", Handler: listPortsHandler},
		{MethodName: "ListFlows", Handler: listFlowsHandler},
		{MethodName: "GetFlow", Handler: getFlowHandler},
		{MethodName: "GetRegistryStats", Handler: getRegistryStatsHandler},
		{MethodName: "Reconcile", Handler: reconcileHandler},
	},
	Metadata: "adminapi",
}

func listPortsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListPortsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowCoreAdminServer).ListPorts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListPorts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowCoreAdminServer).ListPorts(ctx, req.(*ListPortsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listFlowsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListFlowsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowCoreAdminServer).ListFlows(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListFlows"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowCoreAdminServer).ListFlows(ctx, req.(*ListFlowsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getFlowHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetFlowRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowCoreAdminServer).GetFlow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetFlow"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowCoreAdminServer).GetFlow(ctx, req.(*GetFlowRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRegistryStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRegistryStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowCoreAdminServer).GetRegistryStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetRegistryStats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowCoreAdminServer).GetRegistryStats(ctx, req.(*GetRegistryStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func reconcileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReconcileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowCoreAdminServer).Reconcile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Reconcile"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowCoreAdminServer).Reconcile(ctx, req.(*ReconcileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is a thin hand-written stub mirroring what protoc-gen-go-grpc
// would emit for FlowCoreAdminClient, for tests and any operator
// tooling that wants an in-process client rather than grpcurl.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an already-dialed connection. Dial cc with
// grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)) so
// requests are marshaled with the JSON codec this package registers.
func NewClient(cc *grpc.ClientConn) *Client { return &Client{cc: cc} }

func (c *Client) ListPorts(ctx context.Context, in *ListPortsRequest) (*ListPortsResponse, error) {
	out := new(ListPortsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListPorts", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListFlows(ctx context.Context, in *ListFlowsRequest) (*ListFlowsResponse, error) {
	out := new(ListFlowsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListFlows", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFlow(ctx context.Context, in *GetFlowRequest) (*GetFlowResponse, error) {
	out := new(GetFlowResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetFlow", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRegistryStats(ctx context.Context, in *GetRegistryStatsRequest) (*GetRegistryStatsResponse, error) {
	out := new(GetRegistryStatsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetRegistryStats", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Reconcile(ctx context.Context, in *ReconcileRequest) (*ReconcileResponse, error) {
	out := new(ReconcileResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Reconcile", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
