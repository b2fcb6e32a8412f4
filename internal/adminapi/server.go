package adminapi

import (
	"context"
	"fmt"
	"net"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/flowcore/nicoffload/internal/corelog"
	"github.com/flowcore/nicoffload/pkg/core"
	"github.com/flowcore/nicoffload/pkg/offload"
)

var logger = corelog.AddPackage("adminapi")

// Server is the FlowCoreAdmin gRPC server: one *grpc.Server wrapping
// the registries a running Core exposes read access to, plus the one
// mutating call (Reconcile). Grounded on the teacher's vendored
// pkg/grpc.GrpcServer (address, registered services, Start owns the
// listener and blocks, Stop calls gs.Stop()) with the readiness-probe
// gate dropped — SPEC_FULL.md's probe package already exists for
// process-level liveness, this surface doesn't need a second one.
type Server struct {
	gs      *grpc.Server
	address string
	core    *core.Core
}

// NewServer returns a Server bound to address, ready to have Start
// called. c must already be constructed via core.New.
func NewServer(address string, c *core.Core) *Server {
	recoveryOpts := []grpc_recovery.Option{
		grpc_recovery.WithRecoveryHandlerContext(func(ctx context.Context, p interface{}) error {
			logger.Errorw("adminapi-panic-recovered", corelog.Fields{"panic": fmt.Sprintf("%v", p)})
			return fmt.Errorf("adminapi: internal error")
		}),
	}
	gs := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_recovery.UnaryServerInterceptor(recoveryOpts...),
		)),
	)
	s := &Server{gs: gs, address: address, core: c}
	gs.RegisterService(&serviceDesc, FlowCoreAdminServer(s))
	return s
}

// Start listens on s.address and blocks serving requests until Stop is
// called from another goroutine.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("adminapi: listen: %w", err)
	}
	logger.Infow("adminapi-listening", corelog.Fields{"address": s.address})
	return s.gs.Serve(lis)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.gs.GracefulStop()
}

func (s *Server) ListPorts(ctx context.Context, _ *ListPortsRequest) (*ListPortsResponse, error) {
	resp := &ListPortsResponse{}
	for _, p := range s.core.Ports().All() {
		resp.Ports = append(resp.Ports, PortInfo{
			DpPort:        p.DpPort,
			Kind:          p.Kind.String(),
			ExceptionMark: p.ExceptionMark,
			FlowCount:     p.Flows().Len(),
		})
	}
	return resp, nil
}

func (s *Server) ListFlows(ctx context.Context, req *ListFlowsRequest) (*ListFlowsResponse, error) {
	port, ok := s.core.Ports().Get(req.DpPort)
	if !ok {
		return nil, fmt.Errorf("adminapi: port %d: %w", req.DpPort, offload.ErrNotFound)
	}
	resp := &ListFlowsResponse{}
	port.Flows().Range(func(id offload.FlowID, rec *offload.Record) bool {
		resp.Flows = append(resp.Flows, FlowInfo{
			FlowID: id.String(),
			DpPort: req.DpPort,
			State:  rec.State.String(),
			Rules:  len(rec.Rules),
		})
		return true
	})
	return resp, nil
}

func (s *Server) GetFlow(ctx context.Context, req *GetFlowRequest) (*GetFlowResponse, error) {
	parsed, err := uuid.Parse(req.FlowID)
	if err != nil {
		return nil, fmt.Errorf("adminapi: flow_id %q: %w", req.FlowID, offload.ErrInvariantViolated)
	}
	flowID := offload.FlowID(parsed)

	dpPort, ok := s.core.Flows().Lookup(flowID)
	if !ok {
		return &GetFlowResponse{Found: false}, nil
	}
	rec, ok := s.core.Flows().Get(dpPort, flowID)
	if !ok {
		return &GetFlowResponse{Found: false}, nil
	}
	return &GetFlowResponse{
		Found: true,
		Flow: FlowInfo{
			FlowID: flowID.String(),
			DpPort: dpPort,
			State:  rec.State.String(),
			Rules:  len(rec.Rules),
		},
	}, nil
}

func (s *Server) GetRegistryStats(ctx context.Context, _ *GetRegistryStatsRequest) (*GetRegistryStatsResponse, error) {
	return &GetRegistryStatsResponse{
		Ports:          len(s.core.Ports().All()),
		Flows:          s.core.Flows().Len(),
		TunnelEntries:  s.core.Tunnels().Len(),
		RecircTableIDs: s.core.Tables().Recirc().Len(),
		PortTableIDs:   s.core.Tables().Port().Len(),
	}, nil
}

func (s *Server) Reconcile(ctx context.Context, req *ReconcileRequest) (*ReconcileResponse, error) {
	snap, ok, err := s.core.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("adminapi: reconcile: %w", err)
	}
	if !ok {
		return &ReconcileResponse{Reconciled: false}, nil
	}
	if err := s.core.ReconcilePort(snap, req.DpPort); err != nil {
		return nil, fmt.Errorf("adminapi: reconcile: %w", err)
	}
	return &ReconcileResponse{Reconciled: true}, nil
}
