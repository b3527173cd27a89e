package controller_api

import (
	"context"
	"errors"
	"fmt"
	"net"

	"sdncontrol/flow_admission"
	"sdncontrol/metrics"
	"sdncontrol/topology"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Core is the controller surface the gRPC service drives
type Core interface {
	AddNode(id string, nodeType topology.NodeType)
	AddLink(a, b string, bandwidth float64)
	RemoveLink(a, b string)
	RestoreLink(a, b string)
	Link(a, b string) (topology.Link, bool)
	ComputePaths(src, dst string, priority int) [][]string
	Admit(src, dst string, priority int, bandwidth float64) (flow_admission.ActiveFlow, error)
	DefaultFlowBandwidth() float64
	Nodes() []topology.Node
	Links() []topology.Link
	ActiveFlows() []flow_admission.ActiveFlow
}

// Server implements sdn.Controller on top of a Core
type Server struct {
	core       Core
	validate   *validator.Validate
	metrics    *metrics.Registry
	grpcServer *grpc.Server
	health     *health.Server
}

func NewServer(core Core, registry *metrics.Registry) *Server {
	s := &Server{
		core:     core,
		validate: validator.New(),
		metrics:  registry,
		health:   health.NewServer(),
	}

	s.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(s.observe))
	RegisterControllerServer(s.grpcServer, s)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// observe logs and counts every unary call
func (s *Server) observe(ctx context.Context, req any, info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (any, error) {

	resp, err := handler(ctx, req)
	code := status.Code(err)
	s.metrics.RecordGRPCRequest(info.FullMethod, code.String())
	if err != nil {
		log.Warnf("observe: method=%s, code=%s, err=%v", info.FullMethod, code, err)
	} else {
		log.Debugf("observe: method=%s, code=%s", info.FullMethod, code)
	}
	return resp, err
}

// Serve blocks serving lis until Stop
func (s *Server) Serve(lis net.Listener) error {
	log.Infof("Serve: controller gRPC server listening on %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// Start listens on addr and serves until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		log.Infof("Start: controller gRPC server is shutting down...")
		s.Stop()
	}()

	return s.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func (s *Server) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func (s *Server) AddNode(ctx context.Context, req *AddNodeRequest) (*Ack, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	nodeType := topology.NodeType(req.Type)
	if nodeType == "" {
		nodeType = topology.NodeTypeSwitch
	}
	s.core.AddNode(req.ID, nodeType)
	return &Ack{Found: true}, nil
}

func (s *Server) AddLink(ctx context.Context, req *AddLinkRequest) (*Ack, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	s.core.AddLink(req.A, req.B, req.Bandwidth)
	return &Ack{Found: true}, nil
}

func (s *Server) RemoveLink(ctx context.Context, req *LinkRequest) (*Ack, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	_, found := s.core.Link(req.A, req.B)
	s.core.RemoveLink(req.A, req.B)
	return &Ack{Found: found}, nil
}

func (s *Server) RestoreLink(ctx context.Context, req *LinkRequest) (*Ack, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	_, found := s.core.Link(req.A, req.B)
	s.core.RestoreLink(req.A, req.B)
	return &Ack{Found: found}, nil
}

func (s *Server) ComputePaths(ctx context.Context, req *ComputePathsRequest) (*ComputePathsResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	paths := s.core.ComputePaths(req.Src, req.Dst, req.Priority)
	if paths == nil {
		paths = [][]string{}
	}
	return &ComputePathsResponse{Paths: paths}, nil
}

func (s *Server) InjectFlow(ctx context.Context, req *InjectFlowRequest) (*InjectFlowResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	bandwidth := s.core.DefaultFlowBandwidth()
	if req.Bandwidth != nil {
		bandwidth = *req.Bandwidth
	}

	flow, err := s.core.Admit(req.Src, req.Dst, req.Priority, bandwidth)
	if errors.Is(err, flow_admission.ErrNoPathAvailable) {
		return &InjectFlowResponse{Admitted: false, Reason: err.Error()}, nil
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return &InjectFlowResponse{
		Admitted:    true,
		FlowID:      flow.ID,
		PrimaryPath: flow.PrimaryPath,
		BackupPath:  flow.BackupPath,
	}, nil
}

func (s *Server) ListNodes(ctx context.Context, req *ListRequest) (*ListNodesResponse, error) {
	return &ListNodesResponse{Nodes: s.core.Nodes()}, nil
}

func (s *Server) ListLinks(ctx context.Context, req *ListRequest) (*ListLinksResponse, error) {
	return &ListLinksResponse{Links: s.core.Links()}, nil
}

func (s *Server) ListFlows(ctx context.Context, req *ListRequest) (*ListFlowsResponse, error) {
	return &ListFlowsResponse{Flows: s.core.ActiveFlows()}, nil
}
