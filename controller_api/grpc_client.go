package controller_api

import (
	"context"
	"fmt"

	"sdncontrol/flow_admission"
	"sdncontrol/topology"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GrpcClient calls sdn.Controller over a client connection
type GrpcClient struct {
	conn *grpc.ClientConn
}

// NewGrpcClient creates a lazily connecting client for address. Extra dial
// options are appended, which tests use to plug in an in-memory dialer.
func NewGrpcClient(address string, opts ...grpc.DialOption) (*GrpcClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for controller %s: %w", address, err)
	}
	return &GrpcClient{conn: conn}, nil
}

func (g *GrpcClient) Conn() *grpc.ClientConn {
	return g.conn
}

func (g *GrpcClient) Close() error {
	return g.conn.Close()
}

func (g *GrpcClient) invoke(ctx context.Context, method string, in, out any) error {
	if err := g.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	return nil
}

func (g *GrpcClient) AddNode(ctx context.Context, id string, nodeType topology.NodeType) error {
	return g.invoke(ctx, "AddNode", &AddNodeRequest{ID: id, Type: string(nodeType)}, &Ack{})
}

func (g *GrpcClient) AddLink(ctx context.Context, a, b string, bandwidth float64) error {
	return g.invoke(ctx, "AddLink", &AddLinkRequest{A: a, B: b, Bandwidth: bandwidth}, &Ack{})
}

// RemoveLink returns whether the link exists
func (g *GrpcClient) RemoveLink(ctx context.Context, a, b string) (bool, error) {
	ack := &Ack{}
	err := g.invoke(ctx, "RemoveLink", &LinkRequest{A: a, B: b}, ack)
	return ack.Found, err
}

// RestoreLink returns whether the link exists
func (g *GrpcClient) RestoreLink(ctx context.Context, a, b string) (bool, error) {
	ack := &Ack{}
	err := g.invoke(ctx, "RestoreLink", &LinkRequest{A: a, B: b}, ack)
	return ack.Found, err
}

func (g *GrpcClient) ComputePaths(ctx context.Context, src, dst string, priority int) ([][]string, error) {
	resp := &ComputePathsResponse{}
	if err := g.invoke(ctx, "ComputePaths", &ComputePathsRequest{Src: src, Dst: dst, Priority: priority}, resp); err != nil {
		return nil, err
	}
	return resp.Paths, nil
}

func (g *GrpcClient) InjectFlow(ctx context.Context, src, dst string, priority int, bandwidth float64) (*InjectFlowResponse, error) {
	return g.injectFlow(ctx, &InjectFlowRequest{Src: src, Dst: dst, Priority: priority, Bandwidth: &bandwidth})
}

// InjectDefaultFlow leaves the bandwidth to the controller default
func (g *GrpcClient) InjectDefaultFlow(ctx context.Context, src, dst string, priority int) (*InjectFlowResponse, error) {
	return g.injectFlow(ctx, &InjectFlowRequest{Src: src, Dst: dst, Priority: priority})
}

func (g *GrpcClient) injectFlow(ctx context.Context, req *InjectFlowRequest) (*InjectFlowResponse, error) {
	resp := &InjectFlowResponse{}
	if err := g.invoke(ctx, "InjectFlow", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *GrpcClient) ListNodes(ctx context.Context) ([]topology.Node, error) {
	resp := &ListNodesResponse{}
	if err := g.invoke(ctx, "ListNodes", &ListRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

func (g *GrpcClient) ListLinks(ctx context.Context) ([]topology.Link, error) {
	resp := &ListLinksResponse{}
	if err := g.invoke(ctx, "ListLinks", &ListRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Links, nil
}

func (g *GrpcClient) ListFlows(ctx context.Context) ([]flow_admission.ActiveFlow, error) {
	resp := &ListFlowsResponse{}
	if err := g.invoke(ctx, "ListFlows", &ListRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Flows, nil
}
