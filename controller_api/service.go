package controller_api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "sdn.Controller"

// ControllerServer is the server side of sdn.Controller
type ControllerServer interface {
	AddNode(context.Context, *AddNodeRequest) (*Ack, error)
	AddLink(context.Context, *AddLinkRequest) (*Ack, error)
	RemoveLink(context.Context, *LinkRequest) (*Ack, error)
	RestoreLink(context.Context, *LinkRequest) (*Ack, error)
	ComputePaths(context.Context, *ComputePathsRequest) (*ComputePathsResponse, error)
	InjectFlow(context.Context, *InjectFlowRequest) (*InjectFlowResponse, error)
	ListNodes(context.Context, *ListRequest) (*ListNodesResponse, error)
	ListLinks(context.Context, *ListRequest) (*ListLinksResponse, error)
	ListFlows(context.Context, *ListRequest) (*ListFlowsResponse, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unaryHandler adapts a typed method to the grpc.MethodDesc handler signature
func unaryHandler[Req any, Resp any](name string,
	call func(ControllerServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControllerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ControllerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ControllerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddNode", Handler: unaryHandler("AddNode", ControllerServer.AddNode)},
		{MethodName: "AddLink", Handler: unaryHandler("AddLink", ControllerServer.AddLink)},
		{MethodName: "RemoveLink", Handler: unaryHandler("RemoveLink", ControllerServer.RemoveLink)},
		{MethodName: "RestoreLink", Handler: unaryHandler("RestoreLink", ControllerServer.RestoreLink)},
		{MethodName: "ComputePaths", Handler: unaryHandler("ComputePaths", ControllerServer.ComputePaths)},
		{MethodName: "InjectFlow", Handler: unaryHandler("InjectFlow", ControllerServer.InjectFlow)},
		{MethodName: "ListNodes", Handler: unaryHandler("ListNodes", ControllerServer.ListNodes)},
		{MethodName: "ListLinks", Handler: unaryHandler("ListLinks", ControllerServer.ListLinks)},
		{MethodName: "ListFlows", Handler: unaryHandler("ListFlows", ControllerServer.ListFlows)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sdn/controller",
}

func RegisterControllerServer(s grpc.ServiceRegistrar, srv ControllerServer) {
	s.RegisterService(&ControllerServiceDesc, srv)
}
