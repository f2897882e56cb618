package pagegatev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pagegate.v1.Mediator"

// MediatorServer is implemented by the policy server.
type MediatorServer interface {
	Evaluate(context.Context, *EvaluateRequest) (*RecordResponse, error)
	Navigate(context.Context, *NavigateRequest) (*RecordResponse, error)
	Resolve(context.Context, *ResolveRequest) (*RecordResponse, error)
	ListPending(context.Context, *ListRequest) (*ListResponse, error)
	Log(context.Context, *ListRequest) (*ListResponse, error)
}

// ServiceDesc describes the Mediator service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MediatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Evaluate", MediatorServer.Evaluate),
		unary("Navigate", MediatorServer.Navigate),
		unary("Resolve", MediatorServer.Resolve),
		unary("ListPending", MediatorServer.ListPending),
		unary("Log", MediatorServer.Log),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pagegate/v1/mediator",
}

// RegisterMediatorServer registers srv on s.
func RegisterMediatorServer(s grpc.ServiceRegistrar, srv MediatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](method string, call func(MediatorServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				r := new(Req)
				if err := Decode(req.(*structpb.Struct), r); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(srv.(MediatorServer), ctx, r)
				if err != nil {
					return nil, err
				}
				return Encode(resp)
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// MediatorClient calls a remote Mediator service.
type MediatorClient struct {
	cc grpc.ClientConnInterface
}

// NewMediatorClient wraps an established connection.
func NewMediatorClient(cc grpc.ClientConnInterface) *MediatorClient {
	return &MediatorClient{cc: cc}
}

func (c *MediatorClient) Evaluate(ctx context.Context, in *EvaluateRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c.cc, "Evaluate", in, opts)
}

func (c *MediatorClient) Navigate(ctx context.Context, in *NavigateRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c.cc, "Navigate", in, opts)
}

func (c *MediatorClient) Resolve(ctx context.Context, in *ResolveRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c.cc, "Resolve", in, opts)
}

func (c *MediatorClient) ListPending(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, "ListPending", in, opts)
}

func (c *MediatorClient) Log(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, "Log", in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	req, err := Encode(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, fullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := Decode(out, resp); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}
