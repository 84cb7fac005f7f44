package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"auth-service/internal/server/interceptors"
)

// ServiceName is the session service, reported by the health service alongside "".
const ServiceName = "auth.v1.SessionService"

// WhoAmIFullMethod returns the email of the Bearer token's owner.
const WhoAmIFullMethod = "/" + ServiceName + "/WhoAmI"

// SessionServiceServer is served behind AuthUnary, so every method sees an authenticated email.
type SessionServiceServer interface {
	WhoAmI(ctx context.Context, req *emptypb.Empty) (*wrapperspb.StringValue, error)
}

type sessionServer struct{}

// NewSessionServer returns the session service implementation.
func NewSessionServer() SessionServiceServer {
	return sessionServer{}
}

func (sessionServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	email, ok := interceptors.GetEmail(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	return wrapperspb.String(email.String()), nil
}

func whoAmIHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WhoAmIFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServiceServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SessionServiceDesc describes the session service using well-known message types.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterSessionServiceServer registers srv with s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}
