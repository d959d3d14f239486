package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service speaks protobuf well-known types only, so it needs no
// generated code:
//
//	service AuthService {
//	  rpc Login(google.protobuf.Struct) returns (google.protobuf.StringValue);
//	  rpc Profile(google.protobuf.Empty) returns (google.protobuf.Struct);
//	}
const (
	ServiceName       = "authkeeper.AuthService"
	LoginFullMethod   = "/" + ServiceName + "/Login"
	ProfileFullMethod = "/" + ServiceName + "/Profile"
)

// MetadataAuthorization is the metadata key carrying "Bearer <token>".
const MetadataAuthorization = "authorization"

// AuthServiceServer is implemented by GRPCServer.
type AuthServiceServer interface {
	// Login expects {"email": ..., "password": ...} and returns the token.
	Login(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error)
	// Profile returns {"id", "email", "name"} of the authenticated caller.
	Profile(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

func loginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).Login(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LoginFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthServiceServer).Login(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func profileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).Profile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProfileFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthServiceServer).Profile(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AuthServiceDesc describes authkeeper.AuthService for grpc.Server.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: loginHandler},
		{MethodName: "Profile", Handler: profileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authkeeper/auth.proto",
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// AuthServiceClient calls authkeeper.AuthService.
type AuthServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func (c *AuthServiceClient) Login(ctx context.Context, email, password string, opts ...grpc.CallOption) (string, error) {
	in, err := structpb.NewStruct(map[string]any{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, LoginFullMethod, in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *AuthServiceClient) Profile(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProfileFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
