package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// publicMethods skip the guard.
var publicMethods = map[string]bool{
	LoginFullMethod: true,
}

func isPublic(fullMethod string) bool {
	return publicMethods[fullMethod] || strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

func authorizationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(MetadataAuthorization)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// accessTokenInterceptor authenticates every non-public call and attaches
// the principal to the handler context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if isPublic(info.FullMethod) {
		return handler(ctx, req)
	}

	p, err := s.guard.AuthenticateHeader(ctx, authorizationFromMetadata(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(services.WithPrincipal(ctx, p), req)
}
