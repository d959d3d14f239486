package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var validate = validator.New()

// Guard authenticates a raw authorization value.
type Guard interface {
	AuthenticateHeader(ctx context.Context, header string) (*services.Principal, error)
}

// Sessions issues access tokens.
type Sessions interface {
	Login(ctx context.Context, email, password, presented string) (*auth.IssuedToken, error)
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	email := fields["email"].GetStringValue()
	password := fields["password"].GetStringValue()

	if err := validate.Var(email, "required,email"); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid email format")
	}
	if err := validate.Var(password, "required"); err != nil {
		return nil, status.Error(codes.InvalidArgument, "password should not be empty")
	}

	presented, _ := common.ParseBearer(authorizationFromMetadata(ctx))

	tok, err := s.sessions.Login(ctx, email, password, presented)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return wrapperspb.String(tok.Value), nil
}

func (s *GRPCServer) Profile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	p, ok := services.PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized access")
	}

	return structpb.NewStruct(map[string]any{
		"id":    float64(p.ID),
		"email": p.Email,
		"name":  p.Name,
	})
}

// toStatus maps service errors to gRPC status codes. Token and credential
// failures share one code and message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrLedgerUnavailable), errors.Is(err, common.ErrDirectoryUnavailable):
		s.logger.Error(ctx, "dependency unavailable", "error", err)
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, common.ErrUnauthenticated), errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "unauthorized access")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
