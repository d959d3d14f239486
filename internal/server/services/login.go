package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocation"
)

// revocationLeeway keeps a ledger entry alive past the token's own expiry.
const revocationLeeway = time.Second

// TokenIssuer issues and verifies access tokens.
type TokenIssuer interface {
	Issue(subjectID int64, email string) (*auth.IssuedToken, error)
	Verify(token string) (*auth.Claims, error)
	RemainingLifetime(c *auth.Claims) time.Duration
}

// RevocationTTL is the ledger lifetime for a token with the given remaining
// validity: rounded up to whole seconds plus revocationLeeway. Already
// expired tokens need no entry.
func RevocationTTL(remaining time.Duration) time.Duration {
	if remaining <= 0 {
		return 0
	}
	return (remaining + time.Second - 1).Truncate(time.Second) + revocationLeeway
}

// LoginService implements login: validate credentials, issue a token and
// supersede whatever token the caller presented.
type LoginService struct {
	validator *CredentialValidator
	issuer    TokenIssuer
	ledger    revocation.Ledger
	logger    logging.Logger
}

func NewLoginService(v *CredentialValidator, issuer TokenIssuer, ledger revocation.Ledger, l logging.Logger) *LoginService {
	return &LoginService{
		validator: v,
		issuer:    issuer,
		ledger:    ledger,
		logger:    l.With("module", "login"),
	}
}

// Login returns a fresh token for valid credentials. When presented is a
// still-valid token, it is revoked for its remaining lifetime before the new
// token is returned; if that revocation cannot be recorded the login fails
// with common.ErrLedgerUnavailable and no token is handed out.
func (s *LoginService) Login(ctx context.Context, email, password, presented string) (*auth.IssuedToken, error) {
	user, err := s.validator.Validate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if presented != "" {
		if err := s.supersede(ctx, presented); err != nil {
			return nil, err
		}
	}

	s.logger.Info(ctx, "login succeeded", "user_id", user.ID, "superseded", presented != "")
	return token, nil
}

// Logout revokes token for its remaining lifetime.
func (s *LoginService) Logout(ctx context.Context, token string) error {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}
	return s.ledger.Revoke(ctx, token, RevocationTTL(s.issuer.RemainingLifetime(claims)))
}

func (s *LoginService) supersede(ctx context.Context, presented string) error {
	claims, err := s.issuer.Verify(presented)
	if err != nil {
		// Forged, malformed or expired tokens are already unusable.
		s.logger.Debug(ctx, "presented token not revoked", "reason", err.Error())
		return nil
	}

	ttl := RevocationTTL(s.issuer.RemainingLifetime(claims))
	if err := s.ledger.Revoke(ctx, presented, ttl); err != nil {
		s.logger.Error(ctx, "revoking superseded token failed", "error", err)
		return err
	}

	s.logger.Debug(ctx, "superseded token revoked", "subject", claims.Subject, "ttl", ttl)
	return nil
}
