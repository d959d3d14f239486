package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocation"
)

// TokenVerifier is the verification half of the token issuer.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type principalKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal set by the guard.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Authenticator runs the bearer-token guard: verify signature, verify
// expiry, consult the revocation ledger, resolve the subject. It keeps no
// state between requests.
type Authenticator struct {
	verifier  TokenVerifier
	ledger    revocation.Ledger
	directory Directory
	logger    logging.Logger
}

func NewAuthenticator(v TokenVerifier, ledger revocation.Ledger, directory Directory, l logging.Logger) *Authenticator {
	return &Authenticator{
		verifier:  v,
		ledger:    ledger,
		directory: directory,
		logger:    l.With("module", "authenticator"),
	}
}

// AuthenticateHeader runs the guard on a raw Authorization header value.
func (a *Authenticator) AuthenticateHeader(ctx context.Context, header string) (*Principal, error) {
	token, err := common.ParseBearer(header)
	if err != nil {
		return nil, a.reject(ctx, err)
	}
	return a.Authenticate(ctx, token)
}

// Authenticate resolves the principal behind token.
//
// Errors: every token problem matches common.ErrUnauthenticated (and the
// specific reason: ErrInvalidToken, ErrTokenExpired, ErrTokenRevoked,
// ErrUnknownSubject). A ledger that cannot be read is
// common.ErrLedgerUnavailable, so a possibly revoked token is never admitted;
// a failing directory is common.ErrDirectoryUnavailable.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, a.reject(ctx, common.ErrMissingToken)
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, a.reject(ctx, common.ErrTokenExpired)
		}
		return nil, a.reject(ctx, common.ErrInvalidToken)
	}

	revoked, err := a.ledger.IsRevoked(ctx, token)
	if err != nil {
		a.logger.Error(ctx, "revocation check failed", "error", err)
		if !errors.Is(err, common.ErrLedgerUnavailable) {
			err = fmt.Errorf("%w: %w", common.ErrLedgerUnavailable, err)
		}
		return nil, err
	}
	if revoked {
		return nil, a.reject(ctx, common.ErrTokenRevoked, "subject", claims.Subject)
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return nil, a.reject(ctx, common.ErrInvalidToken)
	}

	user, err := a.directory.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, a.reject(ctx, common.ErrUnknownSubject, "subject", claims.Subject)
		}
		a.logger.Error(ctx, "principal lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDirectoryUnavailable, err)
	}

	return &Principal{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

func (a *Authenticator) reject(ctx context.Context, reason error, args ...any) error {
	a.logger.Info(ctx, "authentication rejected", append([]any{"reason", reason.Error()}, args...)...)
	return fmt.Errorf("%w: %w", common.ErrUnauthenticated, reason)
}
