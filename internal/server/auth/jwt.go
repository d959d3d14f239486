// Package auth issues and verifies access tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the registered claims (sub, iat, exp, jti) plus the subject's email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// SubjectID returns the numeric user id carried in sub.
func (c *Claims) SubjectID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// IssuedToken is a signed token and the instant it stops being valid.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 access tokens with one process-wide secret.
type Issuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewIssuer builds an Issuer. now may be nil, meaning time.Now.
func NewIssuer(secret []byte, validity time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: secret, validity: validity, now: now}
}

// Validity is the lifetime given to new tokens.
func (i *Issuer) Validity() time.Duration { return i.validity }

// Issue signs a token for the subject. Timestamps are whole seconds, as on the
// wire, so ExpiresAt matches what Verify will read back.
func (i *Issuer) Issue(subjectID int64, email string) (*IssuedToken, error) {
	issuedAt := i.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email: email,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature first and the expiry second.
// Any structural or signature problem is common.ErrInvalidToken;
// a genuine token at or past exp is common.ErrTokenExpired.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}

	if claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}
	if _, err := claims.SubjectID(); err != nil {
		return nil, common.ErrInvalidToken
	}

	if !i.now().Before(claims.ExpiresAt.Time) {
		return claims, common.ErrTokenExpired
	}

	return claims, nil
}

// RemainingLifetime is how long a verified token stays valid from now.
func (i *Issuer) RemainingLifetime(c *Claims) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(i.now())
}
