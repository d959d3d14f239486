// Package services contains the server-side authentication logic: credential
// validation, login (issue + supersede), the bearer-token guard pipeline and
// the user directory operations exposed over the API.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Directory is the read side of the user directory the core depends on.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// PasswordHasher hashes and checks secrets.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// CredentialValidator checks an email/password pair against the directory.
type CredentialValidator struct {
	directory Directory
	hasher    PasswordHasher
	dummyHash string
}

// NewCredentialValidator fails when the hasher cannot produce the dummy hash
// that unknown emails are checked against, so both failure paths always pay
// for one bcrypt comparison.
func NewCredentialValidator(directory Directory, hasher PasswordHasher) (*CredentialValidator, error) {
	dummy, err := hasher.Hash("authkeeper-unknown-user")
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	if dummy == "" {
		return nil, errors.New("dummy hash: hasher returned an empty hash")
	}
	return &CredentialValidator{directory: directory, hasher: hasher, dummyHash: dummy}, nil
}

// Validate returns the user owning email when password matches.
// Unknown email and wrong password both yield common.ErrInvalidCredentials;
// a failing directory yields common.ErrDirectoryUnavailable.
func (v *CredentialValidator) Validate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := v.directory.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			v.hasher.Verify(password, v.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", common.ErrDirectoryUnavailable, err)
	}

	if !v.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}
