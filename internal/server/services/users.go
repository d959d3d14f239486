package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// UserService manages the user directory: registration, lookups, profile
// updates and removal.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		logger:      l.With("module", "users"),
	}
}

// Register hashes password and stores a new user. A taken email yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	user := &models.User{Name: name, Email: strings.TrimSpace(email), PasswordHash: hash}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

// Update changes name and/or password. Nil fields are left as they are.
// Nothing to change, or a new password equal to the current one, is
// common.ErrorValidation.
func (s *UserService) Update(ctx context.Context, id int64, name, password *string) (*models.User, error) {
	if name == nil && password == nil {
		return nil, fmt.Errorf("%w: at least one field must be provided for update", common.ErrorValidation)
	}

	return dbx.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		repo := s.repomanager.Users(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		upd := models.UserUpdate{Name: name}
		if password != nil {
			if s.hasher.Verify(*password, current.PasswordHash) {
				return nil, fmt.Errorf("%w: new password must differ from the current one", common.ErrorValidation)
			}
			hash, err := s.hasher.Hash(*password)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
			}
			upd.PasswordHash = &hash
		}

		u, err := repo.Update(ctx, id, upd)
		if err != nil {
			return nil, fmt.Errorf("error updating user: %w", err)
		}

		s.logger.Info(ctx, "user updated", "user_id", id, "password_changed", password != nil)
		return u, nil
	})
}

func (s *UserService) Delete(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return u, nil
}
