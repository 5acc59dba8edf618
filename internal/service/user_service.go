package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/platform/logger"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/store"
)

// UserService provides registration and credential checks.
type UserService interface {
	// CreateUser registers a new user. Returns ErrEmailExists for a taken email.
	CreateUser(ctx context.Context, email, password string, name *string) (*domain.User, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// Authenticate returns the user whose email and password match, or
	// auth.ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	verifier  auth.PasswordVerifier
	db        *sql.DB
	logger    *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	verifier auth.PasswordVerifier,
	db *sql.DB,
	logger *slog.Logger,
) *UserServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	if verifier == nil {
		verifier = auth.NewBcryptVerifier()
	}
	return &UserServiceImpl{
		userStore: userStore,
		verifier:  verifier,
		db:        db,
		logger:    logger.With(slog.String("component", "user_service")),
	}
}

// CreateUser creates a new user with the specified email and password
func (s *UserServiceImpl) CreateUser(
	ctx context.Context,
	email, password string,
	name *string,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if name != nil && strings.TrimSpace(*name) == "" {
		name = nil
	}

	user, err := domain.NewUser(email, password, name)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register an existing email")
		} else {
			log.Error("failed to save user", slog.String("error", err.Error()))
		}
		return nil, NewServiceError("create_user", "failed to create user", err)
	}

	log.Info("user created", slog.Int64("user_id", user.ID))
	return user, nil
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, NewServiceError("get_user", "failed to retrieve user", err)
	}
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password produce
// the same error.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login attempt for unknown email")
			return nil, auth.ErrInvalidCredentials
		}
		return nil, NewServiceError("authenticate", "failed to retrieve user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login attempt with wrong password", slog.Int64("user_id", user.ID))
		return nil, auth.ErrInvalidCredentials
	}
	return user, nil
}
