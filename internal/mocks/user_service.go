package mocks

import (
	"context"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/service"
)

// MockUserService implements service.UserService for testing.
type MockUserService struct {
	CreateUserFn   func(ctx context.Context, email, password string, name *string) (*domain.User, error)
	GetUserFn      func(ctx context.Context, userID int64) (*domain.User, error)
	AuthenticateFn func(ctx context.Context, email, password string) (*domain.User, error)

	User *domain.User
	Err  error
}

var _ service.UserService = (*MockUserService)(nil)

// CreateUser implements service.UserService.
func (m *MockUserService) CreateUser(ctx context.Context, email, password string, name *string) (*domain.User, error) {
	if m.CreateUserFn != nil {
		return m.CreateUserFn(ctx, email, password, name)
	}
	return m.User, m.Err
}

// GetUser implements service.UserService.
func (m *MockUserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, userID)
	}
	return m.User, m.Err
}

// Authenticate implements service.UserService.
func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, email, password)
	}
	return m.User, m.Err
}
