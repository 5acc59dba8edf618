package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskman-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create hashes the user's plaintext password, inserts the row and sets
	// user.ID. Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email, including the stored hash.
	// Returns ErrUserNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
