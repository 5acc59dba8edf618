package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Common validation errors
var (
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

var validate = validator.New()

// User is a registered account. Users own projects and may be assigned tasks.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           *string   `json:"name,omitempty"`
	Password       string    `json:"-"` // Plaintext, only set during registration
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUser creates an unsaved User. The caller hashes Password before storage.
func NewUser(email, password string, name *string) (*User, error) {
	user := &User{
		Email:     strings.TrimSpace(email),
		Name:      name,
		Password:  password,
		CreatedAt: time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks email format and either the plaintext password length or the
// presence of a stored hash.
func (u *User) Validate() error {
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if err := validate.Var(u.Email, "email"); err != nil {
		return ErrInvalidEmail
	}

	if u.Password != "" {
		if len(u.Password) < minPasswordLength {
			return ErrPasswordTooShort
		}
		if len(u.Password) > maxPasswordLength {
			return ErrPasswordTooLong
		}
		return nil
	}

	if u.HashedPassword == "" {
		return ErrEmptyPassword
	}
	return nil
}

// DisplayName returns the user's name, or the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return *u.Name
	}
	return u.Email
}
