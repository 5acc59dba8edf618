package auth

import (
	"context"
	"time"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the user.
	GenerateToken(ctx context.Context, userID int64) (string, error)

	// ValidateToken validates an access token and extracts its claims.
	// Refresh tokens are rejected with ErrWrongTokenType.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a signed refresh token with the longer
	// refresh lifetime.
	GenerateRefreshToken(ctx context.Context, userID int64) (string, error)

	// ValidateRefreshToken validates a refresh token and extracts its claims.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	UserID    int64     `json:"uid,omitempty"`
	TokenType string    `json:"type,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
