package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/database/models"
)

// Authenticator defines the account lifecycle operations exposed over HTTP.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ForgotPassword(ctx context.Context, email string) (*ResetTicket, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// UserLoader resolves a token subject to a live user record.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator  = (*Service)(nil)
	_ TokenValidator = (*JWTService)(nil)
	_ UserLoader     = (*Service)(nil)
)
