// File: internal/shared/core.go
package shared

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried inside the signed payload. A token minted for one
// purpose can never be replayed as another: every consumer checks the type
// after signature and expiry verification succeed.
const (
	TokenTypeAccess     = "access"
	TokenTypeRefresh    = "refresh"
	TokenTypeOAuthState = "oauth_state"
)

// Claims is the signed claim set for all token kinds. Subject is the user ID
// for access/refresh tokens and the provider name for oauth_state tokens.
type Claims struct {
	TokenType string `json:"type"`
	Redirect  string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

// User represents a user outside the persistence layer.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Nickname        string     `json:"nickname"`
	ProfileImageURL *string    `json:"profile_image_url,omitempty"`
	Role            string     `json:"role"`
	ProfileComplete bool       `json:"profile_complete"`
	IsActive        bool       `json:"is_active"`
	SuspendedUntil  *time.Time `json:"suspended_until,omitempty"`
	HasPassword     bool       `json:"has_password"`
	Providers       []string   `json:"providers"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// TokenResponse represents the response containing JWT tokens.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CreateUserRequest represents a request to create a new user.
type CreateUserRequest struct {
	Email    string
	Password string
	Nickname string
}

// ExternalIdentity is the normalized result of a provider code exchange.
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	DisplayName    string
}

// TokenService defines the interface for minting and verifying tokens.
type TokenService interface {
	GenerateAccessToken(userID uuid.UUID) (string, time.Time, error)
	GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error)
	GenerateStateToken(provider, redirect string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Service defines the user-facing business logic the rest of the system
// depends on.
type Service interface {
	Register(ctx context.Context, req CreateUserRequest) (*User, *TokenResponse, error)
	Login(ctx context.Context, email, password string) (*User, *TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*User, *TokenResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetCurrentIdentity re-checks account state (active, not deleted, not
	// suspended) on every call, not only at login.
	GetCurrentIdentity(ctx context.Context, id uuid.UUID) (*User, error)
	CompleteProfile(ctx context.Context, id uuid.UUID, nickname, profileImage *string) (*User, *TokenResponse, error)
	IssueSession(ctx context.Context, id uuid.UUID) (*TokenResponse, error)
}

// OAuthUserProvider defines the user operations needed by the OAuth
// orchestration service.
type OAuthUserProvider interface {
	FindOrCreateFromExternalIdentity(ctx context.Context, identity ExternalIdentity) (usr *User, wasCreated bool, err error)
	LinkProvider(ctx context.Context, userID uuid.UUID, identity ExternalIdentity) (*User, error)
	UnlinkProvider(ctx context.Context, userID uuid.UUID, provider string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	IssueSession(ctx context.Context, id uuid.UUID) (*TokenResponse, error)
}
