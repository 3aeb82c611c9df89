// File: internal/user/model.go
package user

import (
	"time"

	"taipei_market_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the user model in the database. Email is always present;
// for provider-only accounts it is synthesized as
// "<provider_user_id>@<provider>.local". PasswordHash is NULL when the
// account has no local login.
type User struct {
	common.BaseModel
	Email           string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash    *string `gorm:"type:varchar(255)"`
	Nickname        string  `gorm:"type:varchar(100);uniqueIndex;not null"`
	ProfileImageURL *string `gorm:"type:varchar(500)"`
	Role            string  `gorm:"type:varchar(50);not null;default:'user'"`
	ProfileComplete bool    `gorm:"not null;default:false"`
	IsActive        bool    `gorm:"not null;default:true"`
	SuspendedUntil  *time.Time
	// RefreshToken is the single stored refresh slot. Rotation overwrites
	// it, which is what revokes previously issued refresh tokens.
	RefreshToken *string `gorm:"type:text"`
	LastLoginAt  *time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`

	Providers []ProviderLink `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// HasPassword reports whether local email/password login is possible.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsSuspended reports whether the suspension window covers the given time.
func (u *User) IsSuspended(now time.Time) bool {
	return u.SuspendedUntil != nil && u.SuspendedUntil.After(now)
}

// ProviderLink associates a local user with one external provider identity.
// One external identity maps to exactly one user.
type ProviderLink struct {
	common.BaseModel
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_identity"`
	ProviderUserID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_provider_identity"`
	Email          *string   `gorm:"type:varchar(255)"`
}

// TableName specifies the table name for the ProviderLink model.
func (ProviderLink) TableName() string {
	return "provider_links"
}

// --- DTOs for API requests/responses ---

// RegisterRequest defines the structure for registering a new user.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Nickname string `json:"nickname" binding:"required,min=1,max=100"`
}

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest defines the structure for refresh token requests.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CompleteProfileRequest defines the structure for profile completion.
type CompleteProfileRequest struct {
	Nickname     *string `json:"nickname,omitempty" binding:"omitempty,min=1,max=100"`
	ProfileImage *string `json:"profile_image,omitempty" binding:"omitempty,max=500"`
}
