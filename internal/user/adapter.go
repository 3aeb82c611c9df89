// File: internal/user/adapter.go
package user

import (
	"taipei_market_backend/internal/shared"
)

// DBToShared converts a GORM User model to the shared DTO.
func DBToShared(u *User) *shared.User {
	providers := make([]string, 0, len(u.Providers))
	for _, link := range u.Providers {
		providers = append(providers, link.Provider)
	}
	return &shared.User{
		ID:              u.ID,
		Email:           u.Email,
		Nickname:        u.Nickname,
		ProfileImageURL: u.ProfileImageURL,
		Role:            u.Role,
		ProfileComplete: u.ProfileComplete,
		IsActive:        u.IsActive,
		SuspendedUntil:  u.SuspendedUntil,
		HasPassword:     u.HasPassword(),
		Providers:       providers,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
		LastLoginAt:     u.LastLoginAt,
	}
}
