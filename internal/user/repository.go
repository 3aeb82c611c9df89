// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taipei_market_backend/internal/common"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// errNicknameTaken signals a nickname unique-constraint hit so the service
// can retry with the next suffix. Never crosses the package boundary.
var errNicknameTaken = errors.New("nickname already taken")

// Repository defines the interface for user data operations.
//
// Lookups are unscoped on purpose: login and identity checks must see
// soft-deleted rows to report ACCOUNT_INACTIVE instead of a generic miss.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByProvider(ctx context.Context, provider, providerUserID string) (*User, error)
	Update(ctx context.Context, user *User) error
	NicknameExists(ctx context.Context, nickname string) (bool, error)
	// RotateRefreshToken overwrites the single stored refresh slot.
	// Concurrent rotations are last-write-wins: both succeed, the later
	// write invalidates the earlier issuance on its next use.
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string, loginAt time.Time) error
	FindLink(ctx context.Context, provider, providerUserID string) (*ProviderLink, error)
	CreateLink(ctx context.Context, link *ProviderLink) error
	// DeleteLinkGuarded removes a provider link only if the user keeps at
	// least one usable login method, atomically.
	DeleteLinkGuarded(ctx context.Context, userID uuid.UUID, provider string) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// isUniqueViolation detects unique-constraint errors across drivers. The
// postgres driver surfaces pgconn.PgError 23505; sqlite (tests) only gives
// us the message text.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func mapUserUniqueViolation(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "email"):
		return common.ErrEmailTaken
	case strings.Contains(msg, "nickname"):
		return errNicknameTaken
	case strings.Contains(msg, "provider"):
		return common.ErrProviderLinkInUse
	default:
		return common.ErrConflict.WithDetails("User with this email or nickname already exists.")
	}
}

// Create inserts a new user record (plus any assigned provider links).
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if isUniqueViolation(err) {
			return mapUserUniqueViolation(err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by email, including soft-deleted rows.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var userModel User
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	err := r.db.WithContext(ctx).Unscoped().
		Preload("Providers").
		Where("email = ?", normalizedEmail).
		First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found with this email.")
		}
		return nil, err
	}
	return &userModel, nil
}

// FindByID retrieves a user by ID, including soft-deleted rows.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Unscoped().
		Preload("Providers").
		Where("id = ?", id).
		First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
		}
		return nil, err
	}
	return &userModel, nil
}

// FindByProvider retrieves the user owning the given external identity.
func (r *gormRepository) FindByProvider(ctx context.Context, provider, providerUserID string) (*User, error) {
	var link ProviderLink
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("No user linked to this external identity.")
		}
		return nil, err
	}
	return r.FindByID(ctx, link.UserID)
}

// Update modifies an existing user record.
func (r *gormRepository) Update(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := r.db.WithContext(ctx).Unscoped().Save(user).Error
	if err != nil {
		if isUniqueViolation(err) {
			return mapUserUniqueViolation(err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// NicknameExists checks nickname availability, including soft-deleted rows.
func (r *gormRepository) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&User{}).
		Where("nickname = ?", nickname).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) RotateRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string, loginAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"refresh_token": refreshToken,
			"last_login_at": loginAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User not found for refresh token rotation.")
	}
	return nil
}

// FindLink retrieves a provider link by external identity.
func (r *gormRepository) FindLink(ctx context.Context, provider, providerUserID string) (*ProviderLink, error) {
	var link ProviderLink
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Provider link not found.")
		}
		return nil, err
	}
	return &link, nil
}

// CreateLink inserts a provider link. The unique (provider, provider_user_id)
// constraint is the final backstop against racing connect calls.
func (r *gormRepository) CreateLink(ctx context.Context, link *ProviderLink) error {
	err := r.db.WithContext(ctx).Create(link).Error
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrProviderLinkInUse
		}
		return fmt.Errorf("failed to create provider link: %w", err)
	}
	return nil
}

// DeleteLinkGuarded runs the count-then-delete inside one transaction so two
// concurrent unlinks cannot both succeed in leaving zero login methods.
func (r *gormRepository) DeleteLinkGuarded(ctx context.Context, userID uuid.UUID, provider string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userModel User
		if err := tx.Where("id = ?", userID).First(&userModel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound.WithDetails("User not found.")
			}
			return err
		}

		var link ProviderLink
		err := tx.Where("user_id = ? AND provider = ?", userID, provider).First(&link).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrProviderNotLinked
			}
			return err
		}

		var remaining int64
		if err := tx.Model(&ProviderLink{}).Where("user_id = ?", userID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining-1 <= 0 && !userModel.HasPassword() {
			return common.ErrNoOtherLoginMethod
		}

		return tx.Delete(&link).Error
	})
}

// PurgeDeletedBefore hard-deletes users soft-deleted before the cutoff.
// Provider links go with them via the cascade.
func (r *gormRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&User{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge deleted users: %w", res.Error)
	}
	return res.RowsAffected, nil
}
