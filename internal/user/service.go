// File: internal/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const nicknameCreateAttempts = 5

// ServiceImplementation implements shared.Service and shared.OAuthUserProvider.
type ServiceImplementation struct {
	repo         Repository
	tokenService shared.TokenService
	cfg          *config.Config
	logger       *zap.Logger
}

var _ shared.Service = (*ServiceImplementation)(nil)
var _ shared.OAuthUserProvider = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(
	repo Repository,
	tokenService shared.TokenService,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:         repo,
		tokenService: tokenService,
		cfg:          cfg,
		logger:       logger.Named("UserService"),
	}
}

// Register creates a new local-login user and issues a session.
func (s *ServiceImplementation) Register(ctx context.Context, req shared.CreateUserRequest) (*shared.User, *shared.TokenResponse, error) {
	_, err := s.repo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, nil, common.ErrEmailTaken
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing user by email: %w", err)
	}

	hashedPassword, err := common.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dbUser := &User{
		Email:           req.Email,
		PasswordHash:    &hashedPassword,
		Role:            common.RoleUser,
		ProfileComplete: true,
		IsActive:        true,
	}
	if err := s.createWithUniqueNickname(ctx, dbUser, req.Nickname); err != nil {
		return nil, nil, err
	}

	tokens, err := s.IssueSession(ctx, dbUser.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User registered", zap.String("userID", dbUser.ID.String()))
	return DBToShared(dbUser), tokens, nil
}

// Login verifies email/password credentials and issues a session. Unknown
// email, absent password hash, and hash mismatch all fail identically so
// the endpoint leaks no account-existence signal. Account state is checked
// only after the password matches: an unauthenticated caller must not learn
// whether an account is inactive or suspended.
func (s *ServiceImplementation) Login(ctx context.Context, email, password string) (*shared.User, *shared.TokenResponse, error) {
	dbUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInvalidCredentials
		}
		s.logger.Error("Error finding user by email during login", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Login failed due to an internal error.")
	}

	if !dbUser.HasPassword() || !common.CheckPasswordHash(password, *dbUser.PasswordHash) {
		s.logger.Warn("Invalid login attempt", zap.String("userID", dbUser.ID.String()))
		return nil, nil, common.ErrInvalidCredentials
	}
	if dbUser.DeletedAt.Valid || !dbUser.IsActive {
		return nil, nil, common.ErrAccountInactive
	}
	if dbUser.IsSuspended(time.Now()) {
		return nil, nil, common.ErrAccountSuspended
	}

	tokens, err := s.IssueSession(ctx, dbUser.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User logged in", zap.String("userID", dbUser.ID.String()))
	return DBToShared(dbUser), tokens, nil
}

// IssueSession mints a fresh access/refresh pair and rotates the stored
// refresh slot, revoking whatever refresh token was stored before.
func (s *ServiceImplementation) IssueSession(ctx context.Context, id uuid.UUID) (*shared.TokenResponse, error) {
	accessToken, accessExpiresAt, err := s.tokenService.GenerateAccessToken(id)
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err), zap.String("userID", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not generate access token.")
	}
	refreshToken, _, err := s.tokenService.GenerateRefreshToken(id)
	if err != nil {
		s.logger.Error("Failed to generate refresh token", zap.Error(err), zap.String("userID", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not generate refresh token.")
	}
	if err := s.repo.RotateRefreshToken(ctx, id, refreshToken, time.Now()); err != nil {
		return nil, err
	}
	return &shared.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    accessExpiresAt,
	}, nil
}

// Refresh exchanges a valid, still-current refresh token for a new session.
// A token that verifies cryptographically but does not match the stored slot
// has been superseded by rotation or logout and is rejected.
func (s *ServiceImplementation) Refresh(ctx context.Context, refreshToken string) (*shared.User, *shared.TokenResponse, error) {
	claims, err := s.tokenService.ValidateToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.TokenType != shared.TokenTypeRefresh {
		return nil, nil, common.ErrUnauthorized.WithDetails("Not a refresh token.")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, common.ErrTokenMalformed
	}

	dbUser, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrStaleOrRevoked
		}
		return nil, nil, err
	}
	if dbUser.DeletedAt.Valid || !dbUser.IsActive {
		return nil, nil, common.ErrAccountInactive
	}
	if dbUser.IsSuspended(time.Now()) {
		return nil, nil, common.ErrAccountSuspended
	}
	if dbUser.RefreshToken == nil || *dbUser.RefreshToken != refreshToken {
		return nil, nil, common.ErrStaleOrRevoked
	}

	tokens, err := s.IssueSession(ctx, dbUser.ID)
	if err != nil {
		return nil, nil, err
	}
	return DBToShared(dbUser), tokens, nil
}

// GetUserByID loads a user without account-state checks.
func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return DBToShared(dbUser), nil
}

// GetCurrentIdentity loads a user and re-checks account state. It runs on
// every authenticated call so a post-issuance suspension rejects the very
// next request despite a still-valid token signature.
func (s *ServiceImplementation) GetCurrentIdentity(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized.WithDetails("User no longer exists.")
		}
		return nil, err
	}
	if dbUser.DeletedAt.Valid || !dbUser.IsActive {
		return nil, common.ErrAccountInactive
	}
	if dbUser.IsSuspended(time.Now()) {
		return nil, common.ErrAccountSuspended
	}
	return DBToShared(dbUser), nil
}

// CompleteProfile marks a federated account's profile as complete and
// re-issues the session.
func (s *ServiceImplementation) CompleteProfile(ctx context.Context, id uuid.UUID, nickname, profileImage *string) (*shared.User, *shared.TokenResponse, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if nickname != nil && *nickname != "" {
		dbUser.Nickname = *nickname
	}
	if profileImage != nil && *profileImage != "" {
		dbUser.ProfileImageURL = profileImage
	}
	dbUser.ProfileComplete = true
	if err := s.repo.Update(ctx, dbUser); err != nil {
		if errors.Is(err, errNicknameTaken) {
			return nil, nil, common.ErrConflict.WithDetails("This nickname is already taken.")
		}
		return nil, nil, err
	}

	tokens, err := s.IssueSession(ctx, dbUser.ID)
	if err != nil {
		return nil, nil, err
	}
	return DBToShared(dbUser), tokens, nil
}

// FindOrCreateFromExternalIdentity resolves a provider exchange result to a
// local user. An email owned by an existing password-bearing account aborts
// with EMAIL_IN_USE: merging happens only through the authenticated connect
// flow.
func (s *ServiceImplementation) FindOrCreateFromExternalIdentity(ctx context.Context, identity shared.ExternalIdentity) (*shared.User, bool, error) {
	existing, err := s.repo.FindByProvider(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		return DBToShared(existing), false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	var linkEmail *string
	if identity.Email != "" {
		byEmail, err := s.repo.FindByEmail(ctx, identity.Email)
		if err == nil && byEmail.HasPassword() {
			return nil, false, common.ErrEmailInUse
		}
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, false, err
		}
		e := identity.Email
		linkEmail = &e
	}

	email := identity.Email
	if email == "" {
		email = fmt.Sprintf("%s@%s.local", identity.ProviderUserID, identity.Provider)
	}
	nickname := identity.DisplayName
	if nickname == "" {
		nickname = defaultProviderNickname(identity.Provider, identity.ProviderUserID)
	}

	dbUser := &User{
		Email:           email,
		Role:            common.RoleUser,
		ProfileComplete: false,
		IsActive:        true,
		Providers: []ProviderLink{{
			Provider:       identity.Provider,
			ProviderUserID: identity.ProviderUserID,
			Email:          linkEmail,
		}},
	}
	if err := s.createWithUniqueNickname(ctx, dbUser, nickname); err != nil {
		return nil, false, err
	}

	s.logger.Info("Created user from external identity",
		zap.String("userID", dbUser.ID.String()),
		zap.String("provider", identity.Provider))
	return DBToShared(dbUser), true, nil
}

// LinkProvider attaches an external identity to an authenticated user.
// Linking the same identity to the same user again is a no-op; an identity
// owned by a different user is rejected.
func (s *ServiceImplementation) LinkProvider(ctx context.Context, userID uuid.UUID, identity shared.ExternalIdentity) (*shared.User, error) {
	link, err := s.repo.FindLink(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		if link.UserID != userID {
			return nil, common.ErrProviderLinkInUse
		}
		return s.GetUserByID(ctx, userID)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	var linkEmail *string
	if identity.Email != "" {
		e := identity.Email
		linkEmail = &e
	}
	newLink := &ProviderLink{
		UserID:         userID,
		Provider:       identity.Provider,
		ProviderUserID: identity.ProviderUserID,
		Email:          linkEmail,
	}
	if err := s.repo.CreateLink(ctx, newLink); err != nil {
		return nil, err
	}

	s.logger.Info("Linked provider to user",
		zap.String("userID", userID.String()),
		zap.String("provider", identity.Provider))
	return s.GetUserByID(ctx, userID)
}

// UnlinkProvider removes a provider link unless it is the last remaining
// login method.
func (s *ServiceImplementation) UnlinkProvider(ctx context.Context, userID uuid.UUID, provider string) error {
	if err := s.repo.DeleteLinkGuarded(ctx, userID, provider); err != nil {
		return err
	}
	s.logger.Info("Unlinked provider from user",
		zap.String("userID", userID.String()),
		zap.String("provider", provider))
	return nil
}

// PurgeDeleted hard-deletes accounts soft-deleted longer than the retention
// window. Used by the purge cron job.
func (s *ServiceImplementation) PurgeDeleted(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.AccountPurgeRetentionDay)
	return s.repo.PurgeDeletedBefore(ctx, cutoff)
}

// createWithUniqueNickname inserts a user, disambiguating the nickname with
// an incrementing numeric suffix ("Alex", "Alex2", "Alex3", ...). The unique
// constraint is the final backstop: a concurrent insert of the same candidate
// surfaces as errNicknameTaken and we retry with the next suffix.
func (s *ServiceImplementation) createWithUniqueNickname(ctx context.Context, dbUser *User, base string) error {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "user"
	}

	suffix := 1
	candidate := base
	for attempt := 0; attempt < nicknameCreateAttempts; attempt++ {
		for {
			exists, err := s.repo.NicknameExists(ctx, candidate)
			if err != nil {
				return err
			}
			if !exists {
				break
			}
			suffix++
			candidate = base + strconv.Itoa(suffix)
		}

		dbUser.Nickname = candidate
		err := s.repo.Create(ctx, dbUser)
		if err == nil {
			return nil
		}
		if errors.Is(err, errNicknameTaken) {
			suffix++
			candidate = base + strconv.Itoa(suffix)
			continue
		}
		return err
	}
	return common.ErrConflict.WithDetails("Could not allocate a unique nickname.")
}

func defaultProviderNickname(provider, providerUserID string) string {
	id := providerUserID
	if len(id) > 6 {
		id = id[:6]
	}
	return provider + "_" + id
}
