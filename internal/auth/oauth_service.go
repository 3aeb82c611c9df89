// File: internal/auth/oauth_service.go
package auth

import (
	"context"
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OAuthService orchestrates the federated login and account-linking flows.
// It owns state verification and delegates identity resolution to the user
// service through shared.OAuthUserProvider.
type OAuthService struct {
	registry     *Registry
	tokenService shared.TokenService
	stateGuard   *StateGuard
	users        shared.OAuthUserProvider
	logger       *zap.Logger
}

// NewOAuthService creates a new OAuth orchestration service.
func NewOAuthService(
	registry *Registry,
	tokenService shared.TokenService,
	stateGuard *StateGuard,
	users shared.OAuthUserProvider,
	logger *zap.Logger,
) *OAuthService {
	return &OAuthService{
		registry:     registry,
		tokenService: tokenService,
		stateGuard:   stateGuard,
		users:        users,
		logger:       logger.Named("OAuthService"),
	}
}

// Initiate starts the authorization-code flow for a provider. The signed
// state token doubles as the CSRF binding between this call and the callback.
func (s *OAuthService) Initiate(ctx context.Context, providerName, redirect string) (*OAuthInitiateResponse, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}
	state, err := s.tokenService.GenerateStateToken(providerName, redirect)
	if err != nil {
		s.logger.Error("Failed to mint state token", zap.String("provider", providerName), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not start the login flow.")
	}
	return &OAuthInitiateResponse{
		AuthURL: provider.AuthCodeURL(state),
		State:   state,
	}, nil
}

// HandleCallback completes a federated login: verify the state round trip,
// exchange the code, resolve the external identity to a local user, and
// issue a session.
func (s *OAuthService) HandleCallback(ctx context.Context, providerName, code, state string) (*OAuthCallbackResult, error) {
	claims, err := s.verifyState(providerName, state)
	if err != nil {
		return nil, err
	}

	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}
	identity, err := provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("Provider code exchange failed",
			zap.String("provider", providerName), zap.Error(err))
		return nil, err
	}

	usr, wasCreated, err := s.users.FindOrCreateFromExternalIdentity(ctx, *identity)
	if err != nil {
		return nil, err
	}
	if err := checkAccountState(usr); err != nil {
		return nil, err
	}

	tokens, err := s.users.IssueSession(ctx, usr.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Federated login completed",
		zap.String("provider", providerName),
		zap.String("userID", usr.ID.String()),
		zap.Bool("wasCreated", wasCreated))
	return &OAuthCallbackResult{
		User:       usr,
		Token:      tokens,
		WasCreated: wasCreated,
		Redirect:   claims.Redirect,
	}, nil
}

// Connect attaches a provider identity to an already-authenticated user.
// The state token is verified exactly like the login callback, and a
// successful link re-issues the session.
func (s *OAuthService) Connect(ctx context.Context, userID uuid.UUID, providerName, code, state string) (*shared.User, *shared.TokenResponse, error) {
	if _, err := s.verifyState(providerName, state); err != nil {
		return nil, nil, err
	}
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return nil, nil, err
	}
	identity, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	usr, err := s.users.LinkProvider(ctx, userID, *identity)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := s.users.IssueSession(ctx, usr.ID)
	if err != nil {
		return nil, nil, err
	}
	return usr, tokens, nil
}

// Disconnect removes a provider link from the user's account. The provider
// only needs to be a known name; its credentials may be gone.
func (s *OAuthService) Disconnect(ctx context.Context, userID uuid.UUID, providerName string) error {
	if !s.registry.Known(providerName) {
		return common.ErrUnsupportedProvider
	}
	return s.users.UnlinkProvider(ctx, userID, providerName)
}

// verifyState rejects any state token that is not a live, unspent
// oauth_state token minted for this exact provider. Every failure mode maps
// to the same error so the caller learns nothing about which check tripped.
func (s *OAuthService) verifyState(providerName, state string) (*shared.Claims, error) {
	claims, err := s.tokenService.ValidateToken(state)
	if err != nil {
		return nil, common.ErrStateMismatch
	}
	if claims.TokenType != shared.TokenTypeOAuthState || claims.Subject != providerName {
		return nil, common.ErrStateMismatch
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if !s.stateGuard.MarkUsed(claims.ID, expiresAt) {
		s.logger.Warn("State token replay detected", zap.String("provider", providerName))
		return nil, common.ErrStateMismatch
	}
	return claims, nil
}

func checkAccountState(usr *shared.User) error {
	if !usr.IsActive {
		return common.ErrAccountInactive
	}
	if usr.SuspendedUntil != nil && usr.SuspendedUntil.After(time.Now()) {
		return common.ErrAccountSuspended
	}
	return nil
}
