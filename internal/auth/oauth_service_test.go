// File: internal/auth/oauth_service_test.go
package auth

import (
	"context"
	"testing"
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProvider answers every exchange with a fixed identity.
type fakeProvider struct {
	name     string
	identity shared.ExternalIdentity
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*shared.ExternalIdentity, error) {
	if code == "bad-code" {
		return nil, common.ErrProviderExchangeFailed
	}
	identity := f.identity
	return &identity, nil
}

// MockUserProvider is a mock type for shared.OAuthUserProvider.
type MockUserProvider struct {
	mock.Mock
}

func (m *MockUserProvider) FindOrCreateFromExternalIdentity(ctx context.Context, identity shared.ExternalIdentity) (*shared.User, bool, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*shared.User), args.Bool(1), args.Error(2)
}

func (m *MockUserProvider) LinkProvider(ctx context.Context, userID uuid.UUID, identity shared.ExternalIdentity) (*shared.User, error) {
	args := m.Called(ctx, userID, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.User), args.Error(1)
}

func (m *MockUserProvider) UnlinkProvider(ctx context.Context, userID uuid.UUID, provider string) error {
	args := m.Called(ctx, userID, provider)
	return args.Error(0)
}

func (m *MockUserProvider) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.User), args.Error(1)
}

func (m *MockUserProvider) IssueSession(ctx context.Context, id uuid.UUID) (*shared.TokenResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.TokenResponse), args.Error(1)
}

func setupOAuthServiceTest(t *testing.T) (*OAuthService, *JWTService, *MockUserProvider) {
	t.Helper()
	tokenService := newTestTokenService(t, testSecret)
	guard := NewStateGuard(StateGuardConfig{
		DefaultExpiration: 10 * time.Minute,
		CleanupInterval:   time.Minute,
	})
	registry := &Registry{
		providers: map[string]Provider{
			"google": &fakeProvider{
				name: "google",
				identity: shared.ExternalIdentity{
					Provider:       "google",
					ProviderUserID: "g-777",
					Email:          "mei@example.com",
					DisplayName:    "Mei",
				},
			},
		},
		known: map[string]bool{"google": true, "line": true},
	}
	users := &MockUserProvider{}
	svc := NewOAuthService(registry, tokenService, guard, users, zap.NewNop())
	return svc, tokenService, users
}

func activeUser() *shared.User {
	return &shared.User{
		ID:       uuid.New(),
		Email:    "mei@example.com",
		Nickname: "Mei",
		IsActive: true,
	}
}

func TestInitiate(t *testing.T) {
	svc, tokenService, _ := setupOAuthServiceTest(t)
	ctx := context.Background()

	t.Run("configured provider", func(t *testing.T) {
		resp, err := svc.Initiate(ctx, "google", "https://app.example/next")
		require.NoError(t, err)
		assert.Contains(t, resp.AuthURL, "state=")
		claims, err := tokenService.ValidateToken(resp.State)
		require.NoError(t, err)
		assert.Equal(t, shared.TokenTypeOAuthState, claims.TokenType)
		assert.Equal(t, "google", claims.Subject)
		assert.Equal(t, "https://app.example/next", claims.Redirect)
	})

	t.Run("known but unconfigured provider", func(t *testing.T) {
		_, err := svc.Initiate(ctx, "line", "")
		assert.ErrorIs(t, err, common.ErrProviderNotConfigured)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := svc.Initiate(ctx, "myspace", "")
		assert.ErrorIs(t, err, common.ErrUnsupportedProvider)
	})
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		svc, tokenService, users := setupOAuthServiceTest(t)
		usr := activeUser()
		users.On("FindOrCreateFromExternalIdentity", mock.Anything, mock.Anything).Return(usr, true, nil)
		users.On("IssueSession", mock.Anything, usr.ID).Return(&shared.TokenResponse{AccessToken: "a", RefreshToken: "r"}, nil)

		state, err := tokenService.GenerateStateToken("google", "https://app.example/next")
		require.NoError(t, err)

		result, err := svc.HandleCallback(ctx, "google", "good-code", state)
		require.NoError(t, err)
		assert.True(t, result.WasCreated)
		assert.Equal(t, "https://app.example/next", result.Redirect)
		assert.Equal(t, "a", result.Token.AccessToken)
		users.AssertExpectations(t)
	})

	t.Run("state replay rejected", func(t *testing.T) {
		svc, tokenService, users := setupOAuthServiceTest(t)
		usr := activeUser()
		users.On("FindOrCreateFromExternalIdentity", mock.Anything, mock.Anything).Return(usr, false, nil)
		users.On("IssueSession", mock.Anything, usr.ID).Return(&shared.TokenResponse{}, nil)

		state, err := tokenService.GenerateStateToken("google", "")
		require.NoError(t, err)

		_, err = svc.HandleCallback(ctx, "google", "good-code", state)
		require.NoError(t, err)

		_, err = svc.HandleCallback(ctx, "google", "good-code", state)
		assert.ErrorIs(t, err, common.ErrStateMismatch)
	})

	t.Run("state minted for another provider rejected", func(t *testing.T) {
		svc, tokenService, _ := setupOAuthServiceTest(t)
		state, err := tokenService.GenerateStateToken("line", "")
		require.NoError(t, err)

		_, err = svc.HandleCallback(ctx, "google", "good-code", state)
		assert.ErrorIs(t, err, common.ErrStateMismatch)
	})

	t.Run("access token cannot stand in for state", func(t *testing.T) {
		svc, tokenService, _ := setupOAuthServiceTest(t)
		notState, _, err := tokenService.GenerateAccessToken(uuid.New())
		require.NoError(t, err)

		_, err = svc.HandleCallback(ctx, "google", "good-code", notState)
		assert.ErrorIs(t, err, common.ErrStateMismatch)
	})

	t.Run("garbage state rejected", func(t *testing.T) {
		svc, _, _ := setupOAuthServiceTest(t)
		_, err := svc.HandleCallback(ctx, "google", "good-code", "garbage")
		assert.ErrorIs(t, err, common.ErrStateMismatch)
	})

	t.Run("exchange failure surfaces", func(t *testing.T) {
		svc, tokenService, _ := setupOAuthServiceTest(t)
		state, err := tokenService.GenerateStateToken("google", "")
		require.NoError(t, err)

		_, err = svc.HandleCallback(ctx, "google", "bad-code", state)
		assert.ErrorIs(t, err, common.ErrProviderExchangeFailed)
	})

	t.Run("suspended account rejected", func(t *testing.T) {
		svc, tokenService, users := setupOAuthServiceTest(t)
		usr := activeUser()
		until := time.Now().Add(time.Hour)
		usr.SuspendedUntil = &until
		users.On("FindOrCreateFromExternalIdentity", mock.Anything, mock.Anything).Return(usr, false, nil)

		state, err := tokenService.GenerateStateToken("google", "")
		require.NoError(t, err)

		_, err = svc.HandleCallback(ctx, "google", "good-code", state)
		assert.ErrorIs(t, err, common.ErrAccountSuspended)
	})
}

func TestConnectAndDisconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("connect links identity and re-issues session", func(t *testing.T) {
		svc, tokenService, users := setupOAuthServiceTest(t)
		usr := activeUser()
		users.On("LinkProvider", mock.Anything, usr.ID, mock.Anything).Return(usr, nil)
		users.On("IssueSession", mock.Anything, usr.ID).Return(&shared.TokenResponse{AccessToken: "a", RefreshToken: "r"}, nil)

		state, err := tokenService.GenerateStateToken("google", "")
		require.NoError(t, err)

		linked, tokens, err := svc.Connect(ctx, usr.ID, "google", "good-code", state)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, linked.ID)
		require.NotNil(t, tokens)
		assert.Equal(t, "a", tokens.AccessToken)
		assert.Equal(t, "r", tokens.RefreshToken)
		users.AssertExpectations(t)
	})

	t.Run("connect with bad state does not link", func(t *testing.T) {
		svc, _, users := setupOAuthServiceTest(t)
		_, _, err := svc.Connect(ctx, uuid.New(), "google", "good-code", "garbage")
		assert.ErrorIs(t, err, common.ErrStateMismatch)
		users.AssertNotCalled(t, "LinkProvider", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("disconnect known provider", func(t *testing.T) {
		svc, _, users := setupOAuthServiceTest(t)
		userID := uuid.New()
		users.On("UnlinkProvider", mock.Anything, userID, "line").Return(nil)

		err := svc.Disconnect(ctx, userID, "line")
		assert.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("disconnect unknown provider", func(t *testing.T) {
		svc, _, _ := setupOAuthServiceTest(t)
		err := svc.Disconnect(ctx, uuid.New(), "myspace")
		assert.ErrorIs(t, err, common.ErrUnsupportedProvider)
	})
}
