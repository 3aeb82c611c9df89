// File: internal/auth/token_test.go
package auth

import (
	"testing"
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTokenService(t *testing.T, secret string) *JWTService {
	t.Helper()
	cfg := &config.Config{
		JWTSecretKey:          secret,
		JWTAccessTokenExpiry:  time.Hour,
		JWTRefreshTokenExpiry: 7 * 24 * time.Hour,
		OAuthStateTokenExpiry: 10 * time.Minute,
	}
	return NewJWTService(cfg, zap.NewNop())
}

const testSecret = "test-secret-key-of-sufficient-length!"

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, testSecret)
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateAccessToken(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, shared.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := newTestTokenService(t, testSecret)
	userID := uuid.New()

	first, _, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)
	second, _, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	claims, err := svc.ValidateToken(first)
	require.NoError(t, err)
	assert.Equal(t, shared.TokenTypeRefresh, claims.TokenType)
}

func TestStateTokenClaims(t *testing.T) {
	svc := newTestTokenService(t, testSecret)

	token, err := svc.GenerateStateToken("google", "https://app.example/after-login")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, shared.TokenTypeOAuthState, claims.TokenType)
	assert.Equal(t, "google", claims.Subject)
	assert.Equal(t, "https://app.example/after-login", claims.Redirect)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateExpiredToken(t *testing.T) {
	cfg := &config.Config{
		JWTSecretKey:         testSecret,
		JWTAccessTokenExpiry: -time.Minute,
	}
	svc := NewJWTService(cfg, zap.NewNop())

	token, _, err := svc.GenerateAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestValidateWrongSignature(t *testing.T) {
	minter := newTestTokenService(t, testSecret)
	verifier := newTestTokenService(t, "a-completely-different-secret-key!!!")

	token, _, err := minter.GenerateAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, common.ErrBadSignature)
}

func TestValidateMalformedToken(t *testing.T) {
	svc := newTestTokenService(t, testSecret)

	_, err := svc.ValidateToken("not-a-jwt-at-all")
	assert.ErrorIs(t, err, common.ErrTokenMalformed)
}
