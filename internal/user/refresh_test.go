// File: internal/user/refresh_test.go
package user_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taipei_market_backend/internal/auth"
	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"
	"taipei_market_backend/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupRefreshTest wires the user service to the real token codec so the
// refresh flow can be driven end to end, signature verification included.
func setupRefreshTest(t *testing.T) (*user.ServiceImplementation, shared.TokenService) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, db.Migrator().DropTable(&user.ProviderLink{}, &user.User{}))
	require.NoError(t, db.AutoMigrate(&user.User{}, &user.ProviderLink{}))

	cfg := &config.Config{
		JWTSecretKey:          "test-secret-key-of-sufficient-length!",
		JWTAccessTokenExpiry:  time.Hour,
		JWTRefreshTokenExpiry: 7 * 24 * time.Hour,
		OAuthStateTokenExpiry: 10 * time.Minute,
	}
	tokenService := auth.NewJWTService(cfg, zap.NewNop())
	svc := user.NewService(user.NewGORMRepository(db), tokenService, cfg, zap.NewNop())
	return svc, tokenService
}

func TestRefreshFlow(t *testing.T) {
	svc, tokenService := setupRefreshTest(t)
	ctx := context.Background()

	usr, tokens, err := svc.Register(ctx, shared.CreateUserRequest{
		Email:    "alex@example.com",
		Password: "correct-horse-battery",
		Nickname: "Alex",
	})
	require.NoError(t, err)

	t.Run("current token refreshes", func(t *testing.T) {
		refreshed, next, err := svc.Refresh(ctx, tokens.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, refreshed.ID)
		assert.NotEqual(t, tokens.RefreshToken, next.RefreshToken)
		tokens = next
	})

	t.Run("superseded token rejected", func(t *testing.T) {
		superseded := tokens.RefreshToken
		_, next, err := svc.Refresh(ctx, superseded)
		require.NoError(t, err)
		tokens = next

		// Rotation moved the stored slot on; the earlier token still has a
		// valid signature but is no longer current.
		_, _, err = svc.Refresh(ctx, superseded)
		assert.ErrorIs(t, err, common.ErrStaleOrRevoked)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		accessToken, _, err := tokenService.GenerateAccessToken(usr.ID)
		require.NoError(t, err)

		_, _, err = svc.Refresh(ctx, accessToken)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, _, err := svc.Refresh(ctx, "not-a-jwt-at-all")
		assert.ErrorIs(t, err, common.ErrTokenMalformed)
	})
}
