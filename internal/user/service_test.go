// File: internal/user/service_test.go
package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubTokenService mints predictable, unique tokens so rotation behavior is
// observable without real signing.
type stubTokenService struct {
	counter int
}

func (s *stubTokenService) GenerateAccessToken(userID uuid.UUID) (string, time.Time, error) {
	s.counter++
	return fmt.Sprintf("access-%s-%d", userID, s.counter), time.Now().Add(time.Hour), nil
}

func (s *stubTokenService) GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	s.counter++
	return fmt.Sprintf("refresh-%s-%d", userID, s.counter), time.Now().Add(24 * time.Hour), nil
}

func (s *stubTokenService) GenerateStateToken(provider, redirect string) (string, error) {
	s.counter++
	return fmt.Sprintf("state-%s-%d", provider, s.counter), nil
}

func (s *stubTokenService) ValidateToken(tokenString string) (*shared.Claims, error) {
	return nil, common.ErrTokenMalformed
}

func setupUserServiceTest(t *testing.T) (*ServiceImplementation, Repository, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")

	require.NoError(t, db.Migrator().DropTable(&ProviderLink{}, &User{}))
	require.NoError(t, db.AutoMigrate(&User{}, &ProviderLink{}))

	repo := NewGORMRepository(db)
	cfg := &config.Config{AccountPurgeRetentionDay: 30}
	svc := NewService(repo, &stubTokenService{}, cfg, zap.NewNop())
	return svc, repo, db
}

func registerUser(t *testing.T, svc *ServiceImplementation, email, nickname string) *shared.User {
	t.Helper()
	usr, tokens, err := svc.Register(context.Background(), shared.CreateUserRequest{
		Email:    email,
		Password: "correct-horse-battery",
		Nickname: nickname,
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)
	return usr
}

func TestRegister(t *testing.T) {
	svc, _, _ := setupUserServiceTest(t)
	ctx := context.Background()

	usr, tokens, err := svc.Register(ctx, shared.CreateUserRequest{
		Email:    "alex@example.com",
		Password: "correct-horse-battery",
		Nickname: "Alex",
	})
	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", usr.Email)
	assert.Equal(t, "Alex", usr.Nickname)
	assert.True(t, usr.HasPassword)
	assert.True(t, usr.ProfileComplete)
	assert.Equal(t, common.RoleUser, usr.Role)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, _, err = svc.Register(ctx, shared.CreateUserRequest{
		Email:    "alex@example.com",
		Password: "another-password-1",
		Nickname: "OtherAlex",
	})
	assert.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestRegisterNicknameSuffix(t *testing.T) {
	svc, _, _ := setupUserServiceTest(t)

	first := registerUser(t, svc, "alex1@example.com", "Alex")
	second := registerUser(t, svc, "alex2@example.com", "Alex")
	third := registerUser(t, svc, "alex3@example.com", "Alex")

	assert.Equal(t, "Alex", first.Nickname)
	assert.Equal(t, "Alex2", second.Nickname)
	assert.Equal(t, "Alex3", third.Nickname)
}

func TestLogin(t *testing.T) {
	svc, repo, _ := setupUserServiceTest(t)
	ctx := context.Background()
	registerUser(t, svc, "alex@example.com", "Alex")

	t.Run("success", func(t *testing.T) {
		usr, tokens, err := svc.Login(ctx, "alex@example.com", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, "alex@example.com", usr.Email)
		assert.NotEmpty(t, tokens.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alex@example.com", "wrong-password-123")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		dbUser, err := repo.FindByEmail(ctx, "alex@example.com")
		require.NoError(t, err)
		dbUser.IsActive = false
		require.NoError(t, repo.Update(ctx, dbUser))

		_, _, err = svc.Login(ctx, "alex@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, common.ErrAccountInactive)

		dbUser.IsActive = true
		require.NoError(t, repo.Update(ctx, dbUser))
	})

	t.Run("suspended account", func(t *testing.T) {
		dbUser, err := repo.FindByEmail(ctx, "alex@example.com")
		require.NoError(t, err)
		until := time.Now().Add(time.Hour)
		dbUser.SuspendedUntil = &until
		require.NoError(t, repo.Update(ctx, dbUser))

		_, _, err = svc.Login(ctx, "alex@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, common.ErrAccountSuspended)
	})

	t.Run("expired suspension allows login", func(t *testing.T) {
		dbUser, err := repo.FindByEmail(ctx, "alex@example.com")
		require.NoError(t, err)
		until := time.Now().Add(-time.Hour)
		dbUser.SuspendedUntil = &until
		require.NoError(t, repo.Update(ctx, dbUser))

		_, _, err = svc.Login(ctx, "alex@example.com", "correct-horse-battery")
		assert.NoError(t, err)
	})

	t.Run("wrong password never discloses account state", func(t *testing.T) {
		dbUser, err := repo.FindByEmail(ctx, "alex@example.com")
		require.NoError(t, err)
		dbUser.IsActive = false
		require.NoError(t, repo.Update(ctx, dbUser))

		_, _, err = svc.Login(ctx, "alex@example.com", "wrong-password-123")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})
}

func TestRefreshRotation(t *testing.T) {
	svc, _, _ := setupUserServiceTest(t)
	ctx := context.Background()
	usr := registerUser(t, svc, "alex@example.com", "Alex")

	first, err := svc.IssueSession(ctx, usr.ID)
	require.NoError(t, err)

	// A second issuance overwrites the stored slot.
	second, err := svc.IssueSession(ctx, usr.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The stub token service cannot verify signatures, so exercise the slot
	// comparison directly through the repository state.
	dbUser, err := NewGORMRepository(mustDB(t, svc)).FindByID(ctx, usr.ID)
	require.NoError(t, err)
	require.NotNil(t, dbUser.RefreshToken)
	assert.Equal(t, second.RefreshToken, *dbUser.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, *dbUser.RefreshToken)
}

// mustDB pulls the gorm handle back out of the service's repository for
// direct state assertions.
func mustDB(t *testing.T, svc *ServiceImplementation) *gorm.DB {
	t.Helper()
	repo, ok := svc.repo.(*gormRepository)
	require.True(t, ok)
	return repo.db
}

func TestFindOrCreateFromExternalIdentity(t *testing.T) {
	svc, _, _ := setupUserServiceTest(t)
	ctx := context.Background()

	t.Run("creates user with synthesized email", func(t *testing.T) {
		usr, wasCreated, err := svc.FindOrCreateFromExternalIdentity(ctx, shared.ExternalIdentity{
			Provider:       "line",
			ProviderUserID: "U1234567890",
			DisplayName:    "Mei",
		})
		require.NoError(t, err)
		assert.True(t, wasCreated)
		assert.Equal(t, "u1234567890@line.local", usr.Email)
		assert.Equal(t, "Mei", usr.Nickname)
		assert.False(t, usr.HasPassword)
		assert.False(t, usr.ProfileComplete)
		assert.Contains(t, usr.Providers, "line")
	})

	t.Run("second callback reuses the user", func(t *testing.T) {
		usr, wasCreated, err := svc.FindOrCreateFromExternalIdentity(ctx, shared.ExternalIdentity{
			Provider:       "line",
			ProviderUserID: "U1234567890",
			DisplayName:    "Mei",
		})
		require.NoError(t, err)
		assert.False(t, wasCreated)
		assert.Equal(t, "u1234567890@line.local", usr.Email)
	})

	t.Run("email owned by password account rejected", func(t *testing.T) {
		registerUser(t, svc, "taken@example.com", "Taken")

		_, _, err := svc.FindOrCreateFromExternalIdentity(ctx, shared.ExternalIdentity{
			Provider:       "google",
			ProviderUserID: "g-123",
			Email:          "taken@example.com",
			DisplayName:    "Impostor",
		})
		assert.ErrorIs(t, err, common.ErrEmailInUse)
	})

	t.Run("default nickname for blank display name", func(t *testing.T) {
		usr, _, err := svc.FindOrCreateFromExternalIdentity(ctx, shared.ExternalIdentity{
			Provider:       "google",
			ProviderUserID: "g-abcdef12345",
		})
		require.NoError(t, err)
		assert.Equal(t, "google_g-abcd", usr.Nickname)
	})
}

func TestLinkAndUnlinkProvider(t *testing.T) {
	svc, _, _ := setupUserServiceTest(t)
	ctx := context.Background()

	passworded := registerUser(t, svc, "alex@example.com", "Alex")
	federated, _, err := svc.FindOrCreateFromExternalIdentity(ctx, shared.ExternalIdentity{
		Provider:       "line",
		ProviderUserID: "U-line-only",
		DisplayName:    "LineOnly",
	})
	require.NoError(t, err)

	t.Run("link to password account", func(t *testing.T) {
		usr, err := svc.LinkProvider(ctx, passworded.ID, shared.ExternalIdentity{
			Provider:       "google",
			ProviderUserID: "g-999",
			Email:          "alex@gmail.example",
		})
		require.NoError(t, err)
		assert.Contains(t, usr.Providers, "google")
	})

	t.Run("relink same identity is a no-op", func(t *testing.T) {
		usr, err := svc.LinkProvider(ctx, passworded.ID, shared.ExternalIdentity{
			Provider:       "google",
			ProviderUserID: "g-999",
		})
		require.NoError(t, err)
		assert.Contains(t, usr.Providers, "google")
	})

	t.Run("identity owned by another user rejected", func(t *testing.T) {
		_, err := svc.LinkProvider(ctx, federated.ID, shared.ExternalIdentity{
			Provider:       "google",
			ProviderUserID: "g-999",
		})
		assert.ErrorIs(t, err, common.ErrProviderLinkInUse)
	})

	t.Run("unlink with password remaining", func(t *testing.T) {
		err := svc.UnlinkProvider(ctx, passworded.ID, "google")
		assert.NoError(t, err)
	})

	t.Run("unlink last login method rejected", func(t *testing.T) {
		err := svc.UnlinkProvider(ctx, federated.ID, "line")
		assert.ErrorIs(t, err, common.ErrNoOtherLoginMethod)
	})

	t.Run("unlink provider that is not linked", func(t *testing.T) {
		err := svc.UnlinkProvider(ctx, passworded.ID, "line")
		assert.ErrorIs(t, err, common.ErrProviderNotLinked)
	})
}

func TestCompleteProfile(t *testing.T) {
	svc, _, _ := setupUserServiceTest(t)
	ctx := context.Background()

	usr, _, err := svc.FindOrCreateFromExternalIdentity(ctx, shared.ExternalIdentity{
		Provider:       "google",
		ProviderUserID: "g-profile",
		DisplayName:    "Newbie",
	})
	require.NoError(t, err)
	require.False(t, usr.ProfileComplete)

	nickname := "SettledIn"
	image := "https://img.example/me.png"
	updated, tokens, err := svc.CompleteProfile(ctx, usr.ID, &nickname, &image)
	require.NoError(t, err)
	assert.True(t, updated.ProfileComplete)
	assert.Equal(t, "SettledIn", updated.Nickname)
	require.NotNil(t, updated.ProfileImageURL)
	assert.Equal(t, image, *updated.ProfileImageURL)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestGetCurrentIdentityStateChecks(t *testing.T) {
	svc, repo, _ := setupUserServiceTest(t)
	ctx := context.Background()
	usr := registerUser(t, svc, "alex@example.com", "Alex")

	got, err := svc.GetCurrentIdentity(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	dbUser, err := repo.FindByID(ctx, usr.ID)
	require.NoError(t, err)
	dbUser.IsActive = false
	require.NoError(t, repo.Update(ctx, dbUser))

	_, err = svc.GetCurrentIdentity(ctx, usr.ID)
	assert.ErrorIs(t, err, common.ErrAccountInactive)
}

func TestPurgeDeleted(t *testing.T) {
	svc, repo, db := setupUserServiceTest(t)
	ctx := context.Background()

	old := registerUser(t, svc, "old@example.com", "Old")
	recent := registerUser(t, svc, "recent@example.com", "Recent")

	// Soft-delete both, backdating one past the retention window.
	require.NoError(t, db.Delete(&User{}, "id = ?", old.ID).Error)
	require.NoError(t, db.Delete(&User{}, "id = ?", recent.ID).Error)
	backdated := time.Now().AddDate(0, 0, -60)
	require.NoError(t, db.Unscoped().Model(&User{}).
		Where("id = ?", old.ID).
		Update("deleted_at", backdated).Error)

	purged, err := svc.PurgeDeleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.FindByID(ctx, recent.ID)
	assert.NoError(t, err)
}
