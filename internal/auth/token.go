// File: internal/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/platform/crypto"
	"taipei_market_backend/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWTService mints and verifies the three token kinds (access, refresh,
// oauth_state) with a single HMAC key. The type claim keeps them from being
// interchangeable.
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	stateTTL   time.Duration
	logger     *zap.Logger
}

var _ shared.TokenService = (*JWTService)(nil)

// NewJWTService creates a new JWT token service.
func NewJWTService(cfg *config.Config, logger *zap.Logger) *JWTService {
	return &JWTService{
		secretKey:  []byte(cfg.JWTSecretKey),
		accessTTL:  cfg.JWTAccessTokenExpiry,
		refreshTTL: cfg.JWTRefreshTokenExpiry,
		stateTTL:   cfg.OAuthStateTokenExpiry,
		logger:     logger.Named("JWTService"),
	}
}

// GenerateAccessToken mints a short-lived access token for the user.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID) (string, time.Time, error) {
	return s.generateUserToken(userID, shared.TokenTypeAccess, s.accessTTL)
}

// GenerateRefreshToken mints a long-lived refresh token for the user. The JTI
// makes consecutive issuances for the same user distinct, so rotating the
// stored slot actually invalidates the previous token.
func (s *JWTService) GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	return s.generateUserToken(userID, shared.TokenTypeRefresh, s.refreshTTL)
}

func (s *JWTService) generateUserToken(userID uuid.UUID, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := shared.Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.String("tokenType", tokenType), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, expiresAt, nil
}

// GenerateStateToken mints the CSRF state token for an OAuth redirect. The
// subject carries the provider name so the callback can verify the round
// trip landed on the provider it started from. The redirect claim rides
// along untouched.
func (s *JWTService) GenerateStateToken(provider, redirect string) (string, error) {
	jti, err := crypto.GenerateSecureRandomString(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate state token ID: %w", err)
	}
	now := time.Now()
	claims := shared.Claims{
		TokenType: shared.TokenTypeOAuthState,
		Redirect:  redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   provider,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.stateTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error("Failed to sign state token", zap.Error(err))
		return "", fmt.Errorf("failed to sign state token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
// Callers must still check the type claim against what they expect.
func (s *JWTService) ValidateToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrBadSignature
		default:
			return nil, common.ErrTokenMalformed
		}
	}
	if !token.Valid {
		return nil, common.ErrTokenMalformed
	}
	return claims, nil
}
