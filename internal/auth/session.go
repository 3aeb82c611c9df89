// File: internal/auth/session.go
package auth

import (
	"net/http"

	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"

	"github.com/gin-gonic/gin"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// SetAuthCookies mirrors the issued tokens into HttpOnly cookies so browser
// clients get a session without touching the response body. Non-browser
// clients keep using the body copy; the two are always set together.
func SetAuthCookies(c *gin.Context, tokens *shared.TokenResponse, cfg *config.Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		accessTokenCookie,
		tokens.AccessToken,
		int(cfg.JWTAccessTokenExpiry.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true,
	)
	c.SetCookie(
		refreshTokenCookie,
		tokens.RefreshToken,
		int(cfg.JWTRefreshTokenExpiry.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true,
	)
}

// ClearAuthCookies expires both session cookies.
func ClearAuthCookies(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
}
