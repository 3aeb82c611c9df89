// File: internal/middleware/auth.go
package middleware

import (
	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthMiddleware creates a Gin middleware for JWT authentication. Beyond
// signature and expiry, it insists on the access token type and re-checks
// account state on every request, so a suspension or deactivation bites
// immediately rather than at token expiry.
func AuthMiddleware(tokenService shared.TokenService, userService shared.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Token validation failed", zap.Error(err))
			common.RespondWithError(c, err)
			return
		}
		if claims.TokenType != shared.TokenTypeAccess {
			logger.Warn("Non-access token presented for authentication",
				zap.String("tokenType", claims.TokenType))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Not an access token."))
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			common.RespondWithError(c, common.ErrTokenMalformed)
			return
		}

		usr, err := userService.GetCurrentIdentity(c.Request.Context(), userID)
		if err != nil {
			common.RespondWithError(c, err)
			return
		}

		c.Set(common.UserIDKey, usr.ID)
		c.Set(common.UserEmailKey, usr.Email)
		c.Set(common.UserRoleKey, usr.Role)

		logger.Debug("User authenticated successfully",
			zap.String("userID", usr.ID.String()),
			zap.String("role", usr.Role),
		)

		c.Next()
	}
}

// RoleAuthMiddleware restricts a route to the given roles. It must run after
// AuthMiddleware.
func RoleAuthMiddleware(logger *zap.Logger, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := common.GetUserRoleFromContext(c)
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		logger.Warn("Role check failed",
			zap.String("role", role),
			zap.Strings("allowedRoles", allowedRoles),
			zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrForbiddenRole)
	}
}
