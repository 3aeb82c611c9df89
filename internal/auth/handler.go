// File: internal/auth/handler.go
package auth

import (
	"errors"
	"net/http"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"
	"taipei_market_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler owns every endpoint that issues or consumes a session: local
// register/login/refresh, the OAuth flows, and profile completion. Sessions
// are always delivered twice, in the response body and as cookies.
type Handler struct {
	userService  shared.Service
	oauthService *OAuthService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(
	userService shared.Service,
	oauthService *OAuthService,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userService:  userService,
		oauthService: oauthService,
		cfg:          cfg,
		logger:       logger,
	}
}

// RegisterRoutes sets up credential and OAuth routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	userGroup := router.Group("/users")
	{
		userGroup.POST("/register", h.register)
		userGroup.POST("/login", h.login)
		userGroup.POST("/refresh", h.refresh)
		userGroup.POST("/logout", h.logout)
		userGroup.POST("/complete-profile", authMW, h.completeProfile)
	}

	oauthGroup := router.Group("/auth")
	{
		oauthGroup.GET("/:provider/login", h.oauthLogin)
		oauthGroup.GET("/:provider/callback", h.oauthCallback)
		oauthGroup.POST("/connect/:provider", authMW, h.connect)
		oauthGroup.POST("/disconnect/:provider", authMW, h.disconnect)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, "register", err)
		return
	}
	usr, tokens, err := h.userService.Register(c.Request.Context(), shared.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	SetAuthCookies(c, tokens, h.cfg)
	common.RespondCreated(c, "User registered successfully.", gin.H{"user": usr, "token": tokens})
}

func (h *Handler) login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, "login", err)
		return
	}
	usr, tokens, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	SetAuthCookies(c, tokens, h.cfg)
	common.RespondOK(c, "Logged in successfully.", gin.H{"user": usr, "token": tokens})
}

// refresh accepts the refresh token from the body or, failing that, the
// session cookie, so both API and browser clients can renew.
func (h *Handler) refresh(c *gin.Context) {
	var req user.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		cookieToken, cookieErr := c.Cookie(refreshTokenCookie)
		if cookieErr != nil || cookieToken == "" {
			common.RespondWithError(c, common.ErrBadRequest.WithDetails("A refresh token is required."))
			return
		}
		req.RefreshToken = cookieToken
	}
	usr, tokens, err := h.userService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	SetAuthCookies(c, tokens, h.cfg)
	common.RespondOK(c, "Session refreshed.", gin.H{"user": usr, "token": tokens})
}

// logout clears the session cookies. Access tokens stay valid until expiry;
// the refresh token dies on its next use because rotation has moved on.
func (h *Handler) logout(c *gin.Context) {
	ClearAuthCookies(c, h.cfg)
	common.RespondOK(c, "Logged out.", nil)
}

func (h *Handler) completeProfile(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req user.CompleteProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, "complete-profile", err)
		return
	}
	usr, tokens, err := h.userService.CompleteProfile(c.Request.Context(), userID, req.Nickname, req.ProfileImage)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	SetAuthCookies(c, tokens, h.cfg)
	common.RespondOK(c, "Profile completed.", gin.H{"user": usr, "token": tokens})
}

func (h *Handler) oauthLogin(c *gin.Context) {
	providerName := c.Param("provider")
	redirect := c.Query("redirect")
	resp, err := h.oauthService.Initiate(c.Request.Context(), providerName, redirect)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Authorization URL generated.", resp)
}

func (h *Handler) oauthCallback(c *gin.Context) {
	providerName := c.Param("provider")
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Both code and state are required."))
		return
	}
	result, err := h.oauthService.HandleCallback(c.Request.Context(), providerName, code, state)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	SetAuthCookies(c, result.Token, h.cfg)
	if result.Redirect != "" {
		c.Redirect(http.StatusFound, result.Redirect)
		return
	}
	common.RespondOK(c, "Logged in successfully.", result)
}

func (h *Handler) connect(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	providerName := c.Param("provider")
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, "connect", err)
		return
	}
	usr, tokens, err := h.oauthService.Connect(c.Request.Context(), userID, providerName, req.Code, req.State)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	SetAuthCookies(c, tokens, h.cfg)
	common.RespondOK(c, "Provider connected.", gin.H{"user": usr, "token": tokens})
}

func (h *Handler) disconnect(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	providerName := c.Param("provider")
	if err := h.oauthService.Disconnect(c.Request.Context(), userID, providerName); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Provider disconnected.", nil)
}

func (h *Handler) bindError(c *gin.Context, op string, err error) {
	h.logger.Warn("Invalid request body", zap.String("operation", op), zap.Error(err))
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
		return
	}
	common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
}
