// File: internal/auth/model.go
package auth

import "taipei_market_backend/internal/shared"

// OAuthInitiateResponse carries the provider authorization URL and the state
// token the client must send back on the callback leg.
type OAuthInitiateResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// OAuthCallbackResult is the outcome of a completed federated login.
type OAuthCallbackResult struct {
	User       *shared.User          `json:"user"`
	Token      *shared.TokenResponse `json:"token"`
	WasCreated bool                  `json:"was_created"`
	Redirect   string                `json:"-"`
}

// ConnectRequest carries the provider handshake result for the authenticated
// account-linking flow.
type ConnectRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}
