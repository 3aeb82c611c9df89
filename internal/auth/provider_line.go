// File: internal/auth/provider_line.go
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"

	"golang.org/x/oauth2"
)

const (
	providerLine   = "line"
	lineAuthURL    = "https://access.line.me/oauth2/v2.1/authorize"
	lineTokenURL   = "https://api.line.me/oauth2/v2.1/token"
	lineProfileURL = "https://api.line.me/v2/profile"
)

type lineProvider struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
}

func newLineProvider(cfg *config.Config) *lineProvider {
	return &lineProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.LineClientID,
			ClientSecret: cfg.LineClientSecret,
			RedirectURL:  cfg.OAuthRedirectBase + "/line/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   lineAuthURL,
				TokenURL:  lineTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"profile", "openid", "email"},
		},
		httpClient: &http.Client{Timeout: providerHTTPTimeout},
	}
}

func (p *lineProvider) Name() string {
	return providerLine
}

func (p *lineProvider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// Exchange trades the code for an access token, reads the email claim out of
// the id_token when LINE includes one, and fetches the profile for the stable
// user ID and display name.
func (p *lineProvider) Exchange(ctx context.Context, code string) (*shared.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails(fmt.Sprintf("line token exchange failed: %v", err))
	}

	email := ""
	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		email = emailFromLineIDToken(rawIDToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lineProfileURL, nil)
	if err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails("could not build line profile request")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails(fmt.Sprintf("line profile request failed: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, common.ErrProviderExchangeFailed.WithDetails(fmt.Sprintf("line profile returned status %d", resp.StatusCode))
	}

	var profile struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails("could not decode line profile response")
	}
	if profile.UserID == "" {
		return nil, common.ErrProviderExchangeFailed.WithDetails("line profile missing user ID")
	}

	return &shared.ExternalIdentity{
		Provider:       providerLine,
		ProviderUserID: profile.UserID,
		Email:          email,
		DisplayName:    profile.DisplayName,
	}, nil
}

// emailFromLineIDToken pulls the email claim out of the id_token payload.
// The token arrived over the direct TLS exchange with LINE, so the signature
// is not re-verified here; the email is best-effort profile data, not an
// authentication input. Any parse failure just means no email.
func emailFromLineIDToken(rawIDToken string) string {
	parts := strings.Split(rawIDToken, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.Email
}
