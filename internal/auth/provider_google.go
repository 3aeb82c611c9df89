// File: internal/auth/provider_google.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	providerGoogle      = "google"
	googleUserInfoURL   = "https://openidconnect.googleapis.com/v1/userinfo"
	providerHTTPTimeout = 10 * time.Second
)

type googleProvider struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
}

func newGoogleProvider(cfg *config.Config) *googleProvider {
	return &googleProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectBase + "/google/callback",
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
		},
		httpClient: &http.Client{Timeout: providerHTTPTimeout},
	}
}

func (p *googleProvider) Name() string {
	return providerGoogle
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the code for an access token and fetches the userinfo
// document. Either leg failing maps to the same exchange error; the caller
// cannot recover from a half-completed handshake.
func (p *googleProvider) Exchange(ctx context.Context, code string) (*shared.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails(fmt.Sprintf("google token exchange failed: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails("could not build google userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails(fmt.Sprintf("google userinfo request failed: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, common.ErrProviderExchangeFailed.WithDetails(fmt.Sprintf("google userinfo returned status %d", resp.StatusCode))
	}

	var userInfo struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, common.ErrProviderExchangeFailed.WithDetails("could not decode google userinfo response")
	}
	if userInfo.Sub == "" {
		return nil, common.ErrProviderExchangeFailed.WithDetails("google userinfo missing subject")
	}

	return &shared.ExternalIdentity{
		Provider:       providerGoogle,
		ProviderUserID: userInfo.Sub,
		Email:          userInfo.Email,
		DisplayName:    userInfo.Name,
	}, nil
}
