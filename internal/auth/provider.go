// File: internal/auth/provider.go
package auth

import (
	"context"

	"taipei_market_backend/internal/common"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/shared"

	"go.uber.org/zap"
)

// Provider is the contract every external login provider implements.
// Implementations return identity facts only; user creation, linking, and
// session management happen upstream.
type Provider interface {
	// Name returns the provider identifier (e.g. "google", "line").
	Name() string

	// AuthCodeURL returns the provider authorization URL carrying the state.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for a normalized identity.
	Exchange(ctx context.Context, code string) (*shared.ExternalIdentity, error)
}

// Registry resolves provider names to configured implementations. A name the
// system knows but has no credentials for is distinguished from a name it has
// never heard of.
type Registry struct {
	providers map[string]Provider
	known     map[string]bool
}

// NewRegistry builds the registry from configuration. Providers without
// credentials are left unregistered but remain known names.
func NewRegistry(cfg *config.Config, logger *zap.Logger) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		known: map[string]bool{
			providerGoogle: true,
			providerLine:   true,
		},
	}
	if cfg.GoogleConfigured() {
		r.providers[providerGoogle] = newGoogleProvider(cfg)
	} else {
		logger.Warn("Google OAuth credentials absent; provider disabled")
	}
	if cfg.LineConfigured() {
		r.providers[providerLine] = newLineProvider(cfg)
	} else {
		logger.Warn("LINE OAuth credentials absent; provider disabled")
	}
	return r
}

// Known reports whether the name is a provider the system supports at all,
// configured or not. Disconnecting a provider whose credentials were removed
// must still work.
func (r *Registry) Known(name string) bool {
	return r.known[name]
}

// Get returns the provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	if !r.known[name] {
		return nil, common.ErrUnsupportedProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, common.ErrProviderNotConfigured
	}
	return p, nil
}
