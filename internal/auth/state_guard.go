// File: internal/auth/state_guard.go
package auth

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// StateGuard makes OAuth state tokens single-use. A state token that verifies
// cryptographically can still be replayed within its lifetime; recording the
// JTI of every consumed token closes that window. Entries evict themselves
// once the underlying token would have expired anyway.
type StateGuard struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// StateGuardConfig holds the configuration for the StateGuard.
type StateGuardConfig struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

// NewStateGuard creates a new in-memory state guard.
func NewStateGuard(cfg StateGuardConfig) *StateGuard {
	return &StateGuard{
		cache: cache.New(cfg.DefaultExpiration, cfg.CleanupInterval),
	}
}

// MarkUsed records the JTI as consumed and reports whether this call was the
// first to do so. A false return means the token was already spent.
func (g *StateGuard) MarkUsed(jti string, expiresAt time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	duration := time.Until(expiresAt)
	if duration <= 0 {
		return false
	}

	if _, found := g.cache.Get(jti); found {
		return false
	}
	g.cache.Set(jti, true, duration)
	return true
}
