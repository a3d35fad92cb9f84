package supervisor

import (
	"context"
	"sync"
	"time"
)

// tokenRefreshInterval bounds how often a fresh login call is made; Betfair
// session tokens are valid for hours, but re-authenticating on every
// reconnect would add needless latency and load on the login endpoint.
const tokenRefreshInterval = 5 * time.Minute

// SessionProvider logs in and returns a session token. Supplied by
// internal/rpc in production, and trivially faked in tests.
type SessionProvider interface {
	Authenticate(ctx context.Context) (string, error)
}

// tokenCache memoizes the session token for tokenRefreshInterval, mirroring
// the upstream connect loop's last_time_token_refreshed bookkeeping.
type tokenCache struct {
	mu           sync.Mutex
	provider     SessionProvider
	token        string
	lastRefresh  time.Time
	hasRefreshed bool
}

func newTokenCache(provider SessionProvider) *tokenCache {
	return &tokenCache{provider: provider}
}

// get returns a cached token if it is still fresh, otherwise logs in again.
func (c *tokenCache) get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasRefreshed && time.Since(c.lastRefresh) < tokenRefreshInterval {
		return c.token, nil
	}

	token, err := c.provider.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.lastRefresh = time.Now()
	c.hasRefreshed = true
	return c.token, nil
}
