package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ziadkadry99/larkbot/internal/logging"
)

// DefaultRefreshMargin is how long before expiry a token is renewed.
const DefaultRefreshMargin = 30 * time.Minute

// TokenIssuer issues tenant access tokens. *Client implements it.
type TokenIssuer interface {
	TenantAccessToken(ctx context.Context) (token string, ttl time.Duration, err error)
}

// TokenCache owns the single tenant access token of the process and
// renews it on demand. The expiry check and any renewal run under one lock,
// so concurrent callers near expiry trigger a single renewal and never see
// a token paired with another renewal's expiry.
//
// Lifetimes shorter than the refresh margin cause a renewal on every call.
type TokenCache struct {
	issuer TokenIssuer
	margin time.Duration
	now    func() time.Time
	log    *slog.Logger

	// sem is a one-slot lock. A channel instead of a sync.Mutex lets
	// waiters give up when their context ends.
	sem       chan struct{}
	token     string
	expiresAt time.Time
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithRefreshMargin sets how long before expiry the token is renewed.
func WithRefreshMargin(d time.Duration) TokenCacheOption {
	return func(c *TokenCache) { c.margin = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) { c.now = now }
}

// WithLogger sets the logger used to report renewals.
func WithLogger(log *slog.Logger) TokenCacheOption {
	return func(c *TokenCache) { c.log = log }
}

// NewTokenCache creates an empty cache; the first call to Token issues a token.
func NewTokenCache(issuer TokenIssuer, opts ...TokenCacheOption) *TokenCache {
	c := &TokenCache{
		issuer: issuer,
		margin: DefaultRefreshMargin,
		now:    time.Now,
		log:    logging.Discard(),
		sem:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a token that stays valid for at least the refresh margin,
// renewing it first when needed. A failed renewal returns an error and
// leaves the cached credential untouched.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	token, _, err := c.Credential(ctx)
	return token, err
}

// Credential is Token that also reports the expiry of the returned token.
func (c *TokenCache) Credential(ctx context.Context) (string, time.Time, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return "", time.Time{}, ctx.Err()
	}
	defer func() { <-c.sem }()

	if c.token != "" && !c.now().After(c.expiresAt.Add(-c.margin)) {
		return c.token, c.expiresAt, nil
	}

	token, ttl, err := c.issuer.TenantAccessToken(ctx)
	if err != nil {
		c.log.Error("tenant token renewal failed", "error", err)
		return "", time.Time{}, fmt.Errorf("renewing tenant access token: %w", err)
	}

	c.token = token
	c.expiresAt = c.now().Add(ttl)
	c.log.Info("tenant token renewed", "expires_at", c.expiresAt.Format(time.RFC3339), "ttl", ttl)
	return c.token, c.expiresAt, nil
}
