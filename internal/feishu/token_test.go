package feishu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// fakeIssuer hands out tok-1, tok-2, ... and counts calls.
type fakeIssuer struct {
	calls atomic.Int32
	ttl   time.Duration
	err   error
	// gate, when non-nil, blocks each issuance until closed.
	gate chan struct{}
	// entered, when non-nil, receives a value as each issuance starts.
	entered chan struct{}
}

func (f *fakeIssuer) TenantAccessToken(ctx context.Context) (string, time.Duration, error) {
	n := f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	}
	if f.err != nil {
		return "", 0, f.err
	}
	return fmt.Sprintf("tok-%d", n), f.ttl, nil
}

func TestTokenCacheFirstCallIssues(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour}
	cache := NewTokenCache(issuer, WithClock(clock.Now))

	token, expiresAt, err := cache.Credential(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("expected tok-1, got %q", token)
	}
	if want := clock.Now().Add(2 * time.Hour); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %s, want %s", expiresAt, want)
	}
	if issuer.calls.Load() != 1 {
		t.Errorf("expected 1 issuance, got %d", issuer.calls.Load())
	}
}

func TestTokenCacheReturnsCachedWhenFresh(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour}
	cache := NewTokenCache(issuer, WithClock(clock.Now))

	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Expiry is 2h away; anything up to 1h30m keeps more than the margin.
	for _, step := range []time.Duration{0, 30 * time.Minute, 30 * time.Minute, 29 * time.Minute} {
		clock.Advance(step)
		token, err := cache.Token(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if token != "tok-1" {
			t.Fatalf("expected cached tok-1, got %q", token)
		}
	}
	if issuer.calls.Load() != 1 {
		t.Errorf("expected no renewal while fresh, got %d issuances", issuer.calls.Load())
	}
}

func TestTokenCacheBoundaryIsNotRenewed(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour}
	cache := NewTokenCache(issuer, WithClock(clock.Now))
	cache.Token(context.Background())

	// Exactly expiresAt - margin: now is not after the threshold yet.
	clock.Advance(90 * time.Minute)
	token, _ := cache.Token(context.Background())
	if token != "tok-1" || issuer.calls.Load() != 1 {
		t.Errorf("expected cached token at the exact threshold, got %q after %d issuances", token, issuer.calls.Load())
	}
}

func TestTokenCacheRenewsInsideMargin(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour}
	cache := NewTokenCache(issuer, WithClock(clock.Now))
	cache.Token(context.Background())

	clock.Advance(90*time.Minute + time.Second)
	token, err := cache.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-2" {
		t.Errorf("expected renewed tok-2, got %q", token)
	}
	if issuer.calls.Load() != 2 {
		t.Errorf("expected exactly one renewal, got %d issuances", issuer.calls.Load())
	}

	// The renewed token is cached again.
	token, _ = cache.Token(context.Background())
	if token != "tok-2" || issuer.calls.Load() != 2 {
		t.Errorf("expected cached tok-2, got %q after %d issuances", token, issuer.calls.Load())
	}
}

func TestTokenCacheRenewsAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour}
	cache := NewTokenCache(issuer, WithClock(clock.Now))
	cache.Token(context.Background())

	clock.Advance(3 * time.Hour)
	token, err := cache.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-2" {
		t.Errorf("expected tok-2 after expiry, got %q", token)
	}
}

func TestTokenCacheCustomMargin(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour}
	cache := NewTokenCache(issuer, WithClock(clock.Now), WithRefreshMargin(5*time.Minute))
	cache.Token(context.Background())

	clock.Advance(110 * time.Minute)
	if token, _ := cache.Token(context.Background()); token != "tok-1" {
		t.Errorf("expected tok-1 with 10m left and a 5m margin, got %q", token)
	}
	clock.Advance(6 * time.Minute)
	if token, _ := cache.Token(context.Background()); token != "tok-2" {
		t.Errorf("expected tok-2 with 4m left, got %q", token)
	}
}

func TestTokenCacheConcurrentCallersRenewOnce(t *testing.T) {
	const callers = 32
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour, gate: make(chan struct{}), entered: make(chan struct{}, callers)}
	cache := NewTokenCache(issuer, WithClock(clock.Now))

	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = cache.Token(context.Background())
		}(i)
	}

	// Hold the first renewal open while the other callers pile up.
	<-issuer.entered
	time.Sleep(20 * time.Millisecond)
	close(issuer.gate)
	wg.Wait()

	if n := issuer.calls.Load(); n != 1 {
		t.Fatalf("expected exactly 1 renewal for %d concurrent callers, got %d", callers, n)
	}
	for i := range tokens {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error %v", i, errs[i])
		}
		if tokens[i] != "tok-1" {
			t.Errorf("caller %d: expected tok-1, got %q", i, tokens[i])
		}
	}
}

func TestTokenCacheRenewalFailureKeepsCredential(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{ttl: 2 * time.Hour}
	cache := NewTokenCache(issuer, WithClock(clock.Now))
	cache.Token(context.Background())
	before := cache.expiresAt

	// Inside the margin but not yet expired.
	clock.Advance(100 * time.Minute)
	issuer.err = errors.New("platform down")

	token, err := cache.Token(context.Background())
	if err == nil {
		t.Fatal("expected renewal error")
	}
	if token != "" {
		t.Errorf("expected no token on failure, got %q", token)
	}
	if cache.token != "tok-1" || !cache.expiresAt.Equal(before) {
		t.Errorf("cache state changed on failure: token=%q expiresAt=%s", cache.token, cache.expiresAt)
	}

	// The next call retries renewal and succeeds.
	issuer.err = nil
	token, err = cache.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if token != "tok-3" {
		t.Errorf("expected tok-3 after recovery, got %q", token)
	}
}

func TestTokenCacheFirstIssuanceFailure(t *testing.T) {
	issuer := &fakeIssuer{err: errors.New("bad app secret")}
	cache := NewTokenCache(issuer)

	if _, err := cache.Token(context.Background()); err == nil {
		t.Fatal("expected error when no token can be issued")
	}
	if cache.token != "" {
		t.Errorf("expected empty cache, got %q", cache.token)
	}
}

func TestTokenCacheWaiterHonoursContext(t *testing.T) {
	issuer := &fakeIssuer{ttl: 2 * time.Hour, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	cache := NewTokenCache(issuer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.Token(context.Background())
	}()
	<-issuer.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := cache.Token(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while waiting for the lock, got %v", err)
	}

	close(issuer.gate)
	<-done
	if issuer.calls.Load() != 1 {
		t.Errorf("expected the waiter not to issue, got %d issuances", issuer.calls.Load())
	}
}

func TestTokenCacheWithClient(t *testing.T) {
	srv, state := newPlatform(t)
	state.expire = 7200

	cache := NewTokenCache(NewClient(ClientConfig{BaseURL: srv.URL, AppID: "cli_a", AppSecret: "s"}))
	for i := 0; i < 3; i++ {
		token, err := cache.Token(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if token != "t-1" {
			t.Errorf("expected t-1, got %q", token)
		}
	}
	if n := state.tokenCalls.Load(); n != 1 {
		t.Errorf("expected 1 issuance request, got %d", n)
	}
}
