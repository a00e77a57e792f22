package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrSessionExpired is the umbrella error for renewals that ended the session.
	ErrSessionExpired = errors.New("refresh: session expired")
	// ErrNoRefreshToken is returned when no refresh token is stored.
	ErrNoRefreshToken = fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	// ErrRenewalFailed wraps the renewal endpoint's failure.
	ErrRenewalFailed = fmt.Errorf("%w: renewal failed", ErrSessionExpired)
	// ErrEmptyAccessToken is returned when the endpoint answers without an access token.
	ErrEmptyAccessToken = errors.New("refresh: empty access token in renewal response")

	errAborted = errors.New("refresh: renewal aborted")
)

// DefaultTimeout bounds a renewal call when Deps.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Tokens is a renewed credential pair. RefreshToken may be empty when the
// server does not rotate it.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore is the slice of session.Store the coordinator writes to.
type TokenStore interface {
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	ClearAuth(ctx context.Context) error
}

// Renewer calls the unauthenticated renewal endpoint.
type Renewer interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// RenewerFunc adapts a function to [Renewer].
type RenewerFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// Refresh calls f.
func (f RenewerFunc) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return f(ctx, refreshToken)
}

// Deps captures coordinator dependencies and hooks. Hooks are optional.
type Deps struct {
	Store   TokenStore
	Renewer Renewer
	// Timeout bounds a whole cycle: reading the refresh token, the renewal
	// call, persisting or clearing tokens, and the hooks. The cycle runs
	// detached from the leader's context so one caller giving up cannot end
	// everyone's session.
	Timeout time.Duration

	// OnRenewed runs after new tokens are persisted, before waiters settle.
	OnRenewed func(ctx context.Context, tokens Tokens)
	// OnSessionExpired runs after the session is cleared, once per failed cycle.
	OnSessionExpired func(ctx context.Context, cause error)
	// OnQueued runs each time a caller joins an in-flight cycle.
	OnQueued func()
	// OnStoreError reports a failure to clear or persist tokens.
	OnStoreError func(op string, err error)
}

type outcome struct {
	tokens Tokens
	err    error
}

// Coordinator is the single-flight renewal gate.
type Coordinator struct {
	deps Deps

	mu         sync.Mutex
	refreshing bool
	waiters    []chan outcome

	cycles atomic.Uint64
}

// New creates a [Coordinator].
func New(deps Deps) (*Coordinator, error) {
	if deps.Store == nil {
		return nil, errors.New("refresh: token store required")
	}
	if deps.Renewer == nil {
		return nil, errors.New("refresh: renewer required")
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultTimeout
	}
	return &Coordinator{deps: deps}, nil
}

// Renew returns fresh tokens, either by leading a renewal cycle or by waiting
// for the one in flight. A waiter whose ctx ends stops waiting; the cycle
// carries on for everyone else.
func (c *Coordinator) Renew(ctx context.Context) (Tokens, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan outcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		if c.deps.OnQueued != nil {
			c.deps.OnQueued()
		}

		select {
		case o := <-ch:
			return o.tokens, o.err
		case <-ctx.Done():
			return Tokens{}, ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	c.cycles.Add(1)

	res := outcome{err: errAborted}
	defer func() {
		c.mu.Lock()
		waiters := c.waiters
		c.waiters = nil
		c.refreshing = false
		for _, ch := range waiters {
			ch <- res
		}
		c.mu.Unlock()
	}()

	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.deps.Timeout)
	defer cancel()
	res.tokens, res.err = c.lead(cycleCtx)
	return res.tokens, res.err
}

// lead performs one renewal cycle including its side effects. It runs with
// the in-flight flag set, on a context detached from the leading caller.
func (c *Coordinator) lead(ctx context.Context) (Tokens, error) {
	refreshToken, err := c.deps.Store.RefreshToken(ctx)
	if err != nil {
		return Tokens{}, fmt.Errorf("refresh: read refresh token: %w", err)
	}
	if refreshToken == "" {
		c.expire(ctx, ErrNoRefreshToken)
		return Tokens{}, ErrNoRefreshToken
	}

	tokens, err := c.deps.Renewer.Refresh(ctx, refreshToken)
	if err == nil && tokens.AccessToken == "" {
		err = ErrEmptyAccessToken
	}
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrRenewalFailed, err)
		c.expire(ctx, wrapped)
		return Tokens{}, wrapped
	}

	if err := c.deps.Store.SetTokens(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		if c.deps.OnStoreError != nil {
			c.deps.OnStoreError("set_tokens", err)
		}
		return Tokens{}, fmt.Errorf("refresh: persist tokens: %w", err)
	}
	if c.deps.OnRenewed != nil {
		c.deps.OnRenewed(ctx, tokens)
	}
	return tokens, nil
}

func (c *Coordinator) expire(ctx context.Context, cause error) {
	if err := c.deps.Store.ClearAuth(ctx); err != nil && c.deps.OnStoreError != nil {
		c.deps.OnStoreError("clear_auth", err)
	}
	if c.deps.OnSessionExpired != nil {
		c.deps.OnSessionExpired(ctx, cause)
	}
}

// Pending returns the number of callers waiting on the in-flight cycle.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// InFlight reports whether a renewal cycle is running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Cycles returns the number of renewal cycles led so far.
func (c *Coordinator) Cycles() uint64 {
	return c.cycles.Load()
}

// RefreshOrEnqueue renews (or waits for the in-flight renewal) and then calls
// retry exactly once with the new access token.
func RefreshOrEnqueue[T any](ctx context.Context, c *Coordinator, retry func(ctx context.Context, accessToken string) (T, error)) (T, error) {
	tokens, err := c.Renew(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return retry(ctx, tokens.AccessToken)
}
