package authsession

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/authsession/guard"
	"github.com/MrEthical07/authsession/internal/audit"
	"github.com/MrEthical07/authsession/internal/flows"
	"github.com/MrEthical07/authsession/permission"
	"github.com/MrEthical07/authsession/refresh"
	"github.com/MrEthical07/authsession/session"
	"github.com/MrEthical07/authsession/transport"
)

// Client owns one session: the token store, the request pipeline, the
// renewal coordinator and the derived permission snapshot. Create it with
// [Builder.Build]. All methods are safe for concurrent use.
type Client struct {
	cfg    Config
	logger *zap.Logger

	store       *session.Store
	perms       *permission.Engine
	pipeline    *transport.Pipeline
	api         *transport.AuthAPI[User]
	coordinator *refresh.Coordinator
	metrics     *Metrics
	audit       *audit.Dispatcher
	redirect    RedirectFunc
	flows       flows.Deps[User]
	closers     []func() error

	bootMu sync.Mutex

	mu   sync.RWMutex
	snap Snapshot

	closed atomic.Bool
}

// RefreshStats reports the renewal coordinator state.
type RefreshStats struct {
	Cycles   uint64
	InFlight bool
	Pending  int
}

func (c *Client) initFlows() {
	c.flows = flows.Deps[User]{
		Restore: flows.RestoreDeps{
			Session: c.store,
			Renew: func(ctx context.Context) error {
				_, err := c.coordinator.Renew(ctx)
				return err
			},
		},
		Hydrate: flows.HydrateDeps[User]{
			Session:             c.store,
			FetchUser:           c.api.Me,
			Apply:               c.applyUser,
			Clear:               c.clearSession,
			IsTerminal:          IsSessionTerminal,
			AlreadyEnded:        func(err error) bool { return errors.Is(err, ErrSessionExpired) },
			PreserveOnTransient: c.cfg.Session.PreserveOnTransientError,
		},
		Logout: flows.LogoutDeps{
			Session: c.store,
			Revoke: func(ctx context.Context, refreshToken string) error {
				ctx, cancel := context.WithTimeout(ctx, c.cfg.Session.LogoutTimeout)
				defer cancel()
				return c.api.Logout(ctx, refreshToken)
			},
			Clear: c.clearSession,
		},
	}
}

func (c *Client) ready() error {
	if c == nil || c.closed.Load() {
		return ErrClientNotReady
	}
	return nil
}

// Boot initializes the session once per process. It seeds the snapshot from
// the cached user, renews silently when only the refresh token survived,
// then hydrates from the server. A failed restore is not returned: the
// session is cleared and Boot continues anonymously. Loading is true for the
// duration and false afterwards whatever the outcome. The returned error is
// the hydrate failure, if any; the session state is already settled.
func (c *Client) Boot(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.bootMu.Lock()
	defer c.bootMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	c.seedFromCache(ctx)

	_ = c.RestoreSessionIfNeeded(ctx)
	return c.Hydrate(ctx)
}

// RestoreSessionIfNeeded obtains a new access token when a refresh token is
// stored but the access token is not. A failure clears the session and fires
// the redirect callback through the coordinator.
func (c *Client) RestoreSessionIfNeeded(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	res := flows.RunRestore(ctx, c.flows.Restore)
	switch res.Outcome {
	case flows.RestoreRenewed:
		c.metrics.Inc(MetricSessionRestored)
		c.syncAuthenticated(ctx)
		c.emit(ctx, AuditSessionRestore, true, nil, nil)
		c.logger.Debug("session restored")
	case flows.RestoreFailed:
		c.emit(ctx, AuditSessionRestore, false, res.Err, nil)
		c.logger.Info("session restore failed", zap.Error(res.Err))
	case flows.RestoreSkipped:
		if res.Err != nil {
			c.logger.Warn("session restore skipped", zap.Error(res.Err))
		}
	}
	return res.Err
}

// Hydrate fetches the current user and recomputes permissions. A 401 or a
// failed renewal clears the session. Other failures keep the cached identity
// when Session.PreserveOnTransientError is set and clear it otherwise.
func (c *Client) Hydrate(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	res := flows.RunHydrate(ctx, c.flows.Hydrate)
	switch res.Outcome {
	case flows.HydrateAnonymous:
		c.resetIdentity()
	case flows.HydrateRefreshed:
		c.metrics.Inc(MetricHydrateSuccess)
		if res.Err != nil {
			c.logger.Warn("hydrate: cache write failed", zap.Error(res.Err))
		}
	case flows.HydrateCleared:
		c.emit(ctx, AuditSessionCleared, true, res.Err, map[string]string{"reason": "hydrate"})
		c.logger.Info("hydrate cleared session", zap.Error(res.Err))
	case flows.HydratePreserved:
		c.metrics.Inc(MetricHydrateTransient)
		c.logger.Warn("hydrate failed, keeping cached user", zap.Error(res.Err))
	case flows.HydrateExpired:
		c.logger.Info("hydrate ended by failed renewal", zap.Error(res.Err))
	}
	return res.Err
}

// Login exchanges credentials for a session and returns the signed-in user.
func (c *Client) Login(ctx context.Context, identifier, password string) (*User, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	identifier = strings.TrimSpace(identifier)
	if err := requireFields(map[string]string{"identifier": identifier, "password": password}); err != nil {
		return nil, err
	}

	res := flows.RunAuthenticate(ctx, flows.AuthenticateDeps[User]{
		Call: func(ctx context.Context) (User, string, string, error) {
			r, err := c.api.Login(ctx, identifier, password)
			return r.User, r.AccessToken, r.RefreshToken, err
		},
		SetTokens: c.store.SetTokens,
		Apply:     c.applyUser,
		Clear:     c.clearSession,
	})
	return c.finishAuthenticate(ctx, res, MetricLoginSuccess, MetricLoginFailure, AuditLogin, AuditLoginFailed)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, form RegisterRequest) (*User, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	form.Identifier = strings.TrimSpace(form.Identifier)

	res := flows.RunAuthenticate(ctx, flows.AuthenticateDeps[User]{
		Call: func(ctx context.Context) (User, string, string, error) {
			r, err := c.api.Register(ctx, form)
			return r.User, r.AccessToken, r.RefreshToken, err
		},
		SetTokens: c.store.SetTokens,
		Apply:     c.applyUser,
		Clear:     c.clearSession,
	})
	return c.finishAuthenticate(ctx, res, MetricRegisterSuccess, MetricRegisterFailure, AuditRegister, AuditRegisterFailed)
}

func (c *Client) finishAuthenticate(ctx context.Context, res flows.AuthenticateResult[User], ok, fail MetricID, okEvent, failEvent string) (*User, error) {
	if res.Err != nil {
		c.metrics.Inc(fail)
		c.emitFor(ctx, nil, failEvent, false, res.Err, nil)
		c.logger.Info(failEvent, zap.Error(res.Err))
		return nil, res.Err
	}
	c.metrics.Inc(ok)
	c.setLoading(false)
	user := res.User
	c.emitFor(ctx, &user, okEvent, true, nil, nil)
	c.logger.Debug(okEvent, zap.String("user_id", user.ID))
	return user.Clone(), nil
}

// Logout revokes the refresh token server-side and clears local state. The
// server call is best effort and bounded by Session.LogoutTimeout; only a
// local store failure is returned.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	before := c.Snapshot()

	res := flows.RunLogout(ctx, c.flows.Logout)
	if res.RevokeErr != nil {
		c.metrics.Inc(MetricLogoutRemoteFailure)
		c.logger.Warn("logout: server call failed", zap.Error(res.RevokeErr))
	}
	c.metrics.Inc(MetricLogout)
	c.setLoading(false)
	c.emitFor(ctx, before.User, AuditLogout, res.ClearErr == nil, res.ClearErr,
		map[string]string{"revoked": boolString(res.Revoked)})
	return res.ClearErr
}

// Do sends req through the pipeline, renewing once on an expired token.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.pipeline.Do(ctx, req)
}

// DoJSON sends req and decodes the response data into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.pipeline.DoJSON(ctx, req, out)
}

// Snapshot returns a copy of the current session state.
func (c *Client) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	s := c.snap
	c.mu.RUnlock()
	s.User = s.User.Clone()
	return s
}

// View implements middleware.Provider. A snapshot attached to the request
// context with [WithSnapshot] wins over the client's live state.
func (c *Client) View(r *http.Request) guard.View {
	if r != nil {
		if s, ok := SnapshotFromContext(r.Context()); ok {
			return s
		}
	}
	return c.Snapshot()
}

// User returns a copy of the signed-in user, or nil.
func (c *Client) User() *User { return c.Snapshot().User }

// Permissions returns the derived permission set.
func (c *Client) Permissions() permission.Set { return c.Snapshot().Permissions }

// Loading reports whether Boot is in progress or has not run yet.
func (c *Client) Loading() bool { return c.Snapshot().Loading }

// IsAuthenticated reports whether both tokens are held.
func (c *Client) IsAuthenticated() bool { return c.Snapshot().Authenticated }

// HasPermission reports whether the current user holds name.
func (c *Client) HasPermission(name string) bool {
	return c.Snapshot().HasPermission(name)
}

// HasAnyPermission reports whether the current user holds one of names.
func (c *Client) HasAnyPermission(names ...string) bool {
	return c.Snapshot().HasAnyPermission(names...)
}

// HasAllPermissions reports whether the current user holds all of names.
func (c *Client) HasAllPermissions(names ...string) bool {
	return c.Snapshot().HasAllPermissions(names...)
}

// PermissionEngine returns the engine used to derive permission sets.
func (c *Client) PermissionEngine() *permission.Engine { return c.perms }

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

// MetricsSnapshot returns the in-process counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot { return c.metrics.Snapshot() }

// AuditDropped reports how many audit events were dropped on a full buffer.
func (c *Client) AuditDropped() uint64 { return c.audit.Dropped() }

// RefreshStats returns the renewal coordinator state.
func (c *Client) RefreshStats() RefreshStats {
	return RefreshStats{
		Cycles:   c.coordinator.Cycles(),
		InFlight: c.coordinator.InFlight(),
		Pending:  c.coordinator.Pending(),
	}
}

// Close flushes audit events and releases stores the client opened. The
// persisted session is left intact.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.audit.Close()
	return c.closeResources()
}

func (c *Client) closeResources() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

/* ==== SNAPSHOT STATE ==== */

func (c *Client) seedFromCache(ctx context.Context) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil || refreshToken == "" {
		c.resetIdentity()
		return
	}

	var user User
	ok, err := c.store.LoadUser(ctx, &user)
	if err != nil {
		c.logger.Warn("load cached user", zap.Error(err))
	}
	if !ok {
		c.setIdentity(nil, permission.Set{}, c.store.IsAuthenticated(ctx))
		return
	}

	perms, cached, err := c.store.Permissions(ctx)
	if err != nil || !cached {
		perms = c.perms.Compute(&user)
	}
	c.setIdentity(&user, perms, c.store.IsAuthenticated(ctx))
}

func (c *Client) applyUser(ctx context.Context, user User) error {
	u := user.Clone()
	perms := c.perms.Compute(u)
	err := errors.Join(c.store.SetUser(ctx, u), c.store.SetPermissions(ctx, perms))
	c.setIdentity(u, perms, c.store.IsAuthenticated(ctx))
	return err
}

func (c *Client) clearSession(ctx context.Context) error {
	err := c.store.ClearAuth(ctx)
	c.resetIdentity()
	c.metrics.Inc(MetricSessionCleared)
	if err != nil {
		c.logger.Warn("clear session", zap.Error(err))
	}
	return err
}

func (c *Client) syncAuthenticated(ctx context.Context) {
	authenticated := c.store.IsAuthenticated(ctx)
	c.mu.Lock()
	c.snap.Authenticated = authenticated
	c.mu.Unlock()
}

func (c *Client) setIdentity(user *User, perms permission.Set, authenticated bool) {
	c.mu.Lock()
	c.snap.User = user
	c.snap.Permissions = perms
	c.snap.Authenticated = authenticated
	c.mu.Unlock()
}

func (c *Client) resetIdentity() {
	c.setIdentity(nil, permission.Set{}, false)
}

func (c *Client) setLoading(loading bool) {
	c.mu.Lock()
	c.snap.Loading = loading
	c.mu.Unlock()
}

/* ==== COORDINATOR HOOKS ==== */

func (c *Client) renew(ctx context.Context, refreshToken string) (refresh.Tokens, error) {
	start := time.Now()
	tokens, err := c.api.Refresh(ctx, refreshToken)
	c.metrics.Observe(MetricRefreshLatency, time.Since(start))
	return tokens, err
}

func (c *Client) onRenewed(ctx context.Context, _ refresh.Tokens) {
	c.metrics.Inc(MetricRefreshSuccess)
	c.syncAuthenticated(ctx)
	c.emit(ctx, AuditRefresh, true, nil, nil)
}

func (c *Client) onSessionExpired(ctx context.Context, cause error) {
	before := c.Snapshot()
	c.resetIdentity()
	c.metrics.Inc(MetricRefreshFailure)
	c.metrics.Inc(MetricSessionCleared)
	c.emitFor(ctx, before.User, AuditRefreshFailed, false, cause, nil)
	c.logger.Info("session expired", zap.Error(cause))
	if c.redirect != nil {
		c.redirect(ctx, cause)
	}
}

func (c *Client) onStoreError(op string, err error) {
	c.logger.Warn("token store error", zap.String("op", op), zap.Error(err))
}

/* ==== AUDIT ==== */

func (c *Client) emit(ctx context.Context, eventType string, success bool, err error, meta map[string]string) {
	if c.audit == nil {
		return
	}
	c.emitFor(ctx, c.Snapshot().User, eventType, success, err, meta)
}

func (c *Client) emitFor(ctx context.Context, user *User, eventType string, success bool, err error, meta map[string]string) {
	if c.audit == nil {
		return
	}
	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
		Metadata:  meta,
	}
	if user != nil {
		event.UserID = user.ID
		event.Role = user.Role
	}
	if err != nil {
		event.Error = auditError(err)
	}
	c.audit.Emit(ctx, event)
}

// auditError keeps server-provided codes and drops free-form messages that
// might echo request data.
func auditError(err error) string {
	if apiErr, ok := transport.AsAPIError(err); ok {
		return apiErr.Code
	}
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network"
	}
	return "internal"
}

// requireFields returns a validation APIError naming every empty field, so
// FieldErrors works the same for local and server-side rejections.
func requireFields(fields map[string]string) error {
	missing := make(map[string]string)
	for name, v := range fields {
		if v == "" {
			missing[name] = "required"
		}
	}
	if len(missing) == 0 {
		return nil
	}
	details, _ := json.Marshal(missing)
	return &APIError{
		Code:    transport.CodeValidation,
		Message: "missing required fields",
		Details: details,
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
