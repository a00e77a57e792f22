package authsession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/authsession/internal/audit"
	"github.com/MrEthical07/authsession/jwt"
	"github.com/MrEthical07/authsession/kv"
	"github.com/MrEthical07/authsession/permission"
	"github.com/MrEthical07/authsession/refresh"
	"github.com/MrEthical07/authsession/session"
	"github.com/MrEthical07/authsession/transport"
)

// Builder assembles a [Client]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config Config
	logger *zap.Logger

	tab    kv.Store
	shared kv.Store
	redis  redis.UniversalClient

	httpClient *http.Client

	permissions []string
	roles       map[string][]string

	auditSink AuditSink
	redirect  RedirectFunc

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets API.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithLogger sets the logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTabStore sets the process-local store holding the access token copy.
// The default is an in-memory store.
func (b *Builder) WithTabStore(s kv.Store) *Builder {
	b.tab = s
	return b
}

// WithSharedStore sets the store that survives new client instances. It
// takes precedence over WithRedis and Storage.Backend.
func (b *Builder) WithSharedStore(s kv.Store) *Builder {
	b.shared = s
	return b
}

// WithRedis uses client as the shared store, keyed under Storage.Prefix. The
// caller keeps ownership of client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the HTTP client. Its Timeout replaces API.Timeout.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithPermissions declares the permission universe. The default is
// permission.DefaultPermissions.
func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles declares role base permissions. The default is
// permission.DefaultRoles.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithAuditSink sets the audit sink. Audit.Enabled must be true for events
// to be dispatched.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRedirect sets the callback fired when renewal ends the session.
func (b *Builder) WithRedirect(fn RedirectFunc) *Builder {
	b.redirect = fn
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. It opens the
// configured shared store; the returned Client owns it and releases it on
// Close.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	perms := b.permissions
	if len(perms) == 0 {
		perms = permission.DefaultPermissions()
	}
	roles := b.roles
	if len(roles) == 0 {
		roles = permission.DefaultRoles()
	}
	engine, err := permission.Build(perms, roles, cfg.Permission.SuperAdminRole)
	if err != nil {
		return nil, fmt.Errorf("permissions: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		cfg:      cfg,
		logger:   logger,
		perms:    engine,
		metrics:  NewMetrics(cfg.Metrics),
		redirect: b.redirect,
		snap:     Snapshot{Loading: true},
	}

	// -------- STORES --------
	tab := b.tab
	if tab == nil {
		tab = kv.NewMemory()
	}
	shared, err := b.openShared(cfg.Storage, c)
	if err != nil {
		return nil, err
	}
	c.store, err = session.NewStore(tab, shared)
	if err != nil {
		_ = c.closeResources()
		return nil, err
	}

	// -------- TRANSPORT --------
	var inspector *jwt.Inspector
	if cfg.Refresh.Proactive {
		inspector = jwt.NewInspector(cfg.Refresh.Leeway)
	}
	c.pipeline, err = transport.NewPipeline(transport.Deps{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: b.httpClient,
		Timeout:    cfg.API.Timeout,
		Tokens:     c.store,
		Logger:     logger.Named("transport"),
		Observer:   pipelineObserver{m: c.metrics},
		Inspector:  inspector,
	})
	if err != nil {
		_ = c.closeResources()
		return nil, err
	}
	c.api = transport.NewAuthAPI[User](c.pipeline, cfg.API.Paths)

	// -------- RENEWAL --------
	c.coordinator, err = refresh.New(refresh.Deps{
		Store:            c.store,
		Renewer:          refresh.RenewerFunc(c.renew),
		Timeout:          cfg.Refresh.Timeout,
		OnRenewed:        c.onRenewed,
		OnSessionExpired: c.onSessionExpired,
		OnQueued:         func() { c.metrics.Inc(MetricRefreshCoalesced) },
		OnStoreError:     c.onStoreError,
	})
	if err != nil {
		_ = c.closeResources()
		return nil, err
	}
	c.pipeline.UseCoordinator(c.coordinator)

	// -------- AUDIT --------
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	c.initFlows()

	b.built = true
	return c, nil
}

func (b *Builder) openShared(cfg StorageConfig, c *Client) (kv.Store, error) {
	if b.shared != nil {
		return b.shared, nil
	}
	if b.redis != nil {
		return kv.NewRedis(b.redis, cfg.Prefix, cfg.RedisTTL), nil
	}

	switch cfg.Backend {
	case StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		c.closers = append(c.closers, client.Close)
		return kv.NewRedis(client, cfg.Prefix, cfg.RedisTTL), nil
	case StorageSQLite:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err := kv.OpenSQLite(ctx, cfg.SQLitePath, cfg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		return db, nil
	case StorageMemory:
		return kv.NewMemory(), nil
	}
	return nil, errors.New("unsupported storage backend")
}
