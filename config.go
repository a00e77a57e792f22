package authsession

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/authsession/permission"
	"github.com/MrEthical07/authsession/transport"
)

// Config is the complete client configuration. Zero values are not usable;
// start from [DefaultConfig] or [LoadConfig].
type Config struct {
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Session    SessionConfig    `yaml:"session"`
	Permission PermissionConfig `yaml:"permission"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the REST API.
type APIConfig struct {
	BaseURL string          `yaml:"baseURL"`
	Timeout time.Duration   `yaml:"timeout"`
	Paths   transport.Paths `yaml:"paths"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends for the shared (cross-process) store.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// StorageConfig selects where the refresh token, user and permissions live.
// The access token always stays in process memory.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Prefix  string `yaml:"prefix"`

	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	RedisTTL      time.Duration `yaml:"redisTTL"`

	SQLitePath string `yaml:"sqlitePath"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls token renewal.
type RefreshConfig struct {
	// Timeout bounds one renewal call.
	Timeout time.Duration `yaml:"timeout"`
	// Proactive renews before sending when the access token's exp has passed.
	Proactive bool `yaml:"proactive"`
	// Leeway counts tokens expiring within it as expired.
	Leeway time.Duration `yaml:"leeway"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifecycle policy.
type SessionConfig struct {
	// PreserveOnTransientError keeps the cached user and permissions when
	// hydration fails for reasons other than an invalid session.
	PreserveOnTransientError bool `yaml:"preserveOnTransientError"`
	// LogoutTimeout bounds the best-effort server logout call.
	LogoutTimeout time.Duration `yaml:"logoutTimeout"`
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// PermissionConfig names the wildcard role.
type PermissionConfig struct {
	SuperAdminRole string `yaml:"superAdminRole"`
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"bufferSize"`
	DropIfFull bool `yaml:"dropIfFull"`
}

// MetricsConfig toggles in-process counters and histograms.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enableLatencyHistograms"`
}

// LogConfig configures the logger built by the binaries.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration with every default applied. BaseURL
// is left empty and must be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
			Paths:   transport.DefaultPaths(),
		},
		Storage: StorageConfig{
			Backend:    StorageMemory,
			Prefix:     "as",
			SQLitePath: "authsession.db",
		},
		Refresh: RefreshConfig{
			Timeout: 15 * time.Second,
			Leeway:  10 * time.Second,
		},
		Session: SessionConfig{
			PreserveOnTransientError: true,
			LogoutTimeout:            5 * time.Second,
		},
		Permission: PermissionConfig{
			SuperAdminRole: permission.RoleSuperAdmin,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads a YAML file over [DefaultConfig] and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over [DefaultConfig] and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return invalid("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("API BaseURL %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return invalid("API Timeout must be > 0")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return invalid("Storage RedisAddr is required for the redis backend")
		}
		if c.Storage.RedisTTL < 0 {
			return invalid("Storage RedisTTL must be >= 0")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return invalid("Storage SQLitePath is required for the sqlite backend")
		}
	default:
		return invalid("unsupported Storage Backend %q", c.Storage.Backend)
	}

	// Refresh
	if c.Refresh.Timeout <= 0 {
		return invalid("Refresh Timeout must be > 0")
	}
	if c.Refresh.Leeway < 0 {
		return invalid("Refresh Leeway must be >= 0")
	}

	// Session
	if c.Session.LogoutTimeout <= 0 {
		return invalid("Session LogoutTimeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalid("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
