package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that reads and writes as a Go duration string ("15s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ServerConfig describes the QMS backend.
type ServerConfig struct {
	BaseURL     string   `toml:"base_url"`
	LoginPath   string   `toml:"login_path"`
	RefreshPath string   `toml:"refresh_path"`
	LogoutPath  string   `toml:"logout_path"`
	Timeout     Duration `toml:"timeout"`
}

// RetryConfig controls the retry of transient (503/504) responses.
type RetryConfig struct {
	MaxRetries int      `toml:"max_retries"`
	BaseDelay  Duration `toml:"base_delay"`
}

// SessionConfig selects where the credential pair is persisted.
type SessionConfig struct {
	Store          string   `toml:"store"` // memory, file, redis or keyring
	Path           string   `toml:"path"`
	RedisAddr      string   `toml:"redis_addr"`
	RedisKey       string   `toml:"redis_key"`
	RedisTTL       Duration `toml:"redis_ttl"`
	KeyringService string   `toml:"keyring_service"`
	KeyringUser    string   `toml:"keyring_user"`
}

// ClientConfig holds client-side tuning knobs.
type ClientConfig struct {
	RateLimit float64 `toml:"rate_limit"` // requests per second, 0 disables
	RateBurst int     `toml:"rate_burst"`
	LogLevel  string  `toml:"log_level"`
}

// Config holds all qmsdeck configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Retry   RetryConfig   `toml:"retry"`
	Session SessionConfig `toml:"session"`
	Client  ClientConfig  `toml:"client"`
}

const (
	defaultLoginPath      = "/auth/login"
	defaultRefreshPath    = "/auth/refresh"
	defaultLogoutPath     = "/auth/logout"
	defaultTimeout        = 15 * time.Second
	defaultMaxRetries     = 2
	defaultBaseDelay      = time.Second
	defaultSessionStore   = "file"
	defaultRedisKey       = "qmsdeck:session"
	defaultKeyringService = "qmsdeck"
	defaultKeyringUser    = "session"
)

// LoginPathOrDefault returns Server.LoginPath if set, otherwise defaultLoginPath.
func (c Config) LoginPathOrDefault() string {
	if c.Server.LoginPath != "" {
		return c.Server.LoginPath
	}
	return defaultLoginPath
}

// RefreshPathOrDefault returns Server.RefreshPath if set, otherwise defaultRefreshPath.
func (c Config) RefreshPathOrDefault() string {
	if c.Server.RefreshPath != "" {
		return c.Server.RefreshPath
	}
	return defaultRefreshPath
}

// LogoutPathOrDefault returns Server.LogoutPath if set, otherwise defaultLogoutPath.
func (c Config) LogoutPathOrDefault() string {
	if c.Server.LogoutPath != "" {
		return c.Server.LogoutPath
	}
	return defaultLogoutPath
}

// TimeoutOrDefault returns the per-request timeout.
func (c Config) TimeoutOrDefault() time.Duration {
	if c.Server.Timeout.Duration > 0 {
		return c.Server.Timeout.Duration
	}
	return defaultTimeout
}

// MaxRetriesOrDefault returns how many times a transient failure is retried.
// Zero in the file means "use the default"; there is no way to disable retries from TOML.
func (c Config) MaxRetriesOrDefault() int {
	if c.Retry.MaxRetries > 0 {
		return c.Retry.MaxRetries
	}
	return defaultMaxRetries
}

// BaseDelayOrDefault returns the linear backoff unit.
func (c Config) BaseDelayOrDefault() time.Duration {
	if c.Retry.BaseDelay.Duration > 0 {
		return c.Retry.BaseDelay.Duration
	}
	return defaultBaseDelay
}

// SessionStoreOrDefault returns the configured session backend name.
func (c Config) SessionStoreOrDefault() string {
	if c.Session.Store != "" {
		return strings.ToLower(c.Session.Store)
	}
	return defaultSessionStore
}

// SessionPathOrDefault returns the path of the file-backed session store.
func (c Config) SessionPathOrDefault() string {
	if c.Session.Path != "" {
		return c.Session.Path
	}
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "session.toml")
}

// RedisKeyOrDefault returns the Redis hash key holding the session.
func (c Config) RedisKeyOrDefault() string {
	if c.Session.RedisKey != "" {
		return c.Session.RedisKey
	}
	return defaultRedisKey
}

// KeyringServiceOrDefault returns the keychain service name.
func (c Config) KeyringServiceOrDefault() string {
	if c.Session.KeyringService != "" {
		return c.Session.KeyringService
	}
	return defaultKeyringService
}

// KeyringUserOrDefault returns the keychain account name.
func (c Config) KeyringUserOrDefault() string {
	if c.Session.KeyringUser != "" {
		return c.Session.KeyringUser
	}
	return defaultKeyringUser
}

// Validate reports configuration errors that would make the client unusable.
func (c Config) Validate() error {
	var errs []error
	if c.Server.BaseURL == "" {
		errs = append(errs, errors.New("server.base_url is required"))
	}
	if c.Server.Timeout.Duration < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}
	if c.Retry.BaseDelay.Duration < 0 {
		errs = append(errs, errors.New("retry.base_delay must not be negative"))
	}
	if c.Client.RateLimit < 0 {
		errs = append(errs, errors.New("client.rate_limit must not be negative"))
	}
	switch c.SessionStoreOrDefault() {
	case "memory", "file", "keyring":
	case "redis":
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session.store %q", c.Session.Store))
	}
	return errors.Join(errs...)
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - QMSDECK_BASE_URL      overrides server.base_url
//   - QMSDECK_SESSION_STORE overrides session.store
//   - QMSDECK_REDIS_ADDR    overrides session.redis_addr
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the qmsdeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/qmsdeck/config.toml"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QMSDECK_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("QMSDECK_SESSION_STORE"); v != "" {
		cfg.Session.Store = v
	}
	if v := os.Getenv("QMSDECK_REDIS_ADDR"); v != "" {
		cfg.Session.RedisAddr = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	return WriteTOML(path, cfg)
}

// WriteTOML encodes v as TOML into path with 0600 permissions under a 0700 directory.
// The session file store shares this with Save.
func WriteTOML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(v); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
