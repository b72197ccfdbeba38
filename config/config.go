// Package config loads the deployment configuration of a memoizer: code
// defaults, then an optional YAML file, then MEMOIZE_* environment
// variables.
package config

import (
	"context"
	"net/url"
	"os"

	"github.com/agentuity/go-memoize/cache"
	"github.com/agentuity/go-memoize/chunk"
	"github.com/agentuity/go-memoize/keys"
	"github.com/agentuity/go-memoize/logger"
	"github.com/agentuity/go-memoize/memoize"
	"github.com/agentuity/go-memoize/serial"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Backend is a cache URL understood by cache.Open.
	Backend    string `yaml:"backend" env:"MEMOIZE_BACKEND"`
	SiteDomain string `yaml:"site_domain" env:"MEMOIZE_SITE_DOMAIN"`
	SiteRoot   string `yaml:"site_root" env:"MEMOIZE_SITE_ROOT"`

	MaxKeyLength      int      `yaml:"max_key_length" env:"MEMOIZE_MAX_KEY_LENGTH"`
	ChunkSize         int      `yaml:"chunk_size" env:"MEMOIZE_CHUNK_SIZE"`
	DefaultExpiration Duration `yaml:"default_expiration" env:"MEMOIZE_DEFAULT_EXPIRATION"`
	QueryTimeout      Duration `yaml:"query_timeout" env:"MEMOIZE_QUERY_TIMEOUT"`
	SingleFlight      bool     `yaml:"single_flight" env:"MEMOIZE_SINGLE_FLIGHT"`
	// Breaker wraps the backend in a circuit breaker.
	Breaker  bool   `yaml:"breaker" env:"MEMOIZE_BREAKER"`
	LogLevel string `yaml:"log_level" env:"MEMOIZE_LOG_LEVEL"`

	StaticRoot   string   `yaml:"static_root" env:"MEMOIZE_STATIC_ROOT"`
	MediaDirs    []string `yaml:"media_dirs" env:"MEMOIZE_MEDIA_DIRS" envSeparator:","`
	TemplateDirs []string `yaml:"template_dirs" env:"MEMOIZE_TEMPLATE_DIRS" envSeparator:","`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Backend:           "memory://",
		MaxKeyLength:      keys.DefaultMaxLength,
		ChunkSize:         chunk.DefaultSize,
		DefaultExpiration: Duration(memoize.DefaultExpiration),
		QueryTimeout:      Duration(cache.DefaultQueryTimeout),
		LogLevel:          "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path, when path
// is not empty, and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Backend == "" {
		return errors.New("config: backend is required")
	}
	if c.MaxKeyLength <= 0 {
		return errors.Newf("config: max_key_length must be positive, got %d", c.MaxKeyLength)
	}
	if c.ChunkSize <= 0 {
		return errors.Newf("config: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.DefaultExpiration < 0 || c.QueryTimeout < 0 {
		return errors.New("config: durations must not be negative")
	}
	if c.SiteRoot != "" && c.SiteDomain == "" {
		return errors.New("config: site_root requires site_domain")
	}
	if c.keyLength() <= 0 {
		return errors.Newf("config: backend key prefix leaves no room within max_key_length %d", c.MaxKeyLength)
	}
	return nil
}

// keyPrefix returns the "prefix" query parameter of the backend URL.
func (c *Config) keyPrefix() string {
	u, err := url.Parse(c.Backend)
	if err != nil {
		return ""
	}
	return u.Query().Get("prefix")
}

// keyLength is the normalized key limit left once the backend has prepended
// its "<prefix>:" to a key.
func (c *Config) keyLength() int {
	n := c.MaxKeyLength
	if n <= 0 {
		n = keys.DefaultMaxLength
	}
	if p := c.keyPrefix(); p != "" {
		n -= len(p) + 1
	}
	return n
}

// Memoize returns the orchestrator configuration. Without a site domain
// keys are not namespaced. The key limit shrinks by the length of any
// backend key prefix.
func (c *Config) Memoize() memoize.Config {
	cfg := memoize.Config{
		MaxKeyLength:      c.keyLength(),
		ChunkSize:         c.ChunkSize,
		DefaultExpiration: c.DefaultExpiration.Duration(),
		SingleFlight:      c.SingleFlight,
	}
	if c.SiteDomain != "" {
		cfg.Namespace = keys.Site(c.SiteDomain, c.SiteRoot)
	}
	return cfg
}

// Open connects to the configured backend.
func (c *Config) Open(ctx context.Context) (cache.Backend, error) {
	var opts []cache.Option
	if c.QueryTimeout > 0 {
		opts = append(opts, cache.WithQueryTimeout(c.QueryTimeout.Duration()))
	}
	backend, err := cache.Open(ctx, c.Backend, opts...)
	if err != nil {
		return nil, err
	}
	if c.Breaker {
		backend = cache.NewBreaker(backend, cache.DefaultBreakerConfig("memoize"))
	}
	return backend, nil
}

func (c *Config) Logger() logger.Logger {
	return logger.NewConsoleLogger(logger.ParseLevel(c.LogLevel))
}

// Serials returns the asset serial set for the configured directories.
func (c *Config) Serials() *serial.Set {
	return &serial.Set{
		StaticRoot:   c.StaticRoot,
		MediaDirs:    c.MediaDirs,
		TemplateDirs: c.TemplateDirs,
	}
}

// New opens the backend and returns a Memoizer over it logging to log, or
// to the configured console logger when log is nil. The caller closes the
// backend.
func (c *Config) New(ctx context.Context, log logger.Logger, opts ...memoize.Option) (*memoize.Memoizer, cache.Backend, error) {
	backend, err := c.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = c.Logger()
	}
	if u, err := url.Parse(c.Backend); err == nil {
		log = logger.WithKV(log, "backend", u.Scheme)
	}
	opts = append([]memoize.Option{memoize.WithLogger(log)}, opts...)
	return memoize.New(backend, c.Memoize(), opts...), backend, nil
}
