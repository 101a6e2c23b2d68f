// Package config loads the catslide configuration from file, environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/cat-slideshow/pkg/carousel"
	"github.com/Sternrassler/cat-slideshow/pkg/client"
	"github.com/Sternrassler/cat-slideshow/pkg/logging"
	"github.com/Sternrassler/cat-slideshow/pkg/pagination"
	"github.com/Sternrassler/cat-slideshow/pkg/prefetch"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CATSLIDE_API_KEY.
const EnvPrefix = "CATSLIDE"

// Prefs backends.
const (
	PrefsBolt   = "bolt"
	PrefsRedis  = "redis"
	PrefsMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Carousel CarouselConfig `mapstructure:"carousel"`
	Prefetch PrefetchConfig `mapstructure:"prefetch"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Prefs    PrefsConfig    `mapstructure:"prefs"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
}

// APIConfig configures the upstream API client.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Key            string        `mapstructure:"key"`
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	DelayMillis    int           `mapstructure:"delay_ms"` // artificial latency for demos
}

// CarouselConfig configures paging.
type CarouselConfig struct {
	PageSize    int           `mapstructure:"page_size"`
	Lookahead   int           `mapstructure:"lookahead"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
}

// PrefetchConfig configures image prefetching.
type PrefetchConfig struct {
	Window       int           `mapstructure:"window"`
	MaxInFlight  int           `mapstructure:"max_in_flight"`
	Retry        bool          `mapstructure:"retry"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	ImageTimeout time.Duration `mapstructure:"image_timeout"`
}

// RedisConfig configures the optional Redis server. An empty Addr disables
// Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PrefsConfig selects where preferences are persisted.
type PrefsConfig struct {
	Backend string `mapstructure:"backend"` // bolt, redis or memory
	Path    string `mapstructure:"path"`    // bolt database file
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ServerConfig configures the HTTP server of "catslide serve".
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	api := client.DefaultConfig("")
	page := pagination.DefaultConfig()
	car := carousel.DefaultConfig()
	pre := prefetch.DefaultConfig()

	return &Config{
		API: APIConfig{
			BaseURL:        api.BaseURL,
			UserAgent:      api.UserAgent,
			Timeout:        api.Timeout,
			MaxRetries:     api.MaxRetries,
			InitialBackoff: api.InitialBackoff,
			CacheTTL:       api.CacheTTL,
		},
		Carousel: CarouselConfig{
			PageSize:    car.PageSize,
			Lookahead:   car.LookaheadDistance,
			PageTimeout: page.Timeout,
		},
		Prefetch: PrefetchConfig{
			Window:       pre.Window,
			MaxInFlight:  pre.MaxInFlight,
			Retry:        pre.Retry,
			RetryBackoff: pre.RetryBackoff,
			ImageTimeout: 30 * time.Second,
		},
		Prefs: PrefsConfig{
			Backend: PrefsBolt,
			Path:    filepath.Join(defaultDataPath(), "prefs.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// defaultConfigPath returns the directory searched for catslide.yaml.
func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "catslide")
}

// defaultDataPath returns the directory of the preferences database.
func defaultDataPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "catslide")
}

// SetDefaults registers every key with its default so environment variables
// and flags can override keys that are absent from the file.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.key", d.API.Key)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("api.initial_backoff", d.API.InitialBackoff)
	v.SetDefault("api.cache_ttl", d.API.CacheTTL)
	v.SetDefault("api.delay_ms", d.API.DelayMillis)

	v.SetDefault("carousel.page_size", d.Carousel.PageSize)
	v.SetDefault("carousel.lookahead", d.Carousel.Lookahead)
	v.SetDefault("carousel.page_timeout", d.Carousel.PageTimeout)

	v.SetDefault("prefetch.window", d.Prefetch.Window)
	v.SetDefault("prefetch.max_in_flight", d.Prefetch.MaxInFlight)
	v.SetDefault("prefetch.retry", d.Prefetch.Retry)
	v.SetDefault("prefetch.retry_backoff", d.Prefetch.RetryBackoff)
	v.SetDefault("prefetch.image_timeout", d.Prefetch.ImageTimeout)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("prefs.backend", d.Prefs.Backend)
	v.SetDefault("prefs.path", d.Prefs.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", d.Logging.Pretty)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
}

// Load reads the configuration into a fresh Config. path names an explicit
// config file; when empty, catslide.yaml is looked up in
// $HOME/.config/catslide and the working directory and may be missing.
// Environment variables (CATSLIDE_API_KEY, CATSLIDE_REDIS_ADDR, ...) override
// the file, and flags bound to v override both.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("catslide")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the components reject.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.UserAgent == "" {
		errs = append(errs, errors.New("api.user_agent is required"))
	}
	if c.API.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("api.max_retries must be >= 1 (got %d)", c.API.MaxRetries))
	}
	if c.API.DelayMillis < 0 {
		errs = append(errs, fmt.Errorf("api.delay_ms must be >= 0 (got %d)", c.API.DelayMillis))
	}
	if c.Carousel.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("carousel.page_size must be > 0 (got %d)", c.Carousel.PageSize))
	}
	if c.Carousel.Lookahead < 0 {
		errs = append(errs, fmt.Errorf("carousel.lookahead must be >= 0 (got %d)", c.Carousel.Lookahead))
	}
	if c.Prefetch.Window <= 0 {
		errs = append(errs, fmt.Errorf("prefetch.window must be > 0 (got %d)", c.Prefetch.Window))
	}
	if c.Prefetch.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("prefetch.max_in_flight must be > 0 (got %d)", c.Prefetch.MaxInFlight))
	}

	switch c.Prefs.Backend {
	case PrefsBolt:
		if c.Prefs.Path == "" {
			errs = append(errs, errors.New("prefs.path is required for the bolt backend"))
		}
	case PrefsRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis prefs backend"))
		}
	case PrefsMemory:
	default:
		errs = append(errs, fmt.Errorf("prefs.backend must be one of bolt, redis, memory (got %q)", c.Prefs.Backend))
	}

	return errors.Join(errs...)
}

// ClientConfig returns the API client configuration without Redis.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:        c.API.BaseURL,
		APIKey:         c.API.Key,
		UserAgent:      c.API.UserAgent,
		CacheTTL:       c.API.CacheTTL,
		MaxRetries:     c.API.MaxRetries,
		InitialBackoff: c.API.InitialBackoff,
		Timeout:        c.API.Timeout,
		DelayMillis:    c.API.DelayMillis,
	}
}

// SessionOptions returns the carousel session options.
func (c *Config) SessionOptions() carousel.Options {
	return carousel.Options{
		Carousel: carousel.Config{
			PageSize:          c.Carousel.PageSize,
			LookaheadDistance: c.Carousel.Lookahead,
		},
		Fetch: pagination.Config{
			PageSize: c.Carousel.PageSize,
			Timeout:  c.Carousel.PageTimeout,
		},
		Prefetch: prefetch.Config{
			Window:       c.Prefetch.Window,
			MaxInFlight:  c.Prefetch.MaxInFlight,
			Retry:        c.Prefetch.Retry,
			RetryBackoff: c.Prefetch.RetryBackoff,
		},
	}
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	return cfg
}
