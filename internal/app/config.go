package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the catalog server configuration, loadable from environment
// variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	Demo      bool   `default:"false" usage:"Serve the built-in demo catalog instead of the remote API"`
	Upstream  UpstreamConfig
	Health    HealthConfig
	Graceful  GracefulConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins" flag:"cors-origins"`
}

// RateLimitConfig bounds load commands per client.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Load commands allowed per client per window" flag:"rate-limit-max"`
	Window time.Duration `default:"1m" usage:"Rate limit window" flag:"rate-limit-window"`
}

// UpstreamConfig describes the remote catalog API.
type UpstreamConfig struct {
	BaseURL   string        `default:"https://dummyjson.com/" usage:"Catalog API base URL" flag:"base-url"`
	Timeout   time.Duration `default:"10s" usage:"Per-request timeout for catalog API calls" flag:"timeout"`
	UserAgent string        `default:"catalog-browser/1.0" usage:"User-Agent sent to the catalog API" flag:"user-agent"`
}

// HealthConfig controls the probe loop.
type HealthConfig struct {
	Interval       time.Duration `default:"15s" usage:"Interval between health probes" flag:"health-interval"`
	ProbeTimeout   time.Duration `default:"5s"  usage:"Timeout of a single upstream probe" flag:"probe-timeout"`
	MaxGoroutines  int           `default:"10000" usage:"Liveness fails above this goroutine count" flag:"max-goroutines"`
	FailureStreak  int           `default:"3" usage:"Consecutive upstream failures before the service reports not ready" flag:"failure-streak"`
	RecoveryStreak int           `default:"1" usage:"Consecutive upstream successes before the service reports ready again" flag:"recovery-streak"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from flags, environment variables and YAML
// config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CATALOG",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/catalog/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT variable set by hosting platforms
// unless the address was configured explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if !c.Demo && c.Upstream.BaseURL == "" {
		return errors.New("upstream base URL is required unless demo mode is enabled")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.Errorf("upstream timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Health.Interval <= 0 {
		return errors.Errorf("health interval must be positive, got %s", c.Health.Interval)
	}
	if c.Health.ProbeTimeout <= 0 {
		return errors.Errorf("probe timeout must be positive, got %s", c.Health.ProbeTimeout)
	}
	if c.Graceful.ShutdownTimeout <= 0 {
		return errors.Errorf("shutdown timeout must be positive, got %s", c.Graceful.ShutdownTimeout)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.Errorf("rate limit needs a positive max and window, got %d per %s", c.RateLimit.Max, c.RateLimit.Window)
	}
	return nil
}
