// Package config loads and validates the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-threatgraph/pkg/validation"
)

// Config is the root server configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Auth      AuthConfig       `yaml:"auth"`
	Logging   LoggingConfig    `yaml:"logging"`
	Lookup    LookupConfig     `yaml:"lookup"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures API authentication. When disabled, all endpoints
// are open; intended for local analysis sessions only.
type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LookupConfig configures the shared provider behavior
type LookupConfig struct {
	CacheSize int     `yaml:"cache_size"`
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// ProviderConfig configures one REST threat-intel provider
type ProviderConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	// APIKey supports ${ENV_VAR} expansion so secrets stay out of the file
	APIKey     string          `yaml:"api_key"`
	AuthHeader string          `yaml:"auth_header"`
	AuthScheme string          `yaml:"auth_scheme"`
	Timeout    time.Duration   `yaml:"timeout"`
	Requests   []RequestConfig `yaml:"requests"`
}

// RequestConfig configures one (IoC type, subtype) request definition
type RequestConfig struct {
	IocType     string            `yaml:"ioc_type"`
	Subtype     string            `yaml:"subtype"`
	Path        string            `yaml:"path"`
	Method      string            `yaml:"method"`
	Params      map[string]string `yaml:"params"`
	Description string            `yaml:"description"`
}

// Default returns a configuration suitable for local use
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, expands, and validates a YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	for i := range cfg.Providers {
		cfg.Providers[i].APIKey = os.ExpandEnv(cfg.Providers[i].APIKey)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Server.Host = validation.DefaultOr(c.Server.Host, "0.0.0.0")
	c.Server.Port = validation.DefaultOr(c.Server.Port, 8090)
	c.Server.ReadTimeout = validation.DefaultOrDuration(c.Server.ReadTimeout, 15*time.Second)
	c.Server.WriteTimeout = validation.DefaultOrDuration(c.Server.WriteTimeout, 30*time.Second)
	c.Server.ShutdownTimeout = validation.DefaultOrDuration(c.Server.ShutdownTimeout, 10*time.Second)
	c.Auth.TokenTTL = validation.DefaultOrDuration(c.Auth.TokenTTL, time.Hour)
	c.Logging.Level = validation.DefaultOr(c.Logging.Level, "info")
	c.Lookup.CacheSize = validation.DefaultOr(c.Lookup.CacheSize, 256)
	c.Lookup.Burst = validation.DefaultOr(c.Lookup.Burst, 4)
	for i := range c.Providers {
		c.Providers[i].Timeout = validation.DefaultOrDuration(c.Providers[i].Timeout, 30*time.Second)
	}
}

// Validate implements validation.Validatable
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("Config").
		RangeInt("Server.Port", c.Server.Port, 1, 65535).
		MinDuration("Server.ReadTimeout", c.Server.ReadTimeout, time.Second).
		OneOf("Logging.Level", c.Logging.Level, []string{"debug", "info", "warn", "error"}).
		Positive("Lookup.CacheSize", c.Lookup.CacheSize).
		NonNegativeFloat("Lookup.RateLimit", c.Lookup.RateLimit).
		When(c.Auth.Enabled, func(cv *validation.ConfigValidator) {
			cv.Custom("Auth.JWTSecret", func() error {
				if len(c.Auth.JWTSecret) < 32 {
					return errors.New("JWT secret must be at least 32 characters")
				}
				return nil
			})
		})

	for i, provider := range c.Providers {
		name := fmt.Sprintf("Providers[%d]", i)
		cv.Required(name+".Name", provider.Name).
			Required(name+".BaseURL", provider.BaseURL).
			Custom(name+".Requests", func() error {
				if len(provider.Requests) == 0 {
					return errors.New("provider has no request definitions")
				}
				return nil
			})
	}

	return cv.Validate()
}
