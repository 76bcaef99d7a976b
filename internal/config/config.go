// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config holding the defaults.
// - Load layers a YAML file and environment variables on top of them.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/okian/statscout/internal/domain/query"
)

// DefaultAPIBaseURL is the deployed offense backend.
const DefaultAPIBaseURL = "https://offense-backend-616432051288.us-central1.run.app"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the root of the similarity API.
	APIBaseURL string `koanf:"api_base_url"`

	// CoercionPolicy decides how blank stat fields are sent: omit or coerce.
	CoercionPolicy string `koanf:"coercion_policy"`

	// RequestTimeoutMS bounds each similarity call. 0 disables the timeout.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// UserAgent is sent on similarity calls. Empty keeps the client default.
	UserAgent string `koanf:"user_agent"`

	// SubmitGuard rejects a submission while another from the same handle is pending.
	SubmitGuard bool `koanf:"submit_guard"`

	// TraceEndpoint is an OTLP/HTTP endpoint URL. Empty disables export.
	TraceEndpoint string `koanf:"trace_endpoint"`

	// ServiceName is reported on traces.
	ServiceName string `koanf:"service_name"`

	// CORSAllowedOrigins lists origins allowed to call the JSON API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		APIBaseURL:         DefaultAPIBaseURL,
		CoercionPolicy:     string(query.PolicyOmit),
		RequestTimeoutMS:   0,
		SubmitGuard:        false,
		ServiceName:        "statscout",
		CORSAllowedOrigins: []string{"*"},
	}
}

// Policy returns the parsed coercion policy.
func (c *Config) Policy() query.Policy {
	p, err := query.ParsePolicy(c.CoercionPolicy)
	if err != nil {
		return query.PolicyOmit
	}
	return p
}

// RequestTimeout returns the similarity call timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api_base_url must be an absolute URL, got %q", ErrInvalidConfig, c.APIBaseURL)
	}
	if _, err := query.ParsePolicy(c.CoercionPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.RequestTimeoutMS < 0 {
		return fmt.Errorf("%w: request_timeout_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
