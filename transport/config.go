package transport

import (
	"net/url"
	"time"

	"github.com/kbukum/cloudbatch/resilience"
	"github.com/kbukum/cloudbatch/validation"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "cloudbatch"
)

// Config configures a transport Client.
type Config struct {
	// StorageURL is the base URL of the object-storage account.
	StorageURL string `yaml:"storage_url" mapstructure:"storage_url" validate:"required,url"`
	// CDNURL is the base URL of the CDN management API. Optional.
	CDNURL string `yaml:"cdn_url" mapstructure:"cdn_url" validate:"omitempty,url"`
	// Token is sent as X-Auth-Token on every request.
	Token string `yaml:"token" mapstructure:"token"`
	// Timeout bounds each individual request. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// UserAgent defaults to "cloudbatch".
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// Headers are added to every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// TLS configures the TLS client. Nil uses system defaults.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`
	// HTTP2 negotiates HTTP/2 over TLS when the server offers it.
	HTTP2 bool `yaml:"http2" mapstructure:"http2"`
	// RateLimit throttles request starts. A zero rate disables it.
	RateLimit resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RateLimit.Name == "" {
		c.RateLimit.Name = "transport"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	v := validation.New().
		Required("storage_url", c.StorageURL).
		Check(c.StorageURL == "" || isAbsoluteURL(c.StorageURL), "storage_url", "must be an absolute http(s) URL").
		Check(c.CDNURL == "" || isAbsoluteURL(c.CDNURL), "cdn_url", "must be an absolute http(s) URL").
		Check(c.Timeout > 0, "timeout", "must be positive").
		Check(c.RateLimit.Rate >= 0, "rate_limit.rate", "must be >= 0")
	if err := c.TLS.Validate(); err != nil {
		v.AddError("tls", err.Error())
	}
	for name, value := range c.Headers {
		if err := validateHeader(name, value); err != nil {
			v.AddError("headers", err.Error())
		}
	}
	return v.Validate()
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
