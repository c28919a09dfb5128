// Package config loads sweeper settings from the environment.
//
// Each section is a nested struct whose name becomes the variable prefix:
// Upload.MaxFiles is read from UPLOAD_MAX_FILES. Defaults live in struct
// tags and the whole config is validated once on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Workspace WorkspaceConfig
	Chart     ChartConfig
	Rate      RateLimitConfig `envconfig:"RATE_LIMIT"`
	Security  SecurityConfig
	Logging   LoggingConfig `envconfig:"LOG"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `split_words:"true" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `split_words:"true" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `split_words:"true" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `split_words:"true" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `split_words:"true" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `split_words:"true" default:"60s"`
}

// UploadConfig holds file upload and pipeline run settings.
type UploadConfig struct {
	// MaxTotalSize caps the whole multipart upload request, all files together, in bytes (default: 50MB)
	MaxTotalSize int64 `split_words:"true" default:"52428800"`

	// MaxFiles is the maximum number of files accepted in one upload (default: 20)
	MaxFiles int `split_words:"true" default:"20"`

	// MaxConcurrent is the maximum number of pipeline runs executing at once (default: 4)
	MaxConcurrent int `split_words:"true" default:"4"`

	// MaxWaitTime is how long a request waits for a run slot (default: 15s)
	MaxWaitTime time.Duration `split_words:"true" default:"15s"`

	// PreviewRows is the number of rows shown in a file preview (default: 5)
	PreviewRows int `split_words:"true" default:"5"`
}

// WorkspaceConfig holds settings for the in-memory upload workspaces.
type WorkspaceConfig struct {
	// TTL is how long an idle workspace is kept (default: 30m)
	TTL time.Duration `split_words:"true" default:"30m"`

	// SweepInterval is how often expired workspaces are evicted (default: 1m)
	SweepInterval time.Duration `split_words:"true" default:"1m"`

	// Max is the maximum number of live workspaces (default: 100)
	Max int `split_words:"true" default:"100"`
}

// ChartConfig holds bar chart rendering settings.
type ChartConfig struct {
	// Width is the chart width in points (default: 640)
	Width int `split_words:"true" default:"640"`

	// Height is the chart height in points (default: 360)
	Height int `split_words:"true" default:"360"`

	// MaxBars caps the number of rows drawn per series (default: 200)
	MaxBars int `split_words:"true" default:"200"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `split_words:"true" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 120)
	RequestsPerMinute int `split_words:"true" default:"120"`

	// Burst is the number of requests allowed in a burst (default: 20)
	Burst int `split_words:"true" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs.
	// Read from SECURITY_TRUSTED_PROXIES, falling back to TRUSTED_PROXIES.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `split_words:"true" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `split_words:"true" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `split_words:"true" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}
