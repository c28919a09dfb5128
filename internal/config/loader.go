package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Load reads the configuration from the environment, applies tag defaults
// and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	cfg.Security.TrustedProxies = splitList(cfg.Security.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for main packages that cannot continue without config.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// splitList trims entries and drops empty ones. envconfig splits on commas
// but keeps surrounding whitespace.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// problems collects validation failures so Validate can report them all.
type problems []string

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var p problems

	s := c.Server
	p.check(s.Port > 0 && s.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", s.Port)
	p.check(s.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	p.check(s.WriteTimeout >= 0, "SERVER_WRITE_TIMEOUT must be non-negative")
	p.check(s.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	p.check(s.RequestTimeout > 0, "SERVER_REQUEST_TIMEOUT must be positive")

	u := c.Upload
	p.check(u.MaxTotalSize > 0, "UPLOAD_MAX_TOTAL_SIZE must be positive")
	p.check(u.MaxFiles > 0, "UPLOAD_MAX_FILES must be positive")
	p.check(u.MaxConcurrent > 0, "UPLOAD_MAX_CONCURRENT must be positive")
	p.check(u.MaxWaitTime > 0, "UPLOAD_MAX_WAIT_TIME must be positive")
	p.check(u.PreviewRows > 0, "UPLOAD_PREVIEW_ROWS must be positive")

	w := c.Workspace
	p.check(w.TTL > 0, "WORKSPACE_TTL must be positive")
	p.check(w.SweepInterval > 0, "WORKSPACE_SWEEP_INTERVAL must be positive")
	p.check(w.Max > 0, "WORKSPACE_MAX must be positive")

	ch := c.Chart
	p.check(ch.Width > 0 && ch.Height > 0,
		"CHART_WIDTH (%d) and CHART_HEIGHT (%d) must be positive", ch.Width, ch.Height)
	p.check(ch.MaxBars > 0, "CHART_MAX_BARS must be positive")

	if c.Rate.Enabled {
		p.check(c.Rate.RequestsPerMinute > 0,
			"RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		p.check(c.Rate.Burst > 0, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.check(false, "LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		p.check(false, "LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	return p.err()
}

// String summarises the settings worth logging at startup.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: {Host: %q, Port: %d}, Upload: {MaxTotalSize: %d, MaxFiles: %d, MaxConcurrent: %d}, "+
			"Workspace: {TTL: %s, Max: %d}, Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
			"Logging: {Level: %q, Format: %q}}",
		c.Server.Host, c.Server.Port,
		c.Upload.MaxTotalSize, c.Upload.MaxFiles, c.Upload.MaxConcurrent,
		c.Workspace.TTL, c.Workspace.Max,
		c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Logging.Level, c.Logging.Format,
	)
}
