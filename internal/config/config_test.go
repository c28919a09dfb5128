package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080, ShutdownTimeout: time.Second, RequestTimeout: time.Minute},
		Upload:    UploadConfig{MaxTotalSize: 1, MaxFiles: 1, MaxConcurrent: 1, MaxWaitTime: time.Second, PreviewRows: 5},
		Workspace: WorkspaceConfig{TTL: time.Minute, SweepInterval: time.Second, Max: 1},
		Chart:     ChartConfig{Width: 100, Height: 100, MaxBars: 10},
		Rate:      RateLimitConfig{Enabled: true, RequestsPerMinute: 100, Burst: 10},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Upload.MaxConcurrent != 4 {
		t.Errorf("Upload.MaxConcurrent = %d, want %d", cfg.Upload.MaxConcurrent, 4)
	}
	if cfg.Upload.MaxTotalSize != 52428800 {
		t.Errorf("Upload.MaxTotalSize = %d, want %d", cfg.Upload.MaxTotalSize, 52428800)
	}
	if cfg.Upload.PreviewRows != 5 {
		t.Errorf("Upload.PreviewRows = %d, want %d", cfg.Upload.PreviewRows, 5)
	}
	if cfg.Workspace.TTL != 30*time.Minute {
		t.Errorf("Workspace.TTL = %v, want %v", cfg.Workspace.TTL, 30*time.Minute)
	}
	if cfg.Rate.RequestsPerMinute != 120 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 120)
	}
	if !cfg.Security.EnableCSP {
		t.Error("Security.EnableCSP should default to true")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPLOAD_MAX_CONCURRENT", "10")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CHART_WIDTH", "800")
	t.Setenv("UPLOAD_MAX_TOTAL_SIZE", "1048576")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Upload.MaxConcurrent != 10 {
		t.Errorf("Upload.MaxConcurrent = %d, want %d", cfg.Upload.MaxConcurrent, 10)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Chart.Width != 800 {
		t.Errorf("Chart.Width = %d, want %d", cfg.Chart.Width, 800)
	}
	if cfg.Upload.MaxTotalSize != 1048576 {
		t.Errorf("Upload.MaxTotalSize = %d, want %d", cfg.Upload.MaxTotalSize, 1048576)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for non-numeric SERVER_PORT")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("error should mention SERVER_PORT: %v", err)
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "45s")
	t.Setenv("UPLOAD_MAX_WAIT_TIME", "1m30s")
	t.Setenv("WORKSPACE_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Upload.MaxWaitTime != 90*time.Second {
		t.Errorf("Upload.MaxWaitTime = %v, want %v", cfg.Upload.MaxWaitTime, 90*time.Second)
	}
	if cfg.Workspace.TTL != 2*time.Hour {
		t.Errorf("Workspace.TTL = %v, want %v", cfg.Workspace.TTL, 2*time.Hour)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 99999 },
			wantErr: "SERVER_PORT",
		},
		{
			name:    "zero upload size",
			mutate:  func(c *Config) { c.Upload.MaxTotalSize = 0 },
			wantErr: "UPLOAD_MAX_TOTAL_SIZE",
		},
		{
			name:    "zero preview rows",
			mutate:  func(c *Config) { c.Upload.PreviewRows = 0 },
			wantErr: "UPLOAD_PREVIEW_ROWS",
		},
		{
			name:    "zero workspace ttl",
			mutate:  func(c *Config) { c.Workspace.TTL = 0 },
			wantErr: "WORKSPACE_TTL",
		},
		{
			name:    "negative chart size",
			mutate:  func(c *Config) { c.Chart.Height = -1 },
			wantErr: "CHART_HEIGHT",
		},
		{
			name:    "rate limit without burst",
			mutate:  func(c *Config) { c.Rate.Burst = 0 },
			wantErr: "RATE_LIMIT_BURST",
		},
		{
			name: "disabled rate limit ignores burst",
			mutate: func(c *Config) {
				c.Rate.Enabled = false
				c.Rate.Burst = 0
			},
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Upload.MaxFiles = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "UPLOAD_MAX_FILES"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"localhost", 443, "localhost:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		got := cfg.Addr()
		if got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString(t *testing.T) {
	cfg := validConfig()
	str := cfg.String()
	if !strings.Contains(str, "Port: 8080") {
		t.Errorf("String() should include the port: %s", str)
	}
	if !strings.Contains(str, `Level: "info"`) {
		t.Errorf("String() should include the log level: %s", str)
	}
}

func TestLoad_PrefixedTrustedProxiesWins(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")
	t.Setenv("SECURITY_TRUSTED_PROXIES", "192.168.0.0/16,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Security.TrustedProxies) != 1 || cfg.Security.TrustedProxies[0] != "192.168.0.0/16" {
		t.Errorf("TrustedProxies = %v, want [192.168.0.0/16]", cfg.Security.TrustedProxies)
	}
}

func TestLoad_SectionPrefixes(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SECURITY_ENABLE_CSP", "false")
	t.Setenv("WORKSPACE_MAX", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled should be false")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Security.EnableCSP {
		t.Error("Security.EnableCSP should be false")
	}
	if cfg.Workspace.Max != 7 {
		t.Errorf("Workspace.Max = %d, want 7", cfg.Workspace.Max)
	}
}
