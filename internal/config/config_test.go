package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[upstream]
api_url = "https://eu.i.posthog.com"
asset_url = "https://eu-assets.i.posthog.com"
timeout_seconds = 60
idle_connections = 50
insecure_skip_verify = true

[cache]
backend = "memory"
ttl_minutes = 30

[cors]
enabled = true
base_domain = "example.com"

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Upstream.APIURL != "https://eu.i.posthog.com" {
		t.Errorf("Upstream.APIURL = %q, want %q", cfg.Upstream.APIURL, "https://eu.i.posthog.com")
	}
	if cfg.Upstream.AssetURL != "https://eu-assets.i.posthog.com" {
		t.Errorf("Upstream.AssetURL = %q, want %q", cfg.Upstream.AssetURL, "https://eu-assets.i.posthog.com")
	}
	if !cfg.Upstream.InsecureSkipVerify {
		t.Error("Upstream.InsecureSkipVerify should be true")
	}
	if cfg.Cache.TTL() != 30*time.Minute {
		t.Errorf("Cache.TTL() = %v, want %v", cfg.Cache.TTL(), 30*time.Minute)
	}
	if cfg.CORS.BaseDomain != "example.com" {
		t.Errorf("CORS.BaseDomain = %q, want %q", cfg.CORS.BaseDomain, "example.com")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(cliWithPath(writeConfig(t, "")))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8000)
	}
	if cfg.Upstream.APIURL != DefaultAPIURL {
		t.Errorf("Upstream.APIURL = %q, want %q", cfg.Upstream.APIURL, DefaultAPIURL)
	}
	if cfg.Upstream.AssetURL != DefaultAssetURL {
		t.Errorf("Upstream.AssetURL = %q, want %q", cfg.Upstream.AssetURL, DefaultAssetURL)
	}
	if cfg.Upstream.TimeoutSeconds != 30 {
		t.Errorf("Upstream.TimeoutSeconds = %d, want %d", cfg.Upstream.TimeoutSeconds, 30)
	}
	if cfg.Upstream.InsecureSkipVerify {
		t.Error("Upstream.InsecureSkipVerify should default to false")
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, "memory")
	}
	if cfg.Cache.TTL() != 60*time.Minute {
		t.Errorf("Cache.TTL() = %v, want %v", cfg.Cache.TTL(), 60*time.Minute)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 8000

[log]
level = "info"
`)

	cli := &CLI{Config: path, Host: "127.0.0.1", Port: 9999, LogLevel: "debug"}
	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9999)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "non-https api url",
			data: `
[upstream]
api_url = "http://us.i.posthog.com"
`,
			wantErr: "must use HTTPS",
		},
		{
			name: "non-https asset url",
			data: `
[upstream]
asset_url = "http://us-assets.i.posthog.com"
`,
			wantErr: "must use HTTPS",
		},
		{
			name: "bad port",
			data: `
[server]
port = 70000
`,
			wantErr: "server.port",
		},
		{
			name: "negative ttl",
			data: `
[cache]
ttl_minutes = -1
`,
			wantErr: "cache.ttl_minutes",
		},
		{
			name: "unknown cache backend",
			data: `
[cache]
backend = "memcached"
`,
			wantErr: "cache.backend",
		},
		{
			name: "redis backend without addr",
			data: `
[cache]
backend = "redis"
`,
			wantErr: "cache.redis.addr",
		},
		{
			name: "cors without base domain",
			data: `
[cors]
enabled = true
`,
			wantErr: "cors.base_domain",
		},
		{
			name: "bad log level",
			data: `
[log]
level = "verbose"
`,
			wantErr: "log.level",
		},
		{
			name: "rate limit without rps",
			data: `
[server.rate_limit]
enabled = true
`,
			wantErr: "requests_per_second",
		},
		{
			name: "metrics path conflicts with health route",
			data: `
[metrics]
enabled = true
path = "/healthz"
`,
			wantErr: "conflicts with reserved route",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(cliWithPath(writeConfig(t, tt.data)))
			if err == nil {
				t.Fatal("Load() should fail validation")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(cliWithPath(filepath.Join(t.TempDir(), "missing.toml")))
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(existing, []byte(""), 0o600); err != nil {
		t.Fatal(err)
	}

	got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml"), existing})
	if got != existing {
		t.Errorf("findConfigInPaths() = %q, want %q", got, existing)
	}

	if got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml")}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}

func TestAddr(t *testing.T) {
	s := &ServerConfig{Host: "127.0.0.1", Port: 8000}
	if got := s.Addr(); got != "127.0.0.1:8000" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:8000")
	}
}
