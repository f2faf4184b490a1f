package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
server:
  port: 8080
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Stooq.BaseURL != "https://stooq.com/q/d/l/" {
		t.Fatalf("stooq base url = %s", cfg.Stooq.BaseURL)
	}
	if cfg.Stooq.Suffix != ".us" {
		t.Fatalf("stooq suffix = %s", cfg.Stooq.Suffix)
	}
	if cfg.Optimizer.Annualization != 252 {
		t.Fatalf("annualization = %g", cfg.Optimizer.Annualization)
	}
	if cfg.Optimizer.FrontierPoints != 20 {
		t.Fatalf("frontier points = %d", cfg.Optimizer.FrontierPoints)
	}
	if cfg.Optimizer.LowerBound != 0 || cfg.Optimizer.UpperBound != 1 {
		t.Fatalf("bounds = [%g, %g]", cfg.Optimizer.LowerBound, cfg.Optimizer.UpperBound)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level = %s", cfg.Log.Level)
	}
}

func TestLoadValidates(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing environment", `
server:
  port: 8080
`},
		{"inverted bounds", `
environment: test
optimizer:
  lower_bound: 0.9
  upper_bound: 0.1
`},
		{"kafka without brokers", `
environment: test
kafka:
  enabled: true
`},
		{"queue without redis", `
environment: test
queue:
  enabled: true
`},
		{"clickhouse without host", `
environment: test
clickhouse:
  enabled: true
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: test
server:
  port: 8080
cache:
  redis:
    addr: localhost:6379
`)
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("STOOQ_BASE_URL", "https://example.test/q/d/l/")

	cfg, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9091 {
		t.Fatalf("port = %d, want 9091", cfg.Server.Port)
	}
	if cfg.Cache.Redis.Addr != "redis:6380" {
		t.Fatalf("redis addr = %s", cfg.Cache.Redis.Addr)
	}
	if cfg.Stooq.BaseURL != "https://example.test/q/d/l/" {
		t.Fatalf("stooq base url = %s", cfg.Stooq.BaseURL)
	}
}
