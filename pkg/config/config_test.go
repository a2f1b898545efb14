package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEffectiveDefaults(t *testing.T) {
	eff, err := LoadEffective(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if eff.Addr != "0.0.0.0:8080" {
		t.Fatalf("default addr = %q", eff.Addr)
	}
	if eff.DBPath != "./.database" {
		t.Fatalf("default db path = %q", eff.DBPath)
	}
	cfg := eff.Config
	if cfg.Pagination.DefaultPageSize != DefaultPageSize || cfg.Pagination.MaxPageSize != DefaultMaxPageSize {
		t.Fatalf("pagination defaults not applied: %+v", cfg.Pagination)
	}
	if cfg.Messaging.PreviewMaxLen != DefaultPreviewMaxLen {
		t.Fatalf("preview default not applied: %d", cfg.Messaging.PreviewMaxLen)
	}
	if cfg.Sweeper.Cron != "0 2 * * *" {
		t.Fatalf("sweeper cron default not applied: %q", cfg.Sweeper.Cron)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: "127.0.0.1"
  port: 9191
storage:
  db_path: "/tmp/mdb"
pagination:
  default_page_size: 10
  max_page_size: 50
messaging:
  preview_max_len: 64
  secondary_write_timeout_ms: 250
sweeper:
  enabled: true
  cron: "30 3 * * *"
`
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	eff, err := LoadEffective(p)
	if err != nil {
		t.Fatalf("LoadEffective: %v", err)
	}
	if eff.Addr != "127.0.0.1:9191" {
		t.Fatalf("addr = %q", eff.Addr)
	}
	if eff.DBPath != "/tmp/mdb" {
		t.Fatalf("db path = %q", eff.DBPath)
	}
	cfg := eff.Config
	if cfg.Pagination.DefaultPageSize != 10 || cfg.Pagination.MaxPageSize != 50 {
		t.Fatalf("pagination = %+v", cfg.Pagination)
	}
	if cfg.Messaging.SecondaryWriteTimeoutMS != 250 {
		t.Fatalf("secondary timeout = %d", cfg.Messaging.SecondaryWriteTimeoutMS)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Cron != "30 3 * * *" {
		t.Fatalf("sweeper = %+v", cfg.Sweeper)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MESSENGERDB_ADDR", "10.0.0.5:7000")
	t.Setenv("MESSENGERDB_DB_PATH", "/data/mdb")
	t.Setenv("MESSENGERDB_DEFAULT_PAGE_SIZE", "5")
	t.Setenv("MESSENGERDB_MAX_PAGE_SIZE", "25")
	t.Setenv("MESSENGERDB_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MESSENGERDB_RATE_RPS", "12.5")
	t.Setenv("MESSENGERDB_RATE_BURST", "40")
	t.Setenv("MESSENGERDB_SWEEPER_CRON", "15 4 * * *")

	var cfg Config
	if !LoadEnvOverrides(&cfg) {
		t.Fatalf("env overrides not detected")
	}
	if cfg.Server.Address != "10.0.0.5" || cfg.Server.Port != 7000 {
		t.Fatalf("addr override = %+v", cfg.Server)
	}
	if cfg.Storage.DBPath != "/data/mdb" {
		t.Fatalf("db path override = %q", cfg.Storage.DBPath)
	}
	if cfg.Pagination.DefaultPageSize != 5 || cfg.Pagination.MaxPageSize != 25 {
		t.Fatalf("pagination override = %+v", cfg.Pagination)
	}
	if len(cfg.Security.CORS.AllowedOrigins) != 2 || cfg.Security.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("cors override = %+v", cfg.Security.CORS.AllowedOrigins)
	}
	if cfg.Security.RateLimit.RPS != 12.5 || cfg.Security.RateLimit.Burst != 40 {
		t.Fatalf("rate limit override = %+v", cfg.Security.RateLimit)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Cron != "15 4 * * *" {
		t.Fatalf("sweeper override = %+v", cfg.Sweeper)
	}
}

func TestDefaultPageSizeClampedToMax(t *testing.T) {
	cfg := &Config{}
	cfg.Pagination.DefaultPageSize = 500
	cfg.Pagination.MaxPageSize = 50
	applyDefaults(cfg)
	if cfg.Pagination.DefaultPageSize != 50 {
		t.Fatalf("default not clamped to max: %d", cfg.Pagination.DefaultPageSize)
	}
}

func TestRuntimeAccessors(t *testing.T) {
	SetRuntime(nil)
	if def, max := PageSizeDefaults(); def != DefaultPageSize || max != DefaultMaxPageSize {
		t.Fatalf("nil runtime defaults = %d, %d", def, max)
	}
	SetRuntime(&RuntimeConfig{
		DefaultPageSize:         7,
		MaxPageSize:             70,
		PreviewMaxLen:           32,
		SecondaryWriteTimeoutMS: 500,
	})
	t.Cleanup(func() { SetRuntime(nil) })
	if def, max := PageSizeDefaults(); def != 7 || max != 70 {
		t.Fatalf("runtime page sizes = %d, %d", def, max)
	}
	if PreviewMaxLen() != 32 {
		t.Fatalf("runtime preview = %d", PreviewMaxLen())
	}
	if SecondaryWriteTimeoutMS() != 500 {
		t.Fatalf("runtime secondary timeout = %d", SecondaryWriteTimeoutMS())
	}
}
