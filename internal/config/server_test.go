package config

import (
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.RedisChannelPrefix != "pokerclub" {
		t.Fatalf("RedisChannelPrefix = %q", cfg.RedisChannelPrefix)
	}
	if len(cfg.DemoTables) != 1 || cfg.DemoTables[0] != "demo" {
		t.Fatalf("DemoTables = %v, want [demo]", cfg.DemoTables)
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/club?sslmode=disable")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DEMO_TABLES", "main,side")
	t.Setenv("DEMO_BOTS", "2")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.PostgresDSN == "" || cfg.RedisDB != 3 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if len(cfg.DemoTables) != 2 || cfg.DemoTables[1] != "side" {
		t.Fatalf("DemoTables = %v", cfg.DemoTables)
	}
	if cfg.DemoBots != 2 {
		t.Fatalf("DemoBots = %d, want 2", cfg.DemoBots)
	}
}

func TestLoadServerPushSettings(t *testing.T) {
	t.Setenv("PUSH_ENABLED", "true")
	t.Setenv("PUSH_RETRY_BASE", "2s")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if !cfg.PushEnabled || cfg.PushRetryBase != 2*time.Second {
		t.Fatalf("unexpected push config: enabled=%v base=%s", cfg.PushEnabled, cfg.PushRetryBase)
	}
	if cfg.PushWorkers != 2 || cfg.PushRetryMax != 3 {
		t.Fatalf("unexpected push defaults: workers=%d retries=%d", cfg.PushWorkers, cfg.PushRetryMax)
	}
}
