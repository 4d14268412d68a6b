package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("COMPLAINT_STRICT_TRANSITIONS", "")
	t.Setenv("ASSIGNMENT_ENFORCE_CAPACITY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Errorf("port = %s", cfg.App.Port)
	}
	if cfg.Auth.AccessTokenTTLMinutes != 1440 {
		t.Errorf("token ttl = %d, want 24h", cfg.Auth.AccessTokenTTLMinutes)
	}
	if !cfg.Complaints.StrictTransitions {
		t.Error("strict transitions should default on")
	}
	if cfg.Complaints.EnforceCapacity {
		t.Error("capacity enforcement should default off")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("COMPLAINT_STRICT_TRANSITIONS", "false")
	t.Setenv("ESCALATION_AFTER_HOURS", "12")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.App.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("addr = %s", got)
	}
	if cfg.Complaints.StrictTransitions {
		t.Error("expected permissive transitions")
	}
	if got := cfg.Escalation.After(); got != 12*time.Hour {
		t.Errorf("after = %s", got)
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Errorf("bad int should fall back, got %d", cfg.Postgres.MaxConns)
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid REDIS_DB")
	}
}

func TestDurationsFallBack(t *testing.T) {
	var e EscalationConfig
	if e.Interval() != time.Minute {
		t.Errorf("interval = %s", e.Interval())
	}
	if e.LockTTL() != 5*time.Minute {
		t.Errorf("lock ttl = %s", e.LockTTL())
	}
	var a AppConfig
	if a.RequestTimeout() != 0 {
		t.Errorf("timeout = %s", a.RequestTimeout())
	}
}
