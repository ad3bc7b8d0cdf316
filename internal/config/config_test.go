package config

import (
	"testing"
	"time"
)

func setTenantEnv(t *testing.T, prefix, server, user, name, cid string) {
	t.Helper()
	t.Setenv(prefix+"_SERVER", server)
	t.Setenv(prefix+"_USER", user)
	t.Setenv(prefix+"_PASS", "secret")
	t.Setenv(prefix+"_NAME", name)
	t.Setenv(prefix+"_CID", cid)
}

func TestLoadTwoBrands(t *testing.T) {
	setTenantEnv(t, "TALRN", "b.example.com", "hire@b.example.com", "Talrn", "talrn_logo")
	setTenantEnv(t, "LEADERS", "t.example.com", "reach@t.example.com", "Leadersfirst", "leaders_logo")

	cfg := Load()
	if len(cfg.Tenants) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(cfg.Tenants))
	}

	talrn := cfg.Tenants[0]
	if talrn.Name != "Talrn" || talrn.Server != "b.example.com" {
		t.Fatalf("primary tenant wrong: %+v", talrn)
	}
	if talrn.Port != 465 || talrn.Limit != 150 || talrn.Window != time.Hour {
		t.Fatalf("tenant defaults wrong: %+v", talrn)
	}
	if cfg.Server.Port != "5000" || cfg.Server.IdleInterval != time.Second || cfg.Server.BackoffInterval != 10*time.Second {
		t.Fatalf("server defaults wrong: %+v", cfg.Server)
	}
}

func TestLoadOverrides(t *testing.T) {
	setTenantEnv(t, "TALRN", "b.example.com", "hire@b.example.com", "Talrn", "talrn_logo")
	setTenantEnv(t, "LEADERS", "t.example.com", "reach@t.example.com", "Leadersfirst", "leaders_logo")
	t.Setenv("TALRN_LIMIT", "2")
	t.Setenv("TALRN_WINDOW", "3600s")
	t.Setenv("BACKOFF_INTERVAL", "50ms")

	cfg := Load()
	talrn := cfg.Tenants[0]
	if talrn.Limit != 2 || talrn.Window != time.Hour {
		t.Fatalf("overrides not applied: %+v", talrn)
	}
	if cfg.Server.BackoffInterval != 50*time.Millisecond {
		t.Fatalf("backoff override not applied: %v", cfg.Server.BackoffInterval)
	}
}
