package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("server port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownPeriod != 15*time.Second {
		t.Errorf("shutdown period = %v, want 15s", cfg.Server.ShutdownPeriod)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("token ttl = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Issuer != "keygate-api" {
		t.Errorf("issuer = %q, want keygate-api", cfg.Auth.Issuer)
	}
	if cfg.Gate.UsageRetentionDays != 400 {
		t.Errorf("usage retention = %d, want 400", cfg.Gate.UsageRetentionDays)
	}
	if cfg.Gate.DefaultRateLimitRPM != 60 {
		t.Errorf("default rate limit = %d, want 60", cfg.Gate.DefaultRateLimitRPM)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}
