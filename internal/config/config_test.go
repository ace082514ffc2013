package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MASTER_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.TokenExpiry() != 30*time.Minute {
		t.Fatalf("expected 30m token expiry, got %v", cfg.TokenExpiry())
	}
	if cfg.ChallengeTTL() != 2*time.Minute {
		t.Fatalf("expected 2m challenge TTL, got %v", cfg.ChallengeTTL())
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("MASTER_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing MASTER_SECRET")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("MASTER_SECRET", "secret")
	t.Setenv("PORT", "99999")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MASTER_SECRET", "secret")
	t.Setenv("PORT", "8443")
	t.Setenv("TOKEN_EXPIRY_SECONDS", "60")
	t.Setenv("CHALLENGE_TTL_SECONDS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8443 || cfg.TokenExpiry() != time.Minute || cfg.ChallengeTTL() != 10*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
