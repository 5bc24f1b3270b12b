package config

import (
	"testing"
	"time"
)

func TestLoadAppliesQualificationDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/converzia")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetContactMaxAttempts() != 3 {
		t.Fatalf("expected 3 contact attempts, got %d", cfg.GetContactMaxAttempts())
	}
	if cfg.GetContactRetryInterval() != 24*time.Hour {
		t.Fatalf("expected 24h retry interval, got %s", cfg.GetContactRetryInterval())
	}
	if cfg.GetPhoneDefaultRegion() != "AR" {
		t.Fatalf("expected AR region, got %q", cfg.GetPhoneDefaultRegion())
	}
	if cfg.IsAIEnabled() {
		t.Fatalf("expected AI disabled without api key")
	}
}

func TestLoadRejectsZeroAttemptCeiling(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/converzia")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CONTACT_MAX_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero attempt ceiling")
	}
}

func TestSplitCSVSkipsBlanks(t *testing.T) {
	got := splitCSV(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected split result: %#v", got)
	}
}
