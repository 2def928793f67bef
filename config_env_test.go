package sessiongate

import (
	"testing"
	"time"
)

func TestConfigFromEnvRequiresBaseURL(t *testing.T) {
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected error when SESSIONGATE_IDENTITY_BASEURL is unset")
	}
}

func TestConfigFromEnvLayersOverDefaults(t *testing.T) {
	t.Setenv("SESSIONGATE_IDENTITY_BASEURL", "https://identity.internal:8443")
	t.Setenv("SESSIONGATE_IDENTITY_TENANT", "9")
	t.Setenv("SESSIONGATE_TOKEN_LEASE", "30m")
	t.Setenv("SESSIONGATE_VALIDATION_MAX_ATTEMPTS", "5")
	t.Setenv("SESSIONGATE_SESSION_SIGNING_KEY", "env-signing-key")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}

	if cfg.Identity.BaseURL != "https://identity.internal:8443" {
		t.Fatalf("unexpected base URL %q", cfg.Identity.BaseURL)
	}
	if cfg.Identity.TenantID != "9" {
		t.Fatalf("unexpected tenant %q", cfg.Identity.TenantID)
	}
	if cfg.Token.Lease != 30*time.Minute {
		t.Fatalf("unexpected lease %v", cfg.Token.Lease)
	}
	if cfg.Validation.MaxAttempts != 5 {
		t.Fatalf("unexpected attempt budget %d", cfg.Validation.MaxAttempts)
	}
	if string(cfg.Session.SigningKey) != "env-signing-key" {
		t.Fatalf("unexpected signing key %q", cfg.Session.SigningKey)
	}

	// Untouched fields keep their defaults.
	if cfg.Validation.MinInterval != 60*time.Second {
		t.Fatalf("expected default min interval, got %v", cfg.Validation.MinInterval)
	}
	if cfg.Session.CookieName != "sg_session" {
		t.Fatalf("expected default cookie name, got %q", cfg.Session.CookieName)
	}
}
