package sessiongate

import (
	"fmt"

	"github.com/spf13/viper"
)

// ConfigFromEnv builds a [Config] from environment variables with the
// SESSIONGATE_ prefix (SESSIONGATE_IDENTITY_BASEURL, SESSIONGATE_TOKEN_LEASE,
// …), layered over [DefaultConfig]. A missing identity base URL is a
// configuration error — the engine refuses to start rather than failing on
// the first call.
//
//	Docs: docs/config.md
func ConfigFromEnv() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SESSIONGATE")
	v.AutomaticEnv()

	cfg := defaultConfig()

	if s := v.GetString("IDENTITY_BASEURL"); s != "" {
		cfg.Identity.BaseURL = s
	}
	if s := v.GetString("IDENTITY_TENANT"); s != "" {
		cfg.Identity.TenantID = s
	}
	if d := v.GetDuration("IDENTITY_TIMEOUT"); d > 0 {
		cfg.Identity.RequestTimeout = d
	}
	if d := v.GetDuration("TOKEN_LEASE"); d > 0 {
		cfg.Token.Lease = d
	}
	if n := v.GetInt("VALIDATION_MAX_ATTEMPTS"); n > 0 {
		cfg.Validation.MaxAttempts = n
	}
	if d := v.GetDuration("VALIDATION_MIN_INTERVAL"); d > 0 {
		cfg.Validation.MinInterval = d
	}
	if d := v.GetDuration("VALIDATION_PERIODIC_INTERVAL"); d > 0 {
		cfg.Validation.PeriodicInterval = d
	}
	if d := v.GetDuration("ACTIVITY_THRESHOLD"); d > 0 {
		cfg.Activity.InactivityThreshold = d
	}
	if s := v.GetString("SESSION_SIGNING_KEY"); s != "" {
		cfg.Session.SigningKey = []byte(s)
	}
	if s := v.GetString("SESSION_COOKIE_NAME"); s != "" {
		cfg.Session.CookieName = s
	}

	if cfg.Identity.BaseURL == "" {
		return Config{}, fmt.Errorf("SESSIONGATE_IDENTITY_BASEURL not set")
	}
	return cfg, nil
}
