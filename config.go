package sessiongate

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by sessiongate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// Every retry budget, timeout, and rate-limit window the engine uses lives
// here under a named field; call sites never carry their own literals.
type Config struct {
	Identity   IdentityConfig
	Token      TokenConfig
	Validation ValidationConfig
	MFA        MFAConfig
	Session    SessionConfig
	Gate       GateConfig
	Activity   ActivityConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
IDENTITY SERVICE CONFIG
====================================
*/

// IdentityConfig defines a public type used by sessiongate APIs.
//
// IdentityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type IdentityConfig struct {
	BaseURL        string
	TenantID       string
	TenantHeader   string // defaults to "X-Tenant-ID"
	RequestTimeout time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by sessiongate APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// Lease is the fixed access-token lifetime applied on login and on every
	// refresh. A refresh always produces ExpiresAt = now + Lease; nothing
	// ever extends an un-refreshed token.
	Lease time.Duration
}

/*
====================================
VALIDATION CONFIG
====================================
*/

// ValidationConfig defines a public type used by sessiongate APIs.
//
// ValidationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ValidationConfig struct {
	MaxAttempts         int
	AttemptTimeoutBase  time.Duration // first attempt timeout; grows by AttemptTimeoutStep per attempt
	AttemptTimeoutStep  time.Duration
	BackoffStep         time.Duration // sleep between attempts: BackoffStep × attempt number
	MinInterval         time.Duration // at most one backend validation per window
	InteractionDebounce time.Duration
	InitialDelay        time.Duration
	PeriodicInterval    time.Duration
	SkipPaths           []string // auth-related pages where validation is skipped entirely
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig defines a public type used by sessiongate APIs.
//
// MFAConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MFAConfig struct {
	CodeDigits   int
	ChallengeTTL time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by sessiongate APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
	CookieName  string
	CookieTTL   time.Duration
	SigningKey  []byte
}

/*
====================================
RESET GATE CONFIG
====================================
*/

// GateConfig defines a public type used by sessiongate APIs.
//
// GateConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GateConfig struct {
	LoginPath          string
	ResetPath          string
	PostResetPath      string // where an unflagged session on ResetPath is sent
	AllowPaths         []string
	OverrideCookieName string
	OverrideCookieTTL  time.Duration
	StatusProbeTimeout time.Duration
}

/*
====================================
ACTIVITY CONFIG
====================================
*/

// ActivityConfig defines a public type used by sessiongate APIs.
//
// ActivityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ActivityConfig struct {
	InactivityThreshold time.Duration
	CheckInterval       time.Duration
	PointerThrottle     time.Duration // pointer-move events, throttled aggressively
	InputThrottle       time.Duration // click/keydown/touch/focus events
}

// AuditConfig defines a public type used by sessiongate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by sessiongate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Identity: IdentityConfig{
			TenantHeader:   "X-Tenant-ID",
			TenantID:       "0",
			RequestTimeout: 10 * time.Second,
		},
		Token: TokenConfig{
			Lease: 3600 * time.Second,
		},
		Validation: ValidationConfig{
			MaxAttempts:         3,
			AttemptTimeoutBase:  3 * time.Second,
			AttemptTimeoutStep:  time.Second,
			BackoffStep:         500 * time.Millisecond,
			MinInterval:         60 * time.Second,
			InteractionDebounce: 2 * time.Second,
			InitialDelay:        45 * time.Second,
			PeriodicInterval:    2 * time.Minute,
			SkipPaths:           []string{"/login", "/reset-password", "/forgot-password"},
		},
		MFA: MFAConfig{
			CodeDigits:   6,
			ChallengeTTL: 5 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix: "sg",
			CookieName:  "sg_session",
			CookieTTL:   7 * 24 * time.Hour,
		},
		Gate: GateConfig{
			LoginPath:     "/login",
			ResetPath:     "/reset-password",
			PostResetPath: "/",
			AllowPaths: []string{
				"/login",
				"/forgot-password",
				"/verify-email",
				"/resend-verification",
			},
			OverrideCookieName: "sg_pwreset",
			OverrideCookieTTL:  5 * time.Minute,
			StatusProbeTimeout: 3 * time.Second,
		},
		Activity: ActivityConfig{
			InactivityThreshold: 30 * time.Minute,
			CheckInterval:       30 * time.Second,
			PointerThrottle:     5 * time.Second,
			InputThrottle:       time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Identity.BaseURL) == "" {
		return errors.New("identity base URL required")
	}
	if c.Token.Lease <= 0 {
		return errors.New("token lease must be positive")
	}
	if c.Validation.MaxAttempts <= 0 {
		return errors.New("validation attempt budget must be positive")
	}
	if c.Validation.AttemptTimeoutBase <= 0 {
		return errors.New("validation attempt timeout must be positive")
	}
	if c.Validation.MinInterval < 0 {
		return errors.New("validation min interval must not be negative")
	}
	if c.MFA.CodeDigits <= 0 {
		return errors.New("mfa code digits must be positive")
	}
	if c.MFA.ChallengeTTL <= 0 {
		return errors.New("mfa challenge ttl must be positive")
	}
	if len(c.Session.SigningKey) == 0 {
		return errors.New("session signing key required")
	}
	if c.Session.CookieTTL <= 0 {
		return errors.New("session cookie ttl must be positive")
	}
	if c.Activity.InactivityThreshold <= 0 {
		return errors.New("inactivity threshold must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.SigningKey = cloneBytes(cfg.Session.SigningKey)
	out.Validation.SkipPaths = cloneStrings(cfg.Validation.SkipPaths)
	out.Gate.AllowPaths = cloneStrings(cfg.Gate.AllowPaths)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
