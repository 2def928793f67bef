package sessiongate

import (
	"io"
	"time"

	internalaudit "github.com/kestrelworks/sessiongate/internal/audit"
)

// ProviderCredentials tags sessions created through the email/password
// credential exchange. Only sessions carrying this tag participate in token
// refresh; sessions from other providers pass through unchanged.
const ProviderCredentials = "credentials"

// UserClaims is the normalized role surface of a session. It is derived once
// from the identity service's user detail at the session boundary instead of
// being re-read ad hoc from raw backend payloads.
type UserClaims struct {
	IsSuperuser        bool
	IsApplicationAdmin bool
	IsManager          bool
}

// Session defines a public type used by sessiongate APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	SessionID string
	UserID    string
	Email     string
	TenantID  string
	Provider  string

	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	CreatedAt    int64

	NeedsPasswordReset bool
	Claims             UserClaims
}

// Expired reports whether the access token lease has elapsed at the given
// wall-clock instant.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return now.Unix() >= s.ExpiresAt
}

// MFAMethod identifies a second-factor verification channel.
type MFAMethod string

const (
	// MFAMethodTOTP is an exported constant or variable used by the session engine.
	MFAMethodTOTP MFAMethod = "totp"
	// MFAMethodSMS is an exported constant or variable used by the session engine.
	MFAMethodSMS MFAMethod = "sms"
	// MFAMethodEmail is an exported constant or variable used by the session engine.
	MFAMethodEmail MFAMethod = "email"
)

// OutcomeKind discriminates the tagged authentication outcome returned by
// [Engine.Authenticate].
type OutcomeKind uint8

const (
	// OutcomeOK is an exported constant or variable used by the session engine.
	OutcomeOK OutcomeKind = iota
	// OutcomeMFARequired is an exported constant or variable used by the session engine.
	OutcomeMFARequired
	// OutcomeRejected is an exported constant or variable used by the session engine.
	OutcomeRejected
	// OutcomeTransient is an exported constant or variable used by the session engine.
	OutcomeTransient
)

// RejectReason values are the fixed user-facing strings surfaced for
// credential and account-state rejections. They are never retried.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonAccountLocked      = "account_locked"
	ReasonRateLimited        = "rate_limit_exceeded"
	ReasonEmailNotVerified   = "email_not_verified"
	ReasonPasswordPolicy     = "password_policy"
)

// Outcome is the tagged result of a credential exchange. Exactly one of
// Session and Challenge is set for OutcomeOK and OutcomeMFARequired
// respectively; Reason carries the fixed rejection string for
// OutcomeRejected.
//
//	Docs: docs/login.md
type Outcome struct {
	Kind      OutcomeKind
	Session   *Session
	Challenge *Negotiator
	Reason    string
}

// ValidationResult is returned by [Engine.ValidateSession].
//
// Valid=false always means the identity service authoritatively rejected the
// session; transient failures and non-critical rejections surface as
// Valid=true with FailedOpen set.
type ValidationResult struct {
	Valid      bool
	Reason     string
	FromCache  bool
	FailedOpen bool
	Attempts   int
}

// PasswordStatus is the live temporary-password flag read from the identity
// service, used by the reset gate to override a stale session flag.
type PasswordStatus struct {
	NeedsReset bool
	Checked    bool
}

// AuditEvent is a structured audit record emitted by the engine.
//
//	Docs: docs/audit.md
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
//
//	Docs: docs/audit.md
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
//
//	Docs: docs/audit.md
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
//
//	Docs: docs/audit.md
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
//
//	Docs: docs/audit.md
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
