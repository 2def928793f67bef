package sessiongate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kestrelworks/sessiongate/internal/identity"
	"github.com/kestrelworks/sessiongate/session"
)

// Engine defines a public type used by sessiongate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	identity     *identity.Client
	sessionStore *session.Store
	codec        *session.Codec
	runtime      *AuthRuntimeState
	audit        *auditDispatcher
	metrics      *Metrics
	log          zerolog.Logger

	now func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Runtime describes the runtime operation and its observable behavior.
//
// Runtime may return an error when input validation, dependency calls, or security checks fail.
// Runtime does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Runtime() *AuthRuntimeState {
	if e == nil {
		return nil
	}
	return e.runtime
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CookieName describes the cookiename operation and its observable behavior.
//
// CookieName may return an error when input validation, dependency calls, or security checks fail.
// CookieName does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CookieName() string {
	if e == nil {
		return ""
	}
	return e.config.Session.CookieName
}

// GateConfig describes the gateconfig operation and its observable behavior.
//
// GateConfig may return an error when input validation, dependency calls, or security checks fail.
// GateConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GateConfig() GateConfig {
	if e == nil {
		return GateConfig{}
	}
	cfg := e.config.Gate
	cfg.AllowPaths = cloneStrings(cfg.AllowPaths)
	return cfg
}

// EncodeCookie describes the encodecookie operation and its observable behavior.
//
// EncodeCookie may return an error when input validation, dependency calls, or security checks fail.
// EncodeCookie does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) EncodeCookie(sess *Session) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	if sess == nil {
		return "", ErrNoSession
	}
	return e.codec.Encode(toStoredSession(sess))
}

// DecodeCookie describes the decodecookie operation and its observable behavior.
//
// DecodeCookie may return an error when input validation, dependency calls, or security checks fail.
// DecodeCookie does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DecodeCookie(value string) (*Session, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	stored, err := e.codec.Decode(value)
	if err != nil {
		return nil, err
	}
	return fromStoredSession(stored), nil
}

// EncodeResetOverride describes the encoderesetoverride operation and its observable behavior.
//
// EncodeResetOverride may return an error when input validation, dependency calls, or security checks fail.
// EncodeResetOverride does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) EncodeResetOverride(needsReset bool) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	return e.codec.EncodeOverride(needsReset, e.config.Gate.OverrideCookieTTL)
}

// DecodeResetOverride describes the decoderesetoverride operation and its observable behavior.
//
// DecodeResetOverride may return an error when input validation, dependency calls, or security checks fail.
// DecodeResetOverride does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DecodeResetOverride(value string) (bool, error) {
	if e == nil || e.codec == nil {
		return false, ErrEngineNotReady
	}
	return e.codec.DecodeOverride(value)
}

// NoteGateRedirect describes the notegateredirect operation and its observable behavior.
//
// NoteGateRedirect may return an error when input validation, dependency calls, or security checks fail.
// NoteGateRedirect does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) NoteGateRedirect(ctx context.Context, sess *Session, from, to string) {
	if e == nil {
		return
	}

	var userID, email, tenantID, sessionID string
	if sess != nil {
		userID, email, tenantID, sessionID = sess.UserID, sess.Email, sess.TenantID, sess.SessionID
	}

	e.metricInc(MetricGateRedirect)
	e.emitAudit(ctx, auditEventGateRedirect, true, userID, email, tenantID, sessionID, nil, func() map[string]string {
		return map[string]string{"from": from, "to": to}
	})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e != nil && e.now != nil {
		return e.now()
	}
	return time.Now()
}

// establishSession builds a full session from a successful token exchange:
// it reads the user detail with the fresh access token, normalizes the role
// claims, mints a session ID, and writes the mirror record.
func (e *Engine) establishSession(ctx context.Context, email string, resp *identity.LoginResponse) (*Session, error) {
	detail, err := e.identity.Me(ctx, resp.AccessToken)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	sess := &Session{
		SessionID:    uuid.NewString(),
		UserID:       detail.ID,
		Email:        detail.Email,
		TenantID:     tenantIDFromContext(ctx, e.config.Identity.TenantID),
		Provider:     ProviderCredentials,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    now.Add(e.config.Token.Lease).Unix(),
		CreatedAt:    now.Unix(),
		NeedsPasswordReset: resp.PasswordChangeRequired ||
			detail.IsPasswordTemporary,
		Claims: UserClaims{
			IsSuperuser:        detail.IsSuperuser,
			IsApplicationAdmin: detail.ApplicationAdmin,
			IsManager:          detail.IsManager,
		},
	}
	if sess.Email == "" {
		sess.Email = email
	}

	if err := e.sessionStore.Save(ctx, toStoredSession(sess), e.config.Session.CookieTTL); err != nil {
		e.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("session mirror write failed")
	}

	e.metricInc(MetricSessionCreated)
	return sess, nil
}

func toStoredSession(s *Session) *session.Session {
	if s == nil {
		return nil
	}
	return &session.Session{
		SessionID:          s.SessionID,
		UserID:             s.UserID,
		Email:              s.Email,
		TenantID:           s.TenantID,
		Provider:           s.Provider,
		AccessToken:        s.AccessToken,
		RefreshToken:       s.RefreshToken,
		ExpiresAt:          s.ExpiresAt,
		CreatedAt:          s.CreatedAt,
		NeedsPasswordReset: s.NeedsPasswordReset,
		Superuser:          s.Claims.IsSuperuser,
		ApplicationAdmin:   s.Claims.IsApplicationAdmin,
		Manager:            s.Claims.IsManager,
	}
}

func fromStoredSession(s *session.Session) *Session {
	if s == nil {
		return nil
	}
	return &Session{
		SessionID:          s.SessionID,
		UserID:             s.UserID,
		Email:              s.Email,
		TenantID:           s.TenantID,
		Provider:           s.Provider,
		AccessToken:        s.AccessToken,
		RefreshToken:       s.RefreshToken,
		ExpiresAt:          s.ExpiresAt,
		CreatedAt:          s.CreatedAt,
		NeedsPasswordReset: s.NeedsPasswordReset,
		Claims: UserClaims{
			IsSuperuser:        s.Superuser,
			IsApplicationAdmin: s.ApplicationAdmin,
			IsManager:          s.Manager,
		},
	}
}
