package sessiongate

import (
	"context"
	"errors"

	"github.com/kestrelworks/sessiongate/session"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout is idempotent and always succeeds locally: the identity service is
// told to invalidate the refresh token on a best-effort basis, the mirror
// record is deleted, and the runtime state is reset even when either call
// fails. Validation is suppressed for the duration so a concurrent check
// cannot resurrect the session mid-teardown.
func (e *Engine) Logout(ctx context.Context, sess *Session) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if sess == nil {
		return nil
	}

	e.runtime.SetLoggingOut(true)
	defer e.runtime.Reset()

	if sess.RefreshToken != "" {
		if err := e.identity.Logout(ctx, sess.RefreshToken); err != nil {
			e.log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("identity logout failed, continuing local teardown")
		}
	}

	if err := e.sessionStore.Delete(ctx, sess.TenantID, sess.SessionID, sess.UserID); err != nil && !errors.Is(err, session.ErrNotFound) {
		e.log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("session mirror delete failed")
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogout, true, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, nil, nil)

	return nil
}

// LogoutAllForUser describes the logoutallforuser operation and its observable behavior.
//
// LogoutAllForUser may return an error when input validation, dependency calls, or security checks fail.
// LogoutAllForUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAllForUser(ctx context.Context, tenantID, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx, e.config.Identity.TenantID)
	}

	if err := e.sessionStore.DeleteAllForUser(ctx, tenantID, userID); err != nil {
		return err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", tenantID, "", nil, nil)

	return nil
}

// forceLogout tears the session down locally after an authoritative
// rejection. The identity service is not called back; it already considers
// the session dead.
func (e *Engine) forceLogout(ctx context.Context, sess *Session, reason string) {
	if err := e.sessionStore.Delete(ctx, sess.TenantID, sess.SessionID, sess.UserID); err != nil && !errors.Is(err, session.ErrNotFound) {
		e.log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("session mirror delete failed")
	}

	e.metricInc(MetricForcedLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventForcedLogout, true, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}
