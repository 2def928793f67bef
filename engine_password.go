package sessiongate

import (
	"context"
	"errors"
	"net/http"

	"github.com/kestrelworks/sessiongate/internal/identity"
	storesession "github.com/kestrelworks/sessiongate/session"
)

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// On success the temporary-password flag is cleared on the returned session
// copy and in the mirror record, which releases the reset gate on the next
// request.
func (e *Engine) ChangePassword(ctx context.Context, sess *Session, currentPassword, newPassword string) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrNoSession
	}

	if err := e.identity.ChangePassword(ctx, sess.AccessToken, currentPassword, newPassword); err != nil {
		e.metricInc(MetricPasswordChangeFailure)

		var statusErr *identity.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.Code {
			case http.StatusBadRequest, http.StatusUnprocessableEntity:
				return nil, ErrPasswordPolicy
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, ErrInvalidCredentials
			}
		}
		if identity.IsTransient(err) {
			return nil, ErrBackendUnavailable
		}
		return nil, err
	}

	if err := e.sessionStore.SetNeedsPasswordReset(ctx, sess.TenantID, sess.SessionID, false); err != nil && !errors.Is(err, storesession.ErrNotFound) {
		e.log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("mirror password flag update failed")
	}

	updated := *sess
	updated.NeedsPasswordReset = false

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChanged, true, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, nil, nil)

	return &updated, nil
}

// LivePasswordStatus describes the livepasswordstatus operation and its observable behavior.
//
// LivePasswordStatus may return an error when input validation, dependency calls, or security checks fail.
// LivePasswordStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The probe runs under its own short timeout and never fails the caller:
// when the identity service cannot be reached, Checked is false and the
// caller falls back to the flag carried in the session.
func (e *Engine) LivePasswordStatus(ctx context.Context, sess *Session) PasswordStatus {
	if e == nil || sess == nil {
		return PasswordStatus{}
	}

	probeCtx, cancel := context.WithTimeout(ctx, e.config.Gate.StatusProbeTimeout)
	defer cancel()

	needsReset, err := e.identity.PasswordStatus(probeCtx, sess.AccessToken)
	if err != nil {
		return PasswordStatus{}
	}

	return PasswordStatus{NeedsReset: needsReset, Checked: true}
}
