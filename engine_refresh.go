package sessiongate

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrelworks/sessiongate/session"
)

// RefreshSession describes the refreshsession operation and its observable behavior.
//
// RefreshSession may return an error when input validation, dependency calls, or security checks fail.
// RefreshSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Sessions whose provider is not the credential exchange pass through
// unchanged, as does any session whose lease has not yet elapsed. A refresh
// replaces both tokens atomically and restarts the fixed lease; it is never
// retried, and a failed refresh surfaces [ErrRefreshFailed] so the caller can
// route the user back through login.
func (e *Engine) RefreshSession(ctx context.Context, sess *Session) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrNoSession
	}

	if sess.Provider != ProviderCredentials {
		e.metricInc(MetricRefreshSkipped)
		return sess, nil
	}

	now := e.clock()
	if !sess.Expired(now) {
		e.metricInc(MetricRefreshSkipped)
		return sess, nil
	}

	pair, err := e.identity.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, err, nil)
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	refreshed := *sess
	refreshed.AccessToken = pair.AccessToken
	refreshed.RefreshToken = pair.RefreshToken
	refreshed.ExpiresAt = now.Add(e.config.Token.Lease).Unix()

	oldHash := session.HashToken(sess.RefreshToken)
	newHash := session.HashToken(pair.RefreshToken)

	err = e.sessionStore.RotateRefreshHash(ctx, sess.TenantID, sess.SessionID, oldHash, newHash, refreshed.ExpiresAt)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrRotateConflict):
		// Another holder of this session already rotated; the token pair we
		// just minted belongs to a superseded lineage.
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, ErrSessionRevoked, nil)
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, ErrSessionRevoked)
	default:
		// The mirror is advisory; the identity service already rotated.
		e.log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("refresh hash rotation skipped")
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, nil, nil)

	return &refreshed, nil
}
