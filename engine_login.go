package sessiongate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kestrelworks/sessiongate/internal/identity"
)

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The returned outcome is a tagged union: OutcomeOK carries the established
// session, OutcomeMFARequired carries a challenge negotiator holding the
// credentials for the second stage, OutcomeRejected carries a fixed reason
// string that is never retried, and OutcomeTransient means the identity
// service could not be reached and the caller may try again.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*Outcome, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	tenantID := tenantIDFromContext(ctx, e.config.Identity.TenantID)

	resp, err := e.identity.Login(ctx, identity.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return e.loginFailureOutcome(ctx, email, tenantID, password, err)
	}

	sess, err := e.establishSession(ctx, email, resp)
	if err != nil {
		return e.loginFailureOutcome(ctx, email, tenantID, password, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, nil, nil)

	return &Outcome{Kind: OutcomeOK, Session: sess}, nil
}

// loginFailureOutcome classifies a failed credential exchange. MFA sentinels
// become a challenge, authoritative rejections become fixed reasons, and
// everything transient is surfaced as retryable without detail.
func (e *Engine) loginFailureOutcome(ctx context.Context, email, tenantID, password string, err error) (*Outcome, error) {
	var mfaErr *identity.MFARequiredError
	if errors.As(err, &mfaErr) {
		neg := newNegotiator(e, email, password, mfaErr)

		e.metricInc(MetricMFARequired)
		e.emitAudit(ctx, auditEventMFARequired, true, "", email, tenantID, "", nil, func() map[string]string {
			return map[string]string{"sentinel": mfaErr.Sentinel}
		})

		return &Outcome{Kind: OutcomeMFARequired, Challenge: neg}, nil
	}

	var statusErr *identity.StatusError
	if errors.As(err, &statusErr) {
		reason := rejectReason(statusErr)

		e.metricInc(MetricLoginRejected)
		e.emitAudit(ctx, auditEventLoginRejected, false, "", email, tenantID, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})

		return &Outcome{Kind: OutcomeRejected, Reason: reason}, nil
	}

	if identity.IsTransient(err) {
		e.metricInc(MetricLoginTransient)
		e.emitAudit(ctx, auditEventLoginTransient, false, "", email, tenantID, "", err, nil)

		return &Outcome{Kind: OutcomeTransient}, nil
	}

	return nil, err
}

// rejectReason maps an identity-service rejection to one of the fixed
// user-facing reason strings. The raw backend detail never leaks through.
func rejectReason(err *identity.StatusError) string {
	detail := strings.ToLower(err.Detail)

	switch err.Code {
	case http.StatusTooManyRequests:
		return ReasonRateLimited
	case http.StatusForbidden:
		if strings.Contains(detail, "locked") {
			return ReasonAccountLocked
		}
		if strings.Contains(detail, "verif") {
			return ReasonEmailNotVerified
		}
		return ReasonInvalidCredentials
	default:
		return ReasonInvalidCredentials
	}
}
