package sessiongate

import (
	"context"
	"strings"
	"time"

	"github.com/kestrelworks/sessiongate/internal/identity"
)

// Reason strings the identity service returns for an invalid session. Only
// the critical ones force an immediate local sign-out; anything else leaves
// the session in place for the caller to handle.
const (
	reasonSessionInvalidated = "session_invalidated"
	reasonUserNotFound       = "user_not_found"
	reasonTokenExpired       = "token_expired"
	reasonUnauthorized       = "unauthorized"
)

func criticalReason(reason string) bool {
	switch reason {
	case reasonSessionInvalidated, reasonUserNotFound, reasonTokenExpired, reasonUnauthorized:
		return true
	}
	return false
}

// ValidateSession describes the validatesession operation and its observable behavior.
//
// ValidateSession may return an error when input validation, dependency calls, or security checks fail.
// ValidateSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The check is best effort by contract: the identity service gets a bounded
// attempt budget with a growing per-attempt timeout and a short sleep between
// attempts, and when every attempt fails for transient reasons the session is
// presumed valid (FailedOpen is set). Only an auth-level status code or a
// rejection carrying one of the critical reasons invalidates the session and
// triggers a forced local sign-out; rejections with any other reason fail
// open as well.
// Results are cached and reused for the configured minimum interval, and
// concurrent calls collapse onto a single in-flight backend check.
func (e *Engine) ValidateSession(ctx context.Context, sess *Session) (ValidationResult, error) {
	if e == nil {
		return ValidationResult{}, ErrEngineNotReady
	}
	if sess == nil {
		return ValidationResult{}, ErrNoSession
	}

	if path := requestPathFromContext(ctx); path != "" && e.skipValidation(path) {
		e.metricInc(MetricValidateSkipped)
		return ValidationResult{Valid: true}, nil
	}

	now := e.clock()
	proceed, cached := e.runtime.beginValidation(now, e.config.Validation.MinInterval)
	if !proceed {
		e.metricInc(MetricValidateCached)
		return cached, nil
	}

	start := time.Now()
	result, err := e.validateWithRetry(ctx, sess)
	if err != nil {
		e.runtime.abortValidation()
		return ValidationResult{}, err
	}

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	e.runtime.finishValidation(e.clock(), result)
	return result, nil
}

func (e *Engine) skipValidation(path string) bool {
	for _, p := range e.config.Validation.SkipPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (e *Engine) validateWithRetry(ctx context.Context, sess *Session) (ValidationResult, error) {
	cfg := e.config.Validation

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.sleepBackoff(ctx, cfg.BackoffStep*time.Duration(attempt-1)); err != nil {
				return ValidationResult{}, err
			}
		}

		timeout := cfg.AttemptTimeoutBase + cfg.AttemptTimeoutStep*time.Duration(attempt-1)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := e.identity.ValidateSession(attemptCtx, sess.AccessToken, sess.RefreshToken)
		cancel()

		e.metricInc(MetricValidateBackendCall)

		if err == nil {
			if resp.Valid {
				return ValidationResult{Valid: true, Attempts: attempt}, nil
			}
			return e.rejectResult(ctx, sess, resp.Reason, attempt), nil
		}

		if identity.IsUnauthorized(err) {
			e.forceLogout(ctx, sess, reasonUnauthorized)
			return ValidationResult{Valid: false, Reason: reasonUnauthorized, Attempts: attempt}, nil
		}

		if ctx.Err() != nil {
			return ValidationResult{}, ctx.Err()
		}

		lastErr = err
	}

	// Attempt budget exhausted on transient failures: presume valid rather
	// than sign the user out over a flaky backend.
	e.metricInc(MetricValidateFailOpen)
	e.log.Warn().
		Err(lastErr).
		Int("attempts", cfg.MaxAttempts).
		Str("session_id", sess.SessionID).
		Msg("session validation unreachable, failing open")
	e.emitAudit(ctx, auditEventValidateFailOpen, true, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, lastErr, nil)

	return ValidationResult{Valid: true, FailedOpen: true, Attempts: cfg.MaxAttempts}, nil
}

func (e *Engine) rejectResult(ctx context.Context, sess *Session, reason string, attempt int) ValidationResult {
	if criticalReason(reason) {
		e.metricInc(MetricValidateRejected)
		e.forceLogout(ctx, sess, reason)
		return ValidationResult{Valid: false, Reason: reason, Attempts: attempt}
	}

	// Non-critical reasons (server_error, subscription flags, anything
	// unknown) fail open: only the critical set ejects a user.
	e.metricInc(MetricValidateFailOpen)
	return ValidationResult{Valid: true, FailedOpen: true, Reason: reason, Attempts: attempt}
}

func (e *Engine) sleepBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
