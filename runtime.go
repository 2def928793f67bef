package sessiongate

import (
	"sync"
	"time"
)

// AuthRuntimeState is the per-tab mutable state of the session lifecycle:
// the in-flight validation guard, the last-validation timestamp, and the
// logging-out latch. It replaces the window-scoped globals of the original
// design with a single object owned by the engine and passed by reference,
// so it can be tested in isolation.
//
//	Docs: docs/runtime.md
type AuthRuntimeState struct {
	mu sync.Mutex

	validating     bool
	lastValidation time.Time
	lastResult     ValidationResult
	hasResult      bool

	loggingOut bool
}

// NewAuthRuntimeState describes the newauthruntimestate operation and its observable behavior.
//
// NewAuthRuntimeState may return an error when input validation, dependency calls, or security checks fail.
// NewAuthRuntimeState does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewAuthRuntimeState() *AuthRuntimeState {
	return &AuthRuntimeState{}
}

// beginValidation reports whether a backend validation should proceed now.
// It returns (false, cached) when another validation is in flight or the
// rate-limit window has not elapsed; the cached result is then reused.
func (r *AuthRuntimeState) beginValidation(now time.Time, minInterval time.Duration) (bool, ValidationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loggingOut {
		return false, ValidationResult{Valid: false, Reason: "logging_out", FromCache: true}
	}
	if r.validating {
		return false, r.cachedLocked()
	}
	if r.hasResult && now.Sub(r.lastValidation) < minInterval {
		return false, r.cachedLocked()
	}

	r.validating = true
	return true, ValidationResult{}
}

func (r *AuthRuntimeState) cachedLocked() ValidationResult {
	if r.hasResult {
		out := r.lastResult
		out.FromCache = true
		return out
	}
	// No prior result to reuse: assume valid, consistent with fail-open.
	return ValidationResult{Valid: true, FromCache: true}
}

func (r *AuthRuntimeState) finishValidation(now time.Time, res ValidationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.validating = false
	r.lastValidation = now
	r.lastResult = res
	r.hasResult = true
}

func (r *AuthRuntimeState) abortValidation() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.validating = false
}

// SetLoggingOut latches the logging-out flag. While set, validation requests
// short-circuit instead of racing the logout in progress.
func (r *AuthRuntimeState) SetLoggingOut(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loggingOut = v
}

// LoggingOut describes the loggingout operation and its observable behavior.
//
// LoggingOut may return an error when input validation, dependency calls, or security checks fail.
// LoggingOut does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *AuthRuntimeState) LoggingOut() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loggingOut
}

// LastValidation returns the timestamp of the most recent completed backend
// validation, or the zero time when none has run.
func (r *AuthRuntimeState) LastValidation() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastValidation
}

// Reset clears all runtime state. Called on logout so a subsequent login
// starts from a clean slate.
func (r *AuthRuntimeState) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.validating = false
	r.lastValidation = time.Time{}
	r.lastResult = ValidationResult{}
	r.hasResult = false
	r.loggingOut = false
}
