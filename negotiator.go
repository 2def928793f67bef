package sessiongate

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/kestrelworks/sessiongate/internal/identity"
)

// ChallengeStage defines a public type used by sessiongate APIs.
//
// ChallengeStage instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeStage string

const (
	// StageMethodSelection is an exported constant or variable used by the session engine.
	StageMethodSelection ChallengeStage = "method_selection"
	// StageVerification is an exported constant or variable used by the session engine.
	StageVerification ChallengeStage = "verification"
)

// Negotiator drives a two-stage MFA challenge: method selection, then code
// verification. It holds the login credentials in memory for the lifetime of
// the challenge and zeroes them on completion or cancellation; nothing is
// ever persisted.
//
// When the identity service offers a single method the selection stage is
// skipped and the negotiator starts in verification.
//
//	Docs: docs/login.md
type Negotiator struct {
	mu sync.Mutex

	engine   *Engine
	email    string
	password string

	methods     []MFAMethod
	maskedPhone string
	maskedEmail string

	stage     ChallengeStage
	method    MFAMethod
	cancelled bool
	createdAt time.Time
}

func newNegotiator(e *Engine, email, password string, mfaErr *identity.MFARequiredError) *Negotiator {
	methods := make([]MFAMethod, 0, len(mfaErr.Methods))
	for _, m := range mfaErr.Methods {
		switch MFAMethod(m) {
		case MFAMethodTOTP, MFAMethodSMS, MFAMethodEmail:
			methods = append(methods, MFAMethod(m))
		}
	}

	n := &Negotiator{
		engine:      e,
		email:       email,
		password:    password,
		methods:     methods,
		maskedPhone: mfaErr.MaskedPhone,
		maskedEmail: mfaErr.MaskedEmail,
		stage:       StageMethodSelection,
		createdAt:   e.clock(),
	}

	if len(methods) == 1 {
		n.method = methods[0]
		n.stage = StageVerification
	}

	return n
}

// Stage describes the stage operation and its observable behavior.
//
// Stage may return an error when input validation, dependency calls, or security checks fail.
// Stage does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) Stage() ChallengeStage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stage
}

// Methods describes the methods operation and its observable behavior.
//
// Methods may return an error when input validation, dependency calls, or security checks fail.
// Methods does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) Methods() []MFAMethod {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]MFAMethod, len(n.methods))
	copy(out, n.methods)
	return out
}

// Method describes the method operation and its observable behavior.
//
// Method may return an error when input validation, dependency calls, or security checks fail.
// Method does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) Method() MFAMethod {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.method
}

// MaskedPhone describes the maskedphone operation and its observable behavior.
//
// MaskedPhone may return an error when input validation, dependency calls, or security checks fail.
// MaskedPhone does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) MaskedPhone() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.maskedPhone
}

// MaskedEmail describes the maskedemail operation and its observable behavior.
//
// MaskedEmail may return an error when input validation, dependency calls, or security checks fail.
// MaskedEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) MaskedEmail() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.maskedEmail
}

// SelectMethod describes the selectmethod operation and its observable behavior.
//
// SelectMethod may return an error when input validation, dependency calls, or security checks fail.
// SelectMethod does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) SelectMethod(method MFAMethod) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.usableLocked(); err != nil {
		return err
	}
	if n.stage != StageMethodSelection {
		return ErrMFAChallengeStage
	}

	for _, m := range n.methods {
		if m == method {
			n.method = method
			n.stage = StageVerification
			return nil
		}
	}

	return ErrMFAMethodUnavailable
}

// SubmitCode describes the submitcode operation and its observable behavior.
//
// SubmitCode may return an error when input validation, dependency calls, or security checks fail.
// SubmitCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A wrong code keeps the negotiator in the verification stage so the caller
// can retry without restarting the challenge.
func (n *Negotiator) SubmitCode(ctx context.Context, code string) (*Outcome, error) {
	n.mu.Lock()

	if err := n.usableLocked(); err != nil {
		n.mu.Unlock()
		return nil, err
	}
	if n.stage != StageVerification {
		n.mu.Unlock()
		return nil, ErrMFAChallengeStage
	}
	if !digitsOnly(code, n.engine.config.MFA.CodeDigits) {
		n.mu.Unlock()
		return nil, ErrMFACodeInvalid
	}

	e := n.engine
	email := n.email
	password := n.password
	method := n.method
	n.mu.Unlock()

	tenantID := tenantIDFromContext(ctx, e.config.Identity.TenantID)

	resp, err := e.identity.Login(ctx, identity.LoginRequest{
		Email:    email,
		Password: password,
		Code:     code,
		Method:   string(method),
	})
	if err != nil {
		return n.submitFailureOutcome(ctx, email, tenantID, err)
	}

	sess, err := e.establishSession(ctx, email, resp)
	if err != nil {
		return n.submitFailureOutcome(ctx, email, tenantID, err)
	}

	n.clear()

	e.metricInc(MetricMFASuccess)
	e.emitAudit(ctx, auditEventMFASuccess, true, sess.UserID, sess.Email, sess.TenantID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{"method": string(method)}
	})

	return &Outcome{Kind: OutcomeOK, Session: sess}, nil
}

func (n *Negotiator) submitFailureOutcome(ctx context.Context, email, tenantID string, err error) (*Outcome, error) {
	e := n.engine

	var statusErr *identity.StatusError
	if errors.As(err, &statusErr) {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, "", email, tenantID, "", err, nil)

		if statusErr.Code == http.StatusTooManyRequests {
			return nil, ErrLoginRateLimited
		}
		return nil, ErrMFACodeInvalid
	}

	if identity.IsTransient(err) {
		return &Outcome{Kind: OutcomeTransient}, nil
	}

	return nil, err
}

// ResendCode describes the resendcode operation and its observable behavior.
//
// ResendCode may return an error when input validation, dependency calls, or security checks fail.
// ResendCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) ResendCode(ctx context.Context) error {
	n.mu.Lock()

	if err := n.usableLocked(); err != nil {
		n.mu.Unlock()
		return err
	}
	if n.stage != StageVerification || n.method != MFAMethodSMS {
		n.mu.Unlock()
		return ErrMFAMethodUnavailable
	}

	e := n.engine
	email := n.email
	n.mu.Unlock()

	tenantID := tenantIDFromContext(ctx, e.config.Identity.TenantID)

	if err := e.identity.ResendSMSCode(ctx, email); err != nil {
		var statusErr *identity.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests {
			return ErrMFACodeResendLimited
		}
		if identity.IsTransient(err) {
			return ErrBackendUnavailable
		}
		return err
	}

	e.metricInc(MetricMFAResend)
	e.emitAudit(ctx, auditEventMFAResend, true, "", email, tenantID, "", nil, nil)

	return nil
}

// Cancel describes the cancel operation and its observable behavior.
//
// Cancel may return an error when input validation, dependency calls, or security checks fail.
// Cancel does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Cancel zeroes the held credentials; the negotiator rejects every later
// call. Cancelling twice is a no-op.
func (n *Negotiator) Cancel(ctx context.Context) {
	n.mu.Lock()
	if n.cancelled {
		n.mu.Unlock()
		return
	}
	e := n.engine
	email := n.email
	n.mu.Unlock()

	n.clear()

	tenantID := tenantIDFromContext(ctx, e.config.Identity.TenantID)

	e.metricInc(MetricMFACancelled)
	e.emitAudit(ctx, auditEventMFACancelled, true, "", email, tenantID, "", nil, nil)
}

// Cancelled describes the cancelled operation and its observable behavior.
//
// Cancelled may return an error when input validation, dependency calls, or security checks fail.
// Cancelled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *Negotiator) Cancelled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancelled
}

func (n *Negotiator) usableLocked() error {
	if n.cancelled {
		return ErrMFAChallengeCancelled
	}
	if n.engine.clock().Sub(n.createdAt) > n.engine.config.MFA.ChallengeTTL {
		return ErrMFAChallengeExpired
	}
	return nil
}

func (n *Negotiator) clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.email = ""
	n.password = ""
	n.cancelled = true
}

func digitsOnly(code string, want int) bool {
	if len(code) != want {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
