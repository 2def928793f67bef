package sessiongate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

// mfaIdentity is an identity stub offering TOTP and SMS, accepting one fixed
// code for either method.
func mfaIdentity(t *testing.T, goodCode string) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email  string `json:"email"`
			Code   string `json:"totp_code"`
			Method string `json:"mfa_method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch {
		case body.Code == "":
			writeTestJSON(t, w, http.StatusUnauthorized, map[string]any{
				"detail":       "MFA_REQUIRED_MULTIPLE",
				"mfa_methods":  []string{"totp", "sms"},
				"masked_phone": "+1******1234",
			})
		case body.Code == goodCode:
			writeTestJSON(t, w, http.StatusOK, map[string]any{
				"access_token":  testAccess,
				"refresh_token": testRefresh,
			})
		default:
			writeTestJSON(t, w, http.StatusUnauthorized, map[string]any{"detail": "Invalid verification code"})
		}
	})

	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{"id": "user-1", "email": testEmail})
	})

	mux.HandleFunc("/api/sms-mfa/resend", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func startChallenge(t *testing.T, engine *Engine) *Negotiator {
	t.Helper()

	outcome, err := engine.Authenticate(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome.Kind != OutcomeMFARequired || outcome.Challenge == nil {
		t.Fatalf("expected MFA challenge, got %+v", outcome)
	}
	return outcome.Challenge
}

func TestNegotiatorMultipleMethodsStartsInSelection(t *testing.T) {
	engine, _, done := newTestEngine(t, mfaIdentity(t, "123456"), nil)
	defer done()

	neg := startChallenge(t, engine)

	if neg.Stage() != StageMethodSelection {
		t.Fatalf("expected method_selection stage, got %q", neg.Stage())
	}
	if got := neg.Methods(); len(got) != 2 {
		t.Fatalf("expected two offered methods, got %v", got)
	}

	// Verification-stage operations are rejected before a method is chosen.
	if _, err := neg.SubmitCode(context.Background(), "123456"); !errors.Is(err, ErrMFAChallengeStage) {
		t.Fatalf("expected ErrMFAChallengeStage, got %v", err)
	}

	if err := neg.SelectMethod(MFAMethodSMS); err != nil {
		t.Fatalf("SelectMethod failed: %v", err)
	}
	if neg.Stage() != StageVerification {
		t.Fatalf("expected verification stage after selection, got %q", neg.Stage())
	}

	// Selecting twice is a stage violation.
	if err := neg.SelectMethod(MFAMethodTOTP); !errors.Is(err, ErrMFAChallengeStage) {
		t.Fatalf("expected ErrMFAChallengeStage on re-selection, got %v", err)
	}
}

func TestNegotiatorSelectUnofferedMethod(t *testing.T) {
	engine, _, done := newTestEngine(t, mfaIdentity(t, "123456"), nil)
	defer done()

	neg := startChallenge(t, engine)

	if err := neg.SelectMethod(MFAMethodEmail); !errors.Is(err, ErrMFAMethodUnavailable) {
		t.Fatalf("expected ErrMFAMethodUnavailable, got %v", err)
	}
	if neg.Stage() != StageMethodSelection {
		t.Fatal("expected stage to be unchanged after rejected selection")
	}
}

func TestNegotiatorWrongCodeKeepsVerificationStage(t *testing.T) {
	engine, _, done := newTestEngine(t, mfaIdentity(t, "123456"), nil)
	defer done()

	neg := startChallenge(t, engine)
	if err := neg.SelectMethod(MFAMethodSMS); err != nil {
		t.Fatalf("SelectMethod failed: %v", err)
	}

	if _, err := neg.SubmitCode(context.Background(), "000000"); !errors.Is(err, ErrMFACodeInvalid) {
		t.Fatalf("expected ErrMFACodeInvalid, got %v", err)
	}
	if neg.Stage() != StageVerification {
		t.Fatal("expected wrong code to keep the verification stage")
	}

	// Malformed codes are rejected locally without a backend call.
	if _, err := neg.SubmitCode(context.Background(), "12345"); !errors.Is(err, ErrMFACodeInvalid) {
		t.Fatalf("expected ErrMFACodeInvalid for short code, got %v", err)
	}

	outcome, err := neg.SubmitCode(context.Background(), "123456")
	if err != nil {
		t.Fatalf("SubmitCode failed: %v", err)
	}
	if outcome.Kind != OutcomeOK || outcome.Session == nil {
		t.Fatalf("expected session after correct code, got %+v", outcome)
	}
}

func TestNegotiatorResendSMSCode(t *testing.T) {
	engine, _, done := newTestEngine(t, mfaIdentity(t, "123456"), nil)
	defer done()

	neg := startChallenge(t, engine)

	if err := neg.SelectMethod(MFAMethodTOTP); err != nil {
		t.Fatalf("SelectMethod failed: %v", err)
	}
	if err := neg.ResendCode(context.Background()); !errors.Is(err, ErrMFAMethodUnavailable) {
		t.Fatalf("expected resend to be sms-only, got %v", err)
	}

	neg = startChallenge(t, engine)
	if err := neg.SelectMethod(MFAMethodSMS); err != nil {
		t.Fatalf("SelectMethod failed: %v", err)
	}
	if err := neg.ResendCode(context.Background()); err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}
}

func TestNegotiatorCancelClearsCredentials(t *testing.T) {
	engine, _, done := newTestEngine(t, mfaIdentity(t, "123456"), nil)
	defer done()

	neg := startChallenge(t, engine)
	neg.Cancel(context.Background())

	if !neg.Cancelled() {
		t.Fatal("expected negotiator to report cancelled")
	}
	if neg.email != "" || neg.password != "" {
		t.Fatal("expected held credentials to be zeroed on cancel")
	}

	if err := neg.SelectMethod(MFAMethodSMS); !errors.Is(err, ErrMFAChallengeCancelled) {
		t.Fatalf("expected ErrMFAChallengeCancelled, got %v", err)
	}
	if _, err := neg.SubmitCode(context.Background(), "123456"); !errors.Is(err, ErrMFAChallengeCancelled) {
		t.Fatalf("expected ErrMFAChallengeCancelled, got %v", err)
	}

	// Second cancel is a no-op.
	neg.Cancel(context.Background())
}

func TestNegotiatorChallengeExpiry(t *testing.T) {
	engine, _, done := newTestEngine(t, mfaIdentity(t, "123456"), nil)
	defer done()

	neg := startChallenge(t, engine)
	neg.createdAt = neg.createdAt.Add(-engine.config.MFA.ChallengeTTL - 1)

	if err := neg.SelectMethod(MFAMethodSMS); !errors.Is(err, ErrMFAChallengeExpired) {
		t.Fatalf("expected ErrMFAChallengeExpired, got %v", err)
	}
}
