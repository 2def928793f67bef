package sessiongate

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestAuthenticateSuccess(t *testing.T) {
	engine, mr, done := newTestEngine(t, happyIdentity(t), nil)
	defer done()

	outcome, err := engine.Authenticate(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome.Kind != OutcomeOK {
		t.Fatalf("expected OutcomeOK, got %+v", outcome)
	}

	sess := outcome.Session
	if sess == nil {
		t.Fatal("expected session on successful login")
	}
	if sess.UserID != "user-1" || sess.Email != testEmail {
		t.Fatalf("unexpected session identity: %+v", sess)
	}
	if sess.AccessToken != testAccess || sess.RefreshToken != testRefresh {
		t.Fatal("expected the token pair from the identity service")
	}
	if sess.Provider != ProviderCredentials {
		t.Fatalf("expected credentials provider, got %q", sess.Provider)
	}
	if !sess.Claims.IsSuperuser {
		t.Fatal("expected superuser claim to be normalized from user detail")
	}
	if sess.SessionID == "" {
		t.Fatal("expected a minted session ID")
	}

	keys := mr.Keys()
	if len(keys) == 0 {
		t.Fatal("expected mirror record in redis")
	}
}

func TestAuthenticateWrongPasswordRejected(t *testing.T) {
	engine, _, done := newTestEngine(t, happyIdentity(t), nil)
	defer done()

	outcome, err := engine.Authenticate(context.Background(), testEmail, "wrong")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome.Kind != OutcomeRejected {
		t.Fatalf("expected OutcomeRejected, got %+v", outcome)
	}
	if outcome.Reason != ReasonInvalidCredentials {
		t.Fatalf("expected %q, got %q", ReasonInvalidCredentials, outcome.Reason)
	}
	if engine.metrics.Value(MetricLoginRejected) != 1 {
		t.Fatal("expected login rejection metric")
	}
}

func TestAuthenticateAccountStateReasons(t *testing.T) {
	cases := []struct {
		name   string
		status int
		detail string
		want   string
	}{
		{"locked", http.StatusForbidden, "Account locked due to failed attempts", ReasonAccountLocked},
		{"unverified", http.StatusForbidden, "Email not verified", ReasonEmailNotVerified},
		{"rate limited", http.StatusTooManyRequests, "Too many attempts", ReasonRateLimited},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, _ *http.Request) {
				writeTestJSON(t, w, tc.status, map[string]any{"detail": tc.detail})
			})

			engine, _, done := newTestEngine(t, mux, nil)
			defer done()

			outcome, err := engine.Authenticate(context.Background(), testEmail, testPassword)
			if err != nil {
				t.Fatalf("Authenticate failed: %v", err)
			}
			if outcome.Kind != OutcomeRejected || outcome.Reason != tc.want {
				t.Fatalf("expected rejection %q, got %+v", tc.want, outcome)
			}
		})
	}
}

func TestAuthenticateTransientWhenUnreachable(t *testing.T) {
	engine, _, done := newTestEngine(t, happyIdentity(t), func(cfg *Config) {
		cfg.Identity.BaseURL = "http://127.0.0.1:1"
		cfg.Identity.RequestTimeout = 200 * time.Millisecond
	})
	defer done()

	outcome, err := engine.Authenticate(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome.Kind != OutcomeTransient {
		t.Fatalf("expected OutcomeTransient, got %+v", outcome)
	}
}

func TestAuthenticateTemporaryPasswordFlagged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"access_token":             testAccess,
			"refresh_token":            testRefresh,
			"password_change_required": true,
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"id":    "user-1",
			"email": testEmail,
		})
	})

	engine, _, done := newTestEngine(t, mux, nil)
	defer done()

	outcome, err := engine.Authenticate(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome.Kind != OutcomeOK {
		t.Fatalf("expected OutcomeOK, got %+v", outcome)
	}
	if !outcome.Session.NeedsPasswordReset {
		t.Fatal("expected session to carry the temporary-password flag")
	}
}

func TestAuthenticateMFARequiredSingleMethodSkipsSelection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code string `json:"totp_code"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body.Code == "" {
			writeTestJSON(t, w, http.StatusUnauthorized, map[string]any{
				"detail":       "MFA_REQUIRED_SMS",
				"masked_phone": "+1******1234",
			})
			return
		}
		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"access_token":  testAccess,
			"refresh_token": testRefresh,
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{"id": "user-1", "email": testEmail})
	})

	engine, _, done := newTestEngine(t, mux, nil)
	defer done()

	outcome, err := engine.Authenticate(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if outcome.Kind != OutcomeMFARequired {
		t.Fatalf("expected OutcomeMFARequired, got %+v", outcome)
	}

	neg := outcome.Challenge
	if neg == nil {
		t.Fatal("expected a challenge negotiator")
	}
	if neg.Stage() != StageVerification {
		t.Fatalf("expected single-method challenge to start in verification, got %q", neg.Stage())
	}
	if neg.Method() != MFAMethodSMS {
		t.Fatalf("expected sms method, got %q", neg.Method())
	}
	if neg.MaskedPhone() != "+1******1234" {
		t.Fatalf("expected masked phone hint, got %q", neg.MaskedPhone())
	}
}
