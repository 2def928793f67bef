package sessiongate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
	testAccess   = "access-token-1"
	testRefresh  = "refresh-token-1"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.Identity.BaseURL = baseURL
	cfg.Session.SigningKey = []byte("test-signing-key-0123456789abcdef")
	cfg.Validation.BackoffStep = time.Millisecond
	cfg.Validation.AttemptTimeoutBase = 500 * time.Millisecond
	cfg.Validation.AttemptTimeoutStep = 100 * time.Millisecond
	return cfg
}

func newTestEngine(t *testing.T, handler http.Handler, mutate func(*Config)) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()
	return newTestEngineWithSink(t, handler, nil, mutate)
}

func newTestEngineWithSink(t *testing.T, handler http.Handler, sink AuditSink, mutate func(*Config)) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	srv := httptest.NewServer(handler)

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}

	builder := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(zerolog.Nop())
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		srv.Close()
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	done := func() {
		engine.Close()
		srv.Close()
		_ = rdb.Close()
		mr.Close()
	}

	return engine, mr, done
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// happyIdentity is an identity-service stub that accepts the test
// credentials, serves a fixed user detail, and validates every session.
func happyIdentity(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body.Email != testEmail || body.Password != testPassword {
			writeTestJSON(t, w, http.StatusUnauthorized, map[string]any{"detail": "Incorrect email or password"})
			return
		}

		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"access_token":  testAccess,
			"refresh_token": testRefresh,
			"token_type":    "bearer",
		})
	})

	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body.RefreshToken == "" {
			writeTestJSON(t, w, http.StatusUnauthorized, map[string]any{"detail": "Invalid refresh token"})
			return
		}

		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"access_token":  "access-token-2",
			"refresh_token": "refresh-token-2",
		})
	})

	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"id":           "user-1",
			"email":        testEmail,
			"is_superuser": true,
		})
	})

	mux.HandleFunc("/api/auth/validate-session", func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"valid":   true,
			"user_id": "user-1",
			"email":   testEmail,
		})
	})

	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func testSession() *Session {
	return &Session{
		SessionID:    "sess-1",
		UserID:       "user-1",
		Email:        testEmail,
		TenantID:     "0",
		Provider:     ProviderCredentials,
		AccessToken:  testAccess,
		RefreshToken: testRefresh,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}
