package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()

	codec, err := NewCodec([]byte("codec-test-key-0123456789abcdef0"), time.Hour)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func sample() *Session {
	return &Session{
		SessionID:          "sess-1",
		UserID:             "user-1",
		Email:              "alice@example.com",
		TenantID:           "7",
		Provider:           "credentials",
		AccessToken:        "at-1",
		RefreshToken:       "rt-1",
		ExpiresAt:          time.Now().Add(time.Hour).Unix(),
		NeedsPasswordReset: true,
		Superuser:          true,
		Manager:            true,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	value, err := codec.Encode(sample())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := codec.Decode(value)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := sample()
	if got.SessionID != want.SessionID || got.UserID != want.UserID || got.TenantID != want.TenantID {
		t.Fatalf("identity fields mismatch: %+v", got)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Fatal("token fields mismatch")
	}
	if !got.NeedsPasswordReset || !got.Superuser || !got.Manager || got.ApplicationAdmin {
		t.Fatalf("flag fields mismatch: %+v", got)
	}
}

func TestCodecRejectsTamperedValue(t *testing.T) {
	codec := newTestCodec(t)

	value, err := codec.Encode(sample())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tampered := value[:len(value)-2] + "xx"
	if _, err := codec.Decode(tampered); !errors.Is(err, ErrCookieInvalid) {
		t.Fatalf("expected ErrCookieInvalid, got %v", err)
	}
}

func TestCodecRejectsWrongKey(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec([]byte("another-key-another-key-another!"), time.Hour)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	value, err := codec.Encode(sample())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := other.Decode(value); !errors.Is(err, ErrCookieInvalid) {
		t.Fatalf("expected ErrCookieInvalid, got %v", err)
	}
}

func TestCodecOverrideRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, needsReset := range []bool{true, false} {
		value, err := codec.EncodeOverride(needsReset, time.Minute)
		if err != nil {
			t.Fatalf("EncodeOverride failed: %v", err)
		}

		got, err := codec.DecodeOverride(value)
		if err != nil {
			t.Fatalf("DecodeOverride failed: %v", err)
		}
		if got != needsReset {
			t.Fatalf("expected %v, got %v", needsReset, got)
		}
	}
}

func TestCodecOverrideExpired(t *testing.T) {
	codec := newTestCodec(t)

	claims := overrideClaims{
		NeedsPasswordReset: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.key)
	if err != nil {
		t.Fatalf("sign expired override: %v", err)
	}

	if _, err := codec.DecodeOverride(value); !errors.Is(err, ErrCookieInvalid) {
		t.Fatalf("expected ErrCookieInvalid for expired override, got %v", err)
	}
}
