package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrCookieInvalid is returned for cookies that fail signature or claim
// validation, including expired ones.
var ErrCookieInvalid = errors.New("session cookie invalid")

// Codec signs [Session] values into compact JWT cookies and verifies them
// back. The cookie is the signed server-side session object: tampering with
// any field invalidates the signature.
//
//	Docs: docs/session.md
type Codec struct {
	key []byte
	ttl time.Duration
}

// NewCodec creates a [Codec] with the given HMAC signing key and cookie
// lifetime.
func NewCodec(key []byte, ttl time.Duration) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key required")
	}
	if ttl <= 0 {
		return nil, errors.New("cookie ttl must be positive")
	}
	return &Codec{key: key, ttl: ttl}, nil
}

type cookieClaims struct {
	Email              string `json:"email"`
	TenantID           string `json:"tid,omitempty"`
	Provider           string `json:"prv,omitempty"`
	AccessToken        string `json:"at"`
	RefreshToken       string `json:"rt"`
	TokenExpiresAt     int64  `json:"texp"`
	NeedsPasswordReset bool   `json:"npr"`
	Superuser          bool   `json:"su,omitempty"`
	ApplicationAdmin   bool   `json:"aa,omitempty"`
	Manager            bool   `json:"mgr,omitempty"`
	CreatedAt          int64  `json:"cat,omitempty"`
	jwt.RegisteredClaims
}

type overrideClaims struct {
	NeedsPasswordReset bool `json:"npr"`
	jwt.RegisteredClaims
}

// Encode signs sess into a cookie value. The cookie lifetime is the codec's
// TTL, independent of the access-token lease inside it.
func (c *Codec) Encode(sess *Session) (string, error) {
	if sess == nil {
		return "", errors.New("nil session")
	}

	now := time.Now()
	claims := cookieClaims{
		Email:              sess.Email,
		TenantID:           sess.TenantID,
		Provider:           sess.Provider,
		AccessToken:        sess.AccessToken,
		RefreshToken:       sess.RefreshToken,
		TokenExpiresAt:     sess.ExpiresAt,
		NeedsPasswordReset: sess.NeedsPasswordReset,
		Superuser:          sess.Superuser,
		ApplicationAdmin:   sess.ApplicationAdmin,
		Manager:            sess.Manager,
		CreatedAt:          sess.CreatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			ID:        sess.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies a cookie value and rebuilds the [Session].
func (c *Codec) Decode(value string) (*Session, error) {
	claims := &cookieClaims{}
	token, err := jwt.ParseWithClaims(value, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrCookieInvalid
	}

	return &Session{
		SessionID:          claims.ID,
		UserID:             claims.Subject,
		Email:              claims.Email,
		TenantID:           claims.TenantID,
		Provider:           claims.Provider,
		AccessToken:        claims.AccessToken,
		RefreshToken:       claims.RefreshToken,
		ExpiresAt:          claims.TokenExpiresAt,
		NeedsPasswordReset: claims.NeedsPasswordReset,
		Superuser:          claims.Superuser,
		ApplicationAdmin:   claims.ApplicationAdmin,
		Manager:            claims.Manager,
		CreatedAt:          claims.CreatedAt,
	}, nil
}

// EncodeOverride signs the short-lived password-reset override cookie the
// gate uses when the backend's live flag disagrees with the session cookie.
func (c *Codec) EncodeOverride(needsReset bool, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("override ttl must be positive")
	}

	now := time.Now()
	claims := overrideClaims{
		NeedsPasswordReset: needsReset,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// DecodeOverride verifies an override cookie and returns the flag it holds.
func (c *Codec) DecodeOverride(value string) (bool, error) {
	claims := &overrideClaims{}
	token, err := jwt.ParseWithClaims(value, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return false, ErrCookieInvalid
	}
	return claims.NeedsPasswordReset, nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.key, nil
}
