// Package identity is the HTTP transport to the external identity service.
// It owns request shaping (tenant header, bearer auth, bounded timeouts) and
// error-shape normalization; policy — retries, fail-open classification,
// outcome mapping — stays with the engine.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnreachable wraps transport-level failures (connection refused, DNS,
// timeout). Callers classify these as transient.
var ErrUnreachable = errors.New("identity service unreachable")

// Config holds the client's connection parameters.
type Config struct {
	BaseURL        string
	TenantID       string
	TenantHeader   string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client is a thin, concurrency-safe identity-service client.
type Client struct {
	baseURL      string
	tenantID     string
	tenantHeader string
	timeout      time.Duration
	http         *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity base URL required")
	}
	if cfg.TenantHeader == "" {
		cfg.TenantHeader = "X-Tenant-ID"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:      base,
		tenantID:     cfg.TenantID,
		tenantHeader: cfg.TenantHeader,
		timeout:      cfg.RequestTimeout,
		http:         httpClient,
	}, nil
}

type tenantContextKey struct{}

// WithTenant pins the tenant header for identity-service calls made under
// ctx, overriding the client's configured default tenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

func (c *Client) tenantFor(ctx context.Context) string {
	if id, _ := ctx.Value(tenantContextKey{}).(string); id != "" {
		return id
	}
	return c.tenantID
}

// StatusError is a non-2xx response from the identity service with its
// normalized detail string.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("identity service status %d", e.Code)
	}
	return e.Detail
}

// MFARequiredError is the sentinel outcome of a credential exchange that
// needs a second factor. It is not a failure; the engine routes it into the
// challenge negotiator.
type MFARequiredError struct {
	Sentinel    string // MFA_REQUIRED_TOTP | MFA_REQUIRED_SMS | MFA_REQUIRED_EMAIL | MFA_REQUIRED_MULTIPLE
	Methods     []string
	MaskedPhone string
	MaskedEmail string
}

func (e *MFARequiredError) Error() string { return e.Sentinel }

// IsTransient reports whether err is a transport failure or a server-side
// (5xx) condition that the caller may retry and ultimately fail open on.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnreachable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return false
}

// IsUnauthorized reports whether err is an authoritative 401/403 rejection.
func IsUnauthorized(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
	}
	return false
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"totp_code,omitempty"`
	Method   string `json:"mfa_method,omitempty"`
}

type LoginResponse struct {
	AccessToken            string `json:"access_token"`
	RefreshToken           string `json:"refresh_token"`
	TokenType              string `json:"token_type"`
	PasswordChangeRequired bool   `json:"password_change_required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type ValidateResponse struct {
	Valid               bool   `json:"valid"`
	Reason              string `json:"reason"`
	UserID              string `json:"user_id"`
	Email               string `json:"email"`
	IsPasswordTemporary bool   `json:"is_password_temporary"`
}

type UserDetail struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	IsSuperuser         bool   `json:"is_superuser"`
	ApplicationAdmin    bool   `json:"application_admin"`
	IsManager           bool   `json:"is_manager"`
	IsPasswordTemporary bool   `json:"is_password_temporary"`
	MFAEnabled          bool   `json:"mfa_enabled"`
}

type errorBody struct {
	Detail      string   `json:"detail"`
	Methods     []string `json:"mfa_methods"`
	MaskedPhone string   `json:"masked_phone"`
	MaskedEmail string   `json:"masked_email"`
}

// Login performs the credential exchange. MFA sentinel responses surface as
// *MFARequiredError; other non-2xx responses as *StatusError.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges the refresh token for a new token pair. The identity
// service invalidates the old pair as part of the exchange; this client does
// not retry.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var out TokenPair
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateSession asks the identity service whether the access token is
// still accepted. The refresh token, when present, rides along so the
// service can pin the check to this session.
func (c *Client) ValidateSession(ctx context.Context, accessToken, refreshToken string) (*ValidateResponse, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/validate-session", accessToken, nil)
	if err != nil {
		return nil, err
	}
	if refreshToken != "" {
		req.Header.Set("X-Refresh-Token", refreshToken)
	}

	var out ValidateResponse
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the authenticated user detail used to normalize claims at the
// session boundary.
func (c *Client) Me(ctx context.Context, accessToken string) (*UserDetail, error) {
	var out UserDetail
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PasswordStatus reads the live temporary-password flag. The JWT-embedded
// flag can go stale relative to this, the backend's source of truth.
func (c *Client) PasswordStatus(ctx context.Context, accessToken string) (bool, error) {
	detail, err := c.Me(ctx, accessToken)
	if err != nil {
		return false, err
	}
	return detail.IsPasswordTemporary, nil
}

// ChangePassword submits a password change for the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, accessToken, currentPassword, newPassword string) error {
	body := map[string]string{
		"current_password": currentPassword,
		"new_password":     newPassword,
	}
	return c.do(ctx, http.MethodPost, "/api/auth/change-password", accessToken, body, nil)
}

// ResendSMSCode asks the identity service to re-send the pending SMS code.
// Rate limiting is enforced upstream and surfaces as a 429 StatusError.
func (c *Client) ResendSMSCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/api/sms-mfa/resend", "", body, nil)
}

// Logout invalidates the refresh token server-side. The service always
// invalidates, even for tokens it no longer recognizes.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", "", body, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path, accessToken string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(c.tenantHeader, c.tenantFor(ctx))
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return context.DeadlineExceeded
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &StatusError{Code: resp.StatusCode, Detail: "malformed response body"}
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, accessToken, body)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

// withDeadline applies the default request bound. Callers with their own
// deadline (the validator's progressive timeouts) keep it.
func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func normalizeError(code int, data []byte) error {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)

	if suffix, ok := strings.CutPrefix(eb.Detail, "MFA_REQUIRED_"); ok {
		methods := eb.Methods
		// Single-method sentinels carry the method in the suffix; only
		// MFA_REQUIRED_MULTIPLE lists methods in the body.
		if len(methods) == 0 && suffix != "MULTIPLE" {
			methods = []string{strings.ToLower(suffix)}
		}
		return &MFARequiredError{
			Sentinel:    eb.Detail,
			Methods:     methods,
			MaskedPhone: eb.MaskedPhone,
			MaskedEmail: eb.MaskedEmail,
		}
	}
	return &StatusError{Code: code, Detail: eb.Detail}
}
