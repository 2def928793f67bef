package sessiongate

import (
	"context"

	"github.com/kestrelworks/sessiongate/internal/identity"
)

type tenantIDContextKey struct{}
type requestPathContextKey struct{}

// WithTenantID attaches a tenant identifier to ctx. It overrides the
// configured tenant for the identity-service calls made under this context.
// When absent, the configured default tenant is used.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	ctx = identity.WithTenant(ctx, tenantID)
	return context.WithValue(ctx, tenantIDContextKey{}, tenantID)
}

// WithRequestPath attaches the current request path to ctx. The session
// validator consults it to skip validation entirely on auth-related pages.
func WithRequestPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, requestPathContextKey{}, path)
}

func tenantIDFromContext(ctx context.Context, fallback string) string {
	if ctx == nil {
		return fallback
	}

	tenantID, _ := ctx.Value(tenantIDContextKey{}).(string)
	if tenantID == "" {
		return fallback
	}

	return tenantID
}

func requestPathFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	path, _ := ctx.Value(requestPathContextKey{}).(string)
	return path
}
