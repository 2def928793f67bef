package session

// Session is the transportable session state: the token pair, its expiry,
// and the normalized claim flags. It is what the codec signs into the
// session cookie and what the store mirrors server-side.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	SessionID string
	UserID    string
	Email     string
	TenantID  string
	Provider  string

	AccessToken  string
	RefreshToken string
	ExpiresAt    int64

	NeedsPasswordReset bool
	Superuser          bool
	ApplicationAdmin   bool
	Manager            bool

	CreatedAt int64
}
