package sessiongate

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the session engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is an exported constant or variable used by the session engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrEmailNotVerified is an exported constant or variable used by the session engine.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrLoginRateLimited is an exported constant or variable used by the session engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrMFACodeInvalid is an exported constant or variable used by the session engine.
	ErrMFACodeInvalid = errors.New("invalid mfa code")
	// ErrMFACodeResendLimited is an exported constant or variable used by the session engine.
	ErrMFACodeResendLimited = errors.New("mfa code resend rate limited")
	// ErrMFAMethodUnavailable is an exported constant or variable used by the session engine.
	ErrMFAMethodUnavailable = errors.New("mfa method unavailable")
	// ErrMFAChallengeCancelled is an exported constant or variable used by the session engine.
	ErrMFAChallengeCancelled = errors.New("mfa challenge cancelled")
	// ErrMFAChallengeExpired is an exported constant or variable used by the session engine.
	ErrMFAChallengeExpired = errors.New("mfa challenge expired")
	// ErrMFAChallengeStage is an exported constant or variable used by the session engine.
	ErrMFAChallengeStage = errors.New("operation not valid in current challenge stage")
	// ErrRefreshFailed is an exported constant or variable used by the session engine.
	ErrRefreshFailed = errors.New("RefreshAccessTokenError")
	// ErrTokenNotExpired is an exported constant or variable used by the session engine.
	ErrTokenNotExpired = errors.New("access token not expired")
	// ErrSessionRevoked is an exported constant or variable used by the session engine.
	ErrSessionRevoked = errors.New("session revoked by identity service")
	// ErrNoSession is an exported constant or variable used by the session engine.
	ErrNoSession = errors.New("no active session")
	// ErrPasswordPolicy is an exported constant or variable used by the session engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrBackendUnavailable is an exported constant or variable used by the session engine.
	ErrBackendUnavailable = errors.New("identity service unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
