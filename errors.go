package authkit

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidEmail is an exported constant or variable used by the session engine.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidOTP is an exported constant or variable used by the session engine.
	ErrInvalidOTP = errors.New("invalid otp format")
	// ErrOTPRejected is an exported constant or variable used by the session engine.
	ErrOTPRejected = errors.New("otp rejected by backend")
	// ErrMissingEmail is an exported constant or variable used by the session engine.
	ErrMissingEmail = errors.New("no pending email for verification step")
	// ErrResendCooldown is an exported constant or variable used by the session engine.
	ErrResendCooldown = errors.New("otp resend cooldown active")
	// ErrPasswordMismatch is an exported constant or variable used by the session engine.
	ErrPasswordMismatch = errors.New("password confirmation does not match")
	// ErrNoRefreshCredential is an exported constant or variable used by the session engine.
	ErrNoRefreshCredential = errors.New("no refresh credential present")
	// ErrNoSession is an exported constant or variable used by the session engine.
	ErrNoSession = errors.New("no authenticated session")
	// ErrSessionExpired is an exported constant or variable used by the session engine.
	ErrSessionExpired = errors.New("session expired")
	// ErrBackendUnavailable is an exported constant or variable used by the session engine.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrGoogleIdentity is an exported constant or variable used by the session engine.
	ErrGoogleIdentity = errors.New("google identity verification failed")
)
