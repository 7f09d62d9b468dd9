package authkit

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then
// treated as immutable unless documented otherwise.
type Config struct {
	API         APIConfig
	Credentials CredentialConfig
	OTP         OTPConfig
	Refresh     RefreshConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig defines a public type used by authkit APIs.
//
// APIConfig instances are intended to be configured during initialization and then
// treated as immutable unless documented otherwise.
type APIConfig struct {
	// BaseURL is the common prefix for all backend endpoints, e.g.
	// "https://api.cleardrive.lk/api/v1".
	BaseURL string
	// Timeout applies to every backend call. Zero means the http.Client default.
	Timeout time.Duration
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig defines a public type used by authkit APIs.
//
// CredentialConfig instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type CredentialConfig struct {
	// CookieName is the cookie mirror of the refresh credential. The route guard
	// inspects this cookie, so the mirrored credential must stay the refresh one.
	CookieName string
	// CookieMaxAge bounds the cookie mirror lifetime.
	CookieMaxAge time.Duration
	// RedisPrefix namespaces keys when the durable tier is redis-backed.
	RedisPrefix string
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig defines a public type used by authkit APIs.
//
// OTPConfig instances are intended to be configured during initialization and then
// treated as immutable unless documented otherwise.
type OTPConfig struct {
	// Digits is the fixed passcode length accepted by the verification step.
	Digits int
	// ResendCooldown is the client-enforced minimum gap between resend requests.
	// The backend remains the authority on actual rate limiting.
	ResendCooldown time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig defines a public type used by authkit APIs.
//
// RefreshConfig instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type RefreshConfig struct {
	// Timeout bounds the refresh call itself, independent of the request that
	// triggered it. Zero means APIConfig.Timeout.
	Timeout time.Duration
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout: 15 * time.Second,
		},
		Credentials: CredentialConfig{
			CookieName:   "cleardrive_rt",
			CookieMaxAge: 30 * 24 * time.Hour,
			RedisPrefix:  "authkit",
		},
		OTP: OTPConfig{
			Digits:         6,
			ResendCooldown: 30 * time.Second,
		},
		Refresh: RefreshConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when the configuration cannot produce a working
// engine. It does not mutate the receiver.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API.BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("API.BaseURL must be an absolute URL")
	}
	if c.Credentials.CookieName == "" {
		return errors.New("Credentials.CookieName is required")
	}
	if c.Credentials.CookieMaxAge <= 0 {
		return errors.New("Credentials.CookieMaxAge must be positive")
	}
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP.Digits must be between 4 and 10")
	}
	if c.OTP.ResendCooldown < 0 {
		return errors.New("OTP.ResendCooldown must not be negative")
	}
	return nil
}
