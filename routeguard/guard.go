package routeguard

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cleardrive/authkit/credstore"
)

// Action is the outcome of a gate decision.
type Action int

const (
	// ActionAllow is an exported constant or variable used by the route guard.
	ActionAllow Action = iota
	// ActionRedirect is an exported constant or variable used by the route guard.
	ActionRedirect
)

// Decision is the resolved gate outcome for one navigation.
type Decision struct {
	Action   Action
	Location string
}

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then
// treated as immutable unless documented otherwise.
type Config struct {
	Routes Routes
	// CookieName is the refresh-credential cookie mirror the guard inspects.
	CookieName string
	// LoginPath receives logged-out visitors of protected paths.
	LoginPath string
	// HomePath receives logged-in visitors of auth paths.
	HomePath string
	// SecurityHeaders enables the standard security response headers on every
	// response that passes through the guard.
	SecurityHeaders bool
}

// DefaultConfig returns the guard configuration for the ClearDrive route surface.
func DefaultConfig() Config {
	return Config{
		Routes:          DefaultRoutes(),
		CookieName:      "cleardrive_rt",
		LoginPath:       "/login",
		HomePath:        "/dashboard",
		SecurityHeaders: true,
	}
}

// Guard applies the edge-level route gate.
type Guard struct {
	cfg Config
	log zerolog.Logger
}

// New builds a Guard. Zero-value paths fall back to the defaults.
func New(cfg Config, log zerolog.Logger) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/dashboard"
	}
	return &Guard{cfg: cfg, log: log}
}

// Decide resolves the gate for a path given whether a refresh credential is
// present. It is a pure function and never fails.
func (g *Guard) Decide(path string, hasRefresh bool) Decision {
	switch g.cfg.Routes.Classify(path) {
	case ClassProtected:
		if !hasRefresh {
			return Decision{Action: ActionRedirect, Location: g.cfg.LoginPath}
		}
	case ClassAuth:
		if hasRefresh {
			return Decision{Action: ActionRedirect, Location: g.cfg.HomePath}
		}
	}
	return Decision{Action: ActionAllow}
}

// Middleware runs the gate before the wrapped handler. Redirects use 303 so the
// browser re-requests with GET regardless of the original method.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.cfg.SecurityHeaders {
			setSecurityHeaders(w.Header())
		}

		_, hasRefresh := credstore.ReadRefreshCookie(r, g.cfg.CookieName)
		decision := g.Decide(r.URL.Path, hasRefresh)
		if decision.Action == ActionRedirect {
			g.log.Debug().
				Str("path", r.URL.Path).
				Str("location", decision.Location).
				Bool("has_refresh", hasRefresh).
				Msg("route gate redirect")
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Content-Security-Policy",
		"default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
}
