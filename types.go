package authkit

import (
	"strings"
	"time"
)

// Role is the small closed set of identities the client distinguishes for UI
// purposes. Roles are hints mirrored from the backend, never a security boundary;
// real enforcement happens server-side.
type Role string

const (
	// RoleCustomer is an exported constant or variable used by the session engine.
	RoleCustomer Role = "customer"
	// RoleAdmin is an exported constant or variable used by the session engine.
	RoleAdmin Role = "admin"
	// RoleExporter is an exported constant or variable used by the session engine.
	RoleExporter Role = "exporter"
	// RoleAgent is an exported constant or variable used by the session engine.
	RoleAgent Role = "agent"
)

// NormalizeRole maps the backend's role spelling onto the internal closed set.
// Matching is case-insensitive; anything outside the set collapses to
// [RoleCustomer] rather than leaking unknown role strings into the UI layer.
func NormalizeRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleExporter:
		return RoleExporter
	case RoleAgent:
		return RoleAgent
	default:
		return RoleCustomer
	}
}

// TokenPair defines a public type used by authkit APIs.
//
// TokenPair instances are intended to be treated as opaque: the access credential
// authorizes API calls as a bearer header, the refresh credential is used solely to
// mint new access credentials and is never sent as a bearer header.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Profile is the user identity returned by the backend on a successful
// credential exchange.
type Profile struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// Session is the in-memory representation of the authenticated identity. It is
// derived from a credential exchange (login, OTP verification, or refresh-triggered
// restore) and destroyed on logout or unrecoverable refresh failure.
//
// Session is NOT the source of truth for "is the user logged in across restarts";
// that role belongs to the persisted refresh credential.
type Session struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role

	// ExpiresAt is the access credential expiry when the credential is a JWT
	// carrying an exp claim; zero otherwise.
	ExpiresAt time.Time

	// Pending marks a session synthesized from a persisted credential before the
	// real identity has been fetched. Callers should treat it as authenticated but
	// refresh the profile when it matters.
	Pending bool
}

// sessionFromProfile builds the in-memory session for a backend profile.
func sessionFromProfile(p Profile) Session {
	return Session{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.Name,
		Role:        NormalizeRole(p.Role),
	}
}
