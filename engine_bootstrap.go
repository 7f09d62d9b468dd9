package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cleardrive/authkit/credstore"
)

// Bootstrap restores the authenticated session on application start or route
// entry. It proceeds in order of cheapness:
//
//  1. An in-memory session already exists — returned immediately.
//  2. A durable refresh credential exists — an access credential is acquired
//     (reusing the stored one when present, otherwise through the refresh
//     coordinator) and a session is synthesized from its claims.
//  3. Neither exists — ErrNoSession; the caller redirects to login and renders
//     nothing in the meantime.
//
// Bootstrap never panics on absent credentials; absence always resolves to
// ErrNoSession or ErrSessionExpired, both of which mean "redirect to login".
func (e *Engine) Bootstrap(ctx context.Context) (Session, error) {
	if e == nil || e.store == nil {
		return Session{}, ErrEngineNotReady
	}

	if session, ok := e.Session(); ok {
		return session, nil
	}

	if _, err := e.store.Refresh(ctx); err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}

	access, ok := e.store.Access()
	if !ok {
		minted, err := e.coordinator.Await(ctx)
		if err != nil {
			return Session{}, err
		}
		access = minted
	}

	session := sessionFromAccessToken(access)
	e.setSession(&session)
	e.metrics.Inc(MetricSessionBootstrapped)
	e.log.Debug().Bool("pending", session.Pending).Msg("session restored from persisted credentials")
	return session, nil
}

// sessionFromAccessToken synthesizes the in-memory session from the access
// credential's claims. The signature is deliberately not checked — the backend
// verifies it on every call; the client only mirrors identity for UI purposes.
// An opaque (non-JWT) credential yields a pending placeholder session.
func sessionFromAccessToken(token string) Session {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{Pending: true}
	}

	session := Session{
		Email:       claimString(claims, "email"),
		DisplayName: claimString(claims, "name"),
		Role:        NormalizeRole(claimString(claims, "role")),
	}
	if sub, err := claims.GetSubject(); err == nil {
		session.ID = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	session.Pending = session.ID == "" && session.Email == ""
	return session
}

// accessTokenExpiry extracts the exp claim of a JWT access credential.
func accessTokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func claimString(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}
