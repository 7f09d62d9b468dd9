package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleardrive/authkit/credstore"
)

// Refresh forces a credential rotation, joining any refresh already in flight.
// On success the credential store holds the new pair; on failure the session is
// invalidated exactly as a transport-triggered refresh failure would.
func (e *Engine) Refresh(ctx context.Context) error {
	if e == nil || e.coordinator == nil {
		return ErrEngineNotReady
	}
	_, err := e.coordinator.Await(ctx)
	return err
}

// refreshCredentials is the single code path that calls the refresh endpoint. It
// runs inside the coordinator's flight, so at most one execution is in progress
// system-wide. Every failure mode ends with cleared credentials and an
// invalidated session — refresh failure is never recoverable locally.
func (e *Engine) refreshCredentials(ctx context.Context) (string, error) {
	if e.config.Refresh.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Refresh.Timeout)
		defer cancel()
	}

	refresh, err := e.store.Refresh(ctx)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.invalidateSession(ctx)
		if errors.Is(err, credstore.ErrNotFound) {
			return "", ErrNoRefreshCredential
		}
		return "", fmt.Errorf("%w: reading refresh credential: %w", ErrSessionExpired, err)
	}

	pair, err := e.rest.Refresh(ctx, refresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.invalidateSession(ctx)
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	if err := e.store.Set(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.invalidateSession(ctx)
		return "", fmt.Errorf("%w: persisting rotated credentials: %w", ErrSessionExpired, err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.refreshSessionExpiry(pair.AccessToken)
	return pair.AccessToken, nil
}

// refreshSessionExpiry keeps the in-memory session's expiry aligned with the
// rotated access credential without replacing the identity fields.
func (e *Engine) refreshSessionExpiry(accessToken string) {
	expiresAt, ok := accessTokenExpiry(accessToken)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.ExpiresAt = expiresAt
	}
}
