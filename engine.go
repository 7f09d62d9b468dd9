package authkit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleardrive/authkit/credstore"
	"github.com/cleardrive/authkit/internal/flows"
	"github.com/cleardrive/authkit/internal/rest"
	"github.com/cleardrive/authkit/transport"
)

// Engine defines a public type used by authkit APIs.
//
// Engine is the single authority over the session lifecycle: it owns the
// credential store, the refresh coordinator, the authenticated HTTP client, and
// the login machine. Construct one per process through [Builder.Build] and treat
// it as immutable afterwards; all methods are safe for concurrent use.
type Engine struct {
	config        Config
	store         *credstore.Store
	rest          *rest.Client
	coordinator   *transport.Coordinator
	httpClient    *http.Client
	login         *flows.LoginMachine
	metrics       *Metrics
	log           zerolog.Logger
	now           func() time.Time
	onInvalidated func()

	mu      sync.Mutex
	session *Session
}

// HTTPClient returns the authenticated client for resource calls: every request
// carries the current access credential and transparently recovers from a 401
// through the refresh coordinator.
func (e *Engine) HTTPClient() *http.Client {
	return e.httpClient
}

// Session returns a copy of the in-memory session, if one exists.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// Logout invalidates the session server-side (best-effort; the backend outcome
// is logged and swallowed), then unconditionally clears every credential tier and
// drops the in-memory session.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if access, ok := e.store.Access(); ok {
		if err := e.rest.Logout(ctx, access); err != nil {
			e.log.Warn().Err(err).Msg("backend logout failed, clearing locally anyway")
		}
	}
	err := e.store.Clear(ctx)
	e.setSession(nil)
	e.metrics.Inc(MetricLogout)
	return err
}

// Close releases the engine's storage resources.
func (e *Engine) Close() error {
	if e == nil || e.store == nil {
		return nil
	}
	return e.store.Close()
}

func (e *Engine) setSession(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = s
}

// invalidateSession clears every tier and drops the in-memory session, then
// fires the invalidation hook. Safe to call repeatedly; a second unrelated 401
// arriving after the first clear lands here again without harm.
func (e *Engine) invalidateSession(ctx context.Context) {
	if err := e.store.Clear(ctx); err != nil {
		e.log.Warn().Err(err).Msg("credential clear during invalidation failed")
	}
	e.setSession(nil)
	e.metrics.Inc(MetricSessionInvalidated)
	if e.onInvalidated != nil {
		e.onInvalidated()
	}
}
