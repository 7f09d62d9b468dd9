package credstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by durable tiers when no credential is stored.
var ErrNotFound = errors.New("credstore: credential not found")

// Ephemeral holds the access credential for the lifetime of the process. It is the
// tab-scoped tier: nothing written here survives a restart.
type Ephemeral interface {
	Set(value string) error
	Get() (string, bool)
	Clear()
}

// Durable holds the refresh credential across restarts.
type Durable interface {
	Put(ctx context.Context, value string) error
	Get(ctx context.Context) (string, error)
	Delete(ctx context.Context) error
	Close() error
}

// Mirror reflects the refresh credential into a cookie visible to edge routing
// logic. Implementations must make Clear effective even when Set never ran.
type Mirror interface {
	Set(value string, maxAge time.Duration) error
	Clear() error
}

// Store defines a public type used by authkit APIs.
//
// Store instances are intended to be constructed once at process start and treated
// as the only writer of the storage tiers for the application lifetime. All methods
// are safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	ephemeral    Ephemeral
	durable      Durable
	mirror       Mirror
	cookieMaxAge time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithMirror attaches a cookie mirror tier. Without one, Set and Clear operate on
// the ephemeral and durable tiers only.
func WithMirror(m Mirror, maxAge time.Duration) Option {
	return func(s *Store) {
		s.mirror = m
		s.cookieMaxAge = maxAge
	}
}

// New constructs a Store over the given tiers.
func New(ephemeral Ephemeral, durable Durable, opts ...Option) (*Store, error) {
	if ephemeral == nil {
		return nil, errors.New("credstore: ephemeral tier is required")
	}
	if durable == nil {
		return nil, errors.New("credstore: durable tier is required")
	}
	s := &Store{
		ephemeral: ephemeral,
		durable:   durable,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Set writes the access credential to the ephemeral tier and, when refresh is
// non-empty, the refresh credential to the durable tier and its cookie mirror.
//
// Set is atomic with respect to observers going through the Store: readers never
// see one tier updated and another not. If any tier write fails, every tier is
// cleared before the error is returned so the store is left empty, never torn.
func (s *Store) Set(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ephemeral.Set(access); err != nil {
		s.clearLocked(ctx)
		return fmt.Errorf("credstore: ephemeral write: %w", err)
	}
	if refresh == "" {
		return nil
	}
	if err := s.durable.Put(ctx, refresh); err != nil {
		s.clearLocked(ctx)
		return fmt.Errorf("credstore: durable write: %w", err)
	}
	if s.mirror != nil {
		if err := s.mirror.Set(refresh, s.cookieMaxAge); err != nil {
			s.clearLocked(ctx)
			return fmt.Errorf("credstore: mirror write: %w", err)
		}
	}
	return nil
}

// Access returns the current access credential, if any.
func (s *Store) Access() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ephemeral.Get()
}

// Refresh returns the persisted refresh credential. ErrNotFound means no
// credential is stored; any other error means the durable tier is unavailable.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durable.Get(ctx)
}

// Clear removes the access credential, refresh credential, and cookie mirror
// unconditionally. Every tier is attempted even when an earlier one fails; the
// returned error joins whatever failed. Clear is idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.ephemeral.Clear()
	var errs []error
	if err := s.durable.Delete(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		errs = append(errs, fmt.Errorf("credstore: durable clear: %w", err))
	}
	if s.mirror != nil {
		if err := s.mirror.Clear(); err != nil {
			errs = append(errs, fmt.Errorf("credstore: mirror clear: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the durable tier.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durable.Close()
}
