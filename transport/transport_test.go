package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type blockingRefresher struct {
	calls   atomic.Int64
	release chan struct{}
	token   string
	err     error
}

func (r *blockingRefresher) Refresh(ctx context.Context) (string, error) {
	r.calls.Add(1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.token, r.err
}

func TestCoordinatorSingleFlight(t *testing.T) {
	refresher := &blockingRefresher{release: make(chan struct{}), token: "minted"}
	coordinator := NewCoordinator(refresher, zerolog.Nop())

	const waiters = 25
	results := make(chan string, waiters)
	failures := make(chan error, waiters)

	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := coordinator.Await(context.Background())
			if err != nil {
				failures <- err
				return
			}
			results <- token
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for coordinator.Waiting() < waiters {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d waiters queued", coordinator.Waiting(), waiters)
		}
		time.Sleep(time.Millisecond)
	}
	close(refresher.release)
	wg.Wait()
	close(results)
	close(failures)

	for err := range failures {
		t.Fatalf("waiter failed: %v", err)
	}
	settled := 0
	for token := range results {
		settled++
		if token != "minted" {
			t.Fatalf("waiter got token %q, want %q", token, "minted")
		}
	}
	if settled != waiters {
		t.Fatalf("settled %d waiters, want %d", settled, waiters)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("refresher ran %d times, want exactly 1", got)
	}
}

func TestCoordinatorSharesFailure(t *testing.T) {
	refreshErr := errors.New("refresh credential rejected")
	refresher := &blockingRefresher{release: make(chan struct{}), err: refreshErr}
	coordinator := NewCoordinator(refresher, zerolog.Nop())

	const waiters = 8
	failures := make(chan error, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinator.Await(context.Background())
			failures <- err
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for coordinator.Waiting() < waiters {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d waiters queued", coordinator.Waiting(), waiters)
		}
		time.Sleep(time.Millisecond)
	}
	close(refresher.release)
	wg.Wait()
	close(failures)

	for err := range failures {
		if !errors.Is(err, refreshErr) {
			t.Fatalf("waiter got %v, want the shared refresh error", err)
		}
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("refresher ran %d times, want exactly 1", got)
	}
}

func TestCoordinatorCanceledWaiterDoesNotKillFlight(t *testing.T) {
	refresher := &blockingRefresher{release: make(chan struct{}), token: "minted"}
	coordinator := NewCoordinator(refresher, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan error, 1)
	go func() {
		_, err := coordinator.Await(ctx)
		canceled <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for coordinator.Waiting() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("first waiter never queued")
		}
		time.Sleep(time.Millisecond)
	}

	patient := make(chan string, 1)
	go func() {
		token, err := coordinator.Await(context.Background())
		if err != nil {
			t.Errorf("patient waiter failed: %v", err)
		}
		patient <- token
	}()
	for coordinator.Waiting() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("second waiter never queued")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-canceled; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled waiter got %v, want context.Canceled", err)
	}

	close(refresher.release)
	if token := <-patient; token != "minted" {
		t.Fatalf("patient waiter got %q, want %q", token, "minted")
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("refresher ran %d times, want exactly 1", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type staticSource struct {
	mu    sync.Mutex
	token string
}

func (s *staticSource) Access() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *staticSource) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func respond(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("{}")),
		Header:     http.Header{},
	}
}

func TestAuthenticatorInjectsBearer(t *testing.T) {
	source := &staticSource{token: "access-1"}
	var seen string
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = req.Header.Get("Authorization")
		return respond(http.StatusOK), nil
	})

	auth := NewAuthenticator(base, source, nil, zerolog.Nop())
	req, _ := http.NewRequest(http.MethodGet, "http://api.test/orders", nil)
	resp, err := auth.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()
	if seen != "Bearer access-1" {
		t.Fatalf("Authorization = %q, want %q", seen, "Bearer access-1")
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("original request must not be mutated")
	}
}

func TestAuthenticatorSendsUnauthenticatedWithoutCredential(t *testing.T) {
	source := &staticSource{}
	var sawHeader bool
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		sawHeader = req.Header.Get("Authorization") != ""
		return respond(http.StatusOK), nil
	})

	auth := NewAuthenticator(base, source, nil, zerolog.Nop())
	req, _ := http.NewRequest(http.MethodGet, "http://api.test/home", nil)
	resp, err := auth.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()
	if sawHeader {
		t.Fatal("request must go out without an Authorization header")
	}
}

func TestAuthenticatorReplaysOnceAfterRefresh(t *testing.T) {
	source := &staticSource{token: "stale"}
	refresher := &blockingRefresher{token: "fresh"}
	coordinator := NewCoordinator(refresherWithSideEffect{refresher, func() { source.set("fresh") }}, zerolog.Nop())

	var headers []string
	var bodies []string
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		headers = append(headers, req.Header.Get("Authorization"))
		if req.Body != nil {
			raw, _ := io.ReadAll(req.Body)
			bodies = append(bodies, string(raw))
		}
		if req.Header.Get("Authorization") != "Bearer fresh" {
			return respond(http.StatusUnauthorized), nil
		}
		return respond(http.StatusOK), nil
	})

	auth := NewAuthenticator(base, source, coordinator, zerolog.Nop())
	req, _ := http.NewRequest(http.MethodPost, "http://api.test/orders", strings.NewReader(`{"vehicle":"hiace"}`))
	resp, err := auth.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(headers) != 2 || headers[0] != "Bearer stale" || headers[1] != "Bearer fresh" {
		t.Fatalf("bearer sequence = %v", headers)
	}
	if len(bodies) != 2 || bodies[1] != `{"vehicle":"hiace"}` {
		t.Fatalf("replayed body = %v, want original payload twice", bodies)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("refresher ran %d times, want exactly 1", got)
	}
}

func TestAuthenticatorNeverReplaysTwice(t *testing.T) {
	source := &staticSource{token: "stale"}
	refresher := &blockingRefresher{token: "still-rejected"}
	coordinator := NewCoordinator(refresher, zerolog.Nop())

	var attempts int
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return respond(http.StatusUnauthorized), nil
	})

	auth := NewAuthenticator(base, source, coordinator, zerolog.Nop())
	req, _ := http.NewRequest(http.MethodGet, "http://api.test/orders", nil)
	resp, err := auth.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want the second 401 surfaced", resp.StatusCode)
	}
	if attempts != 2 {
		t.Fatalf("base transport saw %d attempts, want exactly 2", attempts)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("refresher ran %d times, want exactly 1", got)
	}
}

func TestAuthenticatorRejectsRequestOnRefreshFailure(t *testing.T) {
	refreshErr := errors.New("session gone")
	source := &staticSource{token: "stale"}
	coordinator := NewCoordinator(&blockingRefresher{err: refreshErr}, zerolog.Nop())

	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusUnauthorized), nil
	})

	auth := NewAuthenticator(base, source, coordinator, zerolog.Nop())
	req, _ := http.NewRequest(http.MethodGet, "http://api.test/orders", nil)
	resp, err := auth.RoundTrip(req)
	if !errors.Is(err, refreshErr) {
		t.Fatalf("err = %v, want the refresh error", err)
	}
	if resp != nil {
		t.Fatal("no response must be returned alongside the refresh error")
	}
}

// refresherWithSideEffect runs fn after a successful refresh, standing in for the
// engine updating the credential store.
type refresherWithSideEffect struct {
	inner *blockingRefresher
	fn    func()
}

func (r refresherWithSideEffect) Refresh(ctx context.Context) (string, error) {
	token, err := r.inner.Refresh(ctx)
	if err == nil {
		r.fn()
	}
	return token, err
}
