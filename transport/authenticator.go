package transport

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// CredentialSource supplies the current access credential on every outbound call.
type CredentialSource interface {
	Access() (string, bool)
}

// Authenticator is an http.RoundTripper that injects the current access
// credential as a bearer header when one is present and otherwise sends the
// request unauthenticated. When built with a Coordinator it also recovers from
// 401 responses: the failing request waits for a (possibly shared) refresh and is
// replayed exactly once with the new credential.
type Authenticator struct {
	base        http.RoundTripper
	source      CredentialSource
	coordinator *Coordinator
	log         zerolog.Logger
}

// NewAuthenticator wraps base. A nil base falls back to http.DefaultTransport; a
// nil coordinator disables refresh recovery, leaving the authenticator a pure
// header-injecting transform.
func NewAuthenticator(base http.RoundTripper, source CredentialSource, coordinator *Coordinator, log zerolog.Logger) *Authenticator {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Authenticator{
		base:        base,
		source:      source,
		coordinator: coordinator,
		log:         log,
	}
}

// RoundTrip implements http.RoundTripper.
func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	authed := req.Clone(req.Context())
	if token, ok := a.source.Access(); ok {
		authed.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.base.RoundTrip(authed)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || a.coordinator == nil {
		return resp, err
	}
	if retriedFromContext(req.Context()) {
		// Already replayed once after a refresh; the 401 propagates as-is.
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// The body was consumed and cannot be rebuilt, so the request cannot be
		// safely replayed.
		return resp, nil
	}

	drain(resp)

	token, refreshErr := a.coordinator.Await(req.Context())
	if refreshErr != nil {
		// Queued requests are rejected with the refresh error, never left hanging
		// on a response that no longer matters.
		return nil, refreshErr
	}

	retry := req.Clone(withRetried(req.Context()))
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, bodyErr
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)
	a.log.Debug().Str("path", req.URL.Path).Msg("replaying request after refresh")
	return a.base.RoundTrip(retry)
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
