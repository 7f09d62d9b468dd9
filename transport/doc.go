// Package transport carries every outbound API call: an http.RoundTripper that
// attaches the current access credential as a bearer header, and the refresh
// coordinator that recovers from authentication failures.
//
// The coordinator upholds the one mandatory mutual-exclusion invariant in the
// system: at most one refresh call is in flight system-wide. Requests that fail
// with 401 while a refresh is pending wait for that flight's outcome — they are
// settled exactly once, with the new credential on success or the refresh error on
// failure, and no waiter is ever dropped. A request is replayed at most once,
// tracked through a per-request context marker.
package transport
