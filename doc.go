// Package authkit implements the client-side session and token lifecycle for the
// ClearDrive REST backend: OTP login, credential persistence across storage tiers,
// bearer injection on outbound calls, single-flight token refresh, and the route
// gating decision that depends on all of the above.
//
// The package is designed for concurrent callers: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (Session, TokenPair, MetricsSnapshot, etc.). The storage tiers live in
// credstore, the outbound request plumbing in transport, the edge redirect decision
// in routeguard, and the login state machine in internal/flows. All HTTP encoding and
// backend error-shape normalization lives under internal/rest and is never exported.
//
// # What this package must NOT do
//
//   - Read or write a storage tier directly; every credential mutation goes through
//     the credstore.Store owned by the Engine.
//   - Start a second refresh while one is in flight; the transport coordinator is
//     the only component allowed to call the refresh endpoint during normal operation.
//   - Treat the in-memory Session as the source of truth for "still logged in" — the
//     durable refresh credential is.
package authkit
