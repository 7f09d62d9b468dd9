// Package routeguard decides, before any page content is served, whether a
// navigation may proceed: protected paths require the mirrored refresh credential,
// auth paths (login, registration, verification) are forbidden once it exists, and
// everything unclassified is public.
//
// The decision is a pure function of the path and credential presence. It never
// fails: absence of credentials always resolves to a redirect, never a crash.
package routeguard
