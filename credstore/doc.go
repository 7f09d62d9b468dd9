// Package credstore is the single authority for reading, writing, and clearing the
// access and refresh credentials across all storage tiers: an ephemeral tier holding
// the access credential for the life of the process, a durable tier holding the
// refresh credential across restarts, and a cookie mirror of the refresh credential
// readable by edge routing logic.
//
// No other package reads or writes a tier directly. A partial write (one tier
// updated, another not) is the defect class this package exists to prevent: Set and
// Clear are the only mutation paths and both settle every tier before returning.
package credstore
