// Package schemacache keeps the process-local schemas consistent with the
// fingerprints published in the shared cache.
//
// # Staleness protocol
//
// GetOrBuild returns the schema resident for an identity. Before reusing a local
// schema it compares the schema's fingerprint with the shared one; a missing or
// different shared fingerprint, or a shared cache that cannot be read, marks the
// local schema stale and forces a rebuild through the caller's Provider.
//
// A rebuild always produces a new *schema.Schema that replaces the previous one
// in a single locked swap, so concurrent readers observe the old or the new schema
// and never a partial one. Concurrent rebuilds of one identity within a process are
// collapsed with singleflight.
//
// Across processes the shared fingerprint is the only coordination signal. There is
// no distributed lock: two processes may rebuild and publish concurrently, the last
// write wins, and every other process converges on its next read.
//
// # Notifications
//
// Listeners registered with Subscribe are called after every rebuild with the new
// schema. They are one-way notifications; listeners must not block.
package schemacache
