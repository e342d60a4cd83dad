// Package schema synthesizes record schemas from survey-style definitions.
//
// A Definition is an ordered list of typed fields. The Synthesizer resolves every
// field through a fieldspec.Registry and produces an immutable Schema: an identity
// (namespace, name), the ordered column specs and a content Fingerprint.
//
// # Fingerprints
//
// The fingerprint is a domain-separated SHA-256 over the definition's hash source.
// The default hash source only covers the ordered (slug, type tag) pairs, so
// renaming a survey or rewording a question leaves the fingerprint unchanged while
// reordering, retyping, adding or removing a field changes it.
//
// # Records
//
// Schemas are plain values; records of a schema are accessed by column name through
// the RecordAccessor interface instead of generated Go types. Record.Values returns
// the values in column order.
package schema
