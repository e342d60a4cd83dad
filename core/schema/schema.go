package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"schema-sync/core/fieldspec"
)

// PrimaryKey is the reserved surrogate key column of every schema table.
const PrimaryKey = "id"

// fingerprintDomain separates schema fingerprints from any other hash of the same bytes.
const fingerprintDomain = "schema-sync/fingerprint/v1"

// Fingerprint identifies the structural version of a schema.
type Fingerprint string

// ComputeFingerprint hashes a canonical hash source.
// Format: hex(SHA256(domain + 0x00 + source)).
func ComputeFingerprint(source []byte) Fingerprint {
	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write(source)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Schema is an immutable, synthesized record type.
type Schema struct {
	identity    Identity
	slug        string
	label       string
	columns     []fieldspec.ColumnSpec
	index       map[string]int
	fingerprint Fingerprint
}

// Identity returns the namespace and name of the schema.
func (s *Schema) Identity() Identity { return s.identity }

// Slug returns the slug of the definition the schema was built from.
func (s *Schema) Slug() string { return s.slug }

// Label returns the display name of the definition.
func (s *Schema) Label() string { return s.label }

// Fingerprint returns the content hash published to the shared cache.
func (s *Schema) Fingerprint() Fingerprint { return s.fingerprint }

// TableName returns the physical table backing the schema.
func (s *Schema) TableName() string { return s.identity.TableName() }

// Len returns the number of columns, excluding the primary key.
func (s *Schema) Len() int { return len(s.columns) }

// Columns returns a copy of the column specs in definition order.
func (s *Schema) Columns() []fieldspec.ColumnSpec {
	out := make([]fieldspec.ColumnSpec, len(s.columns))
	copy(out, s.columns)
	return out
}

// ColumnNames returns the column names in definition order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column spec by name.
func (s *Schema) Column(name string) (fieldspec.ColumnSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return fieldspec.ColumnSpec{}, false
	}
	return s.columns[i], true
}

// MarshalJSON renders the schema for API consumers.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Namespace   string                 `json:"namespace"`
		Name        string                 `json:"name"`
		Slug        string                 `json:"slug"`
		Label       string                 `json:"label"`
		Table       string                 `json:"table"`
		Fingerprint Fingerprint            `json:"fingerprint"`
		Columns     []fieldspec.ColumnSpec `json:"columns"`
	}{
		Namespace:   s.identity.Namespace,
		Name:        s.identity.Name,
		Slug:        s.slug,
		Label:       s.label,
		Table:       s.TableName(),
		Fingerprint: s.fingerprint,
		Columns:     s.columns,
	})
}
