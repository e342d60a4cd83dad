package schema

import (
	"fmt"
	"strings"
	"unicode"

	"schema-sync/core/apperrors"

	"golang.org/x/text/unicode/norm"
)

// DefaultNamespace is the namespace response schemas live in.
const DefaultNamespace = "responses"

// hashCacheTemplate is the shared cache key of an identity's fingerprint.
const hashCacheTemplate = "dynamic_model_hash_%s-%s"

// Identity names a schema within a namespace.
type Identity struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func (i Identity) String() string {
	return i.Namespace + "." + i.Name
}

// TableName is the physical table backing the schema.
func (i Identity) TableName() string {
	return strings.ToLower(i.Namespace + "_" + i.Name)
}

// CacheKey is the well-known shared cache key holding the published fingerprint.
func (i Identity) CacheKey() string {
	return fmt.Sprintf(hashCacheTemplate, i.Namespace, i.Name)
}

// IdentityFor derives the identity of a definition slug: "Response" followed by
// the ASCII letters of the slug.
func IdentityFor(namespace, slug string) (Identity, error) {
	var b strings.Builder
	for _, r := range norm.NFKD.String(slug) {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return Identity{}, fmt.Errorf("%w: slug %q has no letters to name a schema", apperrors.ErrSynthesis, slug)
	}
	return Identity{Namespace: namespace, Name: "Response" + b.String()}, nil
}

// ColumnName turns a field slug into a column identifier: accents are stripped,
// dashes and spaces become underscores and anything else outside [a-z0-9_] is dropped.
func ColumnName(slug string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(slug) {
		switch {
		case r == '-' || r == ' ':
			b.WriteByte('_')
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
