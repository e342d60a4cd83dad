package schema

import (
	"errors"
	"fmt"

	"schema-sync/core/apperrors"
	"schema-sync/core/fieldspec"
)

// Synthesizer turns definitions into schemas. It never touches the cache or the store.
type Synthesizer struct {
	registry   *fieldspec.Registry
	namespace  string
	hashSource HashSource
}

// NewSynthesizer creates a synthesizer. A nil registry, empty namespace or nil
// hash source fall back to the built-in registry, DefaultNamespace and
// StructuralHashSource.
func NewSynthesizer(registry *fieldspec.Registry, namespace string, hashSource HashSource) *Synthesizer {
	if registry == nil {
		registry = fieldspec.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if hashSource == nil {
		hashSource = StructuralHashSource
	}
	return &Synthesizer{registry: registry, namespace: namespace, hashSource: hashSource}
}

// Namespace returns the namespace schemas are synthesized into.
func (s *Synthesizer) Namespace() string { return s.namespace }

// Identity derives the identity of a definition slug.
func (s *Synthesizer) Identity(slug string) (Identity, error) {
	return IdentityFor(s.namespace, slug)
}

// Fingerprint computes the fingerprint a synthesis of def would carry.
func (s *Synthesizer) Fingerprint(def Definition) (Fingerprint, error) {
	src, err := s.hashSource(def)
	if err != nil {
		return "", fmt.Errorf("%w: hash source of %q: %v", apperrors.ErrSynthesis, def.Slug, err)
	}
	return ComputeFingerprint(src), nil
}

// Synthesize builds the schema of def. Columns follow the field order of def.
func (s *Synthesizer) Synthesize(def Definition) (*Schema, error) {
	id, err := s.Identity(def.Slug)
	if err != nil {
		return nil, err
	}

	columns := make([]fieldspec.ColumnSpec, 0, len(def.Fields))
	index := make(map[string]int, len(def.Fields))
	owners := make(map[string]string, len(def.Fields))

	for _, field := range def.Fields {
		name := ColumnName(field.Slug)
		if err := checkColumnName(name, field.Slug, owners); err != nil {
			return nil, &apperrors.FieldError{Definition: def.Slug, Field: field.Slug, Err: err}
		}

		spec, err := s.registry.Resolve(field.Type, name, field.Constraints())
		if err != nil {
			var fieldErr *apperrors.FieldError
			if errors.As(err, &fieldErr) {
				fieldErr.Definition = def.Slug
				fieldErr.Field = field.Slug
				return nil, fieldErr
			}
			return nil, &apperrors.FieldError{Definition: def.Slug, Field: field.Slug, Err: err}
		}

		owners[name] = field.Slug
		index[name] = len(columns)
		columns = append(columns, spec)
	}

	fp, err := s.Fingerprint(def)
	if err != nil {
		return nil, err
	}

	label := def.Name
	if label != "" {
		label += " Response"
	}

	return &Schema{
		identity:    id,
		slug:        def.Slug,
		label:       label,
		columns:     columns,
		index:       index,
		fingerprint: fp,
	}, nil
}

func checkColumnName(name, slug string, owners map[string]string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: slug %q yields an empty column name", apperrors.ErrSynthesis, slug)
	case name[0] >= '0' && name[0] <= '9':
		return fmt.Errorf("%w: column %q must not start with a digit", apperrors.ErrSynthesis, name)
	case name == PrimaryKey:
		return fmt.Errorf("%w: column %q is reserved", apperrors.ErrSynthesis, name)
	}
	if other, taken := owners[name]; taken {
		return fmt.Errorf("%w: column %q collides with field %q", apperrors.ErrSynthesis, name, other)
	}
	return nil
}
