package schema

import (
	"encoding/json"

	"schema-sync/core/fieldspec"
)

// Definition is the externally owned description of a schema.
type Definition struct {
	Slug   string            `json:"slug" yaml:"slug"`
	Name   string            `json:"name" yaml:"name"`
	Fields []FieldDefinition `json:"fields" yaml:"fields"`
}

// FieldDefinition is one typed field (question) of a definition.
type FieldDefinition struct {
	Slug          string   `json:"slug" yaml:"slug"`
	Label         string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type          string   `json:"type" yaml:"type"`
	Required      bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Choices       []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Indexed       bool     `json:"indexed,omitempty" yaml:"indexed,omitempty"`
	Nullable      *bool    `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	MaxLength     *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	MaxDigits     *int     `json:"max_digits,omitempty" yaml:"max_digits,omitempty"`
	DecimalPlaces *int     `json:"decimal_places,omitempty" yaml:"decimal_places,omitempty"`
	Default       any      `json:"default,omitempty" yaml:"default,omitempty"`
}

// Constraints returns the field parameters in the form expected by the field registry.
func (f FieldDefinition) Constraints() fieldspec.Constraints {
	return fieldspec.Constraints{
		Label:         f.Label,
		Required:      f.Required,
		Nullable:      f.Nullable,
		MaxLength:     f.MaxLength,
		MaxDigits:     f.MaxDigits,
		DecimalPlaces: f.DecimalPlaces,
		Default:       f.Default,
		Choices:       f.Choices,
		Indexed:       f.Indexed,
	}
}

// HashSource returns the canonical bytes a fingerprint is computed from.
type HashSource func(def Definition) ([]byte, error)

// StructuralHashSource covers the ordered field slugs and type tags only.
func StructuralHashSource(def Definition) ([]byte, error) {
	pairs := make([][2]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		pairs = append(pairs, [2]string{f.Slug, f.Type})
	}
	return json.Marshal(pairs)
}
