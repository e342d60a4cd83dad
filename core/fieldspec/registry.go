package fieldspec

import (
	"fmt"
	"sort"
	"strings"

	"schema-sync/core/apperrors"
)

// Type tags of the built-in answer types.
const (
	TagShortText = "ShortText"
	TagLongText  = "LongText"
	TagInteger   = "Integer"
	TagDecimal   = "Decimal"
	TagBoolean   = "Boolean"
	TagDateTime  = "DateTime"
	TagTime      = "Time"
	TagDate      = "Date"
)

// Constraints are the explicit parameters of a field. Nil pointers and a nil
// Default mean "use the type default".
type Constraints struct {
	Label         string
	Required      bool
	Nullable      *bool
	MaxLength     *int
	MaxDigits     *int
	DecimalPlaces *int
	Default       any
	Choices       []string
	Indexed       bool
}

// Constructor builds the column spec of one type tag.
type Constructor func(name string, c Constraints) (ColumnSpec, error)

// Registry maps type tags to constructors.
// Register is meant for setup; a registry must not be modified while resolving.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry holding the built-in answer types.
func NewRegistry() *Registry {
	return &Registry{
		constructors: map[string]Constructor{
			TagShortText: newShortText,
			TagLongText:  newLongText,
			TagInteger:   newInteger,
			TagDecimal:   newDecimal,
			TagBoolean:   newBoolean,
			TagDateTime:  newTemporal(KindDateTime),
			TagTime:      newTemporal(KindTime),
			TagDate:      newTemporal(KindDate),
		},
	}
}

// Register adds or replaces the constructor for tag.
func (r *Registry) Register(tag string, fn Constructor) {
	r.constructors[tag] = fn
}

// Tags returns the registered type tags in lexical order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.constructors))
	for tag := range r.constructors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Resolve builds the column spec for a field of the given type tag.
func (r *Registry) Resolve(tag, name string, c Constraints) (ColumnSpec, error) {
	fn, ok := r.constructors[tag]
	if !ok {
		return ColumnSpec{}, &apperrors.FieldError{Field: name, Err: fmt.Errorf("%w: %q", apperrors.ErrUnknownTypeTag, tag)}
	}
	return fn(name, c)
}

func newShortText(name string, c Constraints) (ColumnSpec, error) {
	spec := ColumnSpec{Name: name, Kind: KindString, MaxLength: 255, HasDefault: true, Default: ""}
	return apply(spec, c)
}

func newLongText(name string, c Constraints) (ColumnSpec, error) {
	spec := ColumnSpec{Name: name, Kind: KindText, HasDefault: true, Default: ""}
	return apply(spec, c)
}

func newInteger(name string, c Constraints) (ColumnSpec, error) {
	spec := ColumnSpec{Name: name, Kind: KindInteger, Nullable: true}
	return apply(spec, c)
}

func newDecimal(name string, c Constraints) (ColumnSpec, error) {
	spec := ColumnSpec{Name: name, Kind: KindDecimal, MaxDigits: 6, DecimalPlaces: 2, Nullable: true}
	spec, err := apply(spec, c)
	if err != nil {
		return spec, err
	}
	if spec.DecimalPlaces > spec.MaxDigits {
		return ColumnSpec{}, &apperrors.FieldError{Field: name, Err: fmt.Errorf("%w: decimal places %d exceed max digits %d", apperrors.ErrSynthesis, spec.DecimalPlaces, spec.MaxDigits)}
	}
	return spec, nil
}

// newBoolean makes booleans NOT NULL with a false default, unlike the other
// scalar kinds which are nullable: a checkbox left unticked is an answer, not
// a missing one. The default also lets the column be added to tables that
// already hold rows. An explicit Nullable constraint still wins.
func newBoolean(name string, c Constraints) (ColumnSpec, error) {
	spec := ColumnSpec{Name: name, Kind: KindBoolean, HasDefault: true, Default: false}
	return apply(spec, c)
}

func newTemporal(kind Kind) Constructor {
	return func(name string, c Constraints) (ColumnSpec, error) {
		spec := ColumnSpec{Name: name, Kind: kind, Nullable: true}
		return apply(spec, c)
	}
}

// apply honors explicit constraints on top of the type defaults and coerces choices.
func apply(spec ColumnSpec, c Constraints) (ColumnSpec, error) {
	spec.Label = c.Label
	spec.Required = c.Required
	spec.Indexed = c.Indexed
	if c.Nullable != nil {
		spec.Nullable = *c.Nullable
	}
	if c.MaxLength != nil {
		spec.MaxLength = *c.MaxLength
	}
	if c.MaxDigits != nil {
		spec.MaxDigits = *c.MaxDigits
	}
	if c.DecimalPlaces != nil {
		spec.DecimalPlaces = *c.DecimalPlaces
	}
	if c.Default != nil {
		v, err := spec.Coerce(c.Default)
		if err != nil {
			return ColumnSpec{}, &apperrors.FieldError{Field: spec.Name, Err: fmt.Errorf("%w: default %v: %v", apperrors.ErrSynthesis, c.Default, err)}
		}
		spec.HasDefault = true
		spec.Default = v
	}

	if len(c.Choices) > 0 {
		choices := make([]Choice, 0, len(c.Choices))
		for _, key := range c.Choices {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			v, err := spec.Coerce(key)
			if err != nil {
				return ColumnSpec{}, &apperrors.FieldError{Field: spec.Name, Err: fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidChoiceValue, key, err)}
			}
			choices = append(choices, Choice{Value: v, Label: key})
		}
		spec.Choices = choices
	}
	return spec, nil
}
