package fieldspec

import (
	"fmt"
	"unicode/utf8"

	"schema-sync/core/utils"

	"github.com/shopspring/decimal"
)

// Kind is the storage type of a column, independent of the SQL dialect.
type Kind string

const (
	KindString   Kind = "string"
	KindText     Kind = "text"
	KindInteger  Kind = "integer"
	KindDecimal  Kind = "decimal"
	KindBoolean  Kind = "boolean"
	KindDateTime Kind = "datetime"
	KindDate     Kind = "date"
	KindTime     Kind = "time"
)

// Choice is one allowed value of a column. Value holds the native type of the column.
type Choice struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// ColumnSpec describes a single column of a synthesized schema.
// Specs are values; callers must not modify the Choices slice of a spec they did not build.
type ColumnSpec struct {
	Name          string   `json:"name"`
	Label         string   `json:"label,omitempty"`
	Kind          Kind     `json:"kind"`
	Nullable      bool     `json:"nullable"`
	Required      bool     `json:"required"`
	MaxLength     int      `json:"max_length,omitempty"`
	MaxDigits     int      `json:"max_digits,omitempty"`
	DecimalPlaces int      `json:"decimal_places,omitempty"`
	HasDefault    bool     `json:"has_default"`
	Default       any      `json:"default,omitempty"`
	Choices       []Choice `json:"choices,omitempty"`
	Indexed       bool     `json:"indexed,omitempty"`
}

// Coerce converts val to the native value type of the column.
// Nil is passed through; nullability is checked by Validate.
func (c ColumnSpec) Coerce(val any) (any, error) {
	if val == nil {
		return nil, nil
	}
	switch c.Kind {
	case KindString, KindText:
		return utils.ToString(val), nil
	case KindInteger:
		return utils.ToInt64(val)
	case KindDecimal:
		return utils.ToDecimal(val)
	case KindBoolean:
		return utils.ToBool(val)
	case KindDateTime:
		return utils.ToTime(val, utils.DateTimeLayouts)
	case KindDate:
		return utils.ToTime(val, utils.DateLayouts)
	case KindTime:
		t, err := utils.ToTime(val, utils.TimeLayouts)
		if err != nil {
			return nil, err
		}
		return t.Format("15:04:05"), nil
	default:
		return nil, fmt.Errorf("unsupported column kind %q", c.Kind)
	}
}

// Validate coerces val and checks it against nullability, length and choices.
// It returns the coerced value.
func (c ColumnSpec) Validate(val any) (any, error) {
	v, err := c.Coerce(val)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if c.Required || (!c.Nullable && !c.HasDefault) {
			return nil, fmt.Errorf("value required")
		}
		return nil, nil
	}
	if s, ok := v.(string); ok {
		if c.Required && s == "" {
			return nil, fmt.Errorf("value required")
		}
		if c.Kind == KindString && c.MaxLength > 0 && utf8.RuneCountInString(s) > c.MaxLength {
			return nil, fmt.Errorf("value longer than %d characters", c.MaxLength)
		}
	}
	if len(c.Choices) > 0 && !c.HasChoice(v) {
		return nil, fmt.Errorf("%v is not one of the allowed choices", v)
	}
	return v, nil
}

// HasChoice reports whether the coerced value v is one of the column's choices.
func (c ColumnSpec) HasChoice(v any) bool {
	for _, ch := range c.Choices {
		if d, ok := v.(decimal.Decimal); ok {
			if cd, ok := ch.Value.(decimal.Decimal); ok && cd.Equal(d) {
				return true
			}
			continue
		}
		if ch.Value == v {
			return true
		}
	}
	return false
}
