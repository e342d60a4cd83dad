// Package fieldspec maps answer type tags to column specifications.
//
// A Registry holds one Constructor per type tag. Each constructor applies the
// defaults of its type first and then honors the explicit Constraints of the
// field, so that an explicit value always wins over a default:
//
//	spec, err := fieldspec.NewRegistry().Resolve("Decimal", "price", fieldspec.Constraints{})
//	// spec.MaxDigits == 6, spec.DecimalPlaces == 2, spec.Nullable == true
//
// Choice keys are coerced to the native value type of the column when the spec
// is built. A key that cannot be coerced fails with apperrors.ErrInvalidChoiceValue.
package fieldspec
