package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTypeTag is returned when a field's type tag has no registered column constructor.
	ErrUnknownTypeTag = errors.New("unknown type tag")
	// ErrInvalidChoiceValue is returned when a choice key cannot be coerced to the field's value type.
	ErrInvalidChoiceValue = errors.New("invalid choice value")
	// ErrSynthesis is returned when a definition cannot be turned into a schema (e.g. column name collision).
	ErrSynthesis = errors.New("schema synthesis failed")
	// ErrStoreUnavailable marks transient store failures (tables missing, connection lost).
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDDLFailure wraps a structural change rejected by the store driver.
	ErrDDLFailure = errors.New("ddl failure")
	// ErrCacheUnavailable is returned when the shared cache cannot be read or written.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrNotFound is returned when a definition does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord is returned when submitted values do not fit a schema.
	ErrInvalidRecord = errors.New("invalid record")
)

// FieldError attaches the offending field to a definition-authoring error.
type FieldError struct {
	Definition string
	Field      string
	Err        error
}

func (e *FieldError) Error() string {
	if e.Definition == "" {
		return fmt.Sprintf("field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("definition %q field %q: %v", e.Definition, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// StoreError attaches the table (and column, if any) to a store error.
// Err usually joins a sentinel (ErrDDLFailure, ErrStoreUnavailable) with the driver error.
type StoreError struct {
	Op     string
	Table  string
	Column string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s %s.%s: %v", e.Op, e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewDDLError wraps a driver error raised while changing table structure.
func NewDDLError(op, table, column string, cause error) error {
	return &StoreError{Op: op, Table: table, Column: column, Err: fmt.Errorf("%w: %w", ErrDDLFailure, cause)}
}

// NewStoreError wraps a driver error raised while reading table structure or data.
func NewStoreError(op, table string, cause error) error {
	return &StoreError{Op: op, Table: table, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)}
}

// IsStoreError reports whether err originates from the physical store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrDDLFailure)
}

// IsAuthoringError reports whether err is caused by an invalid definition.
func IsAuthoringError(err error) bool {
	return errors.Is(err, ErrUnknownTypeTag) || errors.Is(err, ErrInvalidChoiceValue) || errors.Is(err, ErrSynthesis)
}
