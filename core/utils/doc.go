// Package utils provides common utility functions for the schema-sync application.
// It includes strict value conversion helpers used when coercing choice keys and
// record values to a column's native type.
package utils
