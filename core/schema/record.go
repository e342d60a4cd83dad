package schema

import (
	"fmt"

	"schema-sync/core/utils"
)

// RecordAccessor reads and writes the values of a record by column name.
type RecordAccessor interface {
	Get(column string) (any, bool)
	Set(column string, value any) error
	Values() []any
}

// Record is one row of a schema's table.
type Record struct {
	ID     int64
	schema *Schema
	values map[string]any
}

var _ RecordAccessor = (*Record)(nil)

// NewRecord returns an empty record of s.
func (s *Schema) NewRecord() *Record {
	return &Record{schema: s, values: make(map[string]any, len(s.columns))}
}

// RecordFromMap builds a record from a column → value map. The primary key is
// taken from the "id" entry when present; unknown columns are rejected.
func (s *Schema) RecordFromMap(m map[string]any) (*Record, error) {
	r := s.NewRecord()
	for k, v := range m {
		if k == PrimaryKey {
			if v == nil {
				continue
			}
			id, err := utils.ToInt64(v)
			if err != nil {
				return nil, fmt.Errorf("record id: %w", err)
			}
			r.ID = id
			continue
		}
		if err := r.Set(k, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Schema returns the schema the record belongs to.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns the value of column, falling back to the column default.
func (r *Record) Get(column string) (any, bool) {
	spec, ok := r.schema.Column(column)
	if !ok {
		return nil, false
	}
	if v, set := r.values[column]; set {
		return v, true
	}
	if spec.HasDefault {
		return spec.Default, true
	}
	return nil, true
}

// Set coerces value to the column type and stores it.
func (r *Record) Set(column string, value any) error {
	spec, ok := r.schema.Column(column)
	if !ok {
		return fmt.Errorf("unknown column %q in %s", column, r.schema.Identity())
	}
	v, err := spec.Coerce(value)
	if err != nil {
		return fmt.Errorf("column %q: %w", column, err)
	}
	r.values[column] = v
	return nil
}

// Values returns the record's values in column order.
func (r *Record) Values() []any {
	out := make([]any, len(r.schema.columns))
	for i, c := range r.schema.columns {
		out[i], _ = r.Get(c.Name)
	}
	return out
}

// Validate checks every column value against its spec.
func (r *Record) Validate() error {
	for _, c := range r.schema.columns {
		v, _ := r.Get(c.Name)
		if _, err := c.Validate(v); err != nil {
			return fmt.Errorf("column %q: %w", c.Name, err)
		}
	}
	return nil
}

// Map returns the column → value map of the record, defaults included.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.schema.columns))
	for _, c := range r.schema.columns {
		m[c.Name], _ = r.Get(c.Name)
	}
	return m
}
