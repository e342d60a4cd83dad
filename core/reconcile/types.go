package reconcile

// Result describes the structural changes applied to one table.
type Result struct {
	// Table is the physical table name.
	Table string `json:"table"`

	// Created is true when the table did not exist and was created.
	Created bool `json:"created"`

	// Added lists the columns added to an existing table.
	Added []string `json:"added"`

	// Indexes lists the indexes created after the table or columns.
	Indexes []string `json:"indexes"`
}

// Changed reports whether any DDL was executed.
func (r *Result) Changed() bool {
	return r.Created || len(r.Added) > 0 || len(r.Indexes) > 0
}

// Plan is the read-only comparison of a schema with its table.
type Plan struct {
	// Table is the physical table name.
	Table string `json:"table"`

	// TableExists indicates whether the table is present.
	TableExists bool `json:"table_exists"`

	// Missing lists schema columns absent from the table.
	Missing []string `json:"missing"`

	// Extra lists table columns unknown to the schema. They are never dropped.
	Extra []string `json:"extra"`

	// Indexes lists the indexes of indexed columns that do not exist yet.
	Indexes []string `json:"indexes"`

	// Statements is the DDL a Sync would execute, in order.
	Statements []string `json:"statements"`
}

// InSync reports whether Sync would be a no-op.
func (p *Plan) InSync() bool {
	return len(p.Statements) == 0
}
