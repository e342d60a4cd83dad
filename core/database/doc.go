// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL (production) or SQLite
// (local runs and tests) connections from the application's configuration.
//
// # Schema Inspection
//
// TableExists and GetTableColumns read the live structure of a table. The
// reconciler uses them to decide which DDL is still needed, and the integrity
// check compares them with the synthesized response schemas.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "responses_responsefeedback")
package database
