// Package reconcile brings the physical table of a synthesized schema in line
// with the schema, additively.
//
// The reconciler only ever creates tables, adds columns and creates indexes.
// Columns that exist in the table but not in the schema are reported as extra
// and left in place, so existing response data is never lost. Dropping a table
// and renaming a column are separate administrative operations.
//
// # Transactions
//
// Every operation runs inside one GORM transaction. When the caller already
// holds a transaction, GORM nests it through a savepoint. MySQL commits DDL
// implicitly, so a failure there can leave earlier statements applied; the
// operations are idempotent and a rerun completes the work.
//
// # Usage
//
//	r := reconcile.New(logger)
//
//	plan, err := r.Plan(ctx, db, s)           // read-only
//	result, err := r.Sync(ctx, db, s)         // create table, add missing columns
//	err = r.RenameColumn(ctx, db, table, "colour", "color")
package reconcile
