// Package integrity provides system health checks for the schema engine.
//
// Unlike the 'survey' package which changes response tables, this package only
// reports. It validates the storage layout and compares every synthesized
// response schema with its physical table and with the fingerprint published
// in the shared cache.
//
// # Checks Provided
//
//   - Structure: Checks that the bucket and the definitions prefix exist (fixable).
//   - Schemas: Reports missing columns, extra columns, type mismatches and
//     stale fingerprints per response table.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/structure : Runs structure check (supports ?fix=true).
//   - GET /integrity/schemas : Runs schema drift check.
package integrity
