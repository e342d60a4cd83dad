package checks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"schema-sync/core/database"
	"schema-sync/core/reconcile"
	"schema-sync/core/schema"

	"gorm.io/gorm"
)

// FingerprintReader reads the fingerprint other processes published for a schema.
type FingerprintReader interface {
	SharedFingerprint(ctx context.Context, id schema.Identity) (schema.Fingerprint, bool, error)
}

// SchemaReport strictly types the result of a schema drift check.
type SchemaReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	Schema            string   `json:"schema"`
	TableExists       bool     `json:"table_exists"`
	MissingColumns    []string `json:"missing_columns"`
	ExtraColumns      []string `json:"extra_columns"`
	TypeMismatches    []string `json:"type_mismatches"`
	LocalFingerprint  string   `json:"local_fingerprint"`
	SharedFingerprint string   `json:"shared_fingerprint"`
	Stale             bool     `json:"stale"`
	Status            string   `json:"status"` // "ok", "drift", "error"
}

// Driver type names that differ from the declared column type.
var typeAliases = map[string]string{
	"boolean": "tinyint(1)",
}

// typeMatches is a soft comparison of a declared type with the reported one.
func typeMatches(expected, actual string) bool {
	expected, actual = strings.ToLower(expected), strings.ToLower(actual)
	if strings.Contains(actual, expected) {
		return true
	}
	if alias, ok := typeAliases[expected]; ok && strings.Contains(actual, alias) {
		return true
	}
	return false
}

// CheckSchemas compares every schema with its table and with the fingerprint
// published in the shared cache. Extra columns are reported but never count
// as drift since the store is allowed to be a superset of the schema.
func CheckSchemas(ctx context.Context, db *gorm.DB, schemas []*schema.Schema, shared FingerprintReader) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	dialect := db.Dialector.Name()
	db = db.WithContext(ctx)

	report := &SchemaReport{
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	for _, s := range schemas {
		table := s.TableName()
		tbl := TableReport{
			Schema:           s.Identity().String(),
			MissingColumns:   []string{},
			ExtraColumns:     []string{},
			TypeMismatches:   []string{},
			LocalFingerprint: string(s.Fingerprint()),
			Status:           "ok",
		}

		if shared != nil {
			fp, found, err := shared.SharedFingerprint(ctx, s.Identity())
			switch {
			case err != nil:
				report.Errors = append(report.Errors, fmt.Sprintf("Failed to read shared fingerprint of %s: %v", s.Identity(), err))
				tbl.Stale = true
			case !found:
				tbl.Stale = true
			default:
				tbl.SharedFingerprint = string(fp)
				tbl.Stale = fp != s.Fingerprint()
			}
		}

		exists, err := database.TableExists(db, table)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", table, err))
			tbl.Status = "error"
			report.Matched = false
			report.Tables[table] = tbl
			continue
		}
		tbl.TableExists = exists
		if !exists {
			tbl.MissingColumns = s.ColumnNames()
			tbl.Status = "drift"
			report.Matched = false
			report.Tables[table] = tbl
			continue
		}

		actual, err := database.ColumnSet(db, table)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", table, err))
			tbl.Status = "error"
			report.Matched = false
			report.Tables[table] = tbl
			continue
		}

		for _, c := range s.Columns() {
			col, ok := actual[strings.ToLower(c.Name)]
			if !ok {
				tbl.MissingColumns = append(tbl.MissingColumns, c.Name)
				continue
			}
			expected := reconcile.ColumnType(dialect, c)
			if !typeMatches(expected, col.Type) {
				tbl.TypeMismatches = append(tbl.TypeMismatches,
					fmt.Sprintf("%s: expected %s, got %s", c.Name, expected, col.Type))
			}
		}
		for name := range actual {
			if name == schema.PrimaryKey {
				continue
			}
			if _, ok := s.Column(name); !ok {
				tbl.ExtraColumns = append(tbl.ExtraColumns, name)
			}
		}
		sort.Strings(tbl.ExtraColumns)

		if len(tbl.MissingColumns) > 0 || len(tbl.TypeMismatches) > 0 {
			tbl.Status = "drift"
			report.Matched = false
		}
		report.Tables[table] = tbl
	}

	return report, nil
}
