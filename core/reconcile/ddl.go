package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schema-sync/core/fieldspec"
	"schema-sync/core/schema"

	"github.com/shopspring/decimal"
)

// Supported dialects, as reported by gorm.Dialector.Name().
const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

const maxIdentifierLength = 64

func checkDialect(dialect string) error {
	if dialect != DialectMySQL && dialect != DialectSQLite {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	return nil
}

// quoteIdent quotes a table or column name. MySQL and SQLite both accept backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ColumnType maps a column kind to the SQL type of the dialect.
func ColumnType(dialect string, c fieldspec.ColumnSpec) string {
	mysql := dialect == DialectMySQL
	switch c.Kind {
	case fieldspec.KindString:
		size := c.MaxLength
		if size <= 0 {
			size = 255
		}
		return fmt.Sprintf("varchar(%d)", size)
	case fieldspec.KindText:
		if mysql {
			return "longtext"
		}
		return "text"
	case fieldspec.KindInteger:
		if mysql {
			return "bigint"
		}
		return "integer"
	case fieldspec.KindDecimal:
		digits, places := c.MaxDigits, c.DecimalPlaces
		if digits <= 0 {
			digits = 10
		}
		if mysql {
			return fmt.Sprintf("decimal(%d,%d)", digits, places)
		}
		return fmt.Sprintf("numeric(%d,%d)", digits, places)
	case fieldspec.KindBoolean:
		if mysql {
			return "boolean"
		}
		return "numeric"
	case fieldspec.KindDateTime:
		if mysql {
			return "datetime(3)"
		}
		return "datetime"
	case fieldspec.KindDate:
		return "date"
	case fieldspec.KindTime:
		return "time"
	default:
		if mysql {
			return "longtext"
		}
		return "text"
	}
}

// ColumnDefinition renders the type, nullability and default of a column.
// When adding to an existing SQLite table a NOT NULL column needs a default,
// so the constraint is left out if there is none.
func ColumnDefinition(dialect string, c fieldspec.ColumnSpec, adding bool) string {
	def := ColumnType(dialect, c)

	defaultSQL, hasDefault := "", false
	if c.HasDefault && c.Default != nil {
		defaultSQL, hasDefault = literal(c, c.Default)
	}
	// MySQL rejects literal defaults on TEXT/BLOB columns.
	if hasDefault && dialect == DialectMySQL && c.Kind == fieldspec.KindText {
		hasDefault = false
	}

	if !c.Nullable && !(adding && dialect == DialectSQLite && !hasDefault) {
		def += " NOT NULL"
	}
	if hasDefault {
		def += " DEFAULT " + defaultSQL
	}
	return def
}

func literal(c fieldspec.ColumnSpec, v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", true
	case bool:
		if val {
			return "1", true
		}
		return "0", true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int:
		return strconv.Itoa(val), true
	case decimal.Decimal:
		return val.StringFixed(int32(c.DecimalPlaces)), true
	case time.Time:
		layout := "2006-01-02 15:04:05"
		if c.Kind == fieldspec.KindDate {
			layout = "2006-01-02"
		}
		return "'" + val.Format(layout) + "'", true
	default:
		return "", false
	}
}

func primaryKeyDefinition(dialect string) string {
	if dialect == DialectMySQL {
		return quoteIdent(schema.PrimaryKey) + " bigint unsigned NOT NULL AUTO_INCREMENT PRIMARY KEY"
	}
	return quoteIdent(schema.PrimaryKey) + " integer PRIMARY KEY AUTOINCREMENT"
}

// CreateTableSQL renders the CREATE TABLE statement of s.
func CreateTableSQL(dialect string, s *schema.Schema) string {
	parts := []string{primaryKeyDefinition(dialect)}
	for _, c := range s.Columns() {
		parts = append(parts, quoteIdent(c.Name)+" "+ColumnDefinition(dialect, c, false))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(s.TableName()), strings.Join(parts, ","))
}

// AddColumnSQL renders the ALTER TABLE statement adding c to table.
func AddColumnSQL(dialect, table string, c fieldspec.ColumnSpec) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s %s", quoteIdent(table), quoteIdent(c.Name), ColumnDefinition(dialect, c, true))
}

// IndexName returns the name of the index on column. Names over the MySQL
// identifier limit are shortened with a hash suffix.
func IndexName(table, column string) string {
	name := "idx_" + table + "_" + column
	if len(name) <= maxIdentifierLength {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	return name[:maxIdentifierLength-9] + "_" + hex.EncodeToString(sum[:])[:8]
}

// CreateIndexSQL renders the CREATE INDEX statement of column.
func CreateIndexSQL(table, column string) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", quoteIdent(IndexName(table, column)), quoteIdent(table), quoteIdent(column))
}
