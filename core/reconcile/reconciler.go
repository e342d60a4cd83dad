package reconcile

import (
	"context"
	"errors"
	"sort"
	"strings"

	"schema-sync/core/apperrors"
	"schema-sync/core/database"
	"schema-sync/core/fieldspec"
	"schema-sync/core/schema"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reconciler applies additive DDL for synthesized schemas.
type Reconciler struct {
	logger *zap.Logger
}

// New creates a reconciler.
func New(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// EnsureTable creates the table of s with all its columns if it does not exist.
// An existing table is left untouched, even if it lacks columns.
func (r *Reconciler) EnsureTable(ctx context.Context, db *gorm.DB, s *schema.Schema) (*Result, error) {
	result := &Result{Table: s.TableName()}
	err := r.transaction(ctx, db, result.Table, func(tx *gorm.DB) error {
		return r.ensureTable(tx, s, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddMissingColumns creates the table of s if needed and adds every schema
// column the table lacks. Columns are never altered or dropped.
func (r *Reconciler) AddMissingColumns(ctx context.Context, db *gorm.DB, s *schema.Schema) (*Result, error) {
	result := &Result{Table: s.TableName()}
	err := r.transaction(ctx, db, result.Table, func(tx *gorm.DB) error {
		if err := r.ensureTable(tx, s, result); err != nil {
			return err
		}
		if result.Created {
			return nil
		}
		return r.addMissingColumns(tx, s, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Sync brings the table of s up to date and logs the outcome.
func (r *Reconciler) Sync(ctx context.Context, db *gorm.DB, s *schema.Schema) (*Result, error) {
	result, err := r.AddMissingColumns(ctx, db, s)
	if err != nil {
		r.logger.Error("Schema sync failed",
			zap.String("schema", s.Identity().String()), zap.Error(err))
		return nil, err
	}
	if result.Changed() {
		r.logger.Info("Schema synced",
			zap.String("table", result.Table),
			zap.Bool("created", result.Created),
			zap.Strings("added", result.Added),
			zap.Strings("indexes", result.Indexes))
	} else {
		r.logger.Debug("Schema already in sync", zap.String("table", result.Table))
	}
	return result, nil
}

// Plan compares s with its table without changing anything.
func (r *Reconciler) Plan(ctx context.Context, db *gorm.DB, s *schema.Schema) (*Plan, error) {
	dialect := db.Dialector.Name()
	if err := checkDialect(dialect); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx)
	table := s.TableName()
	plan := &Plan{Table: table, Missing: []string{}, Extra: []string{}, Indexes: []string{}, Statements: []string{}}

	exists, err := database.TableExists(tx, table)
	if err != nil {
		return nil, apperrors.NewStoreError("inspect", table, err)
	}
	plan.TableExists = exists

	if !exists {
		plan.Missing = s.ColumnNames()
		plan.Statements = append(plan.Statements, CreateTableSQL(dialect, s))
		for _, c := range s.Columns() {
			if c.Indexed {
				plan.Indexes = append(plan.Indexes, IndexName(table, c.Name))
				plan.Statements = append(plan.Statements, CreateIndexSQL(table, c.Name))
			}
		}
		return plan, nil
	}

	existing, err := database.ColumnSet(tx, table)
	if err != nil {
		return nil, apperrors.NewStoreError("inspect", table, err)
	}

	var deferred []string
	for _, c := range s.Columns() {
		if _, ok := existing[strings.ToLower(c.Name)]; ok {
			continue
		}
		plan.Missing = append(plan.Missing, c.Name)
		plan.Statements = append(plan.Statements, AddColumnSQL(dialect, table, c))
		if c.Indexed {
			plan.Indexes = append(plan.Indexes, IndexName(table, c.Name))
			deferred = append(deferred, CreateIndexSQL(table, c.Name))
		}
	}
	plan.Statements = append(plan.Statements, deferred...)

	for name := range existing {
		if name == schema.PrimaryKey {
			continue
		}
		if _, ok := s.Column(name); !ok {
			plan.Extra = append(plan.Extra, name)
		}
	}
	sort.Strings(plan.Extra)

	return plan, nil
}

// DropTable removes the table backing a schema. It is an administrative
// operation and never part of a sync.
func (r *Reconciler) DropTable(ctx context.Context, db *gorm.DB, table string) error {
	if err := checkDialect(db.Dialector.Name()); err != nil {
		return err
	}
	// The MySQL migrator drops on a dedicated connection with foreign key
	// checks off, so this does not run in a transaction.
	if err := db.WithContext(ctx).Migrator().DropTable(table); err != nil {
		return apperrors.NewDDLError("drop table", table, "", err)
	}
	r.logger.Warn("Table dropped", zap.String("table", table))
	return nil
}

// RenameColumn renames a column of table. The source column must exist and
// the target must not.
func (r *Reconciler) RenameColumn(ctx context.Context, db *gorm.DB, table, from, to string) error {
	if err := checkDialect(db.Dialector.Name()); err != nil {
		return err
	}
	err := r.transaction(ctx, db, table, func(tx *gorm.DB) error {
		existing, err := database.ColumnSet(tx, table)
		if err != nil {
			return apperrors.NewStoreError("inspect", table, err)
		}
		if _, ok := existing[strings.ToLower(from)]; !ok {
			return apperrors.NewDDLError("rename column", table, from, errors.New("column does not exist"))
		}
		if _, ok := existing[strings.ToLower(to)]; ok {
			return apperrors.NewDDLError("rename column", table, to, errors.New("column already exists"))
		}
		if err := tx.Migrator().RenameColumn(table, from, to); err != nil {
			return apperrors.NewDDLError("rename column", table, from, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("Column renamed", zap.String("table", table), zap.String("from", from), zap.String("to", to))
	return nil
}

func (r *Reconciler) ensureTable(tx *gorm.DB, s *schema.Schema, result *Result) error {
	dialect := tx.Dialector.Name()
	table := s.TableName()

	exists, err := database.TableExists(tx, table)
	if err != nil {
		return apperrors.NewStoreError("inspect", table, err)
	}
	if exists {
		return nil
	}

	if err := tx.Exec(CreateTableSQL(dialect, s)).Error; err != nil {
		// Another process may have created the table in the meantime.
		if ok, checkErr := database.TableExists(tx, table); checkErr == nil && ok {
			r.logger.Info("Table created concurrently", zap.String("table", table))
			return nil
		}
		return apperrors.NewDDLError("create table", table, "", err)
	}
	result.Created = true
	r.logger.Debug("Table created", zap.String("table", table), zap.Int("columns", s.Len()))

	var indexed []fieldspec.ColumnSpec
	for _, c := range s.Columns() {
		if c.Indexed {
			indexed = append(indexed, c)
		}
	}
	return r.createIndexes(tx, table, indexed, result)
}

func (r *Reconciler) addMissingColumns(tx *gorm.DB, s *schema.Schema, result *Result) error {
	dialect := tx.Dialector.Name()
	table := s.TableName()

	existing, err := database.ColumnSet(tx, table)
	if err != nil {
		return apperrors.NewStoreError("inspect", table, err)
	}

	var indexed []fieldspec.ColumnSpec
	for _, c := range s.Columns() {
		if _, ok := existing[strings.ToLower(c.Name)]; ok {
			continue
		}
		r.logger.Debug("Adding column", zap.String("table", table), zap.String("column", c.Name))
		if err := tx.Exec(AddColumnSQL(dialect, table, c)).Error; err != nil {
			return apperrors.NewDDLError("add column", table, c.Name, err)
		}
		result.Added = append(result.Added, c.Name)
		if c.Indexed {
			indexed = append(indexed, c)
		}
	}
	return r.createIndexes(tx, table, indexed, result)
}

func (r *Reconciler) createIndexes(tx *gorm.DB, table string, columns []fieldspec.ColumnSpec, result *Result) error {
	for _, c := range columns {
		if err := tx.Exec(CreateIndexSQL(table, c.Name)).Error; err != nil {
			return apperrors.NewDDLError("create index", table, c.Name, err)
		}
		result.Indexes = append(result.Indexes, IndexName(table, c.Name))
	}
	return nil
}

func (r *Reconciler) transaction(ctx context.Context, db *gorm.DB, table string, fn func(tx *gorm.DB) error) error {
	if err := checkDialect(db.Dialector.Name()); err != nil {
		return err
	}
	err := db.WithContext(ctx).Transaction(fn)
	if err == nil || apperrors.IsStoreError(err) {
		return err
	}
	// Begin or commit failed.
	return apperrors.NewStoreError("transaction", table, err)
}
