package survey

import (
	"context"
	"fmt"

	"schema-sync/core/apperrors"
	"schema-sync/core/reconcile"
	"schema-sync/core/schema"

	"gorm.io/gorm"
)

// DefaultPageSize is the number of responses listed when no limit is given.
const DefaultPageSize = 50

// SubmitResponse validates answers against the response schema of slug and
// stores them as a new row. Unknown answer keys are rejected.
func (s *Service) SubmitResponse(ctx context.Context, slug string, answers map[string]any) (*schema.Record, error) {
	sch, err := s.ResponseSchema(ctx, slug, false)
	if err != nil {
		return nil, err
	}

	record := sch.NewRecord()
	for key, value := range answers {
		if err := record.Set(schema.ColumnName(key), value); err != nil {
			return nil, &apperrors.FieldError{Definition: slug, Field: key, Err: fmt.Errorf("%w: %v", apperrors.ErrInvalidRecord, err)}
		}
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("response to %q: %w: %v", slug, apperrors.ErrInvalidRecord, err)
	}

	table := sch.TableName()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table).Create(record.Map()).Error; err != nil {
			return apperrors.NewStoreError("insert", table, err)
		}
		id, err := lastInsertID(tx)
		if err != nil {
			return apperrors.NewStoreError("insert", table, err)
		}
		record.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func lastInsertID(tx *gorm.DB) (int64, error) {
	query := "SELECT LAST_INSERT_ID()"
	if tx.Dialector.Name() == reconcile.DialectSQLite {
		query = "SELECT last_insert_rowid()"
	}
	var id int64
	err := tx.Raw(query).Row().Scan(&id)
	return id, err
}

// ListResponses returns stored responses of slug ordered by id.
// Columns the table has beyond the schema are not read.
func (s *Service) ListResponses(ctx context.Context, slug string, limit, offset int) ([]*schema.Record, error) {
	sch, err := s.ResponseSchema(ctx, slug, false)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	columns := append([]string{schema.PrimaryKey}, sch.ColumnNames()...)
	var rows []map[string]any
	err = s.db.WithContext(ctx).
		Table(sch.TableName()).
		Select(columns).
		Order(schema.PrimaryKey).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewStoreError("query", sch.TableName(), err)
	}

	records := make([]*schema.Record, 0, len(rows))
	for _, row := range rows {
		r, err := sch.RecordFromMap(row)
		if err != nil {
			return nil, fmt.Errorf("response of %s: %w", sch.Identity(), err)
		}
		records = append(records, r)
	}
	return records, nil
}
