package checks

import (
	"context"
	"errors"
	"testing"

	"schema-sync/core/cache"
	"schema-sync/core/database"
	"schema-sync/core/reconcile"
	"schema-sync/core/schema"
	"schema-sync/core/schemacache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	return db
}

func synthesize(t *testing.T, fields ...schema.FieldDefinition) *schema.Schema {
	t.Helper()
	s, err := schema.NewSynthesizer(nil, "responses", nil).Synthesize(schema.Definition{Slug: "feedback", Fields: fields})
	require.NoError(t, err)
	return s
}

type brokenCache struct{}

func (brokenCache) SharedFingerprint(context.Context, schema.Identity) (schema.Fingerprint, bool, error) {
	return "", false, errors.New("redis: connection refused")
}

func TestCheckSchemas_InSync(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()
	s := synthesize(t,
		schema.FieldDefinition{Slug: "rating", Type: "Integer"},
		schema.FieldDefinition{Slug: "recommend", Type: "Boolean"},
		schema.FieldDefinition{Slug: "score", Type: "Decimal"},
	)
	_, err := reconcile.New(nil).Sync(ctx, db, s)
	require.NoError(t, err)

	shared := schemacache.New(cache.NewMemory(), nil)
	require.NoError(t, shared.Publish(ctx, s))

	report, err := CheckSchemas(ctx, db, []*schema.Schema{s}, shared)
	require.NoError(t, err)
	assert.True(t, report.Matched)

	tbl := report.Tables["responses_responsefeedback"]
	assert.Equal(t, "ok", tbl.Status)
	assert.True(t, tbl.TableExists)
	assert.False(t, tbl.Stale)
	assert.Equal(t, tbl.LocalFingerprint, tbl.SharedFingerprint)
}

func TestCheckSchemas_Drift(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()
	require.NoError(t, db.Exec("CREATE TABLE `responses_responsefeedback` (`id` integer PRIMARY KEY AUTOINCREMENT, `rating` text, `legacy` text)").Error)

	s := synthesize(t,
		schema.FieldDefinition{Slug: "rating", Type: "Integer"},
		schema.FieldDefinition{Slug: "comment", Type: "LongText"},
	)
	report, err := CheckSchemas(ctx, db, []*schema.Schema{s}, schemacache.New(cache.NewMemory(), nil))
	require.NoError(t, err)
	assert.False(t, report.Matched)

	tbl := report.Tables["responses_responsefeedback"]
	assert.Equal(t, "drift", tbl.Status)
	assert.Equal(t, []string{"comment"}, tbl.MissingColumns)
	assert.Equal(t, []string{"legacy"}, tbl.ExtraColumns)
	require.Len(t, tbl.TypeMismatches, 1)
	assert.Contains(t, tbl.TypeMismatches[0], "rating: expected integer, got text")
	assert.True(t, tbl.Stale, "nothing was published")
	assert.Empty(t, tbl.SharedFingerprint)
}

func TestCheckSchemas_MissingTable(t *testing.T) {
	db := newSQLite(t)
	s := synthesize(t, schema.FieldDefinition{Slug: "rating", Type: "Integer"})

	report, err := CheckSchemas(context.Background(), db, []*schema.Schema{s}, brokenCache{})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "connection refused")

	tbl := report.Tables["responses_responsefeedback"]
	assert.False(t, tbl.TableExists)
	assert.Equal(t, []string{"rating"}, tbl.MissingColumns)
	assert.True(t, tbl.Stale)
}

func TestCheckSchemas_NilDB(t *testing.T) {
	_, err := CheckSchemas(context.Background(), nil, nil, nil)
	assert.Error(t, err)
}

func TestTypeMatches(t *testing.T) {
	assert.True(t, typeMatches("varchar(255)", "varchar(255)"))
	assert.True(t, typeMatches("bigint", "bigint"))
	assert.True(t, typeMatches("boolean", "tinyint(1)"))
	assert.True(t, typeMatches("decimal(6,2)", "DECIMAL(6,2)"))
	assert.False(t, typeMatches("integer", "text"))
	assert.False(t, typeMatches("varchar(80)", "varchar(255)"))
}
