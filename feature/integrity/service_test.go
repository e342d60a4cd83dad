package integrity

import (
	"context"
	"testing"

	"schema-sync/core/cache"
	"schema-sync/core/config"
	"schema-sync/core/database"
	"schema-sync/core/schema"
	"schema-sync/core/schemacache"
	"schema-sync/core/storage/mocks"
	"schema-sync/feature/integrity/checks"
	"schema-sync/feature/survey"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var definitionsFolders = []string{"definitions/"}

// setupSurveys creates a survey service over an in-memory SQLite database.
func setupSurveys(t *testing.T) (*survey.Service, *gorm.DB) {
	db, err := database.Connect(database.Config{Driver: "sqlite"})
	require.NoError(t, err)

	engine := config.Engine{Namespace: "responses", AuthoringNamespace: "surveymaker", PublishOnChange: true}
	svc := survey.NewService(db, schemacache.New(cache.NewMemory(), nil), engine, nil)
	require.NoError(t, svc.Repository().Migrate(context.Background()))
	return svc, db
}

func feedback() schema.Definition {
	return schema.Definition{
		Slug: "feedback",
		Fields: []schema.FieldDefinition{
			{Slug: "rating", Type: "Integer"},
			{Slug: "comment", Type: "LongText"},
		},
	}
}

func emptyListing() <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	close(ch)
	return ch
}

func TestService_Structure(t *testing.T) {
	mockClient := new(mocks.Client)
	surveys, _ := setupSurveys(t)
	svc := NewService(mockClient, "test-bucket", definitionsFolders, zap.NewNop(), surveys)

	t.Run("CheckStructure", func(t *testing.T) {
		mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return(emptyListing())

		report, err := svc.CheckStructure(context.Background())
		require.NoError(t, err)
		assert.Equal(t, definitionsFolders, report.Missing)
	})

	t.Run("FixStructure", func(t *testing.T) {
		mockClient.On("PutObject", mock.Anything, "test-bucket", "definitions/", mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)
		err := svc.FixStructure(context.Background(), &checks.StructureReport{Bucket: "test-bucket", BucketExists: true, Missing: definitionsFolders})
		assert.NoError(t, err)
		mockClient.AssertNumberOfCalls(t, "PutObject", 1)
	})
}

func TestService_CheckSchemas(t *testing.T) {
	surveys, db := setupSurveys(t)
	ctx := context.Background()
	svc := NewService(new(mocks.Client), "test-bucket", definitionsFolders, nil, surveys)

	_, err := surveys.SaveDefinition(ctx, feedback())
	require.NoError(t, err)

	report, err := svc.CheckSchemas(ctx)
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.False(t, report.Tables["responses_responsefeedback"].Stale)

	// A regenerated schema that was never reconciled leaves the table behind.
	def := feedback()
	def.Fields = append(def.Fields, schema.FieldDefinition{Slug: "score", Type: "Decimal"})
	require.NoError(t, surveys.Repository().SaveDefinition(ctx, def))
	_, err = surveys.ResponseSchema(ctx, "feedback", true)
	require.NoError(t, err)

	report, err = svc.CheckSchemas(ctx)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	tbl := report.Tables["responses_responsefeedback"]
	assert.Equal(t, "drift", tbl.Status)
	assert.Equal(t, []string{"score"}, tbl.MissingColumns)

	exists, err := database.TableExists(db, "responses_responsefeedback")
	require.NoError(t, err)
	assert.True(t, exists)
}
