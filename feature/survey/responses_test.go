package survey

import (
	"context"
	"errors"
	"testing"

	"schema-sync/core/apperrors"
	"schema-sync/core/schema"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedbackService(t *testing.T) *Service {
	t.Helper()
	svc, _, _ := newTestService(t)
	def := feedbackDefinition()
	def.Fields = append(def.Fields, schema.FieldDefinition{Slug: "score", Type: "Decimal"})
	_, err := svc.SaveDefinition(context.Background(), def)
	require.NoError(t, err)
	return svc
}

func TestSubmitResponse_StoresRecord(t *testing.T) {
	svc := newFeedbackService(t)
	ctx := context.Background()

	first, err := svc.SubmitResponse(ctx, "feedback", map[string]any{
		"rating":    "4",
		"comment":   "Great service",
		"recommend": true,
		"name":      "Ann",
		"score":     "4.50",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := svc.SubmitResponse(ctx, "feedback", map[string]any{"rating": 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	records, err := svc.ListResponses(ctx, "feedback", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, int64(1), r.ID)
	rating, _ := r.Get("rating")
	assert.Equal(t, int64(4), rating)
	recommend, _ := r.Get("recommend")
	assert.Equal(t, true, recommend)
	comment, _ := r.Get("comment")
	assert.Equal(t, "Great service", comment)
	score, _ := r.Get("score")
	require.IsType(t, decimal.Decimal{}, score)
	assert.True(t, decimal.RequireFromString("4.5").Equal(score.(decimal.Decimal)))

	defaults := records[1]
	recommend, _ = defaults.Get("recommend")
	assert.Equal(t, false, recommend)
	comment, _ = defaults.Get("comment")
	assert.Equal(t, "", comment)
}

func TestSubmitResponse_Pagination(t *testing.T) {
	svc := newFeedbackService(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := svc.SubmitResponse(ctx, "feedback", map[string]any{"rating": i})
		require.NoError(t, err)
	}

	page, err := svc.ListResponses(ctx, "feedback", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].ID)
	assert.Equal(t, int64(4), page[1].ID)
}

func TestSubmitResponse_Rejected(t *testing.T) {
	svc := newFeedbackService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		answers map[string]any
	}{
		{"missing required answer", map[string]any{"comment": "hi"}},
		{"value outside choices", map[string]any{"rating": 9}},
		{"not a number", map[string]any{"rating": "many"}},
		{"unknown question", map[string]any{"rating": 1, "colour": "red"}},
		{"name too long", map[string]any{"rating": 1, "name": string(make([]byte, 81))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitResponse(ctx, "feedback", tt.answers)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidRecord))
		})
	}

	records, err := svc.ListResponses(ctx, "feedback", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmitResponse_UnknownSurvey(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.SubmitResponse(context.Background(), "missing", map[string]any{"a": 1})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
