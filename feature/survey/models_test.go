package survey

import (
	"errors"
	"testing"

	"schema-sync/core/apperrors"
	"schema-sync/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

func feedbackDefinition() schema.Definition {
	return schema.Definition{
		Slug: "feedback",
		Name: "Feedback",
		Fields: []schema.FieldDefinition{
			{Slug: "rating", Label: "How would you rate us?", Type: "Integer", Required: true, Choices: []string{"1", "2", "3", "4", "5"}},
			{Slug: "comment", Label: "Anything else?", Type: "LongText"},
			{Slug: "recommend", Label: "Would you recommend us?", Type: "Boolean"},
			{Slug: "name", Label: "Your name", Type: "ShortText", Indexed: true, MaxLength: intPtr(80)},
		},
	}
}

func TestValidateDefinition(t *testing.T) {
	require.NoError(t, ValidateDefinition(feedbackDefinition()))

	tests := []struct {
		name  string
		def   schema.Definition
		field string
	}{
		{"survey slug with digits", schema.Definition{Slug: "poll2024"}, "slug"},
		{"empty survey slug", schema.Definition{}, "slug"},
		{"upper case survey slug", schema.Definition{Slug: "Cafe"}, "slug"},
		{"accented survey slug", schema.Definition{Slug: "café"}, "slug"},
		{"accented question slug", schema.Definition{Slug: "poll", Fields: []schema.FieldDefinition{{Slug: "prénom", Type: "ShortText"}}}, "prénom"},
		{"question slug with dash", schema.Definition{Slug: "poll", Fields: []schema.FieldDefinition{{Slug: "first-name", Type: "ShortText"}}}, "first-name"},
		{"question slug starting with underscore", schema.Definition{Slug: "poll", Fields: []schema.FieldDefinition{{Slug: "_age", Type: "Integer"}}}, "_age"},
		{"duplicate question slug", schema.Definition{Slug: "poll", Fields: []schema.FieldDefinition{{Slug: "age", Type: "Integer"}, {Slug: "age", Type: "Integer"}}}, "age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinition(tt.def)
			require.Error(t, err)
			assert.True(t, apperrors.IsAuthoringError(err))

			var fieldErr *apperrors.FieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tt.field, fieldErr.Field)
		})
	}
}

func TestQuestionsRoundTrip(t *testing.T) {
	def := feedbackDefinition()
	def.Fields[2].Default = true
	def.Fields[2].Nullable = boolPtr(false)

	questions := questionsFor(7, def)
	require.Len(t, questions, 4)
	assert.Equal(t, uint(1), questions[0].Rank)
	assert.Equal(t, uint(4), questions[3].Rank)
	assert.Equal(t, "1,2,3,4,5", questions[0].Choices)
	assert.Equal(t, "true", *questions[2].DefaultValue)

	got := Survey{Slug: def.Slug, Name: def.Name, Questions: questions}.Definition()
	assert.Equal(t, def.Slug, got.Slug)
	require.Len(t, got.Fields, 4)
	assert.Equal(t, def.Fields[0].Choices, got.Fields[0].Choices)
	assert.Equal(t, "true", got.Fields[2].Default)
	assert.Equal(t, 80, *got.Fields[3].MaxLength)
	assert.Equal(t, "Your name", got.Fields[3].Label)
}

func TestChoiceList_DropsBlanks(t *testing.T) {
	q := Question{Choices: " red, ,green,,blue "}
	assert.Equal(t, []string{"red", "green", "blue"}, q.ChoiceList())
	assert.Nil(t, Question{}.ChoiceList())
}

func TestHashSource(t *testing.T) {
	base, err := HashSource(feedbackDefinition())
	require.NoError(t, err)

	renamed := feedbackDefinition()
	renamed.Name = "Customer feedback"
	renamed.Fields[0].Label = "Rate us"
	got, err := HashSource(renamed)
	require.NoError(t, err)
	assert.Equal(t, base, got, "names and labels do not shape columns")

	changed := feedbackDefinition()
	changed.Fields[0].Choices = []string{"1", "2", "3"}
	got, err = HashSource(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, got)

	reordered := feedbackDefinition()
	reordered.Fields[0], reordered.Fields[1] = reordered.Fields[1], reordered.Fields[0]
	got, err = HashSource(reordered)
	require.NoError(t, err)
	assert.NotEqual(t, base, got)
}
