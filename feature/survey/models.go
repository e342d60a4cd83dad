package survey

import (
	"fmt"
	"strings"
	"time"

	"schema-sync/core/apperrors"
	"schema-sync/core/schema"
	"schema-sync/core/utils"
)

// Survey is an authored definition.
type Survey struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null;default:''" json:"name"`
	Slug      string     `gorm:"size:50;not null;uniqueIndex" json:"slug"`
	Questions []Question `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Survey) TableName() string { return "surveymaker_survey" }

// Question is one field of a survey. Questions are ordered by Rank.
type Question struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	SurveyID   uint   `gorm:"not null;uniqueIndex:idx_question_survey_slug" json:"survey_id"`
	Question   string `gorm:"size:255;not null;default:''" json:"question"`
	Slug       string `gorm:"size:50;not null;uniqueIndex:idx_question_survey_slug" json:"slug"`
	AnswerType string `gorm:"size:32;not null" json:"answer_type"`
	// Choices is a comma separated list.
	Choices  string `gorm:"size:1024;not null;default:''" json:"choices"`
	Required bool   `gorm:"not null;default:false" json:"required"`
	Indexed  bool   `gorm:"not null;default:false" json:"indexed"`
	Rank     uint   `gorm:"not null;default:5" json:"rank"`

	// Optional overrides of the answer type defaults.
	Nullable      *bool   `json:"nullable,omitempty"`
	MaxLength     *int    `json:"max_length,omitempty"`
	MaxDigits     *int    `json:"max_digits,omitempty"`
	DecimalPlaces *int    `json:"decimal_places,omitempty"`
	DefaultValue  *string `gorm:"size:255" json:"default,omitempty"`
}

func (Question) TableName() string { return "surveymaker_question" }

// ChoiceList splits Choices, dropping blanks.
func (q Question) ChoiceList() []string {
	return splitChoices(q.Choices)
}

func splitChoices(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Definition converts the survey and its (rank ordered) questions.
func (s Survey) Definition() schema.Definition {
	def := schema.Definition{Slug: s.Slug, Name: s.Name, Fields: make([]schema.FieldDefinition, 0, len(s.Questions))}
	for _, q := range s.Questions {
		def.Fields = append(def.Fields, schema.FieldDefinition{
			Slug:     q.Slug,
			Label:    q.Question,
			Type:     q.AnswerType,
			Required: q.Required,
			Choices:  q.ChoiceList(),
			Indexed:  q.Indexed,

			Nullable:      q.Nullable,
			MaxLength:     q.MaxLength,
			MaxDigits:     q.MaxDigits,
			DecimalPlaces: q.DecimalPlaces,
			Default:       defaultOf(q.DefaultValue),
		})
	}
	return def
}

// questionsFor converts the fields of def into questions of surveyID, ranked in field order.
func questionsFor(surveyID uint, def schema.Definition) []Question {
	questions := make([]Question, 0, len(def.Fields))
	for i, f := range def.Fields {
		questions = append(questions, Question{
			SurveyID:   surveyID,
			Question:   f.Label,
			Slug:       f.Slug,
			AnswerType: f.Type,
			Choices:    strings.Join(f.Choices, ","),
			Required:   f.Required,
			Indexed:    f.Indexed,
			Rank:       uint(i + 1),

			Nullable:      f.Nullable,
			MaxLength:     f.MaxLength,
			MaxDigits:     f.MaxDigits,
			DecimalPlaces: f.DecimalPlaces,
			DefaultValue:  defaultText(f.Default),
		})
	}
	return questions
}

// Defaults are stored as text and coerced by the answer type on synthesis.
func defaultOf(text *string) any {
	if text == nil {
		return nil
	}
	return *text
}

func defaultText(v any) *string {
	if v == nil {
		return nil
	}
	s := utils.ToString(v)
	return &s
}

// ValidateDefinition applies the authoring rules: a survey slug made of lower
// case ASCII letters, question slugs of ASCII letters and underscores starting
// with a letter, and unique question slugs. Type tags are checked during synthesis.
//
// Survey slugs name the response table, so any other character would let two
// slugs share one table.
func ValidateDefinition(def schema.Definition) error {
	if def.Slug == "" || !allRunes(def.Slug, isLower) {
		return &apperrors.FieldError{Definition: def.Slug, Field: "slug",
			Err: fmt.Errorf("%w: survey slug must contain lower case letters a-z only", apperrors.ErrSynthesis)}
	}
	seen := make(map[string]struct{}, len(def.Fields))
	for _, f := range def.Fields {
		if !validQuestionSlug(f.Slug) {
			return &apperrors.FieldError{Definition: def.Slug, Field: f.Slug,
				Err: fmt.Errorf("%w: use only letters and underscores, starting with a letter", apperrors.ErrSynthesis)}
		}
		if _, dup := seen[f.Slug]; dup {
			return &apperrors.FieldError{Definition: def.Slug, Field: f.Slug,
				Err: fmt.Errorf("%w: duplicate question slug", apperrors.ErrSynthesis)}
		}
		seen[f.Slug] = struct{}{}
	}
	return nil
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func isLetter(r rune) bool { return isLower(r) || (r >= 'A' && r <= 'Z') }

func validQuestionSlug(slug string) bool {
	if slug == "" || !isLetter(rune(slug[0])) {
		return false
	}
	return allRunes(slug, func(r rune) bool { return isLetter(r) || r == '_' })
}

func allRunes(s string, ok func(rune) bool) bool {
	for _, r := range s {
		if !ok(r) {
			return false
		}
	}
	return true
}
