package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"schema-sync/core/apperrors"
	"schema-sync/core/schema"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes definitions in the authoring tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository over db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithDB returns a repository bound to db, typically a transaction.
func (r *Repository) WithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the authoring tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&Survey{}, &Question{}); err != nil {
		return apperrors.NewStoreError("migrate", Survey{}.TableName(), err)
	}
	return nil
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	// rank is a reserved word in MySQL 8, so the column is quoted through a clause.
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "rank"}}).Order("id")
}

// ListSurveys returns every survey with its ordered questions.
func (r *Repository) ListSurveys(ctx context.Context) ([]Survey, error) {
	var surveys []Survey
	err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Order("slug").
		Find(&surveys).Error
	if err != nil {
		return nil, apperrors.NewStoreError("query", Survey{}.TableName(), err)
	}
	return surveys, nil
}

// Slugs returns the slug of every survey.
func (r *Repository) Slugs(ctx context.Context) ([]string, error) {
	var slugs []string
	if err := r.db.WithContext(ctx).Model(&Survey{}).Order("slug").Pluck("slug", &slugs).Error; err != nil {
		return nil, apperrors.NewStoreError("query", Survey{}.TableName(), err)
	}
	return slugs, nil
}

// ListDefinitions returns the definition of every survey, ordered by slug.
func (r *Repository) ListDefinitions(ctx context.Context) ([]schema.Definition, error) {
	surveys, err := r.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}
	defs := make([]schema.Definition, 0, len(surveys))
	for _, s := range surveys {
		defs = append(defs, s.Definition())
	}
	return defs, nil
}

// GetDefinition returns the definition of slug, or ErrNotFound.
func (r *Repository) GetDefinition(ctx context.Context, slug string) (schema.Definition, error) {
	var survey Survey
	err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Where("slug = ?", slug).
		Take(&survey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema.Definition{}, fmt.Errorf("survey %q: %w", slug, apperrors.ErrNotFound)
	}
	if err != nil {
		return schema.Definition{}, apperrors.NewStoreError("query", Survey{}.TableName(), err)
	}
	return survey.Definition(), nil
}

// SaveDefinition creates or replaces the survey slug with the fields of def.
// Questions are replaced as a whole, ranked in field order.
func (r *Repository) SaveDefinition(ctx context.Context, def schema.Definition) error {
	if err := ValidateDefinition(def); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var survey Survey
		err := tx.Where("slug = ?", def.Slug).Take(&survey).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			survey = Survey{Slug: def.Slug}
		case err != nil:
			return apperrors.NewStoreError("query", Survey{}.TableName(), err)
		}

		survey.Name = def.Name
		if err := tx.Save(&survey).Error; err != nil {
			return apperrors.NewStoreError("save", Survey{}.TableName(), err)
		}
		if err := tx.Where("survey_id = ?", survey.ID).Delete(&Question{}).Error; err != nil {
			return apperrors.NewStoreError("delete", Question{}.TableName(), err)
		}
		questions := questionsFor(survey.ID, def)
		if len(questions) == 0 {
			return nil
		}
		if err := tx.Create(&questions).Error; err != nil {
			return apperrors.NewStoreError("save", Question{}.TableName(), err)
		}
		return nil
	})
}

// RenameQuestion changes the slug of a question of survey slug.
func (r *Repository) RenameQuestion(ctx context.Context, slug, from, to string) error {
	if !validQuestionSlug(to) {
		return &apperrors.FieldError{Definition: slug, Field: to,
			Err: fmt.Errorf("%w: use only letters and underscores, starting with a letter", apperrors.ErrSynthesis)}
	}
	db := r.db.WithContext(ctx)
	var survey Survey
	if err := db.Where("slug = ?", slug).Take(&survey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("survey %q: %w", slug, apperrors.ErrNotFound)
		}
		return apperrors.NewStoreError("query", Survey{}.TableName(), err)
	}
	res := db.Model(&Question{}).
		Where("survey_id = ? AND slug = ?", survey.ID, from).
		Update("slug", to)
	if res.Error != nil {
		return apperrors.NewStoreError("update", Question{}.TableName(), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("question %q of survey %q: %w", from, slug, apperrors.ErrNotFound)
	}
	return nil
}

// DeleteSurvey removes a survey and its questions.
func (r *Repository) DeleteSurvey(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var survey Survey
		if err := tx.Where("slug = ?", slug).Take(&survey).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("survey %q: %w", slug, apperrors.ErrNotFound)
			}
			return apperrors.NewStoreError("query", Survey{}.TableName(), err)
		}
		if err := tx.Where("survey_id = ?", survey.ID).Delete(&Question{}).Error; err != nil {
			return apperrors.NewStoreError("delete", Question{}.TableName(), err)
		}
		if err := tx.Delete(&survey).Error; err != nil {
			return apperrors.NewStoreError("delete", Survey{}.TableName(), err)
		}
		return nil
	})
}

// HashSource is the fingerprint input of a survey: the ordered question slugs
// with the parts of each question that shape its column. Survey names and
// question texts are left out.
func HashSource(def schema.Definition) ([]byte, error) {
	type entry struct {
		Slug          string   `json:"slug"`
		Type          string   `json:"type"`
		Required      bool     `json:"required"`
		Choices       []string `json:"choices"`
		Indexed       bool     `json:"indexed"`
		Nullable      *bool    `json:"nullable"`
		MaxLength     *int     `json:"max_length"`
		MaxDigits     *int     `json:"max_digits"`
		DecimalPlaces *int     `json:"decimal_places"`
		Default       *string  `json:"default"`
	}
	entries := make([]entry, 0, len(def.Fields))
	for _, f := range def.Fields {
		entries = append(entries, entry{
			Slug:          f.Slug,
			Type:          f.Type,
			Required:      f.Required,
			Choices:       f.Choices,
			Indexed:       f.Indexed,
			Nullable:      f.Nullable,
			MaxLength:     f.MaxLength,
			MaxDigits:     f.MaxDigits,
			DecimalPlaces: f.DecimalPlaces,
			Default:       defaultText(f.Default),
		})
	}
	return json.Marshal(entries)
}
