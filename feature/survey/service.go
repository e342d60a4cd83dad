package survey

import (
	"context"
	"errors"
	"fmt"

	"schema-sync/core/apperrors"
	"schema-sync/core/config"
	"schema-sync/core/gate"
	"schema-sync/core/reconcile"
	"schema-sync/core/schema"
	"schema-sync/core/schemacache"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Authoring model names the build gate depends on.
const (
	SurveyModel   = "Survey"
	QuestionModel = "Question"
)

// SyncReport is the outcome of synchronizing one schema.
type SyncReport struct {
	Slug   string            `json:"slug"`
	Table  string            `json:"table"`
	Plan   *reconcile.Plan   `json:"plan,omitempty"`
	Result *reconcile.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Service ties the authoring tables to the schema engine.
type Service struct {
	db         *gorm.DB
	repo       *Repository
	synth      *schema.Synthesizer
	cache      *schemacache.Cache
	reconciler *reconcile.Reconciler
	logger     *zap.Logger
	cfg        config.Engine
}

// NewService creates a survey service. Response schemas are synthesized into cfg.Namespace.
func NewService(db *gorm.DB, cache *schemacache.Cache, cfg config.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         db,
		repo:       NewRepository(db),
		synth:      schema.NewSynthesizer(nil, cfg.Namespace, HashSource),
		cache:      cache,
		reconciler: reconcile.New(logger),
		logger:     logger,
		cfg:        cfg,
	}
}

// Repository returns the authoring repository.
func (s *Service) Repository() *Repository { return s.repo }

// Synthesizer returns the synthesizer used for response schemas.
func (s *Service) Synthesizer() *schema.Synthesizer { return s.synth }

// Cache returns the schema cache.
func (s *Service) Cache() *schemacache.Cache { return s.cache }

// DB returns the store handle.
func (s *Service) DB() *gorm.DB { return s.db }

// Reconciler returns the reconciler used for response tables.
func (s *Service) Reconciler() *reconcile.Reconciler { return s.reconciler }

func (s *Service) provider(repo *Repository, slug string) schemacache.Provider {
	return func(ctx context.Context) (*schema.Schema, error) {
		def, err := repo.GetDefinition(ctx, slug)
		if err != nil {
			return nil, err
		}
		return s.synth.Synthesize(def)
	}
}

func (s *Service) schemaFor(ctx context.Context, repo *Repository, slug string, opts schemacache.Options) (*schema.Schema, error) {
	id, err := s.synth.Identity(slug)
	if err != nil {
		return nil, err
	}
	return s.cache.GetOrBuild(ctx, id, s.provider(repo, slug), opts)
}

// ResponseSchema returns the response schema of slug, rebuilding it when stale
// or when regenerate is set.
func (s *Service) ResponseSchema(ctx context.Context, slug string, regenerate bool) (*schema.Schema, error) {
	return s.schemaFor(ctx, s.repo, slug, schemacache.Options{
		ForceRegenerate: regenerate,
		PublishOnChange: s.cfg.PublishOnChange,
	})
}

// CurrentSchema returns the resident schema of slug without rebuilding it.
func (s *Service) CurrentSchema(slug string) (*schema.Schema, bool) {
	id, err := s.synth.Identity(slug)
	if err != nil {
		return nil, false
	}
	return s.cache.Current(id)
}

// ListSchemas returns the response schema of every survey. Surveys whose
// definition cannot be synthesized are skipped and logged.
func (s *Service) ListSchemas(ctx context.Context) ([]*schema.Schema, error) {
	defs, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Schema, 0, len(defs))
	for _, def := range defs {
		sch, err := s.ResponseSchema(ctx, def.Slug, false)
		if err != nil {
			if apperrors.IsAuthoringError(err) {
				s.logger.Warn("Skipping invalid survey", zap.String("survey", def.Slug), zap.Error(err))
				continue
			}
			return nil, err
		}
		out = append(out, sch)
	}
	return out, nil
}

// BuildAll builds the response schema and table of every survey on tx and
// returns the schemas it built. Nothing is published: the caller owns tx and
// hands the outcome of its commit to CompleteBuild. Store errors abort the
// build. Invalid definitions are logged and skipped so they cannot roll back
// the tables of valid surveys.
func (s *Service) BuildAll(ctx context.Context, tx *gorm.DB) ([]*schema.Schema, error) {
	repo := s.repo.WithDB(tx)
	defs, err := repo.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	built := make([]*schema.Schema, 0, len(defs))
	invalid := 0
	for _, def := range defs {
		sch, err := s.schemaFor(ctx, repo, def.Slug, schemacache.Options{})
		if err != nil {
			if apperrors.IsAuthoringError(err) {
				s.logger.Error("Survey cannot be synthesized", zap.String("survey", def.Slug), zap.Error(err))
				invalid++
				continue
			}
			return built, err
		}
		built = append(built, sch)
		if _, err := s.reconciler.EnsureTable(ctx, tx, sch); err != nil {
			return built, err
		}
		if _, err := s.reconciler.AddMissingColumns(ctx, tx, sch); err != nil {
			return built, err
		}
	}

	s.logger.Info("Response tables built", zap.Int("surveys", len(defs)), zap.Int("invalid", invalid))
	return built, nil
}

// CompleteBuild settles schemas returned by BuildAll once its transaction has
// ended. After a commit (txErr nil) their fingerprints are published; after a
// rollback they are evicted so the next lookup rebuilds them.
func (s *Service) CompleteBuild(ctx context.Context, built []*schema.Schema, txErr error) {
	if txErr != nil {
		for _, sch := range built {
			s.cache.Evict(sch.Identity())
		}
		s.logger.Warn("Response table build rolled back, schemas discarded",
			zap.Int("schemas", len(built)), zap.Error(txErr))
		return
	}
	if !s.cfg.PublishOnChange {
		return
	}
	for _, sch := range built {
		if err := s.cache.Publish(ctx, sch); err != nil {
			s.logger.Warn("Failed to publish schema fingerprint", zap.String("schema", sch.Identity().String()), zap.Error(err))
		}
	}
}

// Resync regenerates the schema of slug, reconciles its table and publishes
// the new fingerprint once the table matches.
func (s *Service) Resync(ctx context.Context, slug string) (*reconcile.Result, error) {
	sch, err := s.schemaFor(ctx, s.repo, slug, schemacache.Options{ForceRegenerate: true})
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.Sync(ctx, s.db, sch)
	if err != nil {
		return nil, err
	}
	if s.cfg.PublishOnChange {
		if err := s.cache.Publish(ctx, sch); err != nil {
			s.logger.Warn("Failed to publish schema fingerprint", zap.String("survey", slug), zap.Error(err))
		}
	}
	return result, nil
}

// SyncAll synchronizes every survey. With dryRun the pending changes are only planned.
// Per-survey failures are reported, not returned.
func (s *Service) SyncAll(ctx context.Context, dryRun bool) ([]SyncReport, error) {
	defs, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]SyncReport, 0, len(defs))
	for _, def := range defs {
		report := SyncReport{Slug: def.Slug}
		if dryRun {
			report.Plan, err = s.PlanSync(ctx, def.Slug)
		} else {
			report.Result, err = s.Resync(ctx, def.Slug)
		}
		if id, idErr := s.synth.Identity(def.Slug); idErr == nil {
			report.Table = id.TableName()
		}
		if err != nil {
			s.logger.Error("Schema sync failed", zap.String("survey", def.Slug), zap.Error(err))
			report.Error = err.Error()
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// PlanSync reports the changes Resync would apply to the table of slug.
func (s *Service) PlanSync(ctx context.Context, slug string) (*reconcile.Plan, error) {
	sch, err := s.ResponseSchema(ctx, slug, false)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Plan(ctx, s.db, sch)
}

// SaveDefinition validates def, stores it in the authoring tables and resyncs its table.
// A definition whose response table already belongs to another survey is rejected.
func (s *Service) SaveDefinition(ctx context.Context, def schema.Definition) (*reconcile.Result, error) {
	sch, err := s.synth.Synthesize(def)
	if err != nil {
		return nil, err
	}
	if err := s.checkTableOwner(ctx, def.Slug, sch.TableName()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveDefinition(ctx, def); err != nil {
		return nil, err
	}
	return s.Resync(ctx, def.Slug)
}

func (s *Service) checkTableOwner(ctx context.Context, slug, table string) error {
	slugs, err := s.repo.Slugs(ctx)
	if err != nil {
		return err
	}
	for _, other := range slugs {
		if other == slug {
			continue
		}
		id, err := s.synth.Identity(other)
		if err != nil {
			continue
		}
		if id.TableName() == table {
			return &apperrors.FieldError{Definition: slug, Field: "slug",
				Err: fmt.Errorf("%w: table %s already belongs to survey %q", apperrors.ErrSynthesis, table, other)}
		}
	}
	return nil
}

// DropSchema drops the response table of slug and evicts its schema.
// The survey itself is removed when deleteSurvey is set.
func (s *Service) DropSchema(ctx context.Context, slug string, deleteSurvey bool) error {
	id, err := s.synth.Identity(slug)
	if err != nil {
		return err
	}
	if err := s.reconciler.DropTable(ctx, s.db, id.TableName()); err != nil {
		return err
	}
	s.cache.Evict(id)
	if deleteSurvey {
		return s.repo.DeleteSurvey(ctx, slug)
	}
	return nil
}

// RenameField renames a question and its response column in one transaction,
// keeping the stored answers, then resyncs the schema.
func (s *Service) RenameField(ctx context.Context, slug, from, to string) (*reconcile.Result, error) {
	id, err := s.synth.Identity(slug)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithDB(tx).RenameQuestion(ctx, slug, from, to); err != nil {
			return err
		}
		return s.reconciler.RenameColumn(ctx, tx, id.TableName(), schema.ColumnName(from), schema.ColumnName(to))
	})
	if err != nil {
		if !apperrors.IsStoreError(err) && !errors.Is(err, apperrors.ErrNotFound) && !apperrors.IsAuthoringError(err) {
			err = apperrors.NewStoreError("transaction", id.TableName(), err)
		}
		return nil, err
	}
	return s.Resync(ctx, slug)
}

// RegisterGate registers BuildAll to run once both authoring models are prepared.
// Fingerprints are published only after the build transaction commits.
func (s *Service) RegisterGate(d *gate.Dispatcher) *gate.Gate {
	var built []*schema.Schema
	g := d.Register(s.cfg.AuthoringNamespace, []string{SurveyModel, QuestionModel}, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		built, err = s.BuildAll(ctx, tx)
		return err
	})
	g.OnDone(func(ctx context.Context, err error) {
		s.CompleteBuild(ctx, built, err)
	})
	return g
}

// Bootstrap migrates the authoring tables and announces them to d.
func (s *Service) Bootstrap(ctx context.Context, d *gate.Dispatcher) error {
	if err := s.repo.Migrate(ctx); err != nil {
		return err
	}
	for _, name := range []string{SurveyModel, QuestionModel} {
		ev := gate.Event{Namespace: s.cfg.AuthoringNamespace, Name: name}
		if err := d.Notify(ctx, ev); err != nil {
			return fmt.Errorf("bootstrap %s: %w", name, err)
		}
	}
	return nil
}

// LogChanges subscribes a listener logging every rebuilt schema.
func (s *Service) LogChanges() {
	s.cache.Subscribe(func(id schema.Identity, sch *schema.Schema) {
		s.logger.Info("Response schema changed",
			zap.String("schema", id.String()),
			zap.String("table", sch.TableName()),
			zap.Int("columns", sch.Len()))
	})
}
