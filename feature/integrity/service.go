package integrity

import (
	"context"

	"schema-sync/core/storage"
	"schema-sync/feature/integrity/checks"
	"schema-sync/feature/survey"

	"go.uber.org/zap"
)

// Service handles integrity checks.
type Service struct {
	client  storage.Client
	bucket  string
	folders []string
	logger  *zap.Logger
	surveys *survey.Service
}

// NewService creates a new integrity service. folders are the bucket
// prefixes that must exist, usually the definitions prefix.
func NewService(client storage.Client, bucket string, folders []string, logger *zap.Logger, surveys *survey.Service) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		bucket:  bucket,
		folders: folders,
		logger:  logger,
		surveys: surveys,
	}
}

// CheckStructure returns the folders missing from the bucket.
func (s *Service) CheckStructure(ctx context.Context) (*checks.StructureReport, error) {
	return checks.CheckStructure(ctx, s.client, s.bucket, s.folders)
}

// FixStructure creates what CheckStructure reported missing.
func (s *Service) FixStructure(ctx context.Context, report *checks.StructureReport) error {
	return checks.FixStructure(ctx, s.client, s.logger, report)
}

// CheckSchemas compares every response schema with its table and the shared cache.
func (s *Service) CheckSchemas(ctx context.Context) (*checks.SchemaReport, error) {
	schemas, err := s.surveys.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	return checks.CheckSchemas(ctx, s.surveys.DB(), schemas, s.surveys.Cache())
}
