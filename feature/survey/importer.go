package survey

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"schema-sync/core/schema"
	"schema-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ImportReport lists the outcome of importing definition documents.
type ImportReport struct {
	Imported []string          `json:"imported"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Importer moves definition documents between a bucket prefix and the authoring tables.
type Importer struct {
	client  storage.Client
	bucket  string
	prefix  string
	service *Service
	logger  *zap.Logger
}

// NewImporter creates an importer for the YAML documents under prefix in bucket.
func NewImporter(client storage.Client, bucket, prefix string, service *Service, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{client: client, bucket: bucket, prefix: prefix, service: service, logger: logger}
}

// ParseDefinition decodes a YAML definition document. Unknown keys are rejected.
func ParseDefinition(data []byte) (schema.Definition, error) {
	var def schema.Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return schema.Definition{}, fmt.Errorf("decode definition: %w", err)
	}
	if def.Slug == "" {
		return schema.Definition{}, fmt.Errorf("decode definition: missing slug")
	}
	return def, nil
}

// Keys lists the definition documents under the prefix.
func (i *Importer) Keys(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: i.prefix, Recursive: true}
	var keys []string
	for obj := range i.client.ListObjects(ctx, i.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", i.bucket, i.prefix, obj.Err)
		}
		ext := strings.ToLower(path.Ext(obj.Key))
		if ext == ".yaml" || ext == ".yml" {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

// Load reads and decodes the document stored under key.
func (i *Importer) Load(ctx context.Context, key string) (schema.Definition, error) {
	obj, err := i.client.GetObject(ctx, i.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return schema.Definition{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return schema.Definition{}, fmt.Errorf("read %s: %w", key, err)
	}
	return ParseDefinition(buf.Bytes())
}

// Import saves every document under the prefix and resyncs its table.
// A failing document does not stop the others.
func (i *Importer) Import(ctx context.Context) (*ImportReport, error) {
	keys, err := i.Keys(ctx)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Imported: []string{}, Failed: map[string]string{}}
	for _, key := range keys {
		def, err := i.Load(ctx, key)
		if err == nil {
			_, err = i.service.SaveDefinition(ctx, def)
		}
		if err != nil {
			i.logger.Error("Definition import failed", zap.String("key", key), zap.Error(err))
			report.Failed[key] = err.Error()
			continue
		}
		i.logger.Info("Definition imported", zap.String("key", key), zap.String("survey", def.Slug))
		report.Imported = append(report.Imported, def.Slug)
	}
	return report, nil
}

// Export writes the definition of every survey as <prefix><slug>.yaml.
func (i *Importer) Export(ctx context.Context) ([]string, error) {
	defs, err := i.service.Repository().ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(defs))
	for _, def := range defs {
		data, err := yaml.Marshal(def)
		if err != nil {
			return keys, fmt.Errorf("encode %s: %w", def.Slug, err)
		}
		key := i.prefix + def.Slug + ".yaml"
		_, err = i.client.PutObject(ctx, i.bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/yaml"})
		if err != nil {
			return keys, fmt.Errorf("put %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
