package schemacache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"schema-sync/core/apperrors"
	"schema-sync/core/cache"
	"schema-sync/core/schema"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Provider synthesizes a fresh schema, typically from the current definition.
type Provider func(ctx context.Context) (*schema.Schema, error)

// Listener is notified after a schema has been (re)built.
type Listener func(id schema.Identity, s *schema.Schema)

// Options control a GetOrBuild call.
type Options struct {
	// ForceRegenerate discards the local schema regardless of fingerprints.
	ForceRegenerate bool
	// PublishOnChange writes the fingerprint of a rebuilt schema to the shared cache.
	PublishOnChange bool
}

// Cache holds the synthesized schemas of this process.
type Cache struct {
	mu        sync.RWMutex
	schemas   map[schema.Identity]*schema.Schema
	sf        singleflight.Group
	shared    cache.Client
	logger    *zap.Logger
	listeners []Listener
}

// New creates an empty schema cache publishing to shared.
func New(shared cache.Client, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		schemas: make(map[schema.Identity]*schema.Schema),
		shared:  shared,
		logger:  logger,
	}
}

// Subscribe registers a listener for rebuilt schemas.
func (c *Cache) Subscribe(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Current returns the schema resident for id, if any.
func (c *Cache) Current(id schema.Identity) (*schema.Schema, bool) {
	c.mu.RLock()
	s, ok := c.schemas[id]
	c.mu.RUnlock()
	return s, ok
}

// Identities returns the identities with a resident schema, sorted.
func (c *Cache) Identities() []schema.Identity {
	c.mu.RLock()
	ids := make([]schema.Identity, 0, len(c.schemas))
	for id := range c.schemas {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Evict removes the schema resident for id.
func (c *Cache) Evict(id schema.Identity) {
	c.mu.Lock()
	delete(c.schemas, id)
	c.mu.Unlock()
}

// SharedFingerprint reads the fingerprint published for id.
func (c *Cache) SharedFingerprint(ctx context.Context, id schema.Identity) (schema.Fingerprint, bool, error) {
	val, found, err := c.shared.Get(ctx, id.CacheKey())
	if err != nil || !found {
		return "", false, err
	}
	return schema.Fingerprint(val), true, nil
}

// Publish writes the fingerprint of s to the shared cache.
func (c *Cache) Publish(ctx context.Context, s *schema.Schema) error {
	id := s.Identity()
	if err := c.shared.Set(ctx, id.CacheKey(), []byte(s.Fingerprint())); err != nil {
		return err
	}
	c.logger.Debug("Published schema fingerprint",
		zap.String("schema", id.String()),
		zap.String("fingerprint", string(s.Fingerprint())))
	return nil
}

// IsStale reports whether the local schema of id must be rebuilt.
// A schema that is not resident is stale.
func (c *Cache) IsStale(ctx context.Context, id schema.Identity) bool {
	local, ok := c.Current(id)
	if !ok {
		return true
	}
	return c.stale(ctx, local)
}

func (c *Cache) stale(ctx context.Context, local *schema.Schema) bool {
	id := local.Identity()
	shared, found, err := c.SharedFingerprint(ctx, id)
	if err != nil {
		c.logger.Warn("Shared fingerprint unreadable, assuming stale schema",
			zap.String("schema", id.String()), zap.Error(err))
		return true
	}
	if !found || shared != local.Fingerprint() {
		c.logger.Debug("Local and shared schema fingerprints differ",
			zap.String("schema", id.String()),
			zap.String("local", string(local.Fingerprint())),
			zap.String("shared", string(shared)))
		return true
	}
	return false
}

// GetOrBuild returns the schema for id, rebuilding it through provider when the
// local schema is missing, stale or opts.ForceRegenerate is set.
func (c *Cache) GetOrBuild(ctx context.Context, id schema.Identity, provider Provider, opts Options) (*schema.Schema, error) {
	if !opts.ForceRegenerate {
		if local, ok := c.Current(id); ok && !c.stale(ctx, local) {
			return local, nil
		}
	}

	result, err, _ := c.sf.Do(id.String(), func() (interface{}, error) {
		return c.rebuild(ctx, id, provider, opts)
	})
	if err != nil {
		return nil, err
	}
	return result.(*schema.Schema), nil
}

func (c *Cache) rebuild(ctx context.Context, id schema.Identity, provider Provider, opts Options) (*schema.Schema, error) {
	fresh, err := provider(ctx)
	if err != nil {
		// The resident schema is known to be outdated; do not keep serving it.
		c.Evict(id)
		return nil, err
	}
	if fresh.Identity() != id {
		c.Evict(id)
		return nil, fmt.Errorf("%w: provider built %s for %s", apperrors.ErrSynthesis, fresh.Identity(), id)
	}

	c.mu.Lock()
	previous := c.schemas[id]
	c.schemas[id] = fresh
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	fields := []zap.Field{zap.String("schema", id.String()), zap.String("fingerprint", string(fresh.Fingerprint()))}
	if previous != nil {
		fields = append(fields, zap.String("previous", string(previous.Fingerprint())))
	}
	c.logger.Info("Schema rebuilt", fields...)

	if opts.PublishOnChange {
		if err := c.Publish(ctx, fresh); err != nil {
			// Soft failure: the local schema is valid, other processes converge on a later publish.
			level := c.logger.Warn
			if !errors.Is(err, apperrors.ErrCacheUnavailable) {
				level = c.logger.Error
			}
			level("Failed to publish schema fingerprint", zap.String("schema", id.String()), zap.Error(err))
		}
	}

	for _, l := range listeners {
		l(id, fresh)
	}
	return fresh, nil
}
