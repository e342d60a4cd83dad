// Package cache provides the shared key/value cache used to publish schema
// fingerprints between processes.
//
// # Client Interface
//
// The Client interface only needs Get and Set. Two implementations are provided:
//
//   - Redis: backed by go-redis, shared by every process pointing at the same server.
//   - Memory: process-local map, used when no Redis host is configured (single process).
//
// Every failure of the backing server is wrapped with apperrors.ErrCacheUnavailable
// so callers can apply their own fallback policy. A missing key is not an error.
//
// # Usage
//
//	client, err := cache.New(cfg.Cache)
//	fp, found, err := client.Get(ctx, "dynamic_model_hash_responses-Responsesatisfaction")
package cache
