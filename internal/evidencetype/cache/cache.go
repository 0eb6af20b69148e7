// Package cache provides a Redis-backed read-through cache for resolved
// evidence-type schemas.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/internal/evidencetype"
	"custodia/internal/platform/metrics"
	id "custodia/pkg/domain"
)

// SchemaCache stores resolved schemas under schema:type:<id> with a TTL.
// Cache failures are logged and treated as misses; the store stays the
// source of truth.
type SchemaCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *SchemaCache {
	return &SchemaCache{client: client, ttl: ttl, metrics: m, logger: logger}
}

func key(typeID id.EvidenceTypeID) string {
	return fmt.Sprintf("schema:type:%d", typeID)
}

func (c *SchemaCache) Get(ctx context.Context, typeID id.EvidenceTypeID) ([]evidencetype.SchemaField, bool) {
	payload, err := c.client.Get(ctx, key(typeID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "schema cache read failed", "type_id", typeID, "error", err)
		}
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	var schema []evidencetype.SchemaField
	if err := json.Unmarshal(payload, &schema); err != nil {
		c.logger.WarnContext(ctx, "schema cache entry corrupt, dropping", "type_id", typeID, "error", err)
		c.client.Del(ctx, key(typeID))
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	c.metrics.RecordCacheHit()
	return schema, true
}

func (c *SchemaCache) Set(ctx context.Context, typeID id.EvidenceTypeID, schema []evidencetype.SchemaField) {
	payload, err := json.Marshal(schema)
	if err != nil {
		c.logger.WarnContext(ctx, "schema cache marshal failed", "type_id", typeID, "error", err)
		return
	}
	if err := c.client.Set(ctx, key(typeID), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "schema cache write failed", "type_id", typeID, "error", err)
	}
}

func (c *SchemaCache) Invalidate(ctx context.Context, typeID id.EvidenceTypeID) {
	if err := c.client.Del(ctx, key(typeID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "schema cache invalidation failed", "type_id", typeID, "error", err)
	}
}
