//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/attribute"
	"custodia/internal/customfield"
	"custodia/internal/evidencetype"
	"custodia/pkg/testutil"
	"custodia/pkg/testutil/containers"
)

func sampleSchema() []evidencetype.SchemaField {
	return []evidencetype.SchemaField{
		{
			CustomField: &customfield.CustomField{
				ID:          1,
				AttributeID: 10,
				Attribute: &attribute.Attribute{
					ID:       10,
					Name:     "Contract number",
					Slug:     "contract_number",
					Datatype: attribute.DatatypeText,
					Active:   true,
				},
				Active: true,
			},
			Mandatory:  true,
			GroupLabel: "General",
			Active:     true,
		},
	}
}

func TestSchemaCacheIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	c := New(rc.Client, time.Minute, nil, testutil.DiscardLogger())

	t.Run("absent key is a miss", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("set then get returns the stored schema", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		c.Set(ctx, 1, sampleSchema())
		got, ok := c.Get(ctx, 1)
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, "contract_number", got[0].CustomField.Attribute.Slug)
		assert.True(t, got[0].Mandatory)
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		c.Set(ctx, 1, sampleSchema())
		c.Invalidate(ctx, 1)
		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("corrupt entry is dropped and treated as a miss", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, rc.Client.Set(ctx, "schema:type:2", "{not json", time.Minute).Err())

		_, ok := c.Get(ctx, 2)
		assert.False(t, ok)

		err := rc.Client.Get(ctx, "schema:type:2").Err()
		assert.ErrorIs(t, err, redis.Nil)
	})

	t.Run("entries expire with the configured TTL", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		short := New(rc.Client, 100*time.Millisecond, nil, testutil.DiscardLogger())
		short.Set(ctx, 3, sampleSchema())

		_, ok := short.Get(ctx, 3)
		require.True(t, ok)

		time.Sleep(200 * time.Millisecond)
		_, ok = short.Get(ctx, 3)
		assert.False(t, ok)
	})
}
