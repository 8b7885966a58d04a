//go:build integration

package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veripass/internal/assessment"
	"veripass/pkg/platform/sentinel"
	"veripass/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	cache := NewRedisCache(rc.Client)

	ctx := context.Background()
	evaluatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record := &Record{
		Outcome:         assessment.OutcomePositive,
		FinalPercentage: 0.83,
		EvaluatedAt:     evaluatedAt,
		ValidUntil:      evaluatedAt.AddDate(0, 0, 14),
		Status:          assessment.StatusValid,
	}

	t.Run("miss on unknown hash", func(t *testing.T) {
		_, err := cache.Get(ctx, "abcdef0123456789")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("set then get round-trips the record", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "abcdef0123456789", record, time.Hour))

		got, err := cache.Get(ctx, "abcdef0123456789")
		require.NoError(t, err)
		assert.Equal(t, record.Outcome, got.Outcome)
		assert.Equal(t, record.FinalPercentage, got.FinalPercentage)
		assert.True(t, got.EvaluatedAt.Equal(record.EvaluatedAt))
		assert.True(t, got.ValidUntil.Equal(record.ValidUntil))
	})

	t.Run("entries expire with their ttl", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "1111111111111111", record, 50*time.Millisecond))
		time.Sleep(100 * time.Millisecond)

		_, err := cache.Get(ctx, "1111111111111111")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("hashes are namespaced", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, cache.Set(ctx, "2222222222222222", record, time.Hour))

		keys, err := rc.Client.Keys(ctx, "veripass:verify:*").Result()
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})
}
