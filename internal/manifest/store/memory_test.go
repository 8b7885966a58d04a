package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veripass/internal/manifest"
	"veripass/pkg/platform/sentinel"
)

func storedManifest(version string) *manifest.Manifest {
	return &manifest.Manifest{
		Version: version,
		Topics: []manifest.Topic{
			{Code: "GSI.03", Questions: []manifest.Question{{ID: version + "_1", Weight: 1}}},
		},
	}
}

func TestInMemorySaveAndActivate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	t.Run("empty store has no active manifest", func(t *testing.T) {
		_, err := store.FindActive(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	require.NoError(t, store.SaveAndActivate(ctx, storedManifest("2025.1")))

	t.Run("saved manifest becomes active", func(t *testing.T) {
		active, err := store.FindActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2025.1", active.Version)
	})

	t.Run("duplicate version conflicts", func(t *testing.T) {
		assert.ErrorIs(t, store.SaveAndActivate(ctx, storedManifest("2025.1")), sentinel.ErrConflict)
	})

	t.Run("newer version takes over activation", func(t *testing.T) {
		require.NoError(t, store.SaveAndActivate(ctx, storedManifest("2025.2")))

		active, err := store.FindActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2025.2", active.Version)

		previous, err := store.FindByVersion(ctx, "2025.1")
		require.NoError(t, err)
		assert.Equal(t, "2025.1", previous.Version)
	})

	t.Run("unknown version not found", func(t *testing.T) {
		_, err := store.FindByVersion(ctx, "1999.1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list versions reports the active pointer", func(t *testing.T) {
		versions, active, err := store.ListVersions(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"2025.1", "2025.2"}, versions)
		assert.Equal(t, "2025.2", active)
	})

	t.Run("stored manifests are isolated from caller mutation", func(t *testing.T) {
		m, err := store.FindByVersion(ctx, "2025.1")
		require.NoError(t, err)
		m.Version = "mutated"

		reloaded, err := store.FindByVersion(ctx, "2025.1")
		require.NoError(t, err)
		assert.Equal(t, "2025.1", reloaded.Version)
	})
}
