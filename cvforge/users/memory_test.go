package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_FindOrCreateIsStablePerProvider(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first, err := repo.FindOrCreateByProvider(ctx, "github", "42", "a@example.com", "Ada", "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := repo.FindOrCreateByProvider(ctx, "github", "42", "ada@example.com", "Ada L", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ada@example.com", second.Email)

	other, err := repo.FindOrCreateByProvider(ctx, "google", "42", "a@example.com", "Ada", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestMemoryRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := repo.FindOrCreateByProvider(ctx, "google", "7", "g@example.com", "Grace", "")
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", found.Name)
}

func TestMemoryRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.UpdateProfile(ctx, "missing", "x", "")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := repo.FindOrCreateByProvider(ctx, "google", "7", "g@example.com", "Grace", "")
	require.NoError(t, err)

	updated, err := repo.UpdateProfile(ctx, created.ID, "Grace Hopper", "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", updated.Name)
	assert.Equal(t, "https://example.com/a.png", updated.AvatarURL)
}
