package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, err)

	assert.False(t, h.Present())
	assert.Empty(t, h.Token())
}

func TestSet_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvforge", "token")

	h := NewHolder(path)
	require.NoError(t, h.Set("  abc.def.ghi\n"))
	assert.Equal(t, "abc.def.ghi", h.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", reloaded.Token())
}

func TestClear_RemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	h := NewHolder(path)
	require.NoError(t, h.Set("tok"))
	require.NoError(t, h.Clear())

	assert.False(t, h.Present())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// clearing twice is fine
	require.NoError(t, h.Clear())
}

func TestUse_DoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	h := NewHolder(path)
	h.Use("env-token")

	assert.Equal(t, "env-token", h.Token())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSubscribe_NotifiesOnChangeOnly(t *testing.T) {
	h := NewHolder("")

	var seen []string
	unsubscribe := h.Subscribe(func(token string) {
		seen = append(seen, token)
	})

	require.NoError(t, h.Set("a"))
	require.NoError(t, h.Set("a"))
	require.NoError(t, h.Set("b"))
	require.NoError(t, h.Clear())

	unsubscribe()
	require.NoError(t, h.Set("c"))

	assert.Equal(t, []string{"a", "b", ""}, seen)
}
