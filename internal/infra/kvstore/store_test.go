package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	_, ok := s.Color()
	assert.False(t, ok)
}

func TestStore_SetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetColor(5))

	c, ok := s.Color()
	assert.True(t, ok)
	assert.Equal(t, 5, c)

	// A fresh open sees the persisted value.
	reloaded, err := Open(path)
	require.NoError(t, err)
	c, ok = reloaded.Color()
	assert.True(t, ok)
	assert.Equal(t, 5, c)
}

func TestStore_ClearColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetColor(2))
	require.NoError(t, s.ClearColor())

	_, ok := s.Color()
	assert.False(t, ok)

	reloaded, err := Open(path)
	require.NoError(t, err)
	_, ok = reloaded.Color()
	assert.False(t, ok)
}

func TestStore_OverwriteKeepsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetColor(1))
	require.NoError(t, s.SetColor(2))

	// No temp files left behind by the atomic replace.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings.yaml", entries[0].Name())

	c, _ := s.Color()
	assert.Equal(t, 2, c)
}

func TestStore_OpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\tnot yaml"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}
