package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := openMemory(t)

	_, ok, err := s.Get("accessToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("accessToken", "abc"))
	require.NoError(t, s.Set("accessToken", "def"))
	v, ok, err := s.Get("accessToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", v)

	at, ok, err := s.UpdatedAt("accessToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	require.NoError(t, s.Set("user", "{}"))
	require.NoError(t, s.Delete("accessToken", "user", "missing"))
	_, ok, err = s.Get("user")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.UpdatedAt("accessToken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenInDataDirPersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("", dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "remind.db"))

	s, err = Open("", dir)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestDataDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	dir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/remind", dir)
}
