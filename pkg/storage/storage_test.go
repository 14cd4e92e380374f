package storage

import (
	"os"
	"path/filepath"
	"testing"

	"vmstore/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReadModifyDelete(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Create("notes.txt", []byte("hello")))
	assert.ErrorIs(t, store.Create("notes.txt", []byte("again")), ErrExists)

	data, err := store.Read("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Modify("notes.txt", []byte("changed")))
	data, _ = store.Read("notes.txt")
	assert.Equal(t, "changed", string(data))
	assert.ErrorIs(t, store.Modify("other.txt", nil), ErrNotExist)

	assert.Equal(t, []string{"notes.txt"}, store.Files(OriginCreated))
	require.NoError(t, store.Delete("notes.txt"))
	assert.ErrorIs(t, store.Delete("notes.txt"), ErrNotExist)
	_, err = store.Read("notes.txt")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../x", "Replicated_x"} {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidName, name)
	}
	assert.NoError(t, ValidateName("ok.txt"))
}

func TestGhostIsNotReadable(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	require.NoError(t, store.Ghost("remote.txt", "vm1"))
	assert.Equal(t, types.ReplicaGhosted, store.State("remote.txt"))
	assert.False(t, store.Holds("remote.txt"))
	assert.Equal(t, []string{"remote.txt"}, store.Ghosts())

	marker, err := os.ReadFile(filepath.Join(dir, "Replicated_remote.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Replicate file: remote.txt from vm1\n", string(marker))

	_, err = store.Read("remote.txt")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestGhostDoesNotShadowHeldFile(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Create("mine.txt", []byte("x")))

	require.NoError(t, store.Ghost("mine.txt", "vm2"))
	assert.Equal(t, types.ReplicaMaterialized, store.State("mine.txt"))
	assert.Empty(t, store.Ghosts())
}

func TestMaterializeReplacesGhost(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	require.NoError(t, store.Ghost("remote.txt", "vm1"))

	require.NoError(t, store.Materialize("remote.txt", []byte("bytes")))
	assert.Equal(t, types.ReplicaMaterialized, store.State("remote.txt"))
	assert.Empty(t, store.Ghosts())
	assert.Equal(t, []string{"remote.txt"}, store.Files(OriginDownloaded))

	_, err := os.Stat(filepath.Join(dir, "Replicated_remote.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Replicated_far.txt"), []byte("marker"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	store := NewLocalStore(dir)
	require.NoError(t, store.Load())

	assert.Equal(t, []string{"old.txt"}, store.Files())
	assert.Empty(t, store.Files(OriginCreated))
	assert.Equal(t, []string{"far.txt"}, store.Ghosts())
	assert.Equal(t, types.ReplicaUnknown, store.State("sub"))
}

func TestLoadCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := NewLocalStore(dir)
	require.NoError(t, store.Load())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
