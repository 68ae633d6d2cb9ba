package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutGetDelete(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)
	ctx := context.Background()

	location, err := s.Put(ctx, "exports/tree.json", strings.NewReader(`{"a":1}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "exports", "tree.json"), location)

	rc, err := s.Get(ctx, "exports/tree.json")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	require.NoError(t, s.Delete(ctx, "exports/tree.json"))
	_, err = s.Get(ctx, "exports/tree.json")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing object is not an error.
	assert.NoError(t, s.Delete(ctx, "exports/tree.json"))
}

func TestLocalStorage_PutOverwritesWithoutLeftovers(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Put(ctx, "tree.json", strings.NewReader("old"), "")
	require.NoError(t, err)
	_, err = s.Put(ctx, "tree.json", strings.NewReader("new"), "")
	require.NoError(t, err)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(base, "tree.json"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "../outside.json", "a/../../b", `..\windows`} {
		_, err := s.Put(ctx, key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(StorageConfig{Type: StorageTypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(StorageConfig{Type: StorageTypeS3})
	assert.Error(t, err)

	_, err = NewStorage(StorageConfig{Type: "gcs"})
	assert.Error(t, err)
}

func TestExportKey(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	assert.Equal(t, "exports/20240305/law_tree_140709.json", ExportKey(at))
	assert.Equal(t, "application/json", getContentType(ExportKey(at)))
}
