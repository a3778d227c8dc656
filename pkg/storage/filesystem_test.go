package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("sched-1/timetable.csv", []byte("day,slot\n"))
	require.NoError(t, err)
	require.Equal(t, "sched-1/timetable.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "day,slot\n", string(content))
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	require.Error(t, err)

	_, err = store.Open("/etc/passwd")
	require.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("sched-1/old.csv", []byte("old"))
	require.NoError(t, err)
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "sched-1", "old.csv"), stale, stale))

	_, err = store.Save("sched-2/fresh.csv", []byte("fresh"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("sched-1", "old.csv")}, deleted)

	_, err = store.Open("sched-2/fresh.csv")
	require.NoError(t, err)
}
