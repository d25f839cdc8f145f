package storage

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUploadArchiveStoreAndOpen(t *testing.T) {
	archive, err := NewUploadArchive(t.TempDir())
	require.NoError(t, err)

	rel, err := archive.Store("students", "roster.csv", strings.NewReader("studentId\nU1922103F\n"))
	require.NoError(t, err)
	require.Contains(t, rel, "roster.csv")

	file, err := archive.Open(rel)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "U1922103F")
}

func TestUploadArchiveCleanup(t *testing.T) {
	archive, err := NewUploadArchive(t.TempDir())
	require.NoError(t, err)

	rel, err := archive.Store("courses", "courses.csv", strings.NewReader("courseCode\nCZ3002\n"))
	require.NoError(t, err)

	// Nothing is old enough yet.
	deleted, err := archive.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Empty(t, deleted)

	// A zero TTL treats everything as expired.
	deleted, err = archive.CleanupOlderThan(0)
	require.NoError(t, err)
	require.Equal(t, []string{rel}, deleted)

	_, err = archive.Open(rel)
	require.Error(t, err)
}
