package parser

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDirectory_ReportsMeasurementFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0.01.txt", "372\t10\n")

	changes := make(chan []string, 8)
	w, err := WatchDirectory(dir, 50*time.Millisecond, func(files []string) { changes <- files })
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "notes.csv", "a,b\n")
	writeFile(t, dir, "0.1.txt", "372\t11\n")

	select {
	case files := <-changes:
		assert.Equal(t, []string{filepath.Join(dir, "0.01.txt"), filepath.Join(dir, "0.1.txt")}, files)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatchDirectory_Errors(t *testing.T) {
	_, err := WatchDirectory(filepath.Join(t.TempDir(), "missing"), 0, func([]string) {})
	assert.Error(t, err)

	w, err := WatchDirectory(t.TempDir(), 0, func([]string) {})
	require.NoError(t, err)
	w.Close()
	w.Close()
}
