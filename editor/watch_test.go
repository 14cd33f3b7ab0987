package editor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsWatchedFileOnly(t *testing.T) {
	dir := t.TempDir()
	staged := filepath.Join(dir, "module.tengo.tmp")
	w, err := NewWatcher(staged)
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.Changed(staged))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(staged, []byte("update := func(engine, dt) {}"), 0o644))

	require.Eventually(t, func() bool { return w.Changed(staged) }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, w.Changed(filepath.Join(dir, "other.txt")))
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "module.tengo.tmp"))
	assert.Error(t, err)
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "module.tengo.tmp"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
