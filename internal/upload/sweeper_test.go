package upload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestSweepRemovesOnlyStaleFiles(t *testing.T) {
	dir := t.TempDir()
	stale := writeAged(t, dir, uuid.NewString()+".pdf", 2*time.Hour)
	fresh := writeAged(t, dir, uuid.NewString(), time.Minute)
	require.NoError(t, os.Mkdir(filepath.Join(dir, uuid.NewString()), 0o755))

	s := NewSweeper(dir, time.Hour, nil)
	removed, err := s.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweepKeepsFilesItDidNotCreate(t *testing.T) {
	dir := t.TempDir()
	foreign := []string{
		writeAged(t, dir, "go.mod", 48*time.Hour),
		writeAged(t, dir, "notes.txt", 48*time.Hour),
		writeAged(t, dir, "0123456789abcdef0123456789abcdef", 48*time.Hour),
		writeAged(t, dir, "not-a-uuid-but-thirty-six-chars-long", 48*time.Hour),
	}
	scratch := writeAged(t, dir, uuid.NewString()+".mp3", 48*time.Hour)

	removed, err := NewSweeper(dir, time.Hour, nil).Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	for _, path := range foreign {
		_, err := os.Stat(path)
		assert.NoError(t, err, "%s should survive the sweep", filepath.Base(path))
	}
	_, err = os.Stat(scratch)
	assert.True(t, os.IsNotExist(err))
}

func TestSweepMissingDir(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "gone"), 0, nil)
	removed, err := s.Sweep(time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStartSweepsImmediately(t *testing.T) {
	dir := t.TempDir()
	stale := writeAged(t, dir, uuid.NewString(), 3*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewSweeper(dir, time.Hour, nil).Start(ctx, time.Hour)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}
