package jobqueue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gokulkarthick/afd-sub000/internal/scanner"
)

func TestPublishThenWatchDeliversJobAndRemovesDescriptor(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	job := scanner.Job{
		DirectoryID: 1,
		JobID:       42,
		PoolDir:     "/pool/1/42",
		Files:       []scanner.FileEntry{{Name: "a.txt", Size: 5}},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, Publish(dir, job))

	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make(chan scanner.Job, 1)
	go func() { _ = Watch(ctx, dir, 20*time.Millisecond, out) }()

	select {
	case got := <-out:
		require.Equal(t, job.JobID, got.JobID)
		require.Equal(t, job.PoolDir, got.PoolDir)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for descriptor delivery")
	}

	require.Eventually(t, func() bool {
		entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
		return err == nil && len(entries) == 0
	}, time.Second, 10*time.Millisecond, "delivered descriptor should be removed from the spool")
}

func TestPublishOrdersByCreationTime(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	older := scanner.Job{JobID: 1, CreatedAt: time.Unix(100, 0)}
	newer := scanner.Job{JobID: 2, CreatedAt: time.Unix(200, 0)}
	require.NoError(t, Publish(dir, newer))
	require.NoError(t, Publish(dir, older))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out := make(chan scanner.Job, 2)
	go func() { _ = Watch(ctx, dir, 20*time.Millisecond, out) }()

	first := <-out
	second := <-out
	require.Equal(t, uint32(1), first.JobID)
	require.Equal(t, uint32(2), second.JobID)
}
