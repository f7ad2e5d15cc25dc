package worker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokulkarthick/afd-sub000/internal/afderr"
	"github.com/gokulkarthick/afd-sub000/internal/archive"
	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
	"github.com/gokulkarthick/afd-sub000/internal/statusarea"
	"github.com/gokulkarthick/afd-sub000/internal/transport"
)

// fakeTransport is an in-memory transport.RemoteTransport for exercising
// Worker.ProcessJob without a network, mirroring the fake FTP server
// pattern backend/ftp/ftp_test.go uses for its own unit tests.
type fakeTransport struct {
	chdirErr error
	putErr   error
	puts     []string
	renames  [][2]string
}

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }
func (f *fakeTransport) Close() error                      { return nil }

func (f *fakeTransport) Chdir(ctx context.Context, dir string, mkdirIfMissing bool) error {
	return f.chdirErr
}

func (f *fakeTransport) List(ctx context.Context) ([]transport.Dirent, error) {
	return nil, nil
}

func (f *fakeTransport) Put(ctx context.Context, name string, r io.Reader, size int64, resumeOffset int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	_, _ = io.Copy(io.Discard, r)
	f.puts = append(f.puts, name)
	return nil
}

func (f *fakeTransport) Rename(ctx context.Context, oldName, newName string) error {
	f.renames = append(f.renames, [2]string{oldName, newName})
	return nil
}

func (f *fakeTransport) Remove(ctx context.Context, name string) error { return nil }
func (f *fakeTransport) KeepAlive(ctx context.Context) error           { return nil }

func attachArea(t *testing.T) (*statusarea.Area, int) {
	t.Helper()
	a, err := statusarea.Attach(filepath.Join(t.TempDir(), "fsa.dat"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)
	return a, idx
}

func makeJob(t *testing.T) scanner.Job {
	t.Helper()
	pool := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(pool, "a.txt"), []byte("hello"), 0644))
	return scanner.Job{
		DirectoryID: 1,
		JobID:       42,
		PoolDir:     pool,
		Files:       []scanner.FileEntry{{Name: "a.txt", Size: 5}},
	}
}

func TestProcessJobUploadsAndClearsSlot(t *testing.T) {
	area, idx := attachArea(t)
	ft := &fakeTransport{}
	host := config.Host{Alias: "mirror1", LockPolicy: config.LockDot, AllowedTransfers: 1}
	w := New(host, idx, 0, ft, area, nil, nil, nil)

	job := makeJob(t)
	outcome, err := w.ProcessJob(context.Background(), job, RecipientTarget{TargetPath: "/incoming"})
	require.NoError(t, err)
	assert.Equal(t, afderr.OutcomeSuccess, outcome)

	assert.Equal(t, []string{".a.txt"}, ft.puts)
	require.Len(t, ft.renames, 1)
	assert.Equal(t, [2]string{".a.txt", "a.txt"}, ft.renames[0])

	_, err = os.Stat(filepath.Join(job.PoolDir, "a.txt"))
	assert.True(t, os.IsNotExist(err), "successfully sent file should be removed locally")

	slot, err := area.ReadSlot(idx, 0)
	require.NoError(t, err)
	assert.Equal(t, statusarea.Disconnect, slot.ConnectStatus)
}

func TestProcessJobTransientFailureStopsAtChdir(t *testing.T) {
	area, idx := attachArea(t)
	ft := &fakeTransport{chdirErr: afderr.New(afderr.KindChdir, assertErr("boom"))}
	host := config.Host{Alias: "mirror1", AllowedTransfers: 1}
	w := New(host, idx, 0, ft, area, nil, nil, nil)

	outcome, err := w.ProcessJob(context.Background(), makeJob(t), RecipientTarget{TargetPath: "/incoming"})
	require.Error(t, err)
	assert.Equal(t, afderr.OutcomeTransientFailure, outcome)
	assert.Equal(t, uint32(1), area.ErrorCounter(idx))
}

func TestProcessJobArchivesFileWhenTargetHasArchiveTime(t *testing.T) {
	area, idx := attachArea(t)
	ft := &fakeTransport{}
	host := config.Host{Alias: "mirror1", LockPolicy: config.LockDot, AllowedTransfers: 1, Scheme: config.SchemeFTP}
	w := New(host, idx, 0, ft, area, nil, nil, nil)
	archiveRoot := t.TempDir()
	w.Archiver = archive.New(archiveRoot)

	job := makeJob(t)
	outcome, err := w.ProcessJob(context.Background(), job, RecipientTarget{TargetPath: "/incoming", ArchiveTime: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, afderr.OutcomeSuccess, outcome)

	_, err = os.Stat(filepath.Join(job.PoolDir, "a.txt"))
	assert.True(t, os.IsNotExist(err), "archived file should be moved out of the pool dir")

	entries, err := filepath.Glob(filepath.Join(archiveRoot, "mirror1", "ftp", "*", "*", "a.txt"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "a.txt should be archived under the host/scheme/bucket/job path")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
