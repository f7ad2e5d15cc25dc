package dispatcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
	"github.com/gokulkarthick/afd-sub000/internal/statusarea"
	"github.com/gokulkarthick/afd-sub000/internal/transport"
)

// fakeTransport mirrors the fake used in internal/worker and
// internal/burst: an in-memory transport.RemoteTransport so dispatch
// routing can be exercised without a network.
type fakeTransport struct {
	chdirErr error
	puts     []string
}

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }
func (f *fakeTransport) Close() error                      { return nil }
func (f *fakeTransport) Chdir(ctx context.Context, dir string, mkdirIfMissing bool) error {
	return f.chdirErr
}
func (f *fakeTransport) List(ctx context.Context) ([]transport.Dirent, error) { return nil, nil }
func (f *fakeTransport) Put(ctx context.Context, name string, r io.Reader, size, resumeOffset int64) error {
	_, _ = io.Copy(io.Discard, r)
	f.puts = append(f.puts, name)
	return nil
}
func (f *fakeTransport) Rename(ctx context.Context, oldName, newName string) error { return nil }
func (f *fakeTransport) Remove(ctx context.Context, name string) error            { return nil }
func (f *fakeTransport) KeepAlive(ctx context.Context) error                      { return nil }

type fakeDialer struct {
	transport *fakeTransport
}

func (d *fakeDialer) Dial(p transport.HostParams) transport.RemoteTransport { return d.transport }

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeTransport, *statusarea.Area) {
	t.Helper()
	area, err := statusarea.Attach(filepath.Join(t.TempDir(), "fsa.dat"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = area.Close() })

	ft := &fakeTransport{}
	d := New(area, &fakeDialer{transport: ft}, &fakeDialer{transport: ft}, nil, nil, nil, nil)
	return d, ft, area
}

func makeScanJob(t *testing.T, alias string) scanner.Job {
	t.Helper()
	pool := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(pool, "a.txt"), []byte("hi"), 0644))
	return scanner.Job{
		DirectoryID: 1,
		JobID:       7,
		PoolDir:     pool,
		Files:       []scanner.FileEntry{{Name: "a.txt", Size: 2}},
		Recipients:  []config.Recipient{{HostAlias: alias, TargetPath: "/in"}},
	}
}

func TestDispatchRoutesJobToCorrectHostPool(t *testing.T) {
	d, ft, _ := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := config.Host{Alias: "mirror1", AllowedTransfers: 1, RetryInterval: time.Second, LockPolicy: config.LockDot}
	require.NoError(t, d.AddHost(ctx, host))

	job := makeScanJob(t, "mirror1")
	d.dispatch(ctx, job)

	require.Eventually(t, func() bool {
		return len(ft.puts) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, ".a.txt", ft.puts[0])
}

func TestDispatchDropsJobForUnknownHostAlias(t *testing.T) {
	d, ft, _ := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := config.Host{Alias: "mirror1", AllowedTransfers: 1, RetryInterval: time.Second}
	require.NoError(t, d.AddHost(ctx, host))

	job := makeScanJob(t, "nonexistent")
	d.dispatch(ctx, job)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, ft.puts, "job for an unknown alias must not reach any transport")
}

func TestDispatchSkipsDisabledHost(t *testing.T) {
	d, ft, area := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := config.Host{Alias: "mirror1", AllowedTransfers: 1, RetryInterval: time.Second}
	require.NoError(t, d.AddHost(ctx, host))

	idx, err := area.EnsureHost("mirror1")
	require.NoError(t, err)
	_, err = area.SetHostStatusFlags(idx, uint32(config.HostDisabled), 0)
	require.NoError(t, err)

	job := makeScanJob(t, "mirror1")
	d.dispatch(ctx, job)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, ft.puts, "disabled host must not receive dispatched jobs")
}

func TestDispatchAutoPausesHostAfterMaxErrors(t *testing.T) {
	d, ft, area := newTestDispatcher(t)
	ft.chdirErr = assertErr("connection refused")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := config.Host{Alias: "mirror1", AllowedTransfers: 1, MaxErrors: 1, RetryInterval: 5 * time.Millisecond}
	require.NoError(t, d.AddHost(ctx, host))

	idx, err := area.EnsureHost("mirror1")
	require.NoError(t, err)

	job := makeScanJob(t, "mirror1")
	d.dispatch(ctx, job)

	require.Eventually(t, func() bool {
		return area.HostStatusFlags(idx)&uint32(config.HostAutoPaused) != 0
	}, 2*time.Second, 10*time.Millisecond, "host should be auto-paused after repeated connect failures")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
