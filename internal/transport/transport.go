// Package transport defines the RemoteTransport adapter boundary (spec
// §6 External Interfaces): the one abstraction a transfer worker
// (internal/worker) drives, regardless of whether the underlying host
// speaks FTP/FTPS (internal/transport/ftp) or SCP/SFTP
// (internal/transport/scp). Modeled on backend/ftp.Fs and
// backend/sftp.Fs's shared shape — connect once, reuse the connection
// for a burst of files, report size/rename/mkdir the same way — but
// trimmed to exactly what spec §4.4/§4.5 the worker and burst
// coordinator need.
package transport

import (
	"context"
	"io"
	"time"
)

// Dirent is one remote directory entry, used by the size-column
// discovery algorithm (spec §4.4, grounded on backend/ftp/ftp.go's
// entryToStandard/List).
type Dirent struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// RemoteTransport is the connection to one host for the duration of a
// burst (spec §4.6 Burst Coordinator: "reuse the control connection
// across consecutive jobs for the same host").
type RemoteTransport interface {
	// Connect establishes the control connection and authenticates.
	Connect(ctx context.Context) error

	// Close tears the connection down. Safe to call on an already
	// failed or already-closed transport.
	Close() error

	// Chdir changes the remote working directory, creating it first
	// if mkdirIfMissing is set (spec §3 Host "create_target_dir").
	Chdir(ctx context.Context, dir string, mkdirIfMissing bool) error

	// List returns the entries of the current remote directory; the
	// worker takes resume sizes from it once per job (spec §4.4).
	List(ctx context.Context) ([]Dirent, error)

	// Put streams size bytes from r to name under the current
	// directory. If resumeOffset > 0 the write append at that offset
	// instead of truncating (spec §3 Host "append mode").
	Put(ctx context.Context, name string, r io.Reader, size int64, resumeOffset int64) error

	// Rename renames oldName to newName in the current remote
	// directory, used by every LockPolicy that uploads under a
	// temporary name then renames into place (spec GLOSSARY "Lock
	// policy").
	Rename(ctx context.Context, oldName, newName string) error

	// Remove deletes a remote file, used to delete the LockFile
	// policy's companion lockfile after an upload.
	Remove(ctx context.Context, name string) error

	// KeepAlive sends a protocol-appropriate no-op (NOOP for FTP,
	// a channel keepalive request for SSH) to hold the connection open
	// between bursts (spec §3 Host "keep_alive"/"keep_alive_interval").
	KeepAlive(ctx context.Context) error
}

// Dialer constructs a RemoteTransport for one host without connecting.
// internal/dispatcher holds a Dialer per scheme and picks the right one
// off config.Host.Scheme (spec §3 Host "scheme").
type Dialer interface {
	Dial(host HostParams) RemoteTransport
}

// HostParams is the subset of config.Host a transport needs, passed by
// value so internal/transport never imports internal/config (avoiding
// a dependency cycle now that internal/config has grown mutable
// runtime fields transport has no business touching).
type HostParams struct {
	Alias             string
	RealHostname      string
	Port              int
	User              string
	Password          string
	ProxyAddr         string
	PassiveMode       bool
	TransferBlockSize int
	FileSizeOffset    int
	TransferTimeout   time.Duration
	RequireTLS        bool
	ImplicitTLS       bool
}
