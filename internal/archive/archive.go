// Package archive implements the Archive Manager (spec §4.8, C8): once
// a file has been successfully sent, it is moved into a time-bucketed
// archive path instead of being unlinked, and a cleaner task later
// reclaims buckets whose retention window has passed. Grounded on
// spec §4.8's contract and GLOSSARY's archive subtree layout
// (`archive/<host>/<scheme>/<epoch_bucket>/<job_id>/<file_name>`);
// the move itself follows backend/local/local.go's Move idiom
// (os.MkdirAll the destination, os.Rename into it).
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/config"
)

// JobMeta identifies the archive bucket a file's job belongs to (spec
// §4.8: "archive_path encodes {host, scheme, epoch_bucket(archive_time), job_id}").
type JobMeta struct {
	HostAlias   string
	Scheme      config.Scheme
	JobID       uint32
	ArchiveTime time.Duration
	CreatedAt   time.Time
}

// bucket floors CreatedAt to the ArchiveTime-wide window it falls in.
func (m JobMeta) bucket() int64 {
	secs := int64(m.ArchiveTime.Seconds())
	if secs <= 0 {
		secs = 1
	}
	return (m.CreatedAt.Unix() / secs) * secs
}

type jobKey struct {
	host  string
	jobID uint32
}

// Manager creates and caches archive directories under Root, one per
// job (spec §4.8: "the first call for a job creates the directory;
// subsequent calls within the same job_meta reuse the cached path").
type Manager struct {
	Root string

	mu    sync.Mutex
	cache map[jobKey]string
}

// New builds a Manager rooted at root (the "archive/" subtree, spec
// GLOSSARY).
func New(root string) *Manager {
	return &Manager{Root: root, cache: map[jobKey]string{}}
}

// Archive moves srcPath, a file already named fileName, into meta's
// archive directory (creating it on first use for this job) and
// returns the final archive path.
func (m *Manager) Archive(meta JobMeta, srcPath, fileName string) (string, error) {
	dir, err := m.dirFor(meta)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, fileName)
	if err := os.Rename(srcPath, dst); err != nil {
		return "", fmt.Errorf("archive: move %s into %s: %w", fileName, dir, err)
	}
	return dst, nil
}

func (m *Manager) dirFor(meta JobMeta) (string, error) {
	key := jobKey{host: meta.HostAlias, jobID: meta.JobID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if dir, ok := m.cache[key]; ok {
		return dir, nil
	}

	dir := filepath.Join(m.Root, meta.HostAlias, meta.Scheme.String(),
		strconv.FormatInt(meta.bucket(), 10), strconv.FormatUint(uint64(meta.JobID), 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("archive: create %s: %w", dir, err)
	}
	m.cache[key] = dir
	return dir, nil
}

// Clean removes every bucket directory under Root whose epoch-bucket
// boundary plus retention has already passed (spec §4.8: "a cleaner
// task removes archive directories whose epoch_bucket is older than
// now - archive_time"). Hosts configure different archive_time values,
// so a caller with several retentions runs Clean once per distinct
// value. Clean looks only at bucket directory names, never their
// contents, and walks every host and scheme under Root: a pass with a
// shorter retention also removes other hosts' buckets that are older
// than its own cutoff.
func (m *Manager) Clean(now time.Time, retention time.Duration) (removed int, err error) {
	hosts, err := os.ReadDir(m.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := now.Add(-retention).Unix()

	for _, host := range hosts {
		if !host.IsDir() {
			continue
		}
		hostPath := filepath.Join(m.Root, host.Name())
		schemes, err := os.ReadDir(hostPath)
		if err != nil {
			continue
		}
		for _, scheme := range schemes {
			if !scheme.IsDir() {
				continue
			}
			schemePath := filepath.Join(hostPath, scheme.Name())
			buckets, err := os.ReadDir(schemePath)
			if err != nil {
				continue
			}
			for _, bucket := range buckets {
				if !bucket.IsDir() {
					continue
				}
				epoch, perr := strconv.ParseInt(bucket.Name(), 10, 64)
				if perr != nil || epoch >= cutoff {
					continue
				}
				if err := os.RemoveAll(filepath.Join(schemePath, bucket.Name())); err != nil {
					return removed, err
				}
				removed++
			}
		}
	}
	return removed, nil
}
