package statusarea

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrStale names the stale-mapping condition (a grow superseded the
// caller's mapping generation; the caller must re-attach). No function
// in this package returns it; staleness is reported by CheckStale.
var ErrStale = errors.New("statusarea: stale mapping, re-attach required")

// ErrNotFound is returned by LookupHost for an unknown alias.
var ErrNotFound = errors.New("statusarea: host not found")

type header struct {
	Magic      [4]byte
	Version    uint16
	Generation uint32
	HostCount  uint32
}

const headerWireSize = 4 + 2 + 4 + 4 // matches on-disk layout, padded to headerSize below

// Area is the attached, memory-mapped status file. One process attaches
// once and shares the handle across its AMG/FD/worker goroutines.
type Area struct {
	mu         sync.RWMutex
	path       string
	file       *os.File
	data       []byte
	generation uint32
	aliasIdx   map[string]int
}

// Attach maps the status file, creating an empty one (zero hosts) if it
// doesn't exist yet. Hosts are added one at a time by EnsureHost, which
// grows the file; reservedHint is accepted but unused, and a new file
// starts with zero host records.
func Attach(path string, reservedHint int) (*Area, error) {
	a := &Area{path: path, aliasIdx: map[string]int{}}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("statusarea: open %s: %w", path, err)
	}
	a.file = f

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := a.initEmpty(); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := a.mapAndIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func fileSizeFor(hostCount int) int64 {
	return int64(headerSize + hostCount*hostRecordSize)
}

func (a *Area) initEmpty() error {
	size := fileSizeFor(0)
	if err := a.file.Truncate(size); err != nil {
		return fmt.Errorf("statusarea: truncate: %w", err)
	}
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], formatVersion)
	binary.LittleEndian.PutUint32(buf[6:10], 0) // generation
	binary.LittleEndian.PutUint32(buf[10:14], 0) // host count
	if _, err := a.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("statusarea: write header: %w", err)
	}
	return nil
}

func (a *Area) mapAndIndex() error {
	info, err := a.file.Stat()
	if err != nil {
		return err
	}
	size := int(info.Size())
	data, err := unix.Mmap(int(a.file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("statusarea: mmap: %w", err)
	}
	if a.data != nil {
		_ = unix.Munmap(a.data)
	}
	a.data = data

	if string(data[0:4]) != magic {
		return fmt.Errorf("statusarea: bad magic in %s", a.path)
	}
	ver := binary.LittleEndian.Uint16(data[4:6])
	if ver != formatVersion {
		return fmt.Errorf("statusarea: version mismatch: file=%d want=%d", ver, formatVersion)
	}
	a.generation = binary.LittleEndian.Uint32(data[6:10])
	hostCount := binary.LittleEndian.Uint32(data[10:14])

	a.aliasIdx = make(map[string]int, hostCount)
	for i := 0; i < int(hostCount); i++ {
		rec := a.hostBytes(i)
		alias := cstring(rec[offAlias : offAlias+aliasLen])
		if alias != "" {
			a.aliasIdx[alias] = i
		}
	}
	return nil
}

func (a *Area) hostBytes(i int) []byte {
	base := headerSize + i*hostRecordSize
	return a.data[base : base+hostRecordSize]
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// HostCount returns the number of host slots currently mapped.
func (a *Area) HostCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data[headerSize:]) / hostRecordSize
}

// LookupHost resolves an alias to its index, returning ErrNotFound for
// an unknown alias. It does not check generations: a caller holding a
// cached index asks CheckStale and, when that reports true, attaches
// again and re-calls LookupHost.
func (a *Area) LookupHost(alias string) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx, ok := a.aliasIdx[alias]
	if !ok {
		return 0, ErrNotFound
	}
	return idx, nil
}

// CheckStale reports whether the generation the caller last observed
// differs from the one currently in the shared file header, which a
// grow by any attached handle bumps (spec §4.1 check_stale()).
func (a *Area) CheckStale(observedGeneration uint32) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return observedGeneration != binary.LittleEndian.Uint32(a.data[6:10])
}

// Generation returns the current mapping generation for callers to cache.
func (a *Area) Generation() uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

// EnsureHost finds alias or grows the array to add it, bumping the
// generation so every other attached handle's next CheckStale call
// notices and re-resolves its cached index.
func (a *Area) EnsureHost(alias string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx, ok := a.aliasIdx[alias]; ok {
		return idx, nil
	}
	hostCount := len(a.data[headerSize:]) / hostRecordSize
	newCount := hostCount + 1
	if err := a.file.Truncate(fileSizeFor(newCount)); err != nil {
		return 0, fmt.Errorf("statusarea: grow: %w", err)
	}
	a.generation++
	binary.LittleEndian.PutUint32(a.data[10:14], uint32(newCount))
	if err := a.remapLocked(); err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(a.data[6:10], a.generation)
	rec := a.hostBytes(hostCount)
	copy(rec[offAlias:offAlias+aliasLen], []byte(alias))
	a.aliasIdx[alias] = hostCount
	return hostCount, nil
}

func (a *Area) remapLocked() error {
	info, err := a.file.Stat()
	if err != nil {
		return err
	}
	size := int(info.Size())
	data, err := unix.Mmap(int(a.file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("statusarea: remap: %w", err)
	}
	if a.data != nil {
		_ = unix.Munmap(a.data)
	}
	a.data = data
	return nil
}

// Close unmaps and closes the backing file.
func (a *Area) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data != nil {
		_ = unix.Munmap(a.data)
		a.data = nil
	}
	return a.file.Close()
}

// SelfHeal runs the reconciliation pass spec §4.1 describes for a crash:
// "resets in-use sizes to zero and reconciles total_file_counter against
// the pool-directory listing". liveFileCount/liveFileSize are supplied
// by the caller (AMG or FD), who is the one with pool-directory
// visibility; this package only owns the counters themselves.
func (a *Area) SelfHeal(hostIdx int, liveFileCount uint32, liveFileSize uint64) error {
	return a.WithHostLock(hostIdx, LockFIUAll, func(rec []byte) error {
		for slot := 0; slot < maxJobSlots; slot++ {
			off := offJobSlots + slot*jobSlotSize
			putUint64(rec, off+inUseOffsetWithin, 0)
			putUint64(rec, off+inUseDoneOffsetWithin, 0)
		}
		putUint32(rec, offTotalFileCounter, liveFileCount)
		putUint64(rec, offTotalFileSize, liveFileSize)
		return nil
	})
}

// offsets within a job slot record, used by SelfHeal.
const (
	inUseOffsetWithin     = 4 + 4 + 4 + 8 + 8 // past connect/files-to-send/files-done/size-to-send/size-done
	inUseDoneOffsetWithin = inUseOffsetWithin + 8
)
