package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
)

// DefaultRescanInterval matches original_source/src/amg/amg.c's
// DEFAULT_RESCAN_TIME: "these 'user'-directories are scanned every
// DEFAULT_RESCAN_TIME (5 seconds)".
const DefaultRescanInterval = 5 * time.Second

// ignoredName reports entries the scanner never admits or ages out:
// dotfiles are treated as in-progress markers left by an upstream
// writer, matching the "hidden file" skip every original_source
// directory walker applies before considering a name a candidate file.
func ignoredName(name string) bool {
	return len(name) == 0 || name[0] == '.'
}

// Scanner polls one Directory on an interval, admitting files into
// Jobs or deleting them per the directory's age/delete-files policy
// (spec §4.3).
type Scanner struct {
	dir            config.Directory
	poolRoot       string
	rescanInterval time.Duration
	jobs           chan<- Job
	inputLog       *logwriter.Writer
	deleteLog      *logwriter.Writer
	logger         *slog.Logger

	jobSeq atomic.Uint32
}

// New builds a Scanner for dir. inputLog and deleteLog may be nil in
// tests that don't care about the structured-log side effect.
func New(dir config.Directory, poolRoot string, rescanInterval time.Duration, jobs chan<- Job, inputLog, deleteLog *logwriter.Writer) *Scanner {
	if rescanInterval <= 0 {
		rescanInterval = DefaultRescanInterval
	}
	return &Scanner{
		dir:            dir,
		poolRoot:       poolRoot,
		rescanInterval: rescanInterval,
		jobs:           jobs,
		inputLog:       inputLog,
		deleteLog:      deleteLog,
		logger:         afdlog.Default.With("directory", dir.Path),
	}
}

// Run polls until ctx is canceled. A directory that's temporarily
// missing (e.g. an NFS mount bouncing) is logged and retried on the
// next tick rather than treated as fatal (spec §7: only a
// poolRoot/listing failure that persists is the operator's problem).
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.rescanInterval)
	defer ticker.Stop()

	if err := s.scanOnce(ctx); err != nil {
		s.logger.Error("initial scan failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.scanOnce(ctx); err != nil {
				s.logger.Error("scan failed", "err", err)
			}
		}
	}
}

func (s *Scanner) scanOnce(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir.Path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("watched directory missing, will retry")
		return nil
	}
	if err != nil {
		return fmt.Errorf("scanner: read dir %s: %w", s.dir.Path, err)
	}

	now := time.Now()
	var admitted []FileEntry
	var admittedBytes int64

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || ignoredName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("stat failed, skipping entry", "file", entry.Name(), "err", err)
			continue
		}

		age := now.Sub(info.ModTime())
		if s.shouldAgeOut(age) {
			s.deleteAged(entry.Name(), info.Size())
			continue
		}

		if len(admitted) >= s.dir.MaxCopiedFiles {
			continue // left for the next scan cycle
		}
		if s.dir.MaxCopiedFileBytes > 0 && admittedBytes+info.Size() > s.dir.MaxCopiedFileBytes {
			continue
		}

		admitted = append(admitted, FileEntry{Name: entry.Name(), Size: info.Size()})
		admittedBytes += info.Size()
	}

	if len(admitted) == 0 {
		return nil
	}
	return s.admit(ctx, now, admitted)
}

// shouldAgeOut reports whether a file this old should be deleted
// rather than admitted, per the directory's old_file_time/delete_files
// policy (spec §3 Directory, original_source's default_old_file_time).
func (s *Scanner) shouldAgeOut(age time.Duration) bool {
	if s.dir.OldFileTime <= 0 {
		return false
	}
	if s.dir.DeleteFiles&(config.DeleteUnknown|config.DeleteQueued) == 0 {
		return false
	}
	return age > s.dir.OldFileTime
}

func (s *Scanner) deleteAged(name string, size int64) {
	path := filepath.Join(s.dir.Path, name)
	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to delete aged file", "file", name, "err", err)
		return
	}
	if s.deleteLog != nil {
		rec := logwriter.DeleteRecord{
			Time:        time.Now(),
			Reason:      logwriter.ReasonAgeInput,
			FileName:    name,
			FileSize:    size,
			DirectoryID: s.dir.ID,
			Deleter:     "scanner",
		}
		s.deleteLog.Write(rec.Encode())
	}
}

func (s *Scanner) admit(ctx context.Context, now time.Time, files []FileEntry) error {
	poolDir, err := createPoolDir(s.poolRoot, now, s.dir.ID)
	if err != nil {
		return err
	}

	moved := files[:0:0]
	for _, f := range files {
		src := filepath.Join(s.dir.Path, f.Name)
		dst := filepath.Join(poolDir, f.Name)
		if err := os.Rename(src, dst); err != nil {
			s.logger.Warn("failed to move admitted file into pool dir", "file", f.Name, "err", err)
			continue
		}
		moved = append(moved, f)
		if s.inputLog != nil {
			rec := logwriter.InputRecord{Time: now, FileName: f.Name, FileSize: f.Size, DirectoryID: s.dir.ID}
			s.inputLog.Write(rec.Encode())
		}
	}
	if len(moved) == 0 {
		_ = os.Remove(poolDir)
		return nil
	}

	job := Job{
		DirectoryID: s.dir.ID,
		JobID:       s.nextJobID(now),
		PoolDir:     poolDir,
		Files:       moved,
		Recipients:  s.dir.Recipients,
		CreatedAt:   now,
	}

	select {
	case s.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// nextJobID folds the directory ID and a per-process monotonic counter
// into one uint32, avoiding collisions across directories without a
// shared allocator (each Scanner owns its own Directory).
func (s *Scanner) nextJobID(now time.Time) uint32 {
	seq := s.jobSeq.Add(1)
	mixed := uint64(now.Unix())<<16 ^ uint64(s.dir.ID)<<8 ^ uint64(seq)
	return uint32(mixed % math.MaxUint32)
}
