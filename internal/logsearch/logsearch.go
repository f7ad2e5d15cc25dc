// Package logsearch implements the Log Search Engine (spec §4.7, C7):
// memory-map rotated structured-log files, locate a time window in the
// hex-timestamp column by sampling and walking (timeindex.go), and filter the surviving
// records by composable predicates. Grounded on
// original_source/src/tools/show_*log.c's documented algorithm
// (§4.7 steps 1-5) and golang.org/x/sys/unix's mmap already used the
// same way by internal/statusarea for the FSA.
package logsearch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
)

// BatchSize is the default number of matching records flushed to the
// caller at a time (spec §4.7 step 5).
const BatchSize = 1024

// Window bounds a search by wall-clock time, inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// Hit is one matching record, carrying enough of its position that a
// caller can re-open the underlying file to read neighboring context
// (spec §4.7 step 5: "a side index giving byte offset... so callers
// can re-open the record for detail").
type Hit struct {
	File   string
	Offset int
	Record Record
}

// Engine searches one category's rotated log files under dir.
type Engine struct {
	Dir      string
	Category logwriter.Category
}

// New builds an Engine over a category's rotated files in dir (the
// same dir a logwriter.Writer for that category was given).
func New(dir string, category logwriter.Category) *Engine {
	return &Engine{Dir: dir, Category: category}
}

// categoryFilePrefix mirrors logwriter.Category.fileNamePrefix, which
// is unexported; duplicated here rather than exported solely for this
// one caller (spec §9 keeps the writer and reader sides independently
// deployable binaries, so they shouldn't share more surface than the
// on-disk format itself).
func categoryFilePrefix(c logwriter.Category) string {
	return fmt.Sprintf("%s_log", c)
}

// candidateFiles returns, oldest first, the rotated files (current
// plus .0 .. .6) whose mtime falls inside win, per spec §4.7 step 1:
// "a file is in range iff mtime + tolerance >= start AND NOT mtime >= end".
func (e *Engine) candidateFiles(win Window) ([]string, error) {
	const rotationKeep = 7
	const clockSkewTolerance = 2 * time.Minute

	base := filepath.Join(e.Dir, categoryFilePrefix(e.Category))
	type stamped struct {
		path  string
		mtime time.Time
	}
	var all []stamped
	for gen := -1; gen < rotationKeep; gen++ {
		p := base
		if gen >= 0 {
			p = fmt.Sprintf("%s.%d", base, gen)
		}
		fi, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		all = append(all, stamped{path: p, mtime: fi.ModTime()})
	}

	var out []stamped
	for _, s := range all {
		if s.mtime.Add(clockSkewTolerance).Before(win.Start) {
			continue
		}
		if !win.End.IsZero() && !s.mtime.Before(win.End) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].mtime.Before(out[j].mtime) })

	paths := make([]string, len(out))
	for i, s := range out {
		paths[i] = s.path
	}
	return paths, nil
}

// Search walks every candidate file in range, emitting matching
// records to yield in batches of BatchSize. ctx cancellation is
// checked every cancelCheckInterval records and, when set, Search
// flushes whatever it has accumulated and returns (spec §4.7
// "Interruption").
const cancelCheckInterval = 256

func (e *Engine) Search(ctx context.Context, win Window, pred Predicate, yield func([]Hit) error) error {
	files, err := e.candidateFiles(win)
	if err != nil {
		return fmt.Errorf("logsearch: list candidates: %w", err)
	}

	var batch []Hit
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := yield(batch)
		batch = batch[:0]
		return err
	}

	checked := 0
	for _, path := range files {
		if err := e.searchFile(ctx, path, win, pred, &batch, &checked, flush); err != nil {
			_ = flush()
			return err
		}
	}
	return flush()
}

func (e *Engine) searchFile(ctx context.Context, path string, win Window, pred Predicate, batch *[]Hit, checked *int, flush func() error) error {
	mf, err := openMapped(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("logsearch: mmap %s: %w", path, err)
	}
	defer mf.Close()

	start := searchTime(mf.data, win.Start.Unix())
	for off := start; off < len(mf.data); {
		line, next := readLine(mf.data, off)
		if line == nil {
			break
		}
		rec, ok := parseRecord(line, off)
		if ok {
			if !win.End.IsZero() && rec.Time.After(win.End) {
				return flush()
			}
			if pred.Match(rec) {
				*batch = append(*batch, Hit{File: path, Offset: off, Record: rec})
				if len(*batch) >= BatchSize {
					if err := flush(); err != nil {
						return err
					}
				}
			}
		}
		off = next

		*checked++
		if *checked%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}
	return nil
}

type mappedFile struct {
	f    *os.File
	data []byte
}

func openMapped(path string) (*mappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		f.Close()
		return &mappedFile{data: nil}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mappedFile{f: f, data: data}, nil
}

func (m *mappedFile) Close() {
	if m.data != nil {
		_ = unix.Munmap(m.data)
	}
	if m.f != nil {
		_ = m.f.Close()
	}
}

// readLine returns the line starting at off (without its trailing
// newline) and the offset of the line that follows.
func readLine(data []byte, off int) ([]byte, int) {
	if off >= len(data) {
		return nil, off
	}
	end := off
	for end < len(data) && data[end] != '\n' {
		end++
	}
	line := data[off:end]
	next := end + 1
	return line, next
}
