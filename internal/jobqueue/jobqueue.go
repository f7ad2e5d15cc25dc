// Package jobqueue realizes the one named pipe SPEC_FULL.md §5 keeps
// literal: the Job Descriptor handoff from AMG to FD (spec.md §4.3
// step f, "Publish a Job Descriptor to C4's input pipe"). Every other
// named pipe collapses into a Go channel because its two ends live in
// the same process; this one genuinely crosses the AMG/FD process
// boundary the process-model decision keeps (SPEC_FULL.md §5), so it
// is realized the way internal/scanner already realizes directory
// polling: a spool directory of small JSON files, written atomically
// (temp file + rename, same idiom scanner.go's pool-dir move uses) and
// picked up on a poll interval.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
)

// DefaultPollInterval is how often Watch checks the spool directory
// for new descriptors.
const DefaultPollInterval = 500 * time.Millisecond

// Publish writes job to dir as a single JSON file, visible atomically
// (write to a temp name in the same directory, then rename) so Watch
// never observes a partially written descriptor.
func Publish(dir string, job scanner.Job) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("jobqueue: publish: %w", err)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobqueue: encode job %d: %w", job.JobID, err)
	}

	name := fmt.Sprintf("%020d-%010d.json", job.CreatedAt.UnixNano(), job.JobID)
	final := filepath.Join(dir, name)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("jobqueue: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("jobqueue: rename %s: %w", tmp, err)
	}
	return nil
}

// Watch polls dir until ctx is canceled, delivering each descriptor it
// finds onto out in filename order (oldest-first, since the name is
// time-prefixed) and removing the file once delivered. A descriptor
// that fails to parse is logged and removed rather than retried
// forever.
func Watch(ctx context.Context, dir string, pollInterval time.Duration, out chan<- scanner.Job) error {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("jobqueue: watch: %w", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if err := drain(ctx, dir, out); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := drain(ctx, dir, out); err != nil {
				return err
			}
		}
	}
}

func drain(ctx context.Context, dir string, out chan<- scanner.Job) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("jobqueue: read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			afdlog.Default.Warn("jobqueue: failed to read descriptor, skipping", "path", path, "err", err)
			continue
		}

		var job scanner.Job
		if err := json.Unmarshal(data, &job); err != nil {
			afdlog.Default.Error("jobqueue: malformed descriptor, dropping", "path", path, "err", err)
			_ = os.Remove(path)
			continue
		}

		select {
		case out <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := os.Remove(path); err != nil {
			afdlog.Default.Warn("jobqueue: failed to remove delivered descriptor", "path", path, "err", err)
		}
	}
	return nil
}
