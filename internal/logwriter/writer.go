package logwriter

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
)

// rotationKeep is the number of rotated generations kept on disk
// (the live file has no suffix; file.0 .. file.rotationKeep-1 hold the
// rotated history, newest first), mirroring
// original_source/log/input_log.c's reshuffel_log_files().
const rotationKeep = 7

// flushThreshold is the buffered-byte count past which a writer
// flushes without waiting for the idle timer (input_log.c's
// MAX_LINE_BUFFER_LENGTH-driven fsync cadence, generalized).
const flushThreshold = 4096

// flushIdle is how long a writer waits with nothing to write before
// flushing whatever is buffered, so a quiet host's last record doesn't
// sit unflushed indefinitely.
const flushIdle = 2 * time.Second

// Writer owns one category's append-only file, rotation, and
// dedup-coalescing. One Writer per Category runs its own goroutine
// reading off an internal channel, grounded on original_source's
// per-log-process FIFO-read-loop (each *_log.c was its own daemon
// reading its own named pipe; spec §9 collapses the separate processes
// into per-category goroutines sharing one address space).
type Writer struct {
	category    Category
	dir         string
	rotateEvery time.Duration

	in   chan []byte
	done chan struct{}
}

// New starts a Writer for category, rotating files under dir no more
// often than rotateEvery (spec §4.2 "rotate files by wall-clock
// interval"). Call Close to stop the goroutine and flush remaining
// output.
func New(category Category, dir string, rotateEvery time.Duration) *Writer {
	w := &Writer{
		category:    category,
		dir:         dir,
		rotateEvery: rotateEvery,
		in:          make(chan []byte, 256),
		done:        make(chan struct{}),
	}
	go w.run()
	return w
}

// Write enqueues a record's payload for the category's file. Never
// blocks the caller on disk I/O; it only blocks if the internal queue
// is full, which signals a stuck writer goroutine.
func (w *Writer) Write(payload []byte) {
	w.in <- payload
}

// Close stops the writer goroutine after draining the queue and
// flushing the current file.
func (w *Writer) Close() {
	close(w.in)
	<-w.done
}

func (w *Writer) currentPath() string {
	return filepath.Join(w.dir, w.category.fileNamePrefix())
}

func (w *Writer) rotatedPath(gen int) string {
	return fmt.Sprintf("%s.%d", w.currentPath(), gen)
}

func (w *Writer) run() {
	defer close(w.done)

	f, bw, err := w.openCurrent()
	if err != nil {
		afdlog.Default.Error("logwriter: open failed", "category", string(w.category), "err", err)
		return
	}
	defer func() {
		_ = bw.Flush()
		_ = f.Close()
	}()

	rotateTimer := time.NewTimer(w.rotateEvery)
	idleTimer := time.NewTimer(flushIdle)
	defer rotateTimer.Stop()
	defer idleTimer.Stop()

	buffered := 0
	var lastPayload []byte
	dupCount := 0

	flushDup := func() {
		if dupCount > 0 {
			line := fmt.Sprintf("[repeated %d times]\n", dupCount)
			bw.WriteString(line)
			dupCount = 0
		}
	}

	for {
		select {
		case payload, ok := <-w.in:
			if !ok {
				flushDup()
				return
			}
			if w.category.dedups() && lastPayload != nil && bytes.Equal(payload, lastPayload) {
				dupCount++
				continue
			}
			flushDup()
			lastPayload = append([]byte(nil), payload...)
			n, _ := bw.Write(payload)
			buffered += n
			if buffered >= flushThreshold {
				_ = bw.Flush()
				buffered = 0
			}
			idleTimer.Reset(flushIdle)

		case <-idleTimer.C:
			flushDup()
			_ = bw.Flush()
			buffered = 0
			idleTimer.Reset(flushIdle)

		case <-rotateTimer.C:
			flushDup()
			_ = bw.Flush()
			if err := w.rotate(f); err != nil {
				afdlog.Default.Error("logwriter: rotate failed", "category", string(w.category), "err", err)
			} else {
				f, bw, err = w.openCurrent()
				if err != nil {
					afdlog.Default.Error("logwriter: reopen after rotate failed", "category", string(w.category), "err", err)
					return
				}
			}
			buffered = 0
			lastPayload = nil
			rotateTimer.Reset(w.rotateEvery)
		}
	}
}

func (w *Writer) openCurrent() (*os.File, *bufio.Writer, error) {
	f, err := os.OpenFile(w.currentPath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, bufio.NewWriter(f), nil
}

// rotate closes the live file, deletes file.N-1, shifts file.N-2 ->
// file.N-1 ... file.0 -> file.1, then renames the live file to file.0
// (run reopens a fresh live file afterwards), matching
// original_source's reshuffel_log_files() overflow-delete-oldest
// behavior at rotationKeep.
func (w *Writer) rotate(current *os.File) error {
	if err := current.Close(); err != nil {
		return err
	}
	_ = os.Remove(w.rotatedPath(rotationKeep - 1))
	for gen := rotationKeep - 2; gen >= 0; gen-- {
		_ = os.Rename(w.rotatedPath(gen), w.rotatedPath(gen+1))
	}
	return os.Rename(w.currentPath(), w.rotatedPath(0))
}
