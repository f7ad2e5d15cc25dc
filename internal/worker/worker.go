package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/afderr"
	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/archive"
	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
	"github.com/gokulkarthick/afd-sub000/internal/statusarea"
	"github.com/gokulkarthick/afd-sub000/internal/transport"
)

// Worker drives one connected transport through a single Job's files,
// one JobSlot's worth of FSA bookkeeping at a time (spec §4.4). It
// does not own connection lifecycle — the burst coordinator (C6)
// decides when to Connect/Close so a run of jobs for the same host can
// share one control connection.
type Worker struct {
	Host    config.Host
	HostIdx int
	Slot    int

	Transport transport.RemoteTransport
	Area      *statusarea.Area

	TransferLog *logwriter.Writer
	OutputLog   *logwriter.Writer
	DeleteLog   *logwriter.Writer

	// Archiver persists sent files instead of deleting them when a
	// recipient's ArchiveTime is set (spec §4.8). Nil means archiving
	// is disabled; files are always unlinked after a successful send.
	Archiver *archive.Manager

	logger *slog.Logger
}

// New builds a Worker. Any of the *logwriter.Writer arguments may be
// nil in tests that don't care about the structured-log side effect.
func New(host config.Host, hostIdx, slot int, rt transport.RemoteTransport, area *statusarea.Area, transferLog, outputLog, deleteLog *logwriter.Writer) *Worker {
	return &Worker{
		Host:        host,
		HostIdx:     hostIdx,
		Slot:        slot,
		Transport:   rt,
		Area:        area,
		TransferLog: transferLog,
		OutputLog:   outputLog,
		DeleteLog:   deleteLog,
		logger:      afdlog.WithHost(afdlog.Default, host.Alias),
	}
}

// RecipientTarget is one (host, directory) pair's upload destination,
// narrowed from config.Recipient.
type RecipientTarget struct {
	TargetPath  string
	ArchiveTime time.Duration
}

// ProcessJob uploads every file in job to target, returning the
// Outcome the dispatcher uses to decide whether to retry, drop, or
// requeue the remainder (spec §4.4 on_worker_exit).
func (w *Worker) ProcessJob(ctx context.Context, job scanner.Job, target RecipientTarget) (afderr.Outcome, error) {
	if err := w.Transport.Chdir(ctx, target.TargetPath, w.Host.CreateTargetDir); err != nil {
		return w.classifyAndRecord(err)
	}

	remoteEntries, err := w.Transport.List(ctx)
	if err != nil {
		w.logger.Warn("remote listing failed, resume/size-column detection disabled", "err", err)
		remoteEntries = nil
	}
	remoteSize := make(map[string]int64, len(remoteEntries))
	for _, e := range remoteEntries {
		if !e.IsDir {
			remoteSize[e.Name] = e.Size
		}
	}

	if _, err := w.Area.IncrementActiveTransfers(w.HostIdx, 1); err != nil {
		w.logger.Warn("failed to increment active transfer count", "err", err)
	}
	defer func() {
		if _, err := w.Area.IncrementActiveTransfers(w.HostIdx, -1); err != nil {
			w.logger.Warn("failed to decrement active transfer count", "err", err)
		}
	}()

	for _, f := range job.Files {
		if ctx.Err() != nil {
			return afderr.OutcomeStillFilesToSend, ctx.Err()
		}
		if err := w.sendOne(ctx, job, f, target, remoteSize); err != nil {
			kind, _ := afderr.As(err)
			if _, rerr := w.Area.RecordError(w.HostIdx, uint32(kind)); rerr != nil {
				w.logger.Warn("failed to record error in FSA", "err", rerr)
			}
			if kind.Transient() {
				return afderr.OutcomeTransientFailure, err
			}
			// fatal: drop this file, keep going with the rest of the
			// job (spec §7: a per-file fatal error doesn't abort a
			// whole burst, it just loses that file).
			w.dropFatal(job.PoolDir, f, err)
			continue
		}
		if err := w.Area.ClearErrors(w.HostIdx); err != nil {
			w.logger.Warn("failed to clear error counter after success", "err", err)
		}
	}

	if err := w.Area.ClearSlot(w.HostIdx, w.Slot); err != nil {
		w.logger.Warn("failed to clear job slot", "err", err)
	}
	return afderr.OutcomeSuccess, nil
}

func (w *Worker) sendOne(ctx context.Context, job scanner.Job, f scanner.FileEntry, target RecipientTarget, remoteSize map[string]int64) error {
	finalName := f.Name
	if slot, found, err := w.Area.FindFileInUse(w.HostIdx, f.Name); err == nil && found && slot != w.Slot {
		if w.Host.RenameFileBusyChar == "" {
			return afderr.New(afderr.KindDuplicateFile, fmt.Errorf("%s already in flight in slot %d", f.Name, slot))
		}
		// spec §4.4 duplicate-file guard: rather than dropping the
		// file outright, a configured rename_file_busy_char lets a
		// second concurrent upload of the same name proceed under a
		// disambiguated name instead of colliding with the in-flight one.
		finalName = busyRenamedName(w.Host, f.Name, 1)
		w.logger.Warn("duplicate in-flight upload, renaming", "file", f.Name, "as", finalName, "slot", slot)
	}

	localPath := filepath.Join(job.PoolDir, f.Name)
	lf, err := os.Open(localPath)
	if err != nil {
		return afderr.New(afderr.KindOpenLocal, err)
	}
	defer lf.Close()

	var resumeOffset int64
	if w.Host.MaxSendBeforeAppend > 0 && f.Size >= w.Host.MaxSendBeforeAppend {
		if existing, ok := remoteSize[f.Name]; ok && existing < f.Size {
			resumeOffset = existing
			if _, err := lf.Seek(resumeOffset, io.SeekStart); err != nil {
				resumeOffset = 0
			}
		}
	}

	initialName := initialRemoteName(w.Host, finalName)

	if err := w.Area.WriteSlot(w.HostIdx, w.Slot, statusarea.JobSlot{
		ConnectStatus:     statusarea.FTPActive,
		FilesToSend:       uint32(len(job.Files)),
		FileSizeToSend:    uint64(job.TotalBytes()),
		FileSizeInUse:     uint64(f.Size),
		FileSizeInUseDone: uint64(resumeOffset),
		FileNameInUse:     finalName,
		JobIDInUse:        job.JobID,
	}); err != nil {
		w.logger.Warn("failed to publish job slot before upload", "err", err)
	}

	var lockFile string
	if w.Host.LockPolicy == config.LockFile {
		lockFile = companionLockFileName(w.Host, finalName)
		if err := w.Transport.Put(ctx, lockFile, strings.NewReader(""), 0, 0); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := w.Transport.Put(ctx, initialName, lf, f.Size, resumeOffset); err != nil {
		return err
	}

	if needsRename(w.Host.LockPolicy) {
		if err := w.Transport.Rename(ctx, initialName, finalName); err != nil {
			return err
		}
	}
	if lockFile != "" {
		if err := w.Transport.Remove(ctx, lockFile); err != nil {
			w.logger.Warn("failed to remove companion lockfile", "file", lockFile, "err", err)
		}
	}

	elapsed := time.Since(start)
	if w.TransferLog != nil {
		rec := logwriter.TransferRecord{
			Time:       time.Now(),
			HostName:   w.Host.Alias,
			FileName:   finalName,
			FileSize:   f.Size,
			JobID:      job.JobID,
			TransferMS: elapsed.Milliseconds(),
			Mode:       w.Host.Scheme.String(),
		}
		w.TransferLog.Write(rec.Encode())
	}

	lf.Close()
	archiveDir := w.archiveOrDelete(job, target, finalName, localPath)

	if w.OutputLog != nil {
		rec := logwriter.OutputRecord{
			Time:        time.Now(),
			HostName:    w.Host.Alias,
			FileName:    finalName,
			FileSize:    f.Size,
			JobID:       job.JobID,
			DirectoryID: job.DirectoryID,
			ArchiveDir:  archiveDir,
			TransferMS:  elapsed.Milliseconds(),
		}
		w.OutputLog.Write(rec.Encode())
	}
	return nil
}

// archiveOrDelete disposes of the local copy of a successfully sent
// file: archived under target.ArchiveTime when the worker has an
// Archiver configured, unlinked otherwise (spec §4.5 "archive vs
// delete... either way an output-log record is emitted"). Returns the
// archive directory, or "" if the file was deleted.
func (w *Worker) archiveOrDelete(job scanner.Job, target RecipientTarget, finalName, localPath string) string {
	if target.ArchiveTime <= 0 || w.Archiver == nil {
		_ = os.Remove(localPath)
		return ""
	}

	meta := archive.JobMeta{
		HostAlias:   w.Host.Alias,
		Scheme:      w.Host.Scheme,
		JobID:       job.JobID,
		ArchiveTime: target.ArchiveTime,
		CreatedAt:   job.CreatedAt,
	}
	dst, err := w.Archiver.Archive(meta, localPath, finalName)
	if err != nil {
		w.logger.Warn("failed to archive sent file, deleting instead", "file", finalName, "err", err)
		_ = os.Remove(localPath)
		return ""
	}
	return filepath.Dir(dst)
}

// dropFatal removes the local copy of a file that cannot be retried
// (spec §4.4 FatalFailure: "the file is dropped, never retried") and
// records why in the delete-log.
func (w *Worker) dropFatal(poolDir string, f scanner.FileEntry, cause error) {
	w.logger.Error("dropping file after fatal error", "file", f.Name, "err", cause)
	_ = os.Remove(filepath.Join(poolDir, f.Name))
	if w.DeleteLog != nil {
		rec := logwriter.DeleteRecord{
			Time:     time.Now(),
			HostName: w.Host.Alias,
			Reason:   logwriter.ReasonOtherDel,
			FileName: f.Name,
			FileSize: f.Size,
			Deleter:  "worker",
			Detail:   cause.Error(),
		}
		w.DeleteLog.Write(rec.Encode())
	}
}

func (w *Worker) classifyAndRecord(err error) (afderr.Outcome, error) {
	kind, ok := afderr.As(err)
	if !ok {
		kind = afderr.KindConnect
		err = afderr.New(kind, err)
	}
	if _, rerr := w.Area.RecordError(w.HostIdx, uint32(kind)); rerr != nil {
		w.logger.Warn("failed to record error in FSA", "err", rerr)
	}
	if kind.Transient() {
		return afderr.OutcomeTransientFailure, err
	}
	return afderr.OutcomeFatalFailure, err
}
