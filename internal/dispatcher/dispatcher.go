// Package dispatcher implements the Job Dispatcher (spec §4.4, C4 /
// "FD" in the original): it takes Jobs the scanner emits, resolves
// each job's recipients to a Host, and routes the (job, recipient)
// pair onto that host's pool of burst coordinators. Grounded on
// original_source/src/fd/sf_ftp.c's dispatcher-facing half (host
// status flags gating dispatch, retry-with-backoff on transient
// failure, auto-pause after max_errors) and on SPEC_FULL.md §5's
// process-model decision: the worker pool here is goroutines and
// channels, not forked sf_ftp processes.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/afderr"
	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/archive"
	"github.com/gokulkarthick/afd-sub000/internal/burst"
	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
	"github.com/gokulkarthick/afd-sub000/internal/pacer"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
	"github.com/gokulkarthick/afd-sub000/internal/statusarea"
	"github.com/gokulkarthick/afd-sub000/internal/transport"
	"github.com/gokulkarthick/afd-sub000/internal/worker"
)

// hostPool is the set of burst coordinators running for one host,
// one per allowed_transfers slot (spec §3 Host "allowed_transfers":
// "the maximum number of simultaneous connections").
type hostPool struct {
	host         config.Host
	hostIdx      int
	coordinators []*burst.Coordinator
	next         int // round-robin cursor across coordinators
	retry        *pacer.Pacer
}

// Dispatcher owns one hostPool per configured Host alias and the
// dialers that know how to reach each scheme.
type Dispatcher struct {
	Area      *statusarea.Area
	FTPDialer transport.Dialer
	SCPDialer transport.Dialer

	TransferLog *logwriter.Writer
	OutputLog   *logwriter.Writer
	DeleteLog   *logwriter.Writer
	Archiver    *archive.Manager

	mu    sync.RWMutex
	pools map[string]*hostPool

	logger *slog.Logger
}

// New builds an empty Dispatcher. Call AddHost for every configured
// Host before Run. archiver may be nil, in which case sent files are
// always deleted rather than archived regardless of a recipient's
// archive_time (spec §4.8).
func New(area *statusarea.Area, ftpDialer, scpDialer transport.Dialer, transferLog, outputLog, deleteLog *logwriter.Writer, archiver *archive.Manager) *Dispatcher {
	return &Dispatcher{
		Area:        area,
		FTPDialer:   ftpDialer,
		SCPDialer:   scpDialer,
		TransferLog: transferLog,
		OutputLog:   outputLog,
		DeleteLog:   deleteLog,
		Archiver:    archiver,
		pools:       map[string]*hostPool{},
		logger:      afdlog.Default,
	}
}

// dialerFor picks the RemoteTransport dialer matching a host's scheme
// (spec §3 Host "scheme").
func (d *Dispatcher) dialerFor(h config.Host) transport.Dialer {
	if h.Scheme == config.SchemeSCP {
		return d.SCPDialer
	}
	return d.FTPDialer
}

// AddHost registers a Host and starts its AllowedTransfers burst
// coordinators. Must be called before Run; ctx governs the
// coordinators' lifetime.
func (d *Dispatcher) AddHost(ctx context.Context, h config.Host) error {
	idx, err := d.Area.EnsureHost(h.Alias)
	if err != nil {
		return err
	}

	pool := &hostPool{
		host:    h,
		hostIdx: idx,
		retry:   pacer.New(time.Second, h.RetryInterval, 2, pacer.WithMaxTries(0)),
	}
	n := h.AllowedTransfers
	if n <= 0 {
		n = 1
	}
	for slot := 0; slot < n; slot++ {
		c := burst.New(h, idx, slot, d.dialerFor(h), d.Area, d.TransferLog, d.OutputLog, d.DeleteLog)
		c.Archiver = d.Archiver
		pool.coordinators = append(pool.coordinators, c)
		go func() {
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("burst coordinator exited", "host", h.Alias, "slot", slot, "err", err)
			}
		}()
	}

	d.mu.Lock()
	d.pools[h.Alias] = pool
	d.mu.Unlock()
	return nil
}

// Run consumes jobs off the scanner's channel until ctx is canceled,
// fanning each job out to every recipient's host pool.
func (d *Dispatcher) Run(ctx context.Context, jobs <-chan scanner.Job) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			d.dispatch(ctx, job)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, job scanner.Job) {
	for _, recipient := range job.Recipients {
		d.mu.RLock()
		pool, ok := d.pools[recipient.HostAlias]
		d.mu.RUnlock()
		if !ok {
			d.logger.Error("job references unknown host alias, dropping", "alias", recipient.HostAlias, "job_id", job.JobID)
			continue
		}
		if pool.statusFlags(d.Area)&(config.HostDisabled|config.HostPaused|config.HostStopTransfer) != 0 {
			d.logger.Warn("host not accepting transfers, leaving files queued", "alias", recipient.HostAlias)
			continue
		}
		go d.runWithRetry(ctx, pool, job, recipient)
	}
}

// runWithRetry assigns job to the next coordinator in pool's
// round-robin rotation, and on a transient failure backs off and
// resubmits (spec §4.4 on_worker_exit: TransientFailure -> retry with
// backoff; FatalFailure/Success -> done).
func (d *Dispatcher) runWithRetry(ctx context.Context, pool *hostPool, job scanner.Job, recipient config.Recipient) {
	target := worker.RecipientTarget{TargetPath: recipient.TargetPath, ArchiveTime: recipient.ArchiveTime}

	_ = pool.retry.Call(ctx, func() (bool, error) {
		results := make(chan burst.JobResult, 1)
		d.mu.Lock()
		c := pool.coordinators[pool.next%len(pool.coordinators)]
		pool.next++
		d.mu.Unlock()

		select {
		case c.Jobs <- burst.AssignedJob{Job: job, Target: target, Result: results}:
		case <-ctx.Done():
			return false, ctx.Err()
		}

		select {
		case r := <-results:
			if r.Outcome == afderr.OutcomeTransientFailure {
				d.maybeAutoPause(pool)
				return true, r.Err
			}
			return false, r.Err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
}

// maybeAutoPause sets HostAutoPaused once a host's consecutive error
// counter reaches max_errors (spec §3 Host "max_errors"). The flag
// stays set until an operator clears it; a later successful transfer
// resets only the error counter.
func (d *Dispatcher) maybeAutoPause(pool *hostPool) {
	if pool.host.MaxErrors <= 0 {
		return
	}
	count := pool.errorCounter(d.Area)
	if count >= uint32(pool.host.MaxErrors) {
		if _, err := d.Area.SetHostStatusFlags(pool.hostIdx, uint32(config.HostAutoPaused), 0); err != nil {
			d.logger.Error("failed to auto-pause host", "alias", pool.host.Alias, "err", err)
			return
		}
		d.logger.Warn("host auto-paused after repeated errors", "alias", pool.host.Alias, "errors", count)
	}
}

func (p *hostPool) statusFlags(area *statusarea.Area) config.HostStatusFlag {
	return config.HostStatusFlag(area.HostStatusFlags(p.hostIdx))
}

func (p *hostPool) errorCounter(area *statusarea.Area) uint32 {
	return area.ErrorCounter(p.hostIdx)
}
