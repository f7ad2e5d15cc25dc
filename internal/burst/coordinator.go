// Package burst implements the Burst Coordinator (spec §4.6, C6): it
// owns one connected transport per Coordinator (the dispatcher runs one
// Coordinator per allowed transfer slot of a host) and keeps reusing it
// across consecutive jobs instead of reconnecting for every
// job, exactly as original_source/src/fd/sf_ftp.c's check_burst_2 loop
// does (spec §9: "the coroutine-style burst loop becomes a for/switch
// over a channel of pending jobs instead of a goto back to the top of
// main()").
package burst

import (
	"context"
	"log/slog"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/afderr"
	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/archive"
	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
	"github.com/gokulkarthick/afd-sub000/internal/statusarea"
	"github.com/gokulkarthick/afd-sub000/internal/transport"
	"github.com/gokulkarthick/afd-sub000/internal/worker"
)

// AssignedJob is a Job already routed to one recipient of one host
// (the dispatcher resolves Job.Recipients into one AssignedJob per
// recipient before handing it to a Coordinator).
type AssignedJob struct {
	Job    scanner.Job
	Target worker.RecipientTarget
	Result chan<- JobResult
}

// JobResult is reported back to the dispatcher once a job finishes,
// win or lose (spec §4.4 on_worker_exit).
type JobResult struct {
	Job     scanner.Job
	Outcome afderr.Outcome
	Err     error
}

// BurstWindow is how long a Coordinator holds a connection open after
// its last job, waiting for another job for the same host before
// disconnecting (spec GLOSSARY "Burst"; original_source's
// check_burst_2 effectively polls for this inline, here it's an
// explicit select timeout).
const BurstWindow = 2 * time.Second

// Coordinator serializes jobs for one host through one reused
// transport connection, running in its own goroutine fed by Jobs.
type Coordinator struct {
	Host    config.Host
	HostIdx int
	Slot    int

	Dialer transport.Dialer
	Area   *statusarea.Area

	TransferLog *logwriter.Writer
	OutputLog   *logwriter.Writer
	DeleteLog   *logwriter.Writer
	Archiver    *archive.Manager

	Jobs chan AssignedJob

	burstCount int
	logger     *slog.Logger
}

// New builds a Coordinator for host, reading jobs off its own queue.
// The dispatcher spreads a host's AssignedJobs round-robin across that
// host's Coordinators' Jobs channels.
func New(host config.Host, hostIdx, slot int, dialer transport.Dialer, area *statusarea.Area, transferLog, outputLog, deleteLog *logwriter.Writer) *Coordinator {
	return &Coordinator{
		Host:        host,
		HostIdx:     hostIdx,
		Slot:        slot,
		Dialer:      dialer,
		Area:        area,
		TransferLog: transferLog,
		OutputLog:   outputLog,
		DeleteLog:   deleteLog,
		Jobs:        make(chan AssignedJob, 16),
		logger:      afdlog.WithHost(afdlog.Default, host.Alias),
	}
}

// Run processes AssignedJobs until ctx is canceled, holding one
// transport connection open across a burst and tearing it down once
// BurstWindow passes with nothing new queued.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case aj := <-c.Jobs:
			if err := c.runBurst(ctx, aj); err != nil {
				return err
			}
		}
	}
}

func (c *Coordinator) runBurst(ctx context.Context, first AssignedJob) error {
	rt := c.Dialer.Dial(hostParams(c.Host))
	if err := rt.Connect(ctx); err != nil {
		first.Result <- JobResult{Job: first.Job, Outcome: afderr.OutcomeTransientFailure, Err: err}
		return nil
	}
	defer func() { _ = rt.Close() }()

	c.burstCount = 0
	aj := first
	for {
		w := worker.New(c.Host, c.HostIdx, c.Slot, rt, c.Area, c.TransferLog, c.OutputLog, c.DeleteLog)
		w.Archiver = c.Archiver
		outcome, err := w.ProcessJob(ctx, aj.Job, aj.Target)
		aj.Result <- JobResult{Job: aj.Job, Outcome: outcome, Err: err}

		if outcome != afderr.OutcomeSuccess {
			return nil
		}
		c.burstCount++
		if c.Host.BurstLimit > 0 && c.burstCount >= c.Host.BurstLimit {
			c.logger.Info("burst limit reached, closing connection", "count", c.burstCount)
			return nil
		}

		timer := time.NewTimer(BurstWindow)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case next := <-c.Jobs:
			timer.Stop()
			aj = next
		case <-timer.C:
			return nil
		}
	}
}

func hostParams(h config.Host) transport.HostParams {
	return transport.HostParams{
		Alias:             h.Alias,
		RealHostname:      h.RealHostname1,
		Port:              h.Port,
		User:              h.User,
		Password:          h.Password,
		ProxyAddr:         h.ProxyAddr,
		PassiveMode:       h.PassiveMode,
		TransferBlockSize: h.TransferBlockSize,
		FileSizeOffset:    h.FileSizeOffset,
		TransferTimeout:   h.TransferTimeout,
		RequireTLS:        h.Scheme == config.SchemeFTPSControl || h.Scheme == config.SchemeFTPSBoth,
		ImplicitTLS:       h.Scheme == config.SchemeFTPSBoth,
	}
}
