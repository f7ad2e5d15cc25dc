// Command afd-fd runs the Job Dispatcher (spec §4.4, C4 / "FD"): it
// watches the spool internal/jobqueue populates from the afd-amg side
// of the process boundary, routes each job to the right host's burst
// coordinators, and serves the FSA-derived prometheus gauges
// (SPEC_FULL.md §9 Metrics) over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/archive"
	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/dispatcher"
	"github.com/gokulkarthick/afd-sub000/internal/jobqueue"
	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
	"github.com/gokulkarthick/afd-sub000/internal/statusarea"
	transportftp "github.com/gokulkarthick/afd-sub000/internal/transport/ftp"
	transportscp "github.com/gokulkarthick/afd-sub000/internal/transport/scp"
)

var (
	configPath     string
	statusAreaPath string
	spoolDir       string
	logDir         string
	archiveDir     string
	metricsAddr    string
	dbUpdatePath   string
	rotateInterval time.Duration
)

const defaultSwitchFileTime = 24 * time.Hour

func main() {
	cmd := &cobra.Command{
		Use:   "afd-fd",
		Short: "Dispatch published job descriptors to remote hosts over FTP/FTPS/SCP",
		RunE:  run,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the JSON host/directory config file (required)")
	cmd.Flags().StringVar(&statusAreaPath, "status-area-path", "/var/afd/fsa.dat", "path to the shared Host status area mmap file")
	cmd.Flags().StringVar(&spoolDir, "spool-dir", "/var/afd/spool", "directory afd-amg publishes job descriptors into")
	cmd.Flags().StringVar(&logDir, "log-dir", "/var/afd/logs", "directory for the transfer/output/delete structured logs")
	cmd.Flags().StringVar(&archiveDir, "archive-dir", "", "root directory for archived files (empty disables archiving, recipients fall back to delete)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	cmd.Flags().StringVar(&dbUpdatePath, "db-update-file", "/var/afd/DB_UPDATE", "control file external tools touch to trigger reconfiguration")
	cmd.Flags().DurationVar(&rotateInterval, "log-rotate-interval", defaultSwitchFileTime, "minimum interval between structured-log rotations")
	_ = cmd.MarkFlagRequired("config")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	dbUpdate := make(chan config.DBUpdateReason, 1)
	go func() {
		if err := config.WatchDBUpdate(ctx, dbUpdatePath, config.DefaultDBUpdatePollInterval, dbUpdate); err != nil {
			afdlog.Default.Error("afd-fd: DB_UPDATE watcher failed", "err", err)
		}
	}()

	for {
		runCtx, cancelRun := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- runOnce(runCtx) }()

		select {
		case <-ctx.Done():
			cancelRun()
			<-done
			return nil
		case <-reload:
			afdlog.Default.Info("afd-fd: SIGHUP received, reloading host config")
			cancelRun()
			<-done
		case reason := <-dbUpdate:
			afdlog.Default.Info("afd-fd: DB_UPDATE reconfiguration requested", "reason", reason)
			cancelRun()
			<-done
		case err := <-done:
			cancelRun()
			return err
		}
	}
}

func runOnce(ctx context.Context) error {
	fc, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("afd-fd: %w", err)
	}

	area, err := statusarea.Attach(statusAreaPath, len(fc.Hosts))
	if err != nil {
		return fmt.Errorf("afd-fd: attach status area: %w", err)
	}
	defer area.Close()

	transferLog := logwriter.New(logwriter.CategoryTransfer, logDir, rotateInterval)
	outputLog := logwriter.New(logwriter.CategoryOutput, logDir, rotateInterval)
	deleteLog := logwriter.New(logwriter.CategoryDelete, logDir, rotateInterval)
	defer transferLog.Close()
	defer outputLog.Close()
	defer deleteLog.Close()

	var archiver *archive.Manager
	if archiveDir != "" {
		archiver = archive.New(archiveDir)
	}

	d := dispatcher.New(area, transportftp.Dialer{}, transportscp.Dialer{}, transferLog, outputLog, deleteLog, archiver)

	aliases := make(map[int]string, len(fc.Hosts))
	for _, h := range fc.Hosts {
		if err := d.AddHost(ctx, h); err != nil {
			return fmt.Errorf("afd-fd: add host %s: %w", h.Alias, err)
		}
		idx, err := area.EnsureHost(h.Alias)
		if err != nil {
			return fmt.Errorf("afd-fd: ensure host %s: %w", h.Alias, err)
		}
		aliases[idx] = h.Alias
	}

	stopMetrics := serveMetrics(area, aliases)
	defer stopMetrics()

	jobs := make(chan scanner.Job, 64)
	watchErr := make(chan error, 1)
	go func() { watchErr <- jobqueue.Watch(ctx, spoolDir, jobqueue.DefaultPollInterval, jobs) }()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx, jobs) }()

	select {
	case err := <-watchErr:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("afd-fd: spool watcher: %w", err)
		}
	case err := <-runErr:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("afd-fd: dispatcher: %w", err)
		}
	case <-ctx.Done():
	}
	return nil
}

// serveMetrics registers the FSA host gauges on a dedicated registry
// and serves them over HTTP, per SPEC_FULL.md §9's Metrics section.
// Returns a function that shuts the server down.
func serveMetrics(area *statusarea.Area, aliases map[int]string) func() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(statusarea.NewHostMetrics(area, aliases))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: metricsAddr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			afdlog.Default.Error("afd-fd: metrics server failed", "err", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
