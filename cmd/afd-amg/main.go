// Command afd-amg runs the Directory Scanner (spec §4.3, C3 / "AMG"):
// one internal/scanner.Scanner per configured Directory, publishing
// each admitted Job to the spool internal/jobqueue watches from the
// afd-fd side of the process boundary (SPEC_FULL.md §5 process-model
// decision: AMG and FD stay separate binaries). Flag surface grounded
// on rclone's own cobra-based cmd/ convention (SPEC_FULL.md §9
// CLI/daemon framework).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/config"
	"github.com/gokulkarthick/afd-sub000/internal/jobqueue"
	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
	"github.com/gokulkarthick/afd-sub000/internal/scanner"
)

var (
	configPath     string
	poolRoot       string
	spoolDir       string
	logDir         string
	dbUpdatePath   string
	rescanInterval time.Duration
	rotateInterval time.Duration
)

// defaultSwitchFileTime matches original_source's SWITCH_FILE_TIME
// default of 86400 seconds (spec §4.2 rotation).
const defaultSwitchFileTime = 24 * time.Hour

func main() {
	cmd := &cobra.Command{
		Use:   "afd-amg",
		Short: "Scan configured directories and publish job descriptors to the dispatcher",
		RunE:  run,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the JSON host/directory config file (required)")
	cmd.Flags().StringVar(&poolRoot, "working-dir", "/var/afd/pool", "root directory under which per-job pool directories are created")
	cmd.Flags().StringVar(&spoolDir, "spool-dir", "/var/afd/spool", "directory watched by afd-fd for published job descriptors")
	cmd.Flags().StringVar(&logDir, "log-dir", "/var/afd/logs", "directory for the input/delete structured logs")
	cmd.Flags().StringVar(&dbUpdatePath, "db-update-file", "/var/afd/DB_UPDATE", "control file external tools touch to trigger reconfiguration")
	cmd.Flags().DurationVar(&rescanInterval, "rescan-interval", scanner.DefaultRescanInterval, "how often each directory is rescanned")
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
			afdlog.Default.Error("afd-amg: DB_UPDATE watcher failed", "err", err)
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
			afdlog.Default.Info("afd-amg: SIGHUP received, reloading directory config")
			cancelRun()
			<-done
		case reason := <-dbUpdate:
			afdlog.Default.Info("afd-amg: DB_UPDATE reconfiguration requested", "reason", reason)
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
		return fmt.Errorf("afd-amg: %w", err)
	}

	inputLog := logwriter.New(logwriter.CategoryInput, logDir, rotateInterval)
	deleteLog := logwriter.New(logwriter.CategoryDelete, logDir, rotateInterval)
	defer inputLog.Close()
	defer deleteLog.Close()

	jobs := make(chan scanner.Job, 64)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-jobs:
				if err := jobqueue.Publish(spoolDir, job); err != nil {
					afdlog.Default.Error("afd-amg: failed to publish job descriptor", "job_id", job.JobID, "err", err)
				}
			}
		}
	}()

	scanners := make([]*scanner.Scanner, 0, len(fc.Directories))
	for _, dir := range fc.Directories {
		scanners = append(scanners, scanner.New(dir, poolRoot, rescanInterval, jobs, inputLog, deleteLog))
	}

	errs := make(chan error, len(scanners))
	for _, s := range scanners {
		s := s
		go func() { errs <- s.Run(ctx) }()
	}

	for range scanners {
		if err := <-errs; err != nil && ctx.Err() == nil {
			return err
		}
	}
	return nil
}
