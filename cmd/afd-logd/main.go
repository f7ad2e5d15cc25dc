// Command afd-logd owns the two structured-log categories nothing
// else in this module produces inline: "system" (general diagnostic
// narration) and "receive" (a host's connection-lifecycle narrative,
// spec §4.2). Every other category (input/delete/transfer/output) is
// written directly by the process that generates the record
// (internal/scanner, internal/worker) since those producers and their
// Writer already share an address space; these two don't have an
// obvious single owner, so afd-logd is the dedicated log-writer
// process original_source's per-category *_log.c daemons were, reached
// over a Unix domain socket instead of a named pipe (spec §9: "global
// mutable state becomes an explicitly passed Context", extended here
// to "a named pipe only one side of which lives in this process
// becomes a local socket").
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gokulkarthick/afd-sub000/internal/afdlog"
	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
)

var (
	logDir         string
	socketPath     string
	rotateInterval time.Duration
)

const defaultSwitchFileTime = 24 * time.Hour

// logLine is one JSON-encoded record sent over the socket.
type logLine struct {
	Category string `json:"category"` // "system" or "receive"
	Severity string `json:"severity"`
	Host     string `json:"host"`
	Message  string `json:"message"`
}

func main() {
	cmd := &cobra.Command{
		Use:   "afd-logd",
		Short: "Accept system/receive log records over a local socket and write them to rotated files",
		RunE:  run,
	}
	cmd.Flags().StringVar(&logDir, "log-dir", "/var/afd/logs", "directory for the system/receive structured logs")
	cmd.Flags().StringVar(&socketPath, "socket-path", "/var/afd/logd.sock", "Unix domain socket accepting log lines")
	cmd.Flags().DurationVar(&rotateInterval, "log-rotate-interval", defaultSwitchFileTime, "minimum interval between structured-log rotations")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	systemLog := logwriter.New(logwriter.CategorySystem, logDir, rotateInterval)
	receiveLog := logwriter.New(logwriter.CategoryReceive, logDir, rotateInterval)
	defer systemLog.Close()
	defer receiveLog.Close()

	_ = os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("afd-logd: listen %s: %w", socketPath, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			afdlog.Default.Error("afd-logd: accept failed", "err", err)
			continue
		}
		go handleConn(conn, systemLog, receiveLog)
	}
}

func handleConn(conn net.Conn, systemLog, receiveLog *logwriter.Writer) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var line logLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			afdlog.Default.Warn("afd-logd: malformed log line, dropping", "err", err)
			continue
		}
		rec := logwriter.ReceiveRecord{
			Time:     time.Now(),
			Severity: parseSeverity(line.Severity),
			HostName: line.Host,
			Message:  line.Message,
		}
		switch line.Category {
		case "system":
			systemLog.Write(rec.Encode())
		case "receive":
			receiveLog.Write(rec.Encode())
		default:
			afdlog.Default.Warn("afd-logd: unknown category, dropping", "category", line.Category)
		}
	}
}

func parseSeverity(s string) logwriter.Severity {
	switch s {
	case "WARN":
		return logwriter.SeverityWarn
	case "ERROR":
		return logwriter.SeverityError
	case "FATAL":
		return logwriter.SeverityFatal
	case "OFFLINE":
		return logwriter.SeverityOffline
	default:
		return logwriter.SeverityInfo
	}
}
