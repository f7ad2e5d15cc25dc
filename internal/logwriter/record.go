package logwriter

import (
	"fmt"
	"strings"
	"time"
)

// Separator is the field delimiter used within a record's payload
// (spec §3 Log Record, original_source/src/log/delete_log.c's
// "Added SEPARATOR_CHAR" history entry).
const Separator = '|'

const hostNameWidth = 11 // original_source MAX_HOSTNAME_LENGTH

// lineBuilder assembles one log line. The original C sources fill
// fields through macros (INSERT_TIME_TYPE, COMMON_BLOCK,
// FILE_SIZE_ONLY, FILE_SIZE_AND_RECIPIENT); spec §9 calls for these to
// become "plain methods on a line-builder struct" instead.
type lineBuilder struct {
	b strings.Builder
}

// writeTime prepends the fixed-width lower-case hex UNIX timestamp
// (spec §3 Log Record invariant) padded to 10 characters, followed by
// a space.
func (l *lineBuilder) writeTime(t time.Time) *lineBuilder {
	fmt.Fprintf(&l.b, "%010x ", t.Unix())
	return l
}

// writeHostReason writes the delete-log's fixed host-name column
// (left-padded to hostNameWidth) followed by a space and the 3-letter
// reason code (original_source/src/log/delete_log.c).
func (l *lineBuilder) writeHostReason(host string, reason string) *lineBuilder {
	fmt.Fprintf(&l.b, "%-*s %s", hostNameWidth, host, reason)
	return l
}

// writeFields appends Separator-delimited fields, each prefixed by a
// Separator (so the caller's preceding column need not know about it).
func (l *lineBuilder) writeFields(fields ...string) *lineBuilder {
	for _, f := range fields {
		l.b.WriteByte(Separator)
		l.b.WriteString(f)
	}
	return l
}

func (l *lineBuilder) writeRaw(s string) *lineBuilder {
	l.b.WriteString(s)
	return l
}

func (l *lineBuilder) bytes() []byte {
	l.b.WriteByte('\n')
	return []byte(l.b.String())
}

// InputRecord is one line of the input-log: a file picked up by AMG
// (spec §4.3, original_source/log/input_log.c).
type InputRecord struct {
	Time        time.Time
	FileName    string
	FileSize    int64
	DirectoryID uint32
}

func (r InputRecord) Encode() []byte {
	var l lineBuilder
	l.writeTime(r.Time)
	fmt.Fprintf(&l.b, "%s %x %x", r.FileName, r.FileSize, r.DirectoryID)
	return l.bytes()
}

// DeleteReason is the fixed 3-character code recorded by the
// delete-log (spec GLOSSARY "Delete reason code").
type DeleteReason string

const (
	ReasonAgeOutput              DeleteReason = "AGE"
	ReasonAgeInput               DeleteReason = "AGI"
	ReasonUserDel                DeleteReason = "USR"
	ReasonOtherDel               DeleteReason = "OTH"
	ReasonFileCurrentlyTransmitted DeleteReason = "DUP"
)

// DeleteRecord is one line of the delete-log (spec §4.3 admission
// deletes, §4.4 duplicate-file guard, §4.4 FatalFailure drop).
type DeleteRecord struct {
	Time          time.Time
	HostName      string // empty for input-side deletes that have no recipient yet
	Reason        DeleteReason
	FileName      string
	FileSize      int64
	JobID         uint32
	DirectoryID   uint32
	PoolDirName   string
	Deleter       string
	Detail        string // optional extra reason, original_source's trailing [|reason]
}

func (r DeleteRecord) Encode() []byte {
	var l lineBuilder
	l.writeTime(r.Time)
	l.writeHostReason(r.HostName, string(r.Reason))
	l.writeFields(
		r.FileName,
		fmt.Sprintf("%x", r.FileSize),
		fmt.Sprintf("%x", r.JobID),
		fmt.Sprintf("%x", r.DirectoryID),
		r.PoolDirName,
		r.Deleter,
	)
	if r.Detail != "" {
		l.writeFields(r.Detail)
	}
	return l.bytes()
}

// OutputRecord is one line of the output-log: a file successfully sent
// (spec §4.5 "archive vs delete... an output-log record is emitted").
type OutputRecord struct {
	Time        time.Time
	HostName    string
	FileName    string
	FileSize    int64
	JobID       uint32
	DirectoryID uint32
	ArchiveDir  string // empty if not archived
	TransferMS  int64
}

func (r OutputRecord) Encode() []byte {
	var l lineBuilder
	l.writeTime(r.Time)
	l.writeHostReason(r.HostName, "")
	l.writeFields(
		r.FileName,
		fmt.Sprintf("%x", r.FileSize),
		fmt.Sprintf("%x", r.JobID),
		fmt.Sprintf("%x", r.DirectoryID),
		r.ArchiveDir,
		fmt.Sprintf("%x", r.TransferMS),
	)
	return l.bytes()
}

// Severity is the receive-log's per-record level, feeding the log
// history ring (spec §4.2).
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
	SeverityFatal
	SeverityOffline
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	case SeverityOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// ReceiveRecord is one line of the receive-log: general narration of a
// host's connection lifecycle (spec §4.2, §7 "the transfer log is the
// authoritative narrative").
type ReceiveRecord struct {
	Time     time.Time
	Severity Severity
	HostName string
	Message  string
}

func (r ReceiveRecord) Encode() []byte {
	var l lineBuilder
	l.writeTime(r.Time)
	fmt.Fprintf(&l.b, "%-7s %s %s", r.Severity, r.HostName, r.Message)
	return l.bytes()
}

// TransferRecord is one line of the transfer-log, the "authoritative
// narrative" spec §7 refers to for a single file's transfer.
type TransferRecord struct {
	Time       time.Time
	HostName   string
	FileName   string
	FileSize   int64
	JobID      uint32
	TransferMS int64
	Mode       string // "ftp", "ftps", "scp"
}

func (r TransferRecord) Encode() []byte {
	var l lineBuilder
	l.writeTime(r.Time)
	l.writeHostReason(r.HostName, r.Mode)
	l.writeFields(
		r.FileName,
		fmt.Sprintf("%x", r.FileSize),
		fmt.Sprintf("%x", r.JobID),
		fmt.Sprintf("%x", r.TransferMS),
	)
	return l.bytes()
}
