package logsearch

import (
	"strconv"
	"strings"
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
)

// hostWidth mirrors logwriter's unexported hostNameWidth; duplicated
// because that constant is unexported, so the on-disk format is the
// contract between the writer side and this reader side.
const hostWidth = 11

// Record is one parsed log line sharing the delete/output/transfer
// record shape: `<hex time> <host:11><space><tag>` followed by zero or
// more Separator-delimited fields (spec §4.7 step 4's byte layout;
// logwriter/record.go's lineBuilder.writeHostReason/writeFields is the
// writer side of this same format). input-log and receive-log lines
// don't share this shape and aren't searchable by this engine.
type Record struct {
	Time     time.Time
	HostName string
	Tag      string // delete reason, transfer mode, or empty for output
	Fields   []string
	Offset   int
}

// FileName is Fields[0] in every category this engine parses.
func (r Record) FileName() string {
	if len(r.Fields) > 0 {
		return r.Fields[0]
	}
	return ""
}

// FileSize is Fields[1], hex-encoded, in every category this engine parses.
func (r Record) FileSize() (int64, bool) {
	return hexField(r.Fields, 1)
}

// JobID is Fields[2], hex-encoded, in every category this engine parses.
func (r Record) JobID() (uint32, bool) {
	v, ok := hexField(r.Fields, 2)
	return uint32(v), ok
}

// DirectoryID is Fields[3] for the output and delete categories, which
// carry a directory id; the transfer category has no such field at
// that position (it holds TransferMS instead), so callers should only
// filter on directory for those two categories.
func (r Record) DirectoryID() (uint32, bool) {
	v, ok := hexField(r.Fields, 3)
	return uint32(v), ok
}

func hexField(fields []string, idx int) (int64, bool) {
	if idx >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseInt(fields[idx], 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseRecord decodes one log line at byte offset off within its file.
func parseRecord(line []byte, off int) (Record, bool) {
	s := string(line)
	if len(s) < 10+1+hostWidth+1 {
		return Record{}, false
	}
	epoch, err := strconv.ParseInt(s[:10], 16, 64)
	if err != nil || s[10] != ' ' {
		return Record{}, false
	}

	hostStart := 11
	hostEnd := hostStart + hostWidth
	host := strings.TrimRight(s[hostStart:hostEnd], " ")
	if hostEnd >= len(s) || s[hostEnd] != ' ' {
		return Record{}, false
	}

	rest := s[hostEnd+1:]
	tag := rest
	var fields []string
	if sep := strings.IndexByte(rest, logwriter.Separator); sep >= 0 {
		tag = rest[:sep]
		fields = splitFields(rest[sep:])
	}

	return Record{
		Time:     time.Unix(epoch, 0),
		HostName: host,
		Tag:      tag,
		Fields:   fields,
		Offset:   off,
	}, true
}

// splitFields splits a string starting with a leading Separator (as
// lineBuilder.writeFields always produces) into its fields.
func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, string(logwriter.Separator))
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	return parts
}

// timestampAt parses just the leading hex timestamp of the line
// starting at off, without decoding the rest of the record — the fast
// path search_time needs to sample endpoints cheaply (spec §4.7 step 3).
func timestampAt(data []byte, off int) (int64, bool) {
	if off+10 > len(data) {
		return 0, false
	}
	epoch, err := strconv.ParseInt(string(data[off:off+10]), 16, 64)
	if err != nil {
		return 0, false
	}
	return epoch, true
}
