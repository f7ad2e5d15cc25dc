package logsearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokulkarthick/afd-sub000/internal/logwriter"
)

func writeTransferLog(t *testing.T, dir string, records []logwriter.TransferRecord) {
	t.Helper()
	var buf []byte
	for _, r := range records {
		buf = append(buf, r.Encode()...)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transfer_log"), buf, 0644))
}

func at(unixSeconds int64) time.Time { return time.Unix(unixSeconds, 0) }

func TestParseRecordRoundTripsTransferRecord(t *testing.T) {
	rec := logwriter.TransferRecord{
		Time: at(1700000000), HostName: "mirror1", FileName: "a.txt",
		FileSize: 123, JobID: 7, TransferMS: 42, Mode: "ftp",
	}
	line := rec.Encode()
	parsed, ok := parseRecord(line[:len(line)-1], 0) // drop trailing \n
	require.True(t, ok)
	assert.Equal(t, "mirror1", parsed.HostName)
	assert.Equal(t, "ftp", parsed.Tag)
	assert.Equal(t, "a.txt", parsed.FileName())
	size, ok := parsed.FileSize()
	require.True(t, ok)
	assert.Equal(t, int64(123), size)
	jobID, ok := parsed.JobID()
	require.True(t, ok)
	assert.Equal(t, uint32(7), jobID)
}

func TestSearchFindsRecordsWithinWindowAndPredicate(t *testing.T) {
	dir := t.TempDir()
	writeTransferLog(t, dir, []logwriter.TransferRecord{
		{Time: at(1000), HostName: "mirror1", FileName: "old.txt", FileSize: 1, JobID: 1, TransferMS: 1, Mode: "ftp"},
		{Time: at(2000), HostName: "mirror1", FileName: "in1.txt", FileSize: 10, JobID: 2, TransferMS: 5, Mode: "ftp"},
		{Time: at(2500), HostName: "mirror2", FileName: "in2.txt", FileSize: 20, JobID: 3, TransferMS: 5, Mode: "ftp"},
		{Time: at(3000), HostName: "mirror1", FileName: "in3.txt", FileSize: 30, JobID: 4, TransferMS: 5, Mode: "ftp"},
		{Time: at(9000), HostName: "mirror1", FileName: "future.txt", FileSize: 1, JobID: 5, TransferMS: 1, Mode: "ftp"},
	})

	// backdate the file's mtime so candidateFiles' window filter, which
	// compares against the file's own mtime, includes it regardless of
	// when the test runs.
	require.NoError(t, os.Chtimes(filepath.Join(dir, "transfer_log"), at(2500), at(2500)))

	e := New(dir, logwriter.CategoryTransfer)
	win := Window{Start: at(1500), End: at(3500)}

	var hits []Hit
	err := e.Search(context.Background(), win, Predicate{Recipient: "mirror1"}, func(batch []Hit) error {
		hits = append(hits, batch...)
		return nil
	})
	require.NoError(t, err)

	var names []string
	for _, h := range hits {
		names = append(names, h.Record.FileName())
	}
	assert.ElementsMatch(t, []string{"in1.txt", "in3.txt"}, names)
}

func TestSearchAppliesSizePredicate(t *testing.T) {
	dir := t.TempDir()
	writeTransferLog(t, dir, []logwriter.TransferRecord{
		{Time: at(100), HostName: "mirror1", FileName: "small.txt", FileSize: 5, JobID: 1, TransferMS: 1, Mode: "ftp"},
		{Time: at(200), HostName: "mirror1", FileName: "big.txt", FileSize: 5000, JobID: 2, TransferMS: 1, Mode: "ftp"},
	})
	require.NoError(t, os.Chtimes(filepath.Join(dir, "transfer_log"), at(200), at(200)))

	e := New(dir, logwriter.CategoryTransfer)
	win := Window{Start: at(0), End: at(1000)}

	var hits []Hit
	err := e.Search(context.Background(), win, Predicate{SizeOp: SizeGreater, SizeValue: 1000}, func(batch []Hit) error {
		hits = append(hits, batch...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "big.txt", hits[0].Record.FileName())
}

func TestSearchTimeFindsFirstOffsetAtOrAfterTarget(t *testing.T) {
	dir := t.TempDir()
	writeTransferLog(t, dir, []logwriter.TransferRecord{
		{Time: at(100), HostName: "mirror1", FileName: "a.txt", FileSize: 1, JobID: 1, TransferMS: 1, Mode: "ftp"},
		{Time: at(200), HostName: "mirror1", FileName: "b.txt", FileSize: 1, JobID: 2, TransferMS: 1, Mode: "ftp"},
		{Time: at(300), HostName: "mirror1", FileName: "c.txt", FileSize: 1, JobID: 3, TransferMS: 1, Mode: "ftp"},
	})
	data, err := os.ReadFile(filepath.Join(dir, "transfer_log"))
	require.NoError(t, err)

	off := searchTime(data, 200)
	rec, ok := parseRecord(data[off:indexNewline(data, off)], off)
	require.True(t, ok)
	assert.Equal(t, "b.txt", rec.FileName())

	off = searchTime(data, 0)
	assert.Equal(t, 0, off)

	off = searchTime(data, 10000)
	assert.Equal(t, len(data), off)
}

func indexNewline(data []byte, off int) int {
	for i := off; i < len(data); i++ {
		if data[i] == '\n' {
			return i
		}
	}
	return len(data)
}
