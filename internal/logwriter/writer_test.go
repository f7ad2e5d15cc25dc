package logwriter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsAndFlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	w := New(CategoryInput, dir, time.Hour)

	r := InputRecord{Time: time.Unix(1, 0), FileName: "a.txt", FileSize: 10, DirectoryID: 1}
	w.Write(r.Encode())
	w.Close()

	data, err := os.ReadFile(filepath.Join(dir, "input_log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a.txt")
}

func TestWriterCoalescesDuplicateTransferRecords(t *testing.T) {
	dir := t.TempDir()
	w := New(CategoryTransfer, dir, time.Hour)

	r := TransferRecord{Time: time.Unix(1, 0), HostName: "mirror1", FileName: "a.txt", Mode: "ftp"}
	line := r.Encode()
	w.Write(line)
	w.Write(line)
	w.Write(line)
	w.Close()

	data, err := os.ReadFile(filepath.Join(dir, "transfer_log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[repeated 2 times]")
}

func TestWriterDoesNotCoalesceNonDedupCategory(t *testing.T) {
	dir := t.TempDir()
	w := New(CategoryInput, dir, time.Hour)

	r := InputRecord{Time: time.Unix(1, 0), FileName: "a.txt"}
	line := r.Encode()
	w.Write(line)
	w.Write(line)
	w.Close()

	data, err := os.ReadFile(filepath.Join(dir, "input_log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "repeated")
}

func TestWriterRotateShiftsGenerations(t *testing.T) {
	dir := t.TempDir()
	w := New(CategoryDelete, dir, 10*time.Millisecond)

	r := DeleteRecord{Time: time.Unix(1, 0), FileName: "a", Reason: ReasonUserDel}
	w.Write(r.Encode())
	time.Sleep(50 * time.Millisecond)
	w.Write(r.Encode())
	w.Close()

	_, err := os.Stat(filepath.Join(dir, "delete_log.0"))
	assert.NoError(t, err, "rotation should have produced a .0 generation file")
}
