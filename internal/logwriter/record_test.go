package logwriter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInputRecordEncodeHasHexTimePrefix(t *testing.T) {
	r := InputRecord{
		Time:        time.Unix(0x426f52c4, 0),
		FileName:    "dat.txt",
		FileSize:    9888,
		DirectoryID: 46,
	}
	line := string(r.Encode())
	assert.True(t, strings.HasPrefix(line, "00426f52c4 dat.txt 26a0 2e"), line)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestDeleteRecordEncodeFieldOrder(t *testing.T) {
	r := DeleteRecord{
		Time:        time.Unix(0x426f52c4, 0),
		HostName:    "btx",
		Reason:      ReasonAgeOutput,
		FileName:    "dat.txt",
		FileSize:    0x5eb7,
		JobID:       0x697d0f61,
		DirectoryID: 0x3ab56ea2,
		PoolDirName: "426f44b4_23ed0_0",
		Deleter:     "sf_ftp",
	}
	line := string(r.Encode())
	assert.Contains(t, line, "btx")
	assert.Contains(t, line, "AGE")
	assert.Contains(t, line, "|dat.txt|5eb7|697d0f61|3ab56ea2|426f44b4_23ed0_0|sf_ftp")
	assert.False(t, strings.Contains(line, "||"), "no detail field means no trailing empty segment")
}

func TestDeleteRecordEncodeWithDetail(t *testing.T) {
	r := DeleteRecord{
		Time:        time.Unix(1, 0),
		HostName:    "btx",
		Reason:      ReasonOtherDel,
		FileName:    "f",
		PoolDirName: "p",
		Deleter:     "sf_ftp",
		Detail:      ">10",
	}
	line := string(r.Encode())
	assert.True(t, strings.HasSuffix(line, "|>10\n"))
}

func TestReceiveRecordEncodeIncludesSeverity(t *testing.T) {
	r := ReceiveRecord{
		Time:     time.Unix(1, 0),
		Severity: SeverityError,
		HostName: "mirror1",
		Message:  "connection refused",
	}
	line := string(r.Encode())
	assert.Contains(t, line, "ERROR")
	assert.Contains(t, line, "mirror1")
	assert.Contains(t, line, "connection refused")
}

func TestTransferRecordEncodeFields(t *testing.T) {
	r := TransferRecord{
		Time:       time.Unix(1, 0),
		HostName:   "mirror1",
		FileName:   "dat.txt",
		FileSize:   1024,
		JobID:      7,
		TransferMS: 250,
		Mode:       "ftp",
	}
	line := string(r.Encode())
	assert.Contains(t, line, "mirror1")
	assert.Contains(t, line, "ftp")
	assert.Contains(t, line, "|dat.txt|400|7|fa")
}
