// Package statusarea implements the FSA/FRA — a memory-mapped,
// byte-range-locked array of per-host counters and flags shared by
// AMG, FD, every transfer worker, and any future UI tool (spec §4.1).
//
// Grounded on dittofs's pkg/wal/mmap.go for the mmap'd-file-with-header
// shape (magic/version/generation, grow-and-remap) and on dittofs's
// test/e2e/framework/lock_helpers.go for POSIX byte-range locks via
// syscall.Flock_t/FcntlFlock, which is exactly spec §4.1's "advisory
// byte-range locks" (LOCK_CON/LOCK_EC/LOCK_HS/LOCK_FIU).
package statusarea

import "encoding/binary"

const (
	magic         = "AFDS"
	formatVersion = uint16(1)

	headerSize       = 64
	aliasLen         = 32
	fileNameInUseLen = 64
	maxJobSlots      = 8

	// jobSlotSize is the fixed on-disk size of one Job-Slot Status
	// record (spec §3 Job-Slot Status).
	jobSlotSize = 4 /*connect status*/ + 4 /*files to send*/ + 4 /*files done*/ +
		8 /*file size to send*/ + 8 /*file size done*/ +
		8 /*file size in use*/ + 8 /*file size in use done*/ +
		fileNameInUseLen + 4 /*job id in use*/ + 4 /*burst counter*/

	// hostRecordSize is the fixed on-disk size of one Host record.
	hostRecordSize = aliasLen + 4 /*active transfers, LOCK_CON*/ +
		4 /*error counter*/ + 8 /*2-slot error-history ring*/ + /* LOCK_EC above three */
		4 /*host status flags, LOCK_HS*/ +
		4 /*current toggle*/ +
		4 /*total file counter*/ + 8 /*total file size*/ +
		maxJobSlots*jobSlotSize
)

// Byte offsets within a host record, named after the spec's lock regions.
const (
	offAlias            = 0
	offActiveTransfers  = offAlias + aliasLen // LOCK_CON
	offErrorCounter     = offActiveTransfers + 4
	offErrorHistory     = offErrorCounter + 4
	offHostStatusFlags  = offErrorHistory + 8 // LOCK_HS
	offCurrentToggle    = offHostStatusFlags + 4
	offTotalFileCounter = offCurrentToggle + 4
	offTotalFileSize    = offTotalFileCounter + 4
	offJobSlots         = offTotalFileSize + 8
)

// lockCONRegion covers active_transfers for host index i.
func lockCONRegion(i int) (offset, length int64) {
	base := int64(headerSize + i*hostRecordSize)
	return base + offActiveTransfers, 4
}

// lockECRegion covers error_counter + error_history together, since
// spec §4.1 requires "multi-field atomic updates... under a composite lock".
func lockECRegion(i int) (offset, length int64) {
	base := int64(headerSize + i*hostRecordSize)
	return base + offErrorCounter, 12
}

// lockHSRegion covers the host-status flag word.
func lockHSRegion(i int) (offset, length int64) {
	base := int64(headerSize + i*hostRecordSize)
	return base + offHostStatusFlags, 4
}

// lockFIURegion covers one job slot's file-name-in-use and the fields
// that change together with it.
func lockFIURegion(i, slot int) (offset, length int64) {
	base := int64(headerSize + i*hostRecordSize + offJobSlots + slot*jobSlotSize)
	return base, jobSlotSize
}

func putUint32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }
func getUint32(b []byte, off int) uint32    { return binary.LittleEndian.Uint32(b[off : off+4]) }
func putUint64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:off+8], v) }
func getUint64(b []byte, off int) uint64    { return binary.LittleEndian.Uint64(b[off : off+8]) }
