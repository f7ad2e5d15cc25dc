package statusarea

// ConnectStatus mirrors spec §3 Job-Slot Status "connect-status".
type ConnectStatus uint32

const (
	Disconnect ConnectStatus = iota
	Connecting
	FTPActive
	FTPBurstActive
	Closing
	NotWorking
)

// JobSlot is the decoded form of one Job-Slot Status record (spec §3).
type JobSlot struct {
	ConnectStatus     ConnectStatus
	FilesToSend       uint32
	FilesDone         uint32
	FileSizeToSend    uint64
	FileSizeDone      uint64
	FileSizeInUse     uint64
	FileSizeInUseDone uint64
	FileNameInUse     string
	JobIDInUse        uint32
	BurstCounter      uint32
}

func decodeJobSlot(b []byte) JobSlot {
	off := 0
	js := JobSlot{}
	js.ConnectStatus = ConnectStatus(getUint32(b, off))
	off += 4
	js.FilesToSend = getUint32(b, off)
	off += 4
	js.FilesDone = getUint32(b, off)
	off += 4
	js.FileSizeToSend = getUint64(b, off)
	off += 8
	js.FileSizeDone = getUint64(b, off)
	off += 8
	js.FileSizeInUse = getUint64(b, off)
	off += 8
	js.FileSizeInUseDone = getUint64(b, off)
	off += 8
	js.FileNameInUse = cstring(b[off : off+fileNameInUseLen])
	off += fileNameInUseLen
	js.JobIDInUse = getUint32(b, off)
	off += 4
	js.BurstCounter = getUint32(b, off)
	return js
}

func encodeJobSlot(b []byte, js JobSlot) {
	off := 0
	putUint32(b, off, uint32(js.ConnectStatus))
	off += 4
	putUint32(b, off, js.FilesToSend)
	off += 4
	putUint32(b, off, js.FilesDone)
	off += 4
	putUint64(b, off, js.FileSizeToSend)
	off += 8
	putUint64(b, off, js.FileSizeDone)
	off += 8
	putUint64(b, off, js.FileSizeInUse)
	off += 8
	putUint64(b, off, js.FileSizeInUseDone)
	off += 8
	name := []byte(js.FileNameInUse)
	if len(name) > fileNameInUseLen {
		name = name[:fileNameInUseLen]
	}
	clear(b[off : off+fileNameInUseLen])
	copy(b[off:off+fileNameInUseLen], name)
	off += fileNameInUseLen
	putUint32(b, off, js.JobIDInUse)
	off += 4
	putUint32(b, off, js.BurstCounter)
}

func slotBytes(hostRecord []byte, slot int) []byte {
	off := offJobSlots + slot*jobSlotSize
	return hostRecord[off : off+jobSlotSize]
}

// ReadSlot returns a snapshot of job slot `slot` for host hostIdx,
// locked under LOCK_FIU so the caller sees a consistent record (spec
// §4.1: "readers take a read lock... whenever they must see two fields
// consistently").
func (a *Area) ReadSlot(hostIdx, slot int) (JobSlot, error) {
	var js JobSlot
	err := a.WithSlotLock(hostIdx, slot, func(rec []byte) error {
		js = decodeJobSlot(slotBytes(rec, slot))
		return nil
	})
	return js, err
}

// WriteSlot replaces job slot `slot`'s record atomically under LOCK_FIU.
// This is the only way a worker publishes its progress (spec §3
// Job-Slot Status: "Written by the worker; read by any observer;
// mutated under the byte-range lock covering that slot").
func (a *Area) WriteSlot(hostIdx, slot int, js JobSlot) error {
	return a.WithSlotLock(hostIdx, slot, func(rec []byte) error {
		encodeJobSlot(slotBytes(rec, slot), js)
		return nil
	})
}

// ClearSlot resets a slot to Disconnect, used when a worker exits
// (spec §3 invariant: "A Host's active_transfers equals the number of
// worker slots with connect-status ≠ disconnect").
func (a *Area) ClearSlot(hostIdx, slot int) error {
	return a.WriteSlot(hostIdx, slot, JobSlot{ConnectStatus: Disconnect})
}

// FindFileInUse scans every slot of hostIdx for fileName, returning the
// first slot index holding it and true, or false if none does. This is
// the duplicate-file guard primitive the worker checks before each
// upload (spec §4.4 "Duplicate-
// file guard"), grounded on backend/sftp/stringlock.go's per-ID
// serialization — here realized as a locked scan over LOCK_FIU regions
// instead of an in-process map, since the scope spans processes.
func (a *Area) FindFileInUse(hostIdx int, fileName string) (slot int, found bool, err error) {
	for s := 0; s < maxJobSlots; s++ {
		js, lockErr := a.ReadSlot(hostIdx, s)
		if lockErr != nil {
			return 0, false, lockErr
		}
		if js.ConnectStatus != Disconnect && js.FileNameInUse == fileName {
			return s, true, nil
		}
	}
	return 0, false, nil
}
