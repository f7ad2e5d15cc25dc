package statusarea

import (
	"fmt"
	"syscall"
)

// Region names the four lock scopes spec §4.1 defines.
type Region int

const (
	LockCON Region = iota // connect counter
	LockEC                // error counter + error history
	LockHS                // host status flags
	LockFIU               // file-in-use, per job slot
	// LockFIUAll locks every job slot on the host at once, used by
	// SelfHeal which must see a consistent view across all slots.
	LockFIUAll
)

// regionRange returns the byte range within the whole mmap'd file for
// the given region on hostIdx (and slot, for LockFIU).
func (a *Area) regionRange(hostIdx int, region Region, slot int) (offset, length int64) {
	switch region {
	case LockCON:
		return lockCONRegion(hostIdx)
	case LockEC:
		return lockECRegion(hostIdx)
	case LockHS:
		return lockHSRegion(hostIdx)
	case LockFIU:
		return lockFIURegion(hostIdx, slot)
	case LockFIUAll:
		base := int64(headerSize + hostIdx*hostRecordSize + offJobSlots)
		return base, int64(maxJobSlots * jobSlotSize)
	default:
		return 0, 0
	}
}

// lockRegion takes an advisory POSIX byte-range write lock, grounded on
// dittofs's test/e2e/framework/lock_helpers.go LockFileRange (fcntl
// F_SETLKW against a syscall.Flock_t). The OS reclaims this lock if the
// holding process crashes, matching spec §4.1's failure model.
func (a *Area) lockRegion(offset, length int64) error {
	flock := &syscall.Flock_t{
		Type:   syscall.F_WRLCK,
		Whence: 0, // SEEK_SET
		Start:  offset,
		Len:    length,
	}
	if err := syscall.FcntlFlock(a.file.Fd(), syscall.F_SETLKW, flock); err != nil {
		return fmt.Errorf("statusarea: lock [%d:%d]: %w", offset, length, err)
	}
	return nil
}

func (a *Area) unlockRegion(offset, length int64) error {
	flock := &syscall.Flock_t{
		Type:   syscall.F_UNLCK,
		Whence: 0,
		Start:  offset,
		Len:    length,
	}
	if err := syscall.FcntlFlock(a.file.Fd(), syscall.F_SETLK, flock); err != nil {
		return fmt.Errorf("statusarea: unlock [%d:%d]: %w", offset, length, err)
	}
	return nil
}

// WithHostLock runs fn with the given region of hostIdx's record locked,
// passing fn the host's full record slice (fn must only touch bytes
// within the locked region; narrower accessors below enforce this for
// the common cases).
func (a *Area) WithHostLock(hostIdx int, region Region, fn func(hostRecord []byte) error) error {
	return a.withHostLockSlot(hostIdx, region, 0, fn)
}

// WithSlotLock runs fn with a single job slot's LOCK_FIU region locked.
func (a *Area) WithSlotLock(hostIdx, slot int, fn func(hostRecord []byte) error) error {
	return a.withHostLockSlot(hostIdx, LockFIU, slot, fn)
}

func (a *Area) withHostLockSlot(hostIdx int, region Region, slot int, fn func([]byte) error) error {
	a.mu.RLock()
	offset, length := a.regionRange(hostIdx, region, slot)
	data := a.data
	a.mu.RUnlock()

	if err := a.lockRegion(offset, length); err != nil {
		return err
	}
	defer func() { _ = a.unlockRegion(offset, length) }()

	base := headerSize + hostIdx*hostRecordSize
	return fn(data[base : base+hostRecordSize])
}

// IncrementActiveTransfers adjusts active_transfers by delta under LOCK_CON.
func (a *Area) IncrementActiveTransfers(hostIdx int, delta int32) (uint32, error) {
	var result uint32
	err := a.WithHostLock(hostIdx, LockCON, func(rec []byte) error {
		v := int32(getUint32(rec, offActiveTransfers)) + delta
		if v < 0 {
			v = 0
		}
		putUint32(rec, offActiveTransfers, uint32(v))
		result = uint32(v)
		return nil
	})
	return result, err
}

// ActiveTransfers reads active_transfers without taking a lock — a
// single-field read is lock-free per spec §5, protected instead by the
// generation check at the attach level.
func (a *Area) ActiveTransfers(hostIdx int) uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return getUint32(a.hostBytes(hostIdx), offActiveTransfers)
}

// ErrorState is the composite read/write under LOCK_EC.
type ErrorState struct {
	Counter uint32
	History [2]uint32
}

// RecordError bumps the error counter and pushes kind into the 2-slot
// error-history ring (spec §3 Host, §7 Error-history ring), atomically
// under LOCK_EC.
func (a *Area) RecordError(hostIdx int, kind uint32) (ErrorState, error) {
	var st ErrorState
	err := a.WithHostLock(hostIdx, LockEC, func(rec []byte) error {
		counter := getUint32(rec, offErrorCounter) + 1
		putUint32(rec, offErrorCounter, counter)
		h0 := getUint32(rec, offErrorHistory)
		putUint32(rec, offErrorHistory+4, h0)
		putUint32(rec, offErrorHistory, kind)
		st = ErrorState{Counter: counter, History: [2]uint32{kind, h0}}
		return nil
	})
	return st, err
}

// ClearErrors resets the error counter to zero under LOCK_EC, spec
// §4.4 on_worker_exit Success: "clear the host error-counter".
func (a *Area) ClearErrors(hostIdx int) error {
	return a.WithHostLock(hostIdx, LockEC, func(rec []byte) error {
		putUint32(rec, offErrorCounter, 0)
		return nil
	})
}

// SetHostStatusFlags ORs/ANDs the host-status flag word under LOCK_HS.
func (a *Area) SetHostStatusFlags(hostIdx int, set, clear uint32) (uint32, error) {
	var result uint32
	err := a.WithHostLock(hostIdx, LockHS, func(rec []byte) error {
		v := getUint32(rec, offHostStatusFlags)
		v = (v &^ clear) | set
		putUint32(rec, offHostStatusFlags, v)
		result = v
		return nil
	})
	return result, err
}

// HostStatusFlags reads the flag word lock-free (single-field read).
func (a *Area) HostStatusFlags(hostIdx int) uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return getUint32(a.hostBytes(hostIdx), offHostStatusFlags)
}

// ErrorCounter reads the error counter lock-free (single-field read),
// used by metrics collection which must not mutate state to observe it.
func (a *Area) ErrorCounter(hostIdx int) uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return getUint32(a.hostBytes(hostIdx), offErrorCounter)
}
