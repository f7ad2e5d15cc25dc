package statusarea

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attachTemp(t *testing.T) *Area {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fsa.dat")
	a, err := Attach(path, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestEnsureHostAndLookup(t *testing.T) {
	a := attachTemp(t)

	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	got, err := a.LookupHost("mirror1")
	require.NoError(t, err)
	assert.Equal(t, idx, got)

	_, err = a.LookupHost("no-such-host")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureHostGrowsAndBumpsGeneration(t *testing.T) {
	a := attachTemp(t)
	gen0 := a.Generation()

	_, err := a.EnsureHost("mirror1")
	require.NoError(t, err)
	assert.NotEqual(t, gen0, a.Generation())
	assert.True(t, a.CheckStale(gen0))
	assert.False(t, a.CheckStale(a.Generation()))
}

func TestActiveTransfersIncrementAndClamp(t *testing.T) {
	a := attachTemp(t)
	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)

	v, err := a.IncrementActiveTransfers(idx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	v, err = a.IncrementActiveTransfers(idx, -5)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v, "active transfers never go negative")
}

func TestRecordErrorPushesHistoryRing(t *testing.T) {
	a := attachTemp(t)
	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)

	st, err := a.RecordError(idx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), st.Counter)
	assert.Equal(t, [2]uint32{7, 0}, st.History)

	st, err = a.RecordError(idx, 9)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), st.Counter)
	assert.Equal(t, [2]uint32{9, 7}, st.History, "two-slot FIFO of most recent error kinds")

	require.NoError(t, a.ClearErrors(idx))
	assert.Equal(t, uint32(0), a.ErrorCounter(idx))
}

func TestHostStatusFlagsSetAndClear(t *testing.T) {
	a := attachTemp(t)
	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)

	v, err := a.SetHostStatusFlags(idx, uint32(1<<2), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<2), v)

	v, err = a.SetHostStatusFlags(idx, 0, uint32(1<<2))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)
}

func TestWriteSlotAndFindFileInUse(t *testing.T) {
	a := attachTemp(t)
	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)

	require.NoError(t, a.WriteSlot(idx, 0, JobSlot{
		ConnectStatus: FTPActive,
		FileNameInUse: "dup.bin",
		JobIDInUse:    42,
	}))

	slot, found, err := a.FindFileInUse(idx, "dup.bin")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, slot)

	_, found, err = a.FindFileInUse(idx, "missing.bin")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, a.ClearSlot(idx, 0))
	js, err := a.ReadSlot(idx, 0)
	require.NoError(t, err)
	assert.Equal(t, Disconnect, js.ConnectStatus)
}

func TestSelfHealResetsInUseSizesAndReconciles(t *testing.T) {
	a := attachTemp(t)
	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)

	require.NoError(t, a.WriteSlot(idx, 0, JobSlot{
		ConnectStatus:     FTPActive,
		FileSizeInUse:     1000,
		FileSizeInUseDone: 400,
	}))

	require.NoError(t, a.SelfHeal(idx, 3, 9000))

	js, err := a.ReadSlot(idx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), js.FileSizeInUse)
	assert.Equal(t, uint64(0), js.FileSizeInUseDone)
}

func TestReattachSeesPersistedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fsa.dat")
	a, err := Attach(path, 4)
	require.NoError(t, err)
	idx, err := a.EnsureHost("mirror1")
	require.NoError(t, err)
	_, err = a.IncrementActiveTransfers(idx, 2)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := Attach(path, 4)
	require.NoError(t, err)
	defer b.Close()

	idx2, err := b.LookupHost("mirror1")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), b.ActiveTransfers(idx2))
}
