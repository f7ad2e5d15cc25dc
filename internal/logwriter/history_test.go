package logwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryRecordsMaxSeverityPerHour(t *testing.T) {
	h := NewHistory()
	h.Record(100, SeverityInfo)
	h.Record(100, SeverityError)
	h.Record(100, SeverityWarn) // lower severity in same hour must not downgrade

	snap := h.Snapshot()
	assert.Equal(t, SeverityError, snap[historyBuckets-1])
}

func TestHistoryAdvancesAndWraps(t *testing.T) {
	h := NewHistory()
	h.Record(0, SeverityError)
	h.Record(1, SeverityInfo)

	snap := h.Snapshot()
	assert.Equal(t, SeverityError, snap[historyBuckets-2])
	assert.Equal(t, SeverityInfo, snap[historyBuckets-1])
}

func TestHistoryWrapsPastRingSize(t *testing.T) {
	h := NewHistory()
	for hour := int64(0); hour < historyBuckets+5; hour++ {
		h.Record(hour, SeverityInfo)
	}
	h.Record(int64(historyBuckets+5), SeverityFatal)

	snap := h.Snapshot()
	assert.Equal(t, SeverityFatal, snap[historyBuckets-1])
}
