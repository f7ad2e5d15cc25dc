package afderr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransientClassification(t *testing.T) {
	assert.True(t, KindConnect.Transient())
	assert.True(t, KindTimeout.Transient())
	assert.False(t, KindDuplicateFile.Transient())
	assert.False(t, KindSignalKilled.Transient())
}

func TestErrorWrapsAndUnwraps(t *testing.T) {
	underlying := errors.New("connection reset")
	err := New(KindConnect, underlying)

	require.ErrorIs(t, err, underlying)

	kind, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindConnect, kind)
	assert.Contains(t, err.Error(), "ConnectError")
}

func TestAsFailsForPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}
