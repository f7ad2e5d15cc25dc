package scanner

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDirNameMatchesDeleteLogConvention(t *testing.T) {
	got := poolDirName(time.Unix(0x426f44b4, 0), 0x23ed0, 0)
	assert.Equal(t, "426f44b4_23ed0_0", got)
}

func TestCreatePoolDirAvoidsCollision(t *testing.T) {
	root := t.TempDir()
	now := time.Unix(1000, 0)

	first, err := createPoolDir(root, now, 7)
	require.NoError(t, err)

	second, err := createPoolDir(root, now, 7)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	_, err = os.Stat(first)
	assert.NoError(t, err)
	_, err = os.Stat(second)
	assert.NoError(t, err)
}
