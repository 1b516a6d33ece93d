package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	var tbl Table
	tbl.Acquire(0x05)
	require.Equal(t, Mask(0x05), tbl.Occupied())
	tbl.Release(0x05)
	require.Equal(t, Mask(0), tbl.Occupied())
}

func TestReleaseOnlyClearsItsOwnBits(t *testing.T) {
	var tbl Table
	tbl.Acquire(0x03)
	tbl.Release(0x01)
	assert.Equal(t, Mask(0x02), tbl.Occupied())
}

func TestBlocks(t *testing.T) {
	assert.True(t, Blocks(0x01, 0x01))
	assert.True(t, Blocks(0x03, 0x02))
	assert.False(t, Blocks(0x04, 0x02))
	assert.False(t, Blocks(0, 0xFF))
}

func TestNestedAcquiresDoNotClobberEachOther(t *testing.T) {
	var tbl Table
	tbl.Acquire(0x01) // R1
	tbl.Acquire(0x02) // R2
	require.Equal(t, Mask(0x03), tbl.Occupied())
	tbl.Release(0x02) // R2 first
	require.Equal(t, Mask(0x01), tbl.Occupied())
	tbl.Release(0x01) // R1 last
	require.Equal(t, Mask(0), tbl.Occupied())
}
