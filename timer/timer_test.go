package timer

import (
	"testing"

	"github.com/hsipos/tortkernel/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInactiveTimerIsIgnored(t *testing.T) {
	var d Descriptor
	_, _, expired := d.Tick()
	assert.False(t, expired)
}

func TestTimerPostsAfterNTicks(t *testing.T) {
	// P6: a timer set to N ticks posts its event after between N-1 and N
	// tick intervals. Set(3) then Tick() three times expires on the third.
	d := Descriptor{OwnerTaskID: 2, Mask: 0x02}
	d.Set(3)

	_, _, e1 := d.Tick()
	require.False(t, e1)
	_, _, e2 := d.Tick()
	require.False(t, e2)
	owner, mask, e3 := d.Tick()
	require.True(t, e3)
	assert.Equal(t, 2, owner)
	assert.Equal(t, event.Mask(0x02), mask)
}

func TestSetZeroDeactivates(t *testing.T) {
	d := Descriptor{OwnerTaskID: 1, Mask: 0x01}
	d.Set(3)
	d.Set(0)
	_, _, expired := d.Tick()
	assert.False(t, expired)
}

func TestTimerIsOneShot(t *testing.T) {
	d := Descriptor{OwnerTaskID: 1, Mask: 0x01}
	d.Set(1)
	_, _, expired := d.Tick()
	require.True(t, expired)
	_, _, expiredAgain := d.Tick()
	assert.False(t, expiredAgain)
}
