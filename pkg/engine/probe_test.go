package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hdrtray/hdrcal/pkg/vcp"
)

func TestWaitUntilReadable(t *testing.T) {
	m := vcp.NewMock(map[vcp.Register]vcp.Value{vcp.Brightness: 50})
	m.Script(vcp.Brightness, vcp.ReadsNothing(), vcp.ReadsNothing(), vcp.ReadsNothing())
	clock := newFakeClock()

	ok := NewProber(m, clock).WaitUntilReadable(1, vcp.Brightness, 15*time.Second, 500*time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, 4, m.ReadCount(vcp.Brightness))
	assert.Equal(t, 3, clock.slept(500*time.Millisecond))
}

func TestWaitUntilReadableTimeout(t *testing.T) {
	m := vcp.NewMock(nil)
	clock := newFakeClock()
	start := clock.Now()

	ok := NewProber(m, clock).WaitUntilReadable(1, vcp.ColorPreset, 2*time.Second, 500*time.Millisecond)
	assert.False(t, ok)
	// Reads at 0, 0.5, 1, 1.5 and 2 seconds.
	assert.Equal(t, 5, m.ReadCount(vcp.ColorPreset))
	assert.Equal(t, 2*time.Second, clock.Now().Sub(start))
}
