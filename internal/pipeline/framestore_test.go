package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emsysdev/accelspec/pkg/spatial"
)

func TestNewFrameStoreValidation(t *testing.T) {
	_, err := NewFrameStore(1, 1000)
	assert.Error(t, err)

	_, err = NewFrameStore(10, 0)
	assert.Error(t, err)
}

func TestFrameStoreWriteThenTake(t *testing.T) {
	const rate = 4
	fs, err := NewFrameStore(3, rate)
	require.NoError(t, err)

	for axis := spatial.Axis(0); axis < spatial.NumAxes; axis++ {
		for offset := 0; offset < rate; offset++ {
			fs.WriteSample(1, axis, offset, float64(int(axis)*10+offset))
		}
	}

	// Not ready yet: nothing to take.
	_, ok := fs.TryTake(1)
	assert.False(t, ok)

	overrun := fs.MarkReady(1)
	assert.False(t, overrun)
	assert.True(t, fs.Ready(1))

	frames, ok := fs.TryTake(1)
	require.True(t, ok)
	for axis := spatial.Axis(0); axis < spatial.NumAxes; axis++ {
		require.Len(t, frames[axis], rate)
		for offset := 0; offset < rate; offset++ {
			assert.Equal(t, float64(int(axis)*10+offset), frames[axis][offset])
		}
	}

	// The flag cleared with the take; a second take finds nothing.
	assert.False(t, fs.Ready(1))
	_, ok = fs.TryTake(1)
	assert.False(t, ok)
}

func TestFrameStoreOverrunPreservesReadyState(t *testing.T) {
	fs, err := NewFrameStore(2, 2)
	require.NoError(t, err)

	fs.WriteSample(0, spatial.AxisX, 0, 1)
	fs.WriteSample(0, spatial.AxisX, 1, 2)
	require.False(t, fs.MarkReady(0))

	// Producer wraps onto the slot before the consumer drained it.
	overrun := fs.MarkReady(0)
	assert.True(t, overrun)
	assert.True(t, fs.Ready(0), "old ready state must win")

	// The old frame is still there for the consumer.
	frames, ok := fs.TryTake(0)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, frames[spatial.AxisX])
}

func TestFrameStoreSlotsIndependent(t *testing.T) {
	fs, err := NewFrameStore(4, 2)
	require.NoError(t, err)

	require.False(t, fs.MarkReady(0))
	require.False(t, fs.MarkReady(2))

	assert.True(t, fs.Ready(0))
	assert.False(t, fs.Ready(1))
	assert.True(t, fs.Ready(2))
	assert.False(t, fs.Ready(3))

	_, ok := fs.TryTake(2)
	assert.True(t, ok)
	assert.True(t, fs.Ready(0))
}
