package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAllocatesSilentBuffer(t *testing.T) {
	h := New("loop", 8, 2)
	assert.Equal(t, "loop", h.Name())
	assert.Equal(t, 8, h.Frames())
	assert.Equal(t, 2, h.Channels())
	for f := 0; f < 8; f++ {
		for c := 0; c < 2; c++ {
			assert.Equal(t, float32(0), h.At(f, c))
		}
	}
}

func TestNilHandleIsInert(t *testing.T) {
	var h *Handle
	assert.Equal(t, "", h.Name())
	assert.Equal(t, 0, h.Frames())
	assert.Equal(t, 0, h.Channels())
	assert.False(t, h.TryLock())
	assert.NotPanics(t, func() { h.Unlock() })
}

func TestSetAndAtRoundTrip(t *testing.T) {
	h := New("t", 4, 2)
	h.Set(1, 0, 0.5)
	h.Set(1, 1, -0.5)
	assert.Equal(t, float32(0.5), h.At(1, 0))
	assert.Equal(t, float32(-0.5), h.At(1, 1))
	assert.Equal(t, float32(0), h.At(0, 0))
}

func TestDirtyTracksWritesAndClears(t *testing.T) {
	h := New("t", 4, 1)
	assert.False(t, h.Dirty())
	h.Set(0, 0, 1)
	assert.True(t, h.Dirty())
	h.ClearDirty()
	assert.False(t, h.Dirty())
}

func TestTryLockExcludesSecondLocker(t *testing.T) {
	h := New("t", 4, 1)
	require := assert.New(t)
	require.True(h.TryLock())
	require.False(h.TryLock())
	h.Unlock()
	require.True(h.TryLock())
	h.Unlock()
}

func TestResizePreservesExistingSamplesAndZeroFillsRest(t *testing.T) {
	h := New("t", 4, 1)
	for i := 0; i < 4; i++ {
		h.Set(i, 0, float32(i+1))
	}
	h.ClearDirty()

	h.Resize(8)
	assert.Equal(t, 8, h.Frames())
	assert.True(t, h.Dirty())
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(i+1), h.At(i, 0))
	}
	for i := 4; i < 8; i++ {
		assert.Equal(t, float32(0), h.At(i, 0))
	}
}

func TestResizeShrinkTruncatesTail(t *testing.T) {
	h := New("t", 8, 1)
	for i := 0; i < 8; i++ {
		h.Set(i, 0, float32(i))
	}
	h.Resize(3)
	assert.Equal(t, 3, h.Frames())
	for i := 0; i < 3; i++ {
		assert.Equal(t, float32(i), h.At(i, 0))
	}
}
