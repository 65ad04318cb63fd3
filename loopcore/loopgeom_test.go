package loopcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestToPhaseDefaults(t *testing.T) {
	low, high := toPhase(nil, nil, UnitsPhase, 100, 44100)
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 1.0, high)
}

func TestUnitToPhaseSamples(t *testing.T) {
	assert.InDelta(t, 0.5, unitToPhase(50, UnitsSamples, 101, 44100), 1e-9)
}

func TestUnitToPhaseMilliseconds(t *testing.T) {
	// 500ms at 44100Hz into a 44101-frame buffer -> phase 0.5.
	assert.InDelta(t, 0.5, unitToPhase(500, UnitsMilliseconds, 44101, 44100), 1e-6)
}

func TestUnitToPhasePassthrough(t *testing.T) {
	assert.Equal(t, 0.3, unitToPhase(0.3, UnitsPhase, 100, 44100))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}

func TestNormalizeLoopSwapsOutOfOrderEndpoints(t *testing.T) {
	lo, hi, ok := normalizeLoop(0.8, 0.2, 0.01)
	assert.True(t, ok)
	assert.Less(t, lo, hi)
}

func TestNormalizeLoopRejectsExactZeroSpan(t *testing.T) {
	_, _, ok := normalizeLoop(0.5, 0.5, 0.01)
	assert.False(t, ok)
}

func TestNormalizeLoopWidensNarrowSpan(t *testing.T) {
	lo, hi, ok := normalizeLoop(0.5, 0.501, 0.01)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, hi-lo, 0.01-1e-9)
}

func TestNormalizeLoopPropertyAlwaysOrderedAndInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		low := rapid.Float64Range(0, 1).Draw(rt, "low")
		high := rapid.Float64Range(0, 1).Draw(rt, "high")
		bvs := rapid.Float64Range(0, 0.2).Draw(rt, "bvs")
		lo, hi, ok := normalizeLoop(low, high, bvs)
		if !ok {
			return
		}
		assert.LessOrEqual(rt, lo, hi)
		assert.GreaterOrEqual(rt, lo, -1e-9)
		assert.LessOrEqual(rt, hi, 1+1e-9)
	})
}

func TestResolveInitialLoopEnforcesMinimum(t *testing.T) {
	assert.Equal(t, int64(minLoopFrames), resolveInitialLoop(10, 1<<20, 1))
}

func TestResolveInitialLoopClampsToFrames(t *testing.T) {
	assert.Equal(t, int64(999), resolveInitialLoop(1<<20, 1000, 1))
}

func TestResolveInitialLoopReverseReflects(t *testing.T) {
	// maxHead close to frames-1 leaves a tiny reflected span, clamped up
	// to the hard minimum.
	v := resolveInitialLoop(4990, 5000, -1)
	assert.Equal(t, int64(minLoopFrames), v)
}

func TestResolveWindowForwardNoWrap(t *testing.T) {
	region := LoopRegion{MinLoop: 0, MaxLoop: 99}
	start, end, wrap := resolveWindow(&region, 0, 0.5, 1, 100)
	assert.Equal(t, int64(0), start)
	assert.False(t, wrap)
	assert.Less(t, start, end)
}

func TestResolveWindowForwardWrapsPastMaxLoop(t *testing.T) {
	region := LoopRegion{MinLoop: 0, MaxLoop: 99}
	_, _, wrap := resolveWindow(&region, 0.9, 0.5, 1, 100)
	assert.True(t, wrap)
}
