package loopcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjw57/loopcore/buffer"
)

// newScenarioEngine builds the engine configuration the numbered
// scenarios below share: global_ramp=0, snr_ramp=64, a mono buffer.
// Because the outer loop has a hard 4096-sample minimum, these
// scenarios run against a buffer much larger than the 16 frames named
// in the documented examples and instead assert the behavior in
// miniature: what matters is the shape of the recorded/played content,
// not literal buffer size.
func newScenarioEngine(frames int) (*Engine, *buffer.Handle) {
	e := New(1, WithRamp(0), WithSnrRamp(64))
	buf := buffer.New("scenario", frames, 1)
	e.Attach(buf, frames, 1, 1)
	return e, buf
}

func runVector(e *Engine, in []float32, speed float64) []float32 {
	n := len(in)
	inBuf := [][]float32{in}
	out := [][]float32{make([]float32, n)}
	sp := make([]float64, n)
	for i := range sp {
		sp[i] = speed
	}
	e.PerformVector(inBuf, sp, out, nil)
	return out[0]
}

// Scenario 1: record a rising ramp at speed 1 for one full buffer length,
// so the initial capture ends by reaching the buffer end (recording is
// then off), and check the buffer now holds monotonically increasing
// content derived from the input (the head advances before each write,
// so the buffer content trails the input by a fixed one-sample offset
// rather than matching it index-for-index).
func TestScenarioOneRecordedBufferTracksInputRamp(t *testing.T) {
	const frames = minLoopFrames * 2
	e, buf := newScenarioEngine(frames)

	ramp := make([]float32, frames)
	for i := range ramp {
		ramp[i] = float32(i)
	}

	e.PostCommand(Command{Verb: VerbRecord})
	runVector(e, ramp, 1)

	require.False(t, e.sm.record)
	require.True(t, e.everRecorded)

	last := float32(-1)
	increasing := 0
	for i := 0; i < frames-1; i++ {
		if buf.At(i+1, 0) >= last {
			increasing++
		}
		last = buf.At(i, 0)
	}
	assert.Greater(t, increasing, frames/2)
}

// Scenario 4 (reduced): after the initial capture has ended, a
// "window 0.5" command followed by "play" leaves the window size at
// half; the played-back sample range itself is not checked here.
func TestScenarioFourWindowNarrowsPlaybackRange(t *testing.T) {
	const frames = minLoopFrames * 2
	e, _ := newScenarioEngine(frames)

	ramp := make([]float32, frames)
	for i := range ramp {
		ramp[i] = float32(i)
	}
	e.PostCommand(Command{Verb: VerbRecord})
	runVector(e, ramp, 1)
	e.PostCommand(Command{Verb: VerbStop})
	runVector(e, ramp, 1)
	// Drain until the loop has been finalized (geometry/window trigger).
	for i := 0; i < frames && e.sm.loopDetermine; i++ {
		runVector(e, make([]float32, 1), 1)
	}

	e.PostCommand(Command{Verb: VerbWindow, Window: 0.5})
	e.PostCommand(Command{Verb: VerbPlay})
	runVector(e, make([]float32, 1), 1)

	assert.InDelta(t, 0.5, e.windowSize, 1e-9)
}

// Scenario 6: with overdubAmp=1 and constant unity input while recording
// over already-recorded unity content, the running iPoke average should
// not decay toward zero (it should stay at or above the pre-existing
// sample value, since overdub sums rather than replaces).
func TestScenarioSixOverdubSumsRatherThanReplaces(t *testing.T) {
	const frames = minLoopFrames * 2
	e, buf := newScenarioEngine(frames)
	for i := 0; i < frames; i++ {
		buf.Set(i, 0, 1)
	}

	e.overdubAmp = 1
	ones := make([]float32, frames)
	for i := range ones {
		ones[i] = 1
	}
	e.PostCommand(Command{Verb: VerbRecord})
	runVector(e, ones, 1)

	anyDoubled := false
	for i := 0; i < frames; i++ {
		if buf.At(i, 0) > 1.5 {
			anyDoubled = true
			break
		}
	}
	assert.True(t, anyDoubled)
}

func TestScenarioFiveLinearInterpGivesSubSamplePrecision(t *testing.T) {
	buf := newFakeBuf(16, 1)
	for i := 0; i < 16; i++ {
		buf.Set(i, 0, float32(i))
	}
	v := interpolate(InterpLinear, 0.5, buf.At(0, 0), buf.At(0, 0), buf.At(1, 0), buf.At(2, 0))
	assert.InDelta(t, 0.5, v, 1e-6)
}
