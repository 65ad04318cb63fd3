package loopcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/rjw57/loopcore/buffer"
)

// TestPropertyHeadAndFadeInvariantsHold exercises PerformVector with a
// sequence of random commands and speeds, checking that the head stays
// in bounds, the fade counters stay within their ramp lengths, and the
// loop region stays ordered, after every vector.
func TestPropertyHeadAndFadeInvariantsHold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		frames := rapid.IntRange(4096, 8192).Draw(rt, "frames")
		e := New(1, WithRamp(rapid.IntRange(0, 64).Draw(rt, "ramp")), WithSnrRamp(rapid.IntRange(1, 64).Draw(rt, "snrramp")))
		buf := buffer.New("t", frames, 1)
		e.Attach(buf, 64, 44100, 44100)

		in := [][]float32{make([]float32, 64)}
		out := [][]float32{make([]float32, 64)}
		speed := make([]float64, 64)

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for s := 0; s < steps; s++ {
			choice := rapid.IntRange(0, 5).Draw(rt, "cmd")
			switch choice {
			case 0:
				e.PostCommand(Command{Verb: VerbRecord})
			case 1:
				e.PostCommand(Command{Verb: VerbPlay})
			case 2:
				e.PostCommand(Command{Verb: VerbStop})
			case 3:
				e.PostCommand(Command{Verb: VerbJump, Position: rapid.Float64Range(0, 1).Draw(rt, "jump")})
			case 4:
				e.PostCommand(Command{Verb: VerbOverdub, Overdub: rapid.Float64Range(0, 1).Draw(rt, "overdub")})
			}

			sp := rapid.Float64Range(-2, 2).Draw(rt, "speed")
			for i := range speed {
				speed[i] = sp
			}
			for i := range in[0] {
				in[0][i] = float32(rapid.Float64Range(-1, 1).Draw(rt, "sample"))
			}

			e.PerformVector(in, speed, out, nil)

			assert.GreaterOrEqual(rt, e.head.Accurate, 0.0)
			assert.LessOrEqual(rt, e.head.Accurate, float64(e.frames-1))
			assert.True(rt, e.recordHead == -1 || (e.recordHead >= 0 && e.recordHead < e.frames))
			assert.LessOrEqual(rt, e.sm.fade.PlayFade, e.sm.fade.GlobalRamp)
			assert.LessOrEqual(rt, e.sm.fade.RecordFade, e.sm.fade.GlobalRamp)
			assert.GreaterOrEqual(rt, e.sm.fade.SnrFade, 0.0)
			assert.LessOrEqual(rt, e.sm.fade.SnrFade, 1.0)

			if e.loop.Size() > 0 && !e.loop.Wrap {
				assert.GreaterOrEqual(rt, e.loop.StartLoop, e.loop.MinLoop)
				assert.LessOrEqual(rt, e.loop.EndLoop, e.loop.MaxLoop)
			}
		}
	})
}

func TestPropertyIdleEngineEmitsSilence(t *testing.T) {
	e := New(1)
	buf := buffer.New("t", 4096, 1)
	e.Attach(buf, 64, 44100, 44100)

	in := [][]float32{make([]float32, 64)}
	out := [][]float32{make([]float32, 64)}
	speed := make([]float64, 64)
	for i := range speed {
		speed[i] = 1
	}
	for i := range in[0] {
		in[0][i] = 1
	}

	e.PerformVector(in, speed, out, nil)
	for _, v := range out[0] {
		assert.Equal(t, float32(0), v)
	}
}

func TestPropertyNoBufferYieldsSilence(t *testing.T) {
	e := New(1)
	out := [][]float32{make([]float32, 8)}
	for i := range out[0] {
		out[0][i] = 99
	}
	speed := make([]float64, 8)
	in := [][]float32{make([]float32, 8)}
	e.PerformVector(in, speed, out, nil)
	for _, v := range out[0] {
		assert.Equal(t, float32(0), v)
	}
}

func TestPropertyLockContentionDegradesToSilence(t *testing.T) {
	e := New(1)
	buf := buffer.New("t", 4096, 1)
	e.Attach(buf, 64, 44100, 44100)
	buf.TryLock() // simulate an external holder
	defer buf.Unlock()

	out := [][]float32{make([]float32, 8)}
	for i := range out[0] {
		out[0][i] = 99
	}
	speed := make([]float64, 8)
	in := [][]float32{make([]float32, 8)}
	e.PerformVector(in, speed, out, nil)
	for _, v := range out[0] {
		assert.Equal(t, float32(0), v)
	}
}
