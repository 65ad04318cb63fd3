package loopcore

// The write interpolator ("iPoke") writes recin into buf at a floating
// record head shared across channels; only the per-channel running
// accumulator (envelope.writeVal/pokeSteps) differs between channels for
// a given sample. Callers own the shared record head: they pass its
// value in as oldHead and are responsible for advancing their own
// recordHead field to playhead once every channel for the sample has
// been committed (see perform.go).
//
// Two regimes, chosen by comparing playhead to oldHead:
//
//   - Same position (oldHead == playhead): accumulate writeVal += recin,
//     increment pokeSteps. The slot is only actually written with the
//     running average so that a read mid-accumulation still sees a
//     sane value.
//
//   - Different position: commit the averaged value to oldHead, then
//     linearly interpolate intermediate slots between oldHead and
//     playhead with slope (recin-committed)/span.
//
// oldHead == -1 means "no previous write": re-initialize in place.

// ipokeWrite is the steady-state (non-initial-loop) write.
func ipokeWrite(env *envelope, buf bufferWriter, ch int, oldHead, playhead int64, recin float32, dir direction, frames int64) {
	if oldHead == -1 {
		env.pokeSteps = 0
		env.writeVal = float64(recin)
		buf.Set(int(playhead), ch, recin)
		return
	}

	if playhead == oldHead {
		// pokeSteps 0 after a re-init still means one sample in writeVal.
		if env.pokeSteps == 0 {
			env.pokeSteps = 1
		}
		env.writeVal += float64(recin)
		env.pokeSteps++
		buf.Set(int(playhead), ch, float32(env.writeVal/float64(env.pokeSteps)))
		return
	}

	committed := averagedCommit(env)
	buf.Set(int(oldHead), ch, float32(committed))
	fillIntermediate(buf, ch, oldHead, playhead, committed, float64(recin), dir, frames)

	env.writeVal = float64(recin)
	env.pokeSteps = 1
	buf.Set(int(playhead), ch, recin)
}

// ipokeWriteInitial is the initial-loop variant: once the recording
// direction has reversed relative to directionOrig, the commit chooses
// between the short path (direct interpolation) and the long path
// (interpolate through the wrap point at maxHead / frames-1-maxHead),
// to preserve continuity across the seam a mid-recording reversal
// creates.
func ipokeWriteInitial(env *envelope, buf bufferWriter, ch int, oldHead, playhead int64, recin float32, dir, directionOrig direction, maxHead, frames int64) {
	if oldHead == -1 || dir == directionOrig || directionOrig == 0 {
		ipokeWrite(env, buf, ch, oldHead, playhead, recin, dir, frames)
		return
	}

	committed := averagedCommit(env)
	buf.Set(int(oldHead), ch, float32(committed))

	directSpan := abs64(playhead - oldHead)

	wrapPoint := maxHead
	if directionOrig < 0 {
		wrapPoint = frames - 1 - maxHead
	}
	longSpan := abs64((wrapPoint - oldHead) + (wrapPoint - playhead))

	if longSpan == 0 || directSpan <= longSpan/2 {
		fillIntermediate(buf, ch, oldHead, playhead, committed, float64(recin), dir, frames)
	} else {
		fillViaWrap(buf, ch, oldHead, playhead, committed, float64(recin), dir, wrapPoint, frames)
	}

	env.writeVal = float64(recin)
	env.pokeSteps = 1
	buf.Set(int(playhead), ch, recin)
}

func averagedCommit(env *envelope) float64 {
	if env.pokeSteps > 0 {
		return env.writeVal / float64(env.pokeSteps)
	}
	return env.writeVal
}

func fillIntermediate(buf bufferWriter, ch int, oldHead, playhead int64, committed, recin float64, dir direction, frames int64) {
	span := abs64(playhead - oldHead)
	if span <= 0 {
		return
	}
	step := int64(1)
	if dir < 0 {
		step = -1
	}
	slope := (recin - committed) / float64(span)
	p := oldHead + step
	for n := int64(1); n < span; n++ {
		buf.Set(int(wrapClampToFrames(p, frames)), ch, float32(committed+slope*float64(n)))
		p += step
	}
}

func fillViaWrap(buf bufferWriter, ch int, oldHead, playhead int64, committed, recin float64, dir direction, wrapPoint, frames int64) {
	step := int64(1)
	if dir < 0 {
		step = -1
	}
	firstLeg := abs64(wrapPoint - oldHead)
	secondLeg := abs64(wrapPoint - playhead)
	total := firstLeg + secondLeg
	if total <= 0 {
		return
	}
	slope := (recin - committed) / float64(total)

	p := oldHead + step
	n := int64(1)
	for ; n < firstLeg; n++ {
		buf.Set(int(wrapClampToFrames(p, frames)), ch, float32(committed+slope*float64(n)))
		p += step
	}
	p = wrapPoint
	for ; n < total; n++ {
		buf.Set(int(wrapClampToFrames(p, frames)), ch, float32(committed+slope*float64(n)))
		p += step
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func wrapClampToFrames(p int64, frames int64) int64 {
	if p < 0 {
		return 0
	}
	if p >= frames {
		return frames - 1
	}
	return p
}

// applyOverdub scales the existing buffer contribution by overdubAmp and
// sums it into recin, matching "recin <- recin + existing*overdubAmp".
func applyOverdub(recin float32, existing float32, overdubAmp float64) float32 {
	return recin + existing*float32(overdubAmp)
}

// shapeRecordInput applies easeRecord to recin when a record fade is
// active (recordFade < globalRamp), otherwise passes it through.
func shapeRecordInput(recin float32, fade *FadeState) float32 {
	if fade.RecordFade >= fade.GlobalRamp {
		return recin
	}
	return easeRecord(recin, fade.RecordFlag, fade.GlobalRamp, fade.RecordFade)
}
