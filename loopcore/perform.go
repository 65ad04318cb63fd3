package loopcore

// PerformVector runs one audio vector through the core: drain pending
// control commands, then advance the per-sample loop. in/out are
// per-channel sample slices (in[ch][i]), all the same length; speed is
// the varispeed control signal, one value per sample; sync, if non-nil,
// receives the normalized loop phase.
//
// This is the only audio-thread entry point. It never allocates, never
// blocks longer than a single TryLock attempt, and degrades to silence
// on buffer contention.
func (e *Engine) PerformVector(in [][]float32, speed []float64, out [][]float32, sync []float32) {
	var pending [commandRingCapacity]Command
	cmds := e.ring.drainInto(pending[:0])
	for _, c := range cmds {
		e.applyCommand(c)
	}
	if e.pending != Idle {
		e.dispatchPending()
	}

	n := 0
	if len(speed) > 0 {
		n = len(speed)
	}

	if e.buf == nil || e.frames == 0 {
		zero(out, n)
		return
	}
	if !e.buf.TryLock() {
		zero(out, n)
		return
	}
	defer e.buf.Unlock()

	for i := 0; i < n; i++ {
		e.stepSample(in, i, speed[i], out, sync)
	}
	e.advanceOverdub(n)
}

func zero(out [][]float32, n int) {
	for ch := range out {
		for i := 0; i < n && i < len(out[ch]); i++ {
			out[ch][i] = 0
		}
	}
}

// dispatchPending applies the one-shot ControlState transition recorded
// by Commands, then resets it to Idle.
func (e *Engine) dispatchPending() {
	cs := e.pending
	e.pending = Idle

	if cs == RecInitial {
		e.maxHead = 0
		e.recordHead = -1
		e.loop.DirectionOrig = 0
		e.everRecorded = true
	}
	e.sm.dispatch(cs)

	e.maybeCompleteFadesNow()
}

// maybeCompleteFadesNow runs the fade-completion dispatch immediately
// when the global ramp is zero-length: the per-sample advance in
// readAndEmit/writeSample never fires its completion branch in that case
// (its guard is `counter < globalRamp`, which is never true starting
// from 0), so anything that arms a fade flag must also call this right
// away. Called from dispatchPending (ControlState-driven arms) and from
// performInitialLoopStep (the natural end-of-buffer arm, which sets
// recordEndMark directly mid-vector rather than through a ControlState).
func (e *Engine) maybeCompleteFadesNow() {
	if e.sm.fade.GlobalRamp > 0 {
		return
	}
	if e.sm.fade.PlayFlag != 0 {
		e.sm.playFadeComplete()
	}
	if e.sm.fade.RecordFlag != 0 {
		e.sm.recordFadeComplete(e.freezeLoopFromMaxHead)
	}
}

func (e *Engine) freezeLoopFromMaxHead() {
	e.loop.MaxLoop = resolveInitialLoop(e.maxHead, e.frames, e.loop.DirectionOrig)
	e.applyWindow()
}

// stepSample runs the per-sample loop: direction-change and record-edge
// declicking, head advance and boundary handling, interpolated read and
// play-fade, write, in that order.
func (e *Engine) stepSample(in [][]float32, i int, speed float64, out [][]float32, sync []float32) {
	dir := signOf(speed)

	// Step 1: direction change during recording stamps a fade-out and
	// resets the write-interpolator head.
	if dir != e.dirPrev && e.sm.record {
		easeBufoff(e.buf, e.recordHead, -dir, e.sm.fade.GlobalRamp, e.frames)
		e.sm.fade.RecordFade = 0
		e.recordHead = -1
		e.sm.fade.SnrFade = 0
	}

	// Step 2: record rising/falling edges.
	if e.sm.record && !e.sm.recordPrev {
		e.sm.fade.RecordFade = 0
		e.sm.fade.PlayFade = 0
		easeBufoff(e.buf, e.head.Integer, -dir, e.sm.fade.GlobalRamp, e.frames)
	} else if !e.sm.record && e.sm.recordPrev {
		easeBufoff(e.buf, e.recordHead, dir, e.sm.fade.GlobalRamp, e.frames)
		e.recordHead = -1
	}
	e.sm.recordPrev = e.sm.record

	// Step 3 / Step 7: head advance and boundary handling.
	if !e.sm.loopDetermine && e.sm.goFlag {
		switch {
		case e.sm.trigInit && e.sm.geometryPending:
			e.performGeometryFinalize(dir)
		case e.sm.trigInit:
			e.performWindowTrigger(dir)
		default:
			e.advanceHead(speed, dir)
		}
	} else if e.sm.loopDetermine {
		e.performInitialLoopStep(speed, dir)
	}

	// Step 4/5: read, declick, play-fade, emit.
	e.readAndEmit(dir, i, out, sync)

	// Step 6: write.
	if e.sm.record {
		e.writeSample(in, i, dir)
	}

	e.dirPrev = dir
}

func (e *Engine) srScale() float64 {
	if e.sampleRate <= 0 {
		return 1
	}
	if e.systemRate <= 0 {
		return 1
	}
	return e.systemRate / e.sampleRate
}

// performGeometryFinalize is step 3a: the initial-loop capture has just
// ended (or an append/overdub cycle has just finished), so the loop's
// outer bounds are fixed and the inner window is (re)computed from
// scratch.
func (e *Engine) performGeometryFinalize(dir direction) {
	start, end, wrap := resolveWindow(&e.loop, e.windowPos, e.windowSize, e.loop.DirectionOrig, e.frames)
	e.loop.StartLoop, e.loop.EndLoop, e.loop.Wrap = start, end, wrap

	oldHead := e.maxHead
	e.head.Accurate = float64(start)
	e.head.sync()

	easeBufon(e.buf, oldHead, start, dir, e.sm.fade.GlobalRamp, e.frames)
	easeBufoff(e.buf, oldHead, -dir, e.sm.fade.GlobalRamp, e.frames)

	e.sm.trigInit = false
	e.sm.geometryPending = false
	e.sm.fade.SnrFade = 0
}

// performWindowTrigger is step 3b: a simple re-entry into the loop window
// (window/position change, append arm, or a jump), without a freshly
// finalized outer loop.
func (e *Engine) performWindowTrigger(dir direction) {
	start, end, wrap := resolveWindow(&e.loop, e.windowPos, e.windowSize, e.loop.DirectionOrig, e.frames)
	e.loop.StartLoop, e.loop.EndLoop, e.loop.Wrap = start, end, wrap

	var newHead int64
	switch {
	case e.sm.jumpFlag:
		newHead = e.loop.MinLoop + int64(e.jumpHead*float64(e.loop.Size()))
		e.sm.jumpFlag = false
	case dir < 0:
		newHead = e.loop.EndLoop
	default:
		newHead = e.loop.StartLoop
	}

	oldHead := e.head.Integer
	e.head.Accurate = float64(newHead)
	e.head.sync()

	easeBufon(e.buf, oldHead, newHead, dir, e.sm.fade.GlobalRamp, e.frames)
	e.sm.trigInit = false
	e.sm.fade.SnrFade = 0
}

// advanceHead is step 3c: ordinary per-sample head advance plus boundary
// arithmetic.
func (e *Engine) advanceHead(speed float64, dir direction) {
	adj := speed
	if e.sm.record {
		maxStep := float64(e.loop.Size()) / 1024
		if maxStep > 0 {
			if adj > maxStep {
				adj = maxStep
			}
			if adj < -maxStep {
				adj = -maxStep
			}
		}
	}
	e.head.Accurate += adj * e.srScale()
	e.applyBoundary(dir)
	e.head.sync()
}

// applyBoundary implements the loop-boundary arithmetic, dispatched on
// (direction_orig, wrap). The forward-wrap/reverse-travel branch keeps
// an assignment that looks wrong by inspection — confirmed intentional
// by cross-reference; see DESIGN.md.
func (e *Engine) applyBoundary(dir direction) {
	l := &e.loop
	switch {
	case l.DirectionOrig >= 0 && !l.Wrap:
		if e.head.Accurate > float64(l.EndLoop) || e.head.Accurate < float64(l.StartLoop) {
			if dir >= 0 {
				e.head.Accurate = float64(l.StartLoop)
			} else {
				e.head.Accurate = float64(l.EndLoop)
			}
		}

	case l.DirectionOrig >= 0 && l.Wrap:
		if e.head.Accurate > float64(l.EndLoop) && e.head.Accurate < float64(l.StartLoop) {
			if dir >= 0 {
				e.head.Accurate = float64(l.StartLoop)
			} else {
				e.head.Accurate = float64(l.EndLoop)
			}
		} else if e.head.Accurate > float64(l.MaxLoop) {
			e.head.Accurate = e.head.Accurate - float64(l.Size())
		} else if e.head.Accurate < 0 {
			// As written in the source this adds size rather than
			// subtracting minLoop; confirmed against
			// kh_process_forward_wrap_boundary, not a transcription slip.
			e.head.Accurate = float64(l.MaxLoop) + float64(l.Size())
		}

	case l.DirectionOrig < 0 && !l.Wrap:
		if e.head.Accurate > float64(l.EndLoop) || e.head.Accurate < float64(l.StartLoop) {
			if dir >= 0 {
				e.head.Accurate = float64(l.StartLoop)
			} else {
				e.head.Accurate = float64(l.EndLoop)
			}
		}

	default: // reverse, wrap
		if e.head.Accurate > float64(l.EndLoop) && e.head.Accurate < float64(l.StartLoop) {
			if dir >= 0 {
				e.head.Accurate = float64(l.StartLoop)
			} else {
				e.head.Accurate = float64(l.EndLoop)
			}
		} else if e.head.Accurate < float64(e.frames-1-l.MaxLoop) {
			e.head.Accurate = float64(e.frames-1) - float64(l.Size())
		} else if e.head.Accurate > float64(e.frames-1) {
			e.head.Accurate = float64(e.frames-1-l.MaxLoop) - float64(l.Size())
		}
	}

	if e.head.Accurate < 0 {
		e.head.Accurate = 0
	}
	if e.head.Accurate > float64(e.frames-1) {
		e.head.Accurate = float64(e.frames - 1)
	}
}

// performInitialLoopStep is the initial-loop-mode head advance of step 7:
// the loop's outer bounds are still growing, so boundary handling just
// means "have we hit the end of the buffer" (or, for append, "wrap via
// max_head instead of terminating").
func (e *Engine) performInitialLoopStep(speed float64, dir direction) {
	if e.loop.DirectionOrig == 0 && dir != 0 {
		e.loop.DirectionOrig = dir
	}

	e.head.Accurate += speed * e.srScale()
	if e.head.Accurate < 0 {
		e.head.Accurate = 0
	}
	if e.head.Accurate > float64(e.frames-1) {
		e.head.Accurate = float64(e.frames - 1)
	}
	e.head.sync()

	if e.loop.DirectionOrig >= 0 {
		if e.head.Integer > e.maxHead {
			e.maxHead = e.head.Integer
		}
	} else if e.head.Integer < e.maxHead {
		e.maxHead = e.head.Integer
	}

	atEnd := e.head.Accurate >= float64(e.frames-1) || e.head.Accurate <= 0
	if !atEnd {
		return
	}

	if e.sm.alternateFlag && e.sm.record {
		if e.loop.DirectionOrig >= 0 {
			e.head.Accurate = float64(e.maxHead)
		} else {
			e.head.Accurate = float64(e.frames - 1 - e.maxHead)
		}
		e.head.sync()
		return
	}

	e.sm.trigInit = true
	e.sm.recordEndMark = 1
	e.sm.fade.RecordFlag = 1
	e.maybeCompleteFadesNow()
}

// readAndEmit is steps 4 and 5: interpolated read with switch-ramp
// declick and play-fade shaping, then emission of output and sync phase.
func (e *Engine) readAndEmit(dir direction, i int, out [][]float32, sync []float32) {
	kind := e.interp
	if e.sm.record {
		kind = InterpLinear
	}

	ns := neighbors(e.head.Integer, dir, e.loop.MaxLoop, e.frames)
	f := e.head.Accurate - float64(e.head.Integer)

	onset := e.sm.fade.SnrFade == 0

	for ch := range out {
		raw := interpolate(kind, f, e.buf.At(int(ns.w), ch), e.buf.At(int(ns.x), ch), e.buf.At(int(ns.y), ch), e.buf.At(int(ns.z), ch))

		env := &e.env[ch]
		if onset {
			env.oDif = float64(env.oPrev) - float64(raw)
		}
		if e.sm.fade.SnrFade < 1 {
			corr := easeSwitchramp(env.oDif, e.sm.fade.SnrFade, e.sm.fade.SnrCurve)
			raw += float32(corr)
		}

		shaped := easeRecord(raw, e.sm.fade.PlayFlag, e.sm.fade.GlobalRamp, e.sm.fade.PlayFade)
		env.oPrev = shaped
		if i < len(out[ch]) {
			out[ch][i] = shaped
		}
	}

	if e.sm.fade.SnrRamp > 0 && e.sm.fade.SnrFade < 1 {
		e.sm.fade.SnrFade += 1 / float64(e.sm.fade.SnrRamp)
		if e.sm.fade.SnrFade > 1 {
			e.sm.fade.SnrFade = 1
		}
	} else if e.sm.fade.SnrRamp <= 0 {
		e.sm.fade.SnrFade = 1
	}

	if e.sm.fade.PlayFade < e.sm.fade.GlobalRamp {
		e.sm.fade.PlayFade++
		if e.sm.fade.PlayFade >= e.sm.fade.GlobalRamp {
			e.sm.playFadeComplete()
		}
	}

	if sync != nil && i < len(sync) {
		size := e.loop.Size()
		if size > 0 {
			sync[i] = float32((e.head.Accurate - float64(e.loop.StartLoop)) / float64(size))
		}
	}
}

// writeSample is step 6: shape the input by the record fade, sum the
// overdub contribution from the pre-write buffer sample, and commit
// through iPoke.
func (e *Engine) writeSample(in [][]float32, i int, dir direction) {
	oldHead := e.recordHead

	for ch := range e.env {
		var recin float32
		if ch < len(in) && i < len(in[ch]) {
			recin = in[ch][i]
		}
		recin = shapeRecordInput(recin, &e.sm.fade)
		existing := e.buf.At(int(e.head.Integer), ch)
		recin = applyOverdub(recin, existing, e.overdubAmp)

		if e.sm.loopDetermine {
			ipokeWriteInitial(&e.env[ch], e.buf, ch, oldHead, e.head.Integer, recin, dir, e.loop.DirectionOrig, e.maxHead, e.frames)
		} else {
			ipokeWrite(&e.env[ch], e.buf, ch, oldHead, e.head.Integer, recin, dir, e.frames)
		}
	}
	e.recordHead = e.head.Integer

	if e.sm.fade.RecordFade < e.sm.fade.GlobalRamp {
		e.sm.fade.RecordFade++
		if e.sm.fade.RecordFade >= e.sm.fade.GlobalRamp {
			e.sm.recordFadeComplete(e.freezeLoopFromMaxHead)
		}
	}
}

// advanceOverdub is step 8: once per vector, move overdubPrev 1/32 of the
// remaining distance toward the user-set overdubAmp. writeSample sums the
// overdub with overdubAmp itself and does not read overdubPrev, so a
// change of overdub amount takes effect in one step.
func (e *Engine) advanceOverdub(vectorSamples int) {
	if e.overdubPrev == e.overdubAmp {
		return
	}
	const steps = 32
	delta := (e.overdubAmp - e.overdubPrev) / steps
	e.overdubPrev += delta
	if (delta > 0 && e.overdubPrev > e.overdubAmp) || (delta < 0 && e.overdubPrev < e.overdubAmp) {
		e.overdubPrev = e.overdubAmp
	}
}
