package loopcore

// LoopGeom translates between phase/sample/millisecond units and resolves
// the inner playback window within the outer recorded loop.

const minLoopFrames = 4096

// toPhase converts low/high in the given units into phase in [0,1],
// applying the default for an omitted endpoint (missing high -> 1.0,
// missing low -> 0.0).
func toPhase(low, high *float64, units Units, frames int, sampleRate float64) (lowPhase, highPhase float64) {
	lowPhase, highPhase = 0, 1
	if low != nil {
		lowPhase = unitToPhase(*low, units, frames, sampleRate)
	}
	if high != nil {
		highPhase = unitToPhase(*high, units, frames, sampleRate)
	}
	return
}

func unitToPhase(v float64, units Units, frames int, sampleRate float64) float64 {
	switch units {
	case UnitsSamples:
		if frames <= 1 {
			return 0
		}
		return v / float64(frames-1)
	case UnitsMilliseconds:
		if frames <= 1 || sampleRate <= 0 {
			return 0
		}
		return (v * sampleRate / 1000) / float64(frames-1)
	default: // UnitsPhase
		return v
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizeLoop sorts, clamps, and widens low/high phase so that
// high-low >= bvsNorm (one system vector normalized to buffer length).
// Returns ok=false when the span is exactly zero and cannot be widened.
func normalizeLoop(low, high, bvsNorm float64) (lo, hi float64, ok bool) {
	lo, hi = clamp01(low), clamp01(high)
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo, hi, false
	}
	if hi-lo >= bvsNorm {
		return lo, hi, true
	}
	mid := (lo + hi) / 2
	lo = clamp01(mid - bvsNorm/2)
	hi = clamp01(mid + bvsNorm/2)
	if hi-lo < bvsNorm {
		if lo == 0 {
			hi = clamp01(lo + bvsNorm)
		} else if hi == 1 {
			lo = clamp01(hi - bvsNorm)
		}
	}
	return lo, hi, true
}

// resolveWindow computes start/end/wrap for the inner playback window
// given position p and window size w (both phase in [0,1]) within
// [minLoop, maxLoop], honoring the forward/reverse coordinate systems.
func resolveWindow(region *LoopRegion, p, w float64, dirOrig direction, frames int64) (start, end int64, wrap bool) {
	size := region.Size()
	if dirOrig < 0 {
		start = (frames - 1 - size) + int64(p*float64(size))
		end = start - int64(w*float64(size))
		if end < frames-1-size {
			end = end + size + 1
			wrap = true
		}
		return
	}

	start = region.MinLoop + int64(p*float64(size))
	end = start + int64(w*float64(size))
	if end > region.MaxLoop {
		end = end - size - 1
		wrap = true
	} else {
		wrap = false
	}
	return
}

// resolveInitialLoop computes the final MaxLoop once the initial
// recording pass terminates, applying the hard 4096-sample minimum.
func resolveInitialLoop(maxHead int64, frames int64, dirOrig direction) int64 {
	var v int64
	if dirOrig < 0 {
		v = frames - 1 - maxHead
	} else {
		v = maxHead
	}
	if v < minLoopFrames {
		v = minLoopFrames
	}
	if v > frames-1 {
		v = frames - 1
	}
	return v
}
