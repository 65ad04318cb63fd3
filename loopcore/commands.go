package loopcore

// Command is a pre-parsed control message; the host's control-message
// parsing is an external collaborator that translates "play",
// "setloop 0.1 0.4 phase", etc. into one of these before posting it
// through Engine.PostCommand.
type Command struct {
	Verb     Verb
	Position float64 // jump / position
	Window   float64 // window size
	Overdub  float64 // overdub amplitude
	Low      *float64
	High     *float64
	Units    Units
	BufName  string
}

type Verb int

const (
	VerbPlay Verb = iota
	VerbRecord
	VerbStop
	VerbAppend
	VerbJump
	VerbOverdub
	VerbPosition
	VerbWindow
	VerbSetLoop
	VerbResetLoop
	VerbSetBuffer
)

// applyCommand mutates engine state in response to one command. No audio
// side effects happen here; it only sets ControlState/flags/geometry that
// the next vector's Perform pass will act on.
func (e *Engine) applyCommand(c Command) {
	switch c.Verb {
	case VerbPlay:
		e.cmdPlay()
	case VerbRecord:
		e.cmdRecord()
	case VerbStop:
		e.cmdStop()
	case VerbAppend:
		e.cmdAppend()
	case VerbJump:
		e.cmdJump(c.Position)
	case VerbOverdub:
		e.overdubPrev = e.overdubAmp
		e.overdubAmp = clamp01(c.Overdub)
	case VerbPosition:
		e.windowPos = clamp01(c.Position)
		e.applyWindow()
	case VerbWindow:
		e.windowSize = clamp01(c.Window)
		e.applyWindow()
	case VerbSetLoop:
		e.cmdSetLoop(c.Low, c.High, c.Units)
	case VerbResetLoop:
		e.cmdResetLoop()
	case VerbSetBuffer:
		e.cmdSetBuffer(c.BufName, c.Low, c.High, c.Units)
	}
}

// cmdPlay transitions depend on current (go, record, append, alternate);
// it always arms goFlag for the next vector.
func (e *Engine) cmdPlay() {
	switch {
	case e.sm.record && e.sm.alternateFlag:
		e.pending = RecAlt
	case e.sm.record:
		e.pending = RecOff
	case e.sm.appendFlag:
		e.pending = Append
	default:
		e.pending = PlayOn
	}
	e.sm.goFlag = true
	e.stopAllowed = true
}

// cmdRecord toggles into RecInitial|RecAlt|RecOff|AppendSpecial|RecOn
// depending on the current state.
func (e *Engine) cmdRecord() {
	switch {
	case !e.everRecorded:
		e.pending = RecInitial
	case e.sm.loopDetermine:
		e.pending = AppendSpecial
	case !e.sm.record && e.sm.alternateFlag:
		e.pending = RecAlt
	case !e.sm.record:
		e.pending = RecOn
	default:
		e.pending = RecOff
	}
	e.stopAllowed = true
}

// cmdStop is honored once per stop, gated by stopAllowed, and chooses
// StopAlt vs StopReg by the alternate flag.
func (e *Engine) cmdStop() {
	if !e.stopAllowed {
		e.logWarn("stop denied: already stopped")
		return
	}
	e.stopAllowed = false
	if e.sm.alternateFlag {
		e.pending = StopAlt
	} else {
		e.pending = StopReg
	}
}

// cmdAppend is only honored when a loop already exists and initial-loop
// capture has finished.
func (e *Engine) cmdAppend() {
	if !e.hasLoop() || e.sm.loopDetermine {
		e.logWarn("append denied: no loop yet, or still in initial-loop capture")
		return
	}
	e.sm.appendFlag = true
	e.pending = Append
}

// cmdJump is denied during initial-loop capture, same as cmdAppend: the
// loop bounds aren't finalized yet, so there's no window to jump within.
func (e *Engine) cmdJump(pos float64) {
	if e.sm.loopDetermine {
		e.logWarn("jump denied: still in initial-loop capture")
		return
	}
	e.jumpHead = clamp01(pos)
	e.pending = Jump
}

func (e *Engine) applyWindow() {
	start, end, wrap := resolveWindow(&e.loop, e.windowPos, e.windowSize, e.loop.DirectionOrig, e.frames)
	e.loop.StartLoop = start
	e.loop.EndLoop = end
	e.loop.Wrap = wrap
}

func (e *Engine) cmdSetLoop(low, high *float64, units Units) {
	lp, hp := toPhase(low, high, units, int(e.frames), e.sampleRate)
	bvsNorm := e.bvsNorm()
	lo, hi, ok := normalizeLoop(lp, hp, bvsNorm)
	if !ok {
		e.logWarn("setloop denied: zero-length loop requested")
		return
	}
	e.loop.MinLoop = int64(lo * float64(e.frames-1))
	e.loop.MaxLoop = int64(hi * float64(e.frames-1))
	e.sm.loopDetermine = false
	e.applyWindow()
}

func (e *Engine) cmdResetLoop() {
	e.loop.MinLoop = e.initialMinLoop
	e.loop.MaxLoop = e.initialMaxLoop
	e.applyWindow()
}

func (e *Engine) cmdSetBuffer(name string, low, high *float64, units Units) {
	h := e.resolveBuffer(name)
	if h == nil {
		e.logWarn("set denied: unknown buffer " + name)
		return
	}
	e.buf = h
	e.frames = int64(h.Frames())
	e.channels = h.Channels()
	if low != nil || high != nil {
		e.cmdSetLoop(low, high, units)
	}
}

// bvsNorm is one system vector normalized to buffer length, the minimum
// span setloop will accept without widening.
func (e *Engine) bvsNorm() float64 {
	if e.frames <= 1 {
		return 0
	}
	return float64(e.vectorSize) / float64(e.frames-1)
}

func (e *Engine) hasLoop() bool {
	return e.loop.MaxLoop > e.loop.MinLoop
}
