package loopcore

import (
	"sync"

	"github.com/rjw57/loopcore/buffer"
)

// commandRingCapacity bounds the mutex-guarded command ring. Sized
// generously for a few vectors' worth of control traffic; PostCommand
// drops the oldest pending command rather than blocking if the ring is
// ever full, since the audio thread may be running behind.
const commandRingCapacity = 64

// commandRing is a mutex-guarded fixed-size ring buffer. The control side
// can have multiple producers (host UI, scheduler), so a single atomic
// index pair is not enough; this mirrors a bounded transmit-queue
// (tq.go), which also guards a fixed slot array with a mutex for that
// reason. The audio-thread consumer never blocks: drain is a bounded,
// non-blocking sweep performed once at the start of each vector; if a
// producer holds the lock at that moment, the pending commands stay
// queued for the next vector.
type commandRing struct {
	mu    sync.Mutex
	slots [commandRingCapacity]Command
	head  int
	tail  int
	count int
}

func (r *commandRing) push(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == commandRingCapacity {
		// Drop oldest; advance head.
		r.head = (r.head + 1) % commandRingCapacity
		r.count--
	}
	r.slots[r.tail] = c
	r.tail = (r.tail + 1) % commandRingCapacity
	r.count++
}

func (r *commandRing) drainInto(dst []Command) []Command {
	if !r.mu.TryLock() {
		return dst
	}
	defer r.mu.Unlock()
	for r.count > 0 {
		dst = append(dst, r.slots[r.head])
		r.head = (r.head + 1) % commandRingCapacity
		r.count--
	}
	return dst
}

// Warner receives control-thread warnings. *charmbracelet/log.Logger
// satisfies this directly; nil is valid and discards warnings.
type Warner interface {
	Warn(msg interface{}, keyvals ...interface{})
}

// Engine is the per-instance, single-threaded real-time looper core. All
// exported mutation happens either through PostCommand (any goroutine,
// non-blocking) or PerformVector (the audio thread, called once per
// vector, never concurrently with itself).
type Engine struct {
	channels   int
	frames     int64
	vectorSize int
	sampleRate float64
	systemRate float64

	buf      *buffer.Handle
	registry map[string]*buffer.Handle

	head       PlaybackHead
	recordHead int64
	maxHead    int64
	loop       LoopRegion

	initialMinLoop, initialMaxLoop int64

	windowPos, windowSize float64
	jumpHead              float64

	overdubAmp, overdubPrev float64

	interp Interp

	sm      stateMachine
	pending ControlState

	stopAllowed  bool
	everRecorded bool
	dirPrev      direction

	env []envelope

	ring commandRing

	warner Warner
}

// Option configures Engine construction.
type Option func(*Engine)

// WithInterp sets the configured playback interpolator.
func WithInterp(i Interp) Option { return func(e *Engine) { e.interp = i } }

// WithRamp sets the global fade length in samples, clipped to [0,2048].
func WithRamp(samples int) Option {
	return func(e *Engine) {
		if samples < 0 {
			samples = 0
		}
		if samples > 2048 {
			samples = 2048
		}
		e.sm.fade.GlobalRamp = samples
	}
}

// WithSnrRamp sets the switch-and-ramp declick length in samples.
func WithSnrRamp(samples int) Option {
	return func(e *Engine) { e.sm.fade.SnrRamp = samples }
}

// WithSnrCurve sets the switch-ramp curve selector (0..6).
func WithSnrCurve(c SwitchRampCurve) Option {
	return func(e *Engine) { e.sm.fade.SnrCurve = c }
}

// WithWarner attaches a logger for control-thread warnings.
func WithWarner(w Warner) Option { return func(e *Engine) { e.warner = w } }

// New constructs an Engine with N audio channels (N in {1,2,4}).
func New(channels int, opts ...Option) *Engine {
	e := &Engine{
		channels:    channels,
		recordHead:  -1,
		windowSize:  1,
		stopAllowed: true,
		registry:    make(map[string]*buffer.Handle),
	}
	e.sm.fade.GlobalRamp = 0
	e.sm.fade.SnrRamp = 64
	for _, o := range opts {
		o(e)
	}
	return e
}

// RegisterBuffer makes a named buffer available to the "set bufname ..."
// command.
func (e *Engine) RegisterBuffer(name string, h *buffer.Handle) {
	e.registry[name] = h
}

func (e *Engine) resolveBuffer(name string) *buffer.Handle {
	return e.registry[name]
}

// Attach binds the engine to a buffer and records the vector/sample-rate
// geometry: playhead resets to 0, record_head to -1, and the loop region
// starts out spanning the full buffer.
func (e *Engine) Attach(buf *buffer.Handle, vectorSize int, sampleRate, systemRate float64) {
	e.buf = buf
	e.vectorSize = vectorSize
	e.sampleRate = sampleRate
	e.systemRate = systemRate
	e.frames = int64(buf.Frames())
	e.channels = buf.Channels()

	e.head = PlaybackHead{}
	e.recordHead = -1
	e.maxHead = 0
	e.loop = LoopRegion{MinLoop: 0, MaxLoop: e.frames - 1, StartLoop: 0, EndLoop: e.frames - 1, DirectionOrig: 1}
	e.initialMinLoop, e.initialMaxLoop = e.loop.MinLoop, e.loop.MaxLoop
	e.windowPos, e.windowSize = 0, 1

	e.env = make([]envelope, e.channels)
}

// Detach releases the buffer reference; all other state is retained.
func (e *Engine) Detach() {
	e.buf = nil
}

// PostCommand enqueues a control message from any goroutine. It never
// blocks and never allocates beyond the fixed ring.
func (e *Engine) PostCommand(c Command) {
	e.ring.push(c)
}

func (e *Engine) logWarn(msg string) {
	if e.warner != nil {
		e.warner.Warn(msg)
	}
}

// Mode reports the coarse per-sample mode PerformVector is currently
// gating on, folding go/record/loopDetermine into the single tagged
// variant design note §9 calls for.
func (e *Engine) Mode() PerformMode {
	switch {
	case e.sm.loopDetermine:
		return ModeInitialLoop
	case e.sm.record:
		return ModeRecording
	case e.sm.goFlag:
		return ModePlaying
	default:
		return ModeIdle
	}
}

// HumanState reports a telemetry-only snapshot of coarse engine state.
func (e *Engine) HumanState() HumanState {
	switch {
	case e.sm.loopDetermine:
		return HumanInitial
	case e.sm.appendFlag:
		return HumanAppend
	case e.sm.record && e.overdubAmp > 0:
		return HumanOverdub
	case e.sm.record:
		return HumanRecord
	case e.sm.goFlag:
		return HumanPlay
	default:
		return HumanStop
	}
}
