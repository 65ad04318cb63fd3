package loopcore

// Telemetry is one snapshot of the report-clock list: position in
// [0,1], transport/record flags, window bounds in milliseconds, and
// the coarse human-readable state.
type Telemetry struct {
	Position   float64
	Go         bool
	Record     bool
	StartMS    float64
	EndMS      float64
	WindowMS   float64
	HumanState HumanState
}

// Report builds a Telemetry snapshot from current engine state. The host
// (cmd/loopdemo) calls this on its own report-interval ticker; the core
// itself performs no timing or I/O.
func (e *Engine) Report() Telemetry {
	size := e.loop.Size()
	pos := 0.0
	if size > 0 {
		pos = clamp01((e.head.Accurate - float64(e.loop.StartLoop)) / float64(size))
	}

	msPerSample := 0.0
	if e.sampleRate > 0 {
		msPerSample = 1000 / e.sampleRate
	}

	return Telemetry{
		Position:   pos,
		Go:         e.sm.goFlag,
		Record:     e.sm.record,
		StartMS:    float64(e.loop.StartLoop) * msPerSample,
		EndMS:      float64(e.loop.EndLoop) * msPerSample,
		WindowMS:   float64(size) * e.windowSize * msPerSample,
		HumanState: e.HumanState(),
	}
}

// List renders the telemetry snapshot as the flat outlet-list form:
// [position, go, record, start_ms, end_ms, window_ms, human_state].
func (t Telemetry) List() []float64 {
	boolF := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	return []float64{
		t.Position,
		boolF(t.Go),
		boolF(t.Record),
		t.StartMS,
		t.EndMS,
		t.WindowMS,
		float64(t.HumanState),
	}
}
