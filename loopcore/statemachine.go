package loopcore

// stateMachine holds the flags the per-sample loop gates on. trigInit,
// jumpFlag, append, and alternateFlag are one-shot transient signals
// rather than part of PerformMode because they can be set and consumed
// independently of the coarse mode.
//
// RecordFlag/PlayFlag and recordEndMark are kept as small integer codes
// rather than a richer enum because the per-sample hot path tests them
// every sample; see DESIGN.md.
type stateMachine struct {
	goFlag        bool
	record        bool
	recordPrev    bool
	loopDetermine bool
	trigInit      bool
	jumpFlag      bool
	appendFlag    bool
	alternateFlag bool

	recordEndMark   int  // 0 none, 1 freeze-loop, 2 exit-initial, 3 rearm-recording, 4 transient-clear
	geometryPending bool // set by marks 1/2: step 3 must recompute loop geometry, not just re-enter the window

	fade FadeState
}

// dispatch runs one control-state transition and resets to Idle.
func (sm *stateMachine) dispatch(cs ControlState) {
	switch cs {
	case RecInitial:
		sm.record = true
		sm.goFlag = true
		sm.trigInit = true
		sm.loopDetermine = true
		sm.fade.RecordFade = 0
		sm.fade.PlayFade = 0
		sm.fade.RecordFlag = 0
		sm.fade.PlayFlag = 0

	case RecAlt:
		sm.recordEndMark = 3
		sm.record = true
		sm.fade.RecordFlag = 1
		sm.fade.PlayFlag = 1
		sm.clearFades()

	case RecOff:
		sm.fade.RecordFlag = 1
		sm.fade.PlayFlag = 3
		sm.clearFades()

	case PlayAlt:
		sm.recordEndMark = 2
		sm.fade.RecordFlag = 1
		sm.fade.PlayFlag = 1
		sm.clearFades()

	case PlayOn:
		sm.trigInit = true

	case StopAlt:
		sm.recordEndMark = 1
		sm.fade.PlayFlag = 1
		sm.fade.RecordFlag = 1

	case StopReg:
		if sm.record {
			sm.fade.RecordFlag = 1
			sm.fade.PlayFlag = 1
		}

	case Jump:
		// Recording: ride the record-fade completion table (RecordFlag
		// code 2) so the jump lands after the declick settles. Not
		// recording: there's no record fade to wait on, so arm the
		// window retrigger directly (inferred; the source only
		// documents the recording case explicitly).
		if sm.record {
			sm.fade.RecordFlag = 2
			sm.fade.PlayFlag = 2
		} else {
			sm.trigInit = true
			sm.jumpFlag = true
		}

	case Append:
		sm.fade.PlayFlag = 4

	case AppendSpecial:
		sm.record = true
		sm.loopDetermine = true
		sm.alternateFlag = true
		sm.fade.SnrFade = 0
		sm.clearFades()

	case RecOn:
		sm.fade.PlayFlag = 3
		sm.fade.RecordFlag = 5
	}
}

func (sm *stateMachine) clearFades() {
	sm.fade.RecordFade = 0
	sm.fade.PlayFade = 0
}

// playFadeComplete runs the play-fade completion dispatch table, called
// once playFade has reached globalRamp.
func (sm *stateMachine) playFadeComplete() {
	switch sm.fade.PlayFlag {
	case 1:
		sm.goFlag = false
	case 2:
		if !sm.record {
			sm.trigInit = true
			sm.jumpFlag = true
		}
		fallthrough
	case 3:
		sm.fade.PlayFlag = 0
	case 4:
		sm.goFlag = true
		sm.trigInit = true
		sm.loopDetermine = true
	}
}

// recordFadeComplete runs the record-fade completion dispatch table,
// called once recordFade has reached globalRamp, then dispatches
// recordEndMark. onFreezeLoop is invoked for mark 1 before the mark-2
// fallthrough, so the caller can snapshot MaxLoop from the current
// maxHead; the engine always passes freezeLoopFromMaxHead, and a nil
// onFreezeLoop skips the snapshot.
func (sm *stateMachine) recordFadeComplete(onFreezeLoop func()) {
	switch sm.fade.RecordFlag {
	case 2:
		sm.jumpFlag = true
	case 5:
		sm.record = true
	default:
		sm.record = false
	}

	switch sm.recordEndMark {
	case 1:
		if onFreezeLoop != nil {
			onFreezeLoop()
		}
		fallthrough
	case 2:
		sm.loopDetermine = false
		sm.trigInit = true
		sm.geometryPending = true
	case 3:
		sm.record = true
		sm.trigInit = true
	case 4:
		// transient clear: no further side effect.
	}
	sm.recordEndMark = 0
}
