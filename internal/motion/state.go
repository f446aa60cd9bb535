// Package motion implements the frame-difference motion detector
// (spec.md §4.5): preprocessing pipeline, state machine, and the
// pre-roll/min-window ring buffers.
package motion

// Kind is the MotionState's tag (spec.md §3 MotionState).
type Kind int

const (
	Idle Kind = iota
	Candidate
	InMotion
	PostRoll
	EventCoolDown
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "Idle"
	case Candidate:
		return "Candidate"
	case InMotion:
		return "InMotion"
	case PostRoll:
		return "PostRoll"
	case EventCoolDown:
		return "EventCoolDown"
	default:
		return "Unknown"
	}
}

// State is the full tagged-variant value: Streak counts consecutive
// motion frames in Candidate, IdleStreak counts idle frames in
// PostRoll/EventCoolDown. InEvent is true whenever a MotionRecorder
// clip is currently open (InMotion, PostRoll, EventCoolDown, or a
// Candidate re-entered from EventCoolDown) — it decides whether
// confirming motion opens a new clip or simply resumes writing to the
// one already open (spec.md §4.5 "Candidate within event").
type State struct {
	Kind       Kind
	Streak     int
	IdleStreak int
	InEvent    bool
}

// Action is one effect the caller must perform as a result of a
// transition. Next never performs I/O itself; it is a pure function so
// the transition table can be tested without real frames or a recorder.
type Action int

const (
	ActionPushPreRoll Action = iota
	ActionAppendMinWindow
	ActionDiscardMinWindow
	ActionOpenEvent     // start a new clip, then flush pre-roll ring + min-window into it
	ActionFlushMinWindow // clip already open (Candidate-within-event confirmed): flush min-window only
	ActionForward        // forward the current encoded frame to the open recorder
	ActionCloseEvent
)

// Config carries the thresholds the transition table consults.
// EventGapFrames is event_gap converted from seconds to frames using
// target_fps at construction (spec.md §4.5).
type Config struct {
	MinimumMotionFrames int
	PostCapture         int
	EventGapFrames      int
}

// Next computes the successor state and the actions to perform for one
// frame, given whether motion was detected this frame. This is a direct
// transcription of spec.md §4.5's table; original_source/modules/motion.py
// never implemented the transitions (left as placeholder comments), so
// there is no existing code to adapt here — this table is built fresh
// from the specification.
func Next(s State, motion bool, cfg Config) (State, []Action) {
	switch s.Kind {
	case Idle:
		if motion {
			return State{Kind: Candidate, Streak: 1}, []Action{ActionAppendMinWindow}
		}
		return State{Kind: Idle}, []Action{ActionPushPreRoll}

	case Candidate:
		if motion {
			streak := s.Streak + 1
			if streak >= cfg.MinimumMotionFrames {
				confirm := ActionOpenEvent
				if s.InEvent {
					confirm = ActionFlushMinWindow
				}
				return State{Kind: InMotion, InEvent: true}, []Action{ActionAppendMinWindow, confirm}
			}
			return State{Kind: Candidate, Streak: streak, IdleStreak: s.IdleStreak, InEvent: s.InEvent}, []Action{ActionAppendMinWindow}
		}
		if s.InEvent {
			return State{Kind: EventCoolDown, IdleStreak: s.IdleStreak, InEvent: true}, []Action{ActionDiscardMinWindow, ActionPushPreRoll}
		}
		return State{Kind: Idle}, []Action{ActionDiscardMinWindow, ActionPushPreRoll}

	case InMotion:
		if motion {
			return State{Kind: InMotion, InEvent: true}, []Action{ActionForward}
		}
		return State{Kind: PostRoll, IdleStreak: 1, InEvent: true}, []Action{ActionForward}

	case PostRoll:
		if motion {
			return State{Kind: InMotion, InEvent: true}, []Action{ActionForward}
		}
		next := s.IdleStreak + 1
		if next <= cfg.PostCapture {
			return State{Kind: PostRoll, IdleStreak: next, InEvent: true}, []Action{ActionForward}
		}
		return State{Kind: EventCoolDown, IdleStreak: next, InEvent: true}, nil

	case EventCoolDown:
		if motion {
			return State{Kind: Candidate, Streak: 1, IdleStreak: s.IdleStreak, InEvent: true}, []Action{ActionAppendMinWindow}
		}
		if s.IdleStreak <= cfg.PostCapture+cfg.EventGapFrames {
			return State{Kind: EventCoolDown, IdleStreak: s.IdleStreak + 1, InEvent: true}, []Action{ActionPushPreRoll}
		}
		return State{Kind: Idle}, []Action{ActionCloseEvent}
	}
	return s, nil
}
