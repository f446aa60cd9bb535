package motion

import "testing"

func hasAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

func TestIdleStaysIdleWithoutMotion(t *testing.T) {
	s := State{Kind: Idle}
	cfg := Config{MinimumMotionFrames: 3, PostCapture: 4, EventGapFrames: 0}
	for i := 0; i < 100; i++ {
		next, actions := Next(s, false, cfg)
		if next.Kind != Idle {
			t.Fatalf("expected Idle, got %s at iteration %d", next.Kind, i)
		}
		if !hasAction(actions, ActionPushPreRoll) {
			t.Fatalf("expected ActionPushPreRoll at iteration %d", i)
		}
		s = next
	}
}

func TestSingleMotionBurstScenario(t *testing.T) {
	cfg := Config{MinimumMotionFrames: 3, PostCapture: 4, EventGapFrames: 0}
	s := State{Kind: Idle}

	feed := func(motion bool, n int) {
		for i := 0; i < n; i++ {
			next, _ := Next(s, motion, cfg)
			s = next
		}
	}

	feed(false, 5) // still frames
	if s.Kind != Idle {
		t.Fatalf("expected Idle after stills, got %s", s.Kind)
	}

	feed(true, 10) // moving frames
	if s.Kind != InMotion {
		t.Fatalf("expected InMotion after motion burst, got %s", s.Kind)
	}

	// idle_streak climbs 1..4 across PostRoll (forwarded), the 5th idle
	// frame crosses post_capture into EventCoolDown(5) (not forwarded),
	// and the 6th idle frame closes the event since event_gap=0 and
	// IdleStreak(5) > post_capture(4)+event_gap(0).
	feed(false, 5)
	if s.Kind != EventCoolDown || s.IdleStreak != 5 {
		t.Fatalf("expected EventCoolDown(5) after 5 idle frames, got %s(%d)", s.Kind, s.IdleStreak)
	}
	feed(false, 1)
	if s.Kind != Idle {
		t.Fatalf("expected event closed back to Idle on the 6th idle frame, got %s", s.Kind)
	}
}

func TestCoalescedEventsInsideGap(t *testing.T) {
	cfg := Config{MinimumMotionFrames: 3, PostCapture: 4, EventGapFrames: 10}
	s := State{Kind: Idle}

	feed := func(motion bool, n int) {
		for i := 0; i < n; i++ {
			next, _ := Next(s, motion, cfg)
			s = next
		}
	}

	feed(false, 5)
	feed(true, 4) // Candidate(1), Candidate(2), confirms at streak 3 -> InMotion, 4th frame stays InMotion
	if s.Kind != InMotion {
		t.Fatalf("expected InMotion after first burst, got %s", s.Kind)
	}

	feed(false, 3) // idle_streak climbs: PostRoll(1,2,3), still <= post_capture=4
	if s.Kind != PostRoll {
		t.Fatalf("expected still in PostRoll during the gap, got %s", s.Kind)
	}

	feed(true, 4) // motion resumes within event: back to InMotion
	if s.Kind != InMotion || !s.InEvent {
		t.Fatalf("expected InMotion (same event) after renewed motion, got %s inEvent=%v", s.Kind, s.InEvent)
	}

	feed(false, 20) // enough idle frames to close out post_capture+event_gap
	if s.Kind != Idle {
		t.Fatalf("expected event to close after sufficient idle frames, got %s", s.Kind)
	}
}

func TestEventGapZeroClosesImmediatelyAfterPostRoll(t *testing.T) {
	cfg := Config{MinimumMotionFrames: 1, PostCapture: 2, EventGapFrames: 0}
	s := State{Kind: InMotion, InEvent: true}

	s1, _ := Next(s, false, cfg) // PostRoll(1)
	if s1.Kind != PostRoll || s1.IdleStreak != 1 {
		t.Fatalf("expected PostRoll(1), got %+v", s1)
	}
	s2, _ := Next(s1, false, cfg) // PostRoll(2)
	if s2.Kind != PostRoll || s2.IdleStreak != 2 {
		t.Fatalf("expected PostRoll(2), got %+v", s2)
	}
	s3, actions := Next(s2, false, cfg) // idle_streak=3 > post_capture=2 -> EventCoolDown(3)
	if s3.Kind != EventCoolDown {
		t.Fatalf("expected EventCoolDown, got %+v", s3)
	}
	if hasAction(actions, ActionForward) {
		t.Fatal("transition into EventCoolDown should not forward the frame")
	}
	s4, closeActions := Next(s3, false, cfg) // idle_streak 3 > post_capture+event_gap = 2 -> closes
	if s4.Kind != Idle {
		t.Fatalf("expected Idle after cooldown with event_gap=0, got %+v", s4)
	}
	if !hasAction(closeActions, ActionCloseEvent) {
		t.Fatal("expected ActionCloseEvent")
	}
}

func TestMinimumMotionFramesConfirmsAtExactCount(t *testing.T) {
	cfg := Config{MinimumMotionFrames: 3, PostCapture: 4, EventGapFrames: 0}
	s := State{Kind: Idle}

	s1, a1 := Next(s, true, cfg) // Candidate(1)
	if s1.Kind != Candidate || s1.Streak != 1 || !hasAction(a1, ActionAppendMinWindow) {
		t.Fatalf("unexpected state after first motion frame: %+v", s1)
	}
	s2, _ := Next(s1, true, cfg) // Candidate(2)
	if s2.Kind != Candidate || s2.Streak != 2 {
		t.Fatalf("unexpected state after second motion frame: %+v", s2)
	}
	s3, a3 := Next(s2, true, cfg) // streak=3 >= 3 -> InMotion, opens event
	if s3.Kind != InMotion {
		t.Fatalf("expected InMotion at streak==minimum_motion_frames, got %+v", s3)
	}
	if !hasAction(a3, ActionOpenEvent) {
		t.Fatal("expected ActionOpenEvent on first confirmation")
	}
}

func TestCandidateWithinEventDoesNotReopen(t *testing.T) {
	cfg := Config{MinimumMotionFrames: 2, PostCapture: 1, EventGapFrames: 5}
	s := State{Kind: EventCoolDown, IdleStreak: 1, InEvent: true}

	s1, _ := Next(s, true, cfg) // Candidate(1) within event
	if s1.Kind != Candidate || !s1.InEvent {
		t.Fatalf("expected Candidate within event, got %+v", s1)
	}
	s2, actions := Next(s1, true, cfg) // streak=2 >= 2 -> confirm, already in event
	if s2.Kind != InMotion {
		t.Fatalf("expected InMotion, got %+v", s2)
	}
	if !hasAction(actions, ActionFlushMinWindow) {
		t.Fatal("expected ActionFlushMinWindow (not ActionOpenEvent) since clip already open")
	}
	if hasAction(actions, ActionOpenEvent) {
		t.Fatal("must not reopen an already-open clip")
	}
}
