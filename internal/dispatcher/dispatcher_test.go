package dispatcher

import (
	"log"
	"io"
	"sync"
	"testing"
	"time"

	"sentrycam/internal/frame"
)

type recordingSink struct {
	mu    sync.Mutex
	count int
}

func (s *recordingSink) Write(f frame.Encoded) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

type recordingMotionSink struct {
	mu    sync.Mutex
	count int
}

func (s *recordingMotionSink) Write(raw frame.Raw, encoded frame.Encoded) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func makeRaw(w, h int) frame.Raw {
	return frame.Raw{
		Width:       w,
		Height:      h,
		Pix:         make([]byte, w*h*3),
		CaptureTime: time.Now(),
	}
}

func TestDispatcherFansOutToAllThreeConsumers(t *testing.T) {
	in := frame.NewQueue[frame.Raw](4)
	hub := &recordingSink{}
	rec := &recordingSink{}
	motion := &recordingMotionSink{}

	d := New(Options{CameraName: "cam", StreamQuality: 80}, in, hub, rec, motion, testLogger())
	d.Start()
	defer d.Stop()

	in.Push(makeRaw(64, 48))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		n := hub.count
		hub.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.mu.Lock()
	rec.mu.Lock()
	motion.mu.Lock()
	defer hub.mu.Unlock()
	defer rec.mu.Unlock()
	defer motion.mu.Unlock()

	if hub.count != 1 || rec.count != 1 || motion.count != 1 {
		t.Fatalf("expected all three consumers to receive one frame, got hub=%d rec=%d motion=%d", hub.count, rec.count, motion.count)
	}
}

func TestProcessProducesNonEmptyJPEG(t *testing.T) {
	d := New(Options{CameraName: "cam", StreamQuality: 80}, nil, nil, nil, nil, testLogger())
	encoded, err := d.process(makeRaw(64, 48))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(encoded.Data) == 0 {
		t.Fatal("expected non-empty encoded JPEG")
	}
	// JPEG magic bytes
	if encoded.Data[0] != 0xFF || encoded.Data[1] != 0xD8 {
		t.Fatal("expected output to start with JPEG SOI marker")
	}
}
