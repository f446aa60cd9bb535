package recorder

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"sentrycam/internal/frame"
)

// MotionRecorder drives RecorderBase with start/stop events instead of
// hourly rotation (spec.md §4.6).
type MotionRecorder struct {
	base *Base
	cfg  Config
	log  *log.Logger
	in   *frame.Queue[frame.Encoded]

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMotionRecorder builds a MotionRecorder. capacity must be
// >= max(100, pre_capture+20) per spec.md §3.
func NewMotionRecorder(cfg Config, capacity int, logger *log.Logger) *MotionRecorder {
	if capacity < 100 {
		capacity = 100
	}
	return &MotionRecorder{
		base:   NewBase(cfg, logger),
		cfg:    cfg,
		log:    logger,
		in:     frame.NewQueue[frame.Encoded](capacity),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Write pushes an encoded frame onto the recorder's input queue. Only
// meaningful while an event is active; callers are expected to only call
// this between StartEvent and StopEvent.
func (m *MotionRecorder) Write(f frame.Encoded) {
	m.in.Push(f)
}

// InEvent reports whether a clip is currently open.
func (m *MotionRecorder) InEvent() bool {
	return m.base.Active()
}

// CurrentFilePath returns the path of the clip currently being written,
// or "" if no event is open.
func (m *MotionRecorder) CurrentFilePath() string {
	return m.base.CurrentFilePath()
}

// StartEvent opens a new clip file named from t, per spec.md §4.6.
func (m *MotionRecorder) StartEvent(t time.Time) error {
	filename := fmt.Sprintf("%s_%02d-%02d-%04d_%02d:%02d:%02d.%03d.%s",
		m.cfg.NormName, t.Day(), int(t.Month()), t.Year(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1_000_000,
		m.cfg.extension())

	path := CheckFileName(filepath.Join(m.cfg.Directory, m.cfg.NormName, filename))
	m.log.Printf("motion event started: %s", path)
	return m.base.StartFFmpeg(path)
}

// StopEvent waits (bounded, 10s cap) for the queue to drain, stops
// ffmpeg, and schedules transcode if configured, per spec.md §4.6.
func (m *MotionRecorder) StopEvent() {
	deadline := time.Now().Add(10 * time.Second)
	for m.in.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if m.in.Len() > 0 {
		m.log.Printf("motion recorder queue did not drain in time, clearing %d frames", m.in.Len())
		m.in.Drain()
	}

	path := m.base.CurrentFilePath()
	m.base.StopFFmpeg()

	if m.cfg.TranscodeMode == 1 && path != "" {
		ConvertToH264(m.cfg, path, m.log)
	}
}

// Start begins the frame-write loop (draining the queue into ffmpeg's
// stdin while an event is open) in a new goroutine.
func (m *MotionRecorder) Start() {
	go m.run()
}

func (m *MotionRecorder) run() {
	defer close(m.doneCh)
	for {
		select {
		case <-m.stopCh:
			if m.base.Active() {
				m.StopEvent()
			}
			return
		default:
		}

		f, ok := m.in.Pop(time.Second)
		if !ok {
			continue
		}
		if m.base.Active() {
			m.base.WriteFrame(f.Data)
		}
	}
}

// Stop signals the loop to exit, closing any active event.
func (m *MotionRecorder) Stop() {
	close(m.stopCh)
	<-m.doneCh
}
