package recorder

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"sentrycam/internal/frame"
)

// StreamRecorder drives RecorderBase with the hourly rotation policy of
// spec.md §4.4.
type StreamRecorder struct {
	base *Base
	cfg  Config
	log  *log.Logger
	in   *frame.Queue[frame.Encoded]

	currentHour time.Time // zero value is the "no current hour" sentinel
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewStreamRecorder builds a StreamRecorder draining a capacity-100
// queue (spec.md §3 Recorder queue).
func NewStreamRecorder(cfg Config, logger *log.Logger) *StreamRecorder {
	return &StreamRecorder{
		base:   NewBase(cfg, logger),
		cfg:    cfg,
		log:    logger,
		in:     frame.NewQueue[frame.Encoded](100),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Write pushes an encoded frame onto the recorder's input queue.
func (s *StreamRecorder) Write(f frame.Encoded) {
	s.in.Push(f)
}

// Start begins the rotation/write loop in a new goroutine.
func (s *StreamRecorder) Start() {
	go s.run()
}

func (s *StreamRecorder) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			s.base.StopFFmpeg()
			return
		default:
		}

		if s.checkRotation() {
			s.rotate()
			go CleanOldFiles(filepath.Join(s.cfg.Directory, s.cfg.NormName), s.cfg.MaxDaysToSave, s.log)
		}

		f, ok := s.in.Pop(time.Second)
		if !ok {
			continue
		}
		if s.base.Active() {
			s.base.WriteFrame(f.Data)
		}
	}
}

// checkRotation compares wall-clock hour to the hour the recorder opened
// its file for; computed inside the loop so a mid-hour start immediately
// produces a file for that hour (spec.md §4.4).
func (s *StreamRecorder) checkRotation() bool {
	now := time.Now()
	hour := now.Truncate(time.Hour)
	if !s.currentHour.Equal(hour) {
		s.currentHour = hour
		return true
	}
	return false
}

func (s *StreamRecorder) rotate() {
	previous := s.base.CurrentFilePath()
	s.base.StopFFmpeg()

	nextHour := (s.currentHour.Hour() + 1) % 24
	filename := fmt.Sprintf("%s_%02d-%02d_%02d-%02d-%04d.%s",
		s.cfg.NormName, s.currentHour.Hour(), nextHour,
		s.currentHour.Day(), int(s.currentHour.Month()), s.currentHour.Year(),
		s.cfg.extension())

	path := CheckFileName(filepath.Join(s.cfg.Directory, s.cfg.NormName, filename))
	s.log.Printf("rotating recording file for new hour %s -> %s", s.currentHour, path)

	if err := s.base.StartFFmpeg(path); err != nil {
		s.log.Printf("rotate: start ffmpeg: %v", err)
		return
	}

	if s.cfg.TranscodeMode == 1 && previous != "" {
		ConvertToH264(s.cfg, previous, s.log)
	}
}

// Stop signals the loop to exit, flushing and closing the active
// process.
func (s *StreamRecorder) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
