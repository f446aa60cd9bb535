package motion

import (
	"image"
	"log"
	"time"

	"sentrycam/internal/frame"
	"sentrycam/internal/recorder"
)

// Pair is what the Dispatcher delivers to the motion queue: the raw
// frame for analysis plus its already-encoded JPEG counterpart, which
// is what actually gets recorded (spec.md §4.2 step 3).
type Pair struct {
	Raw     frame.Raw
	Encoded frame.Encoded
}

// Notifier is the optional motion-event notification sink
// (internal/eventhub implements this).
type Notifier interface {
	NotifyStart(cameraID string, t time.Time)
	NotifyStop(cameraID string, t time.Time)
}

// EventRecorder is the optional motion-event ledger sink
// (internal/eventlog implements this).
type EventRecorder interface {
	RecordEvent(cameraID string, start, end time.Time, clipPath string)
}

// DetectorConfig mirrors spec.md §6 Motion.<id>.
type DetectorConfig struct {
	CameraID   string
	CameraName string

	NoiseLevel          int
	PixelThresholdPct   float64
	ObjectThresholdPct  float64
	MinimumMotionFrames int
	PreCapture          int
	PostCapture         int
	EventGapSeconds     int
	TargetFPS           int
}

// Detector runs the frame-diff state machine on its own worker
// (spec.md §4.5).
type Detector struct {
	cfg      DetectorConfig
	log      *log.Logger
	in       *frame.Queue[Pair]
	recorder *recorder.MotionRecorder
	notifier Notifier
	eventlog EventRecorder

	state State

	preRoll   []frame.Encoded
	minWindow []frame.Encoded

	prevGray       *image.Gray
	procW, procH   int
	needResize     bool
	firstFrameSeen bool

	pixelThreshold, objectThreshold float64
	eventStart                      time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Detector. capacity sizing for the underlying
// MotionRecorder (>= max(100, pre_capture+20)) is the caller's
// responsibility per spec.md §3.
func New(cfg DetectorConfig, rec *recorder.MotionRecorder, notifier Notifier, eventlog EventRecorder, logger *log.Logger) *Detector {
	return &Detector{
		cfg:             cfg,
		log:             logger,
		in:              frame.NewQueue[Pair](max(100, cfg.PreCapture+20)),
		recorder:        rec,
		notifier:        notifier,
		eventlog:        eventlog,
		pixelThreshold:  cfg.PixelThresholdPct,
		objectThreshold: cfg.ObjectThresholdPct,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Write delivers a frame pair onto the detector's input queue,
// drop-newest on full.
func (d *Detector) Write(raw frame.Raw, encoded frame.Encoded) {
	d.in.Push(Pair{Raw: raw, Encoded: encoded})
}

// Start runs the detector loop in a new goroutine.
func (d *Detector) Start() {
	go d.run()
}

func (d *Detector) run() {
	defer close(d.doneCh)
	for {
		select {
		case <-d.stopCh:
			if d.recorder.InEvent() {
				d.closeEvent()
			}
			return
		default:
		}

		p, ok := d.in.Pop(time.Second)
		if !ok {
			continue
		}
		d.step(p)
	}
}

func (d *Detector) step(p Pair) {
	if !d.firstFrameSeen {
		d.procW, d.procH, d.needResize = processedResolution(p.Raw.Width, p.Raw.Height)
		d.pixelThreshold = d.cfg.PixelThresholdPct * float64(d.procW) * float64(d.procH) / 100
		d.objectThreshold = d.cfg.ObjectThresholdPct * float64(d.procW) * float64(d.procH) / 100
		d.firstFrameSeen = true
	}

	gray := toGray(p.Raw.Pix, p.Raw.Width, p.Raw.Height, d.procW, d.procH, d.needResize)
	blurred := gaussianBlur5x5(gray)

	motion := false
	if d.prevGray != nil {
		diff := absDiff(blurred, d.prevGray)
		bin := threshold(diff, clampNoiseLevel(d.cfg.NoiseLevel))
		dilated := dilate(bin, 2)
		motion = isMotion(dilated, d.pixelThreshold, d.objectThreshold)
	}
	d.prevGray = blurred

	eventGapFrames := d.cfg.EventGapSeconds * d.cfg.TargetFPS
	next, actions := Next(d.state, motion, Config{
		MinimumMotionFrames: d.cfg.MinimumMotionFrames,
		PostCapture:         d.cfg.PostCapture,
		EventGapFrames:      eventGapFrames,
	})

	for _, a := range actions {
		d.perform(a, p.Encoded)
	}
	d.state = next
}

func clampNoiseLevel(n int) uint8 {
	if n < 1 {
		return 1
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

func (d *Detector) perform(a Action, encoded frame.Encoded) {
	switch a {
	case ActionPushPreRoll:
		d.pushPreRoll(encoded)
	case ActionAppendMinWindow:
		d.minWindow = append(d.minWindow, encoded)
	case ActionDiscardMinWindow:
		d.minWindow = d.minWindow[:0]
	case ActionOpenEvent:
		d.openEvent(encoded.CaptureTime)
	case ActionFlushMinWindow:
		d.flushMinWindowOnly()
	case ActionForward:
		d.recorder.Write(encoded)
	case ActionCloseEvent:
		d.closeEvent()
	}
}

// pushPreRoll appends to the ring, overwriting oldest-first once it
// exceeds pre_capture (spec.md §3 Pre-roll ring).
func (d *Detector) pushPreRoll(encoded frame.Encoded) {
	if d.cfg.PreCapture <= 0 {
		return
	}
	d.preRoll = append(d.preRoll, encoded)
	if len(d.preRoll) > d.cfg.PreCapture {
		d.preRoll = d.preRoll[len(d.preRoll)-d.cfg.PreCapture:]
	}
}

// openEvent starts a new clip and flushes the pre-roll ring then the
// min-window into it, in capture order (spec.md §5 Ordering).
func (d *Detector) openEvent(t time.Time) {
	d.eventStart = t
	if err := d.recorder.StartEvent(t); err != nil {
		d.log.Printf("motion: failed to start event recorder: %v", err)
	}
	d.flush()
	if d.notifier != nil {
		d.notifier.NotifyStart(d.cfg.CameraID, t)
	}
}

func (d *Detector) flush() {
	for _, f := range d.preRoll {
		d.recorder.Write(f)
	}
	d.preRoll = d.preRoll[:0]
	for _, f := range d.minWindow {
		d.recorder.Write(f)
	}
	d.minWindow = d.minWindow[:0]
}

// flushMinWindowOnly writes only the min-window into the already-open
// clip. A "Candidate within event" confirms straight into InMotion
// without flushing pre-roll: the clip is already open, so any frames
// EventCoolDown pushed onto the pre-roll ring are idle padding that was
// never meant for this clip, not missed pre-roll (spec.md §4.5).
func (d *Detector) flushMinWindowOnly() {
	for _, f := range d.minWindow {
		d.recorder.Write(f)
	}
	d.minWindow = d.minWindow[:0]
	d.preRoll = d.preRoll[:0]
}

func (d *Detector) closeEvent() {
	clipPath := d.recorder.CurrentFilePath()
	d.recorder.StopEvent()
	end := time.Now()
	if d.notifier != nil {
		d.notifier.NotifyStop(d.cfg.CameraID, end)
	}
	if d.eventlog != nil {
		d.eventlog.RecordEvent(d.cfg.CameraID, d.eventStart, end, clipPath)
	}
}

// Stop signals the loop to exit, closing any open event.
func (d *Detector) Stop() {
	close(d.stopCh)
	<-d.doneCh
}
