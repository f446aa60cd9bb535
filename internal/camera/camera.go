// Package camera implements the per-camera orchestrator (spec.md §2
// pipeline diagram) and the multi-camera manager, generalized from the
// teacher's internal/camera package (a single on-demand ffmpeg capture
// call per activation) into an always-on multi-worker pipeline per
// camera.
package camera

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"sentrycam/internal/config"
	"sentrycam/internal/dispatcher"
	"sentrycam/internal/eventhub"
	"sentrycam/internal/eventlog"
	"sentrycam/internal/frame"
	"sentrycam/internal/motion"
	"sentrycam/internal/reader"
	"sentrycam/internal/recorder"
	"sentrycam/internal/streamhub"
)

// Deps bundles the collaborators shared across every camera.
type Deps struct {
	Recordings config.RecordingsConfig
	EventHub   *eventhub.Hub
	EventLog   *eventlog.Log
}

// Camera owns and sequences every worker in one camera's pipeline:
// Reader -> Dispatcher -> {StreamHub, StreamRecorder, MotionDetector ->
// MotionRecorder} (spec.md §2).
type Camera struct {
	id  string
	cfg config.CameraConfig
	log *log.Logger

	rawQueue       *frame.Queue[frame.Raw]
	reader         *reader.Reader
	dispatcher     *dispatcher.Dispatcher
	hub            *streamhub.Hub
	streamRecorder *recorder.StreamRecorder
	motionRecorder *recorder.MotionRecorder
	motionDetector *motion.Detector

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// motionWriter adapts *motion.Detector to dispatcher.MotionSink.
type motionWriter struct{ d *motion.Detector }

func (m motionWriter) Write(raw frame.Raw, encoded frame.Encoded) { m.d.Write(raw, encoded) }

// New builds a Camera and every worker it owns. It does not start
// anything.
func New(id string, cfg config.CameraConfig, motionCfg *config.MotionConfig, deps Deps, logger *log.Logger) *Camera {
	c := &Camera{
		id:       id,
		cfg:      cfg,
		log:      logger,
		rawQueue: frame.NewQueue[frame.Raw](10),
	}

	c.hub = streamhub.New(cfg.Port, cfg.TargetFPS, logger)

	var streamRecSink dispatcher.Sink
	if deps.Recordings.Save {
		rc := recorder.Config{
			NormName:      cfg.NormName,
			Directory:     filepath.Join(deps.Recordings.Directory, cfg.NormName),
			TargetFPS:     cfg.TargetFPS,
			MaxDaysToSave: deps.Recordings.MaxDaysToSave,
			TranscodeMode: deps.Recordings.EncodeToH264,
			Encoder:       deps.Recordings.H264Encoder,
			BitrateKbps:   deps.Recordings.Bitrate,
		}
		c.streamRecorder = recorder.NewStreamRecorder(rc, logger)
		streamRecSink = c.streamRecorder
	}

	var motionSink dispatcher.MotionSink
	if motionCfg != nil && motionCfg.Enabled {
		mc := *motionCfg
		rc := recorder.Config{
			NormName:      cfg.NormName,
			Directory:     filepath.Join(mc.Directory, cfg.NormName),
			TargetFPS:     cfg.TargetFPS,
			MaxDaysToSave: mc.MaxDaysToSave,
			TranscodeMode: mc.EncodeToH264,
			Encoder:       mc.H264Encoder,
			BitrateKbps:   mc.Bitrate,
		}
		capacity := mc.PreCapture + 20
		c.motionRecorder = recorder.NewMotionRecorder(rc, capacity, logger)
		c.motionDetector = motion.New(motion.DetectorConfig{
			CameraID:            id,
			CameraName:          cfg.Name,
			NoiseLevel:          mc.NoiseLevel,
			PixelThresholdPct:   mc.PixelThreshold,
			ObjectThresholdPct:  mc.ObjectThreshold,
			MinimumMotionFrames: mc.MinimumMotionFrames,
			PreCapture:          mc.PreCapture,
			PostCapture:         mc.PostCapture,
			EventGapSeconds:     mc.EventGap,
			TargetFPS:           cfg.TargetFPS,
		}, c.motionRecorder, deps.EventHub, deps.EventLog, logger)
		motionSink = motionWriter{c.motionDetector}
	}

	c.dispatcher = dispatcher.New(dispatcher.Options{
		CameraName:    cfg.Name,
		StreamQuality: cfg.StreamQuality,
		ShowFPS:       cfg.ShowFPS,
	}, c.rawQueue, c.hub, streamRecSink, motionSink, logger)

	c.reader = reader.New(reader.Options{
		Source:       cfg.Device,
		Width:        cfg.Width,
		Height:       cfg.Height,
		SourceFPS:    cfg.SourceFPS,
		TargetFPS:    cfg.TargetFPS,
		SourceFormat: cfg.SourceFormat,
	}, c.rawQueue, logger)

	return c
}

// Start launches every worker. If the reader cannot be launched, the
// workers already started are stopped again and the error is returned,
// so the camera is not left partially started. A device that fails to
// open after launch surfaces as a capture read failure, which
// watchReaderHealth turns into a Stop.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	if err := c.hub.Start(); err != nil {
		return fmt.Errorf("camera %s: start stream hub: %w", c.id, err)
	}
	if c.streamRecorder != nil {
		c.streamRecorder.Start()
	}
	if c.motionRecorder != nil {
		c.motionRecorder.Start()
	}
	if c.motionDetector != nil {
		c.motionDetector.Start()
	}
	c.dispatcher.Start()

	if err := c.reader.Start(c.ctx); err != nil {
		c.cancel()
		c.dispatcher.Stop()
		if c.motionDetector != nil {
			c.motionDetector.Stop()
		}
		if c.motionRecorder != nil {
			c.motionRecorder.Stop()
		}
		if c.streamRecorder != nil {
			c.streamRecorder.Stop()
		}
		c.hub.Stop()
		return fmt.Errorf("camera %s: start reader: %w", c.id, err)
	}

	c.running = true
	go c.watchReaderHealth()
	return nil
}

// watchReaderHealth polls for an unrecoverable capture read failure and
// escalates by stopping the whole camera (spec.md §4.1 Failures).
func (c *Camera) watchReaderHealth() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		running := c.running
		c.mu.Unlock()
		if !running {
			return
		}
		if c.reader.Failed() {
			c.log.Printf("camera %s: capture failed, stopping camera", c.id)
			c.Stop()
			return
		}
	}
}

// Stop blocks until every worker is joined and any open recorders are
// flushed, following spec.md §5's exact shutdown order: Reader ->
// Dispatcher -> StreamRecorder -> MotionDetector -> drain RawQueue.
func (c *Camera) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	c.reader.Stop()
	c.dispatcher.Stop()
	if c.streamRecorder != nil {
		c.streamRecorder.Stop()
	}
	if c.motionDetector != nil {
		c.motionDetector.Stop()
	}
	if c.motionRecorder != nil {
		c.motionRecorder.Stop()
	}
	c.rawQueue.Drain()
	c.hub.Stop()
	if c.cancel != nil {
		c.cancel()
	}
	c.log.Printf("camera %s: stopped", c.id)
}
