// Package dispatcher implements the single worker that overlays, JPEG
// encodes, and fans out every raw frame to its three consumers
// (spec.md §4.2).
package dispatcher

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	"log"
	"time"

	"sentrycam/internal/frame"
	"sentrycam/internal/overlay"
)

// Sink receives encoded frames. StreamHub and StreamRecorder implement
// this surface; MotionDetector also wants the raw frame and is fed via
// MotionSink below instead.
type Sink interface {
	Write(f frame.Encoded)
}

// MotionSink additionally receives the raw frame for analysis.
type MotionSink interface {
	Write(raw frame.Raw, encoded frame.Encoded)
}

// Options configures a Dispatcher.
type Options struct {
	CameraName    string
	StreamQuality int // JPEG quality 0..100
	ShowFPS       bool
}

// Dispatcher is the single worker draining RawQueue.
type Dispatcher struct {
	opts   Options
	log    *log.Logger
	in     *frame.Queue[frame.Raw]
	hub    Sink
	rec    Sink
	motion MotionSink
	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Dispatcher wired to its three consumers.
func New(opts Options, in *frame.Queue[frame.Raw], hub, rec Sink, motion MotionSink, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		opts:   opts,
		log:    logger,
		in:     in,
		hub:    hub,
		rec:    rec,
		motion: motion,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs the worker loop in a new goroutine.
func (d *Dispatcher) Start() {
	go d.run()
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)
	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		raw, ok := d.in.Pop(time.Second)
		if !ok {
			continue
		}

		encoded, err := d.process(raw)
		if err != nil {
			d.log.Printf("encode failed, dropping frame: %v", err)
			continue
		}

		if d.hub != nil {
			d.hub.Write(encoded)
		}
		if d.rec != nil {
			d.rec.Write(encoded)
		}
		if d.motion != nil {
			d.motion.Write(raw, encoded)
		}
	}
}

// process overlays a private copy of raw and JPEG-encodes it.
func (d *Dispatcher) process(raw frame.Raw) (frame.Encoded, error) {
	img := bgr24ToRGBA(raw)

	fps := 0.0
	if d.opts.ShowFPS {
		fps = raw.MeasuredFPS
	}
	overlay.Draw(img, overlay.Info{
		CameraName: d.opts.CameraName,
		Time:       raw.CaptureTime,
		FPS:        fps,
	})

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.opts.StreamQuality}); err != nil {
		return frame.Encoded{}, err
	}

	return frame.Encoded{Data: buf.Bytes(), CaptureTime: raw.CaptureTime}, nil
}

func bgr24ToRGBA(raw frame.Raw) draw.Image {
	img := image.NewRGBA(image.Rect(0, 0, raw.Width, raw.Height))
	for y := 0; y < raw.Height; y++ {
		srcRow := y * raw.Width * 3
		dstRow := img.PixOffset(0, y)
		for x := 0; x < raw.Width; x++ {
			si := srcRow + x*3
			di := dstRow + x*4
			b := raw.Pix[si]
			g := raw.Pix[si+1]
			r := raw.Pix[si+2]
			img.Pix[di] = r
			img.Pix[di+1] = g
			img.Pix[di+2] = b
			img.Pix[di+3] = 0xff
		}
	}
	return img
}

// Stop signals the worker to exit and waits for it to finish.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
}
