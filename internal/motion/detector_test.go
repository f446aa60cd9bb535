package motion

import (
	"image"
	"image/color"
	"io"
	"log"
	"testing"

	"sentrycam/internal/frame"
	"sentrycam/internal/recorder"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestFlushMinWindowOnlyDoesNotFlushPreRoll(t *testing.T) {
	rec := recorder.NewMotionRecorder(recorder.Config{
		NormName:      "front_door",
		Directory:     t.TempDir(),
		TargetFPS:     10,
		MaxDaysToSave: 1,
	}, 100, testLogger())

	d := New(DetectorConfig{
		CameraID:            "front_door",
		TargetFPS:           10,
		PreCapture:          5,
		PostCapture:         2,
		MinimumMotionFrames: 1,
	}, rec, nil, nil, testLogger())

	// Simulate EventCoolDown having pushed idle padding onto the pre-roll
	// ring, plus a freshly appended min-window frame from the resuming
	// Candidate.
	d.preRoll = []frame.Encoded{{Data: []byte("idle-1")}, {Data: []byte("idle-2")}}
	d.minWindow = []frame.Encoded{{Data: []byte("resume-1")}}

	d.flushMinWindowOnly()

	if len(d.minWindow) != 0 {
		t.Fatalf("expected min-window drained, got %d frames left", len(d.minWindow))
	}
	if len(d.preRoll) != 0 {
		t.Fatalf("expected pre-roll cleared, got %d frames left", len(d.preRoll))
	}
}

func TestProcessedResolutionKeepsSmallSourceUnchanged(t *testing.T) {
	w, h, needResize := processedResolution(320, 240)
	if needResize {
		t.Fatal("expected no resize for source <= 640x480")
	}
	if w != 320 || h != 240 {
		t.Fatalf("expected original dims, got %dx%d", w, h)
	}
}

func TestProcessedResolutionScalesDownLargeSource(t *testing.T) {
	w, h, needResize := processedResolution(1920, 1080)
	if !needResize {
		t.Fatal("expected resize for source > 640x480")
	}
	if w > maxProcessedWidth || h > maxProcessedHeight {
		t.Fatalf("expected dims within 640x480, got %dx%d", w, h)
	}
	// aspect ratio preserved within rounding
	wantRatio := 1920.0 / 1080.0
	gotRatio := float64(w) / float64(h)
	if diff := wantRatio - gotRatio; diff > 0.05 || diff < -0.05 {
		t.Fatalf("aspect ratio not preserved: want ~%.3f got %.3f", wantRatio, gotRatio)
	}
}

func solidGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestAbsDiffAndThresholdAndDilate(t *testing.T) {
	a := solidGray(10, 10, 10)
	b := solidGray(10, 10, 100)
	diff := absDiff(a, b)
	for _, v := range diff.Pix {
		if v != 90 {
			t.Fatalf("expected diff of 90 everywhere, got %d", v)
		}
	}

	bin := threshold(diff, 50)
	for _, v := range bin.Pix {
		if v != 255 {
			t.Fatal("expected full binarization above threshold")
		}
	}

	dilated := dilate(bin, 2)
	if countNonZero(dilated) != 100 {
		t.Fatalf("expected all 100 pixels foreground after dilate on a solid field, got %d", countNonZero(dilated))
	}
}

func TestIsMotionRequiresBothPixelAndObjectThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	// single small foreground blob of area 4
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	if isMotion(img, 4, 5) {
		t.Fatal("expected no motion: blob area 4 < object_threshold 5")
	}
	if !isMotion(img, 4, 4) {
		t.Fatal("expected motion: pixel count 4 >= 4 and blob area 4 >= 4")
	}
}

func TestConnectedComponentAreasSeparatesRegions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	img.SetGray(0, 0, color.Gray{Y: 255})
	img.SetGray(1, 0, color.Gray{Y: 255})
	img.SetGray(8, 8, color.Gray{Y: 255})

	areas := connectedComponentAreas(img)
	if len(areas) != 2 {
		t.Fatalf("expected 2 separate components, got %d: %v", len(areas), areas)
	}
}

func TestGrayConversionOfUniformBGRIsUniform(t *testing.T) {
	w, h := 4, 4
	pix := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		pix[i*3] = 50   // B
		pix[i*3+1] = 50 // G
		pix[i*3+2] = 50 // R
	}
	gray := toGray(pix, w, h, w, h, false)
	for _, v := range gray.Pix {
		if v != 50 {
			t.Fatalf("expected uniform gray value 50, got %d", v)
		}
	}
}
