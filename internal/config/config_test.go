package config

import "testing"

func TestNormalizeNameIdempotent(t *testing.T) {
	cases := []string{"Front Door", "BACKYARD", "already_norm", "Two  Spaces"}
	for _, c := range cases {
		once := NormalizeName(c)
		twice := NormalizeName(once)
		if once != twice {
			t.Errorf("NormalizeName(%q) not idempotent: %q vs %q", c, once, twice)
		}
	}
}

func TestNormalizeNameReplacesSpaces(t *testing.T) {
	if got := NormalizeName("Front Door"); got != "front_door" {
		t.Errorf("got %q, want front_door", got)
	}
}

func TestValidateCameraRejectsMissingFields(t *testing.T) {
	cases := []CameraConfig{
		{Device: "/dev/video0", TargetFPS: 10, Port: 8080},
		{Name: "a", TargetFPS: 10, Port: 8080},
		{Name: "a", Device: "/dev/video0", Port: 8080},
		{Name: "a", Device: "/dev/video0", TargetFPS: 10},
		{Name: "a", Device: "/dev/video0", TargetFPS: 10, Port: 8080, StreamQuality: 200},
	}
	for i, c := range cases {
		if err := validateCamera(c); err == nil {
			t.Errorf("case %d: expected error, got nil", i)
		}
	}
}

func TestValidateCamerasDropsDuplicates(t *testing.T) {
	cfg := &Config{
		Cameras: map[string]CameraConfig{
			"a": {Name: "Front Door", Device: "/dev/video0", TargetFPS: 10, Port: 8001},
			"b": {Name: "front door", Device: "/dev/video1", TargetFPS: 10, Port: 8002},
		},
	}
	dropped, err := validateCameras(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dropped) != 1 {
		t.Fatalf("expected exactly one camera dropped for duplicate name, got %d", len(dropped))
	}
	if len(cfg.Cameras) != 1 {
		t.Fatalf("expected one camera to survive, got %d", len(cfg.Cameras))
	}
}

func TestValidateCamerasDropsDuplicatePorts(t *testing.T) {
	cfg := &Config{
		Cameras: map[string]CameraConfig{
			"a": {Name: "Cam A", Device: "/dev/video0", TargetFPS: 10, Port: 8001},
			"b": {Name: "Cam B", Device: "/dev/video1", TargetFPS: 10, Port: 8001},
		},
	}
	dropped, _ := validateCameras(cfg)
	if len(dropped) != 1 {
		t.Fatalf("expected exactly one camera dropped for duplicate port, got %d", len(dropped))
	}
}

func TestValidateRecordingsRequiresEncoderWhenTranscoding(t *testing.T) {
	r := RecordingsConfig{Save: true, Directory: "/tmp", MaxDaysToSave: 7, EncodeToH264: 2}
	if err := validateRecordings(r); err == nil {
		t.Fatal("expected error when encode_to_h264=2 without h264_encoder/bitrate")
	}
	r.H264Encoder = "libx264"
	r.Bitrate = 2000
	if err := validateRecordings(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMotionThresholdBounds(t *testing.T) {
	m := MotionConfig{
		Enabled: true, NoiseLevel: 25, PixelThreshold: 0, ObjectThreshold: 1,
		MinimumMotionFrames: 3, Directory: "/tmp", MaxDaysToSave: 7,
	}
	if err := validateMotion(m); err == nil {
		t.Fatal("expected error for pixel_threshold=0 (must be exclusive lower bound)")
	}
}
