// Package config loads and validates the YAML configuration tree.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CameraConfig describes one configured camera (spec.md §6 Cameras.<id>).
type CameraConfig struct {
	Name           string `yaml:"name"`
	Device         string `yaml:"camera"`
	TargetFPS      int    `yaml:"target_fps"`
	Port           int    `yaml:"port"`
	StreamQuality  int    `yaml:"stream_quality"`
	ShowFPS        bool   `yaml:"show_fps"`
	SourceFormat   string `yaml:"source_format"`
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	SourceFPS      int    `yaml:"source_fps"`

	// NormName is computed at load time, not read from YAML.
	NormName string `yaml:"-"`
}

// RecordingsConfig describes the hourly-rolling recorder policy.
type RecordingsConfig struct {
	Save           bool   `yaml:"save"`
	Directory      string `yaml:"directory"`
	MaxDaysToSave  int    `yaml:"max_days_to_save"`
	EncodeToH264   int    `yaml:"encode_to_h264"`
	H264Encoder    string `yaml:"h264_encoder"`
	Bitrate        int    `yaml:"bitrate"`
}

// MotionConfig describes one camera's motion detection policy plus its
// clip-storage settings (directory/retention/transcode, mirroring
// RecordingsConfig). These are read from each camera's Motion.<id>
// entry; there is no top-level Motion section shared across cameras.
type MotionConfig struct {
	Enabled             bool    `yaml:"enabled"`
	NoiseLevel          int     `yaml:"noise_level"`
	PixelThreshold      float64 `yaml:"pixel_threshold"`
	ObjectThreshold     float64 `yaml:"object_threshold"`
	MinimumMotionFrames int     `yaml:"minimum_motion_frames"`
	PreCapture          int     `yaml:"pre_capture"`
	PostCapture         int     `yaml:"post_capture"`
	EventGap            int     `yaml:"event_gap"`

	Directory     string `yaml:"directory"`
	MaxDaysToSave int    `yaml:"max_days_to_save"`
	EncodeToH264  int    `yaml:"encode_to_h264"`
	H264Encoder   string `yaml:"h264_encoder"`
	Bitrate       int    `yaml:"bitrate"`
}

// LogsConfig supplements spec.md with the rotating file-log feature
// pulled from original_source/ (see SPEC_FULL.md §2.2).
type LogsConfig struct {
	Save      bool   `yaml:"save"`
	Directory string `yaml:"directory"`
	MaxSizeMB int    `yaml:"max_size"`
	MaxFiles  int    `yaml:"max_files"`
}

// Config is the full parsed tree.
type Config struct {
	Cameras    map[string]CameraConfig `yaml:"Cameras"`
	Recordings RecordingsConfig        `yaml:"Recordings"`
	Motion     map[string]MotionConfig `yaml:"Motion"`
	Logs       LogsConfig              `yaml:"Logs"`
}

// ConfigError reports a configuration defect scoped to one camera. A
// camera with a ConfigError is skipped, not fatal to the process.
type ConfigError struct {
	CameraID string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("camera %q: %s", e.CameraID, e.Reason)
}

// Load reads and validates the YAML file at path. It returns the
// validated config plus the list of per-camera errors for cameras that
// were dropped. A non-nil error return means a fatal, process-wide
// defect (bad Recordings section, or unreadable/malformed file). An
// invalid Motion.<id> entry is not fatal: it drops that camera.
func Load(path string) (*Config, []*ConfigError, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validateRecordings(cfg.Recordings); err != nil {
		return nil, nil, fmt.Errorf("config: Recordings: %w", err)
	}

	dropped, err := validateCameras(&cfg)
	if err != nil {
		return nil, nil, err
	}

	return &cfg, dropped, nil
}

func validateRecordings(r RecordingsConfig) error {
	if !r.Save {
		return nil
	}
	if r.Directory == "" {
		return fmt.Errorf("save=true requires directory")
	}
	if r.MaxDaysToSave < 1 {
		return fmt.Errorf("max_days_to_save must be >= 1")
	}
	if r.EncodeToH264 < 0 || r.EncodeToH264 > 2 {
		return fmt.Errorf("encode_to_h264 must be in {0,1,2}")
	}
	if r.EncodeToH264 != 0 {
		if r.H264Encoder == "" {
			return fmt.Errorf("encode_to_h264=%d requires h264_encoder", r.EncodeToH264)
		}
		if r.Bitrate < 1 {
			return fmt.Errorf("encode_to_h264=%d requires bitrate >= 1", r.EncodeToH264)
		}
	}
	return nil
}

func validateMotion(m MotionConfig) error {
	if !m.Enabled {
		return nil
	}
	if m.NoiseLevel < 1 || m.NoiseLevel > 255 {
		return fmt.Errorf("noise_level must be in [1,255]")
	}
	if m.PixelThreshold <= 0 || m.PixelThreshold >= 100 {
		return fmt.Errorf("pixel_threshold must be in (0,100)")
	}
	if m.ObjectThreshold <= 0 || m.ObjectThreshold >= 100 {
		return fmt.Errorf("object_threshold must be in (0,100)")
	}
	if m.MinimumMotionFrames < 1 {
		return fmt.Errorf("minimum_motion_frames must be >= 1")
	}
	if m.PreCapture < 0 {
		return fmt.Errorf("pre_capture must be >= 0")
	}
	if m.PostCapture < 0 {
		return fmt.Errorf("post_capture must be >= 0")
	}
	if m.EventGap < 0 {
		return fmt.Errorf("event_gap must be >= 0")
	}
	if m.Directory == "" {
		return fmt.Errorf("enabled=true requires directory")
	}
	if m.MaxDaysToSave < 1 {
		return fmt.Errorf("max_days_to_save must be >= 1")
	}
	if m.EncodeToH264 < 0 || m.EncodeToH264 > 2 {
		return fmt.Errorf("encode_to_h264 must be in {0,1,2}")
	}
	if m.EncodeToH264 != 0 {
		if m.H264Encoder == "" {
			return fmt.Errorf("encode_to_h264=%d requires h264_encoder", m.EncodeToH264)
		}
		if m.Bitrate < 1 {
			return fmt.Errorf("encode_to_h264=%d requires bitrate >= 1", m.EncodeToH264)
		}
	}
	return nil
}

// validateCameras checks every camera entry, normalizes its name,
// rejects duplicate names/ports, and returns the dropped cameras.
// Camera-level failures are collected, not fatal (original_source's
// config.py validates one camera at a time via try/except so a single
// bad entry doesn't abort the run).
func validateCameras(cfg *Config) ([]*ConfigError, error) {
	var dropped []*ConfigError
	seenName := make(map[string]string)
	seenPort := make(map[int]string)

	for id, cam := range cfg.Cameras {
		if err := validateCamera(cam); err != nil {
			dropped = append(dropped, &ConfigError{CameraID: id, Reason: err.Error()})
			delete(cfg.Cameras, id)
			continue
		}

		norm := NormalizeName(cam.Name)
		if other, ok := seenName[norm]; ok {
			dropped = append(dropped, &ConfigError{CameraID: id, Reason: fmt.Sprintf("duplicate name (also used by %q)", other)})
			delete(cfg.Cameras, id)
			continue
		}
		if other, ok := seenPort[cam.Port]; ok {
			dropped = append(dropped, &ConfigError{CameraID: id, Reason: fmt.Sprintf("duplicate port %d (also used by %q)", cam.Port, other)})
			delete(cfg.Cameras, id)
			continue
		}
		seenName[norm] = id
		seenPort[cam.Port] = id

		cam.NormName = norm
		cfg.Cameras[id] = cam

		if m, ok := cfg.Motion[id]; ok {
			if err := validateMotion(m); err != nil {
				dropped = append(dropped, &ConfigError{CameraID: id, Reason: fmt.Sprintf("Motion: %s", err)})
				delete(cfg.Cameras, id)
				delete(cfg.Motion, id)
			}
		}
	}

	return dropped, nil
}

func validateCamera(c CameraConfig) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Device == "" {
		return fmt.Errorf("camera (device) is required")
	}
	if c.TargetFPS <= 0 {
		return fmt.Errorf("target_fps must be > 0")
	}
	if c.Port <= 0 {
		return fmt.Errorf("port must be > 0")
	}
	if c.StreamQuality < 0 || c.StreamQuality > 100 {
		return fmt.Errorf("stream_quality must be in [0,100]")
	}
	return nil
}

// NormalizeName lowercases and replaces spaces with underscores, matching
// spec.md §6 norm_name and original_source's camera_name_norm. Idempotent:
// NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
