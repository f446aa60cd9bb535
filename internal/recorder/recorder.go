// Package recorder implements RecorderBase (spec.md §4.7) and the two
// recorders built on top of it: StreamRecorder (§4.4) and MotionRecorder
// (§4.6).
package recorder

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config is the immutable per-recorder configuration, replacing the
// source's class-variable shared config (spec.md §9 Design Notes: no
// hidden shared state, an explicit value per instance).
type Config struct {
	NormName      string
	Directory     string
	TargetFPS     int
	MaxDaysToSave int
	TranscodeMode int // 0: keep AVI, 1: AVI now -> MP4 after close, 2: MP4 live
	Encoder       string
	BitrateKbps   int
}

func (c Config) extension() string {
	if c.TranscodeMode == 2 {
		return "mp4"
	}
	return "avi"
}

// Base owns the ffmpeg subprocess handle and command-line construction
// shared by StreamRecorder and MotionRecorder.
type Base struct {
	cfg Config
	log *log.Logger

	mu              sync.Mutex
	cmd             *exec.Cmd
	stdin           io.WriteCloser
	currentFilePath string
}

// NewBase builds a RecorderBase for the given config.
func NewBase(cfg Config, logger *log.Logger) *Base {
	return &Base{cfg: cfg, log: logger}
}

// CurrentFilePath returns the path of the file currently being written,
// or "" if no process is active.
func (b *Base) CurrentFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentFilePath
}

// Active reports whether an ffmpeg process is currently running.
func (b *Base) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd != nil
}

// buildArgs constructs the ffmpeg invocation per spec.md §4.7's
// per-mode/per-encoder table.
func (b *Base) buildArgs(outPath string) []string {
	fps := strconv.Itoa(b.cfg.TargetFPS)
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "mjpeg", "-framerate", fps, "-i", "pipe:0",
		"-r", fps,
	}

	switch {
	case b.cfg.TranscodeMode == 0 || b.cfg.TranscodeMode == 1:
		args = append(args, "-c:v", "copy")
	case b.cfg.Encoder == "h264_vaapi":
		args = append(args,
			"-vaapi_device", "/dev/dri/renderD128",
			"-vf", "format=nv12,hwupload",
			"-c:v", "h264_vaapi",
			"-b:v", fmt.Sprintf("%dk", b.cfg.BitrateKbps),
		)
	case b.cfg.Encoder == "h264_v4l2m2m":
		args = append(args,
			"-pix_fmt", "yuv420p",
			"-c:v", "h264_v4l2m2m",
			"-b:v", fmt.Sprintf("%dk", b.cfg.BitrateKbps),
		)
	case b.cfg.Encoder == "h264_qsv":
		args = append(args,
			"-c:v", "h264_qsv",
			"-preset", "veryfast",
			"-b:v", fmt.Sprintf("%dk", b.cfg.BitrateKbps),
		)
	default:
		args = append(args,
			"-c:v", b.cfg.Encoder,
			"-preset", "ultrafast",
			"-b:v", fmt.Sprintf("%dk", b.cfg.BitrateKbps),
		)
	}

	args = append(args, outPath)
	return args
}

// StartFFmpeg opens an ffmpeg process writing to outPath, recording it
// as the active process.
func (b *Base) StartFFmpeg(outPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("recorder: create dir: %w", err)
	}

	cmd := exec.Command("ffmpeg", b.buildArgs(outPath)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("recorder: stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("recorder: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("recorder: start ffmpeg: %w", err)
	}

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				b.log.Printf("ffmpeg: %s", strings.TrimSpace(string(buf[:n])))
			}
			if err != nil {
				return
			}
		}
	}()

	b.cmd = cmd
	b.stdin = stdin
	b.currentFilePath = outPath
	b.log.Printf("recording started: %s", outPath)
	return nil
}

// WriteFrame writes encoded bytes to ffmpeg's stdin. On broken pipe, the
// process is stopped and cleared; the caller should retry on the next
// rotation/event open (spec.md §4.7 frame write contract).
func (b *Base) WriteFrame(data []byte) error {
	b.mu.Lock()
	stdin := b.stdin
	b.mu.Unlock()

	if stdin == nil {
		return fmt.Errorf("recorder: no active process")
	}

	_, err := stdin.Write(data)
	if err != nil {
		b.log.Printf("ffmpeg pipe broken: %v", err)
		b.StopFFmpeg()
		return err
	}
	return nil
}

// StopFFmpeg closes stdin and waits up to 5s for the process to exit,
// per spec.md §4.6/§4.7. On timeout it logs and abandons the process.
func (b *Base) StopFFmpeg() {
	b.mu.Lock()
	cmd := b.cmd
	stdin := b.stdin
	path := b.currentFilePath
	b.cmd = nil
	b.stdin = nil
	b.currentFilePath = ""
	b.mu.Unlock()

	if cmd == nil {
		return
	}
	if stdin != nil {
		stdin.Close()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			b.log.Printf("ffmpeg exited with error for %s: %v", path, err)
		}
	case <-time.After(5 * time.Second):
		b.log.Printf("ffmpeg wait timed out for %s, abandoning process", path)
	}
}

// CheckFileName appends a "(n)" collision suffix before the extension
// until it finds a path that doesn't exist, matching
// recording_manager.py's _check_file_name. Deterministic: repeated
// calls against the same existing files yield (1), (2), ... in order.
func CheckFileName(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// CleanOldFiles deletes tracked-extension files in dir whose mtime is
// older than maxDays*86400 seconds, matching
// recording_manager.py's _clean_old_files.
func CleanOldFiles(dir string, maxDays int, logger *log.Logger) {
	cutoff := time.Now().Add(-time.Duration(maxDays) * 24 * time.Hour)
	exts := map[string]bool{".avi": true, ".mp4": true, ".mkv": true, ".ts": true}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("retention sweep: read dir %s: %v", dir, err)
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() || !exts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				logger.Printf("retention sweep: remove %s: %v", path, err)
			}
		}
	}
}

// ConvertToH264 transcodes an AVI to MP4 using the same per-encoder
// flags as live mode 2, then deletes the AVI on success. Runs as a
// detached background worker: not joined at shutdown (spec.md §9 open
// question, "best effort, not joined").
func ConvertToH264(cfg Config, aviPath string, logger *log.Logger) {
	go func() {
		mp4Path := strings.TrimSuffix(aviPath, filepath.Ext(aviPath)) + ".mp4"

		args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", aviPath}
		switch cfg.Encoder {
		case "h264_vaapi":
			args = append(args, "-vaapi_device", "/dev/dri/renderD128", "-vf", "format=nv12,hwupload", "-c:v", "h264_vaapi", "-b:v", fmt.Sprintf("%dk", cfg.BitrateKbps))
		case "h264_v4l2m2m":
			args = append(args, "-pix_fmt", "yuv420p", "-c:v", "h264_v4l2m2m", "-b:v", fmt.Sprintf("%dk", cfg.BitrateKbps))
		case "h264_qsv":
			args = append(args, "-c:v", "h264_qsv", "-preset", "veryfast", "-b:v", fmt.Sprintf("%dk", cfg.BitrateKbps))
		default:
			args = append(args, "-c:v", cfg.Encoder, "-preset", "ultrafast", "-b:v", fmt.Sprintf("%dk", cfg.BitrateKbps))
		}
		args = append(args, "-movflags", "+faststart", mp4Path)

		cmd := exec.Command("ffmpeg", args...)
		if err := cmd.Run(); err != nil {
			logger.Printf("transcode failed for %s: %v", aviPath, err)
			return
		}
		if err := os.Remove(aviPath); err != nil {
			logger.Printf("transcode: remove source %s: %v", aviPath, err)
		}
	}()
}
