package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/akozlov/mediaq/pkg/logger"
)

// extractor implements the Extractor interface by invoking the
// ffmpeg/ffprobe binaries.
type extractor struct {
	logger logger.Logger

	// Binary names, overridable for tests.
	ffmpeg  string
	ffprobe string
}

// New creates an ffmpeg-backed extractor.
func New(log logger.Logger) Extractor {
	return &extractor{
		logger:  log,
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
	}
}

// probeFormat is the subset of ffprobe's JSON output we read.
type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// CheckVideoFile implements Extractor.CheckVideoFile.
func (e *extractor) CheckVideoFile(ctx context.Context, path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Sprintf("file does not exist: %s", path)
	}
	if info.IsDir() {
		return false, fmt.Sprintf("path is a directory: %s", path)
	}

	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return false, fmt.Sprintf("no read permission for file: %s", path)
	}
	if closeErr := f.Close(); closeErr != nil {
		e.logger.Debug("failed to close probe handle", "path", path, "error", closeErr)
	}

	duration, err := e.Duration(ctx, path)
	if err != nil {
		return false, err.Error()
	}
	if duration <= 0 {
		return false, fmt.Sprintf("invalid media duration: %g seconds", duration)
	}

	e.logger.Debug("file passed validation", "path", path, "duration", duration)
	return true, ""
}

// Duration implements Extractor.Duration.
func (e *extractor) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ffprobe, // nolint:gosec
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe cannot process file: %s", strings.TrimSpace(stderr.String()))
	}

	var probe probeFormat
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if probe.Format.Duration == "" {
		return 0, ErrNoDuration
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoDuration, err)
	}

	return duration, nil
}

// Extract implements Extractor.Extract.
func (e *extractor) Extract(ctx context.Context, videoPath, outputPath, quality string) error {
	profile, ok := profiles[quality]
	if !ok {
		profile = profiles["medium"]
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(outputPath)), ".")
	codec, ok := codecForFormat[format]
	if !ok {
		codec = format
	}

	// ffmpeg names the m4a container ipod.
	containerFormat := format
	if format == "m4a" {
		containerFormat = "ipod"
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", codec,
		"-ar", strconv.Itoa(profile.SampleRate),
		"-ac", strconv.Itoa(profile.Channels),
		"-b:a", profile.Bitrate,
		"-f", containerFormat,
		"-threads", "0",
		"-hide_banner",
		"-loglevel", "error",
		outputPath,
	}

	e.logger.Debug("running ffmpeg",
		"input", videoPath,
		"output", outputPath,
		"quality", quality)

	cmd := exec.CommandContext(ctx, e.ffmpeg, args...) // nolint:gosec

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %s", strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return ErrEmptyOutput
	}

	e.logger.Info("audio extracted",
		"input", filepath.Base(videoPath),
		"output", filepath.Base(outputPath),
		"bytes", info.Size())

	return nil
}

// ToolsAvailable implements Extractor.ToolsAvailable.
func (e *extractor) ToolsAvailable() bool {
	for _, tool := range []string{e.ffmpeg, e.ffprobe} {
		if _, err := exec.LookPath(tool); err != nil {
			return false
		}
	}
	return true
}
