package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akozlov/mediaq/pkg/logger"
)

func TestCheckVideoFileMissing(t *testing.T) {
	e := New(logger.Noop())

	ok, reason := e.CheckVideoFile(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.False(t, ok)
	assert.Contains(t, reason, "does not exist")
}

func TestCheckVideoFileDirectory(t *testing.T) {
	e := New(logger.Noop())

	ok, reason := e.CheckVideoFile(context.Background(), t.TempDir())
	assert.False(t, ok)
	assert.Contains(t, reason, "directory")
}

func TestDurationFakeProbe(t *testing.T) {
	tmpDir := t.TempDir()

	// A fake ffprobe that reports a fixed duration exercises the
	// parsing path without a real media toolchain.
	script := "#!/bin/sh\necho '{\"format\": {\"duration\": \"12.5\"}}'\n"
	fake := filepath.Join(tmpDir, "ffprobe")
	require.NoError(t, os.WriteFile(fake, []byte(script), 0700)) // nolint:gosec

	e := &extractor{logger: logger.Noop(), ffmpeg: "ffmpeg", ffprobe: fake}

	duration, err := e.Duration(context.Background(), "/media/any.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, duration, 0.001)
}

func TestDurationProbeFailure(t *testing.T) {
	tmpDir := t.TempDir()

	script := "#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"
	fake := filepath.Join(tmpDir, "ffprobe")
	require.NoError(t, os.WriteFile(fake, []byte(script), 0700)) // nolint:gosec

	e := &extractor{logger: logger.Noop(), ffmpeg: "ffmpeg", ffprobe: fake}

	_, err := e.Duration(context.Background(), "/media/broken.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moov atom not found")
}

func TestDurationMissingField(t *testing.T) {
	tmpDir := t.TempDir()

	script := "#!/bin/sh\necho '{\"format\": {}}'\n"
	fake := filepath.Join(tmpDir, "ffprobe")
	require.NoError(t, os.WriteFile(fake, []byte(script), 0700)) // nolint:gosec

	e := &extractor{logger: logger.Noop(), ffmpeg: "ffmpeg", ffprobe: fake}

	_, err := e.Duration(context.Background(), "/media/any.mp4")
	assert.ErrorIs(t, err, ErrNoDuration)
}

func TestExtractFakeFFmpeg(t *testing.T) {
	tmpDir := t.TempDir()

	// The fake ffmpeg writes its last argument, mimicking a
	// successful extraction.
	script := "#!/bin/sh\nfor out; do :; done\necho audio > \"$out\"\n"
	fake := filepath.Join(tmpDir, "ffmpeg")
	require.NoError(t, os.WriteFile(fake, []byte(script), 0700)) // nolint:gosec

	e := &extractor{logger: logger.Noop(), ffmpeg: fake, ffprobe: "ffprobe"}

	output := filepath.Join(tmpDir, "out", "clip.m4a")
	err := e.Extract(context.Background(), "/media/clip.mp4", output, "medium")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestExtractFFmpegFailure(t *testing.T) {
	tmpDir := t.TempDir()

	script := "#!/bin/sh\necho 'Invalid data found' >&2\nexit 1\n"
	fake := filepath.Join(tmpDir, "ffmpeg")
	require.NoError(t, os.WriteFile(fake, []byte(script), 0700)) // nolint:gosec

	e := &extractor{logger: logger.Noop(), ffmpeg: fake, ffprobe: "ffprobe"}

	err := e.Extract(context.Background(), "/media/clip.mp4", filepath.Join(tmpDir, "out.m4a"), "medium")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestExtractEmptyOutput(t *testing.T) {
	tmpDir := t.TempDir()

	// ffmpeg "succeeds" but writes nothing.
	script := "#!/bin/sh\nexit 0\n"
	fake := filepath.Join(tmpDir, "ffmpeg")
	require.NoError(t, os.WriteFile(fake, []byte(script), 0700)) // nolint:gosec

	e := &extractor{logger: logger.Noop(), ffmpeg: fake, ffprobe: "ffprobe"}

	err := e.Extract(context.Background(), "/media/clip.mp4", filepath.Join(tmpDir, "out.m4a"), "medium")
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestToolsAvailable(t *testing.T) {
	e := &extractor{
		logger:  logger.Noop(),
		ffmpeg:  "definitely-not-a-real-binary",
		ffprobe: "also-not-real",
	}

	assert.False(t, e.ToolsAvailable())
}

func TestProfileFallback(t *testing.T) {
	_, known := profiles["medium"]
	require.True(t, known)

	_, unknown := profiles["ultra"]
	assert.False(t, unknown)
}
