// Package extract shells out to ffmpeg to pull audio tracks from
// video files.
//
// It validates inputs with ffprobe before touching them and maps
// quality profile names to codec settings, so callers only choose a
// profile and a container format.
package extract

import (
	"context"
)

// Profile holds the codec settings behind a quality profile name.
type Profile struct {
	Bitrate    string
	SampleRate int
	Channels   int
}

// profiles maps quality names to settings. Unknown names fall back to
// medium.
var profiles = map[string]Profile{
	"high":   {Bitrate: "256k", SampleRate: 48000, Channels: 2},
	"medium": {Bitrate: "192k", SampleRate: 44100, Channels: 2},
	"low":    {Bitrate: "128k", SampleRate: 44100, Channels: 2},
	"voice":  {Bitrate: "64k", SampleRate: 22050, Channels: 1},
}

// codecForFormat maps container formats to ffmpeg audio codecs.
var codecForFormat = map[string]string{
	"m4a": "aac",
	"mp3": "libmp3lame",
	"wav": "pcm_s16le",
}

// Extractor validates video files and extracts their audio track.
type Extractor interface {
	// CheckVideoFile verifies the file exists, is readable, and that
	// ffprobe reports a positive duration.
	//
	// Returns ok plus a human-readable reason when the file is not
	// processable. Every failure, including a probe that cannot run
	// because ffprobe is missing, is reported as a reason; there is no
	// error return.
	CheckVideoFile(ctx context.Context, path string) (bool, string)

	// Duration returns the media duration in seconds as reported by
	// ffprobe.
	Duration(ctx context.Context, path string) (float64, error)

	// Extract writes the audio track of videoPath to outputPath using
	// the named quality profile and the container format implied by
	// outputPath's extension.
	Extract(ctx context.Context, videoPath, outputPath, quality string) error

	// ToolsAvailable reports whether ffmpeg and ffprobe can be run.
	ToolsAvailable() bool
}
