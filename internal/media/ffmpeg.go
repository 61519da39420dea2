// Package media builds ffmpeg invocations that composite the downloaded VOD
// with the rendered chat overlay.
package media

import (
	"errors"
	"fmt"
)

// Defaults for the side-by-side composition.
const (
	// DefaultVideoWidth is the width the primary video is scaled and padded to.
	DefaultVideoWidth = 1920
	// DefaultQualityFactor is the libx264 CRF used when none is requested.
	DefaultQualityFactor = 18
	// MinQualityFactor and MaxQualityFactor bound the accepted CRF range.
	MinQualityFactor = 18
	MaxQualityFactor = 28
)

// ErrInvalidDimensions is returned when a composition dimension is not positive.
var ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")

// SideBySideOptions describes one combine invocation.
type SideBySideOptions struct {
	VideoPath string
	ChatPath  string
	Output    string
	// Height is the common height both inputs are scaled to.
	Height int
	// VideoWidth is the padded width of the primary video; 0 means DefaultVideoWidth.
	VideoWidth int
	// ChatWidth is the padded width of the chat overlay.
	ChatWidth int
	// QualityFactor is the libx264 CRF; 0 means DefaultQualityFactor.
	QualityFactor int
}

// FFmpegCompositor builds ffmpeg argv slices.
type FFmpegCompositor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegCompositor creates a new FFmpegCompositor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegCompositor(ffmpegPath string) *FFmpegCompositor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegCompositor{ffmpegPath: ffmpegPath}
}

// SideBySide returns the argv stacking the video and chat horizontally.
// Both inputs are scaled to fit inside their slot with the aspect ratio kept
// and padded to the exact slot size. Audio is copied from the primary input
// when it has any.
func (c *FFmpegCompositor) SideBySide(opts SideBySideOptions) ([]string, error) {
	videoWidth := opts.VideoWidth
	if videoWidth == 0 {
		videoWidth = DefaultVideoWidth
	}
	if opts.Height <= 0 || opts.ChatWidth <= 0 || videoWidth <= 0 {
		return nil, fmt.Errorf("%w: video=%dx%d, chat=%dx%d",
			ErrInvalidDimensions, videoWidth, opts.Height, opts.ChatWidth, opts.Height)
	}
	crf := opts.QualityFactor
	if crf == 0 {
		crf = DefaultQualityFactor
	}

	return []string{
		c.ffmpegPath,
		"-y", // Overwrite output file without asking
		"-i", opts.VideoPath,
		"-i", opts.ChatPath,
		"-filter_complex", SideBySideFilter(videoWidth, opts.ChatWidth, opts.Height),
		"-map", "[v]",
		"-map", "0:a?", // Optional: VODs without audio still combine
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", fmt.Sprintf("%d", crf),
		"-c:a", "aac",
		"-b:a", "160k",
		"-movflags", "+faststart",
		opts.Output,
	}, nil
}

// SideBySideFilter returns the filter graph used by SideBySide.
// The output is videoWidth+chatWidth pixels wide and height pixels tall.
func SideBySideFilter(videoWidth, chatWidth, height int) string {
	return fmt.Sprintf("%s[vid];%s[chat];[vid][chat]hstack=inputs=2[v]",
		fitFilter("[0:v]", videoWidth, height),
		fitFilter("[1:v]", chatWidth, height),
	)
}

// fitFilter scales an input into w x h and centres it with padding.
func fitFilter(input string, w, h int) string {
	return fmt.Sprintf("%sscale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		input, w, h, w, h)
}
