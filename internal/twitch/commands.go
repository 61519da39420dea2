// Package twitch builds TwitchDownloaderCLI invocations.
// The builders are pure: they only translate validated options into argv.
package twitch

import (
	"strconv"
)

// DefaultBinary is the TwitchDownloaderCLI executable looked up on PATH.
const DefaultBinary = "TwitchDownloaderCLI"

// Window is an optional clip window in H:MM:SS or HH:MM:SS form.
// Empty fields mean the boundary is not set.
type Window struct {
	Beginning string
	Ending    string
}

// VideoDownloadOptions configures the videodownload command.
type VideoDownloadOptions struct {
	VodID   string
	Output  string
	Quality string
	Threads int
	// Bandwidth is the per-thread cap in KiB/s; nil means unlimited.
	Bandwidth *int
	Window    Window
	TempDir   string
}

// ChatDownloadOptions configures the chatdownload command.
type ChatDownloadOptions struct {
	VodID   string
	Output  string
	Threads int
	Window  Window
	TempDir string
}

// ChatRenderOptions configures the chatrender command.
type ChatRenderOptions struct {
	Input           string
	Output          string
	Width           int
	Height          int
	FontSize        int
	Framerate       int
	UpdateRate      float64
	BackgroundColor string
	Outline         bool
	TempDir         string
}

// CommandBuilder produces argv slices for one TwitchDownloaderCLI binary.
type CommandBuilder struct {
	binary string
}

// NewCommandBuilder creates a builder for the given binary.
// If binary is empty, it defaults to DefaultBinary.
func NewCommandBuilder(binary string) *CommandBuilder {
	if binary == "" {
		binary = DefaultBinary
	}
	return &CommandBuilder{binary: binary}
}

// VideoDownload returns the argv downloading a VOD to opts.Output.
func (b *CommandBuilder) VideoDownload(opts VideoDownloadOptions) []string {
	args := []string{b.binary, "videodownload", "--id", opts.VodID, "-o", opts.Output}
	if opts.Quality != "" {
		args = append(args, "--quality", opts.Quality)
	}
	args = append(args, "--threads", strconv.Itoa(opts.Threads))
	if opts.Bandwidth != nil {
		args = append(args, "--bandwidth", strconv.Itoa(*opts.Bandwidth))
	}
	args = appendWindow(args, opts.Window)
	return append(args, "--temp-path", opts.TempDir)
}

// ChatDownload returns the argv downloading the chat transcript as gzip JSON
// with embedded images, which keeps rendering independent of the network.
func (b *CommandBuilder) ChatDownload(opts ChatDownloadOptions) []string {
	args := []string{
		b.binary, "chatdownload",
		"--id", opts.VodID,
		"-o", opts.Output,
		"--compression", "Gzip",
		"-E",
		"--threads", strconv.Itoa(opts.Threads),
		"--temp-path", opts.TempDir,
	}
	return appendWindow(args, opts.Window)
}

// ChatRender returns the argv rendering a chat transcript into a video.
func (b *CommandBuilder) ChatRender(opts ChatRenderOptions) []string {
	args := []string{
		b.binary, "chatrender",
		"-i", opts.Input,
		"-o", opts.Output,
		"-w", strconv.Itoa(opts.Width),
		"-h", strconv.Itoa(opts.Height),
		"--font-size", strconv.Itoa(opts.FontSize),
		"--framerate", strconv.Itoa(opts.Framerate),
		"--update-rate", strconv.FormatFloat(opts.UpdateRate, 'f', -1, 64),
		"--background-color", opts.BackgroundColor,
		"--temp-path", opts.TempDir,
		"--readable-colors", "true",
	}
	if opts.Outline {
		args = append(args, "--outline")
	}
	return args
}

func appendWindow(args []string, w Window) []string {
	if w.Beginning != "" {
		args = append(args, "--beginning", w.Beginning)
	}
	if w.Ending != "" {
		args = append(args, "--ending", w.Ending)
	}
	return args
}
