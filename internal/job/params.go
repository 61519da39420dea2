package job

import (
	"fmt"
	"path/filepath"
)

// Request defaults and bounds. Values outside a bound are clamped to it.
const (
	DefaultQuality         = "1080p60"
	DefaultThreads         = 2
	MinThreads             = 1
	MaxThreads             = 4
	MinBandwidth           = 64
	MaxBandwidth           = 20000
	DefaultChatWidth       = 422
	MinChatWidth           = 250
	MaxChatWidth           = 900
	DefaultFontSize        = 18
	MinFontSize            = 10
	MaxFontSize            = 52
	DefaultFramerate       = 30
	MinFramerate           = 10
	MaxFramerate           = 60
	DefaultUpdateRate      = 0.2
	MinUpdateRate          = 0.0
	MaxUpdateRate          = 2.0
	DefaultBackgroundColor = "#111111"
	DefaultQualityFactor   = 18
	MinQualityFactor       = 18
	MaxQualityFactor       = 28
)

// Params is a validated job request.
type Params struct {
	VodID   string
	Quality string
	Threads int
	// Bandwidth is the per-thread download cap in KiB/s; nil means unlimited.
	Bandwidth *int
	// Beginning and Ending bound the clip; empty means unbounded.
	Beginning string
	Ending    string

	IncludeChat     bool
	ChatWidth       int
	FontSize        int
	Framerate       int
	UpdateRate      float64
	BackgroundColor string
	Outline         bool
	QualityFactor   int

	PushToS3 bool
}

// DefaultParams returns the parameters used for fields a request leaves out.
func DefaultParams(vodID string) Params {
	return Params{
		VodID:           vodID,
		Quality:         DefaultQuality,
		Threads:         DefaultThreads,
		IncludeChat:     true,
		ChatWidth:       DefaultChatWidth,
		FontSize:        DefaultFontSize,
		Framerate:       DefaultFramerate,
		UpdateRate:      DefaultUpdateRate,
		BackgroundColor: DefaultBackgroundColor,
		QualityFactor:   DefaultQualityFactor,
	}
}

// Clamped returns a copy of p with every numeric field forced into its range.
func (p Params) Clamped() Params {
	p.Threads = clamp(p.Threads, MinThreads, MaxThreads)
	if p.Bandwidth != nil {
		bw := clamp(*p.Bandwidth, MinBandwidth, MaxBandwidth)
		p.Bandwidth = &bw
	}
	p.ChatWidth = clamp(p.ChatWidth, MinChatWidth, MaxChatWidth)
	p.FontSize = clamp(p.FontSize, MinFontSize, MaxFontSize)
	p.Framerate = clamp(p.Framerate, MinFramerate, MaxFramerate)
	p.UpdateRate = clamp(p.UpdateRate, MinUpdateRate, MaxUpdateRate)
	p.QualityFactor = clamp(p.QualityFactor, MinQualityFactor, MaxQualityFactor)
	return p
}

func clamp[T int | float64](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// Artifacts are every file a job may create. They are fixed at submission so
// cleanup works even for stages that never ran.
type Artifacts struct {
	Video     string
	ChatJSON  string
	ChatVideo string
	Final     string
}

// NewArtifacts derives the artifact paths for a job inside dir.
func NewArtifacts(dir, vodID, jobID string) Artifacts {
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", vodID, jobID))
	return Artifacts{
		Video:     base + ".video.mp4",
		ChatJSON:  base + ".chat.json.gz",
		ChatVideo: base + ".chat.mp4",
		Final:     base + ".final.mp4",
	}
}

// All returns every artifact path.
func (a Artifacts) All() []string {
	return []string{a.Video, a.ChatJSON, a.ChatVideo, a.Final}
}

// Intermediates returns the paths that never survive a successful run.
func (a Artifacts) Intermediates() []string {
	return []string{a.ChatJSON, a.ChatVideo, a.Video}
}
