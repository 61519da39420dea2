// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidQueueSize is returned when MAX_QUEUE is not positive.
	ErrInvalidQueueSize = errors.New("config: MAX_QUEUE must be positive")
	// ErrInvalidMaxJobs is returned when MAX_JOBS_IN_MEMORY is not positive.
	ErrInvalidMaxJobs = errors.New("config: MAX_JOBS_IN_MEMORY must be positive")
	// ErrInvalidLogLines is returned when KEEP_LOG_LINES is not positive.
	ErrInvalidLogLines = errors.New("config: KEEP_LOG_LINES must be positive")
	// ErrInvalidKillGrace is returned when KILL_GRACE is negative.
	ErrInvalidKillGrace = errors.New("config: KILL_GRACE must not be negative")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port        int      `env:"PORT, default=8080" json:"port"`
	AdminToken  string   `env:"ADMIN_TOKEN" json:"-"` // Masked in JSON
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*" json:"cors_allowed_origins"`

	// Storage settings
	DownloadDir string `env:"DOWNLOAD_DIR, default=/tmp/downloads" json:"download_dir"`
	ScratchDir  string `env:"SCRATCH_DIR, default=/tmp" json:"scratch_dir"`

	// Job settings
	MaxQueue         int `env:"MAX_QUEUE, default=3" json:"max_queue"`
	MaxJobsInMemory  int `env:"MAX_JOBS_IN_MEMORY, default=30" json:"max_jobs_in_memory"`
	KeepLogLines     int `env:"KEEP_LOG_LINES, default=450" json:"keep_log_lines"`
	MinFreeOutputMB  int `env:"MIN_FREE_OUTPUT_MB, default=800" json:"min_free_output_mb"`
	MinFreeScratchMB int `env:"MIN_FREE_SCRATCH_MB, default=200" json:"min_free_scratch_mb"`
	ChatHeight       int `env:"CHAT_HEIGHT, default=1080" json:"chat_height"`

	// External tools
	TwitchDownloaderBin string        `env:"TWITCH_DOWNLOADER_BIN, default=TwitchDownloaderCLI" json:"twitch_downloader_bin"`
	FFmpegBin           string        `env:"FFMPEG_BIN, default=ffmpeg" json:"ffmpeg_bin"`
	KillGrace           time.Duration `env:"KILL_GRACE, default=3s" json:"kill_grace"`
	HintRulesFile       string        `env:"HINT_RULES_FILE" json:"hint_rules_file,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MinFreeOutput returns the free space required in DownloadDir, in bytes.
// Non-positive values disable the check.
func (c *Config) MinFreeOutput() uint64 {
	return megabytes(c.MinFreeOutputMB)
}

// MinFreeScratch returns the free space required in ScratchDir, in bytes.
func (c *Config) MinFreeScratch() uint64 {
	return megabytes(c.MinFreeScratchMB)
}

func megabytes(mb int) uint64 {
	if mb <= 0 {
		return 0
	}
	return uint64(mb) * humanize.MByte
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that numeric settings are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxQueue <= 0 {
		return ErrInvalidQueueSize
	}
	if c.MaxJobsInMemory <= 0 {
		return ErrInvalidMaxJobs
	}
	if c.KeepLogLines <= 0 {
		return ErrInvalidLogLines
	}
	if c.KillGrace < 0 {
		return ErrInvalidKillGrace
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, AdminToken: %s, DownloadDir: %s, ScratchDir: %s, MaxQueue: %d, MaxJobsInMemory: %d, KeepLogLines: %d, MinFreeOutputMB: %d, MinFreeScratchMB: %d, TwitchDownloaderBin: %s, FFmpegBin: %s, KillGrace: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		mask(c.AdminToken),
		c.DownloadDir,
		c.ScratchDir,
		c.MaxQueue,
		c.MaxJobsInMemory,
		c.KeepLogLines,
		c.MinFreeOutputMB,
		c.MinFreeScratchMB,
		c.TwitchDownloaderBin,
		c.FFmpegBin,
		c.KillGrace,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
