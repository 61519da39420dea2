package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMap(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return load(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.AdminToken)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "/tmp/downloads", cfg.DownloadDir)
	assert.Equal(t, "/tmp", cfg.ScratchDir)
	assert.Equal(t, 3, cfg.MaxQueue)
	assert.Equal(t, 30, cfg.MaxJobsInMemory)
	assert.Equal(t, 450, cfg.KeepLogLines)
	assert.Equal(t, 800, cfg.MinFreeOutputMB)
	assert.Equal(t, 200, cfg.MinFreeScratchMB)
	assert.Equal(t, 1080, cfg.ChatHeight)
	assert.Equal(t, "TwitchDownloaderCLI", cfg.TwitchDownloaderBin)
	assert.Equal(t, "ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, 3*time.Second, cfg.KillGrace)
	assert.Empty(t, cfg.HintRulesFile)
	assert.False(t, cfg.S3Enabled())
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{
		"PORT":                  "3000",
		"ADMIN_TOKEN":           "token",
		"CORS_ALLOWED_ORIGINS":  "https://a.example,https://b.example",
		"DOWNLOAD_DIR":          "/data/out",
		"SCRATCH_DIR":           "/data/tmp",
		"MAX_QUEUE":             "5",
		"MAX_JOBS_IN_MEMORY":    "10",
		"KEEP_LOG_LINES":        "100",
		"MIN_FREE_OUTPUT_MB":    "1000",
		"MIN_FREE_SCRATCH_MB":   "0",
		"CHAT_HEIGHT":           "720",
		"TWITCH_DOWNLOADER_BIN": "/opt/tdcli",
		"FFMPEG_BIN":            "/usr/bin/ffmpeg",
		"KILL_GRACE":            "500ms",
		"HINT_RULES_FILE":       "/etc/hints.yaml",
		"S3_BUCKET":             "my-bucket",
		"S3_REGION":             "us-east-1",
		"S3_ENDPOINT":           "http://localhost:4566",
		"AWS_ACCESS_KEY_ID":     "access-key",
		"AWS_SECRET_ACCESS_KEY": "secret-key",
		"LOG_FORMAT":            "json",
		"LOG_LEVEL":             "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "token", cfg.AdminToken)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "/data/out", cfg.DownloadDir)
	assert.Equal(t, "/data/tmp", cfg.ScratchDir)
	assert.Equal(t, 5, cfg.MaxQueue)
	assert.Equal(t, 10, cfg.MaxJobsInMemory)
	assert.Equal(t, 100, cfg.KeepLogLines)
	assert.Equal(t, uint64(1000*1000*1000), cfg.MinFreeOutput())
	assert.Equal(t, uint64(0), cfg.MinFreeScratch())
	assert.Equal(t, 720, cfg.ChatHeight)
	assert.Equal(t, "/opt/tdcli", cfg.TwitchDownloaderBin)
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, 500*time.Millisecond, cfg.KillGrace)
	assert.Equal(t, "/etc/hints.yaml", cfg.HintRulesFile)
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, "http://localhost:4566", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"non numeric port", map[string]string{"PORT": "not-a-number"}, nil},
		{"bad duration", map[string]string{"KILL_GRACE": "soon"}, nil},
		{"port out of range", map[string]string{"PORT": "70000"}, ErrInvalidPort},
		{"zero queue", map[string]string{"MAX_QUEUE": "0"}, ErrInvalidQueueSize},
		{"zero max jobs", map[string]string{"MAX_JOBS_IN_MEMORY": "0"}, ErrInvalidMaxJobs},
		{"negative log lines", map[string]string{"KEEP_LOG_LINES": "-1"}, ErrInvalidLogLines},
		{"negative kill grace", map[string]string{"KILL_GRACE": "-1s"}, ErrInvalidKillGrace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMap(t, tt.env)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("MAX_QUEUE", "7")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxQueue)
	assert.Equal(t, 9090, cfg.Port)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_MinFree(t *testing.T) {
	cfg := &Config{MinFreeOutputMB: 800, MinFreeScratchMB: -5}

	assert.Equal(t, uint64(800_000_000), cfg.MinFreeOutput())
	assert.Equal(t, uint64(0), cfg.MinFreeScratch())
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		AdminToken:         "admin-secret",
		DownloadDir:        "/tmp/test",
		MaxQueue:           3,
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "AKIAEXAMPLE",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "admin-secret")
	assert.NotContains(t, str, "AKIAEXAMPLE")
	assert.NotContains(t, str, "secret-key")
	assert.Contains(t, str, "AdminToken: ****")
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{LogFormat: format, LogLevel: "warn"}

			logger := cfg.NewLogger()
			require.NotNil(t, logger)
			assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
			assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Port: 8080, MaxQueue: 3, MaxJobsInMemory: 30, KeepLogLines: 450}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid
		assert.NoError(t, cfg.Validate())
	})

	t.Run("zero port", func(t *testing.T) {
		cfg := valid
		cfg.Port = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)
	})

	t.Run("zero queue", func(t *testing.T) {
		cfg := valid
		cfg.MaxQueue = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidQueueSize)
	})
}
