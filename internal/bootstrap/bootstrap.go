// Package bootstrap provides dependency initialization for the VOD compose service.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/vodcompose/internal/config"
	"github.com/maauso/vodcompose/internal/hint"
	"github.com/maauso/vodcompose/internal/job"
	"github.com/maauso/vodcompose/internal/media"
	"github.com/maauso/vodcompose/internal/preflight"
	"github.com/maauso/vodcompose/internal/runner"
	"github.com/maauso/vodcompose/internal/storage"
	"github.com/maauso/vodcompose/internal/twitch"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service *job.Service
	// Tools is the PATH lookup result for the external executables.
	Tools []preflight.ToolStatus
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	hints, err := hint.NewClassifierFromFile(cfg.HintRulesFile)
	if err != nil {
		return nil, fmt.Errorf("load hint rules: %w", err)
	}

	registry, err := job.NewRegistry(cfg.MaxJobsInMemory, store, logger)
	if err != nil {
		return nil, fmt.Errorf("create job registry: %w", err)
	}

	svc := job.NewService(
		registry,
		job.NewQueue(cfg.MaxQueue),
		runner.New(logger, runner.WithKillGrace(cfg.KillGrace)),
		preflight.NewDiskChecker(),
		store,
		logger,
		job.WithCommandBuilder(twitch.NewCommandBuilder(cfg.TwitchDownloaderBin)),
		job.WithCompositor(media.NewFFmpegCompositor(cfg.FFmpegBin)),
		job.WithHintClassifier(hints),
		job.WithScratchDir(cfg.ScratchDir),
		job.WithChatHeight(cfg.ChatHeight),
		job.WithMinFreeSpace(cfg.MinFreeOutput(), cfg.MinFreeScratch()),
		job.WithLogLines(cfg.KeepLogLines),
	)

	return &Dependencies{
		Service: svc,
		Tools:   checkTools(preflight.NewToolChecker(), cfg, logger),
	}, nil
}

// checkTools warns about missing executables. The service still starts; jobs
// fail at the stage that needs the tool.
func checkTools(checker *preflight.ToolChecker, cfg *config.Config, logger *slog.Logger) []preflight.ToolStatus {
	tools := checker.Check(cfg.TwitchDownloaderBin, cfg.FFmpegBin)
	for _, tool := range tools {
		if !tool.Found {
			logger.Warn("external tool not found on PATH",
				slog.String("tool", tool.Name),
			)
			continue
		}
		logger.Debug("external tool found",
			slog.String("tool", tool.Name),
			slog.String("path", tool.Path),
		)
	}
	return tools
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DownloadDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("download_dir", s3Store.Dir()),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("download_dir", localStore.Dir()),
	)
	return localStore, nil
}
