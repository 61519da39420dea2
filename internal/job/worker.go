package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"

	"github.com/maauso/vodcompose/internal/media"
	"github.com/maauso/vodcompose/internal/preflight"
	"github.com/maauso/vodcompose/internal/runner"
	"github.com/maauso/vodcompose/internal/storage"
	"github.com/maauso/vodcompose/internal/twitch"
)

// Run is the worker loop. It executes queued jobs one at a time until ctx is
// done. A failing job never stops the loop.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("worker started", slog.Int("queue_cap", s.queue.Cap()))
	for {
		j, err := s.queue.Next(ctx)
		if err != nil {
			s.logger.Info("worker stopped")
			return
		}
		s.process(ctx, j)
	}
}

func (s *Service) process(ctx context.Context, j *Job) {
	logger := s.logger.With(
		slog.String("job_id", j.ID),
		slog.String("vod_id", j.VodID),
	)

	if _, err := s.registry.Get(j.ID); err != nil {
		logger.Info("job removed before start, skipping")
		return
	}
	if j.CancelRequested() {
		if j.cancelIfQueued() {
			logger.Info("job cancelled before start")
		}
		return
	}
	if err := j.Start(); err != nil {
		logger.Info("job no longer startable, skipping", slog.String("status", string(j.GetStatus())))
		return
	}
	logger.Info("job started", slog.Bool("include_chat", j.Params.IncludeChat))

	err := s.execute(ctx, j)
	if err == nil {
		logger.Info("job done", slog.String("path", j.Path()))
		return
	}
	s.fail(ctx, j, err, logger)
}

// execute runs the preflight and every stage. A panic is returned as an error.
func (s *Service) execute(ctx context.Context, j *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
			s.logger.Error("panic while processing job",
				slog.String("job_id", j.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := s.space.Check(
		preflight.Requirement{Name: "download dir", Path: s.storage.Dir(), MinFree: s.minFreeOutput},
		preflight.Requirement{Name: "temp dir", Path: s.scratchDir, MinFree: s.minFreeScratch},
	); err != nil {
		return err
	}

	p, a := j.Params, j.Artifacts
	window := twitch.Window{Beginning: p.Beginning, Ending: p.Ending}

	if err := s.runStage(ctx, j, StageVideoDownload, s.twitch.VideoDownload(twitch.VideoDownloadOptions{
		VodID:     p.VodID,
		Output:    a.Video,
		Quality:   p.Quality,
		Threads:   p.Threads,
		Bandwidth: p.Bandwidth,
		Window:    window,
		TempDir:   s.scratchDir,
	})); err != nil {
		return err
	}

	if !p.IncludeChat {
		if err := s.storage.Promote(ctx, a.Video, a.Final); err != nil {
			return err
		}
	} else {
		if err := s.runChatStages(ctx, j, window); err != nil {
			return err
		}
	}

	var url, key string
	if p.PushToS3 {
		if j.CancelRequested() {
			return runner.ErrCancelled
		}
		url, key, err = s.publish(ctx, j)
		if err != nil {
			return err
		}
	}

	if err := j.Complete(a.Final, url, key); err != nil {
		if errors.Is(err, ErrCancelRequested) {
			s.unpublish(ctx, j, key)
			return runner.ErrCancelled
		}
		return err
	}
	return nil
}

func (s *Service) runChatStages(ctx context.Context, j *Job, window twitch.Window) error {
	p, a := j.Params, j.Artifacts

	if err := s.runStage(ctx, j, StageChatDownload, s.twitch.ChatDownload(twitch.ChatDownloadOptions{
		VodID:   p.VodID,
		Output:  a.ChatJSON,
		Threads: p.Threads,
		Window:  window,
		TempDir: s.scratchDir,
	})); err != nil {
		return err
	}

	if err := s.runStage(ctx, j, StageChatRender, s.twitch.ChatRender(twitch.ChatRenderOptions{
		Input:           a.ChatJSON,
		Output:          a.ChatVideo,
		Width:           p.ChatWidth,
		Height:          s.chatHeight,
		FontSize:        p.FontSize,
		Framerate:       p.Framerate,
		UpdateRate:      p.UpdateRate,
		BackgroundColor: p.BackgroundColor,
		Outline:         p.Outline,
		TempDir:         s.scratchDir,
	})); err != nil {
		return err
	}

	combine, err := s.compositor.SideBySide(media.SideBySideOptions{
		VideoPath:     a.Video,
		ChatPath:      a.ChatVideo,
		Output:        a.Final,
		Height:        s.chatHeight,
		ChatWidth:     p.ChatWidth,
		QualityFactor: p.QualityFactor,
	})
	if err != nil {
		return err
	}
	if err := s.runStage(ctx, j, StageCombine, combine); err != nil {
		return err
	}

	if err := s.storage.Cleanup(ctx, a.Intermediates()); err != nil {
		s.logger.Warn("failed to remove intermediate files",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (s *Service) runStage(ctx context.Context, j *Job, stage string, argv []string) error {
	if j.CancelRequested() {
		return runner.ErrCancelled
	}
	j.SetStage(stage)
	return s.runner.Run(ctx, stage, argv, j)
}

// publish uploads the final artifact. Without S3 configuration the job keeps
// its local file only.
func (s *Service) publish(ctx context.Context, j *Job) (string, string, error) {
	j.SetStage(StagePublish)
	j.AppendLog("=== " + StagePublish + " ===")

	key := filepath.Base(j.Artifacts.Final)
	f, err := s.storage.Open(ctx, j.Artifacts.Final)
	if err != nil {
		return "", "", fmt.Errorf("%s failed: %w", StagePublish, err)
	}
	defer func() { _ = f.Close() }()

	uploadCtx, stop := s.withJobCancel(ctx, j)
	defer stop()

	url, err := s.storage.UploadToS3(uploadCtx, key, f)
	if j.CancelRequested() {
		s.unpublish(ctx, j, key)
		return "", "", runner.ErrCancelled
	}
	if errors.Is(err, storage.ErrS3NotConfigured) {
		j.AppendLog("S3 is not configured, keeping the local file only")
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("%s failed: %w", StagePublish, err)
	}
	j.AppendLog("Uploaded to " + url)
	return url, key, nil
}

// withJobCancel returns a context that is also cancelled when cancellation of
// j is requested, for work that does not poll the flag itself.
func (s *Service) withJobCancel(ctx context.Context, j *Job) (context.Context, context.CancelFunc) {
	jobCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-j.cancelSignal():
			cancel()
		case <-jobCtx.Done():
		}
	}()
	return jobCtx, cancel
}

// unpublish removes an uploaded copy of a job that will not complete.
func (s *Service) unpublish(ctx context.Context, j *Job, key string) {
	if key == "" {
		return
	}
	err := s.storage.DeleteFromS3(context.WithoutCancel(ctx), key)
	if err != nil && !errors.Is(err, storage.ErrS3NotConfigured) {
		s.logger.Warn("failed to delete published copy",
			slog.String("job_id", j.ID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// fail records the error and hint and removes every artifact of the job.
func (s *Service) fail(ctx context.Context, j *Job, err error, logger *slog.Logger) {
	msg := err.Error()
	if errors.Is(err, runner.ErrCancelled) {
		msg = CancelledMessage
	} else {
		j.AppendLog("ERROR: " + msg)
	}
	hint := s.hints.Classify(j.LogText())

	if cleanupErr := s.storage.Cleanup(context.WithoutCancel(ctx), j.Artifacts.All()); cleanupErr != nil {
		logger.Warn("failed to remove job files", slog.String("error", cleanupErr.Error()))
	}

	if failErr := j.Fail(msg, hint); failErr != nil {
		logger.Error("failed to record job failure", slog.String("error", failErr.Error()))
		return
	}
	logger.Warn("job failed",
		slog.String("error", msg),
		slog.String("hint", hint),
	)
}
