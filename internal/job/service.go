package job

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/maauso/vodcompose/internal/hint"
	"github.com/maauso/vodcompose/internal/logbuf"
	"github.com/maauso/vodcompose/internal/media"
	"github.com/maauso/vodcompose/internal/preflight"
	"github.com/maauso/vodcompose/internal/runner"
	"github.com/maauso/vodcompose/internal/storage"
	"github.com/maauso/vodcompose/internal/twitch"
)

// DefaultChatHeight is the rendered chat height and the common height of the
// composed video.
const DefaultChatHeight = 1080

var (
	// ErrNotReady is returned when the result of a job that is not done is requested.
	ErrNotReady = errors.New("job is not done")
	// ErrArtifactMissing is returned when a done job's file no longer exists.
	ErrArtifactMissing = errors.New("job file expired or missing")
)

// CommandRunner executes one pipeline stage, streaming output into target.
type CommandRunner interface {
	Run(ctx context.Context, stage string, argv []string, target runner.Target) error
}

// SpaceChecker verifies free disk space before a job starts.
type SpaceChecker interface {
	Check(reqs ...preflight.Requirement) error
}

// Option configures a Service.
type Option func(*Service)

// WithCommandBuilder sets the TwitchDownloaderCLI command builder.
func WithCommandBuilder(b *twitch.CommandBuilder) Option {
	return func(s *Service) { s.twitch = b }
}

// WithCompositor sets the ffmpeg command builder used by the combine stage.
func WithCompositor(c *media.FFmpegCompositor) Option {
	return func(s *Service) { s.compositor = c }
}

// WithHintClassifier sets the classifier applied to failed jobs' logs.
func WithHintClassifier(c *hint.Classifier) Option {
	return func(s *Service) { s.hints = c }
}

// WithScratchDir sets the directory the external tools use for temporary files.
func WithScratchDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.scratchDir = dir
		}
	}
}

// WithChatHeight sets the chat render height.
func WithChatHeight(h int) Option {
	return func(s *Service) {
		if h > 0 {
			s.chatHeight = h
		}
	}
}

// WithMinFreeSpace sets the preflight thresholds in bytes.
func WithMinFreeSpace(output, scratch uint64) Option {
	return func(s *Service) {
		s.minFreeOutput = output
		s.minFreeScratch = scratch
	}
}

// WithLogLines sets how many log lines each job retains.
func WithLogLines(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.logLines = n
		}
	}
}

// Service accepts job submissions and runs them one at a time.
type Service struct {
	registry   *Registry
	queue      *Queue
	runner     CommandRunner
	space      SpaceChecker
	storage    storage.Storage
	twitch     *twitch.CommandBuilder
	compositor *media.FFmpegCompositor
	hints      *hint.Classifier
	logger     *slog.Logger

	scratchDir     string
	chatHeight     int
	minFreeOutput  uint64
	minFreeScratch uint64
	logLines       int

	// submitMu makes the capacity check and the enqueue one step.
	submitMu sync.Mutex
}

// NewService creates a Service. Run must be started for jobs to make progress.
func NewService(
	registry *Registry,
	queue *Queue,
	run CommandRunner,
	space SpaceChecker,
	store storage.Storage,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		registry:       registry,
		queue:          queue,
		runner:         run,
		space:          space,
		storage:        store,
		twitch:         twitch.NewCommandBuilder(""),
		compositor:     media.NewFFmpegCompositor(""),
		hints:          hint.NewClassifier(nil),
		logger:         logger,
		scratchDir:     os.TempDir(),
		chatHeight:     DefaultChatHeight,
		minFreeOutput:  preflight.DefaultMinFreeOutput,
		minFreeScratch: preflight.DefaultMinFreeScratch,
		logLines:       logbuf.DefaultMaxLines,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob registers a queued job for params and hands it to the worker.
// Returns ErrQueueFull without creating anything if the queue is at capacity.
func (s *Service) CreateJob(ctx context.Context, params Params) (*Job, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	if s.queue.Len() >= s.queue.Cap() {
		return nil, ErrQueueFull
	}

	j := New(params, s.storage.Dir(), s.logLines)
	s.registry.Insert(ctx, j)
	if err := s.queue.Submit(j); err != nil {
		_ = s.registry.Delete(ctx, j.ID)
		return nil, err
	}

	s.logger.Info("job queued",
		slog.String("job_id", j.ID),
		slog.String("vod_id", j.VodID),
		slog.Bool("include_chat", params.IncludeChat),
		slog.Int("queue_len", s.queue.Len()),
	)
	return j, nil
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(id string) (*Job, error) {
	return s.registry.Get(id)
}

// ListJobs returns all retained jobs, newest first.
func (s *Service) ListJobs() []*Job {
	return s.registry.List()
}

// CancelJob requests cancellation. A job that has not started yet fails
// immediately and never runs; a running job stops at its next output line.
func (s *Service) CancelJob(id string) error {
	j, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	j.RequestCancel()
	if j.cancelIfQueued() {
		s.logger.Info("queued job cancelled", slog.String("job_id", id))
	}
	return nil
}

// DeleteJob removes a job and its files.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	return s.registry.Delete(ctx, id)
}

// QueueLen returns the number of jobs waiting for the worker.
func (s *Service) QueueLen() int {
	return s.queue.Len()
}

// QueueCap returns the admission queue capacity.
func (s *Service) QueueCap() int {
	return s.queue.Cap()
}

// OpenResult opens the final artifact of a done job.
// The caller is responsible for closing the returned File.
func (s *Service) OpenResult(ctx context.Context, id string) (storage.File, Snapshot, error) {
	j, err := s.registry.Get(id)
	if err != nil {
		return nil, Snapshot{}, err
	}
	snap := j.Snapshot()
	if snap.Status != StatusDone {
		return nil, snap, ErrNotReady
	}
	if snap.Path == "" {
		return nil, snap, ErrArtifactMissing
	}
	f, err := s.storage.Open(ctx, snap.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, snap, fmt.Errorf("%w: %s", ErrArtifactMissing, snap.FileName)
	}
	if err != nil {
		return nil, snap, err
	}
	return f, snap, nil
}
