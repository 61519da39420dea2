// Package job provides the Job aggregate, the bounded job registry, the
// admission queue and the sequential pipeline worker that drives a job
// through its stages.
package job

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maauso/vodcompose/internal/job/id"
	"github.com/maauso/vodcompose/internal/logbuf"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusQueued indicates the job is waiting in the admission queue.
	StatusQueued Status = "queued"
	// StatusRunning indicates the worker is executing the job's stages.
	StatusRunning Status = "running"
	// StatusDone indicates the final artifact is available.
	StatusDone Status = "done"
	// StatusError indicates the job failed or was cancelled.
	StatusError Status = "error"
)

// Stage labels. While running, the stage is the label of the current step.
const (
	StageQueued        = "queued"
	StageVideoDownload = "VideoDownload"
	StageChatDownload  = "ChatDownload"
	StageChatRender    = "ChatRender"
	StageCombine       = "Combine (Video + Chat)"
	StagePublish       = "Publish"
	StageDone          = "done"
	StageFailed        = "failed"
)

// CancelledMessage is the error recorded for a job stopped at a user's request.
const CancelledMessage = "Cancelled by user"

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrCancelRequested is returned by Complete when the job was cancelled first.
var ErrCancelRequested = errors.New("cancel requested before completion")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusError},
	StatusRunning: {StatusDone, StatusError},
	StatusDone:    {},
	StatusError:   {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job is one composition request and its observable progress.
//
// ID, VodID, Params, Artifacts and CreatedAt never change after New.
// The remaining state is written only by the worker that owns the job, except
// the cancel flag which any goroutine may set.
type Job struct {
	ID        string
	VodID     string
	Params    Params
	Artifacts Artifacts
	CreatedAt time.Time

	cancel     atomic.Bool
	cancelOnce sync.Once
	cancelled  chan struct{}
	log        *logbuf.Buffer

	mu         sync.RWMutex
	status     Status
	stage      string
	startedAt  time.Time
	finishedAt time.Time
	err        string
	hint       string
	path       string
	videoURL   string
	s3Key      string
}

// New creates a queued Job whose artifacts live in dir.
func New(params Params, dir string, logLines int) *Job {
	return NewWithID(id.Generate(), params, dir, logLines)
}

// NewWithID creates a queued Job with the specified ID.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string, params Params, dir string, logLines int) *Job {
	return &Job{
		ID:        jobID,
		VodID:     params.VodID,
		Params:    params,
		Artifacts: NewArtifacts(dir, params.VodID, jobID),
		CreatedAt: time.Now(),
		cancelled: make(chan struct{}),
		log:       logbuf.New(logLines),
		status:    StatusQueued,
		stage:     StageQueued,
	}
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.status, status) {
		return ErrInvalidTransition
	}
	j.status = status
	return nil
}

// Start moves a queued job to running and records the start time.
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusRunning); err != nil {
		return err
	}
	j.startedAt = time.Now()
	j.finishedAt = time.Time{}
	j.err = ""
	j.hint = ""
	return nil
}

// SetStage records the label of the step currently executing.
func (j *Job) SetStage(stage string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage = stage
}

// Complete marks the job done with its final artifact and optional published copy.
// It returns ErrCancelRequested, leaving the job running, if cancellation was
// requested first.
func (j *Job) Complete(path, videoURL, s3Key string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel.Load() {
		return ErrCancelRequested
	}
	if err := j.transitionLocked(StatusDone); err != nil {
		return err
	}
	j.stage = StageDone
	j.path = path
	j.videoURL = videoURL
	j.s3Key = s3Key
	j.finishedAt = time.Now()
	return nil
}

// Fail marks the job as errored. A queued job can fail without ever running.
func (j *Job) Fail(errMsg, hint string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusError); err != nil {
		return err
	}
	j.stage = StageFailed
	j.err = errMsg
	j.hint = hint
	j.path = ""
	j.finishedAt = time.Now()
	return nil
}

// cancelIfQueued fails the job with CancelledMessage if it has not started.
func (j *Job) cancelIfQueued() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusQueued {
		return false
	}
	j.status = StatusError
	j.stage = StageFailed
	j.err = CancelledMessage
	j.finishedAt = time.Now()
	return true
}

// AppendLog adds output to the job's bounded log.
func (j *Job) AppendLog(line string) {
	j.log.Append(line)
}

// LogText returns the retained log as one string.
func (j *Job) LogText() string {
	return j.log.String()
}

// RequestCancel sets the cancel flag. It is idempotent and safe to call from
// any goroutine.
func (j *Job) RequestCancel() {
	j.cancel.Store(true)
	j.cancelOnce.Do(func() { close(j.cancelled) })
}

// cancelSignal is closed once cancellation has been requested.
func (j *Job) cancelSignal() <-chan struct{} {
	return j.cancelled
}

// CancelRequested reports whether cancellation was requested.
func (j *Job) CancelRequested() bool {
	return j.cancel.Load()
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Path returns the final artifact path; empty unless the job is done.
func (j *Job) Path() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.path
}

// S3Key returns the key of the published copy, if any.
func (j *Job) S3Key() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.s3Key
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	s := j.GetStatus()
	return s == StatusDone || s == StatusError
}

// Snapshot is a point-in-time copy of a job for readers.
type Snapshot struct {
	ID              string
	VodID           string
	Status          Status
	Stage           string
	Quality         string
	IncludeChat     bool
	CreatedAt       time.Time
	StartedAt       time.Time
	FinishedAt      time.Time
	Log             []string
	LastLogLine     string
	Error           string
	Hint            string
	Path            string
	FileName        string
	VideoURL        string
	CancelRequested bool
}

// Snapshot returns a deep copy of the job's observable state.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		ID:              j.ID,
		VodID:           j.VodID,
		Status:          j.status,
		Stage:           j.stage,
		Quality:         j.Params.Quality,
		IncludeChat:     j.Params.IncludeChat,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.startedAt,
		FinishedAt:      j.finishedAt,
		Log:             j.log.Lines(),
		LastLogLine:     j.log.Last(),
		Error:           j.err,
		Hint:            j.hint,
		Path:            j.path,
		VideoURL:        j.videoURL,
		CancelRequested: j.cancel.Load(),
	}
	if j.path != "" {
		s.FileName = filepath.Base(j.path)
	}
	return s
}
