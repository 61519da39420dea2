package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/maauso/vodcompose/internal/storage"
)

// DefaultMaxJobs is the number of jobs the registry retains.
const DefaultMaxJobs = 30

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Registry is the in-memory table of jobs, bounded to the most recently
// submitted ones. Inserting past the bound evicts the oldest job by
// submission order, whatever its status, and removes its files.
//
// Entries are only ever read with Peek so lookups never change the order.
type Registry struct {
	mu      sync.Mutex
	jobs    *simplelru.LRU[string, *Job]
	removed []*Job

	storage storage.Storage
	logger  *slog.Logger
}

// NewRegistry creates a registry holding at most maxJobs jobs.
func NewRegistry(maxJobs int, store storage.Storage, logger *slog.Logger) (*Registry, error) {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{storage: store, logger: logger}
	jobs, err := simplelru.NewLRU[string, *Job](maxJobs, func(_ string, j *Job) {
		r.removed = append(r.removed, j)
	})
	if err != nil {
		return nil, fmt.Errorf("create job table: %w", err)
	}
	r.jobs = jobs
	return r, nil
}

// Insert adds a job, evicting the oldest one if the registry is full.
func (r *Registry) Insert(ctx context.Context, j *Job) {
	r.mu.Lock()
	r.jobs.Add(j.ID, j)
	evicted := r.takeRemovedLocked()
	r.mu.Unlock()

	for _, old := range evicted {
		r.logger.Info("evicting job",
			slog.String("job_id", old.ID),
			slog.String("status", string(old.GetStatus())),
		)
		r.discard(ctx, old)
	}
}

// Get returns the job with the given ID.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs.Peek(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// List returns all jobs, newest first.
func (r *Registry) List() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := r.jobs.Keys()
	out := make([]*Job, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if j, ok := r.jobs.Peek(keys[i]); ok {
			out = append(out, j)
		}
	}
	return out
}

// Len returns the number of retained jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs.Len()
}

// Delete removes a job and all of its files.
// Returns ErrJobNotFound if the job does not exist.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	present := r.jobs.Remove(id)
	removed := r.takeRemovedLocked()
	r.mu.Unlock()

	if !present {
		return ErrJobNotFound
	}
	for _, j := range removed {
		r.logger.Info("deleting job", slog.String("job_id", j.ID))
		r.discard(ctx, j)
	}
	return nil
}

// RequestCancel sets the cancel flag of a job.
// Returns ErrJobNotFound if the job does not exist.
func (r *Registry) RequestCancel(id string) error {
	j, err := r.Get(id)
	if err != nil {
		return err
	}
	j.RequestCancel()
	return nil
}

func (r *Registry) takeRemovedLocked() []*Job {
	removed := r.removed
	r.removed = nil
	return removed
}

// discard removes every file a job may have produced. Missing files are fine.
// A job that is still running keeps running until its next output line, then
// stops; its files may already be gone.
func (r *Registry) discard(ctx context.Context, j *Job) {
	j.RequestCancel()

	if err := r.storage.Cleanup(ctx, j.Artifacts.All()); err != nil {
		r.logger.Warn("failed to remove job files",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
	if key := j.S3Key(); key != "" {
		if err := r.storage.DeleteFromS3(ctx, key); err != nil && !errors.Is(err, storage.ErrS3NotConfigured) {
			r.logger.Warn("failed to remove published copy",
				slog.String("job_id", j.ID),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
