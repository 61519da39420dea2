package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/vodcompose/internal/job"
)

// maxRequestBody bounds the create-job body.
const maxRequestBody = 64 << 10

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *job.Service
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithClock overrides the time source used by the health endpoint.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handlers) {
		h.now = now
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:   service,
		validator: newValidator(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /healthz requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		OK:       true,
		TS:       h.now().Unix(),
		QueueLen: h.service.QueueLen(),
		QueueCap: h.service.QueueCap(),
	})
}

// ListJobs handles GET /api/jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := h.service.ListJobs()
	resp := ListJobsResponse{Jobs: make([]JobSummary, 0, len(jobs))}
	for _, j := range jobs {
		snap := j.Snapshot()
		resp.Jobs = append(resp.Jobs, JobSummary{
			JobID:      snap.ID,
			VodID:      snap.VodID,
			Status:     string(snap.Status),
			Stage:      snap.Stage,
			StartedAt:  unixOrZero(snap.StartedAt),
			FinishedAt: unixOrZero(snap.FinishedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateJob handles POST /api/jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, validationMessage(err), "VALIDATION_ERROR")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	created, err := h.service.CreateJob(r.Context(), params)
	if err != nil {
		if errors.Is(err, job.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, "Queue full. Try again later.", "QUEUE_FULL")
			return
		}
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{JobID: created.ID})
}

// GetJob handles GET /api/jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	found, ok := h.lookup(w, r)
	if !ok {
		return
	}

	snap := found.Snapshot()
	writeJSON(w, http.StatusOK, JobResponse{
		JobID:           snap.ID,
		VodID:           snap.VodID,
		Status:          string(snap.Status),
		Stage:           snap.Stage,
		Quality:         snap.Quality,
		IncludeChat:     snap.IncludeChat,
		Path:            snap.Path,
		FileName:        snap.FileName,
		VideoURL:        snap.VideoURL,
		Log:             strings.Join(snap.Log, "\n"),
		LastLogLine:     snap.LastLogLine,
		Hint:            snap.Hint,
		Error:           snap.Error,
		StartedAt:       unixOrZero(snap.StartedAt),
		FinishedAt:      unixOrZero(snap.FinishedAt),
		CancelRequested: snap.CancelRequested,
	})
}

// DownloadFile handles GET /api/jobs/{id}/file requests.
func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	f, snap, err := h.service.OpenResult(r.Context(), jobID)
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	case errors.Is(err, job.ErrNotReady):
		writeError(w, http.StatusConflict, "not ready", "NOT_READY")
		return
	case errors.Is(err, job.ErrArtifactMissing):
		writeError(w, http.StatusGone, "file expired or missing", "FILE_GONE")
		return
	case err != nil:
		h.logger.Error("failed to open job file",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to open job file", "FILE_OPEN_FAILED")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open job file", "FILE_OPEN_FAILED")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": snap.FileName}))
	http.ServeContent(w, r, snap.FileName, info.ModTime(), f)
}

// CancelJob handles POST /api/jobs/{id}/cancel requests.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := h.service.CancelJob(jobID); err != nil {
		h.writeJobError(w, jobID, err)
		return
	}
	h.logger.Info("cancel requested", slog.String("job_id", jobID))
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// DeleteJob handles POST /api/jobs/{id}/delete requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		h.writeJobError(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	found, err := h.service.GetJob(jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return nil, false
	}
	return found, true
}

func (h *Handlers) writeJobError(w http.ResponseWriter, jobID string, err error) {
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	}
	h.logger.Error("job request failed",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
