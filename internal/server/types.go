// Package server provides the HTTP API for submitting and tracking VOD
// composition jobs. It includes handlers, middleware, routes, and DTOs
// separated from domain types.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// FlexString accepts a JSON string, number or boolean and keeps its text.
// null leaves it empty. Browser forms post numbers as strings, so numeric
// request fields use this type and are parsed after validation.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return errors.New("expected a string, number or boolean")
	default:
		*f = FlexString(b)
	}
	return nil
}

// OptionalTime is a clip boundary. Numbers and the strings "none", "null"
// and "undefined" mean the boundary is not set.
type OptionalTime string

// UnmarshalJSON implements json.Unmarshaler.
func (t *OptionalTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "none", "null", "undefined":
		s = ""
	}
	*t = OptionalTime(s)
	return nil
}

// CreateJobRequest is the HTTP request body for creating a new job.
// Empty fields take their defaults; numbers outside their range are clamped.
type CreateJobRequest struct {
	// VodID is the numeric Twitch VOD id.
	VodID FlexString `json:"vod_id" validate:"required,number,max=20"`
	// Quality is the TwitchDownloaderCLI quality selector, e.g. 1080p60.
	Quality FlexString `json:"quality" validate:"omitempty,max=32,printascii"`
	// Threads is the download thread count (1-4).
	Threads FlexString `json:"threads" validate:"omitempty,integer"`
	// Bandwidth is the per-thread cap in KiB/s (64-20000); empty means unlimited.
	Bandwidth FlexString `json:"bandwidth" validate:"omitempty,integer"`
	// Beginning and Ending clip the VOD, H:MM:SS or HH:MM:SS.
	Beginning OptionalTime `json:"beginning" validate:"omitempty,cliptime"`
	Ending    OptionalTime `json:"ending" validate:"omitempty,cliptime"`
	// IncludeChat renders the chat and composes it next to the video.
	IncludeChat FlexString `json:"include_chat" validate:"omitempty,boolean"`
	// Chat rendering settings.
	ChatWidth       FlexString `json:"chat_width" validate:"omitempty,integer"`
	FontSize        FlexString `json:"font_size" validate:"omitempty,integer"`
	Framerate       FlexString `json:"framerate" validate:"omitempty,integer"`
	UpdateRate      FlexString `json:"update_rate" validate:"omitempty,numeric"`
	BackgroundColor FlexString `json:"background_color" validate:"omitempty,argbcolor"`
	Outline         FlexString `json:"outline" validate:"omitempty,boolean"`
	// QualityFactor is the libx264 CRF of the composed video (18-28).
	QualityFactor FlexString `json:"quality_factor" validate:"omitempty,integer"`
	// PushToS3 uploads the result to S3 when storage is configured.
	PushToS3 FlexString `json:"push_to_s3" validate:"omitempty,boolean"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// JobID is the unique identifier for the created job.
	JobID string `json:"job_id"`
}

// JobSummary is one entry of the job list.
type JobSummary struct {
	JobID      string `json:"job_id"`
	VodID      string `json:"vod_id"`
	Status     string `json:"status"`
	Stage      string `json:"stage"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
}

// ListJobsResponse is the HTTP response for listing jobs, newest first.
type ListJobsResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// JobResponse is the HTTP response for getting job details.
// Times are unix seconds; 0 means unset.
type JobResponse struct {
	JobID           string `json:"job_id"`
	VodID           string `json:"vod_id"`
	Status          string `json:"status"`
	Stage           string `json:"stage"`
	Quality         string `json:"quality"`
	IncludeChat     bool   `json:"include_chat"`
	Path            string `json:"path"`
	FileName        string `json:"file_name,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	Log             string `json:"log"`
	LastLogLine     string `json:"last_log_line"`
	Hint            string `json:"hint"`
	Error           string `json:"error"`
	StartedAt       int64  `json:"started_at"`
	FinishedAt      int64  `json:"finished_at"`
	CancelRequested bool   `json:"cancel_requested"`
}

// OKResponse acknowledges cancel and delete requests.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	OK       bool  `json:"ok"`
	TS       int64 `json:"ts"`
	QueueLen int   `json:"queue_len"`
	QueueCap int   `json:"queue_cap"`
}
