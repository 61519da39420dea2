package job

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestJob(t *testing.T) *Job {
	t.Helper()
	return NewWithID("abc123", DefaultParams("1234567890"), "/downloads", 10)
}

func TestNew(t *testing.T) {
	job := New(DefaultParams("42"), "/downloads", 0)

	if len(job.ID) != 32 {
		t.Errorf("expected a 32 character ID, got %q", job.ID)
	}
	if job.VodID != "42" {
		t.Errorf("expected VodID 42, got %s", job.VodID)
	}
	if job.GetStatus() != StatusQueued {
		t.Errorf("expected status %s, got %s", StatusQueued, job.GetStatus())
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	snap := job.Snapshot()
	if snap.Stage != StageQueued {
		t.Errorf("expected stage %s, got %s", StageQueued, snap.Stage)
	}
	if !snap.StartedAt.IsZero() || !snap.FinishedAt.IsZero() {
		t.Error("expected start and finish times to be unset")
	}
}

func TestNewArtifacts(t *testing.T) {
	a := NewArtifacts("/downloads", "987", "abc")

	want := Artifacts{
		Video:     filepath.Join("/downloads", "987-abc.video.mp4"),
		ChatJSON:  filepath.Join("/downloads", "987-abc.chat.json.gz"),
		ChatVideo: filepath.Join("/downloads", "987-abc.chat.mp4"),
		Final:     filepath.Join("/downloads", "987-abc.final.mp4"),
	}
	if a != want {
		t.Errorf("NewArtifacts() = %+v, want %+v", a, want)
	}
	if len(a.All()) != 4 {
		t.Errorf("expected 4 artifact paths, got %d", len(a.All()))
	}
	for _, p := range a.Intermediates() {
		if p == a.Final {
			t.Error("final artifact must not be an intermediate")
		}
	}
}

func TestJob_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"queued to running", StatusQueued, StatusRunning, false},
		{"queued to error", StatusQueued, StatusError, false},
		{"running to done", StatusRunning, StatusDone, false},
		{"running to error", StatusRunning, StatusError, false},
		{"queued to done", StatusQueued, StatusDone, true},
		{"done to running", StatusDone, StatusRunning, true},
		{"done to error", StatusDone, StatusError, true},
		{"error to running", StatusError, StatusRunning, true},
		{"error to done", StatusError, StatusDone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := !canTransition(tt.from, tt.to); got != tt.wantErr {
				t.Errorf("canTransition(%s, %s) error = %v, wantErr %v", tt.from, tt.to, got, tt.wantErr)
			}
		})
	}
}

func TestJob_Lifecycle_Done(t *testing.T) {
	job := newTestJob(t)

	if err := job.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if job.GetStatus() != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, job.GetStatus())
	}
	if job.Snapshot().StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	job.SetStage(StageVideoDownload)
	if job.Snapshot().Stage != StageVideoDownload {
		t.Errorf("expected stage %s", StageVideoDownload)
	}

	if err := job.Complete(job.Artifacts.Final, "", ""); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	snap := job.Snapshot()
	if snap.Status != StatusDone || snap.Stage != StageDone {
		t.Errorf("expected done/done, got %s/%s", snap.Status, snap.Stage)
	}
	if snap.Path != job.Artifacts.Final {
		t.Errorf("expected path %s, got %s", job.Artifacts.Final, snap.Path)
	}
	if snap.FileName != "1234567890-abc123.final.mp4" {
		t.Errorf("unexpected file name %s", snap.FileName)
	}
	if snap.FinishedAt.IsZero() {
		t.Error("expected FinishedAt to be set")
	}
	if !job.IsTerminal() {
		t.Error("expected done job to be terminal")
	}
}

func TestJob_Fail(t *testing.T) {
	job := newTestJob(t)
	_ = job.Start()

	if err := job.Fail("ChatRender failed (exit 1)", "some hint"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	snap := job.Snapshot()
	if snap.Status != StatusError || snap.Stage != StageFailed {
		t.Errorf("expected error/failed, got %s/%s", snap.Status, snap.Stage)
	}
	if snap.Error != "ChatRender failed (exit 1)" {
		t.Errorf("unexpected error %q", snap.Error)
	}
	if snap.Hint != "some hint" {
		t.Errorf("unexpected hint %q", snap.Hint)
	}
	if snap.Path != "" {
		t.Error("failed job must not expose a path")
	}
}

func TestJob_CannotTransitionFromTerminalState(t *testing.T) {
	job := newTestJob(t)
	_ = job.Fail(CancelledMessage, "")

	if err := job.Start(); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if err := job.Complete("x", "", ""); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestJob_CancelIfQueued(t *testing.T) {
	queued := newTestJob(t)
	if !queued.cancelIfQueued() {
		t.Fatal("expected queued job to be cancelled")
	}
	snap := queued.Snapshot()
	if snap.Status != StatusError || snap.Error != CancelledMessage {
		t.Errorf("expected cancelled error, got %s %q", snap.Status, snap.Error)
	}

	running := newTestJob(t)
	_ = running.Start()
	if running.cancelIfQueued() {
		t.Error("running job must not be finalised by cancelIfQueued")
	}
	if running.GetStatus() != StatusRunning {
		t.Errorf("expected running, got %s", running.GetStatus())
	}
}

func TestJob_RequestCancel_Idempotent(t *testing.T) {
	job := newTestJob(t)
	job.RequestCancel()
	job.RequestCancel()
	if !job.CancelRequested() {
		t.Error("expected cancel flag to be set")
	}
}

func TestJob_Complete_RefusedAfterCancel(t *testing.T) {
	job := newTestJob(t)
	_ = job.Start()
	job.RequestCancel()

	if err := job.Complete("/tmp/final.mp4", "", ""); !errors.Is(err, ErrCancelRequested) {
		t.Fatalf("Complete() error = %v, want ErrCancelRequested", err)
	}
	if job.GetStatus() != StatusRunning {
		t.Errorf("expected running, got %s", job.GetStatus())
	}
	select {
	case <-job.cancelSignal():
	default:
		t.Error("cancel signal should be closed")
	}
}

func TestJob_Log(t *testing.T) {
	job := newTestJob(t)
	for i := 0; i < 25; i++ {
		job.AppendLog("line")
	}
	job.AppendLog("last")

	snap := job.Snapshot()
	if len(snap.Log) != 10 {
		t.Errorf("expected 10 retained lines, got %d", len(snap.Log))
	}
	if snap.LastLogLine != "last" {
		t.Errorf("expected last line %q, got %q", "last", snap.LastLogLine)
	}
	if !strings.HasSuffix(job.LogText(), "last") {
		t.Error("expected LogText to end with the newest line")
	}
}

func TestJob_Snapshot_IsCopy(t *testing.T) {
	job := newTestJob(t)
	job.AppendLog("one")

	snap := job.Snapshot()
	snap.Log[0] = "mutated"

	if job.Snapshot().Log[0] != "one" {
		t.Error("modifying the snapshot should not affect the job")
	}
}

func TestJob_ConcurrentAccess(t *testing.T) {
	job := newTestJob(t)
	_ = job.Start()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			job.AppendLog("tick")
			job.SetStage(StageVideoDownload)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = job.Snapshot()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			job.RequestCancel()
		}
	}()
	wg.Wait()
}

func TestParams_Clamped(t *testing.T) {
	bw := 5
	p := Params{
		Threads:       9,
		Bandwidth:     &bw,
		ChatWidth:     100,
		FontSize:      99,
		Framerate:     1,
		UpdateRate:    5,
		QualityFactor: 40,
	}.Clamped()

	if p.Threads != MaxThreads {
		t.Errorf("Threads = %d, want %d", p.Threads, MaxThreads)
	}
	if *p.Bandwidth != MinBandwidth {
		t.Errorf("Bandwidth = %d, want %d", *p.Bandwidth, MinBandwidth)
	}
	if bw != 5 {
		t.Error("Clamped must not modify the caller's bandwidth value")
	}
	if p.ChatWidth != MinChatWidth {
		t.Errorf("ChatWidth = %d, want %d", p.ChatWidth, MinChatWidth)
	}
	if p.FontSize != MaxFontSize {
		t.Errorf("FontSize = %d, want %d", p.FontSize, MaxFontSize)
	}
	if p.Framerate != MinFramerate {
		t.Errorf("Framerate = %d, want %d", p.Framerate, MinFramerate)
	}
	if p.UpdateRate != MaxUpdateRate {
		t.Errorf("UpdateRate = %v, want %v", p.UpdateRate, MaxUpdateRate)
	}
	if p.QualityFactor != MaxQualityFactor {
		t.Errorf("QualityFactor = %d, want %d", p.QualityFactor, MaxQualityFactor)
	}

	d := DefaultParams("1")
	if d.Clamped() != d {
		t.Error("defaults should already be in range")
	}
}
