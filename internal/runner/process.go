package runner

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"time"
)

// process owns a started command and its process group.
type process struct {
	cmd   *exec.Cmd
	out   io.ReadCloser
	pid   int
	grace time.Duration

	waitOnce sync.Once
	done     chan struct{}
	waitErr  error
}

func newProcess(cmd *exec.Cmd, out io.ReadCloser, grace time.Duration) *process {
	return &process{
		cmd:   cmd,
		out:   out,
		pid:   cmd.Process.Pid,
		grace: grace,
		done:  make(chan struct{}),
	}
}

func (p *process) startWait() {
	p.waitOnce.Do(func() {
		go func() {
			p.waitErr = p.cmd.Wait()
			close(p.done)
		}()
	})
}

// wait blocks until the process has exited. It is safe to call more than once.
func (p *process) wait() error {
	p.startWait()
	<-p.done
	return p.waitErr
}

// terminate asks the whole group to stop, then kills whatever is still alive
// once the grace interval has passed. Unread output is discarded so that
// members blocked on a full pipe can observe the signal.
func (p *process) terminate() {
	p.interrupt()
	go func() { _, _ = io.Copy(io.Discard, p.out) }()
	p.startWait()

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-p.done:
	case <-timer.C:
	}

	if p.groupAlive() {
		p.kill()
	}
	<-p.done
}

// escalateOnDone signals the group when ctx is done: first the graceful
// signal, then a kill once the grace interval has passed. A group that keeps
// printing after ignoring the first signal still ends, which closes the
// output pipe and releases the reader. It returns early when stop is closed.
func (p *process) escalateOnDone(ctx context.Context, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-stop:
		return
	}
	p.interrupt()

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-stop:
		return
	}
	if p.groupAlive() {
		p.kill()
	}
}
