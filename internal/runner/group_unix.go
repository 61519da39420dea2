//go:build !windows

package runner

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Signals go to the negative pid, which addresses the whole group.
// ESRCH from an already exited group is ignored.

func (p *process) interrupt() {
	_ = unix.Kill(-p.pid, unix.SIGTERM)
}

func (p *process) kill() {
	_ = unix.Kill(-p.pid, unix.SIGKILL)
}

func (p *process) groupAlive() bool {
	return unix.Kill(-p.pid, 0) == nil
}
