//go:build windows

package runner

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

// Windows has no graceful group signal for console-less children, so both
// steps kill the leader.

func (p *process) interrupt() {
	_ = p.cmd.Process.Kill()
}

func (p *process) kill() {
	_ = p.cmd.Process.Kill()
}

func (p *process) groupAlive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
