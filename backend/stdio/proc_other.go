//go:build !linux

package stdio

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcAttr puts the child in its own process group. Pdeathsig is not
// available off Linux; the group still allows kill -<pgid> cleanup.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// signalGroup delivers a signal to the child's whole process group.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}
	return syscall.Kill(-p.Pid, sig)
}

func killGroup(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}
