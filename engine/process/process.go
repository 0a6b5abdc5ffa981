// Package process runs an engine binary detached from the terminal's
// process group and reaps it.
package process

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/kinoplay/kinoplay/log"
)

// Process is a running engine binary.
type Process struct {
	name   string
	cmd    *exec.Cmd
	exited chan struct{}
}

// Start launches binary with args. Standard streams are not connected.
func Start(binary string, args ...string) (*Process, error) {
	cmd := exec.Command(binary, args...)

	// detach so a terminal signal to us does not tear the engine down mid-write
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	p := &Process{
		name:   binary,
		cmd:    cmd,
		exited: make(chan struct{}),
	}

	// reap the process to prevent zombies
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()

	log.Debugf("started %s (pid %d)", binary, cmd.Process.Pid)
	return p, nil
}

// Exited is closed when the process has exited.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// Running reports whether the process has not exited yet.
func (p *Process) Running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Stop waits up to grace for the process to exit on its own, then kills
// its whole process group.
func (p *Process) Stop(grace time.Duration) {
	if p == nil {
		return
	}

	select {
	case <-p.exited:
		return
	case <-time.After(grace):
	}

	log.Warnf("killing %s: did not exit within %s", p.name, grace)
	_ = killProcess(p.cmd)
	<-p.exited
}
