// Package proc launches the external attack tools in their own process
// groups, with hard timeouts, and keeps a registry of everything still
// alive so cleanup can terminate the lot in one pass.
package proc

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"twincast/libs/werr"
)

type Handle struct {
	Name    string
	Cmd     *exec.Cmd
	Started time.Time
	Timeout time.Duration
	stderr  *bytes.Buffer
}

// Stderr captured so far for a background process
func (h *Handle) Stderr() string {
	if h.stderr == nil {
		return ""
	}
	return h.stderr.String()
}

// Check if the process is still alive
func (h *Handle) Alive() bool {
	if h.Cmd == nil || h.Cmd.Process == nil {
		return false
	}
	return syscall.Kill(h.Cmd.Process.Pid, 0) == nil
}

type Registry struct {
	mu    sync.Mutex
	procs map[*Handle]struct{}
}

func NewRegistry() *Registry {
	return &Registry{procs: make(map[*Handle]struct{})}
}

func (r *Registry) register(h *Handle) {
	r.mu.Lock()
	r.procs[h] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) Unregister(h *Handle) {
	r.mu.Lock()
	delete(r.procs, h)
	r.mu.Unlock()
}

func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// Start a long-running tool in its own process group and track it.
// A nonzero timeout is a backstop: the process is force-terminated when
// it outlives its window, zero means run until stopped.
func (r *Registry) Background(name string, timeout time.Duration, bin string, args ...string) (*Handle, error) {
	cmd := exec.Command(bin, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	var errbuf bytes.Buffer
	cmd.Stderr = &errbuf
	if err := cmd.Start(); err != nil {
		return nil, werr.WithStderr(werr.ToolStartupFailed, name, err.Error())
	}
	handle := &Handle{Name: name, Cmd: cmd, Started: time.Now(), Timeout: timeout, stderr: &errbuf}
	r.register(handle)
	go cmd.Wait() // reap
	if timeout > 0 {
		go func() {
			time.Sleep(timeout)
			if handle.Alive() {
				handle.Stop(2 * time.Second)
			}
			r.Unregister(handle)
		}()
	}
	return handle, nil
}

// Terminate the group gracefully, then kill after the grace period.
func (h *Handle) Stop(grace time.Duration) {
	if h.Cmd == nil || h.Cmd.Process == nil {
		return
	}
	var pgid int = h.Cmd.Process.Pid
	syscall.Kill(-pgid, syscall.SIGTERM)
	var deadline time.Time = time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !h.Alive() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	syscall.Kill(-pgid, syscall.SIGKILL)
	time.Sleep(time.Second)
}

// Stop every registered process: graceful terminate, short wait, then kill.
func (r *Registry) StopAll(grace time.Duration) {
	r.mu.Lock()
	var snapshot []*Handle
	for h := range r.procs {
		snapshot = append(snapshot, h)
	}
	r.procs = make(map[*Handle]struct{})
	r.mu.Unlock()
	if grace > 3*time.Second {
		grace = 3 * time.Second
	}
	for _, h := range snapshot {
		h.Stop(grace)
	}
}

// Run a tool to completion with a hard timeout, killing the whole
// process group on expiry. Returns combined output.
func Run(ctx context.Context, timeout time.Duration, bin string, args ...string) (string, error) {
	return RunStdin(ctx, timeout, "", bin, args...)
}

// Run with data piped to the tool's stdin.
func RunStdin(ctx context.Context, timeout time.Duration, stdin string, bin string, args ...string) (string, error) {
	cmd := exec.Command(bin, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var outbuf bytes.Buffer
	cmd.Stdout = &outbuf
	cmd.Stderr = &outbuf
	if err := cmd.Start(); err != nil {
		return "", werr.WithStderr(werr.ToolStartupFailed, bin, err.Error())
	}
	var pgid int = cmd.Process.Pid
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
		return outbuf.String(), nil
	case <-time.After(timeout):
		syscall.Kill(-pgid, syscall.SIGKILL)
		<-done
		return outbuf.String(), werr.Newf(werr.ProcessTimeout, "%s exceeded %s", bin, timeout)
	case <-ctx.Done():
		syscall.Kill(-pgid, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			syscall.Kill(-pgid, syscall.SIGKILL)
			<-done
		}
		return outbuf.String(), ctx.Err()
	}
}
