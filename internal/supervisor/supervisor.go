// Package supervisor runs sing-box as a child process and manages its
// lifetime.
//
// Two policies are supported:
//   - supervised: wait for a cancellation, then terminate the child. A
//     profile refresh may be scheduled a fixed delay after spawn.
//   - foreground: wait for the child to exit on its own and report its
//     exit status. A cancellation is left to the child, which shares the
//     terminal's process group and receives the interrupt itself.
//
// On unix, when the launcher is not root, sing-box is started through
// sudo because it needs to create a TUN interface.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/MuyleangIng/Tahoe/internal/config"
	"github.com/MuyleangIng/Tahoe/internal/ui"
)

// ElevationCommand prefixes the sing-box invocation for unprivileged users.
const ElevationCommand = "sudo"

// settleTime is how long a cancelled child is given to exit on its own
// before it is signalled. An interrupt typed at the terminal reaches the
// whole foreground process group, sing-box included.
const settleTime = 500 * time.Millisecond

// CommandLine returns argv for running binary with the profile at
// configPath: "<binary> run -c <configPath>", prefixed by the elevation
// command on non-Windows systems when the caller is not privileged.
func CommandLine(binary, configPath, goos string, privileged bool) []string {
	args := []string{binary, "run", "-c", configPath}
	if goos != "windows" && !privileged {
		return append([]string{ElevationCommand}, args...)
	}
	return args
}

// Supervisor launches and supervises one sing-box process.
type Supervisor struct {
	Binary     string
	ConfigPath string
	Mode       config.Mode

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Refresh, when set, runs RefreshDelay after spawn in supervised
	// mode. A failure is reported and the session continues.
	Refresh      func(ctx context.Context) error
	RefreshDelay time.Duration

	// OnStart, when set, is called once the child is running.
	OnStart func(p *os.Process)

	Log *ui.Printer

	// Overridable for tests.
	GOOS       string
	Privileged func() bool
	Terminate  func(*os.Process) error
	Settle     time.Duration
}

func (s *Supervisor) log() *ui.Printer {
	if s.Log != nil {
		return s.Log
	}
	return ui.New(io.Discard)
}

// Command builds the exec.Cmd for the child without starting it.
func (s *Supervisor) Command() *exec.Cmd {
	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	privileged := isPrivileged
	if s.Privileged != nil {
		privileged = s.Privileged
	}
	argv := CommandLine(s.Binary, s.ConfigPath, goos, privileged())
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	return cmd
}

// Run starts the child and blocks according to Mode. cancel and ctx are
// both treated as a request to stop; cancel may be nil.
//
// In supervised mode Run returns nil once the child has been stopped
// after a cancellation, and an error if the child exits before one
// arrives. In foreground mode Run returns the child's exit error, or nil
// if it exited after a cancellation.
func (s *Supervisor) Run(ctx context.Context, cancel *Notifier) error {
	cmd := s.Command()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start sing-box: %w", err)
	}
	started := time.Now()
	if s.OnStart != nil {
		s.OnStart(cmd.Process)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var cancelled <-chan struct{}
	if cancel != nil {
		cancelled = cancel.C()
	}

	runCtx, stopRun := context.WithCancel(ctx)
	var refreshing sync.WaitGroup
	defer func() {
		stopRun()
		refreshing.Wait()
	}()

	if s.Mode == config.ModeForeground {
		select {
		case err := <-exited:
			if err != nil {
				return fmt.Errorf("sing-box exited: %w", err)
			}
			return nil
		case <-cancelled:
		case <-ctx.Done():
		}
		s.log().Step("Waiting for sing-box to exit...")
		<-exited
		return nil
	}

	if s.Refresh != nil {
		refreshing.Add(1)
		go func() {
			defer refreshing.Done()
			s.delayedRefresh(runCtx)
		}()
	}

	select {
	case err := <-exited:
		if err == nil {
			err = errors.New("exit status 0")
		}
		return fmt.Errorf("sing-box exited unexpectedly after %s: %w", ui.FormatDuration(time.Since(started)), err)
	case <-cancelled:
	case <-ctx.Done():
	}
	stopRun()
	refreshing.Wait()

	s.log().Step("Stopping sing-box...")
	if err := s.stop(cmd.Process, exited); err != nil {
		return err
	}
	s.log().Success("Stopped after %s", ui.FormatDuration(time.Since(started)))
	return nil
}

// stop terminates p unless it already exited, then waits for it. Any
// process p started that is still running once p is gone is terminated
// as well; under sudo that is sing-box itself.
func (s *Supervisor) stop(p *os.Process, exited <-chan error) error {
	settle := s.Settle
	if settle == 0 {
		settle = settleTime
	}
	tree := descendants(int32(p.Pid))

	select {
	case <-exited:
	case <-time.After(settle):
		term := terminate
		if s.Terminate != nil {
			term = s.Terminate
		}
		if err := term(p); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to stop sing-box: %w", err)
		}
		<-exited
	}

	s.sweep(tree)
	return nil
}

// descendants returns every process below pid. The snapshot keeps each
// process's creation time, so a recycled pid is never mistaken for it.
func descendants(pid int32) []*process.Process {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	root, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil
	}
	var tree []*process.Process
	queue := []*process.Process{root}
	for len(queue) > 0 {
		children, err := queue[0].ChildrenWithContext(ctx)
		queue = queue[1:]
		if err != nil {
			continue
		}
		for _, c := range children {
			if _, err := c.CreateTimeWithContext(ctx); err != nil {
				continue
			}
			tree = append(tree, c)
			queue = append(queue, c)
		}
	}
	return tree
}

// sweep terminates processes from tree that outlived the child.
func (s *Supervisor) sweep(tree []*process.Process) {
	if len(tree) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, p := range tree {
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			continue
		}
		if status, err := p.StatusWithContext(ctx); err == nil && slices.Contains(status, process.Zombie) {
			continue
		}
		s.log().Warn("Process %d is still running after sing-box stopped, terminating it", p.Pid)
		if err := p.TerminateWithContext(ctx); err != nil {
			s.log().Warn("Failed to terminate process %d: %v", p.Pid, err)
		}
	}
}

// delayedRefresh waits RefreshDelay, then runs Refresh once. It gives up
// silently if ctx ends first.
func (s *Supervisor) delayedRefresh(ctx context.Context) {
	if s.RefreshDelay > 0 {
		s.log().Step("Waiting for %s before updating server configuration...", ui.FormatDuration(s.RefreshDelay))
		timer := time.NewTimer(s.RefreshDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	s.log().Step("Updating server configuration...")
	if err := s.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log().Warn("Server configuration update failed: %v", err)
		return
	}
	s.log().Success("Server configuration updated")
}
