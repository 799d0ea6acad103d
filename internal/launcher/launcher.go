// Package launcher checks the environment, then runs the serving processes
// and relays shutdown signals to them.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tourism-forecast/internal/config"
	"tourism-forecast/pkg/logging"
)

// Resolve finds command either as a path, next to the running executable or
// on PATH, in that order
func Resolve(command string) (string, error) {
	if strings.ContainsRune(command, os.PathSeparator) {
		if _, err := os.Stat(command); err != nil {
			return "", fmt.Errorf("%s: %w", command, err)
		}
		return command, nil
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), command)
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%s not found next to the launcher or on PATH: %w", command, err)
	}
	return path, nil
}

// checkWritable creates and removes a temporary file in dir
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Preflight creates and checks the data directories and resolves the server
// and dashboard binaries. Every problem found is reported.
func Preflight(cfg *config.Config) (server, dashboard string, err error) {
	var errs []error
	if err := cfg.EnsureDirectories(); err != nil {
		errs = append(errs, err)
	} else {
		for _, dir := range []string{cfg.Paths.RawDir, cfg.Paths.ProcessedDir, cfg.Paths.ModelsDir, cfg.Paths.ExportsDir} {
			if err := checkWritable(dir); err != nil {
				errs = append(errs, err)
			}
		}
	}
	server, serr := Resolve(cfg.Launcher.ServerCommand)
	if serr != nil {
		errs = append(errs, serr)
	}
	dashboard, derr := Resolve(cfg.Launcher.DashboardCommand)
	if derr != nil {
		errs = append(errs, derr)
	}
	return server, dashboard, errors.Join(errs...)
}

// Process is one child to supervise
type Process struct {
	Name string
	Path string
	Args []string
}

// ExitError reports which child ended the supervision
type ExitError struct {
	Name string
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Name + " exited"
	}
	return fmt.Sprintf("%s exited: %v", e.Name, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Supervisor runs processes until one exits or a signal arrives
type Supervisor struct {
	grace  time.Duration
	stdout io.Writer
	stderr io.Writer
	logger *logging.StructuredLogger
}

// NewSupervisor creates a supervisor. Children still running grace after
// being signalled are killed.
func NewSupervisor(grace time.Duration, stdout, stderr io.Writer, logger *logging.StructuredLogger) *Supervisor {
	return &Supervisor{grace: grace, stdout: stdout, stderr: stderr, logger: logger}
}

// Run starts every process and blocks until all have exited. A signal
// received on signals is forwarded to every child; when one child exits the
// others get SIGTERM. Run returns nil after a signal-initiated shutdown and
// an *ExitError naming the first child to exit otherwise.
func (s *Supervisor) Run(ctx context.Context, procs []Process, signals <-chan os.Signal) error {
	cmds := make([]*exec.Cmd, 0, len(procs))
	for _, p := range procs {
		cmd := exec.Command(p.Path, p.Args...)
		cmd.Stdout, cmd.Stderr = s.stdout, s.stderr
		if err := cmd.Start(); err != nil {
			signalAll(cmds, syscall.SIGTERM)
			for _, c := range cmds {
				_ = c.Wait()
			}
			return fmt.Errorf("failed to start %s: %w", p.Name, err)
		}
		s.logger.Info(ctx, "[LAUNCHER_CHILD_START] Process started", logging.Fields{
			"name":  p.Name,
			"pid":   cmd.Process.Pid,
			"path":  p.Path,
			"stage": "SUPERVISE",
		})
		cmds = append(cmds, cmd)
	}

	var (
		wg        sync.WaitGroup
		signalled atomic.Bool
	)
	exited := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	for i, cmd := range cmds {
		cmd := cmd
		name := procs[i].Name
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			err := cmd.Wait()
			s.logger.Info(ctx, "[LAUNCHER_CHILD_EXIT] Process exited", logging.Fields{
				"name":      name,
				"exit_code": cmd.ProcessState.ExitCode(),
				"stage":     "SUPERVISE",
			})
			return &ExitError{Name: name, Err: err}
		})
	}
	go func() {
		wg.Wait()
		close(exited)
	}()

	g.Go(func() error {
		var sig os.Signal = syscall.SIGTERM
		select {
		case sig = <-signals:
			signalled.Store(true)
		case <-gctx.Done():
		case <-exited:
			return nil
		}

		s.logger.Info(ctx, "[LAUNCHER_SHUTDOWN] Stopping child processes", logging.Fields{
			"signal": sig.String(),
			"stage":  "SUPERVISE",
		})
		signalAll(cmds, sig)

		select {
		case <-exited:
		case <-time.After(s.grace):
			s.logger.Warn(ctx, "[LAUNCHER_KILL] Grace period elapsed, killing children", logging.Fields{
				"grace": s.grace.String(),
				"stage": "SUPERVISE",
			})
			for _, c := range cmds {
				_ = c.Process.Kill()
			}
			<-exited
		}
		return nil
	})

	err := g.Wait()
	if signalled.Load() {
		return nil
	}
	return err
}

func signalAll(cmds []*exec.Cmd, sig os.Signal) {
	for _, c := range cmds {
		if c.Process != nil {
			_ = c.Process.Signal(sig)
		}
	}
}
