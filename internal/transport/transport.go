// Package transport runs shell commands on the local machine or a named
// remote host, uniformly. It is the seam that keeps every higher layer
// host-agnostic.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
)

// Result holds the output of a completed command.
type Result struct {
	Stdout   string
	ExitCode int
}

// Runner executes a command on a host. An empty host means local execution.
type Runner interface {
	Run(ctx context.Context, host, command string) (Result, error)
}

// ConnectionError means the host could not be reached or authentication
// failed. Not retryable without operator intervention.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to host %q: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError means the command exceeded the wall-clock limit.
type TimeoutError struct {
	Host    string
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %s on host %q: %s", e.Timeout, e.Host, e.Command)
}

// CommandError means the process ran but exited non-zero. Stdout and stderr
// are preserved for diagnostics.
type CommandError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command exited %d: %s\n%s", e.ExitCode, e.Command, e.Stderr)
}

// DefaultTimeout bounds every command when the caller does not configure one.
const DefaultTimeout = 30 * time.Second

// Exec runs commands via the local shell, or via the ssh client binary for
// remote hosts. Host credentials live in the user's ssh config; the hosts
// file only maps board host names to ssh destinations.
type Exec struct {
	hosts   *Hosts
	timeout time.Duration
	logger  *log.Logger
}

// NewExec creates a transport. hosts may be nil, in which case host names
// are passed to ssh as-is.
func NewExec(hosts *Hosts, timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exec{
		hosts:   hosts,
		timeout: timeout,
		logger:  log.NewWithOptions(io.Discard, log.Options{Prefix: "transport"}),
	}
}

// WithLogging returns the transport logging commands to w.
func (e *Exec) WithLogging(w io.Writer) *Exec {
	e.logger = log.NewWithOptions(w, log.Options{Prefix: "transport"})
	return e
}

// Run executes command on host. An empty host runs in the local shell.
func (e *Exec) Run(ctx context.Context, host, command string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var cmd *exec.Cmd
	if host == "" {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	} else {
		args, err := e.sshArgs(host)
		if err != nil {
			return Result{}, err
		}
		cmd = exec.CommandContext(ctx, "ssh", append(args, command)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	e.logger.Debug("run", "host", host, "command", command, "duration", time.Since(start), "err", err)

	switch ctx.Err() {
	case context.DeadlineExceeded:
		return Result{}, &TimeoutError{Host: host, Command: command, Timeout: e.timeout}
	case context.Canceled:
		// Caller aborted; not a host or command failure.
		return Result{}, ctx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			// ssh reports its own connection/auth failures as exit 255;
			// everything else is the remote command's exit code.
			if host != "" && code == 255 {
				return Result{}, &ConnectionError{Host: host, Err: fmt.Errorf("%s", bytes.TrimSpace(stderr.Bytes()))}
			}
			return Result{Stdout: stdout.String(), ExitCode: code}, &CommandError{
				Command:  command,
				ExitCode: code,
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return Result{}, &ConnectionError{Host: host, Err: err}
	}

	return Result{Stdout: stdout.String(), ExitCode: 0}, nil
}
