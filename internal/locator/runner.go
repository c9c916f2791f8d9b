package locator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
)

// DefaultProbeTimeout bounds one probe of an executable
const DefaultProbeTimeout = 10 * time.Second

// Result is the outcome of a finished process
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the process exited with status 0
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs an executable and captures its output.
// A non-zero exit is reported in Result, not as an error. The error is
// reserved for processes that could not be started or did not finish.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) (Result, error)
}

// ExecRunner implements Runner with os/exec
type ExecRunner struct {
	// Timeout bounds each run (default: DefaultProbeTimeout)
	Timeout time.Duration
}

// Run executes path with args, killing it when ctx ends or the timeout
// elapses.
func (r ExecRunner) Run(ctx context.Context, path string, args ...string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	hideWindow(cmd)

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("%w: %s: %w", binary.ErrExecutionFailed, path, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, fmt.Errorf("%w: %s: %w", binary.ErrExecutionFailed, path, err)
}
