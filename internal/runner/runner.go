// Package runner executes external build tools on behalf of archsmith.
//
// Synthesis itself is pure; the only steps that touch the outside world
// (compiling the integral-library wrapper object, preparing vendor module
// files) go through a Runner so callers and tests can substitute their own.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const stderrLimit = 8 << 10 // 8 KiB

// Runner runs one external command in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// Func adapts an ordinary function to Runner.
type Func func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func (f Func) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return f(ctx, dir, name, args...)
}

// Exec runs commands with os/exec. A zero Timeout means no deadline beyond
// the caller's context.
type Exec struct {
	Log     *slog.Logger
	Timeout time.Duration
}

// New returns an Exec runner.
func New(log *slog.Logger, timeout time.Duration) *Exec {
	if log == nil {
		log = slog.Default()
	}
	return &Exec{Log: log, Timeout: timeout}
}

func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	// budget is the deadline that will actually fire, whether it came from
	// Timeout or from the caller.
	budget := e.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); budget <= 0 || left < budget {
			budget = left
		}
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...) // no shell, args passed separately
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.log().Debug("executing", "cmd", cmd.String(), "dir", dir)

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("'%s' timed out after %s: %w", cmd, budget.Round(time.Millisecond), ctx.Err())
		}
		if msg := trimStderr(stderr.Bytes()); msg != "" {
			return nil, fmt.Errorf("'%s' execution failed: %w: %s", cmd, err, msg)
		}
		return nil, fmt.Errorf("'%s' execution failed: %w", cmd, err)
	}
	return out, nil
}

func (e *Exec) log() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

func trimStderr(b []byte) string {
	if len(b) > stderrLimit {
		b = b[len(b)-stderrLimit:]
	}
	return strings.TrimSpace(string(b))
}
