package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// binaryPath is the ffmpeg executable. Overridable for hosts where
// ffmpeg is not on PATH.
var binaryPath = "ffmpeg"

// SetBinary overrides the ffmpeg executable path.
func SetBinary(path string) {
	if path != "" {
		binaryPath = path
	}
}

// run executes ffmpeg and waits for it. When progress is non-nil,
// stdout is parsed as -progress output and updates are forwarded to the
// channel; the channel is closed on every exit path, including failures
// before the process starts.
func run(ctx context.Context, args []string, progress chan<- Progress) error {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if progress == nil {
		if err := cmd.Run(); err != nil {
			return &Error{Args: args, Stderr: stderr.String(), Err: err}
		}
		return nil
	}

	defer close(progress)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: start: %w", err)
	}
	ParseProgressOutput(bufio.NewScanner(stdout), progress)
	if err := cmd.Wait(); err != nil {
		return &Error{Args: args, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// RunResult is the outcome of an invocation whose stderr log matters to
// the caller, like scene detection.
type RunResult struct {
	// Logs holds the full stderr output, present on success and failure.
	Logs string
	// Err is non-nil when ffmpeg exited non-zero.
	Err error
}

func runCapture(ctx context.Context, args []string) RunResult {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		err = &Error{Args: args, Stderr: stderr.String(), Err: err}
	}
	return RunResult{Logs: stderr.String(), Err: err}
}

// Error carries the failed invocation's arguments and stderr.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

// Error keeps the message short: the exit status plus the tail of
// stderr, where ffmpeg puts the actual complaint.
func (e *Error) Error() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	tail := strings.Join(lines, "\n")
	if tail != "" {
		return fmt.Sprintf("ffmpeg: %v: %s", e.Err, tail)
	}
	return fmt.Sprintf("ffmpeg: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FullStderr returns the complete stderr output.
func (e *Error) FullStderr() string {
	return e.Stderr
}
