// Package whisper adapts the whisper.cpp command line tool for
// transcription. The tool reads 16 kHz mono WAV and writes a JSON
// transcript next to an output prefix.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecError carries the full context of a failed tool invocation.
type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	cmdline := strings.TrimSpace(e.Cmd + " " + strings.Join(e.Args, " "))
	if e.ExitCode != 0 {
		return fmt.Sprintf("whisper: command failed (exit %d): %s", e.ExitCode, cmdline)
	}
	return fmt.Sprintf("whisper: command failed: %s", cmdline)
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Segment is one recognized span. In word mode each segment is a single
// word.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Client invokes the whisper.cpp binary.
type Client struct {
	// Path to the whisper.cpp executable. Defaults to "whisper-cli".
	Path string

	execFn func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

func New(path string) *Client {
	if strings.TrimSpace(path) == "" {
		path = "whisper-cli"
	}
	return &Client{Path: path}
}

func (c *Client) exec(ctx context.Context, args ...string) ([]byte, []byte, error) {
	if c.execFn != nil {
		return c.execFn(ctx, c.Path, args...)
	}

	cmd := exec.CommandContext(ctx, c.Path, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// transcriptFile matches whisper.cpp's -oj output document. Offsets are
// milliseconds from the start of the audio.
type transcriptFile struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs the model over a 16 kHz mono WAV file and returns the
// recognized segments in order. In word mode the tool is told to cap
// segments at one token and split on word boundaries, so each returned
// segment is a single word.
func (c *Client) Transcribe(ctx context.Context, modelPath, wavPath string, wordLevel bool) ([]Segment, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, fmt.Errorf("whisper: model path is required")
	}
	if strings.TrimSpace(wavPath) == "" {
		return nil, fmt.Errorf("whisper: wav path is required")
	}

	outDir, err := os.MkdirTemp("", "whisper-out-")
	if err != nil {
		return nil, fmt.Errorf("whisper: create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)
	outPrefix := filepath.Join(outDir, "transcript")

	args := []string{
		"-m", modelPath,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-np", // no runtime prints on stdout
	}
	if wordLevel {
		args = append(args, "-ml", "1", "-sow")
	}

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.Path, args, stdout, stderr, err)
	}

	raw, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper: transcript not written: %w", err)
	}

	var doc transcriptFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("whisper: parse transcript: %w", err)
	}

	segments := make([]Segment, 0, len(doc.Transcription))
	for _, t := range doc.Transcription {
		segments = append(segments, Segment{
			Start: float64(t.Offsets.From) / 1000,
			End:   float64(t.Offsets.To) / 1000,
			Text:  t.Text,
		})
	}
	return segments, nil
}

func wrapExecError(cmd string, args []string, stdout, stderr []byte, cause error) error {
	exitCode := 0
	var ee *exec.ExitError
	if errors.As(cause, &ee) {
		exitCode = ee.ExitCode()
	}
	return &ExecError{
		Cmd:      cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		Cause:    cause,
	}
}
