package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeTranscript writes a whisper.cpp-shaped JSON document to the -of
// prefix found in args, standing in for the real binary.
func fakeTranscript(t *testing.T, doc string) func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		prefix := ""
		for i, a := range args {
			if a == "-of" && i+1 < len(args) {
				prefix = args[i+1]
			}
		}
		if prefix == "" {
			t.Fatal("no -of argument passed")
		}
		if err := os.WriteFile(prefix+".json", []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		return nil, nil, nil
	}
}

func TestTranscribe_ParsesSegments(t *testing.T) {
	c := New("")
	c.execFn = fakeTranscript(t, `{
		"transcription": [
			{"offsets": {"from": 0, "to": 1500}, "text": " Hello there"},
			{"offsets": {"from": 1500, "to": 2250}, "text": " friend"}
		]
	}`)

	segments, err := c.Transcribe(context.Background(), "/models/ggml-tiny.bin", "/tmp/a.wav", false)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 1.5 {
		t.Fatalf("bad first segment timing: %+v", segments[0])
	}
	if segments[1].Text != " friend" {
		t.Fatalf("expected raw text preserved, got %q", segments[1].Text)
	}
}

func TestTranscribe_WordModeArgs(t *testing.T) {
	c := New("/opt/whisper-cli")

	var gotArgs []string
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotArgs = args
		return fakeTranscript(t, `{"transcription": []}`)(ctx, name, args...)
	}

	if _, err := c.Transcribe(context.Background(), "/m.bin", "/a.wav", true); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	joined := ""
	for _, a := range gotArgs {
		joined += a + " "
	}
	for _, want := range []string{"-ml 1 ", "-sow ", "-m /m.bin", "-f /a.wav", "-oj"} {
		found := false
		for i := 0; i+len(want) <= len(joined); i++ {
			if joined[i:i+len(want)] == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected args to contain %q, got %v", want, gotArgs)
		}
	}
}

func TestTranscribe_WrapsExecError(t *testing.T) {
	c := New("")
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("model load failed"), errors.New("boom")
	}

	_, err := c.Transcribe(context.Background(), "/m.bin", "/a.wav", false)
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecError, got %T", err)
	}
	if ee.Stderr != "model load failed" {
		t.Fatalf("expected stderr preserved, got %q", ee.Stderr)
	}
}

func TestTranscribe_RequiresInputs(t *testing.T) {
	c := New("")
	if _, err := c.Transcribe(context.Background(), "", "/a.wav", false); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := c.Transcribe(context.Background(), "/m.bin", "", false); err == nil {
		t.Fatal("expected error for missing wav")
	}
}

func TestModelCache(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "ggml-tiny.bin")
	if err := os.WriteFile(modelPath, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := NewModelCache(dir)

	got, err := cache.Resolve("tiny")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != modelPath {
		t.Fatalf("expected %s, got %s", modelPath, got)
	}

	// Second lookup hits the cache even if the file disappears.
	if err := os.Remove(modelPath); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Resolve("tiny"); err != nil {
		t.Fatalf("expected cached resolution, got %v", err)
	}

	if _, err := cache.Resolve("base"); err == nil {
		t.Fatal("expected error for missing model file")
	}
	if _, err := cache.Resolve("giant"); err == nil {
		t.Fatal("expected error for unknown size")
	}
}
