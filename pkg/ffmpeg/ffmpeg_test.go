package ffmpeg

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keepFiles = flag.Bool("keep", false, "keep generated test files for inspection")

func TestCommandBuild(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		output   string
		opts     []Option
		wantArgs []string
	}{
		{
			name:   "simple copy",
			input:  "input.mkv",
			output: "output.mp4",
			opts:   []Option{CopyAll},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mkv",
				"-c", "copy",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "seekto calculates duration",
			input:  "input.mp4",
			output: "output.mp4",
			opts: []Option{
				SeekTo(10*time.Second, 25*time.Second),
				CopyAll,
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-ss", "10.000",
				"-i", "input.mp4",
				"-t", "15.000",
				"-c", "copy",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "h264 encoding",
			input:  "input.mp4",
			output: "output.mp4",
			opts: []Option{
				VideoCodec("libx264"),
				CRF(23),
				Preset("fast"),
				PixelFormat("yuv420p"),
				AudioCodec("aac"),
				AudioBitrate("192k"),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c:v", "libx264",
				"-crf", "23",
				"-preset", "fast",
				"-pix_fmt", "yuv420p",
				"-c:a", "aac",
				"-b:a", "192k",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "filters are combined",
			input:  "input.mp4",
			output: "output.mp4",
			opts: []Option{
				Filter("scale=1280:-2"),
				Filter("fps=30"),
				CopyAudio,
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c:a", "copy",
				"-vf", "scale=1280:-2,fps=30",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "no faststart for non-mp4",
			input:  "input.mp4",
			output: "output.webm",
			opts:   []Option{CopyAll},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c", "copy",
				"output.webm",
			},
		},
		{
			name:   "metadata",
			input:  "input.mp4",
			output: "output.mp4",
			opts: []Option{
				CopyAll,
				Metadata("title", "My Video"),
				Metadata("artist", "Me"),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c", "copy",
				"-metadata", "title=My Video",
				"-metadata", "artist=Me",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "clip preset bundles",
			input:  "input.mp4",
			output: "output.mp4",
			opts:   Flatten(PresetClipHQ(), PresetAAC192()),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c:v", "libx264",
				"-crf", "18",
				"-preset", "slow",
				"-pix_fmt", "yuv420p",
				"-c:a", "aac",
				"-b:a", "192k",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "burn preset copies audio",
			input:  "input.mp4",
			output: "output.mp4",
			opts:   append([]Option{Filter("subtitles=subs.srt")}, PresetBurn()...),
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-c:v", "libx264",
				"-crf", "23",
				"-preset", "veryfast",
				"-pix_fmt", "yuv420p",
				"-c:a", "copy",
				"-vf", "subtitles=subs.srt",
				"-movflags", "+faststart",
				"output.mp4",
			},
		},
		{
			name:   "wav extraction",
			input:  "input.mp4",
			output: "audio.wav",
			opts: []Option{
				NoVideo,
				AudioCodec("pcm_s16le"),
				AudioChannels(1),
				AudioSampleRate(16000),
			},
			wantArgs: []string{
				"-hide_banner", "-y",
				"-i", "input.mp4",
				"-vn",
				"-c:a", "pcm_s16le",
				"-ac", "1",
				"-ar", "16000",
				"audio.wav",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(tt.input, tt.output, tt.opts...)
			got := cmd.Build()
			assert.Equal(t, tt.wantArgs, got)
		})
	}
}

func TestProgressParsing(t *testing.T) {
	parser := NewProgressParser()

	lines := []string{
		"frame=100",
		"fps=30.5",
		"bitrate=1234.5kbits/s",
		"total_size=12345678",
		"out_time_us=5000000",
		"speed=2.5x",
		"progress=continue",
	}

	var complete bool
	for _, line := range lines {
		if parser.ParseLine(line) {
			complete = true
		}
	}

	require.True(t, complete, "Expected complete progress update")

	p := parser.Current()

	assert.Equal(t, int64(100), p.Frame)
	assert.Equal(t, 30.5, p.FPS)
	assert.Equal(t, "1234.5kbits/s", p.Bitrate)
	assert.Equal(t, int64(12345678), p.TotalSize)
	assert.Equal(t, int64(5000000), p.OutTimeUS)
	assert.Equal(t, 5.0, p.OutTimeSeconds())
	assert.Equal(t, "2.5x", p.Speed)
	assert.Equal(t, "continue", p.Progress)
}

func TestProgressParserIgnoresNoise(t *testing.T) {
	parser := NewProgressParser()
	assert.False(t, parser.ParseLine(""))
	assert.False(t, parser.ParseLine("no equals sign here"))
	assert.False(t, parser.ParseLine("frame=42"))
	assert.Equal(t, int64(42), parser.Current().Frame)
}

func TestRunWithProgressClosesChannelOnStartError(t *testing.T) {
	old := binaryPath
	binaryPath = filepath.Join(t.TempDir(), "missing-ffmpeg")
	defer func() { binaryPath = old }()

	progress := make(chan Progress)
	drained := make(chan struct{})
	go func() {
		for range progress {
		}
		close(drained)
	}()

	err := RunWithProgress(context.Background(), "in.mp4", "out.mp4", progress, CopyAll)
	assert.Error(t, err)

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("progress channel left open after start failure")
	}
}

func TestParseSceneTimes(t *testing.T) {
	logs := `[Parsed_showinfo_1 @ 0x1] n:   0 pts:  12800 pts_time:0.5 duration:512
[Parsed_showinfo_1 @ 0x1] n:   1 pts:  64000 pts_time:2.5 duration:512
[Parsed_showinfo_1 @ 0x1] n:   2 pts:  76800 pts_time:3.0 duration:512
[Parsed_showinfo_1 @ 0x1] n:   3 pts: 256000 pts_time:10.0 duration:512`

	// 0.5 is inside the gap from t=0; 3.0 is inside the gap from 2.5
	got := ParseSceneTimes(logs, 2.0)
	assert.Equal(t, []float64{2.5, 10.0}, got)

	// a tiny gap keeps everything
	got = ParseSceneTimes(logs, 0.1)
	assert.Equal(t, []float64{0.5, 2.5, 3.0, 10.0}, got)

	assert.Nil(t, ParseSceneTimes("no matches here", 1.0))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.000"},
		{1 * time.Second, "1.000"},
		{1500 * time.Millisecond, "1.500"},
		{90 * time.Second, "90.000"},
		{time.Hour + 30*time.Minute + 45*time.Second + 500*time.Millisecond, "5445.500"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.d)
		assert.Equal(t, tt.want, got)
	}
}

// =============================================================================
// Integration tests - require ffmpeg to be installed
// =============================================================================

// generateTestVideo creates a test video using ffmpeg's testsrc.
// Returns the path to the generated file. Caller must clean up.
func generateTestVideo(t *testing.T, duration time.Duration) string {
	t.Helper()

	var tmpDir string
	if *keepFiles {
		tmpDir = filepath.Join(".", "testdata", "artifacts", t.Name())
		if err := os.MkdirAll(tmpDir, 0755); err != nil {
			t.Fatalf("failed to create test dir: %v", err)
		}
		t.Logf("Keeping test files in: %s", tmpDir)
	} else {
		tmpDir = t.TempDir()
	}
	output := filepath.Join(tmpDir, "test_input.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	durStr := formatDuration(duration)
	args := []string{
		"-hide_banner", "-y",
		"-f", "lavfi", "-i", "testsrc2=duration=" + durStr + ":size=320x240:rate=30",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=" + durStr + ":sample_rate=44100",
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "28",
		"-c:a", "aac", "-b:a", "64k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-movflags", "+faststart",
		output,
	}

	err := run(ctx, args, nil)
	require.NoError(t, err, "failed to generate test video")

	return output
}

func TestIntegration_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	input := generateTestVideo(t, 2*time.Second)
	outputDir := t.TempDir()
	if *keepFiles {
		outputDir = filepath.Dir(input)
	}
	output := filepath.Join(outputDir, "output.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := Run(ctx, input, output, CopyAll, MapAll)
	require.NoError(t, err)

	info, err := os.Stat(output)
	require.NoError(t, err, "output file not created")
	assert.Greater(t, info.Size(), int64(0), "output file is empty")
}

func TestIntegration_ExtractClip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	input := generateTestVideo(t, 5*time.Second)
	outputDir := t.TempDir()
	if *keepFiles {
		outputDir = filepath.Dir(input)
	}
	output := filepath.Join(outputDir, "clip.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := ExtractClip(ctx, input, output, 1*time.Second, 3*time.Second)
	require.NoError(t, err)

	result, err := Probe(ctx, output)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, result.Duration, 0.5, "clip duration should be ~2.0")
}

func TestIntegration_ProgressReporting(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	input := generateTestVideo(t, 3*time.Second)
	outputDir := t.TempDir()
	if *keepFiles {
		outputDir = filepath.Dir(input)
	}
	output := filepath.Join(outputDir, "output.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	progress := make(chan Progress, 100)

	var updates []Progress
	done := make(chan struct{})
	go func() {
		for p := range progress {
			updates = append(updates, p)
		}
		close(done)
	}()

	// Re-encode (not just copy) so we get progress updates
	err := RunWithProgress(ctx, input, output, progress,
		VideoCodec("libx264"),
		Preset("ultrafast"),
		CRF(28),
		PixelFormat("yuv420p"),
		AudioCodec("aac"),
		AudioBitrate("64k"),
	)
	require.NoError(t, err)

	<-done

	require.NotEmpty(t, updates, "should receive progress updates")
	t.Logf("received %d progress updates", len(updates))

	last := updates[len(updates)-1]
	assert.Equal(t, "end", last.Progress)
	assert.Greater(t, last.Frame, int64(0), "frame count should be > 0")
	t.Logf("final progress: frame=%d, speed=%s, out_time=%.2fs",
		last.Frame, last.Speed, last.OutTimeSeconds())
}

func TestIntegration_Probe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	input := generateTestVideo(t, 2*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := Probe(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, 320, result.Width)
	assert.Equal(t, 240, result.Height)
	assert.InDelta(t, 2.0, result.Duration, 0.5, "duration should be ~2.0")
	assert.InDelta(t, 30.0, result.FPS, 1.0, "fps should be ~30")
	assert.Equal(t, "h264", result.VideoCodec)
	assert.Equal(t, "yuv420p", result.PixelFormat)

	assert.Equal(t, "aac", result.AudioCodec)
	assert.Equal(t, 1, result.AudioChannels)
	assert.Equal(t, 44100, result.AudioSampleRate)

	assert.Equal(t, 1, result.VideoStreams)
	assert.Equal(t, 1, result.AudioStreams)

	assert.Contains(t, result.FormatName, "mp4")
	assert.Greater(t, result.Size, int64(0))
	assert.Greater(t, result.Bitrate, int64(0))
}
