package ffmpeg

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ExtractClip re-encodes a time range from a video. Seeking happens on
// the input side so long sources do not decode from zero.
func ExtractClip(ctx context.Context, input, output string, start, end time.Duration, extraOpts ...Option) error {
	opts := []Option{
		SeekTo(start, end),
	}
	opts = append(opts, PresetClipHQ()...)
	opts = append(opts, PresetAAC192()...)
	opts = append(opts, extraOpts...)
	return Run(ctx, input, output, opts...)
}

// ExtractClipWithProgress is like ExtractClip but reports progress.
func ExtractClipWithProgress(ctx context.Context, input, output string, start, end time.Duration, progress chan<- Progress, extraOpts ...Option) error {
	opts := []Option{
		SeekTo(start, end),
	}
	opts = append(opts, PresetClipHQ()...)
	opts = append(opts, PresetAAC192()...)
	opts = append(opts, extraOpts...)
	return RunWithProgress(ctx, input, output, progress, opts...)
}

// RemuxOptions configures remuxing.
type RemuxOptions struct {
	Metadata map[string]string // Metadata key-value pairs to set
}

// Remux copies streams to a new container without re-encoding.
func Remux(ctx context.Context, input, output string, opts *RemuxOptions) error {
	if opts == nil {
		opts = &RemuxOptions{}
	}

	runOpts := []Option{CopyAll, MapAll}
	for k, v := range opts.Metadata {
		runOpts = append(runOpts, Metadata(k, v))
	}

	return Run(ctx, input, output, runOpts...)
}

// ExtractWAV writes a 16 kHz mono PCM WAV, the input format the speech
// recognizer expects.
func ExtractWAV(ctx context.Context, input, output string) error {
	return Run(ctx, input, output,
		NoVideo,
		AudioCodec("pcm_s16le"),
		AudioChannels(1),
		AudioSampleRate(16000),
	)
}

// NoVideo disables video in output (-vn).
var NoVideo Option = OptionFunc(func(cmd *Command) {
	cmd.postInput = append(cmd.postInput, "-vn")
})

var ptsTimeRe = regexp.MustCompile(`pts_time:([0-9]+\.?[0-9]*)`)

// DetectSceneCuts runs the scene-change detector over a video and
// returns cut timestamps in seconds, ascending. threshold is the scene
// score in (0,1]; cuts closer than minGap seconds to the previous kept
// cut (or to the start) are discarded so a flashy intro does not
// produce confetti clips.
func DetectSceneCuts(ctx context.Context, input string, threshold, minGap float64) ([]float64, error) {
	args := []string{
		"-hide_banner",
		"-i", input,
		"-vf", fmt.Sprintf("select='gt(scene,%g)',showinfo", threshold),
		"-an",
		"-f", "null",
		"-",
	}

	res := runCapture(ctx, args)
	if res.Err != nil {
		return nil, res.Err
	}
	return ParseSceneTimes(res.Logs, minGap), nil
}

// ParseSceneTimes extracts showinfo pts_time values from ffmpeg logs,
// applying the same min-gap rule as DetectSceneCuts.
func ParseSceneTimes(logs string, minGap float64) []float64 {
	var cuts []float64
	last := 0.0
	for _, m := range ptsTimeRe.FindAllStringSubmatch(logs, -1) {
		t, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if t-last < minGap {
			continue
		}
		cuts = append(cuts, t)
		last = t
	}
	return cuts
}
