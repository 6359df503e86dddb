package pipeline

import (
	"context"
	"fmt"

	"thirdcoast.systems/reframe/pkg/ffmpeg"
)

// aspectEpsilon is how close to the target ratio a frame must be to
// count as already converted.
const aspectEpsilon = 0.01

// AspectFilter plans the video filter that maps a w×h frame onto the
// targetW×targetH portrait canvas:
//
//   - already at the target ratio: plain high-quality scale
//   - wider: centered crop to the target ratio, then scale
//   - taller: fit inside the canvas, then centered black padding
func AspectFilter(w, h, targetW, targetH int) string {
	inputAspect := float64(w) / float64(h)
	targetAspect := float64(targetW) / float64(targetH)

	diff := inputAspect - targetAspect
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff < aspectEpsilon:
		return fmt.Sprintf("scale=%d:%d:flags=lanczos", targetW, targetH)
	case inputAspect > targetAspect:
		cropW := int(float64(h) * targetAspect)
		x := (w - cropW) / 2
		return fmt.Sprintf("crop=%d:%d:%d:0,scale=%d:%d:flags=lanczos", cropW, h, x, targetW, targetH)
	default:
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease:flags=lanczos,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
			targetW, targetH, targetW, targetH)
	}
}

// convertAspect re-encodes input onto the portrait canvas at output.
// A non-nil progress channel receives encoder snapshots and is closed
// when the encode finishes.
func (d *Deps) convertAspect(ctx context.Context, input, output string, w, h int, progress chan ffmpeg.Progress) error {
	ctx, cancel := context.WithTimeout(ctx, d.Config.EncodeTimeoutDur())
	defer cancel()

	opts := []ffmpeg.Option{
		ffmpeg.Filter(AspectFilter(w, h, d.Config.TargetWidth, d.Config.TargetHeight)),
	}
	opts = append(opts, ffmpeg.PresetClipHQ()...)
	opts = append(opts, ffmpeg.PresetAAC192()...)
	if progress != nil {
		return ffmpeg.RunWithProgress(ctx, input, output, progress, opts...)
	}
	return ffmpeg.Run(ctx, input, output, opts...)
}
