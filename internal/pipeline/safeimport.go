package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"thirdcoast.systems/reframe/pkg/ffmpeg"
)

// safeImport normalizes a staged file into uploads/<uuid>.mp4. Files
// already in the canonical shape (mp4 container, h264 video, portrait
// target ratio) are remuxed without re-encoding; everything else goes
// through aspect conversion.
func (d *Deps) safeImport(ctx context.Context, op, input string) (string, *ffmpeg.ProbeResult, error) {
	info, err := d.probe(ctx, input)
	if err != nil {
		return "", nil, toolErr(op, err)
	}
	if info.VideoStreams == 0 {
		return "", nil, Errorf(KindValidation, op, "%s has no video stream", input)
	}

	output := d.Resolver.UploadPath(uuid.NewString() + ".mp4")

	if isCanonical(info, d.Config.TargetWidth, d.Config.TargetHeight) {
		remuxCtx, cancel := context.WithTimeout(ctx, d.Config.EncodeTimeoutDur())
		err = ffmpeg.Remux(remuxCtx, input, output, nil)
		cancel()
	} else {
		err = d.convertAspect(ctx, input, output, info.Width, info.Height, nil)
	}
	if err != nil {
		removeIfDifferent(output, "")
		return "", nil, toolErr(op, err)
	}

	return output, info, nil
}

func isCanonical(info *ffmpeg.ProbeResult, targetW, targetH int) bool {
	if !strings.Contains(info.FormatName, "mp4") || info.VideoCodec != "h264" {
		return false
	}
	if info.Width <= 0 || info.Height <= 0 {
		return false
	}
	aspect := float64(info.Width) / float64(info.Height)
	target := float64(targetW) / float64(targetH)
	diff := aspect - target
	if diff < 0 {
		diff = -diff
	}
	return diff < aspectEpsilon
}
