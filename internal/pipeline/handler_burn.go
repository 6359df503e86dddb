package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/ffmpeg"
	"thirdcoast.systems/reframe/pkg/subtitle"
	"thirdcoast.systems/reframe/pkg/utils/filename"
)

// Burn renders a caption file into a video's frames.
func (d *Deps) Burn(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	video, videoPath, err := d.loadVideo(ctx, job)
	if err != nil {
		return nil, err
	}

	caption, err := d.resolveCaption(ctx, job, video)
	if err != nil {
		return nil, err
	}
	srtPath := d.Resolver.CaptionPath(caption.Filename)
	if !fileExists(srtPath) {
		return nil, Errorf(KindNotFound, "burn", "caption file %s not found on disk", caption.Filename)
	}

	r.Report(ctx, 10, "Preparing subtitle style...")

	styleMap := inputMap(job.InputData, "style")
	if styleMap == nil {
		styleMap = caption.Style
	}
	style, err := decodeStyle(styleMap)
	if err != nil {
		return nil, Errorf(KindValidation, "burn", "invalid style: %v", err)
	}

	outName := "burned_" + uuid.NewString() + "_" + filename.BaseNoExt(video.Filename) + ".mp4"
	outPath := d.Resolver.ProcessedPath(outName)

	var total float64
	if video.Duration != nil {
		total = *video.Duration
	}
	if err := d.burnEncode(ctx, videoPath, outPath, srtPath, style, total, r); err != nil {
		removeIfDifferent(outPath, "")
		return nil, err
	}

	r.Report(ctx, 90, "Registering video...")

	final, err := d.probe(ctx, outPath)
	if err != nil {
		removeIfDifferent(outPath, "")
		return nil, toolErr("burn", err)
	}

	burned, err := d.DB.CreateVideo(ctx, db.CreateVideoParams{
		ProjectID:     video.ProjectID,
		Title:         video.Title + " (Captioned)",
		Filename:      outName,
		Duration:      &final.Duration,
		Width:         i64ptr(final.Width),
		Height:        i64ptr(final.Height),
		SizeBytes:     &final.Size,
		IsClip:        video.IsClip,
		ParentVideoID: &video.ID,
	})
	if err != nil {
		removeIfDifferent(outPath, "")
		return nil, E(KindTransientIO, "burn", err)
	}

	return db.JSONMap{
		"video_id":   burned.ID,
		"filename":   burned.Filename,
		"caption_id": caption.ID,
	}, nil
}

// burnEncode runs the subtitles filter encode, retrying once with the
// stock font when a specialty font fails to render.
func (d *Deps) burnEncode(ctx context.Context, input, output, srtPath string, style subtitle.Style, total float64, r *Reporter) error {
	encodeCtx, cancel := context.WithTimeout(ctx, d.Config.EncodeTimeoutDur())
	defer cancel()

	filter := subtitle.BurnFilter(srtPath, style)
	opts := append([]ffmpeg.Option{ffmpeg.Filter(filter)}, ffmpeg.PresetBurn()...)
	progress, wait := r.EncodeBand(ctx, total, 15, 85, "Burning captions...")
	err := ffmpeg.RunWithProgress(encodeCtx, input, output, progress, opts...)
	wait()
	if err == nil {
		return nil
	}

	var fferr *ffmpeg.Error
	if errors.As(err, &fferr) {
		stderr := strings.ToLower(fferr.FullStderr())
		if strings.Contains(stderr, "font") || strings.Contains(stderr, "subtitles") {
			fallback := subtitle.FallbackFilter(srtPath, style)
			opts = append([]ffmpeg.Option{ffmpeg.Filter(fallback)}, ffmpeg.PresetBurn()...)
			if retryErr := ffmpeg.Run(encodeCtx, input, output, opts...); retryErr == nil {
				return nil
			}
		}
	}
	return toolErr("burn", err)
}

// resolveCaption picks the caption named in the job input, or the
// video's newest caption when none was named.
func (d *Deps) resolveCaption(ctx context.Context, job *db.Job, video *db.Video) (*db.Caption, error) {
	if id := inputString(job.InputData, "caption_id", ""); id != "" {
		caption, err := d.DB.GetCaptionByID(ctx, id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, Errorf(KindNotFound, "burn", "caption %s not found", id)
			}
			return nil, E(KindTransientIO, "burn", err)
		}
		if caption.VideoID != video.ID {
			return nil, Errorf(KindValidation, "burn", "caption %s belongs to a different video", id)
		}
		return caption, nil
	}

	captions, err := d.DB.ListCaptionsByVideo(ctx, video.ID)
	if err != nil {
		return nil, E(KindTransientIO, "burn", err)
	}
	if len(captions) == 0 {
		return nil, Errorf(KindNotFound, "burn", "video %s has no captions", video.ID)
	}
	return captions[0], nil
}

func decodeStyle(m db.JSONMap) (subtitle.Style, error) {
	var style subtitle.Style
	if m == nil {
		return style, nil
	}
	raw, err := json.Marshal(map[string]any(m))
	if err != nil {
		return style, err
	}
	if err := json.Unmarshal(raw, &style); err != nil {
		return style, err
	}
	return style, nil
}
