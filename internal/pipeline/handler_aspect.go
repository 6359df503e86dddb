package pipeline

import (
	"context"

	"thirdcoast.systems/reframe/internal/db"
)

// ConvertAspect re-frames an existing video onto the portrait canvas.
func (d *Deps) ConvertAspect(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	video, videoPath, err := d.loadVideo(ctx, job)
	if err != nil {
		return nil, err
	}

	r.Report(ctx, 20, "Analyzing video dimensions...")

	info, err := d.probe(ctx, videoPath)
	if err != nil {
		return nil, toolErr("convert_aspect", err)
	}

	r.Report(ctx, 40, "Converting to 9:16 aspect ratio...")

	outName := "vertical_" + video.Filename
	outPath := d.Resolver.ProcessedPath(outName)
	progress, wait := r.EncodeBand(ctx, info.Duration, 40, 85, "Converting to 9:16 aspect ratio...")
	err = d.convertAspect(ctx, videoPath, outPath, info.Width, info.Height, progress)
	wait()
	if err != nil {
		removeIfDifferent(outPath, "")
		return nil, toolErr("convert_aspect", err)
	}

	final, err := d.probe(ctx, outPath)
	if err != nil {
		removeIfDifferent(outPath, "")
		return nil, toolErr("convert_aspect", err)
	}

	converted, err := d.DB.CreateVideo(ctx, db.CreateVideoParams{
		ProjectID:     video.ProjectID,
		Title:         "Vertical - " + video.Title,
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
		return nil, E(KindTransientIO, "convert_aspect", err)
	}

	return db.JSONMap{"video_id": converted.ID, "filename": converted.Filename}, nil
}
