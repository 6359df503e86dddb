package pipeline

import (
	"context"

	"github.com/google/uuid"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/ffmpeg"
)

// Trim cuts one [start, end) segment out of a video.
func (d *Deps) Trim(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	video, videoPath, err := d.loadVideo(ctx, job)
	if err != nil {
		return nil, err
	}

	start := inputFloat(job.InputData, "start_time", -1)
	end := inputFloat(job.InputData, "end_time", -1)
	if start < 0 || end <= start {
		return nil, Errorf(KindValidation, "trim", "end_time must be greater than start_time (got %g..%g)", start, end)
	}

	r.Report(ctx, 10, "Trimming video...")

	outName := "trim_" + uuid.NewString() + ".mp4"
	outPath := d.Resolver.ProcessedPath(outName)

	progress, wait := r.EncodeBand(ctx, end-start, 10, 85, "Trimming video...")
	clipCtx, cancel := context.WithTimeout(ctx, d.Config.EncodeTimeoutDur())
	err = ffmpeg.ExtractClipWithProgress(clipCtx, videoPath, outPath, secondsDur(start), secondsDur(end), progress)
	cancel()
	wait()
	if err != nil {
		removeIfDifferent(outPath, "")
		return nil, toolErr("trim", err)
	}

	r.Report(ctx, 90, "Registering video...")

	duration := end - start
	title := inputString(job.InputData, "title", "Trimmed Video")
	clip, err := d.DB.CreateVideo(ctx, db.CreateVideoParams{
		ProjectID:     video.ProjectID,
		Title:         title,
		Filename:      outName,
		Duration:      &duration,
		IsClip:        true,
		ParentVideoID: &video.ID,
	})
	if err != nil {
		removeIfDifferent(outPath, "")
		return nil, E(KindTransientIO, "trim", err)
	}

	return db.JSONMap{"video_id": clip.ID, "filename": clip.Filename}, nil
}
