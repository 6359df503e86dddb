package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/ffmpeg"
	"thirdcoast.systems/reframe/pkg/utils/filename"
)

// span is one [start, end) cut of the source video.
type span struct {
	start float64
	end   float64
}

// SplitScenes cuts a video at detected scene changes.
func (d *Deps) SplitScenes(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	video, videoPath, err := d.loadVideo(ctx, job)
	if err != nil {
		return nil, err
	}

	minSceneLen := inputFloat(job.InputData, "min_scene_len", 2.0)
	threshold := inputFloat(job.InputData, "threshold", 3.0)
	if minSceneLen <= 0 || threshold <= 0 {
		return nil, Errorf(KindValidation, "split_scenes", "min_scene_len and threshold must be positive")
	}

	r.Report(ctx, 10, "Detecting scenes...")

	info, err := d.probe(ctx, videoPath)
	if err != nil {
		return nil, toolErr("split_scenes", err)
	}

	detectCtx, cancel := context.WithTimeout(ctx, d.Config.EncodeTimeoutDur())
	// The detector's scene score is 0..1; the UI threshold rides a 0..10
	// scale inherited from content-difference detection.
	cuts, err := ffmpeg.DetectSceneCuts(detectCtx, videoPath, threshold/10, minSceneLen)
	cancel()
	if err != nil {
		return nil, toolErr("split_scenes", err)
	}

	if len(cuts) == 0 {
		r.Report(ctx, 100, "No scenes detected")
		return db.JSONMap{"video_ids": []string{}, "count": 0}, nil
	}

	spans := make([]span, 0, len(cuts)+1)
	prev := 0.0
	for _, cut := range cuts {
		spans = append(spans, span{start: prev, end: cut})
		prev = cut
	}
	if info.Duration > prev {
		spans = append(spans, span{start: prev, end: info.Duration})
	}

	return d.extractClips(ctx, job, r, video, videoPath, spans, "clip", "Clip")
}

// SplitFixed cuts a video into fixed-length parts.
func (d *Deps) SplitFixed(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	video, videoPath, err := d.loadVideo(ctx, job)
	if err != nil {
		return nil, err
	}

	interval := inputFloat(job.InputData, "interval", 30)
	if interval <= 0 {
		return nil, Errorf(KindValidation, "split_fixed", "interval must be positive")
	}

	r.Report(ctx, 10, "Splitting video...")

	info, err := d.probe(ctx, videoPath)
	if err != nil {
		return nil, toolErr("split_fixed", err)
	}
	if info.Duration <= 0 {
		return nil, Errorf(KindValidation, "split_fixed", "video has no measurable duration")
	}

	count := int(math.Ceil(info.Duration / interval))
	spans := make([]span, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * interval
		end := math.Min(start+interval, info.Duration)
		spans = append(spans, span{start: start, end: end})
	}

	return d.extractClips(ctx, job, r, video, videoPath, spans, "part", "Part")
}

// extractClips cuts each span into processed/ and registers the child
// rows. Progress walks 10 → 100 as clips finish.
func (d *Deps) extractClips(ctx context.Context, job *db.Job, r *Reporter, video *db.Video, videoPath string, spans []span, suffix, titlePrefix string) (db.JSONMap, error) {
	base := filename.BaseNoExt(video.Filename)
	videoIDs := make([]string, 0, len(spans))

	for i, sp := range spans {
		outName := fmt.Sprintf("%s_%s_%d.mp4", base, suffix, i+1)
		outPath := d.Resolver.ProcessedPath(outName)

		clipCtx, cancel := context.WithTimeout(ctx, d.Config.EncodeTimeoutDur())
		err := ffmpeg.ExtractClip(clipCtx, videoPath, outPath,
			secondsDur(sp.start), secondsDur(sp.end))
		cancel()
		if err != nil {
			removeIfDifferent(outPath, "")
			return nil, toolErr(job.Type, err)
		}

		clipDuration := sp.end - sp.start
		clip, err := d.DB.CreateVideo(ctx, db.CreateVideoParams{
			ProjectID:     video.ProjectID,
			Title:         fmt.Sprintf("%s %d", titlePrefix, i+1),
			Filename:      outName,
			Duration:      &clipDuration,
			IsClip:        true,
			ParentVideoID: &video.ID,
		})
		if err != nil {
			removeIfDifferent(outPath, "")
			return nil, E(KindTransientIO, job.Type, err)
		}
		videoIDs = append(videoIDs, clip.ID)

		r.Report(ctx, 10+int(float64(i+1)/float64(len(spans))*90), "")
	}

	return db.JSONMap{"video_ids": videoIDs, "count": len(videoIDs)}, nil
}

func secondsDur(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
