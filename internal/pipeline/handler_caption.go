package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/ffmpeg"
	"thirdcoast.systems/reframe/pkg/subtitle"
	"thirdcoast.systems/reframe/pkg/utils/filename"
	"thirdcoast.systems/reframe/pkg/utils/language"
	"thirdcoast.systems/reframe/pkg/whisper"
)

// Caption transcribes a video's audio and writes an SRT caption file.
func (d *Deps) Caption(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	video, videoPath, err := d.loadVideo(ctx, job)
	if err != nil {
		return nil, err
	}

	modelSize := inputString(job.InputData, "model_size", "tiny")
	if !whisper.ValidModelSize(modelSize) {
		return nil, Errorf(KindValidation, "caption", "invalid model_size: %q", modelSize)
	}
	wordLevel := inputBool(job.InputData, "word_level", false)

	r.Report(ctx, 10, "Loading transcription model...")
	modelPath, err := d.Models.Resolve(modelSize)
	if err != nil {
		return nil, E(KindNotFound, "caption", err)
	}

	wavFile, err := os.CreateTemp("", "reframe-audio-*.wav")
	if err != nil {
		return nil, E(KindTransientIO, "caption", err)
	}
	wavPath := wavFile.Name()
	wavFile.Close()
	defer os.Remove(wavPath)

	extractCtx, cancel := context.WithTimeout(ctx, d.Config.EncodeTimeoutDur())
	err = ffmpeg.ExtractWAV(extractCtx, videoPath, wavPath)
	cancel()
	if err != nil {
		return nil, toolErr("caption", err)
	}

	r.Report(ctx, 20, "Transcribing audio...")

	// No deadline here: large models on long videos legitimately take a
	// while, and the job context still cancels the child process.
	recognized, err := d.Whisper.Transcribe(ctx, modelPath, wavPath, wordLevel)
	if err != nil {
		return nil, toolErr("caption", err)
	}

	r.Report(ctx, 80, "Writing captions...")

	segments := make([]subtitle.Segment, 0, len(recognized))
	for _, s := range recognized {
		segments = append(segments, subtitle.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}

	srtName := filename.BaseNoExt(video.Filename) + ".srt"
	srtPath := d.Resolver.CaptionPath(srtName)
	out, err := os.Create(srtPath)
	if err != nil {
		return nil, E(KindTransientIO, "caption", err)
	}
	if err := subtitle.WriteSRT(out, segments, wordLevel); err != nil {
		out.Close()
		removeIfDifferent(srtPath, "")
		return nil, E(KindTransientIO, "caption", err)
	}
	if err := out.Close(); err != nil {
		removeIfDifferent(srtPath, "")
		return nil, E(KindTransientIO, "caption", err)
	}

	caption, err := d.DB.CreateCaption(ctx, video.ID, filepath.Base(srtPath), language.Normalize("en"), "srt", nil)
	if err != nil {
		removeIfDifferent(srtPath, "")
		return nil, E(KindTransientIO, "caption", err)
	}

	return db.JSONMap{
		"caption_id": caption.ID,
		"filename":   caption.Filename,
		"segments":   len(segments),
		"word_level": wordLevel,
	}, nil
}
