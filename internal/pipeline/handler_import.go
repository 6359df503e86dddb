package pipeline

import (
	"context"
	"path/filepath"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/utils/filename"
)

// Upload normalizes a file the HTTP layer staged into uploads and
// registers it as a Video.
func (d *Deps) Upload(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	if job.ProjectID == nil || *job.ProjectID == "" {
		return nil, Errorf(KindValidation, "upload", "project_id is required")
	}
	staged := inputString(job.InputData, "filename", "")
	if staged == "" {
		return nil, Errorf(KindValidation, "upload", "filename is required")
	}
	stagedPath := d.Resolver.UploadPath(staged)
	if !fileExists(stagedPath) {
		return nil, Errorf(KindNotFound, "upload", "staged file %s not found", staged)
	}

	r.Report(ctx, 30, "Importing video safely...")

	title := inputString(job.InputData, "title", "Uploaded Video")
	return d.registerImport(ctx, "upload", job, stagedPath, title)
}

// BrowserImport normalizes a file staged by the remote-browser
// companion and registers it as a Video.
func (d *Deps) BrowserImport(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	if job.ProjectID == nil || *job.ProjectID == "" {
		return nil, Errorf(KindValidation, "browser_import", "project_id is required")
	}
	tempPath := inputString(job.InputData, "temp_path", "")
	if tempPath == "" {
		return nil, Errorf(KindValidation, "browser_import", "temp_path is required")
	}
	if !fileExists(tempPath) {
		return nil, Errorf(KindNotFound, "browser_import", "staged file %s not found", tempPath)
	}

	r.Report(ctx, 20, "Importing browser download...")

	title := inputString(job.InputData, "title", "")
	if title == "" {
		originalName := inputString(job.InputData, "original_name", filepath.Base(tempPath))
		title = filename.BaseNoExt(filename.StripStagePrefix(originalName))
	}
	return d.registerImport(ctx, "browser_import", job, tempPath, title)
}

// registerImport is the shared tail of the two import paths: safe-import
// the staged bytes, drop the stage file, register the row.
func (d *Deps) registerImport(ctx context.Context, op string, job *db.Job, stagedPath, title string) (db.JSONMap, error) {
	outputPath, _, err := d.safeImport(ctx, op, stagedPath)
	if err != nil {
		return nil, err
	}
	removeIfDifferent(stagedPath, outputPath)

	final, err := d.probe(ctx, outputPath)
	if err != nil {
		removeIfDifferent(outputPath, "")
		return nil, toolErr(op, err)
	}

	video, err := d.DB.CreateVideo(ctx, db.CreateVideoParams{
		ProjectID: *job.ProjectID,
		Title:     title,
		Filename:  filepath.Base(outputPath),
		Duration:  &final.Duration,
		Width:     i64ptr(final.Width),
		Height:    i64ptr(final.Height),
		SizeBytes: &final.Size,
	})
	if err != nil {
		removeIfDifferent(outputPath, "")
		return nil, E(KindTransientIO, op, err)
	}

	return db.JSONMap{
		"video_id": video.ID,
		"filename": video.Filename,
		"title":    video.Title,
	}, nil
}
