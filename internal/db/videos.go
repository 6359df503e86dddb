package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const videoColumns = "id, project_id, title, filename, source_url, duration, width, height, size_bytes, is_clip, parent_video_id, created_at, updated_at, is_deleted"

func scanVideo(s rowScanner) (*Video, error) {
	var v Video
	err := s.Scan(
		&v.ID, &v.ProjectID, &v.Title, &v.Filename, &v.SourceURL,
		&v.Duration, &v.Width, &v.Height, &v.SizeBytes, &v.IsClip,
		&v.ParentVideoID, &v.CreatedAt, &v.UpdatedAt, &v.IsDeleted,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// CreateVideoParams carries the optional metadata captured at ingest.
type CreateVideoParams struct {
	ProjectID     string
	Title         string
	Filename      string
	SourceURL     *string
	Duration      *float64
	Width         *int64
	Height        *int64
	SizeBytes     *int64
	IsClip        bool
	ParentVideoID *string
}

func (dbc *DatabaseConnection) CreateVideo(ctx context.Context, p CreateVideoParams) (*Video, error) {
	id := uuid.NewString()
	_, err := dbc.execWrite(ctx,
		`INSERT INTO videos
		   (id, project_id, title, filename, source_url, duration,
		    width, height, size_bytes, is_clip, parent_video_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.ProjectID, p.Title, p.Filename, p.SourceURL, p.Duration,
		p.Width, p.Height, p.SizeBytes, p.IsClip, p.ParentVideoID,
	)
	if err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	return dbc.GetVideoByID(ctx, id)
}

func (dbc *DatabaseConnection) GetVideoByID(ctx context.Context, id string) (*Video, error) {
	row := dbc.queryRow(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE id = ? AND is_deleted = 0", id)
	return scanVideo(row)
}

func (dbc *DatabaseConnection) GetVideoByFilename(ctx context.Context, filename string) (*Video, error) {
	row := dbc.queryRow(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE filename = ? AND is_deleted = 0", filename)
	return scanVideo(row)
}

// ListVideosByProject returns a project's videos, newest first. With
// includeDeleted set, soft-deleted videos are listed too so they can be
// restored.
func (dbc *DatabaseConnection) ListVideosByProject(ctx context.Context, projectID string, includeDeleted bool) ([]*Video, error) {
	q := "SELECT " + videoColumns + " FROM videos WHERE project_id = ?"
	if !includeDeleted {
		q += " AND is_deleted = 0"
	}
	q += " ORDER BY created_at DESC"
	rows, err := dbc.query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// VideoUpdate patches metadata fields. Nil fields are left alone.
type VideoUpdate struct {
	Title         *string
	Filename      *string
	SourceURL     *string
	Duration      *float64
	Width         *int64
	Height        *int64
	SizeBytes     *int64
	IsClip        *bool
	ParentVideoID *string
}

func (dbc *DatabaseConnection) UpdateVideo(ctx context.Context, id string, u VideoUpdate) (*Video, error) {
	var set []string
	var args []any
	if u.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Filename != nil {
		set = append(set, "filename = ?")
		args = append(args, *u.Filename)
	}
	if u.Duration != nil {
		set = append(set, "duration = ?")
		args = append(args, *u.Duration)
	}
	if u.Width != nil {
		set = append(set, "width = ?")
		args = append(args, *u.Width)
	}
	if u.Height != nil {
		set = append(set, "height = ?")
		args = append(args, *u.Height)
	}
	if u.SizeBytes != nil {
		set = append(set, "size_bytes = ?")
		args = append(args, *u.SizeBytes)
	}
	if u.SourceURL != nil {
		set = append(set, "source_url = ?")
		args = append(args, *u.SourceURL)
	}
	if u.IsClip != nil {
		set = append(set, "is_clip = ?")
		args = append(args, *u.IsClip)
	}
	if u.ParentVideoID != nil {
		set = append(set, "parent_video_id = ?")
		args = append(args, *u.ParentVideoID)
	}
	if len(set) == 0 {
		return dbc.GetVideoByID(ctx, id)
	}

	args = append(args, id)
	if _, err := dbc.execWrite(ctx,
		"UPDATE videos SET "+strings.Join(set, ", ")+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}
	return dbc.GetVideoByID(ctx, id)
}

func (dbc *DatabaseConnection) DeleteVideo(ctx context.Context, id string, hard bool) error {
	var err error
	if hard {
		_, err = dbc.execWrite(ctx, "DELETE FROM videos WHERE id = ?", id)
	} else {
		_, err = dbc.execWrite(ctx, "UPDATE videos SET is_deleted = 1 WHERE id = ?", id)
	}
	return err
}

// SoftDeleteVideos marks a batch of videos deleted in one statement.
func (dbc *DatabaseConnection) SoftDeleteVideos(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := dbc.execWrite(ctx,
		"UPDATE videos SET is_deleted = 1 WHERE id IN ("+placeholders+")", args...)
	return err
}

func (dbc *DatabaseConnection) RestoreVideo(ctx context.Context, id string) (*Video, error) {
	if _, err := dbc.execWrite(ctx, "UPDATE videos SET is_deleted = 0 WHERE id = ?", id); err != nil {
		return nil, err
	}
	return dbc.GetVideoByID(ctx, id)
}
