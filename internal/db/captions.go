package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const captionColumns = "id, video_id, filename, language, format, style, created_at, updated_at, is_deleted"

func scanCaption(s rowScanner) (*Caption, error) {
	var c Caption
	err := s.Scan(
		&c.ID, &c.VideoID, &c.Filename, &c.Language, &c.Format,
		&c.Style, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (dbc *DatabaseConnection) CreateCaption(ctx context.Context, videoID, filename, language, format string, style JSONMap) (*Caption, error) {
	if language == "" {
		language = "en"
	}
	if format == "" {
		format = "srt"
	}
	id := uuid.NewString()
	_, err := dbc.execWrite(ctx,
		`INSERT INTO captions (id, video_id, filename, language, format, style)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, videoID, filename, language, format, style,
	)
	if err != nil {
		return nil, fmt.Errorf("create caption: %w", err)
	}
	return dbc.GetCaptionByID(ctx, id)
}

func (dbc *DatabaseConnection) GetCaptionByID(ctx context.Context, id string) (*Caption, error) {
	row := dbc.queryRow(ctx,
		"SELECT "+captionColumns+" FROM captions WHERE id = ? AND is_deleted = 0", id)
	return scanCaption(row)
}

func (dbc *DatabaseConnection) ListCaptionsByVideo(ctx context.Context, videoID string) ([]*Caption, error) {
	rows, err := dbc.query(ctx,
		"SELECT "+captionColumns+" FROM captions WHERE video_id = ? AND is_deleted = 0 ORDER BY created_at DESC",
		videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captions []*Caption
	for rows.Next() {
		c, err := scanCaption(rows)
		if err != nil {
			return nil, err
		}
		captions = append(captions, c)
	}
	return captions, rows.Err()
}

// CaptionUpdate patches caption fields. Nil fields are left alone.
type CaptionUpdate struct {
	Filename *string
	Language *string
	Format   *string
	Style    JSONMap
}

func (dbc *DatabaseConnection) UpdateCaption(ctx context.Context, id string, u CaptionUpdate) (*Caption, error) {
	var set []string
	var args []any
	if u.Filename != nil {
		set = append(set, "filename = ?")
		args = append(args, *u.Filename)
	}
	if u.Language != nil {
		set = append(set, "language = ?")
		args = append(args, *u.Language)
	}
	if u.Format != nil {
		set = append(set, "format = ?")
		args = append(args, *u.Format)
	}
	if u.Style != nil {
		set = append(set, "style = ?")
		args = append(args, u.Style)
	}
	if len(set) == 0 {
		return dbc.GetCaptionByID(ctx, id)
	}

	args = append(args, id)
	if _, err := dbc.execWrite(ctx,
		"UPDATE captions SET "+strings.Join(set, ", ")+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update caption: %w", err)
	}
	return dbc.GetCaptionByID(ctx, id)
}

func (dbc *DatabaseConnection) DeleteCaption(ctx context.Context, id string, hard bool) error {
	var err error
	if hard {
		_, err = dbc.execWrite(ctx, "DELETE FROM captions WHERE id = ?", id)
	} else {
		_, err = dbc.execWrite(ctx, "UPDATE captions SET is_deleted = 1 WHERE id = ?", id)
	}
	return err
}
