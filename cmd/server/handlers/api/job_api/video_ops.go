package job_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/queue"
	"thirdcoast.systems/reframe/pkg/whisper"
)

// resolveTarget checks access for the :p/:v route pair and returns the
// video the job will operate on.
func resolveTarget(c echo.Context, sm *auth.SessionManager, dbc *db.DatabaseConnection) (*db.Video, error) {
	user, err := common.RequireSessionUser(c, sm, dbc)
	if err != nil {
		return nil, err
	}
	projectID, err := common.RequireIDParam(c, "p")
	if err != nil {
		return nil, err
	}
	videoID, err := common.RequireIDParam(c, "v")
	if err != nil {
		return nil, err
	}
	if _, err := common.RequireProjectAccess(c, dbc, user, projectID); err != nil {
		return nil, err
	}

	video, err := dbc.GetVideoByID(c.Request().Context(), videoID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, common.ErrNotFound("video not found")
		}
		return nil, common.ErrInternal("video lookup failed")
	}
	if video.ProjectID != projectID {
		return nil, common.ErrNotFound("video not found")
	}
	return video, nil
}

func submit(c echo.Context, q *queue.Queue, jobType string, video *db.Video, input db.JSONMap, priority int) error {
	job, err := q.Submit(c.Request().Context(), db.CreateJobParams{
		Type:      jobType,
		ProjectID: &video.ProjectID,
		VideoID:   &video.ID,
		InputData: input,
		Priority:  priority,
	})
	if err != nil {
		slog.Error("submit job failed", "type", jobType, "video_id", video.ID, "error", err)
		return common.ErrInternal("failed to enqueue")
	}
	return c.JSON(200, map[string]any{"id": job.ID, "status": job.Status})
}

func HandleCaption(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := resolveTarget(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			ModelSize string `json:"model_size"`
			WordLevel bool   `json:"word_level"`
			Priority  int    `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if req.ModelSize != "" && !whisper.ValidModelSize(req.ModelSize) {
			return common.ErrBadRequest("invalid model_size")
		}

		input := db.JSONMap{"word_level": req.WordLevel}
		if req.ModelSize != "" {
			input["model_size"] = req.ModelSize
		}
		return submit(c, q, db.JobTypeCaption, video, input, req.Priority)
	}
}

func HandleBurn(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := resolveTarget(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			CaptionID string         `json:"caption_id"`
			Style     map[string]any `json:"style"`
			Priority  int            `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}

		input := db.JSONMap{}
		if req.CaptionID != "" {
			input["caption_id"] = req.CaptionID
		}
		if req.Style != nil {
			input["style"] = req.Style
		}
		return submit(c, q, db.JobTypeBurn, video, input, req.Priority)
	}
}

func HandleSplitScenes(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := resolveTarget(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			MinSceneLen *float64 `json:"min_scene_len"`
			Threshold   *float64 `json:"threshold"`
			Priority    int      `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if req.MinSceneLen != nil && *req.MinSceneLen <= 0 {
			return common.ErrBadRequest("min_scene_len must be positive")
		}
		if req.Threshold != nil && *req.Threshold <= 0 {
			return common.ErrBadRequest("threshold must be positive")
		}

		input := db.JSONMap{}
		if req.MinSceneLen != nil {
			input["min_scene_len"] = *req.MinSceneLen
		}
		if req.Threshold != nil {
			input["threshold"] = *req.Threshold
		}
		return submit(c, q, db.JobTypeSplitScenes, video, input, req.Priority)
	}
}

func HandleSplitFixed(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := resolveTarget(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			Interval float64 `json:"interval"`
			Priority int     `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if req.Interval <= 0 {
			return common.ErrBadRequest("interval must be positive")
		}

		return submit(c, q, db.JobTypeSplitFixed, video,
			db.JSONMap{"interval": req.Interval}, req.Priority)
	}
}

func HandleTrim(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := resolveTarget(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			StartTime float64 `json:"start_time"`
			EndTime   float64 `json:"end_time"`
			Title     string  `json:"title"`
			Priority  int     `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if req.StartTime < 0 || req.EndTime <= req.StartTime {
			return common.ErrBadRequest("end_time must be greater than start_time")
		}

		input := db.JSONMap{
			"start_time": req.StartTime,
			"end_time":   req.EndTime,
		}
		if req.Title != "" {
			input["title"] = req.Title
		}
		return submit(c, q, db.JobTypeTrim, video, input, req.Priority)
	}
}

func HandleConvertAspect(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := resolveTarget(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			Priority int `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}

		return submit(c, q, db.JobTypeConvertAspect, video, db.JSONMap{}, req.Priority)
	}
}
