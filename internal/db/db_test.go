package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DatabaseConnection {
	t.Helper()
	ctx := context.Background()

	dbc, err := NewDatabaseConnection(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, dbc.Migrate(ctx))
	t.Cleanup(func() { dbc.Close() })
	return dbc
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestUserCreateAndLookup(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	u, err := dbc.CreateUser(ctx, "alice", "1234", "")
	require.NoError(t, err)
	assert.Equal(t, "user", u.Role)

	found, err := dbc.GetUserByPasscode(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	// Duplicate passcode is rejected
	_, err = dbc.CreateUser(ctx, "bob", "1234", "")
	assert.ErrorIs(t, err, ErrConflict)

	// Soft-deleted users stop resolving
	require.NoError(t, dbc.SoftDeleteUser(ctx, u.ID))
	_, err = dbc.GetUserByPasscode(ctx, "1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, dbc.EnsureAdmin(ctx, "secret"))
	admin, err := dbc.GetUserByPasscode(ctx, "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)
	assert.Equal(t, RoleAdmin, admin.Role)

	// A changed configured passcode is synced, not duplicated
	require.NoError(t, dbc.EnsureAdmin(ctx, "rotated"))
	admin2, err := dbc.GetUserByPasscode(ctx, "rotated")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, admin2.ID)
}

func TestEnsureAdminGeneratesPasscode(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, dbc.EnsureAdmin(ctx, ""))

	users, err := dbc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	admin := users[0]
	assert.Equal(t, "admin", admin.Username)
	assert.NotEqual(t, "admin", admin.Passcode)
	assert.Len(t, admin.Passcode, 16)

	// A later startup with no configured passcode must not rotate it
	require.NoError(t, dbc.EnsureAdmin(ctx, ""))
	again, err := dbc.GetUserByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.Passcode, again.Passcode)
}

func TestProjectLifecycle(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	u, err := dbc.CreateUser(ctx, "owner", "pc-1", "")
	require.NoError(t, err)

	p, err := dbc.CreateProject(ctx, "First", &u.ID, strPtr("shorts"))
	require.NoError(t, err)
	assert.Equal(t, "First", p.Name)

	updated, err := dbc.UpdateProject(ctx, p.ID, strPtr("Renamed"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "shorts", *updated.Description)

	require.NoError(t, dbc.DeleteProject(ctx, p.ID, false))
	_, err = dbc.GetProjectByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	restored, err := dbc.RestoreProject(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
}

func TestListProjectsScopedToUser(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	a, err := dbc.CreateUser(ctx, "a", "pass-a", "")
	require.NoError(t, err)
	b, err := dbc.CreateUser(ctx, "b", "pass-b", "")
	require.NoError(t, err)

	_, err = dbc.CreateProject(ctx, "A1", &a.ID, nil)
	require.NoError(t, err)
	_, err = dbc.CreateProject(ctx, "B1", &b.ID, nil)
	require.NoError(t, err)

	mine, err := dbc.ListProjects(ctx, a.ID, false)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "A1", mine[0].Name)

	all, err := dbc.ListProjects(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListProjectsIncludesDeleted(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	keep, err := dbc.CreateProject(ctx, "keep", nil, nil)
	require.NoError(t, err)
	gone, err := dbc.CreateProject(ctx, "gone", nil, nil)
	require.NoError(t, err)
	require.NoError(t, dbc.DeleteProject(ctx, gone.ID, false))

	live, err := dbc.ListProjects(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, keep.ID, live[0].ID)

	all, err := dbc.ListProjects(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestVideoCRUD(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	p, err := dbc.CreateProject(ctx, "vids", nil, nil)
	require.NoError(t, err)

	dur := 12.5
	v, err := dbc.CreateVideo(ctx, CreateVideoParams{
		ProjectID: p.ID,
		Title:     "clip one",
		Filename:  "clip_one.mp4",
		Duration:  &dur,
	})
	require.NoError(t, err)
	require.NotNil(t, v.Duration)
	assert.Equal(t, 12.5, *v.Duration)
	assert.False(t, v.IsClip)

	byName, err := dbc.GetVideoByFilename(ctx, "clip_one.mp4")
	require.NoError(t, err)
	assert.Equal(t, v.ID, byName.ID)

	child, err := dbc.CreateVideo(ctx, CreateVideoParams{
		ProjectID:     p.ID,
		Title:         "clip one part 1",
		Filename:      "clip_one_part_1.mp4",
		IsClip:        true,
		ParentVideoID: &v.ID,
	})
	require.NoError(t, err)
	assert.True(t, child.IsClip)

	list, err := dbc.ListVideosByProject(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, dbc.SoftDeleteVideos(ctx, []string{v.ID, child.ID}))
	list, err = dbc.ListVideosByProject(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Soft-deleted videos stay reachable for restore
	all, err := dbc.ListVideosByProject(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateVideoMetadata(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	p, err := dbc.CreateProject(ctx, "vids", nil, nil)
	require.NoError(t, err)
	parent, err := dbc.CreateVideo(ctx, CreateVideoParams{ProjectID: p.ID, Title: "full", Filename: "full.mp4"})
	require.NoError(t, err)
	v, err := dbc.CreateVideo(ctx, CreateVideoParams{ProjectID: p.ID, Title: "raw", Filename: "raw.mp4"})
	require.NoError(t, err)

	isClip := true
	updated, err := dbc.UpdateVideo(ctx, v.ID, VideoUpdate{
		SourceURL:     strPtr("https://example.com/watch?v=abc"),
		IsClip:        &isClip,
		ParentVideoID: &parent.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.SourceURL)
	assert.Equal(t, "https://example.com/watch?v=abc", *updated.SourceURL)
	assert.True(t, updated.IsClip)
	require.NotNil(t, updated.ParentVideoID)
	assert.Equal(t, parent.ID, *updated.ParentVideoID)

	// Untouched fields survive a partial patch
	assert.Equal(t, "raw", updated.Title)
	assert.Equal(t, "raw.mp4", updated.Filename)
}

func TestJobStatusTransitions(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	job, err := dbc.CreateJob(ctx, CreateJobParams{
		Type:      JobTypeDownload,
		InputData: JSONMap{"url": "https://example.com/v"},
	})
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Nil(t, job.StartedAt)

	require.NoError(t, dbc.UpdateJobStatus(ctx, job.ID, JobStatusRunning, StatusUpdate{Progress: intPtr(0)}))
	running, err := dbc.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, running.StartedAt)
	firstStart := *running.StartedAt

	// Progress updates do not reset started_at
	require.NoError(t, dbc.UpdateJobStatus(ctx, job.ID, JobStatusRunning, StatusUpdate{
		Progress:   intPtr(60),
		OutputData: JSONMap{"progress_message": "Converting to vertical format..."},
	}))
	running, err = dbc.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, firstStart, *running.StartedAt)
	assert.Equal(t, 60, running.Progress)
	assert.Equal(t, "Converting to vertical format...", running.OutputData.String("progress_message"))

	require.NoError(t, dbc.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, StatusUpdate{
		Progress:   intPtr(100),
		OutputData: JSONMap{"video_id": "abc"},
	}))
	done, err := dbc.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, "abc", done.OutputData.String("video_id"))
}

func TestJobRetryBudget(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	job, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeTrim})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, dbc.UpdateJobStatus(ctx, job.ID, JobStatusFailed, StatusUpdate{ErrorMessage: "boom"}))
		j, err := dbc.RetryJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, JobStatusPending, j.Status)
		assert.Equal(t, i, j.RetryCount)
		assert.Nil(t, j.ErrorMessage)
		assert.Nil(t, j.StartedAt)
	}

	require.NoError(t, dbc.UpdateJobStatus(ctx, job.ID, JobStatusFailed, StatusUpdate{ErrorMessage: "boom"}))
	_, err = dbc.RetryJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestRetryResetsProgress(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	job, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeBurn})
	require.NoError(t, err)
	require.NoError(t, dbc.UpdateJobStatus(ctx, job.ID, JobStatusRunning, StatusUpdate{Progress: intPtr(70)}))
	require.NoError(t, dbc.UpdateJobStatus(ctx, job.ID, JobStatusFailed, StatusUpdate{ErrorMessage: "encode died"}))

	retried, err := dbc.RetryJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, retried.Status)
	assert.Equal(t, 0, retried.Progress)
}

func TestPendingJobOrder(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	a, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeTrim, Priority: 0})
	require.NoError(t, err)
	b, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeTrim, Priority: 5})
	require.NoError(t, err)
	c, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeTrim, Priority: 0})
	require.NoError(t, err)

	pending, err := dbc.ListPendingJobs(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, b.ID, pending[0].ID)
	assert.Equal(t, a.ID, pending[1].ID)
	assert.Equal(t, c.ID, pending[2].ID)
}

func TestCancelJobTerminalStates(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	job, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeCaption})
	require.NoError(t, err)

	ok, err := dbc.CancelJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second cancel is a no-op
	ok, err = dbc.CancelJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweepOrphanedJobs(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	orphan, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeDownload})
	require.NoError(t, err)
	require.NoError(t, dbc.UpdateJobStatus(ctx, orphan.ID, JobStatusRunning, StatusUpdate{}))

	spent, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeBurn})
	require.NoError(t, err)
	_, err = dbc.execWrite(ctx, "UPDATE jobs SET status = 'running', retry_count = 3 WHERE id = ?", spent.ID)
	require.NoError(t, err)

	held, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeUpload})
	require.NoError(t, err)
	require.NoError(t, dbc.UpdateJobStatus(ctx, held.ID, JobStatusRunning, StatusUpdate{}))

	requeued, failed, err := dbc.SweepOrphanedJobs(ctx, map[string]struct{}{held.ID: {}})
	require.NoError(t, err)
	require.Len(t, requeued, 1)
	assert.Equal(t, orphan.ID, requeued[0].ID)
	assert.Equal(t, 1, failed)

	// Held job untouched
	j, err := dbc.GetJobByID(ctx, held.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRunning, j.Status)

	j, err = dbc.GetJobByID(ctx, spent.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, j.Status)
}

func TestDeleteOldJobs(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	old, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeTrim})
	require.NoError(t, err)
	_, err = dbc.execWrite(ctx,
		"UPDATE jobs SET status = 'completed', completed_at = datetime('now', '-40 days') WHERE id = ?", old.ID)
	require.NoError(t, err)

	fresh, err := dbc.CreateJob(ctx, CreateJobParams{Type: JobTypeTrim})
	require.NoError(t, err)
	require.NoError(t, dbc.UpdateJobStatus(ctx, fresh.ID, JobStatusCompleted, StatusUpdate{}))

	n, err := dbc.DeleteOldJobs(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = dbc.GetJobByID(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = dbc.GetJobByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestCaptionStyleRoundTrip(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	p, err := dbc.CreateProject(ctx, "caps", nil, nil)
	require.NoError(t, err)
	v, err := dbc.CreateVideo(ctx, CreateVideoParams{ProjectID: p.ID, Title: "t", Filename: "t.mp4"})
	require.NoError(t, err)

	style := JSONMap{"font": "Impact", "font_size": float64(28), "color": "#FFFFFF"}
	c, err := dbc.CreateCaption(ctx, v.ID, "t.srt", "", "", style)
	require.NoError(t, err)
	assert.Equal(t, "en", c.Language)
	assert.Equal(t, "srt", c.Format)
	assert.Equal(t, "Impact", c.Style.String("font"))

	list, err := dbc.ListCaptionsByVideo(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, float64(28), list[0].Style["font_size"])
}

func TestTimestampTriggers(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	// Every mutable table keeps updated_at current from a trigger
	for _, table := range []string{"users", "projects", "videos", "jobs", "captions", "settings"} {
		var name string
		err := dbc.queryRow(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'trigger' AND tbl_name = ? AND name = ?",
			table, "update_"+table+"_timestamp").Scan(&name)
		assert.NoError(t, err, "missing updated_at trigger on %s", table)
	}

	// The settings trigger keys on the table's primary key, not a rowid
	u, err := dbc.CreateUser(ctx, "stamped", "pc-ts", "")
	require.NoError(t, err)
	_, err = dbc.execWrite(ctx, "INSERT INTO settings (key, value) VALUES ('proxy_url', 'http://old')")
	require.NoError(t, err)
	_, err = dbc.execWrite(ctx, "UPDATE users SET passcode = 'pc-ts-2' WHERE id = ?", u.ID)
	require.NoError(t, err)
	_, err = dbc.execWrite(ctx, "UPDATE settings SET value = 'http://new' WHERE key = 'proxy_url'")
	require.NoError(t, err)

	stamped, err := dbc.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stamped.UpdatedAt)
	var value string
	require.NoError(t, dbc.queryRow(ctx,
		"SELECT value FROM settings WHERE key = 'proxy_url'").Scan(&value))
	assert.Equal(t, "http://new", value)
}

func TestSettingsCache(t *testing.T) {
	dbc := newTestDB(t)
	ctx := context.Background()

	cache, err := NewSettingsCache(ctx, dbc)
	require.NoError(t, err)
	assert.Equal(t, "", cache.Get(SettingProxyURL))

	require.NoError(t, cache.Set(ctx, SettingProxyURL, "http://proxy:8080", "outbound proxy"))
	require.NoError(t, cache.Set(ctx, SettingProxyEnabled, "true", ""))
	assert.Equal(t, "http://proxy:8080", cache.Get(SettingProxyURL))
	assert.True(t, cache.GetBool(SettingProxyEnabled))

	// A fresh cache sees the persisted values
	cache2, err := NewSettingsCache(ctx, dbc)
	require.NoError(t, err)
	assert.Equal(t, "http://proxy:8080", cache2.Get(SettingProxyURL))

	removed, err := cache.Delete(ctx, SettingProxyURL)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, "", cache.Get(SettingProxyURL))
}
