package job_api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/pipeline"
	"thirdcoast.systems/reframe/internal/queue"
)

type retryTestEnv struct {
	e      *echo.Echo
	dbc    *db.DatabaseConnection
	cookie *http.Cookie
}

func newRetryTestEnv(t *testing.T) *retryTestEnv {
	t.Helper()
	ctx := context.Background()

	dbc, err := db.NewDatabaseConnection(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, dbc.Migrate(ctx))
	t.Cleanup(func() { dbc.Close() })

	user, err := dbc.CreateUser(ctx, "operator", "op-pass", "")
	require.NoError(t, err)

	sm := auth.NewSessionManager("test-secret")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.SaveSession(rr, httptest.NewRequest("GET", "/", nil), user.ID, user.Username, user.Role))
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	// The queue is never started; Enqueue only feeds the dispatch heap
	q := queue.New(dbc, pipeline.Registry{}, queue.Options{})

	e := echo.New()
	e.POST("/api/jobs/:id/retry", HandleRetry(sm, dbc, q))

	return &retryTestEnv{e: e, dbc: dbc, cookie: cookie}
}

func (env *retryTestEnv) retry(t *testing.T, jobID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+jobID+"/retry", nil)
	req.AddCookie(env.cookie)
	rr := httptest.NewRecorder()
	env.e.ServeHTTP(rr, req)
	return rr
}

func TestHandleRetryTerminalJobs(t *testing.T) {
	env := newRetryTestEnv(t)
	ctx := context.Background()

	terminal := []string{db.JobStatusFailed, db.JobStatusCancelled, db.JobStatusCompleted}
	for _, status := range terminal {
		t.Run(status, func(t *testing.T) {
			job, err := env.dbc.CreateJob(ctx, db.CreateJobParams{Type: db.JobTypeTrim})
			require.NoError(t, err)
			require.NoError(t, env.dbc.UpdateJobStatus(ctx, job.ID, status, db.StatusUpdate{}))

			rr := env.retry(t, job.ID)
			assert.Equal(t, http.StatusOK, rr.Code)

			retried, err := env.dbc.GetJobByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, db.JobStatusPending, retried.Status)
		})
	}
}

func TestHandleRetryRejectsActiveJobs(t *testing.T) {
	env := newRetryTestEnv(t)
	ctx := context.Background()

	pending, err := env.dbc.CreateJob(ctx, db.CreateJobParams{Type: db.JobTypeTrim})
	require.NoError(t, err)
	rr := env.retry(t, pending.ID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	running, err := env.dbc.CreateJob(ctx, db.CreateJobParams{Type: db.JobTypeTrim})
	require.NoError(t, err)
	require.NoError(t, env.dbc.UpdateJobStatus(ctx, running.ID, db.JobStatusRunning, db.StatusUpdate{}))
	rr = env.retry(t, running.ID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Neither attempt touched the job
	j, err := env.dbc.GetJobByID(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, db.JobStatusRunning, j.Status)
	assert.Equal(t, 0, j.RetryCount)
}
