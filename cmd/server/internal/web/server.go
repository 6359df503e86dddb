// Package web assembles the echo server: middleware, error rendering,
// and the route table.
package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/api/auth_api"
	"thirdcoast.systems/reframe/cmd/server/handlers/api/browser_api"
	"thirdcoast.systems/reframe/cmd/server/handlers/api/job_api"
	"thirdcoast.systems/reframe/cmd/server/handlers/api/project_api"
	settingsapi "thirdcoast.systems/reframe/cmd/server/handlers/api/settings_api"
	storageapi "thirdcoast.systems/reframe/cmd/server/handlers/api/storage_api"
	userapi "thirdcoast.systems/reframe/cmd/server/handlers/api/user_api"
	"thirdcoast.systems/reframe/cmd/server/handlers/api/video_api"
	"thirdcoast.systems/reframe/internal/application"
)

type Webserver struct {
	*echo.Echo
	app            *application.App
	sessionManager *auth.SessionManager
}

func NewWebserver(app *application.App, sessionManager *auth.SessionManager) (*Webserver, error) {
	s := &Webserver{
		Echo:           echo.New(),
		app:            app,
		sessionManager: sessionManager,
	}

	s.setupMiddleware()
	s.registerRoutes()

	return s, nil
}

func (s *Webserver) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.HTTPErrorHandler = jsonErrorHandler

	s.Use(middleware.BodyLimit(fmt.Sprintf("%dM", s.app.Config.MaxUploadMB)))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Media responses are already compressed containers.
			switch c.Path() {
			case "/api/video/:project/:filename", "/api/stream/:project/:filename":
				return true
			default:
				return false
			}
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
}

// jsonErrorHandler renders every error as {"error": "..."}.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]any{"error": msg})
}

func (s *Webserver) registerRoutes() {
	sm := s.sessionManager
	dbc := s.app.DB
	cfg := s.app.Config
	q := s.app.Queue
	resolver := s.app.Deps.Resolver

	api := s.Group("/api")

	api.POST("/auth/login", auth_api.HandleLogin(sm, dbc))
	api.POST("/auth/logout", auth_api.HandleLogout(sm))
	api.GET("/auth/me", auth_api.HandleMe(sm, dbc))

	api.GET("/users", userapi.HandleList(sm, dbc))
	api.POST("/users", userapi.HandleCreate(sm, dbc))
	api.DELETE("/users/:id", userapi.HandleDelete(sm, dbc))

	api.GET("/projects", project_api.HandleList(sm, dbc))
	api.POST("/projects", project_api.HandleCreate(sm, dbc))
	api.GET("/projects/:id", project_api.HandleGet(sm, dbc))
	api.PUT("/projects/:id", project_api.HandleUpdate(sm, dbc))
	api.DELETE("/projects/:id", project_api.HandleDelete(sm, dbc))
	api.GET("/projects/:id/videos", project_api.HandleListVideos(sm, dbc))
	api.POST("/projects/:id/videos/bulk-delete", project_api.HandleBulkDeleteVideos(sm, dbc))
	api.GET("/projects/:id/videos/:vid", project_api.HandleGetVideo(sm, dbc))
	api.PUT("/projects/:id/videos/:vid", project_api.HandleUpdateVideo(sm, dbc))
	api.DELETE("/projects/:id/videos/:vid", project_api.HandleDeleteVideo(sm, dbc))

	api.POST("/download", job_api.HandleDownload(sm, dbc, q))
	api.POST("/upload", job_api.HandleUpload(sm, dbc, q, cfg))
	api.POST("/projects/:p/videos/:v/caption", job_api.HandleCaption(sm, dbc, q))
	api.POST("/projects/:p/videos/:v/burn", job_api.HandleBurn(sm, dbc, q))
	api.POST("/projects/:p/videos/:v/split-scenes", job_api.HandleSplitScenes(sm, dbc, q))
	api.POST("/projects/:p/videos/:v/split-fixed", job_api.HandleSplitFixed(sm, dbc, q))
	api.POST("/projects/:p/videos/:v/trim", job_api.HandleTrim(sm, dbc, q))
	api.POST("/projects/:p/videos/:v/convert-aspect", job_api.HandleConvertAspect(sm, dbc, q))

	api.GET("/status/:job_id", job_api.HandleStatus(sm, dbc))
	api.GET("/jobs", job_api.HandleIndex(sm, dbc))
	api.POST("/jobs/:id/cancel", job_api.HandleCancel(sm, dbc, q))
	api.POST("/jobs/:id/retry", job_api.HandleRetry(sm, dbc, q))
	api.DELETE("/jobs/:id", job_api.HandleDelete(sm, dbc))
	api.GET("/queue/stats", job_api.HandleQueueStats(sm, dbc, q))

	api.GET("/video/:project/:filename", video_api.HandleServe(sm, dbc, resolver))
	api.GET("/stream/:project/:filename", video_api.HandleStream(sm, dbc, resolver))
	api.GET("/caption/:project/:filename", video_api.HandleCaption(sm, dbc, resolver))

	api.GET("/storage/stats", storageapi.HandleStats(sm, dbc, cfg))
	api.GET("/storage/files", storageapi.HandleFiles(sm, dbc, cfg))
	api.POST("/storage/cleanup", storageapi.HandleCleanup(sm, dbc, cfg))
	api.POST("/storage/bulk-delete", storageapi.HandleBulkDelete(sm, dbc, cfg))

	api.GET("/browser/staged", browser_api.HandleStaged(sm, dbc, cfg))
	api.POST("/browser/import", browser_api.HandleImport(sm, dbc, q, cfg))

	api.GET("/settings", settingsapi.HandleGet(sm, dbc))
	api.PUT("/settings", settingsapi.HandleUpdate(sm, dbc, s.app.Settings, s.app.Crypto))

	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})
}
