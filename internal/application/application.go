// Package application assembles the process: configuration, storage,
// settings, encryption, tool adapters, the pipeline registry, and the
// job queue. Both the server binary and tests build an App the same way.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/pipeline"
	"thirdcoast.systems/reframe/internal/queue"
	"thirdcoast.systems/reframe/pkg/encryption"
	"thirdcoast.systems/reframe/pkg/ffmpeg"
	"thirdcoast.systems/reframe/pkg/whisper"
)

type App struct {
	Config   *config.Config
	DB       *db.DatabaseConnection
	Settings *db.SettingsCache
	Crypto   *encryption.Manager
	Deps     *pipeline.Deps
	Queue    *queue.Queue
}

// New builds the full application graph. The database is migrated, the
// bootstrap admin is ensured, and the optional seed file is applied
// before anything else can observe the settings.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	ffmpeg.SetBinary(cfg.FFmpegPath)
	ffmpeg.SetProbeBinary(cfg.FFprobePath)

	dbc, err := db.NewDatabaseConnection(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := dbc.Migrate(ctx); err != nil {
		dbc.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	adminPasscode := cfg.AdminPasscode
	seed, err := config.LoadSeed(cfg.ConfigFile)
	if err != nil {
		dbc.Close()
		return nil, err
	}
	if seed != nil && seed.AdminPasscode != "" {
		adminPasscode = seed.AdminPasscode
	}
	if err := dbc.EnsureAdmin(ctx, adminPasscode); err != nil {
		dbc.Close()
		return nil, err
	}

	settings, err := db.NewSettingsCache(ctx, dbc)
	if err != nil {
		dbc.Close()
		return nil, err
	}
	if seed != nil {
		if err := applySeedSettings(ctx, settings, seed); err != nil {
			dbc.Close()
			return nil, err
		}
	}

	var crypto *encryption.Manager
	if cfg.EncryptionKey != "" {
		crypto, err = NewEncryptionManager(cfg.EncryptionKey)
		if err != nil {
			dbc.Close()
			return nil, err
		}
	} else {
		slog.Warn("ENCRYPTION_KEY not set; fetcher cookies cannot be stored")
	}

	deps := &pipeline.Deps{
		DB:       dbc,
		Config:   cfg,
		Settings: settings,
		Resolver: &pipeline.Resolver{
			UploadsDir:   cfg.UploadsDir,
			ProcessedDir: cfg.ProcessedDir,
			CaptionsDir:  cfg.CaptionsDir,
		},
		Models:  whisper.NewModelCache(cfg.WhisperModelDir),
		Whisper: whisper.New(cfg.WhisperPath),
		Crypto:  crypto,
	}

	q := queue.New(dbc, pipeline.NewRegistry(deps), queue.Options{
		Workers:       cfg.Workers,
		RetentionDays: cfg.JobRetentionDays,
	})

	return &App{
		Config:   cfg,
		DB:       dbc,
		Settings: settings,
		Crypto:   crypto,
		Deps:     deps,
		Queue:    q,
	}, nil
}

// Start launches the worker pool. Pending jobs from a previous run are
// rehydrated and orphaned running rows swept before dispatch begins.
func (a *App) Start(ctx context.Context) error {
	return a.Queue.Start(ctx)
}

// Stop drains the queue and closes the database.
func (a *App) Stop() {
	a.Queue.Stop()
	if err := a.DB.Close(); err != nil {
		slog.Warn("database close failed", "error", err)
	}
}

func applySeedSettings(ctx context.Context, settings *db.SettingsCache, seed *config.Seed) error {
	if seed.ProxyURL != "" {
		if err := settings.Set(ctx, db.SettingProxyURL, seed.ProxyURL, "fetch proxy URL"); err != nil {
			return err
		}
	}
	if seed.ProxyEnabled != nil {
		v := "false"
		if *seed.ProxyEnabled {
			v = "true"
		}
		if err := settings.Set(ctx, db.SettingProxyEnabled, v, "fetch proxy toggle"); err != nil {
			return err
		}
	}
	return nil
}
