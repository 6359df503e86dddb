package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/encryption"
	"thirdcoast.systems/reframe/pkg/ffmpeg"
	"thirdcoast.systems/reframe/pkg/whisper"
	"thirdcoast.systems/reframe/pkg/ytdlp"
)

// Deps carries everything the handlers share. One instance lives for
// the process; handlers hang off it as methods.
type Deps struct {
	DB       *db.DatabaseConnection
	Config   *config.Config
	Settings *db.SettingsCache
	Resolver *Resolver
	Models   *whisper.ModelCache
	Whisper  *whisper.Client

	// Crypto decrypts stored fetcher cookies. Nil when no encryption
	// key is configured; cookie-dependent fetches then run without.
	Crypto *encryption.Manager
}

// NewRegistry wires every job type to its handler.
func NewRegistry(d *Deps) Registry {
	return Registry{
		db.JobTypeDownload:      d.Download,
		db.JobTypeUpload:        d.Upload,
		db.JobTypeCaption:       d.Caption,
		db.JobTypeBurn:          d.Burn,
		db.JobTypeSplitScenes:   d.SplitScenes,
		db.JobTypeSplitFixed:    d.SplitFixed,
		db.JobTypeTrim:          d.Trim,
		db.JobTypeConvertAspect: d.ConvertAspect,
		db.JobTypeBrowserImport: d.BrowserImport,
	}
}

// newFetcher builds a yt-dlp client with the current proxy and cookie
// settings applied.
func (d *Deps) newFetcher() *ytdlp.Client {
	c := ytdlp.New()
	c.Path = d.Config.YtdlpPath

	if d.Settings.GetBool(db.SettingProxyEnabled) {
		c.Proxy = d.Settings.Get(db.SettingProxyURL)
	}

	if sealed := d.Settings.Get(db.SettingFetcherCookies); sealed != "" && d.Crypto != nil {
		cookies, err := d.Crypto.OpenString(sealed)
		if err != nil {
			slog.Warn("stored fetcher cookies could not be decrypted, fetching without", "error", err)
		} else {
			c.Cookies = cookies
		}
	}

	return c
}

// loadVideo resolves the job's target video row and its file on disk.
func (d *Deps) loadVideo(ctx context.Context, job *db.Job) (*db.Video, string, error) {
	if job.VideoID == nil || *job.VideoID == "" {
		return nil, "", Errorf(KindValidation, job.Type, "video_id is required")
	}
	video, err := d.DB.GetVideoByID(ctx, *job.VideoID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, "", Errorf(KindNotFound, job.Type, "video %s not found", *job.VideoID)
		}
		return nil, "", E(KindTransientIO, job.Type, err)
	}
	path, ok := d.Resolver.FindVideo(video.Filename)
	if !ok {
		return nil, "", Errorf(KindNotFound, job.Type, "video file %s not found on disk", video.Filename)
	}
	return video, path, nil
}

// probe inspects a media file under the probe timeout.
func (d *Deps) probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.Config.ProbeTimeoutDur())
	defer cancel()
	return ffmpeg.Probe(ctx, path)
}

// toolErr classifies an external tool failure, distinguishing deadline
// hits from ordinary non-zero exits.
func toolErr(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return E(KindTimeout, op, err)
	}
	return E(KindToolFailure, op, err)
}

// removeIfDifferent deletes path unless it is the same file as keep.
// Best effort: a leftover temp file is not worth failing the job.
func removeIfDifferent(path, keep string) {
	if path == "" || path == keep {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not remove intermediate file", "path", path, "error", err)
	}
}
