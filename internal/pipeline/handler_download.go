package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/platform"
	"thirdcoast.systems/reframe/pkg/utils/filename"
)

// Download fetches a remote video, converts it onto the portrait
// canvas, and registers the result.
func (d *Deps) Download(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error) {
	if job.ProjectID == nil || *job.ProjectID == "" {
		return nil, Errorf(KindValidation, "download", "project_id is required")
	}
	srcURL := inputString(job.InputData, "url", "")
	if !platform.IsValidURL(srcURL) {
		return nil, Errorf(KindValidation, "download", "invalid url: %q", srcURL)
	}
	resolution := inputString(job.InputData, "resolution", d.Settings.Get("default_resolution"))
	if resolution == "" {
		resolution = "720"
	}
	if !platform.ValidResolution(resolution) {
		return nil, Errorf(KindValidation, "download", "invalid resolution: %q", resolution)
	}

	label := resolution + "p"
	if resolution == "max" {
		label = "max"
	}
	r.Report(ctx, 10, fmt.Sprintf("Downloading %s format...", label))

	var rawPath string
	var err error
	if platform.IsDirectMediaURL(srcURL) {
		rawPath, err = d.fetchDirect(ctx, srcURL, r)
	} else {
		rawPath = d.Resolver.UploadPath("raw_" + uuid.NewString() + ".mp4")
		err = d.fetchWithTool(ctx, srcURL, resolution, rawPath, r)
	}
	if err != nil {
		removeIfDifferent(rawPath, "")
		return nil, err
	}

	r.Report(ctx, 60, "Converting to vertical format...")

	info, err := d.probe(ctx, rawPath)
	if err != nil {
		removeIfDifferent(rawPath, "")
		return nil, toolErr("download", err)
	}

	finalPath := d.Resolver.UploadPath(uuid.NewString() + ".mp4")
	progress, wait := r.EncodeBand(ctx, info.Duration, 60, 95, "Converting to vertical format...")
	err = d.convertAspect(ctx, rawPath, finalPath, info.Width, info.Height, progress)
	wait()
	if err != nil {
		removeIfDifferent(rawPath, "")
		removeIfDifferent(finalPath, "")
		return nil, toolErr("download", err)
	}
	removeIfDifferent(rawPath, finalPath)

	r.Report(ctx, 95, "Finalizing...")

	title := inputString(job.InputData, "title", "")
	if title == "" {
		title = d.extractTitle(ctx, srcURL)
	}

	final, err := d.probe(ctx, finalPath)
	if err != nil {
		removeIfDifferent(finalPath, "")
		return nil, toolErr("download", err)
	}

	video, err := d.DB.CreateVideo(ctx, db.CreateVideoParams{
		ProjectID: *job.ProjectID,
		Title:     title,
		Filename:  filepath.Base(finalPath),
		SourceURL: &srcURL,
		Duration:  &final.Duration,
		Width:     i64ptr(final.Width),
		Height:    i64ptr(final.Height),
		SizeBytes: &final.Size,
	})
	if err != nil {
		removeIfDifferent(finalPath, "")
		return nil, E(KindTransientIO, "download", err)
	}

	return db.JSONMap{
		"video_id": video.ID,
		"filename": video.Filename,
		"title":    video.Title,
	}, nil
}

// fetchWithTool runs yt-dlp with the configured proxy and cookies.
// Fetcher progress covers the 0-50 range of the job.
func (d *Deps) fetchWithTool(ctx context.Context, srcURL, resolution, dest string, r *Reporter) error {
	ctx, cancel := context.WithTimeout(ctx, d.Config.DownloadTimeoutDur())
	defer cancel()

	fetcher := d.newFetcher()
	err := fetcher.Download(ctx, srcURL, platform.FormatSelector(resolution), dest, func(pct float64) {
		r.Report(ctx, int(pct/2), "")
	})
	if err != nil {
		return toolErr("download", err)
	}
	return nil
}

// fetchDirect streams a plain media URL to uploads, preserving the
// source extension.
func (d *Deps) fetchDirect(ctx context.Context, srcURL string, r *Reporter) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.Config.DownloadTimeoutDur())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", Errorf(KindValidation, "download", "bad url: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", toolErrTransient("download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", Errorf(KindTransientIO, "download", "fetch %s: status %d", srcURL, resp.StatusCode)
	}

	ext := strings.ToLower(path.Ext(strippedPath(srcURL)))
	if ext == "" {
		ext = ".mp4"
	}
	dest := d.Resolver.UploadPath("raw_" + uuid.NewString() + ext)

	out, err := os.Create(dest)
	if err != nil {
		return "", E(KindTransientIO, "download", err)
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				removeIfDifferent(dest, "")
				return "", E(KindTransientIO, "download", writeErr)
			}
			downloaded += int64(n)
			if total > 0 {
				pct := int(float64(downloaded) / float64(total) * 50)
				if pct > 50 {
					pct = 50
				}
				r.Report(ctx, pct, "")
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			removeIfDifferent(dest, "")
			return "", toolErrTransient("download", readErr)
		}
	}

	return dest, nil
}

// extractTitle finds a display title for a source URL: the filename for
// direct links, the extractor's metadata otherwise. Falls back to
// "video" rather than failing the job over a probe.
func (d *Deps) extractTitle(ctx context.Context, srcURL string) string {
	if platform.Detect(srcURL) == platform.Direct {
		if u, err := url.Parse(srcURL); err == nil {
			if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
				return filename.BaseNoExt(base)
			}
			if u.Host != "" {
				return u.Host
			}
		}
		return "video"
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.Config.ProbeTimeoutDur())
	defer cancel()
	title, err := d.newFetcher().Title(probeCtx, srcURL)
	if err != nil || title == "" {
		return "video"
	}
	return title
}

func strippedPath(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	return rawURL
}

func toolErrTransient(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return E(KindTimeout, op, err)
	}
	return E(KindTransientIO, op, err)
}

func i64ptr(v int) *int64 {
	n := int64(v)
	return &n
}
