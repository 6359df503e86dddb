package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/ffmpeg"
)

// Reporter writes handler progress to the job record. Progress is
// monotonic: stale or duplicate updates are dropped so a slow ffmpeg
// progress pipe cannot walk the bar backwards. Writes only land while
// the job is still running; a report racing a cancel is a no-op.
type Reporter struct {
	dbc   *db.DatabaseConnection
	jobID string

	mu          sync.Mutex
	lastPercent int
	lastMessage string
}

func NewReporter(dbc *db.DatabaseConnection, jobID string) *Reporter {
	return &Reporter{dbc: dbc, jobID: jobID, lastPercent: -1}
}

// Report updates job progress. Failures are logged, never propagated;
// a progress write must not fail the job itself.
func (r *Reporter) Report(ctx context.Context, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	r.mu.Lock()
	if percent < r.lastPercent || (percent == r.lastPercent && message == r.lastMessage) {
		r.mu.Unlock()
		return
	}
	r.lastPercent = percent
	r.lastMessage = message
	r.mu.Unlock()

	var output db.JSONMap
	if message != "" {
		output = db.JSONMap{"progress_message": message}
	}
	if err := r.dbc.UpdateJobProgress(ctx, r.jobID, percent, output); err != nil {
		slog.Error("Failed to update job progress", "job_id", r.jobID, "progress", percent, "error", err)
	}
}

// EncodeBand returns a channel for ffmpeg progress snapshots plus a
// wait func. Snapshots map the encoder's output time over total seconds
// onto the [lo, hi] slice of the job's progress bar. The wait func
// blocks until the runner has closed the channel and the drain goroutine
// finished; call it after the encode returns.
func (r *Reporter) EncodeBand(ctx context.Context, total float64, lo, hi int, message string) (chan ffmpeg.Progress, func()) {
	ch := make(chan ffmpeg.Progress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range ch {
			if total <= 0 {
				continue
			}
			frac := p.OutTimeSeconds() / total
			if frac > 1 {
				frac = 1
			}
			r.Report(ctx, lo+int(frac*float64(hi-lo)), message)
		}
	}()
	return ch, func() { <-done }
}
