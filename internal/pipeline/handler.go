package pipeline

import (
	"context"

	"thirdcoast.systems/reframe/internal/db"
)

// Handler executes one job type. The returned map becomes the job's
// output_data on success. Failures should be classified with *Error;
// anything else is treated as retryable.
type Handler func(ctx context.Context, job *db.Job, r *Reporter) (db.JSONMap, error)

// Registry maps job types to their handlers.
type Registry map[string]Handler
