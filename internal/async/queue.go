package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one document waiting for the pipeline.
type Job struct {
	Path        string
	VehicleHint *uuid.UUID
	Index       int // caller's slot for the result, if it collects them
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes a single job. Errors are logged by the queue.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
