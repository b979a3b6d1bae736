package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/herald-ai/herald/pkg/models"
)

// Invoker is the boundary contract with the opaque worker backend. The call
// may be long-running internally; implementations must tolerate
// re-invocation with identical inputs, because the dispatcher retries a
// failed call once with the same context view.
type Invoker interface {
	// Invoke runs one worker over the accumulated context view and the
	// original request, returning the produced artifact and its metadata.
	Invoke(ctx context.Context, desc models.WorkerDescriptor, view []models.ContextEntry, req models.Request) (artifact string, metadata map[string]string, err error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, desc models.WorkerDescriptor, view []models.ContextEntry, req models.Request) (string, map[string]string, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, desc models.WorkerDescriptor, view []models.ContextEntry, req models.Request) (string, map[string]string, error) {
	return f(ctx, desc, view, req)
}

// Dispatcher wraps an Invoker with the per-dispatch timeout and the retry
// policy: on timeout or failure, retry exactly once with identical inputs.
// A second failure is terminal for that worker within the run. There is no
// backoff; invocation latency is dominated by the worker itself.
type Dispatcher struct {
	invoker Invoker
	timeout time.Duration
}

// maxAttempts is the hard cap on dispatches per worker per stage:
// the original call plus one automatic retry.
const maxAttempts = 2

// DefaultTimeout bounds a single worker call when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// NewDispatcher creates a Dispatcher. A non-positive timeout falls back to
// DefaultTimeout.
func NewDispatcher(invoker Invoker, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{invoker: invoker, timeout: timeout}
}

// Timeout returns the per-dispatch timeout.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// Dispatch invokes one worker, applying the timeout and retry policy. It
// always returns a StageResult; errors are absorbed into the result status.
// If the parent context is cancelled (run aborted), the dispatch stops
// without retrying and the result is discarded by the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, desc models.WorkerDescriptor, view []models.ContextEntry, req models.Request) models.StageResult {
	result := models.StageResult{Worker: desc.Name}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		start := time.Now()
		artifact, metadata, err := d.invoker.Invoke(callCtx, desc, view, req)
		result.Duration = time.Since(start)
		cancel()

		if err == nil {
			result.Status = models.StageSuccess
			result.Artifact = artifact
			result.Metadata = metadata
			result.Err = ""
			return result
		}

		if errors.Is(err, context.DeadlineExceeded) {
			result.Status = models.StageTimeout
		} else {
			result.Status = models.StageFailure
		}
		result.Err = err.Error()

		// Run-level cancellation: stop immediately, no retry.
		if ctx.Err() != nil {
			return result
		}

		if attempt < maxAttempts {
			log.Printf("[dispatch] worker %s %s on attempt %d, retrying with identical inputs: %v",
				desc.Name, result.Status, attempt, err)
		}
	}

	log.Printf("[dispatch] worker %s terminal after %d attempts: %s", desc.Name, maxAttempts, result.Err)
	return result
}
