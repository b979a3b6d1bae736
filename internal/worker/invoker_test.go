package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/herald-ai/herald/pkg/models"
)

var testDesc = models.WorkerDescriptor{
	Name:         "tester",
	Capabilities: []string{"testing"},
}

func TestDispatchSuccessFirstAttempt(t *testing.T) {
	var calls atomic.Int32
	inv := InvokerFunc(func(context.Context, models.WorkerDescriptor, []models.ContextEntry, models.Request) (string, map[string]string, error) {
		calls.Add(1)
		return "ok", map[string]string{"k": "v"}, nil
	})

	d := NewDispatcher(inv, time.Second)
	res := d.Dispatch(context.Background(), testDesc, nil, models.NewRequest("go", ""))

	if !res.Succeeded() {
		t.Fatalf("result = %+v, want success", res)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if calls.Load() != 1 {
		t.Errorf("invoker called %d times", calls.Load())
	}
	if res.Artifact != "ok" || res.Metadata["k"] != "v" {
		t.Errorf("artifact/metadata lost: %+v", res)
	}
}

func TestDispatchRetriesExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	inv := InvokerFunc(func(context.Context, models.WorkerDescriptor, []models.ContextEntry, models.Request) (string, map[string]string, error) {
		calls.Add(1)
		return "", nil, errors.New("boom")
	})

	d := NewDispatcher(inv, time.Second)
	res := d.Dispatch(context.Background(), testDesc, nil, models.NewRequest("go", ""))

	if res.Succeeded() {
		t.Fatal("expected failure")
	}
	if calls.Load() != 2 {
		t.Errorf("invoker called %d times, want exactly 2", calls.Load())
	}
	if res.Status != models.StageFailure {
		t.Errorf("status = %s, want failure", res.Status)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
}

func TestDispatchRetrySucceeds(t *testing.T) {
	var calls atomic.Int32
	inv := InvokerFunc(func(context.Context, models.WorkerDescriptor, []models.ContextEntry, models.Request) (string, map[string]string, error) {
		if calls.Add(1) == 1 {
			return "", nil, errors.New("transient")
		}
		return "recovered", nil, nil
	})

	d := NewDispatcher(inv, time.Second)
	res := d.Dispatch(context.Background(), testDesc, nil, models.NewRequest("go", ""))

	if !res.Succeeded() {
		t.Fatalf("result = %+v, want success on retry", res)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if res.Artifact != "recovered" {
		t.Errorf("artifact = %q", res.Artifact)
	}
	if res.Err != "" {
		t.Errorf("stale error %q survived the successful retry", res.Err)
	}
}

func TestDispatchTimeoutStatus(t *testing.T) {
	inv := InvokerFunc(func(ctx context.Context, _ models.WorkerDescriptor, _ []models.ContextEntry, _ models.Request) (string, map[string]string, error) {
		<-ctx.Done()
		return "", nil, ctx.Err()
	})

	d := NewDispatcher(inv, 20*time.Millisecond)
	res := d.Dispatch(context.Background(), testDesc, nil, models.NewRequest("go", ""))

	if res.Status != models.StageTimeout {
		t.Errorf("status = %s, want timeout", res.Status)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2 (timeout is retried once)", res.Attempts)
	}
}

func TestDispatchNoRetryAfterCancel(t *testing.T) {
	var calls atomic.Int32
	inv := InvokerFunc(func(ctx context.Context, _ models.WorkerDescriptor, _ []models.ContextEntry, _ models.Request) (string, map[string]string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	d := NewDispatcher(inv, time.Minute)
	res := d.Dispatch(ctx, testDesc, nil, models.NewRequest("go", ""))

	if calls.Load() != 1 {
		t.Errorf("invoker called %d times after cancel, want 1 (no retry)", calls.Load())
	}
	if res.Succeeded() {
		t.Error("cancelled dispatch reported success")
	}
}

func TestDispatchEachAttemptGetsFreshTimeout(t *testing.T) {
	var calls atomic.Int32
	inv := InvokerFunc(func(ctx context.Context, _ models.WorkerDescriptor, _ []models.ContextEntry, _ models.Request) (string, map[string]string, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return "", nil, ctx.Err()
		}
		// The retry must not inherit the expired deadline.
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		return "fine", nil, nil
	})

	d := NewDispatcher(inv, 20*time.Millisecond)
	res := d.Dispatch(context.Background(), testDesc, nil, models.NewRequest("go", ""))

	if !res.Succeeded() {
		t.Fatalf("result = %+v, want success on retry with fresh timeout", res)
	}
}

func TestNewDispatcherDefaultTimeout(t *testing.T) {
	d := NewDispatcher(InvokerFunc(nil), 0)
	if d.Timeout() != DefaultTimeout {
		t.Errorf("timeout = %s, want %s", d.Timeout(), DefaultTimeout)
	}
}
