package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-service/internal/utils"
	"account-service/internal/worker"
)

type Submitter interface {
	Submit(job worker.Job) error
}

// Dispatcher hands events to the worker pool. When the pool refuses a job
// the event is published on the caller's goroutine instead. Failures are
// logged and never returned.
type Dispatcher struct {
	publisher Publisher
	pool      Submitter
	timeout   time.Duration
}

func NewDispatcher(publisher Publisher, pool Submitter) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		pool:      pool,
		timeout:   5 * time.Second,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	publish := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return d.publisher.Publish(ctx, event)
	}

	if d.pool != nil {
		err := d.pool.Submit(worker.Job{
			ID:   fmt.Sprintf("%s:%s", event.Type, event.ID),
			Task: publish,
		})
		if err == nil {
			return
		}
		if !errors.Is(err, worker.ErrQueueFull) && !errors.Is(err, worker.ErrPoolClosed) {
			utils.LogError("Events", "submit publish job", err)
			return
		}
		utils.LogWarning("Events", "Publishing %s synchronously: %v", event.Type, err)
	}

	// The request context may already be finishing; the event outlives it.
	if err := publish(context.WithoutCancel(ctx)); err != nil {
		utils.LogError("Events", fmt.Sprintf("publish %s", event.Type), err)
	}
}
