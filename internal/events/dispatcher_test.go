package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/worker"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
	got    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 16)}
}

func (r *recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.got <- struct{}{}
	return r.err
}

type refusingPool struct{ err error }

func (p refusingPool) Submit(job worker.Job) error { return p.err }

func TestDispatchThroughPool(t *testing.T) {
	rec := newRecorder()
	pool := worker.NewWorkerPool(1, 4, 0)
	pool.Start()
	defer pool.Shutdown(time.Second)

	d := NewDispatcher(rec, pool)
	evt := New(Deposited, uuid.New(), map[string]string{"amount": "10.00"})
	d.Dispatch(context.Background(), evt)

	select {
	case <-rec.got:
	case <-time.After(time.Second):
		t.Fatal("event was not published")
	}
	assert.Equal(t, evt.ID, rec.events[0].ID)
}

func TestDispatchFallsBackWhenQueueFull(t *testing.T) {
	rec := newRecorder()
	d := NewDispatcher(rec, refusingPool{err: worker.ErrQueueFull})

	d.Dispatch(context.Background(), New(Transferred, uuid.New(), nil))

	require.Len(t, rec.events, 1)
	assert.Equal(t, Transferred, rec.events[0].Type)
}

func TestDispatchSwallowsPublishErrors(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("broker down")
	d := NewDispatcher(rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() { d.Dispatch(ctx, New(Withdrawn, uuid.New(), nil)) })
	assert.Len(t, rec.events, 1)
}

func TestEventEncoding(t *testing.T) {
	id := uuid.New()
	data, err := New(PasswordResetRequested, id, map[string]string{"email": "a@example.com"}).Encode()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "password_reset_requested", decoded["type"])
	assert.Equal(t, id.String(), decoded["account_id"])
}
