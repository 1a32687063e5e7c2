package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobboard/lifecycle-service/internal/lifecycle"
)

// ErrQueueFull is returned when the async queue cannot take another event.
var ErrQueueFull = errors.New("notification queue full")

// Async decouples delivery from the request path. Notify enqueues and
// returns; a worker goroutine delivers with a per-event timeout and logs
// failures. Events are never retried.
type Async struct {
	next    lifecycle.Notifier
	logger  *zap.Logger
	timeout time.Duration
	queue   chan lifecycle.Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the delivery worker.
func NewAsync(next lifecycle.Notifier, logger *zap.Logger, size int, timeout time.Duration) *Async {
	if size < 1 {
		size = 1
	}
	a := &Async{
		next:    next,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan lifecycle.Event, size),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify enqueues ev. A full or closed queue drops the event and reports it.
func (a *Async) Notify(_ context.Context, ev lifecycle.Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return errors.New("notification queue closed")
	}
	select {
	case a.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to
// expire.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.queue {
		a.deliver(ev)
	}
}

func (a *Async) deliver(ev lifecycle.Event) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.next.Notify(ctx, ev); err != nil {
		a.logger.Error("notification delivery failed",
			zap.String("type", string(ev.Kind)),
			zap.String("employerId", ev.EmployerID),
			zap.String("jobSeekerId", ev.JobSeekerID),
			zap.String("applicationId", ev.ApplicationID),
			zap.String("internshipId", ev.InternshipID),
			zap.Error(err))
		return
	}
	a.logger.Debug("notification delivered",
		zap.String("type", string(ev.Kind)),
		zap.String("applicationId", ev.ApplicationID))
}
