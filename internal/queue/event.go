package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the execution state of an event.
type Status int32

// Event states. An event only moves forward through them.
const (
	Submitted Status = iota
	Running
	Complete
	Failed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Running:
		return "running"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// ErrDependencyFailed is recorded on an event whose dependency failed.
// The event's task is not run.
var ErrDependencyFailed = errors.New("dependency failed")

// Event tracks one submitted task. It completes exactly once.
type Event struct {
	id    uuid.UUID
	label string
	done  chan struct{}

	mu        sync.Mutex
	status    Status
	err       error
	callbacks []func(*Event)

	submitted time.Time
	started   time.Time
	finished  time.Time
}

func newEvent(label string) *Event {
	return &Event{
		id:        uuid.New(),
		label:     label,
		done:      make(chan struct{}),
		submitted: time.Now(),
	}
}

// Completed returns an event that is already complete, for work that needed
// no execution.
func Completed(label string) *Event {
	e := newEvent(label)
	e.finish(nil)
	return e
}

// ID returns the event's unique identifier.
func (e *Event) ID() uuid.UUID { return e.id }

// Label returns the name given at submission.
func (e *Event) Label() string { return e.label }

// Done returns a channel closed when the event completes or fails.
func (e *Event) Done() <-chan struct{} { return e.done }

// Status returns the current state.
func (e *Event) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// IsComplete reports whether the event has finished, successfully or not.
func (e *Event) IsComplete() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Err returns the task error once the event has finished.
func (e *Event) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Wait blocks until the event finishes and returns its error.
func (e *Event) Wait() error {
	<-e.done
	return e.Err()
}

// WaitContext is Wait bounded by ctx.
func (e *Event) WaitContext(ctx context.Context) error {
	select {
	case <-e.done:
		return e.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Timings returns when the event was submitted, started, and finished.
// Zero times mark phases not reached yet.
func (e *Event) Timings() (submitted, started, finished time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitted, e.started, e.finished
}

// OnComplete registers fn to run after the event finishes. If it already
// has, fn runs immediately on the calling goroutine.
func (e *Event) OnComplete(fn func(*Event)) {
	e.mu.Lock()
	if e.status < Complete {
		e.callbacks = append(e.callbacks, fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn(e)
}

// String describes the event for logs.
func (e *Event) String() string {
	return fmt.Sprintf("Event(%s %q %s)", e.id.String()[:8], e.label, e.Status())
}

func (e *Event) start() {
	e.mu.Lock()
	e.status = Running
	e.started = time.Now()
	e.mu.Unlock()
}

func (e *Event) finish(err error) {
	e.mu.Lock()
	if e.status >= Complete {
		e.mu.Unlock()
		return
	}
	e.status = Complete
	if err != nil {
		e.status = Failed
		e.err = err
	}
	e.finished = time.Now()
	callbacks := e.callbacks
	e.callbacks = nil
	e.mu.Unlock()

	close(e.done)
	for _, fn := range callbacks {
		fn(e)
	}
}

// WaitAll waits for every non-nil event and returns the first error.
func WaitAll(events ...*Event) error {
	var first error
	for _, e := range events {
		if e == nil {
			continue
		}
		if err := e.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
