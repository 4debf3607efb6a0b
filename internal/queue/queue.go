// Package queue schedules tasks with event dependencies on a worker pool.
//
// Submit never blocks on dependencies. Each task node counts its outstanding
// dependencies and is handed to a worker when the count reaches zero, so a
// pending task holds no goroutine.
package queue

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/born-ml/castcopy/internal/logger"
	"github.com/born-ml/castcopy/internal/tensor"
	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("queue closed")

// Task is a unit of work. A returned error fails its event.
type Task func() error

// Config configures a Queue.
type Config struct {
	Name    string
	Workers int  // 0 means runtime.NumCPU()
	InOrder bool // each task implicitly depends on the previous one
	Device  tensor.Device
	Logger  logger.Logger
}

// Stats are cumulative task counters.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Pending returns the number of tasks not yet finished.
func (s Stats) Pending() int64 { return s.Submitted - s.Completed - s.Failed }

type node struct {
	event     *Event
	task      Task
	remaining atomic.Int32
	depErr    atomic.Pointer[error]
}

// executor is the worker pool shared by a queue and its copies.
type executor struct {
	id  uuid.UUID
	cfg Config
	log logger.Logger

	mu       sync.Mutex
	cond     *sync.Cond // signals ready work or stopping
	idle     *sync.Cond // signals inflight reaching zero
	ready    []*node
	inflight int
	closed   bool
	stopping bool
	last     *Event

	workers sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Queue is a handle to an executor. Copies made with Copy share the executor
// and compare Equal.
type Queue struct {
	exec *executor
}

// New starts a queue and its workers.
func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	x := &executor{id: uuid.New(), cfg: cfg}
	x.log = cfg.Logger.With("queue", x.name())
	x.cond = sync.NewCond(&x.mu)
	x.idle = sync.NewCond(&x.mu)

	x.workers.Add(cfg.Workers)
	for range cfg.Workers {
		go x.worker()
	}
	x.log.Debug("queue started", "workers", cfg.Workers, "in_order", cfg.InOrder, "device", cfg.Device)
	return &Queue{exec: x}
}

// ID returns the executor identifier shared by all copies of the queue.
func (q *Queue) ID() uuid.UUID { return q.exec.id }

// Name returns the configured name, or a short form of the ID.
func (q *Queue) Name() string { return q.exec.name() }

// Device returns the device the queue submits to.
func (q *Queue) Device() tensor.Device { return q.exec.cfg.Device }

// InOrder reports whether tasks run in submission order.
func (q *Queue) InOrder() bool { return q.exec.cfg.InOrder }

// Workers returns the number of worker goroutines.
func (q *Queue) Workers() int { return q.exec.cfg.Workers }

// Copy returns a new handle to the same executor.
func (q *Queue) Copy() *Queue { return &Queue{exec: q.exec} }

// Equal reports whether both handles share one executor.
func (q *Queue) Equal(other *Queue) bool {
	return q != nil && other != nil && q.exec == other.exec
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.exec.mu.Lock()
	defer q.exec.mu.Unlock()
	return q.exec.closed
}

// Stats returns a snapshot of the task counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Submitted: q.exec.submitted.Load(),
		Completed: q.exec.completed.Load(),
		Failed:    q.exec.failed.Load(),
	}
}

// String describes the queue for logs.
func (q *Queue) String() string {
	return fmt.Sprintf("Queue(%s, %s, workers=%d)", q.Name(), q.Device(), q.Workers())
}

// Submit schedules task to run after every dependency finishes and returns
// its event immediately. Nil dependencies are ignored. If a dependency fails
// the task is skipped and its event fails with ErrDependencyFailed. On an
// in-order queue the previous submission only orders the task; its failure
// does not skip it.
func (q *Queue) Submit(label string, task Task, deps []*Event) (*Event, error) {
	if task == nil {
		return nil, errors.New("submit: nil task")
	}
	x := q.exec
	n := &node{event: newEvent(label), task: task}

	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return nil, ErrQueueClosed
	}
	var prev *Event
	if x.cfg.InOrder {
		prev = x.last
	}
	x.last = n.event
	x.inflight++
	x.submitted.Add(1)
	x.mu.Unlock()

	// One extra count keeps the node from dispatching while callbacks are
	// still being registered; the other is the in-order predecessor slot.
	n.remaining.Store(int32(len(deps)) + 2) //nolint:gosec // G115: dependency lists are small
	if prev != nil {
		prev.OnComplete(func(*Event) { x.release(n) })
	} else {
		x.release(n)
	}
	for _, dep := range deps {
		if dep == nil {
			x.release(n)
			continue
		}
		dep.OnComplete(func(d *Event) {
			if err := d.Err(); err != nil {
				wrapped := fmt.Errorf("%w: %s: %w", ErrDependencyFailed, d.Label(), err)
				n.depErr.CompareAndSwap(nil, &wrapped)
			}
			x.release(n)
		})
	}
	x.release(n)
	return n.event, nil
}

// Wait blocks until every task submitted so far has finished.
func (q *Queue) Wait() {
	q.exec.wait()
}

// Close stops accepting tasks, waits for the submitted ones, and stops the
// workers. Closing twice is a no-op.
func (q *Queue) Close() {
	x := q.exec
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	x.closed = true
	for x.inflight > 0 {
		x.idle.Wait()
	}
	x.stopping = true
	x.cond.Broadcast()
	x.mu.Unlock()
	x.workers.Wait()

	s := q.Stats()
	x.log.Debug("queue closed", "submitted", s.Submitted, "completed", s.Completed, "failed", s.Failed)
}

func (x *executor) name() string {
	if x.cfg.Name != "" {
		return x.cfg.Name
	}
	return x.id.String()[:8]
}

func (x *executor) wait() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for x.inflight > 0 {
		x.idle.Wait()
	}
}

func (x *executor) release(n *node) {
	if n.remaining.Add(-1) != 0 {
		return
	}
	if errp := n.depErr.Load(); errp != nil {
		x.finish(n, *errp)
		return
	}
	x.mu.Lock()
	x.ready = append(x.ready, n)
	x.cond.Signal()
	x.mu.Unlock()
}

func (x *executor) worker() {
	defer x.workers.Done()
	for {
		x.mu.Lock()
		for len(x.ready) == 0 && !x.stopping {
			x.cond.Wait()
		}
		if len(x.ready) == 0 {
			x.mu.Unlock()
			return
		}
		n := x.ready[0]
		x.ready[0] = nil
		x.ready = x.ready[1:]
		x.mu.Unlock()

		n.event.start()
		x.finish(n, x.run(n))
	}
}

func (x *executor) run(n *node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", n.event.Label(), r)
		}
	}()
	return n.task()
}

func (x *executor) finish(n *node, err error) {
	if err != nil {
		x.failed.Add(1)
		x.log.Warn("task failed", "label", n.event.Label(), "event", n.event.ID(), "error", err)
	} else {
		x.completed.Add(1)
	}
	n.event.finish(err)

	x.mu.Lock()
	x.inflight--
	if x.inflight == 0 {
		x.idle.Broadcast()
	}
	x.mu.Unlock()
}
