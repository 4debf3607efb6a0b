// Package engine submits asynchronous strided copy-and-cast operations.
//
// SubmitCopyCast validates a (source, destination) pair synchronously, picks
// a kernel from the simplified layout, stages the copy through scratch memory
// when the views overlap, and schedules the work on a queue behind the given
// dependencies. A rejected call has no side effects.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/born-ml/castcopy/internal/cast"
	"github.com/born-ml/castcopy/internal/kernels"
	"github.com/born-ml/castcopy/internal/layout"
	"github.com/born-ml/castcopy/internal/logger"
	"github.com/born-ml/castcopy/internal/parallel"
	"github.com/born-ml/castcopy/internal/queue"
	"github.com/born-ml/castcopy/internal/scratch"
	"github.com/born-ml/castcopy/internal/tensor"
)

const opCopyCast = "copy_cast"

// Options configures an Engine. Zero fields take defaults.
type Options struct {
	Logger   logger.Logger
	Parallel *parallel.Config
	Scratch  *scratch.Pool
	// Unsupported lists element kinds the target device cannot compute
	// with, such as Float64 on devices without double precision. Casts
	// from or to them are rejected with ErrTypeDispatch.
	Unsupported []tensor.DataType
}

// Stats are cumulative submission counters.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Staged    int64 `json:"staged"`
	Rejected  int64 `json:"rejected"`
	Elements  int64 `json:"elements"`
}

// Engine submits copy-cast work. It is safe for concurrent use.
type Engine struct {
	log     logger.Logger
	par     parallel.Config
	scratch *scratch.Pool
	blocked [tensor.NumKinds]bool

	submitted atomic.Int64
	staged    atomic.Int64
	rejected  atomic.Int64
	elements  atomic.Int64
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		log:     opts.Logger,
		par:     parallel.DefaultConfig(),
		scratch: opts.Scratch,
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	if opts.Parallel != nil {
		e.par = *opts.Parallel
	}
	if e.scratch == nil {
		e.scratch = scratch.New(scratch.DefaultMaxPooled)
	}
	for _, dt := range opts.Unsupported {
		if dt.Valid() {
			e.blocked[dt] = true
		}
	}
	return e
}

// Scratch returns the staging pool.
func (e *Engine) Scratch() *scratch.Pool { return e.scratch }

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Submitted: e.submitted.Load(),
		Staged:    e.staged.Load(),
		Rejected:  e.rejected.Load(),
		Elements:  e.elements.Load(),
	}
}

// Report describes how a copy would execute.
type Report struct {
	Src   tensor.DataType `json:"src_dtype"`
	Dst   tensor.DataType `json:"dst_dtype"`
	Rule  string          `json:"cast_rule"`
	Plan  layout.Plan     `json:"plan"`
	Guard layout.Guard    `json:"guard"`
}

// Plan validates a pair and reports the strategy and staging decision
// without submitting anything.
func (e *Engine) Plan(src, dst tensor.View) (Report, error) {
	if _, err := e.validate("plan", src, dst); err != nil {
		return Report{}, err
	}
	plan, err := layout.Build(src.Shape(), src.Strides(), dst.Strides(), src.Offset(), dst.Offset())
	if err != nil {
		return Report{}, newError(ErrShapeMismatch, "plan", err, "cannot simplify layout")
	}
	return Report{
		Src:   src.DType(),
		Dst:   dst.DType(),
		Rule:  cast.Rule(src.DType(), dst.DType()),
		Plan:  plan,
		Guard: layout.Check(src, dst),
	}, nil
}

// SubmitCopyCast schedules dst[i] = cast(src[i]) for every logical index i
// after all deps complete, and returns the completion event without waiting.
//
// Errors match ErrShapeMismatch, ErrInvalidBroadcast, ErrTypeDispatch or
// ErrDeviceSubmission, checked in that order.
func (e *Engine) SubmitCopyCast(src, dst tensor.View, q *queue.Queue, deps []*queue.Event) (*queue.Event, error) {
	ev, err := e.submit(src, dst, q, deps)
	if err != nil {
		e.rejected.Add(1)
		e.log.Debug("copy rejected", "src", src, "dst", dst, "error", err)
		return nil, err
	}
	return ev, nil
}

// CopyCast submits a copy and waits for it.
func (e *Engine) CopyCast(ctx context.Context, src, dst tensor.View, q *queue.Queue, deps ...*queue.Event) error {
	ev, err := e.SubmitCopyCast(src, dst, q, deps)
	if err != nil {
		return err
	}
	return ev.WaitContext(ctx)
}

func (e *Engine) submit(src, dst tensor.View, q *queue.Queue, deps []*queue.Event) (*queue.Event, error) {
	fn, err := e.validate(opCopyCast, src, dst)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, newError(ErrDeviceSubmission, opCopyCast, nil, "nil queue")
	}
	if q.Closed() {
		return nil, newError(ErrDeviceSubmission, opCopyCast, queue.ErrQueueClosed, "queue %s", q.Name())
	}
	for _, v := range []tensor.View{src, dst} {
		if !v.Block().AccessibleFrom(q.Device()) {
			return nil, newError(ErrDeviceSubmission, opCopyCast, nil,
				"%s memory on %s is not accessible from a %s queue", v.Block().Kind(), v.Device(), q.Device())
		}
	}

	plan, err := layout.Build(src.Shape(), src.Strides(), dst.Strides(), src.Offset(), dst.Offset())
	if err != nil {
		return nil, newError(ErrShapeMismatch, opCopyCast, err, "cannot simplify layout")
	}
	guard := layout.Check(src, dst)

	var ev *queue.Event
	switch {
	case plan.Strategy == layout.Empty:
		ev, err = q.Submit(opCopyCast+"(empty)", func() error { return nil }, deps)
	case guard.Staged:
		ev, err = e.submitStaged(src, dst, fn, q, deps)
	default:
		args := bind(plan, src, dst, fn)
		ev, err = q.Submit(opCopyCast, e.task(args, src, dst), deps)
	}
	if err != nil {
		var ce *CopyError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, newError(ErrDeviceSubmission, opCopyCast, err, "queue %s", q.Name())
	}

	e.submitted.Add(1)
	e.elements.Add(int64(plan.NumElements))
	if guard.Staged {
		e.staged.Add(1)
	}
	if e.log.Enabled(slog.LevelDebug) {
		e.log.Debug("copy submitted",
			"event", ev.ID(),
			"strategy", plan.Strategy,
			"rank", plan.Rank(),
			"elements", plan.NumElements,
			"cast", cast.Rule(src.DType(), dst.DType()),
			"staged", guard.Staged,
			"reason", guard.Reason,
			"deps", len(deps),
		)
	}
	return ev, nil
}

// submitStaged copies src into a contiguous scratch block and then scratch
// into dst, so that no destination write can clobber an unread source element.
func (e *Engine) submitStaged(src, dst tensor.View, fn cast.Func, q *queue.Queue, deps []*queue.Event) (*queue.Event, error) {
	n := src.NumElements()
	block, err := e.scratch.Acquire(n*src.ItemSize(), dst.Block().Kind(), q.Device())
	if err != nil {
		return nil, newError(ErrDeviceSubmission, opCopyCast, err, "allocate staging buffer")
	}
	tmp, err := tensor.NewView(block, src.DType(), src.Shape(), src.Shape().ComputeStrides(), 0)
	if err != nil {
		_ = e.scratch.Release(block)
		return nil, newError(ErrDeviceSubmission, opCopyCast, err, "staging view")
	}

	identity, err := cast.Lookup(src.DType(), src.DType())
	if err != nil {
		_ = e.scratch.Release(block)
		return nil, newError(ErrTypeDispatch, opCopyCast, err, "%s -> %s", src.DType(), src.DType())
	}
	in, err := layout.Build(src.Shape(), src.Strides(), tmp.Strides(), src.Offset(), 0)
	if err != nil {
		_ = e.scratch.Release(block)
		return nil, newError(ErrShapeMismatch, opCopyCast, err, "cannot simplify staging layout")
	}
	out, err := layout.Build(tmp.Shape(), tmp.Strides(), dst.Strides(), 0, dst.Offset())
	if err != nil {
		_ = e.scratch.Release(block)
		return nil, newError(ErrShapeMismatch, opCopyCast, err, "cannot simplify staging layout")
	}

	stage, err := q.Submit(opCopyCast+"(stage)", e.task(bind(in, src, tmp, identity), src, tmp), deps)
	if err != nil {
		_ = e.scratch.Release(block)
		return nil, err
	}
	ev, err := q.Submit(opCopyCast, e.task(bind(out, tmp, dst, fn), tmp, dst), []*queue.Event{stage})
	if err != nil {
		stage.OnComplete(func(*queue.Event) { _ = e.scratch.Release(block) })
		return nil, err
	}
	ev.OnComplete(func(*queue.Event) {
		if err := e.scratch.Release(block); err != nil {
			e.log.Warn("release staging buffer", "error", err)
		}
	})
	return ev, nil
}

func (e *Engine) task(args kernels.Args, src, dst tensor.View) queue.Task {
	par := e.par
	return func() error {
		if src.Block().Closed() || dst.Block().Closed() {
			return fmt.Errorf("%s: %w", opCopyCast, tensor.ErrBlockClosed)
		}
		kernels.Execute(args, par)
		return nil
	}
}

func bind(plan layout.Plan, src, dst tensor.View, fn cast.Func) kernels.Args {
	return kernels.Args{
		Plan:    plan,
		Src:     src.Block().Pointer(),
		Dst:     dst.Block().Pointer(),
		SrcItem: src.ItemSize(),
		DstItem: dst.ItemSize(),
		Cast:    fn,
		BitCopy: cast.IsBitCopy(src.DType(), dst.DType()),
	}
}

// validate performs the queue-independent checks and returns the cast.
func (e *Engine) validate(op string, src, dst tensor.View) (cast.Func, error) {
	if src.Rank() != dst.Rank() {
		return nil, newError(ErrShapeMismatch, op, nil, "rank %d vs %d", src.Rank(), dst.Rank())
	}
	if src.Rank() > layout.MaxRank {
		return nil, newError(ErrShapeMismatch, op, nil, "rank %d exceeds %d", src.Rank(), layout.MaxRank)
	}
	if !src.Shape().Equal(dst.Shape()) {
		return nil, newError(ErrShapeMismatch, op, nil, "shape %v vs %v", []int(src.Shape()), []int(dst.Shape()))
	}
	for i, n := range dst.Shape() {
		if n > 1 && dst.Strides()[i] == 0 {
			return nil, newError(ErrInvalidBroadcast, op, nil, "destination axis %d has zero stride and extent %d", i, n)
		}
	}
	fn, err := e.lookup(src.DType(), dst.DType())
	if err != nil {
		return nil, newError(ErrTypeDispatch, op, err, "%s -> %s", src.DType(), dst.DType())
	}
	if src.Block() == nil || dst.Block() == nil {
		return nil, newError(ErrDeviceSubmission, op, nil, "view has no memory block")
	}
	if src.Block().Closed() || dst.Block().Closed() {
		return nil, newError(ErrDeviceSubmission, op, tensor.ErrBlockClosed, "view memory released")
	}
	return fn, nil
}

func (e *Engine) lookup(src, dst tensor.DataType) (cast.Func, error) {
	for _, dt := range []tensor.DataType{src, dst} {
		if dt.Valid() && e.blocked[dt] {
			return nil, fmt.Errorf("%w: %s is not supported by the device", cast.ErrUnsupportedPair, dt)
		}
	}
	return cast.Lookup(src, dst)
}
