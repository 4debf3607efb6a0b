// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package castcopy

import (
	"context"
	"sync"

	"github.com/born-ml/castcopy/internal/engine"
	"github.com/born-ml/castcopy/internal/queue"
	"github.com/born-ml/castcopy/internal/tensor"
)

// Type aliases for public API

// View is a strided window onto a memory block.
type View = tensor.View

// Block is a memory allocation views address into.
type Block = tensor.Block

// Shape represents the extents of a view.
type Shape = tensor.Shape

// DataType is one of the supported element kinds.
type DataType = tensor.DataType

// DType is the constraint for Go element types.
type DType = tensor.DType

// Element kinds.
const (
	Bool       DataType = tensor.Bool
	Int8       DataType = tensor.Int8
	Uint8      DataType = tensor.Uint8
	Int16      DataType = tensor.Int16
	Uint16     DataType = tensor.Uint16
	Int32      DataType = tensor.Int32
	Uint32     DataType = tensor.Uint32
	Int64      DataType = tensor.Int64
	Uint64     DataType = tensor.Uint64
	Float16    DataType = tensor.Float16
	Float32    DataType = tensor.Float32
	Float64    DataType = tensor.Float64
	Complex64  DataType = tensor.Complex64
	Complex128 DataType = tensor.Complex128
)

// Device identifies the compute device a block or queue is bound to.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// USMKind selects how a block is allocated.
type USMKind = tensor.USMKind

// Allocation kinds.
const (
	Host        USMKind = tensor.Host
	DeviceLocal USMKind = tensor.DeviceLocal
	Shared      USMKind = tensor.Shared
)

// None marks an omitted start or stop in View.Slice.
const None = tensor.None

// Queue schedules copies on a worker pool.
type Queue = queue.Queue

// QueueConfig configures a Queue.
type QueueConfig = queue.Config

// Event tracks a submitted copy.
type Event = queue.Event

// Engine submits copies with its own logger, scratch pool and parallel
// settings.
type Engine = engine.Engine

// Options configures an Engine.
type Options = engine.Options

// CopyError describes a rejected copy.
type CopyError = engine.CopyError

// Errors.
var (
	ErrShapeMismatch    = engine.ErrShapeMismatch
	ErrTypeDispatch     = engine.ErrTypeDispatch
	ErrInvalidBroadcast = engine.ErrInvalidBroadcast
	ErrDeviceSubmission = engine.ErrDeviceSubmission
	ErrQueueClosed      = queue.ErrQueueClosed
	ErrOutOfBounds      = tensor.ErrOutOfBounds
	ErrBlockClosed      = tensor.ErrBlockClosed
)

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine { return engine.New(opts) }

// NewQueue starts a queue.
func NewQueue(cfg QueueConfig) *Queue { return queue.New(cfg) }

// Allocate creates a zeroed memory block.
func Allocate(nbytes int, kind USMKind, device Device) (*Block, error) {
	return tensor.Allocate(nbytes, kind, device)
}

// NewView creates a view over a block after checking its bounds.
func NewView(block *Block, dtype DataType, shape Shape, strides []int, offset int) (View, error) {
	return tensor.NewView(block, dtype, shape, strides, offset)
}

// Empty allocates a zeroed row-major array.
func Empty(shape Shape, dtype DataType, kind USMKind, device Device) (View, error) {
	return tensor.Empty(shape, dtype, kind, device)
}

// MustEmpty allocates a zeroed row-major host array and panics on error.
func MustEmpty(shape Shape, dtype DataType) View { return tensor.MustEmpty(shape, dtype) }

// FromSlice allocates a host array holding values.
func FromSlice[T DType](values []T, shape Shape) (View, error) {
	return tensor.FromSlice(values, shape)
}

// ToSlice reads a view in logical row-major order.
func ToSlice[T DType](v View) ([]T, error) { return tensor.ToSlice[T](v) }

// WaitAll waits for every event and returns the first error.
func WaitAll(events ...*Event) error { return queue.WaitAll(events...) }

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide engine used by SubmitCopyCast.
func Default() *Engine {
	defaultOnce.Do(func() { defaultEngine = engine.New(engine.Options{}) })
	return defaultEngine
}

// SubmitCopyCast schedules dst[i] = cast(src[i]) on q after deps complete,
// using the default engine.
func SubmitCopyCast(src, dst View, q *Queue, deps []*Event) (*Event, error) {
	return Default().SubmitCopyCast(src, dst, q, deps)
}

// CopyCast submits a copy with the default engine and waits for it.
func CopyCast(ctx context.Context, src, dst View, q *Queue, deps ...*Event) error {
	return Default().CopyCast(ctx, src, dst, q, deps...)
}
