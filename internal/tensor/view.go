package tensor

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"unsafe"
)

// None marks an omitted start or stop in Slice.
const None = math.MinInt

// ErrOutOfBounds is returned when a view reaches outside its block.
var ErrOutOfBounds = errors.New("view extends beyond memory block")

// View is a strided window onto a memory block.
// Strides and offset are measured in elements, not bytes. A zero stride
// broadcasts one element along its axis.
type View struct {
	block   *Block
	shape   Shape
	strides []int
	offset  int
	dtype   DataType
}

// NewView creates a view after checking that every reachable element lies
// inside the block.
func NewView(block *Block, dtype DataType, shape Shape, strides []int, offset int) (View, error) {
	if block == nil {
		return View{}, errors.New("new view: nil block")
	}
	if !dtype.Valid() {
		return View{}, fmt.Errorf("new view: unknown data type %d", int(dtype))
	}
	if err := shape.Validate(); err != nil {
		return View{}, fmt.Errorf("new view: %w", err)
	}
	if len(strides) != len(shape) {
		return View{}, fmt.Errorf("new view: %d strides for rank %d", len(strides), len(shape))
	}

	v := View{
		block:   block,
		shape:   shape.Clone(),
		strides: slices.Clone(strides),
		offset:  offset,
		dtype:   dtype,
	}
	if v.NumElements() == 0 {
		return v, nil
	}
	lo, hi := v.Extent()
	if capacity := block.Len() / dtype.Size(); lo < 0 || hi >= capacity {
		return View{}, fmt.Errorf("%w: elements [%d, %d] of %d", ErrOutOfBounds, lo, hi, capacity)
	}
	return v, nil
}

// Empty allocates a zeroed row-major array.
func Empty(shape Shape, dtype DataType, kind USMKind, device Device) (View, error) {
	return allocate(shape, dtype, kind, device, shape.ComputeStrides())
}

// EmptyF allocates a zeroed column-major array.
func EmptyF(shape Shape, dtype DataType, kind USMKind, device Device) (View, error) {
	return allocate(shape, dtype, kind, device, shape.ComputeFStrides())
}

// MustEmpty is Empty on host memory that panics on error. Intended for tests and examples.
func MustEmpty(shape Shape, dtype DataType) View {
	v, err := Empty(shape, dtype, Host, CPU)
	if err != nil {
		panic(err)
	}
	return v
}

func allocate(shape Shape, dtype DataType, kind USMKind, device Device, strides []int) (View, error) {
	if err := shape.Validate(); err != nil {
		return View{}, fmt.Errorf("invalid shape: %w", err)
	}
	block, err := Allocate(shape.NumElements()*dtype.Size(), kind, device)
	if err != nil {
		return View{}, err
	}
	return NewView(block, dtype, shape, strides, 0)
}

// Block returns the underlying memory block.
func (v View) Block() *Block { return v.block }

// Shape returns the view's extents.
func (v View) Shape() Shape { return v.shape }

// Strides returns the view's element strides.
func (v View) Strides() []int { return v.strides }

// Offset returns the element offset of index (0, ..., 0).
func (v View) Offset() int { return v.offset }

// DType returns the element type.
func (v View) DType() DataType { return v.dtype }

// Rank returns the number of axes.
func (v View) Rank() int { return len(v.shape) }

// ItemSize returns the element size in bytes.
func (v View) ItemSize() int { return v.dtype.Size() }

// Device returns the device of the underlying block.
func (v View) Device() Device { return v.block.Device() }

// NumElements returns the total number of logical elements.
func (v View) NumElements() int { return v.shape.NumElements() }

// String describes the view layout.
func (v View) String() string {
	return fmt.Sprintf("View(%s, shape=%v, strides=%v, offset=%d)", v.dtype, []int(v.shape), v.strides, v.offset)
}

// Extent returns the lowest and highest element offsets the view can reach.
// The result is meaningless for views with zero elements.
func (v View) Extent() (lo, hi int) {
	lo, hi = v.offset, v.offset
	for i, n := range v.shape {
		if n == 0 {
			continue
		}
		step := (n - 1) * v.strides[i]
		if step < 0 {
			lo += step
		} else {
			hi += step
		}
	}
	return lo, hi
}

// ByteRange returns the half-open byte interval the view can touch.
func (v View) ByteRange() (start, end int) {
	if v.NumElements() == 0 {
		return 0, 0
	}
	lo, hi := v.Extent()
	return lo * v.ItemSize(), (hi + 1) * v.ItemSize()
}

// Index returns the element offset of a multi-index.
func (v View) Index(idx ...int) (int, error) {
	if len(idx) != len(v.shape) {
		return 0, fmt.Errorf("index: got %d indices for rank %d", len(idx), len(v.shape))
	}
	off := v.offset
	for i, ix := range idx {
		if ix < 0 || ix >= v.shape[i] {
			return 0, fmt.Errorf("index %d out of range for axis %d with extent %d", ix, i, v.shape[i])
		}
		off += ix * v.strides[i]
	}
	return off, nil
}

// ElementPointer returns the address of the element at the given element offset.
func (v View) ElementPointer(elemOffset int) unsafe.Pointer {
	return unsafe.Add(v.block.Pointer(), elemOffset*v.ItemSize())
}

// IsCContiguous reports whether the strides match the row-major layout of the shape.
// Axes of extent 1 are ignored, and views with no elements are contiguous.
func (v View) IsCContiguous() bool {
	return isContiguous(v.shape, v.strides, false)
}

// IsFContiguous reports whether the strides match the column-major layout of the shape.
func (v View) IsFContiguous() bool {
	return isContiguous(v.shape, v.strides, true)
}

func isContiguous(shape Shape, strides []int, fortran bool) bool {
	if shape.NumElements() == 0 {
		return true
	}
	expected := 1
	for k := range shape {
		i := len(shape) - 1 - k
		if fortran {
			i = k
		}
		if shape[i] == 1 {
			continue
		}
		if strides[i] != expected {
			return false
		}
		expected *= shape[i]
	}
	return true
}

// Slice applies start:stop:step to one axis with Python semantics.
// Pass None for an omitted start or stop.
func (v View) Slice(axis, start, stop, step int) (View, error) {
	if axis < 0 || axis >= len(v.shape) {
		return View{}, fmt.Errorf("slice: axis %d out of range for rank %d", axis, len(v.shape))
	}
	if step == 0 {
		return View{}, errors.New("slice: step cannot be zero")
	}

	n := v.shape[axis]
	start = clampSliceIndex(start, n, step, true)
	stop = clampSliceIndex(stop, n, step, false)

	length := 0
	switch {
	case step > 0 && stop > start:
		length = (stop-start-1)/step + 1
	case step < 0 && start > stop:
		length = (start-stop-1)/(-step) + 1
	}

	out := v.clone()
	out.shape[axis] = length
	out.strides[axis] = v.strides[axis] * step
	if length > 0 {
		out.offset = v.offset + start*v.strides[axis]
	}
	return out, nil
}

func clampSliceIndex(ix, n, step int, isStart bool) int {
	if ix == None {
		switch {
		case step > 0 && isStart:
			return 0
		case step > 0:
			return n
		case isStart:
			return n - 1
		default:
			return -1
		}
	}
	if ix < 0 {
		ix += n
		if ix < 0 {
			if step < 0 {
				return -1
			}
			return 0
		}
		return ix
	}
	if ix >= n {
		if step < 0 {
			return n - 1
		}
		return n
	}
	return ix
}

// Strided applies [::steps[i]] to every axis, the common way tests build
// reversed or skipping views.
func (v View) Strided(steps ...int) (View, error) {
	if len(steps) > len(v.shape) {
		return View{}, fmt.Errorf("strided: %d steps for rank %d", len(steps), len(v.shape))
	}
	out := v
	for axis, step := range steps {
		var err error
		if out, err = out.Slice(axis, None, None, step); err != nil {
			return View{}, err
		}
	}
	return out, nil
}

// Flip reverses one axis.
func (v View) Flip(axis int) (View, error) {
	return v.Slice(axis, None, None, -1)
}

// Transpose permutes the axes. With no arguments the axis order is reversed.
func (v View) Transpose(perm ...int) (View, error) {
	rank := len(v.shape)
	if len(perm) == 0 {
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}
	if len(perm) != rank {
		return View{}, fmt.Errorf("transpose: permutation %v for rank %d", perm, rank)
	}
	seen := make([]bool, rank)
	out := v.clone()
	for i, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return View{}, fmt.Errorf("transpose: invalid permutation %v", perm)
		}
		seen[p] = true
		out.shape[i] = v.shape[p]
		out.strides[i] = v.strides[p]
	}
	return out, nil
}

// BroadcastTo returns a view of the target shape, using zero strides on
// broadcast axes.
func (v View) BroadcastTo(shape Shape) (View, error) {
	result, _, err := BroadcastShapes(v.shape, shape)
	if err != nil {
		return View{}, fmt.Errorf("broadcast: %w", err)
	}
	if !result.Equal(shape) {
		return View{}, fmt.Errorf("broadcast: cannot broadcast %v to %v", v.shape, shape)
	}

	pad := len(shape) - len(v.shape)
	strides := make([]int, len(shape))
	for i := range shape {
		src := i - pad
		if src < 0 || (v.shape[src] == 1 && shape[i] != 1) {
			continue
		}
		strides[i] = v.strides[src]
	}
	return View{block: v.block, shape: shape.Clone(), strides: strides, offset: v.offset, dtype: v.dtype}, nil
}

// Reshape returns a row-major view with a new shape. The view must be C-contiguous.
func (v View) Reshape(shape Shape) (View, error) {
	if shape.NumElements() != v.NumElements() {
		return View{}, fmt.Errorf("reshape: cannot reshape %v into %v", v.shape, shape)
	}
	if !v.IsCContiguous() {
		return View{}, errors.New("reshape: view is not C-contiguous")
	}
	return NewView(v.block, v.dtype, shape, shape.ComputeStrides(), v.offset)
}

func (v View) clone() View {
	return View{
		block:   v.block,
		shape:   v.shape.Clone(),
		strides: slices.Clone(v.strides),
		offset:  v.offset,
		dtype:   v.dtype,
	}
}
