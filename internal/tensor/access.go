package tensor

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"
)

// ForEachOffset calls fn with the element offset of every logical element of v
// in row-major order.
func (v View) ForEachOffset(fn func(off int)) {
	n := v.NumElements()
	if n == 0 {
		return
	}
	rank := len(v.shape)
	idx := make([]int, rank)
	off := v.offset
	for range n {
		fn(off)
		for ax := rank - 1; ax >= 0; ax-- {
			idx[ax]++
			off += v.strides[ax]
			if idx[ax] < v.shape[ax] {
				break
			}
			off -= idx[ax] * v.strides[ax]
			idx[ax] = 0
		}
	}
}

// Fill writes values into v in logical row-major order.
// The Go type T must match the view's data type.
func Fill[T DType](v View, values []T) error {
	if err := checkAccess[T](v); err != nil {
		return err
	}
	if len(values) != v.NumElements() {
		return fmt.Errorf("fill: %d values for %d elements", len(values), v.NumElements())
	}
	i := 0
	v.ForEachOffset(func(off int) {
		*(*T)(v.ElementPointer(off)) = values[i]
		i++
	})
	return nil
}

// ToSlice reads v in logical row-major order.
func ToSlice[T DType](v View) ([]T, error) {
	if err := checkAccess[T](v); err != nil {
		return nil, err
	}
	out := make([]T, 0, v.NumElements())
	v.ForEachOffset(func(off int) {
		out = append(out, *(*T)(v.ElementPointer(off)))
	})
	return out, nil
}

// FromSlice allocates a host array of the given shape holding values.
func FromSlice[T DType](values []T, shape Shape) (View, error) {
	v, err := Empty(shape, InferDataType[T](), Host, CPU)
	if err != nil {
		return View{}, err
	}
	if err := Fill(v, values); err != nil {
		return View{}, err
	}
	return v, nil
}

// SetAt writes one element.
func SetAt[T DType](v View, value T, idx ...int) error {
	if err := checkAccess[T](v); err != nil {
		return err
	}
	off, err := v.Index(idx...)
	if err != nil {
		return err
	}
	*(*T)(v.ElementPointer(off)) = value
	return nil
}

// At reads one element.
func At[T DType](v View, idx ...int) (T, error) {
	var zero T
	if err := checkAccess[T](v); err != nil {
		return zero, err
	}
	off, err := v.Index(idx...)
	if err != nil {
		return zero, err
	}
	return *(*T)(v.ElementPointer(off)), nil
}

func checkAccess[T DType](v View) error {
	if v.block == nil {
		return fmt.Errorf("access: view has no block")
	}
	if v.block.Closed() {
		return ErrBlockClosed
	}
	if want := InferDataType[T](); want != v.dtype {
		return fmt.Errorf("access: view dtype is %s, not %s", v.dtype, want)
	}
	var zero T
	if int(unsafe.Sizeof(zero)) != v.ItemSize() {
		return fmt.Errorf("access: %T is not %d bytes", zero, v.ItemSize())
	}
	return nil
}

// LoadFloat64 reads the element at an element offset as a float64.
// Complex elements yield their real part and bool elements 0 or 1.
func (v View) LoadFloat64(off int) float64 {
	p := v.ElementPointer(off)
	switch v.dtype {
	case Bool:
		if *(*uint8)(p) != 0 {
			return 1
		}
		return 0
	case Int8:
		return float64(*(*int8)(p))
	case Uint8:
		return float64(*(*uint8)(p))
	case Int16:
		return float64(*(*int16)(p))
	case Uint16:
		return float64(*(*uint16)(p))
	case Int32:
		return float64(*(*int32)(p))
	case Uint32:
		return float64(*(*uint32)(p))
	case Int64:
		return float64(*(*int64)(p))
	case Uint64:
		return float64(*(*uint64)(p))
	case Float16:
		return float64((*(*float16.Float16)(p)).Float32())
	case Float32:
		return float64(*(*float32)(p))
	case Float64:
		return *(*float64)(p)
	case Complex64:
		return float64(real(*(*complex64)(p)))
	case Complex128:
		return real(*(*complex128)(p))
	default:
		panic(fmt.Sprintf("load: unknown data type %d", int(v.dtype)))
	}
}

// StoreFloat64 writes x to the element at an element offset using Go's
// conversion to the element type. Integer targets must be able to hold
// trunc(x); bool targets store x != 0.
func (v View) StoreFloat64(off int, x float64) {
	p := v.ElementPointer(off)
	switch v.dtype {
	case Bool:
		*(*uint8)(p) = 0
		if x != 0 {
			*(*uint8)(p) = 1
		}
	case Int8:
		*(*int8)(p) = int8(x)
	case Uint8:
		*(*uint8)(p) = uint8(x)
	case Int16:
		*(*int16)(p) = int16(x)
	case Uint16:
		*(*uint16)(p) = uint16(x)
	case Int32:
		*(*int32)(p) = int32(x)
	case Uint32:
		*(*uint32)(p) = uint32(x)
	case Int64:
		*(*int64)(p) = int64(x)
	case Uint64:
		*(*uint64)(p) = uint64(x)
	case Float16:
		*(*float16.Float16)(p) = float16.Fromfloat32(float32(x))
	case Float32:
		*(*float32)(p) = float32(x)
	case Float64:
		*(*float64)(p) = x
	case Complex64:
		*(*complex64)(p) = complex(float32(x), 0)
	case Complex128:
		*(*complex128)(p) = complex(x, 0)
	default:
		panic(fmt.Sprintf("store: unknown data type %d", int(v.dtype)))
	}
}

// Float64s reads v in logical row-major order as float64 values.
func (v View) Float64s() []float64 {
	out := make([]float64, 0, v.NumElements())
	v.ForEachOffset(func(off int) {
		out = append(out, v.LoadFloat64(off))
	})
	return out
}

// SetFloat64s writes values into v in logical row-major order.
func (v View) SetFloat64s(values []float64) error {
	if len(values) != v.NumElements() {
		return fmt.Errorf("set: %d values for %d elements", len(values), v.NumElements())
	}
	i := 0
	v.ForEachOffset(func(off int) {
		v.StoreFloat64(off, values[i])
		i++
	})
	return nil
}
