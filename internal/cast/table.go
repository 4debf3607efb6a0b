// Package cast provides the element conversion dispatch table used by the copy engine.
//
// Every (source, destination) pair of the closed set of element kinds maps to one
// Func. Conversions follow the destination's native conversion rule and never
// fail: integer narrowing wraps, float to integer truncates toward zero, float
// narrowing rounds to nearest, complex to real keeps the real part, real to
// complex sets a zero imaginary part, and bool reads and writes as 0/1.
package cast

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/born-ml/castcopy/internal/tensor"
	"github.com/x448/float16"
)

// Func converts the element at src into the element at dst.
// Both pointers must be valid and aligned for their element types.
type Func func(dst, src unsafe.Pointer)

// ErrUnsupportedPair is returned for a data type outside the closed set.
var ErrUnsupportedPair = errors.New("unsupported cast pair")

var table [tensor.NumKinds][tensor.NumKinds]Func

func init() {
	table[tensor.Bool] = rowFromBool()
	table[tensor.Int8] = rowFromInt[int8]()
	table[tensor.Uint8] = rowFromInt[uint8]()
	table[tensor.Int16] = rowFromInt[int16]()
	table[tensor.Uint16] = rowFromInt[uint16]()
	table[tensor.Int32] = rowFromInt[int32]()
	table[tensor.Uint32] = rowFromInt[uint32]()
	table[tensor.Int64] = rowFromInt[int64]()
	table[tensor.Uint64] = rowFromInt[uint64]()
	table[tensor.Float16] = rowFromHalf()
	table[tensor.Float32] = rowFromFloat[float32]()
	table[tensor.Float64] = rowFromFloat[float64]()
	table[tensor.Complex64] = rowFromComplex64()
	table[tensor.Complex128] = rowFromComplex128()

	// Same-type casts are plain copies (bool normalizes to 0/1).
	table[tensor.Int8][tensor.Int8] = identity[int8]()
	table[tensor.Uint8][tensor.Uint8] = identity[uint8]()
	table[tensor.Int16][tensor.Int16] = identity[int16]()
	table[tensor.Uint16][tensor.Uint16] = identity[uint16]()
	table[tensor.Int32][tensor.Int32] = identity[int32]()
	table[tensor.Uint32][tensor.Uint32] = identity[uint32]()
	table[tensor.Int64][tensor.Int64] = identity[int64]()
	table[tensor.Uint64][tensor.Uint64] = identity[uint64]()
	table[tensor.Float16][tensor.Float16] = identity[float16.Float16]()
	table[tensor.Float32][tensor.Float32] = identity[uint32]()
	table[tensor.Float64][tensor.Float64] = identity[uint64]()
	table[tensor.Complex64][tensor.Complex64] = identity[uint64]()
	table[tensor.Complex128][tensor.Complex128] = identity[[2]uint64]()
}

// Lookup returns the conversion for a (source, destination) pair.
func Lookup(src, dst tensor.DataType) (Func, error) {
	if !src.Valid() || !dst.Valid() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, src, dst)
	}
	fn := table[src][dst]
	if fn == nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, src, dst)
	}
	return fn, nil
}

// Supported reports whether a pair has a conversion.
func Supported(src, dst tensor.DataType) bool {
	_, err := Lookup(src, dst)
	return err == nil
}

// IsBitCopy reports whether the conversion preserves bit patterns, so that a
// contiguous run can be moved with a plain memory copy.
func IsBitCopy(src, dst tensor.DataType) bool {
	return src == dst && src.Valid() && src != tensor.Bool
}

// Rule names the conversion rule applied to a pair.
func Rule(src, dst tensor.DataType) string {
	switch {
	case !Supported(src, dst):
		return "unsupported"
	case src == dst:
		return "identity"
	case src.IsComplex() && !dst.IsComplex():
		return "real-part"
	case !src.IsComplex() && dst.IsComplex():
		return "zero-imag"
	case src.IsBool() || dst.IsBool():
		return "bool"
	default:
		return "numeric"
	}
}

// Pair is a (source, destination) data type pair.
type Pair struct {
	Src tensor.DataType
	Dst tensor.DataType
}

// Pairs lists every supported pair in table order.
func Pairs() []Pair {
	pairs := make([]Pair, 0, tensor.NumKinds*tensor.NumKinds)
	for _, s := range tensor.AllDataTypes {
		for _, d := range tensor.AllDataTypes {
			if Supported(s, d) {
				pairs = append(pairs, Pair{Src: s, Dst: d})
			}
		}
	}
	return pairs
}

// ============================================================================
// Row builders
// ============================================================================

type row = [tensor.NumKinds]Func

func rowFromBool() row {
	return row{
		tensor.Bool:       boolToBool,
		tensor.Int8:       boolToNum[int8](),
		tensor.Uint8:      boolToNum[uint8](),
		tensor.Int16:      boolToNum[int16](),
		tensor.Uint16:     boolToNum[uint16](),
		tensor.Int32:      boolToNum[int32](),
		tensor.Uint32:     boolToNum[uint32](),
		tensor.Int64:      boolToNum[int64](),
		tensor.Uint64:     boolToNum[uint64](),
		tensor.Float16:    boolToHalf,
		tensor.Float32:    boolToNum[float32](),
		tensor.Float64:    boolToNum[float64](),
		tensor.Complex64:  boolToComplex64,
		tensor.Complex128: boolToComplex128,
	}
}

func rowFromInt[S integer]() row {
	return row{
		tensor.Bool:       numToBool[S](),
		tensor.Int8:       numToNum[S, int8](),
		tensor.Uint8:      numToNum[S, uint8](),
		tensor.Int16:      numToNum[S, int16](),
		tensor.Uint16:     numToNum[S, uint16](),
		tensor.Int32:      numToNum[S, int32](),
		tensor.Uint32:     numToNum[S, uint32](),
		tensor.Int64:      numToNum[S, int64](),
		tensor.Uint64:     numToNum[S, uint64](),
		tensor.Float16:    numToHalf[S](),
		tensor.Float32:    numToNum[S, float32](),
		tensor.Float64:    numToNum[S, float64](),
		tensor.Complex64:  numToComplex64[S](),
		tensor.Complex128: numToComplex128[S](),
	}
}

func rowFromFloat[S float]() row {
	return row{
		tensor.Bool:       numToBool[S](),
		tensor.Int8:       floatToInt[S, int8](),
		tensor.Uint8:      floatToInt[S, uint8](),
		tensor.Int16:      floatToInt[S, int16](),
		tensor.Uint16:     floatToInt[S, uint16](),
		tensor.Int32:      floatToInt[S, int32](),
		tensor.Uint32:     floatToInt[S, uint32](),
		tensor.Int64:      floatToInt[S, int64](),
		tensor.Uint64:     floatToInt[S, uint64](),
		tensor.Float16:    numToHalf[S](),
		tensor.Float32:    numToNum[S, float32](),
		tensor.Float64:    numToNum[S, float64](),
		tensor.Complex64:  numToComplex64[S](),
		tensor.Complex128: numToComplex128[S](),
	}
}

func rowFromHalf() row {
	return row{
		tensor.Bool:       halfToBool,
		tensor.Int8:       halfToInt[int8](),
		tensor.Uint8:      halfToInt[uint8](),
		tensor.Int16:      halfToInt[int16](),
		tensor.Uint16:     halfToInt[uint16](),
		tensor.Int32:      halfToInt[int32](),
		tensor.Uint32:     halfToInt[uint32](),
		tensor.Int64:      halfToInt[int64](),
		tensor.Uint64:     halfToInt[uint64](),
		tensor.Float32:    halfToFloat[float32](),
		tensor.Float64:    halfToFloat[float64](),
		tensor.Complex64:  halfToComplex64,
		tensor.Complex128: halfToComplex128,
	}
}

func rowFromComplex64() row {
	return row{
		tensor.Bool:       complex64ToBool,
		tensor.Int8:       complex64ToInt[int8](),
		tensor.Uint8:      complex64ToInt[uint8](),
		tensor.Int16:      complex64ToInt[int16](),
		tensor.Uint16:     complex64ToInt[uint16](),
		tensor.Int32:      complex64ToInt[int32](),
		tensor.Uint32:     complex64ToInt[uint32](),
		tensor.Int64:      complex64ToInt[int64](),
		tensor.Uint64:     complex64ToInt[uint64](),
		tensor.Float16:    complex64ToHalf,
		tensor.Float32:    complex64ToFloat[float32](),
		tensor.Float64:    complex64ToFloat[float64](),
		tensor.Complex128: complex64ToComplex128,
	}
}

func rowFromComplex128() row {
	return row{
		tensor.Bool:      complex128ToBool,
		tensor.Int8:      complex128ToInt[int8](),
		tensor.Uint8:     complex128ToInt[uint8](),
		tensor.Int16:     complex128ToInt[int16](),
		tensor.Uint16:    complex128ToInt[uint16](),
		tensor.Int32:     complex128ToInt[int32](),
		tensor.Uint32:    complex128ToInt[uint32](),
		tensor.Int64:     complex128ToInt[int64](),
		tensor.Uint64:    complex128ToInt[uint64](),
		tensor.Float16:   complex128ToHalf,
		tensor.Float32:   complex128ToFloat[float32](),
		tensor.Float64:   complex128ToFloat[float64](),
		tensor.Complex64: complex128ToComplex64,
	}
}
