package cast

import (
	"math"
	"unsafe"

	"github.com/x448/float16"
)

type integer interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64
}

type float interface {
	~float32 | ~float64
}

type number interface {
	integer | float
}

// intBits truncates f toward zero and returns the two's complement bits, so
// that converting the result to any integer width wraps the way a native
// float-to-int cast followed by an integer narrowing does.
func intBits(f float64) uint64 {
	if f >= 1<<63 {
		return uint64(f)
	}
	return uint64(int64(f))
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// Same type
// ============================================================================

func identity[T any]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*T)(dst) = *(*T)(src)
	}
}

func boolToBool(dst, src unsafe.Pointer) {
	*(*uint8)(dst) = b2u(*(*uint8)(src) != 0)
}

// ============================================================================
// Real to real
// ============================================================================

func numToNum[S, D number]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*D)(dst) = D(*(*S)(src))
	}
}

func floatToInt[S float, D integer]() Func {
	return func(dst, src unsafe.Pointer) {
		//nolint:gosec // G115: wrap-around is the documented unsafe cast behavior
		*(*D)(dst) = D(intBits(float64(*(*S)(src))))
	}
}

func numToBool[S number]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*uint8)(dst) = b2u(*(*S)(src) != 0)
	}
}

func boolToNum[D number]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*D)(dst) = D(b2u(*(*uint8)(src) != 0))
	}
}

// ============================================================================
// Half precision
// ============================================================================

// toHalf rounds x to the nearest binary16 value, ties to even. The step
// through float32 rounds to odd so the second rounding sees an inexact value
// as inexact and never lands on a false tie.
func toHalf(x float64) float16.Float16 {
	f := float32(x)
	if float64(f) == x || math.IsNaN(x) || math.IsInf(float64(f), 0) {
		return float16.Fromfloat32(f)
	}
	bits := math.Float32bits(f)
	if math.Abs(float64(f)) > math.Abs(x) {
		bits-- // truncate toward zero
	}
	return float16.Fromfloat32(math.Float32frombits(bits | 1))
}

func numToHalf[S number]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*float16.Float16)(dst) = toHalf(float64(*(*S)(src)))
	}
}

func halfToFloat[D float]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*D)(dst) = D((*(*float16.Float16)(src)).Float32())
	}
}

func halfToInt[D integer]() Func {
	return func(dst, src unsafe.Pointer) {
		//nolint:gosec // G115: wrap-around is the documented unsafe cast behavior
		*(*D)(dst) = D(intBits(float64((*(*float16.Float16)(src)).Float32())))
	}
}

func halfToBool(dst, src unsafe.Pointer) {
	*(*uint8)(dst) = b2u((*(*float16.Float16)(src)).Float32() != 0)
}

func boolToHalf(dst, src unsafe.Pointer) {
	h := float16.Fromfloat32(0)
	if *(*uint8)(src) != 0 {
		h = float16.Fromfloat32(1)
	}
	*(*float16.Float16)(dst) = h
}

// ============================================================================
// Complex
// ============================================================================

func numToComplex64[S number]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*complex64)(dst) = complex(float32(*(*S)(src)), 0)
	}
}

func numToComplex128[S number]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*complex128)(dst) = complex(float64(*(*S)(src)), 0)
	}
}

func halfToComplex64(dst, src unsafe.Pointer) {
	*(*complex64)(dst) = complex((*(*float16.Float16)(src)).Float32(), 0)
}

func halfToComplex128(dst, src unsafe.Pointer) {
	*(*complex128)(dst) = complex(float64((*(*float16.Float16)(src)).Float32()), 0)
}

func boolToComplex64(dst, src unsafe.Pointer) {
	*(*complex64)(dst) = complex(float32(b2u(*(*uint8)(src) != 0)), 0)
}

func boolToComplex128(dst, src unsafe.Pointer) {
	*(*complex128)(dst) = complex(float64(b2u(*(*uint8)(src) != 0)), 0)
}

func complex64ToFloat[D float]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*D)(dst) = D(real(*(*complex64)(src)))
	}
}

func complex128ToFloat[D float]() Func {
	return func(dst, src unsafe.Pointer) {
		*(*D)(dst) = D(real(*(*complex128)(src)))
	}
}

func complex64ToInt[D integer]() Func {
	return func(dst, src unsafe.Pointer) {
		//nolint:gosec // G115: wrap-around is the documented unsafe cast behavior
		*(*D)(dst) = D(intBits(float64(real(*(*complex64)(src)))))
	}
}

func complex128ToInt[D integer]() Func {
	return func(dst, src unsafe.Pointer) {
		//nolint:gosec // G115: wrap-around is the documented unsafe cast behavior
		*(*D)(dst) = D(intBits(real(*(*complex128)(src))))
	}
}

func complex64ToHalf(dst, src unsafe.Pointer) {
	*(*float16.Float16)(dst) = float16.Fromfloat32(real(*(*complex64)(src)))
}

func complex128ToHalf(dst, src unsafe.Pointer) {
	*(*float16.Float16)(dst) = toHalf(real(*(*complex128)(src)))
}

func complex64ToBool(dst, src unsafe.Pointer) {
	*(*uint8)(dst) = b2u(real(*(*complex64)(src)) != 0)
}

func complex128ToBool(dst, src unsafe.Pointer) {
	*(*uint8)(dst) = b2u(real(*(*complex128)(src)) != 0)
}

func complex64ToComplex128(dst, src unsafe.Pointer) {
	*(*complex128)(dst) = complex128(*(*complex64)(src))
}

func complex128ToComplex64(dst, src unsafe.Pointer) {
	*(*complex64)(dst) = complex64(*(*complex128)(src))
}
