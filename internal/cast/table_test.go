package cast

import (
	"math"
	"math/rand/v2"
	"testing"
	"unsafe"

	"github.com/born-ml/castcopy/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func convertOne[S, D tensor.DType](t *testing.T, src S) D {
	t.Helper()
	fn, err := Lookup(tensor.InferDataType[S](), tensor.InferDataType[D]())
	require.NoError(t, err)
	var dst D
	fn(unsafe.Pointer(&dst), unsafe.Pointer(&src))
	return dst
}

func TestAllPairsSupported(t *testing.T) {
	assert.Len(t, Pairs(), tensor.NumKinds*tensor.NumKinds)
	for _, s := range tensor.AllDataTypes {
		for _, d := range tensor.AllDataTypes {
			assert.True(t, Supported(s, d), "%s -> %s", s, d)
		}
	}
}

func TestLookupRejectsUnknownKinds(t *testing.T) {
	_, err := Lookup(tensor.DataType(99), tensor.Float32)
	require.ErrorIs(t, err, ErrUnsupportedPair)

	_, err = Lookup(tensor.Int8, tensor.DataType(-1))
	require.ErrorIs(t, err, ErrUnsupportedPair)
	assert.Equal(t, "unsupported", Rule(tensor.Int8, tensor.DataType(-1)))
}

func TestSameTypeCastIsBitExact(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, dt := range tensor.AllDataTypes {
		t.Run(dt.String(), func(t *testing.T) {
			fn, err := Lookup(dt, dt)
			require.NoError(t, err)

			for range 64 {
				var src, dst [2]uint64
				sb := unsafe.Slice((*byte)(unsafe.Pointer(&src)), 16)
				db := unsafe.Slice((*byte)(unsafe.Pointer(&dst)), 16)
				for i := range sb[:dt.Size()] {
					sb[i] = byte(rng.UintN(256))
				}
				if dt == tensor.Bool {
					sb[0] &= 1
				}
				fn(unsafe.Pointer(&dst), unsafe.Pointer(&src))
				assert.Equal(t, sb[:dt.Size()], db[:dt.Size()])
			}
		})
	}
}

func TestIntegerConversionsWrap(t *testing.T) {
	assert.Equal(t, uint8(255), convertOne[int32, uint8](t, -1))
	assert.Equal(t, int8(44), convertOne[int16, int8](t, 300))
	assert.Equal(t, uint16(0xFFFE), convertOne[int64, uint16](t, -2))
	assert.Equal(t, int64(-1), convertOne[uint64, int64](t, math.MaxUint64))
	assert.Equal(t, uint32(7), convertOne[int8, uint32](t, 7))
}

func TestFloatToIntegerTruncates(t *testing.T) {
	assert.Equal(t, int32(-1), convertOne[float64, int32](t, -1.7))
	assert.Equal(t, uint16(3), convertOne[float64, uint16](t, 3.9))
	assert.Equal(t, uint8(255), convertOne[float64, uint8](t, -1.3))
	assert.Equal(t, int8(-2), convertOne[float16.Float16, int8](t, float16.Fromfloat32(-2)))
	assert.Equal(t, uint64(1<<63), convertOne[float64, uint64](t, 1<<63))
	assert.Equal(t, int16(12), convertOne[float32, int16](t, 12.99))
}

func TestFloatConversionsRound(t *testing.T) {
	assert.Equal(t, float32(16777216), convertOne[int64, float32](t, 16777217))
	assert.Equal(t, float16.Fromfloat32(1.5), convertOne[float32, float16.Float16](t, 1.5))
	assert.Equal(t, float64(0.25), convertOne[float16.Float16, float64](t, float16.Fromfloat32(0.25)))
	assert.True(t, math.IsInf(float64(convertOne[float64, float32](t, 1e300)), 1))
	assert.True(t, math.IsNaN(float64(convertOne[float64, float32](t, math.NaN()))))
}

func TestHalfRoundsOnce(t *testing.T) {
	h := func(bits uint16) float16.Float16 { return float16.Frombits(bits) }
	tests := []struct {
		name string
		in   float64
		want float16.Float16
	}{
		{"just above tie rounds up", 1 + 0x1p-11 + 0x1p-40, h(0x3C01)},
		{"negative just above tie", -(1 + 0x1p-11 + 0x1p-40), h(0xBC01)},
		{"exact tie rounds to even", 1 + 0x1p-11, h(0x3C00)},
		{"odd tie rounds up to even", 1 + 3*0x1p-11, h(0x3C02)},
		{"just below tie rounds down", 1 + 0x1p-11 - 0x1p-40, h(0x3C00)},
		{"max half", 65504, h(0x7BFF)},
		{"overflow", 1e6, h(0x7C00)},
		{"smallest subnormal", 0x1p-24, h(0x0001)},
		{"above half subnormal", 0x1p-25 + 0x1p-60, h(0x0001)},
		{"tiny underflows", 0x1p-60, h(0x0000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertOne[float64, float16.Float16](t, tt.in), "%x", tt.in)
			assert.Equal(t, tt.want, convertOne[complex128, float16.Float16](t, complex(tt.in, 7)), "%x", tt.in)
		})
	}

	assert.True(t, convertOne[float64, float16.Float16](t, math.NaN()).IsNaN())
	assert.Equal(t, h(0xFC00), convertOne[float64, float16.Float16](t, math.Inf(-1)))
}

func TestComplexConversions(t *testing.T) {
	assert.Equal(t, 2.5, convertOne[complex128, float64](t, complex(2.5, 3)))
	assert.Equal(t, int32(-4), convertOne[complex64, int32](t, complex(-4.5, 9)))
	assert.Equal(t, complex64(complex(7, 0)), convertOne[uint8, complex64](t, 7))
	assert.Equal(t, complex(1.0, 0), convertOne[bool, complex128](t, true))
	assert.Equal(t, complex64(complex(1.5, -2)), convertOne[complex128, complex64](t, complex(1.5, -2)))
	assert.Equal(t, float16.Fromfloat32(3), convertOne[complex128, float16.Float16](t, complex(3, 1)))
}

func TestBoolConversions(t *testing.T) {
	assert.False(t, convertOne[complex64, bool](t, complex(0, 1)), "complex to bool reads the real part")
	assert.True(t, convertOne[float64, bool](t, math.NaN()))
	assert.False(t, convertOne[float16.Float16, bool](t, float16.Fromfloat32(0)))
	assert.True(t, convertOne[int8, bool](t, -3))
	assert.Equal(t, float32(1), convertOne[bool, float32](t, true))
	assert.Equal(t, float16.Fromfloat32(1), convertOne[bool, float16.Float16](t, true))

	// Any non-zero byte reads as true and is written back as exactly 1.
	fn, err := Lookup(tensor.Bool, tensor.Int32)
	require.NoError(t, err)
	src := uint8(2)
	var dst int32
	fn(unsafe.Pointer(&dst), unsafe.Pointer(&src))
	assert.Equal(t, int32(1), dst)

	fn, err = Lookup(tensor.Bool, tensor.Bool)
	require.NoError(t, err)
	var out uint8
	fn(unsafe.Pointer(&out), unsafe.Pointer(&src))
	assert.Equal(t, uint8(1), out)
}

func TestRule(t *testing.T) {
	tests := []struct {
		src, dst tensor.DataType
		want     string
	}{
		{tensor.Float32, tensor.Float32, "identity"},
		{tensor.Complex64, tensor.Float64, "real-part"},
		{tensor.Int16, tensor.Complex128, "zero-imag"},
		{tensor.Bool, tensor.Uint8, "bool"},
		{tensor.Float16, tensor.Int64, "numeric"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rule(tt.src, tt.dst), "%s -> %s", tt.src, tt.dst)
	}
}

func TestIsBitCopy(t *testing.T) {
	assert.True(t, IsBitCopy(tensor.Float64, tensor.Float64))
	assert.False(t, IsBitCopy(tensor.Bool, tensor.Bool))
	assert.False(t, IsBitCopy(tensor.Float32, tensor.Int32))
}
