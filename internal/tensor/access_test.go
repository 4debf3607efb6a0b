package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFillAndToSlice(t *testing.T) {
	v, err := FromSlice([]int16{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)

	tr, err := v.Transpose()
	require.NoError(t, err)
	got, err := ToSlice[int16](tr)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 4, 2, 5, 3, 6}, got)

	_, err = ToSlice[int32](v)
	assert.Error(t, err, "type must match the view")
	assert.Error(t, Fill(v, []int16{1}))
}

func TestAtAndSetAt(t *testing.T) {
	v := MustEmpty(Shape{2, 2}, Float16)
	require.NoError(t, SetAt(v, float16.Fromfloat32(1.5), 1, 0))
	got, err := At[float16.Float16](v, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), got.Float32())

	_, err = At[float16.Float16](v, 2, 0)
	assert.Error(t, err)

	require.NoError(t, v.Block().Close())
	_, err = At[float16.Float16](v, 0, 0)
	assert.ErrorIs(t, err, ErrBlockClosed)
}

func TestFloat64Access(t *testing.T) {
	values := []float64{0, 1, 2.75, -3.5}
	for _, dt := range AllDataTypes {
		v := MustEmpty(Shape{4}, dt)
		require.NoError(t, v.SetFloat64s(values))
		got := v.Float64s()

		switch {
		case dt == Bool:
			assert.Equal(t, []float64{0, 1, 1, 1}, got)
		case dt.IsUnsigned():
			assert.Equal(t, []float64{0, 1, 2}, got[:3], "%s", dt)
		case dt.IsInteger():
			assert.Equal(t, []float64{0, 1, 2, -3}, got, "%s", dt)
		default:
			assert.Equal(t, values, got, "%s", dt)
		}
	}
	assert.Error(t, MustEmpty(Shape{2}, Int8).SetFloat64s([]float64{1}))
}

func TestForEachOffset(t *testing.T) {
	v := MustEmpty(Shape{2, 3}, Uint8)
	sub, err := v.Strided(-1, -2)
	require.NoError(t, err)

	var offs []int
	sub.ForEachOffset(func(off int) { offs = append(offs, off) })
	assert.Equal(t, []int{5, 3, 2, 0}, offs)

	empty := MustEmpty(Shape{0}, Uint8)
	empty.ForEachOffset(func(int) { t.Fatal("no elements") })
}
