package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViewBounds(t *testing.T) {
	b := MustAllocate(10*4, Host, CPU)

	v, err := NewView(b, Float32, Shape{2, 5}, []int{5, 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, v.NumElements())

	_, err = NewView(b, Float32, Shape{2, 5}, []int{5, 1}, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = NewView(b, Float32, Shape{5}, []int{-1}, 3)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	rev, err := NewView(b, Float32, Shape{5}, []int{-2}, 9)
	require.NoError(t, err)
	lo, hi := rev.Extent()
	assert.Equal(t, 1, lo)
	assert.Equal(t, 9, hi)

	_, err = NewView(b, Float64, Shape{6}, []int{1}, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds, "capacity is measured in elements of the view's type")

	_, err = NewView(nil, Float32, Shape{1}, []int{1}, 0)
	assert.Error(t, err)
	_, err = NewView(b, Float32, Shape{2}, []int{1, 1}, 0)
	assert.Error(t, err)

	empty, err := NewView(b, Float32, Shape{0, 5}, []int{5, 1}, 1000)
	require.NoError(t, err, "empty views reach no memory")
	assert.Zero(t, empty.NumElements())
}

func TestByteRange(t *testing.T) {
	v := MustEmpty(Shape{4, 6}, Int16)
	col, err := v.Slice(1, 2, 3, 1)
	require.NoError(t, err)
	start, end := col.ByteRange()
	assert.Equal(t, 2*2, start)
	assert.Equal(t, (3*6+2+1)*2, end)
}

func TestContiguity(t *testing.T) {
	c := MustEmpty(Shape{3, 4}, Float32)
	f, err := EmptyF(Shape{3, 4}, Float32, Host, CPU)
	require.NoError(t, err)

	assert.True(t, c.IsCContiguous())
	assert.False(t, c.IsFContiguous())
	assert.True(t, f.IsFContiguous())
	assert.False(t, f.IsCContiguous())

	tr, err := c.Transpose()
	require.NoError(t, err)
	assert.True(t, tr.IsFContiguous())

	row, err := c.Slice(0, 1, 2, 1)
	require.NoError(t, err)
	assert.True(t, row.IsCContiguous())
	assert.True(t, row.IsFContiguous(), "unit axes are ignored")

	skip, err := c.Strided(1, 2)
	require.NoError(t, err)
	assert.False(t, skip.IsCContiguous())
}

func TestSlice(t *testing.T) {
	v := MustEmpty(Shape{10}, Int32)
	tests := []struct {
		start, stop, step int
		n, stride, offset int
	}{
		{None, None, 1, 10, 1, 0},
		{None, None, -1, 10, -1, 9},
		{None, None, 3, 4, 3, 0},
		{None, None, -3, 4, -3, 9},
		{2, 8, 2, 3, 2, 2},
		{-3, None, 1, 3, 1, 7},
		{8, 2, -2, 3, -2, 8},
		{5, 5, 1, 0, 1, 0},
		{20, None, -1, 10, -1, 9},
	}
	for _, tt := range tests {
		s, err := v.Slice(0, tt.start, tt.stop, tt.step)
		require.NoError(t, err)
		assert.Equal(t, Shape{tt.n}, s.Shape(), "%d:%d:%d", tt.start, tt.stop, tt.step)
		assert.Equal(t, []int{tt.stride}, s.Strides(), "%d:%d:%d", tt.start, tt.stop, tt.step)
		assert.Equal(t, tt.offset, s.Offset(), "%d:%d:%d", tt.start, tt.stop, tt.step)
	}

	_, err := v.Slice(0, 0, 1, 0)
	assert.Error(t, err)
	_, err = v.Slice(1, 0, 1, 1)
	assert.Error(t, err)
}

func TestTransposeAndBroadcast(t *testing.T) {
	v := MustEmpty(Shape{2, 3, 4}, Uint8)
	tr, err := v.Transpose(2, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, Shape{4, 2, 3}, tr.Shape())
	assert.Equal(t, []int{1, 12, 4}, tr.Strides())

	_, err = v.Transpose(0, 0, 1)
	assert.Error(t, err)

	row := MustEmpty(Shape{3, 1}, Uint8)
	b, err := row.BroadcastTo(Shape{2, 3, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, b.Strides())

	_, err = row.BroadcastTo(Shape{4, 5})
	assert.Error(t, err)
}

func TestReshape(t *testing.T) {
	v := MustEmpty(Shape{2, 6}, Float64)
	r, err := v.Reshape(Shape{3, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2, 1}, r.Strides())

	_, err = v.Reshape(Shape{5})
	assert.Error(t, err)

	flipped, err := v.Flip(1)
	require.NoError(t, err)
	_, err = flipped.Reshape(Shape{12})
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	v := MustEmpty(Shape{3, 4}, Int64)
	rev, err := v.Strided(-1, 2)
	require.NoError(t, err)

	off, err := rev.Index(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2*4+2, off)

	_, err = rev.Index(3, 0)
	assert.Error(t, err)
	_, err = rev.Index(0)
	assert.Error(t, err)
}
