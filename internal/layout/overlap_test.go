package layout

import (
	"testing"

	"github.com/born-ml/castcopy/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDisjointBlocks(t *testing.T) {
	a := tensor.MustEmpty(tensor.Shape{16}, tensor.Float32)
	b := tensor.MustEmpty(tensor.Shape{16}, tensor.Float32)

	g := Check(a, b)
	assert.False(t, g.Overlap)
	assert.False(t, g.Staged)
}

func TestCheckDisjointHalvesOfOneBlock(t *testing.T) {
	buf := tensor.MustEmpty(tensor.Shape{16}, tensor.Int32)
	lo, err := buf.Slice(0, 0, 8, 1)
	require.NoError(t, err)
	hi, err := buf.Slice(0, 8, 16, 1)
	require.NoError(t, err)

	assert.False(t, Overlaps(lo, hi))
	assert.False(t, Check(hi, lo).Staged)
}

func TestCheckIdenticalMapping(t *testing.T) {
	buf := tensor.MustEmpty(tensor.Shape{4, 4}, tensor.Float32)
	alias, err := tensor.NewView(buf.Block(), tensor.Int32, tensor.Shape{4, 4}, []int{4, 1}, 0)
	require.NoError(t, err)

	g := Check(buf, alias)
	assert.True(t, g.Overlap)
	assert.False(t, g.Staged, "same addresses in the same order are safe in place")
}

func TestCheckReversedAlias(t *testing.T) {
	buf := tensor.MustEmpty(tensor.Shape{32}, tensor.Int16)
	rev, err := buf.Flip(0)
	require.NoError(t, err)

	g := Check(buf, rev)
	assert.True(t, g.Overlap)
	assert.True(t, g.Staged)
	assert.Equal(t, "overlapping views with opposite traversal", g.Reason)
}

func TestCheckShiftedAlias(t *testing.T) {
	buf := tensor.MustEmpty(tensor.Shape{32}, tensor.Int16)
	head, err := buf.Slice(0, 0, 31, 1)
	require.NoError(t, err)
	tail, err := buf.Slice(0, 1, 32, 1)
	require.NoError(t, err)

	g := Check(head, tail)
	assert.True(t, g.Staged)
	assert.Equal(t, "overlapping views", g.Reason)
}

func TestCheckDifferentItemSizes(t *testing.T) {
	buf := tensor.MustEmpty(tensor.Shape{16}, tensor.Float64)
	narrow, err := tensor.NewView(buf.Block(), tensor.Float32, tensor.Shape{16}, []int{1}, 0)
	require.NoError(t, err)

	assert.True(t, Check(buf, narrow).Staged)
}

func TestOverlapsIgnoresEmptyViews(t *testing.T) {
	buf := tensor.MustEmpty(tensor.Shape{8}, tensor.Uint8)
	empty, err := buf.Slice(0, 3, 3, 1)
	require.NoError(t, err)

	assert.False(t, Overlaps(buf, empty))
}
