package layout

import (
	"github.com/born-ml/castcopy/internal/tensor"
)

// Overlaps reports whether two views can touch a common byte of the same block.
// The test is on the byte intervals spanned by each view, so interleaved views
// that never share an element still count as overlapping.
func Overlaps(a, b tensor.View) bool {
	if a.Block() == nil || a.Block() != b.Block() {
		return false
	}
	if a.NumElements() == 0 || b.NumElements() == 0 {
		return false
	}
	a0, a1 := a.ByteRange()
	b0, b1 := b.ByteRange()
	return a0 < b1 && b0 < a1
}

// SameMapping reports whether both views address exactly the same elements in
// the same logical order with equal element sizes. An in-place copy between
// such views reads every element before writing it and never touches another
// element, so it needs no staging.
func SameMapping(a, b tensor.View) bool {
	if a.Block() != b.Block() || a.ItemSize() != b.ItemSize() || a.Offset() != b.Offset() {
		return false
	}
	if !a.Shape().Equal(b.Shape()) {
		return false
	}
	as, bs := a.Strides(), b.Strides()
	for i, n := range a.Shape() {
		if n > 1 && as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Guard is the overlap decision for one copy.
type Guard struct {
	Overlap bool   `json:"overlap"`
	Staged  bool   `json:"staged"`
	Reason  string `json:"reason,omitempty"`
}

// Check decides whether a copy from src into dst must be staged through scratch
// memory. Any overlap other than an identical mapping is staged, whatever the
// stride signs, so the result always equals a copy through a temporary.
func Check(src, dst tensor.View) Guard {
	if !Overlaps(src, dst) {
		return Guard{}
	}
	if SameMapping(src, dst) {
		return Guard{Overlap: true, Reason: "identical mapping"}
	}
	reason := "overlapping views"
	if directionsDiffer(src.Strides(), dst.Strides(), src.Shape()) {
		reason = "overlapping views with opposite traversal"
	}
	return Guard{Overlap: true, Staged: true, Reason: reason}
}

func directionsDiffer(src, dst []int, shape tensor.Shape) bool {
	for i, n := range shape {
		if n > 1 && (src[i] < 0) != (dst[i] < 0) {
			return true
		}
	}
	return false
}
