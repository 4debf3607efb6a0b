// Package layout classifies a strided copy into an execution strategy.
//
// A copy is described by a common shape and two stride vectors. Build
// simplifies that description without changing which source element lands in
// which destination element: unit axes are dropped, axes reversed on both sides
// are flipped, axes are ordered by destination stride, and adjacent axes that
// are jointly contiguous are merged. The remaining rank picks the kernel.
package layout

import (
	"fmt"
	"sort"
)

// MaxRank is the highest rank a plan can describe.
const MaxRank = 32

// Strategy identifies the kernel family used for a copy.
type Strategy int

// Strategies, from most to least specialized.
const (
	Empty Strategy = iota
	Contiguous
	Strided1D
	Strided2D
	StridedND
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Empty:
		return "empty"
	case Contiguous:
		return "contiguous"
	case Strided1D:
		return "strided-1d"
	case Strided2D:
		return "strided-2d"
	case StridedND:
		return "strided-nd"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Plan is a simplified copy description. Shape and strides are ordered
// outermost first; offsets are element offsets of the first visited element.
type Plan struct {
	Strategy    Strategy `json:"strategy"`
	Shape       []int    `json:"shape"`
	SrcStrides  []int    `json:"src_strides"`
	DstStrides  []int    `json:"dst_strides"`
	SrcOffset   int      `json:"src_offset"`
	DstOffset   int      `json:"dst_offset"`
	NumElements int      `json:"num_elements"`
}

// Rank returns the simplified rank.
func (p Plan) Rank() int { return len(p.Shape) }

type axis struct {
	n   int
	src int
	dst int
}

// Build simplifies a copy of the given shape and picks its strategy.
// The stride vectors must have the same length as shape.
func Build(shape, srcStrides, dstStrides []int, srcOffset, dstOffset int) (Plan, error) {
	if len(srcStrides) != len(shape) || len(dstStrides) != len(shape) {
		return Plan{}, fmt.Errorf("layout: rank mismatch: shape %v, strides %v and %v", shape, srcStrides, dstStrides)
	}
	if len(shape) > MaxRank {
		return Plan{}, fmt.Errorf("layout: rank %d exceeds %d", len(shape), MaxRank)
	}

	n := 1
	axes := make([]axis, 0, len(shape))
	for i, ext := range shape {
		if ext < 0 {
			return Plan{}, fmt.Errorf("layout: negative extent %d on axis %d", ext, i)
		}
		n *= ext
		if ext == 1 {
			continue
		}
		axes = append(axes, axis{n: ext, src: srcStrides[i], dst: dstStrides[i]})
	}
	if n == 0 {
		return Plan{Strategy: Empty, SrcOffset: srcOffset, DstOffset: dstOffset}, nil
	}

	// Reverse axes that run backwards in both operands; the element pairing
	// is unchanged, only the visiting order.
	for i := range axes {
		a := &axes[i]
		if a.src <= 0 && a.dst <= 0 && (a.src < 0 || a.dst < 0) {
			srcOffset += (a.n - 1) * a.src
			dstOffset += (a.n - 1) * a.dst
			a.src, a.dst = -a.src, -a.dst
		}
	}

	sort.SliceStable(axes, func(i, j int) bool {
		di, dj := abs(axes[i].dst), abs(axes[j].dst)
		if di != dj {
			return di > dj
		}
		return abs(axes[i].src) > abs(axes[j].src)
	})

	merged := make([]axis, 0, len(axes))
	for _, a := range axes {
		if k := len(merged) - 1; k >= 0 {
			outer := merged[k]
			if outer.src == a.src*a.n && outer.dst == a.dst*a.n {
				merged[k] = axis{n: outer.n * a.n, src: a.src, dst: a.dst}
				continue
			}
		}
		merged = append(merged, a)
	}
	if len(merged) == 0 {
		merged = append(merged, axis{n: 1, src: 1, dst: 1})
	}

	p := Plan{
		Shape:       make([]int, len(merged)),
		SrcStrides:  make([]int, len(merged)),
		DstStrides:  make([]int, len(merged)),
		SrcOffset:   srcOffset,
		DstOffset:   dstOffset,
		NumElements: n,
	}
	for i, a := range merged {
		p.Shape[i], p.SrcStrides[i], p.DstStrides[i] = a.n, a.src, a.dst
	}
	p.Strategy = classify(p)
	return p, nil
}

func classify(p Plan) Strategy {
	switch {
	case p.NumElements == 0:
		return Empty
	case p.Rank() == 1 && p.SrcStrides[0] == 1 && p.DstStrides[0] == 1:
		return Contiguous
	case p.Rank() == 1:
		return Strided1D
	case p.Rank() == 2:
		return Strided2D
	default:
		return StridedND
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
