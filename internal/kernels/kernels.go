// Package kernels runs the element loops of a copy plan.
//
// Every kernel covers a half-open range [lo, hi) of the plan's row-major
// flat index space, so a caller can split one copy across workers. Pointers
// are only formed for elements inside the range; offsets are tracked as
// integers in between.
package kernels

import (
	"fmt"
	"unsafe"

	"github.com/born-ml/castcopy/internal/cast"
	"github.com/born-ml/castcopy/internal/layout"
	"github.com/born-ml/castcopy/internal/parallel"
)

// Args binds a plan to concrete memory and a conversion.
type Args struct {
	Plan layout.Plan

	Src     unsafe.Pointer // base of the source block
	Dst     unsafe.Pointer // base of the destination block
	SrcItem int            // source element size in bytes
	DstItem int            // destination element size in bytes

	Cast cast.Func
	// BitCopy allows contiguous runs to be moved with a memory copy.
	BitCopy bool
}

// Validate reports whether the arguments can be executed.
func (a Args) Validate() error {
	if a.Plan.Strategy == layout.Empty {
		return nil
	}
	switch {
	case a.Cast == nil:
		return fmt.Errorf("kernels: nil cast")
	case a.Src == nil || a.Dst == nil:
		return fmt.Errorf("kernels: nil base pointer")
	case a.SrcItem <= 0 || a.DstItem <= 0:
		return fmt.Errorf("kernels: item sizes %d and %d", a.SrcItem, a.DstItem)
	case a.BitCopy && a.SrcItem != a.DstItem:
		return fmt.Errorf("kernels: bit copy between %d and %d byte items", a.SrcItem, a.DstItem)
	case a.Plan.Rank() > layout.MaxRank:
		return fmt.Errorf("kernels: rank %d exceeds %d", a.Plan.Rank(), layout.MaxRank)
	}
	return nil
}

// Run executes the plan over flat indices [lo, hi).
func Run(a Args, lo, hi int) {
	hi = min(hi, a.Plan.NumElements)
	if lo >= hi {
		return
	}
	switch a.Plan.Strategy {
	case layout.Empty:
	case layout.Contiguous:
		contiguous(a, lo, hi)
	case layout.Strided1D:
		strided1D(a, lo, hi)
	case layout.Strided2D:
		strided2D(a, lo, hi)
	default:
		stridedND(a, lo, hi)
	}
}

// Execute runs the whole plan, split across goroutines per cfg.
func Execute(a Args, cfg parallel.Config) {
	parallel.ForRange(a.Plan.NumElements, cfg, func(lo, hi int) {
		Run(a, lo, hi)
	})
}

func contiguous(a Args, lo, hi int) {
	if a.BitCopy {
		n := (hi - lo) * a.SrcItem
		src := unsafe.Slice((*byte)(unsafe.Add(a.Src, (a.Plan.SrcOffset+lo)*a.SrcItem)), n)
		dst := unsafe.Slice((*byte)(unsafe.Add(a.Dst, (a.Plan.DstOffset+lo)*a.DstItem)), n)
		copy(dst, src)
		return
	}
	so := (a.Plan.SrcOffset + lo) * a.SrcItem
	do := (a.Plan.DstOffset + lo) * a.DstItem
	for range hi - lo {
		a.Cast(unsafe.Add(a.Dst, do), unsafe.Add(a.Src, so))
		so += a.SrcItem
		do += a.DstItem
	}
}

func strided1D(a Args, lo, hi int) {
	ss := a.Plan.SrcStrides[0] * a.SrcItem
	ds := a.Plan.DstStrides[0] * a.DstItem
	so := a.Plan.SrcOffset*a.SrcItem + lo*ss
	do := a.Plan.DstOffset*a.DstItem + lo*ds
	for range hi - lo {
		a.Cast(unsafe.Add(a.Dst, do), unsafe.Add(a.Src, so))
		so += ss
		do += ds
	}
}

func strided2D(a Args, lo, hi int) {
	n1 := a.Plan.Shape[1]
	ss0, ss1 := a.Plan.SrcStrides[0]*a.SrcItem, a.Plan.SrcStrides[1]*a.SrcItem
	ds0, ds1 := a.Plan.DstStrides[0]*a.DstItem, a.Plan.DstStrides[1]*a.DstItem
	sBase := a.Plan.SrcOffset * a.SrcItem
	dBase := a.Plan.DstOffset * a.DstItem

	for k := lo; k < hi; {
		i0, i1 := k/n1, k%n1
		run := min(n1-i1, hi-k)
		so := sBase + i0*ss0 + i1*ss1
		do := dBase + i0*ds0 + i1*ds1
		for range run {
			a.Cast(unsafe.Add(a.Dst, do), unsafe.Add(a.Src, so))
			so += ss1
			do += ds1
		}
		k += run
	}
}

func stridedND(a Args, lo, hi int) {
	shape := a.Plan.Shape
	rank := len(shape)
	inner := rank - 1

	var idx, ss, ds [layout.MaxRank]int
	for ax := range rank {
		ss[ax] = a.Plan.SrcStrides[ax] * a.SrcItem
		ds[ax] = a.Plan.DstStrides[ax] * a.DstItem
	}

	rem := lo
	for ax := inner; ax >= 0; ax-- {
		idx[ax] = rem % shape[ax]
		rem /= shape[ax]
	}
	so := a.Plan.SrcOffset * a.SrcItem
	do := a.Plan.DstOffset * a.DstItem
	for ax := range rank {
		so += idx[ax] * ss[ax]
		do += idx[ax] * ds[ax]
	}

	for k := lo; k < hi; {
		run := min(shape[inner]-idx[inner], hi-k)
		for range run {
			a.Cast(unsafe.Add(a.Dst, do), unsafe.Add(a.Src, so))
			so += ss[inner]
			do += ds[inner]
		}
		k += run
		idx[inner] += run
		if idx[inner] < shape[inner] {
			continue
		}

		// Carry into the outer axes.
		so -= idx[inner] * ss[inner]
		do -= idx[inner] * ds[inner]
		idx[inner] = 0
		for ax := inner - 1; ax >= 0; ax-- {
			idx[ax]++
			so += ss[ax]
			do += ds[ax]
			if idx[ax] < shape[ax] {
				break
			}
			so -= idx[ax] * ss[ax]
			do -= idx[ax] * ds[ax]
			idx[ax] = 0
		}
	}
}
