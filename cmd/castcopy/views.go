package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/castcopy/internal/tensor"
)

// viewSpec describes the source and destination a command builds.
type viewSpec struct {
	shape    tensor.Shape
	srcType  tensor.DataType
	dstType  tensor.DataType
	srcSteps []int
	dstOrder string
	alias    bool
	kind     tensor.USMKind
	device   tensor.Device
}

func parseInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out[i] = n
	}
	return out, nil
}

func parseShape(s string) (tensor.Shape, error) {
	dims, err := parseInts(s)
	if err != nil {
		return nil, fmt.Errorf("shape: %w", err)
	}
	shape := tensor.Shape(dims)
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}

// build allocates the source and destination views. The source is a stepped
// window over a row-major base array; an aliased destination reuses the
// source block reversed along axis 0.
func (s viewSpec) build() (src, dst tensor.View, err error) {
	steps := s.srcSteps
	if steps == nil {
		steps = make([]int, len(s.shape))
		for i := range steps {
			steps[i] = 1
		}
	}
	if len(steps) != len(s.shape) {
		return src, dst, fmt.Errorf("got %d steps for rank %d", len(steps), len(s.shape))
	}

	base := make(tensor.Shape, len(s.shape))
	for i, n := range s.shape {
		if steps[i] == 0 {
			return src, dst, fmt.Errorf("step on axis %d is zero", i)
		}
		base[i] = n * abs(steps[i])
	}
	full, err := tensor.Empty(base, s.srcType, s.kind, s.device)
	if err != nil {
		return src, dst, err
	}
	fill(full)
	if src, err = full.Strided(steps...); err != nil {
		return src, dst, err
	}

	if s.alias {
		if s.srcType.Size() != s.dstType.Size() {
			return src, dst, fmt.Errorf("alias needs equal item sizes, %s and %s differ", s.srcType, s.dstType)
		}
		same, err := tensor.NewView(full.Block(), s.dstType, full.Shape(), full.Strides(), full.Offset())
		if err != nil {
			return src, dst, err
		}
		if same, err = same.Strided(steps...); err != nil {
			return src, dst, err
		}
		if len(s.shape) > 0 {
			same, err = same.Flip(0)
		}
		return src, same, err
	}

	switch strings.ToLower(s.dstOrder) {
	case "", "c":
		dst, err = tensor.Empty(s.shape, s.dstType, s.kind, s.device)
	case "f":
		dst, err = tensor.EmptyF(s.shape, s.dstType, s.kind, s.device)
	default:
		err = fmt.Errorf("unknown order %q (want c or f)", s.dstOrder)
	}
	return src, dst, err
}

// fill writes a repeating small-integer pattern so every kind can hold it.
func fill(v tensor.View) {
	i := 0
	v.ForEachOffset(func(off int) {
		v.StoreFloat64(off, float64(i%100))
		i++
	})
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
