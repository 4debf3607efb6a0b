// Package scratch pools the temporary blocks used to stage overlapping copies.
package scratch

import (
	"errors"
	"math/bits"
	"sync"

	"github.com/born-ml/castcopy/internal/tensor"
)

// SizeClass groups blocks by capacity for reuse.
type SizeClass int

const (
	// Small blocks hold less than 4KB.
	Small SizeClass = iota
	// Medium blocks hold 4KB to 1MB.
	Medium
	// Large blocks hold more than 1MB.
	Large
)

const (
	smallThreshold  = 4 * 1024
	mediumThreshold = 1024 * 1024

	// DefaultMaxPooled is the default number of idle blocks kept per class.
	DefaultMaxPooled = 16
)

// String returns the class name.
func (c SizeClass) String() string {
	switch c {
	case Small:
		return "small"
	case Medium:
		return "medium"
	default:
		return "large"
	}
}

// Classify returns the size class of an n-byte request.
func Classify(nbytes int) SizeClass {
	switch {
	case nbytes < smallThreshold:
		return Small
	case nbytes < mediumThreshold:
		return Medium
	default:
		return Large
	}
}

type key struct {
	kind   tensor.USMKind
	device tensor.Device
	class  SizeClass
}

// Stats are cumulative pool counters.
type Stats struct {
	Allocated uint64 `json:"allocated"`
	Released  uint64 `json:"released"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Pooled    int    `json:"pooled"`
}

// Pool reuses blocks by memory kind, device and size class.
// It is safe for concurrent use.
type Pool struct {
	maxPooled int

	mu    sync.Mutex
	free  map[key][]*tensor.Block
	stats Stats
}

// New creates a pool keeping at most maxPooled idle blocks per class.
// A non-positive value uses DefaultMaxPooled.
func New(maxPooled int) *Pool {
	if maxPooled <= 0 {
		maxPooled = DefaultMaxPooled
	}
	return &Pool{maxPooled: maxPooled, free: make(map[key][]*tensor.Block)}
}

// Acquire returns a block of at least nbytes. Its contents are undefined.
func (p *Pool) Acquire(nbytes int, kind tensor.USMKind, device tensor.Device) (*tensor.Block, error) {
	if nbytes < 0 {
		return nil, errors.New("scratch: negative size")
	}
	size := roundUp(nbytes)
	k := key{kind: kind, device: device, class: Classify(size)}

	p.mu.Lock()
	list := p.free[k]
	for i, b := range list {
		if b.Len() >= nbytes {
			p.free[k] = append(list[:i], list[i+1:]...)
			p.stats.Hits++
			p.stats.Pooled--
			p.mu.Unlock()
			return b, nil
		}
	}
	p.stats.Misses++
	p.stats.Allocated++
	p.mu.Unlock()

	return tensor.Allocate(size, kind, device)
}

// Release returns a block to the pool. Blocks beyond the per-class limit
// are closed.
func (p *Pool) Release(b *tensor.Block) error {
	if b == nil || b.Closed() {
		return nil
	}
	k := key{kind: b.Kind(), device: b.Device(), class: Classify(b.Len())}

	p.mu.Lock()
	p.stats.Released++
	if len(p.free[k]) >= p.maxPooled {
		p.mu.Unlock()
		return b.Close()
	}
	p.free[k] = append(p.free[k], b)
	p.stats.Pooled++
	p.mu.Unlock()
	return nil
}

// Clear closes every idle block.
func (p *Pool) Clear() error {
	p.mu.Lock()
	free := p.free
	p.free = make(map[key][]*tensor.Block)
	p.stats.Pooled = 0
	p.mu.Unlock()

	var errs []error
	for _, list := range free {
		for _, b := range list {
			if err := b.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// roundUp rounds below-large requests to a power of two so that blocks of
// similar sizes can be reused.
func roundUp(n int) int {
	if n <= 8 {
		return 8
	}
	if n >= mediumThreshold {
		return n
	}
	return 1 << bits.Len(uint(n-1))
}
