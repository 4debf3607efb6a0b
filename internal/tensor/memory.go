package tensor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// Device represents the compute device a memory block is bound to.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// ParseDevice parses a device name such as "cpu" or "cuda".
func ParseDevice(s string) (Device, error) {
	for d := CPU; d <= WebGPU; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return CPU, fmt.Errorf("unknown device %q", s)
}

// USMKind describes how a block is allocated and who may address it.
type USMKind int

// Allocation kinds. Host memory is reachable from every device; Device memory
// only from the device it was allocated for; Shared memory migrates on demand.
const (
	Host USMKind = iota
	DeviceLocal
	Shared
)

// String returns the allocation kind name.
func (k USMKind) String() string {
	switch k {
	case Host:
		return "host"
	case DeviceLocal:
		return "device"
	case Shared:
		return "shared"
	default:
		return "unknown"
	}
}

// ParseUSMKind parses "host", "device" or "shared".
func ParseUSMKind(s string) (USMKind, error) {
	switch s {
	case "host":
		return Host, nil
	case "device":
		return DeviceLocal, nil
	case "shared":
		return Shared, nil
	default:
		return 0, fmt.Errorf("unknown usm kind %q", s)
	}
}

// ErrBlockClosed is returned when a released block is used.
var ErrBlockClosed = errors.New("memory block is closed")

// Block is a contiguous, 8-byte aligned allocation that views address into.
// Blocks are owned by the caller; the copy engine never allocates or frees them.
type Block struct {
	data   []byte
	words  []uint64 // keeps heap-backed storage alive
	kind   USMKind
	device Device
	mapped bool

	mu     sync.Mutex
	closed bool
}

// Allocate creates a zeroed block of nbytes bytes.
// DeviceLocal and Shared blocks are anonymous memory maps where the platform
// supports them; Host blocks live on the Go heap.
func Allocate(nbytes int, kind USMKind, device Device) (*Block, error) {
	if nbytes < 0 {
		return nil, fmt.Errorf("allocate: negative size %d", nbytes)
	}
	b := &Block{kind: kind, device: device}
	if nbytes == 0 {
		return b, nil
	}

	if kind != Host {
		data, err := mapAnonymous(nbytes)
		if err == nil {
			b.data = data
			b.mapped = true
			return b, nil
		}
		if !errors.Is(err, errMapUnsupported) {
			return nil, fmt.Errorf("allocate %d bytes of %s memory: %w", nbytes, kind, err)
		}
	}

	b.words = make([]uint64, (nbytes+7)/8)
	//nolint:gosec // unsafe.Slice reinterprets the aligned word buffer as bytes
	b.data = unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(b.words))), nbytes)
	return b, nil
}

// MustAllocate is Allocate that panics on error. Intended for tests and examples.
func MustAllocate(nbytes int, kind USMKind, device Device) *Block {
	b, err := Allocate(nbytes, kind, device)
	if err != nil {
		panic(err)
	}
	return b
}

// Bytes returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (b *Block) Bytes() []byte {
	return b.data
}

// Len returns the block size in bytes.
func (b *Block) Len() int {
	return len(b.data)
}

// Kind returns the allocation kind.
func (b *Block) Kind() USMKind {
	return b.kind
}

// Device returns the device the block is bound to.
func (b *Block) Device() Device {
	return b.device
}

// Pointer returns the address of the first byte, or nil for an empty block.
func (b *Block) Pointer() unsafe.Pointer {
	if len(b.data) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(b.data))
}

// AccessibleFrom reports whether work running on device d may address the block.
func (b *Block) AccessibleFrom(d Device) bool {
	return b.kind != DeviceLocal || b.device == d
}

// Closed reports whether Close has been called.
func (b *Block) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close releases the storage. Closing twice is a no-op.
func (b *Block) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.mapped {
		err = unmap(b.data)
	}
	b.data = nil
	b.words = nil
	return err
}
