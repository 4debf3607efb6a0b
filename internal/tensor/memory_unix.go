//go:build unix

package tensor

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errMapUnsupported = errors.New("anonymous mappings unsupported")

// mapAnonymous maps zeroed, page-aligned private memory.
func mapAnonymous(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// unmap releases a mapping created by mapAnonymous.
func unmap(data []byte) error {
	return unix.Munmap(data)
}
