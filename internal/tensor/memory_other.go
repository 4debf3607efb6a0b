//go:build !unix

package tensor

import "errors"

var errMapUnsupported = errors.New("anonymous mappings unsupported")

func mapAnonymous(int) ([]byte, error) {
	return nil, errMapUnsupported
}

func unmap([]byte) error {
	return nil
}
