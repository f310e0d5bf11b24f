package shm

import (
	"errors"

	internalshm "github.com/srediag/shmregion/internal/shm"
)

var (
	// ErrAcquire: the named object could not be opened or created.
	ErrAcquire = internalshm.ErrAcquire
	// ErrSize: the object could not be sized, or is smaller than T.
	ErrSize = internalshm.ErrSize
	// ErrMap: the object could not be mapped into the address space.
	ErrMap = internalshm.ErrMap
	// ErrInvalidName: the OS can never accept the name. Wrapped with ErrAcquire.
	ErrInvalidName = internalshm.ErrInvalidName
	// ErrUnsupported: no native shared memory on this target.
	ErrUnsupported = internalshm.ErrUnsupported

	ErrNotConnected  = errors.New("shm: region is not connected")
	ErrInvalidType   = errors.New("shm: type is not plain data")
	ErrInvalidConfig = errors.New("shm: invalid config")
)

// errorClass names the connect failure for metrics and spans.
func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrAcquire):
		return "acquire"
	case errors.Is(err, ErrSize):
		return "size"
	case errors.Is(err, ErrMap):
		return "map"
	default:
		return "unknown"
	}
}
