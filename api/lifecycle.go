// Package api defines public API contracts for shmregion.
package api

import "io"

// Lifecycle is the connection state machine of a shared memory segment.
type Lifecycle interface {
	// Connect maps the segment; it is a no-op when already connected.
	Connect() bool
	// Disconnect unmaps the segment; it is a no-op when already disconnected.
	Disconnect() bool
	IsConnected() bool
}

// Accessor reads and writes the whole value held in a segment.
type Accessor[T any] interface {
	Read() (T, error)
	Write(v T) error
}

// Segment is a named, typed shared memory segment.
type Segment[T any] interface {
	Lifecycle
	Accessor[T]
	io.Closer
	Name() string
}
