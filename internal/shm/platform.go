/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package shm contains the platform seam for named shared memory objects.
//
// A Platform knows how to acquire (open or create) a named object, size it on
// first creation, map it and tear it down. Exactly one native Platform is
// compiled per target (platform_unix.go, platform_windows.go); MemoryPlatform
// is a process-local stand-in for tests and unsupported targets.
package shm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAcquire marks a failure to open or create the named object.
	ErrAcquire = errors.New("shm: acquire segment")
	// ErrSize marks a failure to fix the size of a freshly created object.
	ErrSize = errors.New("shm: size segment")
	// ErrMap marks a failure to map the object into the address space.
	ErrMap = errors.New("shm: map segment")
	// ErrInvalidName marks a name the OS can never accept. It is always
	// wrapped together with ErrAcquire.
	ErrInvalidName = errors.New("shm: invalid segment name")
	// ErrUnsupported is returned by the native platform on targets without an implementation.
	ErrUnsupported = errors.New("shm: shared memory is not supported on this platform")
)

// Handle is the OS reference to a named object: a file descriptor on Linux,
// a file-mapping HANDLE on Windows.
type Handle uintptr

// Platform is the single seam between the region state machine and the OS.
type Platform interface {
	// Acquire opens the named object, creating it if needed, and makes sure
	// it is at least size bytes long. Errors wrap ErrAcquire or ErrSize.
	Acquire(name string, size int) (Handle, error)
	// Map maps size bytes of h read/write. Errors wrap ErrMap.
	Map(h Handle, size int) ([]byte, error)
	// Unmap releases a mapping returned by Map.
	Unmap(mem []byte) error
	// Release closes h. The named object itself is left in place.
	Release(h Handle) error
}

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	Addr   []byte
	Handle Handle
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	Name string
	Size int
}

// MapRegion acquires and maps the named object. On a mapping failure the
// acquired handle is released before returning.
func MapRegion(ctx context.Context, p Platform, opts MapOptions) (*MappedRegion, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrSize, opts.Size)
	}
	h, err := p.Acquire(opts.Name, opts.Size)
	if err != nil {
		return nil, err
	}
	addr, err := p.Map(h, opts.Size)
	if err != nil {
		_ = p.Release(h)
		return nil, err
	}
	return &MappedRegion{
		Addr:   addr,
		Handle: h,
	}, nil
}

// UnmapRegion unmaps the region and releases its handle. Both steps always
// run; the first error is returned.
func UnmapRegion(ctx context.Context, p Platform, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	var firstErr error
	if err := p.Unmap(region.Addr); err != nil {
		firstErr = fmt.Errorf("unmap: %w", err)
	}
	if err := p.Release(region.Handle); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("release: %w", err)
	}
	region.Addr = nil
	return firstErr
}
