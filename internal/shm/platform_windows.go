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

//go:build windows

package shm

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

type windowsPlatform struct{}

// Native returns the named file-mapping platform backed by the paging file.
func Native() Platform {
	return windowsPlatform{}
}

// everyone builds security attributes with a null DACL, so any local user
// may open the mapping.
func everyone() (*windows.SecurityAttributes, error) {
	sd, err := windows.NewSecurityDescriptor()
	if err != nil {
		return nil, err
	}
	if err := sd.SetDACL(nil, true, false); err != nil {
		return nil, err
	}
	return &windows.SecurityAttributes{
		Length:             uint32(unsafe.Sizeof(windows.SecurityAttributes{})),
		SecurityDescriptor: sd,
	}, nil
}

// Acquire creates the named mapping or opens the existing one. The kernel
// fixes the size at creation; later callers get the size the creator chose.
func (windowsPlatform) Acquire(name string, size int) (Handle, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %q: %w", ErrAcquire, ErrInvalidName, name, err)
	}
	sa, err := everyone()
	if err != nil {
		return 0, fmt.Errorf("%w: security descriptor: %w", ErrAcquire, err)
	}
	h, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		sa,
		windows.PAGE_READWRITE,
		uint32(uint64(size)>>32),
		uint32(size),
		namep,
	)
	if h == 0 {
		return 0, fmt.Errorf("%w: CreateFileMapping %q: %w", ErrAcquire, name, err)
	}
	// ERROR_ALREADY_EXISTS comes with a valid handle to the existing mapping.
	if err != nil && !errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		_ = windows.CloseHandle(h)
		return 0, fmt.Errorf("%w: CreateFileMapping %q: %w", ErrAcquire, name, err)
	}
	return Handle(h), nil
}

func (windowsPlatform) Map(h Handle, size int) ([]byte, error) {
	addr, err := windows.MapViewOfFile(windows.Handle(h), windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		return nil, fmt.Errorf("%w: MapViewOfFile: %w", ErrMap, err)
	}
	// addr is a view address outside the Go heap; reinterpret it without a
	// uintptr conversion.
	base := *(*unsafe.Pointer)(unsafe.Pointer(&addr))
	return unsafe.Slice((*byte)(base), size), nil
}

func (windowsPlatform) Unmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&mem[0]))); err != nil {
		return fmt.Errorf("UnmapViewOfFile: %w", err)
	}
	return nil
}

func (windowsPlatform) Release(h Handle) error {
	if err := windows.CloseHandle(windows.Handle(h)); err != nil {
		return fmt.Errorf("CloseHandle: %w", err)
	}
	return nil
}
