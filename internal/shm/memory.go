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

package shm

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"unsafe"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemoryPlatform keeps named segments in process memory. Every Region in the
// process that names the same segment shares the same bytes, which makes it
// a stand-in for the OS in tests. The hooks inject failures.
type MemoryPlatform struct {
	// AcquireHook, when set, runs before Acquire; a non-nil result fails it.
	AcquireHook func(name string) error
	// MapHook, when set, runs before Map; a non-nil result fails it.
	MapHook func(name string) error

	segments cmap.ConcurrentMap[string, []byte]
	handles  cmap.ConcurrentMap[string, string]
	nextID   atomic.Uint64
	mapped   atomic.Int64
}

// NewMemoryPlatform returns an empty MemoryPlatform.
func NewMemoryPlatform() *MemoryPlatform {
	return &MemoryPlatform{
		segments: cmap.New[[]byte](),
		handles:  cmap.New[string](),
	}
}

// words backs segments with uint64s so word-sized atomics stay aligned.
func words(size int) []byte {
	w := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&w[0])), size)
}

func (p *MemoryPlatform) Acquire(name string, size int) (Handle, error) {
	if p.AcquireHook != nil {
		if err := p.AcquireHook(name); err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrAcquire, name, err)
		}
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: invalid size %d", ErrSize, size)
	}
	var sizeErr error
	p.segments.Upsert(name, nil, func(exist bool, cur []byte, _ []byte) []byte {
		switch {
		case !exist || len(cur) == 0:
			return words(size)
		case len(cur) < size:
			sizeErr = fmt.Errorf("%w: %q holds %d bytes, need %d", ErrSize, name, len(cur), size)
		}
		return cur
	})
	if sizeErr != nil {
		return 0, sizeErr
	}
	id := p.nextID.Add(1)
	p.handles.Set(strconv.FormatUint(id, 10), name)
	return Handle(id), nil
}

func (p *MemoryPlatform) Map(h Handle, size int) ([]byte, error) {
	name, ok := p.handles.Get(strconv.FormatUint(uint64(h), 10))
	if !ok {
		return nil, fmt.Errorf("%w: unknown handle %d", ErrMap, h)
	}
	if p.MapHook != nil {
		if err := p.MapHook(name); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMap, name, err)
		}
	}
	mem, ok := p.segments.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q vanished", ErrMap, name)
	}
	p.mapped.Add(1)
	return mem[:size:size], nil
}

func (p *MemoryPlatform) Unmap(mem []byte) error {
	if p.mapped.Add(-1) < 0 {
		p.mapped.Add(1)
		return fmt.Errorf("unmap: nothing mapped")
	}
	return nil
}

func (p *MemoryPlatform) Release(h Handle) error {
	if _, ok := p.handles.Pop(strconv.FormatUint(uint64(h), 10)); !ok {
		return fmt.Errorf("release: unknown handle %d", h)
	}
	return nil
}

// OpenHandles is the number of acquired, unreleased handles.
func (p *MemoryPlatform) OpenHandles() int {
	return p.handles.Count()
}

// Mappings is the number of live mappings.
func (p *MemoryPlatform) Mappings() int {
	return int(p.mapped.Load())
}

// Segments lists the names created so far. Segments are never removed,
// matching the OS objects they stand in for.
func (p *MemoryPlatform) Segments() []string {
	return p.segments.Keys()
}
