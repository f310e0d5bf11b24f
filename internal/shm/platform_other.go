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

//go:build !unix && !windows

package shm

import "fmt"

type unsupportedPlatform struct{}

// Native returns a platform whose every acquire fails with ErrUnsupported.
func Native() Platform {
	return unsupportedPlatform{}
}

func (unsupportedPlatform) Acquire(name string, size int) (Handle, error) {
	return 0, fmt.Errorf("%w: %w", ErrAcquire, ErrUnsupported)
}

func (unsupportedPlatform) Map(h Handle, size int) ([]byte, error) {
	return nil, fmt.Errorf("%w: %w", ErrMap, ErrUnsupported)
}

func (unsupportedPlatform) Unmap(mem []byte) error {
	return ErrUnsupported
}

func (unsupportedPlatform) Release(h Handle) error {
	return ErrUnsupported
}
