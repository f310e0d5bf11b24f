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
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowsSecondAcquireAttaches(t *testing.T) {
	p := Native()
	name := fmt.Sprintf("shmregion_attach_%d", os.Getpid())

	first, err := p.Acquire(name, 16)
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Release(first)) }()

	second, err := p.Acquire(name, 16)
	require.NoError(t, err, "an existing mapping must be opened, not reported as a failure")
	assert.NotEqual(t, first, second)
	assert.NoError(t, p.Release(second))
}

func TestWindowsMapRegionSharesBytes(t *testing.T) {
	ctx := context.Background()
	p := Native()
	opts := MapOptions{Name: fmt.Sprintf("shmregion_shared_%d", os.Getpid()), Size: 16}

	a, err := MapRegion(ctx, p, opts)
	require.NoError(t, err)
	b, err := MapRegion(ctx, p, opts)
	require.NoError(t, err)

	copy(a.Addr, "0123456789abcdef")
	assert.Equal(t, "0123456789abcdef", string(b.Addr))

	assert.NoError(t, UnmapRegion(ctx, p, a))
	assert.NoError(t, UnmapRegion(ctx, p, b))
}

func TestWindowsRejectsNulInName(t *testing.T) {
	_, err := Native().Acquire("bad\x00name", 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquire)
	assert.ErrorIs(t, err, ErrInvalidName)
}
