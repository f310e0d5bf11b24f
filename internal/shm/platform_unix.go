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

//go:build unix

package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

// EnvDir overrides the directory that holds the shared memory objects.
const EnvDir = "SHMREGION_DIR"

// nameMax is NAME_MAX; object names must be shorter.
const nameMax = 255

type posixPlatform struct {
	dir string
}

// Native returns the POSIX shared memory platform rooted at Dir().
func Native() Platform {
	return posixPlatform{dir: Dir()}
}

// Dir is the directory holding the objects: $SHMREGION_DIR when set,
// otherwise /dev/shm on Linux and a shared directory under /tmp elsewhere.
func Dir() string {
	if d := os.Getenv(EnvDir); d != "" {
		return d
	}
	return defaultDir
}

// objectPath maps a shm_open style name to its file, refusing the same
// names shm_open(3) refuses.
func (p posixPlatform) objectPath(name string) (string, error) {
	n := strings.TrimPrefix(name, "/")
	if n == "" || len(n) >= nameMax || strings.ContainsRune(n, '/') {
		return "", fmt.Errorf("%w: %w", ErrInvalidName, unix.EINVAL)
	}
	return filepath.Join(p.dir, n), nil
}

// ensureDir creates a missing object directory world-writable and sticky,
// like /tmp, so every local user can create objects in it.
func (p posixPlatform) ensureDir() error {
	if _, err := os.Stat(p.dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(p.dir, 0o777); err != nil {
		return err
	}
	_ = os.Chmod(p.dir, 0o777|os.ModeSticky)
	return nil
}

// canCreate reports whether the tmpfs behind dir has room for size bytes.
// A failed usage probe does not block creation.
func (p posixPlatform) canCreate(size int) bool {
	stat, err := disk.Usage(p.dir)
	if err != nil {
		return true
	}
	return stat.Free >= uint64(size)
}

// Acquire opens or creates the object. When the object is still empty it is
// truncated to size. Two processes creating the same object at the same time
// may both see it empty and both truncate it; they truncate to the same size,
// so the race is harmless and left alone.
func (p posixPlatform) Acquire(name string, size int) (Handle, error) {
	path, err := p.objectPath(name)
	if err != nil {
		return 0, fmt.Errorf("%w: open %q: %w", ErrAcquire, name, err)
	}
	if err := p.ensureDir(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0666)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrAcquire, path, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("%w: fstat %s: %w", ErrAcquire, path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		_ = unix.Close(fd)
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrAcquire, path)
	}

	switch {
	case st.Size == 0:
		if !p.canCreate(size) {
			_ = unix.Close(fd)
			return 0, fmt.Errorf("%w: %s: no space left for %d bytes", ErrSize, p.dir, size)
		}
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			return 0, fmt.Errorf("%w: ftruncate %s: %w", ErrSize, path, err)
		}
		// umask narrowed the create mode; widen it back.
		_ = unix.Fchmod(fd, 0666)
	case st.Size < int64(size):
		_ = unix.Close(fd)
		return 0, fmt.Errorf("%w: %s holds %d bytes, need %d", ErrSize, path, st.Size, size)
	}
	return Handle(fd), nil
}

func (p posixPlatform) Map(h Handle, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(h), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %w", ErrMap, err)
	}
	return mem, nil
}

func (p posixPlatform) Unmap(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

func (p posixPlatform) Release(h Handle) error {
	if err := unix.Close(int(h)); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
