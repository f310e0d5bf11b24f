package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

var (
	nameSeq atomic.Uint64
	// fallback for targets without a native platform
	processMemory = NewMemoryPlatform()
)

type testStructBase struct {
	TestInt    int32
	TestDouble float64
}

type testStruct struct {
	TestInt        int32
	TestDouble     float64
	TestStructBase testStructBase
}

// testConfig returns a config for a segment name no other test uses. On
// unix the object file is removed when the test ends.
func testConfig(t testing.TB, base string) *Config {
	name := fmt.Sprintf("shmregion_%s_%d_%d", base, os.Getpid(), nameSeq.Add(1))
	cfg := DefaultConfig()
	cfg.Name = name
	switch dir := objectDir(); {
	case dir != "":
		t.Cleanup(func() { _ = os.Remove(filepath.Join(dir, name)) })
	case runtime.GOOS != "windows":
		cfg.Platform = processMemory
	}
	return cfg
}

func newRegion[T any](t testing.TB, cfg *Config) *Region[T] {
	r, err := NewWithConfig[T](cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// mapping returns the address of the current mapping, 0 when disconnected.
func (r *Region[T]) mapping() uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.region == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.region.Addr[0]))
}

type recordingObserver struct {
	connects    atomic.Int64
	failures    atomic.Int64
	disconnects atomic.Int64
}

func (o *recordingObserver) ObserveConnect(_ string, err error) {
	if err != nil {
		o.failures.Add(1)
		return
	}
	o.connects.Add(1)
}

func (o *recordingObserver) ObserveDisconnect(string) {
	o.disconnects.Add(1)
}
