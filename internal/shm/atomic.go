package shm

import (
	"sync/atomic"
	"unsafe"
)

// AtomicLoadUint64 loads a uint64 from shared memory atomically.
func AtomicLoadUint64(addr unsafe.Pointer) uint64 {
	return atomic.LoadUint64((*uint64)(addr))
}

// AtomicStoreUint64 stores a uint64 to shared memory atomically.
func AtomicStoreUint64(addr unsafe.Pointer, val uint64) {
	atomic.StoreUint64((*uint64)(addr), val)
}

// AtomicLoadUint32 loads a uint32 from shared memory atomically.
func AtomicLoadUint32(addr unsafe.Pointer) uint32 {
	return atomic.LoadUint32((*uint32)(addr))
}

// AtomicStoreUint32 stores a uint32 to shared memory atomically.
func AtomicStoreUint32(addr unsafe.Pointer, val uint32) {
	atomic.StoreUint32((*uint32)(addr), val)
}

func aligned(p unsafe.Pointer, n uintptr) bool {
	return uintptr(p)%n == 0
}

// ReadInto copies the mapped bytes src into dst. A 4- or 8-byte aligned
// source is read with one atomic load so it cannot be torn; anything else is
// a plain copy.
func ReadInto(dst, src []byte) {
	if len(dst) != len(src) || len(src) == 0 {
		copy(dst, src)
		return
	}
	p := unsafe.Pointer(&src[0])
	switch {
	case len(src) == 8 && aligned(p, 8):
		v := AtomicLoadUint64(p)
		copy(dst, (*[8]byte)(unsafe.Pointer(&v))[:])
	case len(src) == 4 && aligned(p, 4):
		v := AtomicLoadUint32(p)
		copy(dst, (*[4]byte)(unsafe.Pointer(&v))[:])
	default:
		copy(dst, src)
	}
}

// WriteFrom copies src over the mapped bytes dst, with the same atomicity
// as ReadInto.
func WriteFrom(dst, src []byte) {
	if len(dst) != len(src) || len(dst) == 0 {
		copy(dst, src)
		return
	}
	p := unsafe.Pointer(&dst[0])
	switch {
	case len(dst) == 8 && aligned(p, 8):
		var v uint64
		copy((*[8]byte)(unsafe.Pointer(&v))[:], src)
		AtomicStoreUint64(p, v)
	case len(dst) == 4 && aligned(p, 4):
		var v uint32
		copy((*[4]byte)(unsafe.Pointer(&v))[:], src)
		AtomicStoreUint32(p, v)
	default:
		copy(dst, src)
	}
}
