package shm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func alignedBytes(n int) []byte {
	w := make([]uint64, 2)
	return unsafe.Slice((*byte)(unsafe.Pointer(&w[0])), 16)[:n]
}

func TestReadWriteWordSizes(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 8, 12, 16} {
		mem := alignedBytes(n)
		src := make([]byte, n)
		for i := range src {
			src[i] = byte(i + 1)
		}
		WriteFrom(mem, src)
		assert.Equal(t, src, mem, "size %d", n)

		dst := make([]byte, n)
		ReadInto(dst, mem)
		assert.Equal(t, src, dst, "size %d", n)
	}
}

func TestReadWriteUnaligned(t *testing.T) {
	backing := alignedBytes(16)
	mem := backing[1:9]
	WriteFrom(mem, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	dst := make([]byte, 8)
	ReadInto(dst, mem)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, dst)
}

func TestAtomicWords(t *testing.T) {
	mem := alignedBytes(8)
	AtomicStoreUint64(unsafe.Pointer(&mem[0]), 0x0102030405060708)
	assert.Equal(t, uint64(0x0102030405060708), AtomicLoadUint64(unsafe.Pointer(&mem[0])))

	AtomicStoreUint32(unsafe.Pointer(&mem[0]), 7)
	assert.Equal(t, uint32(7), AtomicLoadUint32(unsafe.Pointer(&mem[0])))
}
