// Package shm provides a typed handle to a fixed-size named shared memory segment.
//
// A Region[T] maps exactly unsafe.Sizeof(T) bytes of a named OS object (a POSIX
// shared memory object under /dev/shm on Linux, a named file mapping on Windows)
// and exposes them as one value of T. Any process that builds a Region with the
// same name and the same T sees the same bytes.
//
// Example usage:
//
//	counter, err := shm.New[int32]("counter", false)
//	if err != nil {
//	  return err
//	}
//	defer counter.Close()
//	if !counter.Connect() {
//	  return errors.New("no shared memory")
//	}
//	_ = counter.Write(42)
//	v, _ := counter.Read()
//
// T must be plain data: booleans, sized numbers, arrays and structs of those.
// The bytes carry no header, version or byte-order marker, so every
// participant must agree on T's exact layout.
//
// Only calls on one Region are serialized. Nothing coordinates processes:
// values larger than a machine word can be observed half-written by another
// process, and the named object is never removed by this package.
package shm
