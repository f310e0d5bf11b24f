package shm

import (
	"fmt"
	"reflect"
	"unsafe"
)

// checkPlainData accepts types whose bytes mean the same thing in another
// process: no pointers, addresses or runtime-managed headers anywhere inside.
func checkPlainData(t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("%w: nil type", ErrInvalidType)
	}
	if t.Size() == 0 {
		return fmt.Errorf("%w: %s has zero size", ErrInvalidType, t)
	}
	return checkKind(t, t.String())
}

func checkKind(t reflect.Type, path string) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return checkKind(t.Elem(), path+"[]")
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if err := checkKind(f.Type, path+"."+f.Name); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s is a %s", ErrInvalidType, path, t.Kind())
	}
}

// bytesOf views *v as its raw bytes.
func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}
