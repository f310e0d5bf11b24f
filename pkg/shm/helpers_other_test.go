//go:build !unix

package shm

func objectDir() string {
	return ""
}
