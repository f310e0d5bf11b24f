//go:build unix

package shm

import internalshm "github.com/srediag/shmregion/internal/shm"

func objectDir() string {
	return internalshm.Dir()
}
