// Package health exposes the connection state of shared memory segments as
// healthcheck probes.
package health

import (
	"errors"
	"fmt"

	"github.com/heptiolabs/healthcheck"

	"github.com/srediag/shmregion/api"
)

// ErrDisconnected is reported by a check whose segment is not mapped.
var ErrDisconnected = errors.New("shared memory segment is disconnected")

// ConnectedCheck fails while seg is disconnected.
func ConnectedCheck(seg api.Lifecycle) healthcheck.Check {
	return func() error {
		if !seg.IsConnected() {
			return ErrDisconnected
		}
		return nil
	}
}

// CheckName is the probe name Register uses for a segment.
func CheckName(name string) string {
	return fmt.Sprintf("shm-%s-connected", name)
}

// Register adds a readiness check for seg to h: the process is not ready
// while the segment is disconnected.
func Register(h healthcheck.Handler, name string, seg api.Lifecycle) {
	h.AddReadinessCheck(CheckName(name), ConnectedCheck(seg))
}
