// Package lifecycle holds caller-side helpers around a segment's connection
// state: retrying a failed connect and scoping a connection to a function.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/shmregion/api"
	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/shm"
)

// ErrConnectFailed is returned for segments that only report a boolean.
var ErrConnectFailed = errors.New("connect failed")

var logger = logging.New("lifecycle", os.Stdout)

type contextConnector interface {
	ConnectContext(ctx context.Context) error
}

// permanent reports failures that no retry can fix.
func permanent(err error) bool {
	return errors.Is(err, shm.ErrInvalidName) ||
		errors.Is(err, shm.ErrUnsupported) ||
		errors.Is(err, shm.ErrInvalidType) ||
		errors.Is(err, shm.ErrInvalidConfig)
}

func connectOnce(ctx context.Context, seg api.Lifecycle) error {
	if c, ok := seg.(contextConnector); ok {
		err := c.ConnectContext(ctx)
		if err != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if !seg.Connect() {
		return ErrConnectFailed
	}
	return nil
}

// DefaultBackOff retries for up to ten seconds.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 10 * time.Second
	b.Reset()
	return b
}

// Connect connects seg, retrying on the schedule b until it succeeds, b
// gives up or ctx is done. The last connect error is returned. Invalid names
// and unsupported platforms fail on the first attempt.
func Connect(ctx context.Context, seg api.Lifecycle, b backoff.BackOff) error {
	if b == nil {
		b = DefaultBackOff()
	}
	op := func() error {
		return connectOnce(ctx, seg)
	}
	notify := func(err error, next time.Duration) {
		logger.Debugf("connect failed: %v, retrying in %s", err, next)
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// With connects seg, runs fn and disconnects seg again whatever fn does.
// A segment that was already connected is left connected.
func With(ctx context.Context, seg api.Lifecycle, b backoff.BackOff, fn func() error) error {
	if seg.IsConnected() {
		return fn()
	}
	if err := Connect(ctx, seg, b); err != nil {
		return err
	}
	defer seg.Disconnect()
	return fn()
}
