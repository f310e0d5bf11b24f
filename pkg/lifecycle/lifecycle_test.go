package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/pkg/shm"
)

func flakyRegion(t *testing.T, failures int32) (*shm.Region[int64], *atomic.Int32) {
	t.Helper()
	p := shm.NewMemoryPlatform()
	var attempts atomic.Int32
	p.AcquireHook = func(string) error {
		if attempts.Add(1) <= failures {
			return errors.New("not yet")
		}
		return nil
	}
	r, err := shm.NewWithConfig[int64](&shm.Config{Name: "flaky", Platform: p})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, &attempts
}

func TestConnectRetries(t *testing.T) {
	r, attempts := flakyRegion(t, 2)
	err := Connect(context.Background(), r, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 5))
	require.NoError(t, err)
	assert.True(t, r.IsConnected())
	assert.Equal(t, int32(3), attempts.Load())
}

func TestConnectGivesUp(t *testing.T) {
	r, attempts := flakyRegion(t, 100)
	err := Connect(context.Background(), r, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3))
	assert.ErrorIs(t, err, shm.ErrAcquire)
	assert.False(t, r.IsConnected())
	assert.Equal(t, int32(4), attempts.Load())
}

func TestConnectDoesNotRetryPermanentFailures(t *testing.T) {
	for _, cause := range []error{shm.ErrInvalidName, shm.ErrUnsupported} {
		p := shm.NewMemoryPlatform()
		var attempts atomic.Int32
		p.AcquireHook = func(string) error {
			attempts.Add(1)
			return cause
		}
		r, err := shm.NewWithConfig[int64](&shm.Config{Name: "permanent", Platform: p})
		require.NoError(t, err)

		start := time.Now()
		err = Connect(context.Background(), r, nil)
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, shm.ErrAcquire)
		assert.Equal(t, int32(1), attempts.Load())
		assert.Less(t, time.Since(start), time.Second)
		require.NoError(t, r.Close())
	}
}

func TestConnectStopsWithContext(t *testing.T) {
	r, _ := flakyRegion(t, 1<<30)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Connect(ctx, r, backoff.NewConstantBackOff(time.Millisecond))
	assert.Error(t, err)
	assert.False(t, r.IsConnected())
}

type boolOnly struct {
	connected bool
	failLeft  int
}

func (b *boolOnly) Connect() bool {
	if b.failLeft > 0 {
		b.failLeft--
		return false
	}
	b.connected = true
	return true
}

func (b *boolOnly) Disconnect() bool  { b.connected = false; return true }
func (b *boolOnly) IsConnected() bool { return b.connected }

func TestConnectBoolOnlySegment(t *testing.T) {
	seg := &boolOnly{failLeft: 1}
	require.NoError(t, Connect(context.Background(), seg, backoff.NewConstantBackOff(time.Millisecond)))
	assert.True(t, seg.IsConnected())

	seg = &boolOnly{failLeft: 10}
	err := Connect(context.Background(), seg, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2))
	assert.ErrorIs(t, err, ErrConnectFailed)
}

func TestWithDisconnectsAfterwards(t *testing.T) {
	r, _ := flakyRegion(t, 0)
	var seen bool
	err := With(context.Background(), r, nil, func() error {
		seen = r.IsConnected()
		return r.Write(9)
	})
	require.NoError(t, err)
	assert.True(t, seen)
	assert.False(t, r.IsConnected())

	boom := errors.New("boom")
	err = With(context.Background(), r, nil, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, r.IsConnected())
}

func TestWithLeavesExistingConnection(t *testing.T) {
	r, _ := flakyRegion(t, 0)
	require.True(t, r.Connect())
	require.NoError(t, With(context.Background(), r, nil, func() error { return nil }))
	assert.True(t, r.IsConnected())
}

func TestDefaultBackOff(t *testing.T) {
	b, ok := DefaultBackOff().(*backoff.ExponentialBackOff)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, b.MaxElapsedTime)
}
