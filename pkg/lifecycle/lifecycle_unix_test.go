//go:build unix

package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/pkg/shm"
)

func TestConnectFailsFastOnBadNativeName(t *testing.T) {
	r, err := shm.New[int64]("no/slash", false)
	require.NoError(t, err)
	defer r.Close()

	start := time.Now()
	err = Connect(context.Background(), r, nil)
	assert.ErrorIs(t, err, shm.ErrInvalidName)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, r.IsConnected())
}
