//go:build linux

package shm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeObjectLivesInDevShm(t *testing.T) {
	cfg := testConfig(t, "devshm")
	r := newRegion[[3]int64](t, cfg)
	require.True(t, r.Connect())

	fi, err := os.Stat(filepath.Join("/dev/shm", cfg.Name))
	require.NoError(t, err)
	assert.Equal(t, int64(24), fi.Size())

	require.True(t, r.Disconnect())
	_, err = os.Stat(filepath.Join("/dev/shm", cfg.Name))
	assert.NoError(t, err, "disconnect leaves the object in place")
}

func TestNativeLeadingSlashNamesTheSameObject(t *testing.T) {
	cfg := testConfig(t, "slash")
	plain := newRegion[int32](t, cfg)

	slashed := *cfg
	slashed.Name = "/" + cfg.Name
	withSlash := newRegion[int32](t, &slashed)

	require.True(t, plain.Connect())
	require.True(t, withSlash.Connect())
	require.NoError(t, plain.Write(77))
	v, err := withSlash.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(77), v)
}

func TestNativeShorterExistingObject(t *testing.T) {
	cfg := testConfig(t, "short")
	require.NoError(t, os.WriteFile(filepath.Join("/dev/shm", cfg.Name), []byte{1, 2}, 0600))

	r := newRegion[int64](t, cfg)
	err := r.ConnectContext(context.Background())
	assert.True(t, errors.Is(err, ErrSize))
	assert.False(t, r.IsConnected())
}

func TestNativeInvalidName(t *testing.T) {
	r := newRegion[int64](t, &Config{Name: "no/slashes/inside"})
	err := r.ConnectContext(context.Background())
	assert.True(t, errors.Is(err, ErrAcquire))
	assert.True(t, errors.Is(err, ErrInvalidName))
	assert.False(t, r.Connect())
}
