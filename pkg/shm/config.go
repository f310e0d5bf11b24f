package shm

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	internalshm "github.com/srediag/shmregion/internal/shm"
)

const instrumentationName = "github.com/srediag/shmregion/pkg/shm"

// Platform is the OS seam a Region connects through.
type Platform = internalshm.Platform

// MemoryPlatform is an in-process Platform; see NewMemoryPlatform.
type MemoryPlatform = internalshm.MemoryPlatform

// NativePlatform returns the platform compiled for this target.
func NativePlatform() Platform {
	return internalshm.Native()
}

// NewMemoryPlatform returns a Platform that keeps segments in process memory.
// Regions sharing one MemoryPlatform and one name share bytes.
func NewMemoryPlatform() *MemoryPlatform {
	return internalshm.NewMemoryPlatform()
}

// Observer is told about every connect attempt and every disconnect.
type Observer interface {
	ObserveConnect(name string, err error)
	ObserveDisconnect(name string)
}

type nopObserver struct{}

func (nopObserver) ObserveConnect(string, error) {}
func (nopObserver) ObserveDisconnect(string)     {}

// Config holds region creation parameters.
type Config struct {
	// Name identifies the OS object. It is passed through unchanged.
	Name string
	// LogWarnings also reports connect and teardown failures through the logger.
	LogWarnings bool
	// Platform defaults to NativePlatform.
	Platform Platform
	Meter    metric.Meter
	Tracer   trace.Tracer
	Observer Observer
}

// DefaultConfig returns a config for the native platform with no-op telemetry.
// Name must still be set.
func DefaultConfig() *Config {
	return &Config{
		Platform: internalshm.Native(),
		Meter:    metricnoop.NewMeterProvider().Meter(instrumentationName),
		Tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		Observer: nopObserver{},
	}
}

// VerifyConfig reports whether config can build a Region.
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}
	if config.Platform == nil {
		return fmt.Errorf("%w: nil platform", ErrInvalidConfig)
	}
	return nil
}

// withDefaults fills unset platform and telemetry fields.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Platform == nil {
		c.Platform = d.Platform
	}
	if c.Meter == nil {
		c.Meter = d.Meter
	}
	if c.Tracer == nil {
		c.Tracer = d.Tracer
	}
	if c.Observer == nil {
		c.Observer = d.Observer
	}
	return c
}
