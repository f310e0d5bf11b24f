package shm

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"sync"
	"unsafe"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shmregion/api"
	"github.com/srediag/shmregion/internal/logging"
	internalshm "github.com/srediag/shmregion/internal/shm"
)

var _ api.Segment[int32] = (*Region[int32])(nil)

var internalLogger = logging.New("shmregion", os.Stdout)

// SetLogLevel changes the level of the package logger (logging.LevelTrace ..
// logging.LevelNoPrint). The default is Warn.
func SetLogLevel(l int) {
	logging.SetLogLevel(l)
}

type instruments struct {
	connects   metric.Int64Counter
	failures   metric.Int64Counter
	disconnect metric.Int64Counter
	open       metric.Int64UpDownCounter
}

func newInstruments(m metric.Meter) (instruments, error) {
	var (
		in  instruments
		err error
	)
	if in.connects, err = m.Int64Counter("shm.region.connects",
		metric.WithDescription("Successful connects.")); err != nil {
		return in, err
	}
	if in.failures, err = m.Int64Counter("shm.region.connect_failures",
		metric.WithDescription("Failed connects by failure class.")); err != nil {
		return in, err
	}
	if in.disconnect, err = m.Int64Counter("shm.region.disconnects",
		metric.WithDescription("Disconnects of connected regions.")); err != nil {
		return in, err
	}
	if in.open, err = m.Int64UpDownCounter("shm.region.open",
		metric.WithDescription("Regions currently connected.")); err != nil {
		return in, err
	}
	return in, nil
}

// Region is a typed view of a named shared memory segment holding one T.
//
// A Region starts disconnected. Connect maps the segment, Disconnect unmaps
// it; both are idempotent and may be repeated. All methods lock the Region,
// so a Region may be shared between goroutines. A Region that becomes
// unreachable while connected is disconnected by its finalizer; use Close
// with defer to release it deterministically.
type Region[T any] struct {
	name string
	size int
	cfg  Config

	nameAttr attribute.KeyValue
	instr    instruments
	tracer   trace.Tracer

	mu     sync.Mutex
	region *internalshm.MappedRegion
}

// New returns a disconnected Region for the segment called name on the
// native platform. logWarnings makes connect and teardown failures show up
// in the log as well as in the return values.
func New[T any](name string, logWarnings bool) (*Region[T], error) {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.LogWarnings = logWarnings
	return NewWithConfig[T](cfg)
}

// NewWithConfig returns a disconnected Region built from config. No OS
// object is touched until Connect.
func NewWithConfig[T any](config *Config) (*Region[T], error) {
	if config == nil {
		return nil, VerifyConfig(nil)
	}
	cfg := config.withDefaults()
	if err := VerifyConfig(&cfg); err != nil {
		return nil, err
	}
	if err := checkPlainData(reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	instr, err := newInstruments(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("shm: metric instruments: %w", err)
	}

	var zero T
	r := &Region[T]{
		name:     cfg.Name,
		size:     int(unsafe.Sizeof(zero)),
		cfg:      cfg,
		nameAttr: attribute.String("shm.name", cfg.Name),
		instr:    instr,
		tracer:   cfg.Tracer,
	}
	runtime.SetFinalizer(r, (*Region[T]).finalize)
	return r, nil
}

// Name returns the segment name given at construction.
func (r *Region[T]) Name() string {
	return r.name
}

// Size returns the number of mapped bytes, unsafe.Sizeof(T).
func (r *Region[T]) Size() int {
	return r.size
}

// Connect maps the segment, creating and sizing it if this is the first
// process to use the name. It reports whether the Region is connected.
func (r *Region[T]) Connect() bool {
	return r.ConnectContext(context.Background()) == nil
}

// ConnectContext is Connect returning the reason for a failure, which wraps
// ErrAcquire, ErrSize or ErrMap. ctx carries the trace span only; the call
// is not cancellable.
func (r *Region[T]) ConnectContext(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.region != nil {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "shm.Region.Connect",
		trace.WithAttributes(r.nameAttr, attribute.Int("shm.size", r.size)))
	defer span.End()

	region, err := internalshm.MapRegion(ctx, r.cfg.Platform, internalshm.MapOptions{
		Name: r.name,
		Size: r.size,
	})
	r.cfg.Observer.ObserveConnect(r.name, err)
	if err != nil {
		class := errorClass(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, class)
		r.instr.failures.Add(ctx, 1,
			metric.WithAttributes(r.nameAttr, attribute.String("shm.error", class)))
		if r.cfg.LogWarnings {
			internalLogger.Warnf("couldn't connect to shared memory with name: %s: %v", r.name, err)
		}
		return err
	}

	r.region = region
	r.instr.connects.Add(ctx, 1, metric.WithAttributes(r.nameAttr))
	r.instr.open.Add(ctx, 1, metric.WithAttributes(r.nameAttr))
	internalLogger.Debugf("connected to shared memory %s, %d bytes", r.name, r.size)
	return nil
}

// Disconnect unmaps the segment and releases the OS handle. It always
// reports true: teardown errors leave nothing to recover, so they are only
// logged when the Region was built with log warnings.
func (r *Region[T]) Disconnect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectLocked()
	return true
}

// Close disconnects the Region. It always returns nil.
func (r *Region[T]) Close() error {
	r.Disconnect()
	return nil
}

func (r *Region[T]) finalize() {
	r.Disconnect()
}

func (r *Region[T]) disconnectLocked() {
	if r.region == nil {
		return
	}
	ctx, span := r.tracer.Start(context.Background(), "shm.Region.Disconnect",
		trace.WithAttributes(r.nameAttr))
	defer span.End()

	if err := internalshm.UnmapRegion(ctx, r.cfg.Platform, r.region); err != nil {
		span.RecordError(err)
		if r.cfg.LogWarnings {
			internalLogger.Warnf("shared memory %s teardown: %v", r.name, err)
		}
	}
	r.region = nil
	r.cfg.Observer.ObserveDisconnect(r.name)
	r.instr.disconnect.Add(ctx, 1, metric.WithAttributes(r.nameAttr))
	r.instr.open.Add(ctx, -1, metric.WithAttributes(r.nameAttr))
	internalLogger.Debugf("disconnected from shared memory %s", r.name)
}

// IsConnected reports whether the segment is currently mapped.
func (r *Region[T]) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.region != nil
}

// Read returns a copy of the value currently in the segment.
func (r *Region[T]) Read() (T, error) {
	var v T
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.region == nil {
		return v, fmt.Errorf("%w: %s", ErrNotConnected, r.name)
	}
	internalshm.ReadInto(bytesOf(&v), r.region.Addr)
	return v, nil
}

// Write replaces the whole segment with v.
func (r *Region[T]) Write(v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.region == nil {
		return fmt.Errorf("%w: %s", ErrNotConnected, r.name)
	}
	internalshm.WriteFrom(r.region.Addr, bytesOf(&v))
	return nil
}
