/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/heptiolabs/healthcheck"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/bytebufferpool"

	"github.com/srediag/shmregion/api"
	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/health"
	"github.com/srediag/shmregion/pkg/lifecycle"
	"github.com/srediag/shmregion/pkg/metrics"
	"github.com/srediag/shmregion/pkg/shm"
)

const watchBatch = 16

var logger = logging.New("shmregion", os.Stderr)

func withRegion[T number](ctx context.Context, opts *options, fn func(r *shm.Region[T]) error) error {
	r, err := shm.NewWithConfig[T](opts.config())
	if err != nil {
		return err
	}
	defer r.Close()
	return lifecycle.With(ctx, r, nil, func() error { return fn(r) })
}

func write[T number](ctx context.Context, opts *options, v T) error {
	return withRegion(ctx, opts, func(r *shm.Region[T]) error {
		if err := r.Write(v); err != nil {
			return err
		}
		fmt.Fprintf(opts.out, "%s = %v\n", r.Name(), v)
		return nil
	})
}

func read[T number](ctx context.Context, opts *options) error {
	return withRegion(ctx, opts, func(r *shm.Region[T]) error {
		v, err := r.Read()
		if err != nil {
			return err
		}
		fmt.Fprintf(opts.out, "%s = %v [%s]\n", r.Name(), v, hexdump(v))
		return nil
	})
}

type sample[T number] struct {
	at    time.Time
	value T
}

// watch prints every change of the value until ctx is done. When opts.addr
// is set it also serves /metrics, /live and /ready.
func watch[T number](ctx context.Context, opts *options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.NewCollector("shmregion")
	opts.observer = collector
	r, err := shm.NewWithConfig[T](opts.config())
	if err != nil {
		return err
	}
	defer r.Close()

	serveErr := make(chan error, 1)
	if opts.addr != "" {
		srv := newAdminServer(opts.addr, collector, r.Name(), r)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("admin server on %s: %v", opts.addr, err)
				serveErr <- err
				cancel()
			}
		}()
		defer srv.Shutdown(context.Background()) //nolint:errcheck
	}

	if err := lifecycle.Connect(ctx, r, nil); err != nil {
		return err
	}

	samples := queue.New(watchBatch)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printSamples[T](opts.out, samples)
	}()

	logger.Infof("watching %s every %s", r.Name(), opts.interval)
	err = poll(ctx, r, opts.interval, samples)
	rest := samples.Dispose()
	<-printed
	for _, item := range rest {
		printSample(opts.out, item.(sample[T]))
	}

	select {
	case serr := <-serveErr:
		return serr
	default:
		return err
	}
}

func newAdminServer(addr string, collector prometheus.Collector, name string, seg api.Lifecycle) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector, collectors.NewGoCollector())

	checks := healthcheck.NewHandler()
	health.Register(checks, name, seg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/live", checks)
	mux.Handle("/ready", checks)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func poll[T number](ctx context.Context, r *shm.Region[T], interval time.Duration, samples *queue.Queue) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last  T
		first = true
	)
	for {
		v, err := r.Read()
		if err != nil {
			return err
		}
		if first || v != last {
			if err := samples.Put(sample[T]{at: time.Now(), value: v}); err != nil {
				return err
			}
			last, first = v, false
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printSamples[T number](out io.Writer, samples *queue.Queue) {
	for {
		items, err := samples.Get(watchBatch)
		if err != nil {
			return
		}
		for _, item := range items {
			printSample(out, item.(sample[T]))
		}
	}
}

func printSample[T number](out io.Writer, s sample[T]) {
	fmt.Fprintf(out, "%s %v [%s]\n", s.at.Format(time.RFC3339Nano), s.value, hexdump(s.value))
}

// stress writes and reads one Region from a pool of goroutines.
func stress[T number](ctx context.Context, opts *options) error {
	if opts.workers <= 0 || opts.ops <= 0 {
		return fmt.Errorf("%w: workers and ops must be positive", errUsage)
	}
	pool, err := ants.NewPool(opts.workers, ants.WithPreAlloc(true))
	if err != nil {
		return err
	}
	defer pool.Release()

	return withRegion(ctx, opts, func(r *shm.Region[T]) error {
		var (
			wg       sync.WaitGroup
			done     atomic.Int64
			failures atomic.Int64
		)
		start := time.Now()
		for i := 0; i < opts.ops && ctx.Err() == nil; i++ {
			v := T(i)
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				defer done.Add(1)
				if err := r.Write(v); err != nil {
					failures.Add(1)
					return
				}
				if _, err := r.Read(); err != nil {
					failures.Add(1)
				}
			})
			if err != nil {
				wg.Done()
				wg.Wait()
				return err
			}
		}
		wg.Wait()
		elapsed := time.Since(start)

		n := done.Load()
		fmt.Fprintf(opts.out, "%d ops by %d workers in %s (%.0f ops/s), %d failures\n",
			n, opts.workers, elapsed, float64(n)/elapsed.Seconds(), failures.Load())
		if f := failures.Load(); f > 0 {
			return fmt.Errorf("%d of %d ops failed", f, n)
		}
		return nil
	})
}

func hexdump[T number](v T) string {
	const digits = "0123456789abcdef"
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	for i, c := range unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)) {
		if i > 0 {
			buf.B = append(buf.B, ' ')
		}
		buf.B = append(buf.B, digits[c>>4], digits[c&0x0f])
	}
	return buf.String()
}
