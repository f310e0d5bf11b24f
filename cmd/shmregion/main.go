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

// Command shmregion reads, writes, watches and stresses a named shared
// memory segment holding a single number.
//
//	shmregion -name counter -type int32 write 42
//	shmregion -name counter -type int32 read
//	shmregion -name counter -type int32 -addr :9464 watch
//	shmregion -name counter -type int32 -workers 8 -ops 100000 stress
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/srediag/shmregion/pkg/shm"
)

type number interface {
	int32 | int64 | uint64 | float64
}

type options struct {
	name        string
	logWarnings bool
	addr        string
	interval    time.Duration
	workers     int
	ops         int

	platform shm.Platform
	observer shm.Observer
	out      io.Writer
}

func (o *options) config() *shm.Config {
	cfg := shm.DefaultConfig()
	cfg.Name = o.name
	cfg.LogWarnings = o.logWarnings
	if o.platform != nil {
		cfg.Platform = o.platform
	}
	if o.observer != nil {
		cfg.Observer = o.observer
	}
	return cfg
}

var errUsage = errors.New("usage")

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] write <value> | read | watch | stress\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	opts := &options{out: os.Stdout}
	var typ string

	flag.StringVar(&opts.name, "name", "shmregion", "shared memory segment name")
	flag.StringVar(&typ, "type", "int64", "value type: int32, int64, uint64 or float64")
	flag.BoolVar(&opts.logWarnings, "log-warnings", true, "log connect and teardown failures")
	flag.StringVar(&opts.addr, "addr", ":9464", "listen address for /metrics, /live and /ready (watch)")
	flag.DurationVar(&opts.interval, "interval", 100*time.Millisecond, "poll interval (watch)")
	flag.IntVar(&opts.workers, "workers", 8, "worker pool size (stress)")
	flag.IntVar(&opts.ops, "ops", 100000, "number of write+read pairs (stress)")
	flag.Usage = usage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch typ {
	case "int32":
		err = run[int32](ctx, opts, flag.Args())
	case "int64":
		err = run[int64](ctx, opts, flag.Args())
	case "uint64":
		err = run[uint64](ctx, opts, flag.Args())
	case "float64":
		err = run[float64](ctx, opts, flag.Args())
	default:
		err = fmt.Errorf("%w: unknown type %q", errUsage, typ)
	}
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "shmregion: %v\n", err)
		os.Exit(1)
	}
}

func run[T number](ctx context.Context, opts *options, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	switch cmd := args[0]; cmd {
	case "write":
		if len(args) != 2 {
			return fmt.Errorf("%w: write takes one value", errUsage)
		}
		v, err := parse[T](args[1])
		if err != nil {
			return err
		}
		return write(ctx, opts, v)
	case "read":
		return read[T](ctx, opts)
	case "watch":
		return watch[T](ctx, opts)
	case "stress":
		return stress[T](ctx, opts)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func parse[T number](s string) (T, error) {
	var (
		v   T
		err error
	)
	switch p := any(&v).(type) {
	case *int32:
		var n int64
		n, err = strconv.ParseInt(s, 0, 32)
		*p = int32(n)
	case *int64:
		*p, err = strconv.ParseInt(s, 0, 64)
	case *uint64:
		*p, err = strconv.ParseUint(s, 0, 64)
	case *float64:
		*p, err = strconv.ParseFloat(s, 64)
	}
	return v, err
}
