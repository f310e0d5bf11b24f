// Package metrics exports shared memory region activity to Prometheus.
//
// A Collector is an shm.Observer: set it as Config.Observer on every Region
// to be counted, and register it with a prometheus.Registerer.
package metrics

import (
	"errors"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/shmregion/pkg/shm"
)

var failureClasses = [...]string{"acquire", "size", "map", "unknown"}

func failureClass(err error) int {
	switch {
	case errors.Is(err, shm.ErrAcquire):
		return 0
	case errors.Is(err, shm.ErrSize):
		return 1
	case errors.Is(err, shm.ErrMap):
		return 2
	default:
		return 3
	}
}

type segmentStats struct {
	connects    atomic.Uint64
	disconnects atomic.Uint64
	failures    [len(failureClasses)]atomic.Uint64
}

// Collector counts connects, failed connects and disconnects per segment
// name and derives how many instances of each name are connected.
type Collector struct {
	stats cmap.ConcurrentMap[string, *segmentStats]

	connects    *prometheus.Desc
	failures    *prometheus.Desc
	disconnects *prometheus.Desc
	connected   *prometheus.Desc
}

var (
	_ shm.Observer         = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// NewCollector returns a Collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "shm_region", n)
	}
	return &Collector{
		stats: cmap.New[*segmentStats](),
		connects: prometheus.NewDesc(name("connects_total"),
			"Successful connects.", []string{"segment"}, nil),
		failures: prometheus.NewDesc(name("connect_failures_total"),
			"Failed connects by failure class.", []string{"segment", "class"}, nil),
		disconnects: prometheus.NewDesc(name("disconnects_total"),
			"Disconnects of connected regions.", []string{"segment"}, nil),
		connected: prometheus.NewDesc(name("connected"),
			"Region instances currently connected.", []string{"segment"}, nil),
	}
}

func (c *Collector) segment(name string) *segmentStats {
	return c.stats.Upsert(name, nil, func(exist bool, cur *segmentStats, _ *segmentStats) *segmentStats {
		if exist {
			return cur
		}
		return &segmentStats{}
	})
}

// ObserveConnect implements shm.Observer.
func (c *Collector) ObserveConnect(name string, err error) {
	s := c.segment(name)
	if err != nil {
		s.failures[failureClass(err)].Add(1)
		return
	}
	s.connects.Add(1)
}

// ObserveDisconnect implements shm.Observer.
func (c *Collector) ObserveDisconnect(name string) {
	c.segment(name).disconnects.Add(1)
}

// Connected returns how many instances of name are connected right now.
func (c *Collector) Connected(name string) int {
	s, ok := c.stats.Get(name)
	if !ok {
		return 0
	}
	return int(s.connects.Load() - s.disconnects.Load())
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connects
	ch <- c.failures
	ch <- c.disconnects
	ch <- c.connected
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for item := range c.stats.IterBuffered() {
		name, s := item.Key, item.Val
		connects, disconnects := s.connects.Load(), s.disconnects.Load()
		ch <- prometheus.MustNewConstMetric(c.connects, prometheus.CounterValue, float64(connects), name)
		ch <- prometheus.MustNewConstMetric(c.disconnects, prometheus.CounterValue, float64(disconnects), name)
		ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, float64(connects-disconnects), name)
		for i, class := range failureClasses {
			ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.failures[i].Load()), name, class)
		}
	}
}
