package report

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics holds the harness Prometheus collectors on a private registry.
// All methods are safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	iterations        *prometheus.CounterVec
	recoveries        *prometheus.CounterVec
	buffersAllocated  prometheus.Counter
	buffersReleased   prometheus.Counter
	releaseErrors     prometheus.Counter
	residentBytes     prometheus.Gauge
	fillDuration      prometheus.Histogram
	iterationDuration prometheus.Histogram
}

// NewMetrics creates and registers the harness collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memstress_iterations_total",
				Help: "Harness iterations by outcome",
			},
			[]string{"outcome"},
		),
		recoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memstress_recoveries_total",
				Help: "Recovery continuations fired, by trigger reason",
			},
			[]string{"reason"},
		),
		buffersAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memstress_buffers_allocated_total",
			Help: "Buffers allocated and stamped",
		}),
		buffersReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memstress_buffers_released_total",
			Help: "Buffers returned to the allocator",
		}),
		releaseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memstress_release_errors_total",
			Help: "Buffers the allocator failed to release",
		}),
		residentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memstress_resident_bytes",
			Help: "Bytes currently held in the buffer table",
		}),
		fillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memstress_buffer_fill_seconds",
			Help:    "Time to allocate and stamp one buffer",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		iterationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memstress_iteration_duration_seconds",
			Help:    "Wall time of one allocation pass",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}

	hostAvailable := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "memstress_host_memory_available_bytes",
		Help: "Host memory available for allocation",
	}, func() float64 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return 0
		}
		return float64(vm.Available)
	})

	m.registry.MustRegister(
		m.iterations,
		m.recoveries,
		m.buffersAllocated,
		m.buffersReleased,
		m.releaseErrors,
		m.residentBytes,
		m.fillDuration,
		m.iterationDuration,
		hostAvailable,
		collectors.NewGoCollector(),
	)

	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// BufferAllocated records one buffer installed into the table
func (m *Metrics) BufferAllocated(size int, took time.Duration) {
	if m == nil {
		return
	}
	m.buffersAllocated.Inc()
	m.residentBytes.Add(float64(size))
	m.fillDuration.Observe(took.Seconds())
}

// BufferReleased records one buffer returned to the allocator
func (m *Metrics) BufferReleased(size int) {
	if m == nil {
		return
	}
	m.buffersReleased.Inc()
	m.residentBytes.Sub(float64(size))
}

// ReleaseFailed records a buffer the allocator refused to take back.
// The buffer is still mapped, so it stays in the resident gauge.
func (m *Metrics) ReleaseFailed(size int) {
	if m == nil {
		return
	}
	m.releaseErrors.Inc()
}

// Recovered records a fired recovery continuation
func (m *Metrics) Recovered(reason string) {
	if m == nil {
		return
	}
	m.recoveries.WithLabelValues(reason).Inc()
}

// Record updates counters from a finished iteration
func (m *Metrics) Record(r *Result) {
	if m == nil {
		return
	}
	m.iterations.WithLabelValues(string(r.Outcome)).Inc()
	m.iterationDuration.Observe(r.Duration.Seconds())
}

// AllocatorStats is the accounting exposed by alloc.Tracked
type AllocatorStats interface {
	LiveBytes() int64
	LiveBuffers() int64
	Allocs() uint64
	Frees() uint64
}

// TrackAllocator exports the allocator's own accounting. Comparing it with
// memstress_resident_bytes shows buffers the table lost track of.
func (m *Metrics) TrackAllocator(stats AllocatorStats) {
	if m == nil || stats == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "memstress_allocator_live_bytes",
			Help: "Bytes allocated and not yet freed",
		}, func() float64 { return float64(stats.LiveBytes()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "memstress_allocator_live_buffers",
			Help: "Regions allocated and not yet freed",
		}, func() float64 { return float64(stats.LiveBuffers()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "memstress_allocator_allocs_total",
			Help: "Successful allocator requests",
		}, func() float64 { return float64(stats.Allocs()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "memstress_allocator_frees_total",
			Help: "Successful allocator releases",
		}, func() float64 { return float64(stats.Frees()) }),
	)
}
