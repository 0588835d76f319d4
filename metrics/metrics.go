// Package metrics exposes APT connection counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/go-apt/apt"
)

// Namespace prefixes every metric name.
const Namespace = "apt"

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type counterDef struct {
	name string
	help string
	load func(m *apt.ConnectionMetrics) uint64
}

var counterDefs = []counterDef{
	{"messages_sent_total", "Messages written to the controller.", func(m *apt.ConnectionMetrics) uint64 { return m.MsgSendCount.Load() }},
	{"messages_received_total", "Messages decoded from the controller.", func(m *apt.ConnectionMetrics) uint64 { return m.MsgRecvCount.Load() }},
	{"message_errors_total", "Frames that failed to encode or decode.", func(m *apt.ConnectionMetrics) uint64 { return m.MsgErrCount.Load() }},
	{"queries_total", "Request/response exchanges issued.", func(m *apt.ConnectionMetrics) uint64 { return m.QueryCount.Load() }},
	{"query_retries_total", "Decode attempts repeated after a receive timeout.", func(m *apt.ConnectionMetrics) uint64 { return m.QueryRetryCount.Load() }},
	{"query_timeouts_total", "Queries abandoned on a receive timeout.", func(m *apt.ConnectionMetrics) uint64 { return m.QueryTimeoutCount.Load() }},
	{"mismatches_total", "Responses carrying an unexpected message ID.", func(m *apt.ConnectionMetrics) uint64 { return m.MismatchCount.Load() }},
	{"truncated_total", "Messages that stopped arriving part way.", func(m *apt.ConnectionMetrics) uint64 { return m.TruncatedCount.Load() }},
	{"drained_bytes_total", "Stray bytes discarded while resynchronizing.", func(m *apt.ConnectionMetrics) uint64 { return m.DrainedBytes.Load() }},
}

// ConnectionCollector reports the counters of one connection, labelled
// with its port.
type ConnectionCollector struct {
	counters []prometheus.CounterFunc
}

var _ prometheus.Collector = (*ConnectionCollector)(nil)

// NewConnectionCollector creates a collector over conn's metrics.
func NewConnectionCollector(conn *apt.Connection) *ConnectionCollector {
	m := conn.GetMetrics()
	labels := prometheus.Labels{"port": conn.Name()}

	c := &ConnectionCollector{counters: make([]prometheus.CounterFunc, 0, len(counterDefs))}
	for _, def := range counterDefs {
		load := def.load
		c.counters = append(c.counters, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   Namespace,
			Subsystem:   "connection",
			Name:        def.name,
			Help:        def.help,
			ConstLabels: labels,
		}, func() float64 { return float64(load(m)) }))
	}

	return c
}

// Describe implements prometheus.Collector.
func (c *ConnectionCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, counter := range c.counters {
		counter.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *ConnectionCollector) Collect(ch chan<- prometheus.Metric) {
	for _, counter := range c.counters {
		counter.Collect(ch)
	}
}

// Register adds a collector for conn to reg.
func Register(reg prometheus.Registerer, conn *apt.Connection) (*ConnectionCollector, error) {
	c := NewConnectionCollector(conn)
	if err := reg.Register(c); err != nil {
		return nil, err
	}

	return c, nil
}
