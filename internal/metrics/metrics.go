// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes kvember's operational counters and gauges as
// Prometheus collectors, registered against a private registry so tests
// can construct independent Metrics values without colliding on the
// default global registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the connection pipeline and accept loop
// update. ConnectionsClosed is registered but neither of them increments
// it, so it stays at zero. A nil *Metrics is not valid; use New to
// construct one.
type Metrics struct {
	Registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	ConnectionsClosed   *prometheus.CounterVec // label: reason

	CommandsTotal *prometheus.CounterVec // label: command
	CommandErrors *prometheus.CounterVec // label: kind

	QueueDepth         prometheus.Histogram
	BackpressureStalls prometheus.Counter

	WriteBatchBytes prometheus.Histogram
}

// New builds a Metrics value with all collectors registered against a
// fresh prometheus.Registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvember",
			Name:      "connections_accepted_total",
			Help:      "Total TCP connections accepted.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kvember",
			Name:      "connections_active",
			Help:      "Currently open connections.",
		}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvember",
			Name:      "connections_closed_total",
			Help:      "Closed connections by reason.",
		}, []string{"reason"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvember",
			Name:      "commands_total",
			Help:      "Dispatched commands by name.",
		}, []string{"command"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvember",
			Name:      "command_errors_total",
			Help:      "Command error replies by kind.",
		}, []string{"kind"}),
		QueueDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kvember",
			Name:      "response_queue_depth",
			Help:      "Observed per-connection response queue depth at enqueue time.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		BackpressureStalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kvember",
			Name:      "backpressure_stalls_total",
			Help:      "Times the reader blocked because the response queue was full.",
		}),
		WriteBatchBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kvember",
			Name:      "write_batch_bytes",
			Help:      "Bytes written per batched write syscall.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		}),
	}

	reg.MustRegister(
		m.ConnectionsAccepted,
		m.ConnectionsActive,
		m.ConnectionsClosed,
		m.CommandsTotal,
		m.CommandErrors,
		m.QueueDepth,
		m.BackpressureStalls,
		m.WriteBatchBytes,
	)
	return m
}
