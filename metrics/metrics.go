// Package metrics exposes prometheus metrics for the monitoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rollupmon/rollupmon/types"
)

const Namespace = "rollupmon"

type Metricer interface {
	RecordInfo(version string)
	RecordUp()
	RecordEvent(ev *types.RollupEvent)
	RecordHealthStatus(rollup string, status types.HealthStatus)
	RecordReconnect(rollup, stream string)
	RecordSequencerBlock(rollup string, blockNumber uint64)
	RecordSequencerProducing(rollup string, producing bool)
	RecordDroppedEvents(count uint64)
	RecordSubscribers(count int)
}

type Metrics struct {
	registry *prometheus.Registry

	info *prometheus.GaugeVec
	up   prometheus.Gauge

	events       *prometheus.CounterVec
	healthStatus *prometheus.GaugeVec
	reconnects   *prometheus.CounterVec

	sequencerBlock     *prometheus.GaugeVec
	sequencerProducing *prometheus.GaugeVec

	droppedEvents prometheus.Gauge
	subscribers   prometheus.Gauge
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		info: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "info",
			Help:      "Pseudo-metric tracking version info",
		}, []string{"version"}),
		up: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "up",
			Help:      "1 if the service has finished starting up",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Count of settlement events observed",
		}, []string{"rollup", "event_type"}),
		healthStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "health_status",
			Help:      "Health classification per rollup (0 healthy, 1 delayed, 2 halted, 3 disconnected)",
		}, []string{"rollup"}),
		reconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stream_reconnects_total",
			Help:      "Count of event stream reconnect attempts",
		}, []string{"rollup", "stream"}),
		sequencerBlock: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sequencer_latest_block",
			Help:      "Latest L2 block number seen by the sequencer poller",
		}, []string{"rollup"}),
		sequencerProducing: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sequencer_producing",
			Help:      "1 if the L2 sequencer is producing blocks",
		}, []string{"rollup"}),
		droppedEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "broadcast_dropped_events",
			Help:      "Total events shed from slow subscriber queues",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "broadcast_subscribers",
			Help:      "Current number of event stream subscribers",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordInfo sets a pseudo-metric that contains version info.
func (m *Metrics) RecordInfo(version string) {
	m.info.WithLabelValues(version).Set(1)
}

// RecordUp sets the up metric to 1.
func (m *Metrics) RecordUp() {
	m.up.Set(1)
}

func (m *Metrics) RecordEvent(ev *types.RollupEvent) {
	m.events.WithLabelValues(ev.Rollup, ev.EventType).Inc()
}

func (m *Metrics) RecordHealthStatus(rollup string, status types.HealthStatus) {
	m.healthStatus.WithLabelValues(rollup).Set(float64(status))
}

func (m *Metrics) RecordReconnect(rollup, stream string) {
	m.reconnects.WithLabelValues(rollup, stream).Inc()
}

func (m *Metrics) RecordSequencerBlock(rollup string, blockNumber uint64) {
	m.sequencerBlock.WithLabelValues(rollup).Set(float64(blockNumber))
}

func (m *Metrics) RecordSequencerProducing(rollup string, producing bool) {
	v := 0.0
	if producing {
		v = 1.0
	}
	m.sequencerProducing.WithLabelValues(rollup).Set(v)
}

func (m *Metrics) RecordDroppedEvents(count uint64) {
	m.droppedEvents.Set(float64(count))
}

func (m *Metrics) RecordSubscribers(count int) {
	m.subscribers.Set(float64(count))
}
