// Package metrics exposes poll and command counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Poll outcomes.
const (
	PollApplied  = "applied"
	PollStale    = "stale"
	PollFailed   = "failed"
	PollCanceled = "canceled"
)

// Collector captures client-side telemetry. Implementations must be cheap
// because hooks run inline with polls and commands.
type Collector interface {
	ObservePoll(outcome string, latency time.Duration)
	ObserveCommand(command, outcome string)
	SetActiveEvents(running bool, count int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObservePoll(string, time.Duration) {}
func (noopCollector) ObserveCommand(string, string)     {}
func (noopCollector) SetActiveEvents(bool, int)         {}

// PrometheusCollector exposes the client counters via Prometheus.
type PrometheusCollector struct {
	polls        *prometheus.CounterVec
	pollLatency  prometheus.Histogram
	commands     *prometheus.CounterVec
	running      prometheus.Gauge
	activeEvents prometheus.Gauge
}

// NewPrometheusCollector registers the metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsim_status_polls_total",
			Help: "Status polls by outcome (applied, stale, failed, canceled).",
		}, []string{"outcome"}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "subsim_status_poll_duration_seconds",
			Help:    "Round-trip time of status polls.",
			Buckets: prometheus.DefBuckets,
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsim_commands_total",
			Help: "Dispatched operator commands by command and outcome.",
		}, []string{"command", "outcome"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subsim_simulation_running",
			Help: "1 when the last applied snapshot reports a running simulation.",
		}),
		activeEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subsim_active_events",
			Help: "Number of active events in the last applied snapshot.",
		}),
	}
	for _, col := range []prometheus.Collector{c.polls, c.pollLatency, c.commands, c.running, c.activeEvents} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObservePoll records one poll outcome.
func (c *PrometheusCollector) ObservePoll(outcome string, latency time.Duration) {
	c.polls.WithLabelValues(outcome).Inc()
	c.pollLatency.Observe(latency.Seconds())
}

// ObserveCommand records one dispatched command.
func (c *PrometheusCollector) ObserveCommand(command, outcome string) {
	c.commands.WithLabelValues(command, outcome).Inc()
}

// SetActiveEvents records the applied snapshot's headline values.
func (c *PrometheusCollector) SetActiveEvents(running bool, count int) {
	if running {
		c.running.Set(1)
	} else {
		c.running.Set(0)
	}
	c.activeEvents.Set(float64(count))
}

// PollsTotal returns the poll counter for outcome.
func (c *PrometheusCollector) PollsTotal(outcome string) prometheus.Counter {
	return c.polls.WithLabelValues(outcome)
}
