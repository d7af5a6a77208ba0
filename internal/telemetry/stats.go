package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds process-wide telemetry counters. A nil *Stats is valid and
// records nothing.
type Stats struct {
	ingested          prometheus.Counter
	duplicates        prometheus.Counter
	decodeErrors      prometheus.Counter
	reconnects        prometheus.Counter
	metricsUpdates    prometheus.Counter
	connectedChannels prometheus.Gauge
}

func NewStats(reg prometheus.Registerer) (*Stats, error) {
	s := &Stats{
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentfeed",
			Name:      "actions_ingested_total",
			Help:      "Action records accepted into a session log.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentfeed",
			Name:      "actions_duplicate_total",
			Help:      "Action records dropped because their id was already logged.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentfeed",
			Name:      "channel_decode_errors_total",
			Help:      "Inbound frames dropped because they could not be decoded.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentfeed",
			Name:      "channel_reconnects_total",
			Help:      "Reconnect attempts after a dropped or failed channel.",
		}),
		metricsUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentfeed",
			Name:      "metrics_updates_total",
			Help:      "metrics_update events applied from the source.",
		}),
		connectedChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentfeed",
			Name:      "channels_connected",
			Help:      "Event channels currently connected.",
		}),
	}

	if reg == nil {
		return s, nil
	}

	for _, c := range []prometheus.Collector{s.ingested, s.duplicates, s.decodeErrors, s.reconnects, s.metricsUpdates, s.connectedChannels} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register telemetry collector: %w", err)
		}
	}

	return s, nil
}

func (s *Stats) IncIngested() {
	if s != nil {
		s.ingested.Inc()
	}
}

func (s *Stats) IncDuplicates() {
	if s != nil {
		s.duplicates.Inc()
	}
}

func (s *Stats) IncDecodeErrors() {
	if s != nil {
		s.decodeErrors.Inc()
	}
}

func (s *Stats) IncReconnects() {
	if s != nil {
		s.reconnects.Inc()
	}
}

func (s *Stats) IncMetricsUpdates() {
	if s != nil {
		s.metricsUpdates.Inc()
	}
}

func (s *Stats) ChannelConnected() {
	if s != nil {
		s.connectedChannels.Inc()
	}
}

func (s *Stats) ChannelDisconnected() {
	if s != nil {
		s.connectedChannels.Dec()
	}
}
