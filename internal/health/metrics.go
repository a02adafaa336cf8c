package health

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the poll-loop counters exposed on the /metrics endpoint.
type Metrics struct {
	TicksTotal        prometheus.Counter
	SkippedTicksTotal prometheus.Counter
	ParseErrorsTotal  prometheus.Counter
	Connections       prometheus.Gauge
	StatsKeys         prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soratop_ticks_total",
			Help: "Successfully processed polling ticks.",
		}),
		SkippedTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soratop_skipped_ticks_total",
			Help: "Ticks skipped because of fetch or record-read failures.",
		}),
		ParseErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soratop_parse_errors_total",
			Help: "Reports dropped because the body was malformed.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soratop_connections",
			Help: "Connections retained by the filters in the latest report.",
		}),
		StatsKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soratop_stats_keys",
			Help: "Distinct stats keys in the latest aggregated report.",
		}),
	}
	reg.MustRegister(m.TicksTotal, m.SkippedTicksTotal, m.ParseErrorsTotal, m.Connections, m.StatsKeys)
	return m
}
