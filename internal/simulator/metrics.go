package simulator

import "github.com/prometheus/client_golang/prometheus"

var (
	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "whatif_ticks_total",
		Help: "Number of simulation ticks advanced.",
	})

	pitRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "whatif_pit_requests_total",
		Help: "Number of pit stop requests accepted.",
	})

	seeksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "whatif_seeks_total",
		Help: "Number of timeline seeks and rewinds.",
	})

	cursorSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "whatif_cursor_seconds",
		Help: "Current race time cursor in seconds.",
	})
)

func init() {
	prometheus.MustRegister(ticksTotal, pitRequestsTotal, seeksTotal, cursorSeconds)
}
