package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "meter",
	Name:      "sessions_active",
	Help:      "Number of live charging sessions.",
})

var wsConnectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "meter",
	Name:      "ws_connections_active",
	Help:      "Number of active websocket connections.",
})

var readingsCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "meter",
	Name:      "readings_emitted_total",
	Help:      "Total number of meter readings emitted.",
})

var energyCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "meter",
	Name:      "energy_delivered_kwh_total",
	Help:      "Total energy delivered across all sessions, in kWh.",
})

// ObserveActiveSessions records the current live session count.
func ObserveActiveSessions(count int) {
	activeSessionsGauge.Set(float64(count))
}

// ObserveConnections records the current websocket connection count.
func ObserveConnections(count int) {
	wsConnectionsGauge.Set(float64(count))
}

// CountReading counts one emitted reading and the energy it added.
func CountReading(energyDeltaKwh float64) {
	readingsCounter.Inc()
	if energyDeltaKwh > 0 {
		energyCounter.Add(energyDeltaKwh)
	}
}
