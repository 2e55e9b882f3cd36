package thermal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thermald_query_total",
			Help: "Total number of thermal queries by family and status",
		},
		[]string{"family", "status"},
	)

	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thermald_query_duration_seconds",
			Help:    "Duration of thermal queries in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"family"},
	)

	notificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thermald_notification_total",
			Help: "Total number of listener notifications",
		},
		[]string{"result"}, // delivered or failed
	)

	listenerCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thermald_listeners",
			Help: "Number of registered throttling listeners",
		},
	)

	sensorSeverity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thermald_sensor_severity",
			Help: "Last observed throttling severity per sensor (0 = NONE, 6 = SHUTDOWN)",
		},
		[]string{"sensor"},
	)

	sensorTemperature = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thermald_sensor_temperature_celsius",
			Help: "Last observed temperature per sensor",
		},
		[]string{"sensor"},
	)
)

func observeQuery(family string, code StatusCode, d time.Duration) {
	queryTotal.WithLabelValues(family, code.String()).Inc()
	queryDuration.WithLabelValues(family).Observe(d.Seconds())
}

func observeSensor(t Temperature) {
	sensorSeverity.WithLabelValues(t.Name).Set(float64(t.Severity))
	sensorTemperature.WithLabelValues(t.Name).Set(t.Value)
}
