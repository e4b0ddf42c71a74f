// Package monitor exposes prometheus metrics for the sensor hub.
package monitor

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// Session lifecycle
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sensorhub_active_sessions",
		Help: "Sessions currently connected.",
	})

	ConnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_connects_total",
		Help: "Successful serial connections.",
	})

	ReadFaults = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_read_faults_total",
		Help: "Hard I/O errors that terminated a receive loop.",
	})

	// Receive path
	LinesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_lines_received_total",
		Help: "Non-empty lines captured from the serial port.",
	})

	ParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_parse_failures_total",
		Help: "Lines dropped because no format could decode them.",
	})

	ReadingsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensorhub_readings_delivered_total",
			Help: "Decoded readings handed to the observer.",
		},
		[]string{"device_id"},
	)

	// Send path
	CommandsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_commands_sent_total",
		Help: "Commands written to the serial port.",
	})

	WriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_write_failures_total",
		Help: "Command writes that failed.",
	})
)

// Register registers all collectors with the default registry. Call once
// from main; library code only increments.
func Register() {
	prometheus.MustRegister(
		ActiveSessions,
		ConnectsTotal,
		ReadFaults,
		LinesReceived,
		ParseFailures,
		ReadingsDelivered,
		CommandsSent,
		WriteFailures,
	)
}

// StartMetricsServer serves /metrics and /health on the given port in a
// background goroutine.
func StartMetricsServer(port int, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Infof("metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()
}
