package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "smartgen_"

	resultSuccess = "success"
	resultError   = "error"

	optimizeResultNoWindow         = "no_window"
	optimizeResultInsufficientData = "insufficient_data"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	optimizationRuns    *prometheus.CounterVec
	optimizationLatency *prometheus.HistogramVec

	advisorRequests *prometheus.CounterVec

	simulatorReadings prometheus.Counter

	websocketClients prometheus.Gauge

	mqttMessages *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total telemetry ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total telemetry ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Telemetry ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		optimizationRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "optimization_runs_total",
				Help: "Total optimization runs by result",
			},
			[]string{"result"},
		)
		optimizationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "optimization_latency_seconds",
				Help:    "Optimization run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		advisorRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "advisor_requests_total",
				Help: "Total advisor completions by result",
			},
			[]string{"result"},
		)

		simulatorReadings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "simulator_readings_total",
				Help: "Total readings produced by the simulator",
			},
		)

		websocketClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "websocket_clients",
				Help: "Currently connected websocket clients",
			},
		)

		mqttMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "mqtt_messages_total",
				Help: "Total MQTT telemetry messages by result",
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			optimizationRuns,
			optimizationLatency,
			advisorRequests,
			simulatorReadings,
			websocketClients,
			mqttMessages,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveOptimization records optimization run latency and result.
func ObserveOptimization(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if optimizationRuns != nil {
		optimizationRuns.WithLabelValues(result).Inc()
	}
	if optimizationLatency != nil {
		optimizationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncAdvisorRequest increments advisor completion counter by result.
func IncAdvisorRequest(result string) {
	if result == "" {
		result = "unknown"
	}
	if advisorRequests != nil {
		advisorRequests.WithLabelValues(result).Inc()
	}
}

// IncSimulatorReading increments the generated reading counter.
func IncSimulatorReading() {
	if simulatorReadings != nil {
		simulatorReadings.Inc()
	}
}

// AddWebsocketClient tracks a new websocket connection.
func AddWebsocketClient() {
	if websocketClients != nil {
		websocketClients.Inc()
	}
}

// RemoveWebsocketClient tracks a closed websocket connection.
func RemoveWebsocketClient() {
	if websocketClients != nil {
		websocketClients.Dec()
	}
}

// IncMQTTMessage increments the MQTT message counter by result.
func IncMQTTMessage(result string) {
	if result == "" {
		result = "unknown"
	}
	if mqttMessages != nil {
		mqttMessages.WithLabelValues(result).Inc()
	}
}

// ObserveExport records report export latency, format and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	OptimizeResultNoWindow         = optimizeResultNoWindow
	OptimizeResultInsufficientData = optimizeResultInsufficientData
)
