package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry con los collectors del servicio
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gatepay",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight console requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatepay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of console requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	transportRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatepay",
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Outbound calls by target and transport result.",
		},
		[]string{"target", "result"},
	)

	transportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gatepay",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound calls by target.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"target"},
	)

	outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatepay",
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Outcomes published to observers, by kind.",
		},
		[]string{"kind"},
	)

	staleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatepay",
			Subsystem: "pipeline",
			Name:      "stale_results_total",
			Help:      "Terminal results discarded because a newer submission superseded them.",
		},
	)

	inputErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatepay",
			Subsystem: "pipeline",
			Name:      "input_errors_total",
			Help:      "Submissions rejected locally for a blank order id.",
		},
	)

	restarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatepay",
			Subsystem: "surface",
			Name:      "restarts_total",
			Help:      "Surface restarts caused by appearance changes.",
		},
	)

	cashierOpens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatepay",
			Subsystem: "cashier",
			Name:      "opens_total",
			Help:      "Payment page hand-offs by result.",
		},
		[]string{"success"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gatepay",
			Subsystem: "transport",
			Name:      "breaker_open",
			Help:      "1 while the target's circuit breaker is not closed.",
		},
		[]string{"target"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		transportRequests,
		transportDuration,
		outcomes,
		staleResults,
		inputErrors,
		restarts,
		cashierOpens,
		breakerState,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler expone las métricas registradas
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler mide las peticiones a la consola.
// /metrics y el websocket pasan sin medir.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/events" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(strings.ToUpper(r.Method), canonicalPath(r.URL.Path), strconv.Itoa(rec.status)).Inc()
	})
}

// RecordTransportCall registra una llamada saliente. target es quien llama
// ("signature", "cashier"); result es "ok", "http_error", "transport_error"
// o "circuit_open".
func RecordTransportCall(target, result string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	transportRequests.WithLabelValues(target, result).Inc()
	transportDuration.WithLabelValues(target).Observe(duration.Seconds())
}

func RecordOutcome(kind string) { outcomes.WithLabelValues(kind).Inc() }

func RecordStaleResult() { staleResults.Inc() }

func RecordInputError() { inputErrors.Inc() }

func RecordRestart() { restarts.Inc() }

func RecordCashierOpen(success bool) {
	cashierOpens.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func SetBreakerOpen(target string, open bool) {
	if open {
		breakerState.WithLabelValues(target).Set(1)
		return
	}
	breakerState.WithLabelValues(target).Set(0)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + strings.SplitN(trimmed, "/", 2)[0]
}
