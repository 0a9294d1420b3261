package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	LoginsTotal      *prometheus.CounterVec
	PasscodeRotated  prometheus.Counter
	CompletionsTotal *prometheus.CounterVec
	ChatFallbacks    prometheus.Counter
	CSVImportedItems prometheus.Counter
}

// NewCollector registers the service metrics on a private registry so tests
// can build as many collectors as they like.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "route"}),

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by kind (patient, staff, google) and outcome.",
		}, []string{"kind", "outcome"}),

		PasscodeRotated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "passcode_rotations_total",
			Help:      "Patient passcodes rotated by login or staff refresh.",
		}),

		CompletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "completions_total",
			Help:      "Completion API calls by purpose and outcome.",
		}, []string{"purpose", "outcome"}),

		ChatFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "fallback_replies_total",
			Help:      "Chat replies replaced by the apology message. Alert if rising.",
		}),

		CSVImportedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "csv_imported_items_total",
			Help:      "Treatment items created from CSV imports.",
		}),
	}

	reg.MustRegister(
		c.RequestsTotal,
		c.RequestDuration,
		c.LoginsTotal,
		c.PasscodeRotated,
		c.CompletionsTotal,
		c.ChatFallbacks,
		c.CSVImportedItems,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Login(kind string, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.LoginsTotal.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) Completion(purpose string, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.CompletionsTotal.WithLabelValues(purpose, outcome).Inc()
}

// Instrument wraps next, recording count and latency under route.
func (c *Collector) Instrument(route string, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		c.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
