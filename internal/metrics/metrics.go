// Package metrics exposes Prometheus metrics for gating, saves, exports and
// HTTP latency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. It implements xlform.Observer.
type Metrics struct {
	registry *prometheus.Registry

	EditsAccepted prometheus.Counter
	EditsRejected prometheus.Counter
	Saves         *prometheus.CounterVec
	SavedValues   prometheus.Counter
	AuditEvents   prometheus.Counter
	Exports       *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		EditsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "xlform_edits_accepted_total",
			Help: "Cell edits accepted by the mapping gate",
		}),
		EditsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "xlform_edits_rejected_total",
			Help: "Cell edits dropped because the cell is not mapped",
		}),
		Saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xlform_saves_total",
			Help: "Instance saves by outcome",
		}, []string{"outcome"}),
		SavedValues: f.NewCounter(prometheus.CounterOpts{
			Name: "xlform_saved_values_total",
			Help: "Mapped values written by successful saves",
		}),
		AuditEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "xlform_audit_events_total",
			Help: "Audit events persisted by successful saves",
		}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xlform_exports_total",
			Help: "Instance exports by outcome",
		}, []string{"outcome"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xlform_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// EditsGated counts accepted and rejected user edits.
func (m *Metrics) EditsGated(accepted, rejected int) {
	m.EditsAccepted.Add(float64(accepted))
	m.EditsRejected.Add(float64(rejected))
}

// SaveCompleted counts a save by outcome and, on success, its values and audit events.
func (m *Metrics) SaveCompleted(values, events int, err error) {
	m.Saves.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.SavedValues.Add(float64(values))
		m.AuditEvents.Add(float64(events))
	}
}

// ExportCompleted counts an export by outcome.
func (m *Metrics) ExportCompleted(err error) {
	m.Exports.WithLabelValues(outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Latency records request durations labelled by chi route pattern.
func (m *Metrics) Latency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
