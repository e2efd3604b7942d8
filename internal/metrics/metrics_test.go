package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/xlform"
)

var _ xlform.Observer = (*Metrics)(nil)

func TestObserverCounters(t *testing.T) {
	m := New()
	m.EditsGated(2, 3)
	m.SaveCompleted(4, 2, nil)
	m.SaveCompleted(4, 9, errors.New("down"))
	m.ExportCompleted(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EditsAccepted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EditsRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Saves.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Saves.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SavedValues))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports.WithLabelValues("ok")))
}

func TestLatencyAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Latency)
	r.Get("/templates/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/templates/3", nil))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `xlform_http_request_duration_seconds_count{method="GET",route="/templates/{id}",status="418"} 1`)
}

func TestLatencyStatusLabels(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Latency)
	r.Get("/body", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/silent", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/body", "/silent", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `xlform_http_request_duration_seconds_count{method="GET",route="/body",status="200"} 1`)
	assert.Contains(t, body, `xlform_http_request_duration_seconds_count{method="GET",route="/silent",status="200"} 1`)
	assert.Contains(t, body, `status="404"} 1`)
}
