package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	m := NewMetrics()
	m.RecordTap("critical", 4)
	m.RecordTap("normal", 1)
	m.RecordTapRejected("no_energy")
	m.RecordCredit("mission", 50)
	m.RecordCredit("mission", 0)
	m.RecordMission("claim", "ok")
	m.SetCachedUsers(3)

	if got := testutil.ToFloat64(m.taps.WithLabelValues("critical")); got != 1 {
		t.Errorf("critical taps = %v", got)
	}
	if got := testutil.ToFloat64(m.earned.WithLabelValues("tap")); got != 5 {
		t.Errorf("earned from taps = %v", got)
	}
	if got := testutil.ToFloat64(m.earned.WithLabelValues("mission")); got != 50 {
		t.Errorf("earned from missions = %v", got)
	}
	if got := testutil.ToFloat64(m.tapRejections.WithLabelValues("no_energy")); got != 1 {
		t.Errorf("rejections = %v", got)
	}
	if got := testutil.ToFloat64(m.missionTransitions.WithLabelValues("claim", "ok")); got != 1 {
		t.Errorf("claims = %v", got)
	}
	if got := testutil.ToFloat64(m.cachedUsers); got != 3 {
		t.Errorf("cached users = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTap("normal", 1)
	m.RecordTapRejected("no_energy")
	m.RecordCredit("welcome", 10)
	m.RecordMission("start", "ok")
	m.SetCachedUsers(1)
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/users/{userID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/users/{userID}", "418")); got != 1 {
		t.Fatalf("request count = %v", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "uc_http_requests_total") {
		t.Fatal("metrics output missing request counter")
	}
}
