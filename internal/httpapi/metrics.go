package httpapi

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gudangpos_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gudangpos_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gudangpos_checkouts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})

	importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gudangpos_import_rows_total",
		Help: "Bulk import rows by result.",
	}, []string{"result"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricRoute collapses path parameters so the route label stays low
// cardinality.
func metricRoute(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		if i == 0 {
			continue
		}
		switch segments[i-1] {
		case "sales", "customers", "idempotency":
			segments[i] = ":id"
		case "products":
			if segment != "import" {
				segments[i] = ":sku"
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}
