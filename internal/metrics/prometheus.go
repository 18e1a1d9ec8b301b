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

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framely_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framely_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OrdersCreated counts successfully placed orders
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framely_orders_created_total",
			Help: "Total number of orders placed",
		},
	)

	// OrderStatusChanges counts status writes by target status
	OrderStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framely_order_status_changes_total",
			Help: "Total number of order status changes by new status",
		},
		[]string{"status"},
	)

	// OrderAmount tracks order totals
	OrderAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framely_order_amount",
			Help:    "Order totals in store currency",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	// BlobUploadBytes tracks accepted image upload sizes
	BlobUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framely_blob_upload_bytes",
			Help:    "Size of accepted image uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		},
	)
)

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)

		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
