package middleware

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/npspulse/backend/internal/metrics"
)

// Metrics records request counts, latency and 5xx errors per route
// pattern, so path parameters do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(seconds float64) {
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(seconds)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			if ww.Status() >= 500 {
				metrics.HTTPErrorsTotal.WithLabelValues(route).Inc()
			}
		}))

		next.ServeHTTP(ww, r)
		timer.ObserveDuration()
	})
}
