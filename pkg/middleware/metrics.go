package middleware

import (
	"net/http"

	"github.com/telfield/fieldcollect/internal/metrics"
)

// Metrics records request counts per endpoint and status code
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			metrics.Get().RecordHTTPRequest(r.URL.Path, sw.status)
		})
	}
}
