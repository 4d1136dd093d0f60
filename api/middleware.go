package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware sets the JSON content type and logs every request with a
// request ID, reusing an inbound X-Request-ID when a proxy set one
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)

		zap.S().Debugw("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"requestId", requestID,
			"duration", time.Since(start),
		)
	})
}
