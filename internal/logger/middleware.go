package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// SlowRequestThreshold marks requests logged at warning level
var SlowRequestThreshold = 2 * time.Second

// RequestLogger logs every request as a structured line and feeds the status counters
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		CountStatus(status)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed.String(),
			"requestId", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= 500:
			Error("request failed", args...)
		case elapsed > SlowRequestThreshold:
			Warn("slow request", args...)
		default:
			Info("request", args...)
		}
	})
}
