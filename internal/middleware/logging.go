package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mmynk/receiptbook/internal/metrics"
)

type logInfoKey struct{}

// logInfo is filled in by inner middleware so the outer log line can
// report who made the request.
type logInfo struct {
	userID string
}

func setLoggedUser(ctx context.Context, userID string) {
	if info, ok := ctx.Value(logInfoKey{}).(*logInfo); ok {
		info.userID = userID
	}
}

// statusRecorder captures the response status.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Logging logs every request to route with its status, user ID and
// duration, and records the request metrics.
func Logging(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &logInfo{}
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), logInfoKey{}, info)))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		attrs := []any{
			"route", route,
			"status", rec.status,
			"user_id", info.userID,
			"device_id", r.Header.Get(DeviceHeader),
			"duration_ms", elapsed.Milliseconds(),
		}
		switch {
		case rec.status >= 500:
			slog.Error("HTTP error", attrs...)
		case rec.status >= 400:
			slog.Warn("HTTP error", attrs...)
		default:
			slog.Info("HTTP ok", attrs...)
		}
	})
}
