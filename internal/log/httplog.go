package log

import (
	"net/http"
	"time"
)

// statusRecorder captures the status code and body size written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// HTTPMiddleware logs one line per request. 5xx responses are logged at error level.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, req)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		fields := []interface{}{
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"size", rec.size,
			"remote_addr", req.RemoteAddr,
			"user_agent", req.UserAgent(),
		}

		if rec.status >= http.StatusInternalServerError {
			Errorw("http request", fields...)
			return
		}
		Debugw("http request", fields...)
	})
}
