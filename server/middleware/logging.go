package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/kbukum/streamkit/logger"
)

var quietPaths = []string{"/health", "/live", "/ready"}

// RequestLogger logs every request with method, path, status, body size and
// duration once the response is complete. For a streamed body that is after
// the last chunk. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(quietPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := wrapStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				logger.FieldStatus:   sw.status,
				logger.FieldBytes:    sw.bytes,
				logger.FieldDuration: time.Since(start).Milliseconds(),
			}
			if q := r.URL.RawQuery; q != "" {
				fields["query"] = q
			}
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
