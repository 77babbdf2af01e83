package app

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/payments-server/pkg/netutil"
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// newHTTPLoggingMiddleware logs one line per completed HTTP request
func newHTTPLoggingMiddleware(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			log := logger.WithFields(logrus.Fields{
				"http_method": r.Method,
				"path":        r.URL.Path,
				"status_code": recorder.statusCode,
				"client_ip":   netutil.GetClientIP(r),
				"duration":    time.Since(start),
			})
			if recorder.statusCode >= http.StatusInternalServerError {
				log.Warn("http request failed")
			} else {
				log.Debug("http request completed")
			}
		})
	}
}
