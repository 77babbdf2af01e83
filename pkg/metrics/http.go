package metrics

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
)

const (
	httpResponseStatusCodeLevelAttributeKey = "http.response.statusCodeLevel"

	infoLevel    = "info"
	warningLevel = "warning"
	errorLevel   = "error"
)

// WrapHandlerFunc instruments an HTTP handler with a New Relic web transaction
// named after the method and route pattern. The application is also injected
// into the request context to allow for custom metrics, events, etc in
// downstream code. A nil app returns the handler unmodified.
func WrapHandlerFunc(app *newrelic.Application, pattern string, handler http.HandlerFunc) http.HandlerFunc {
	if app == nil {
		return handler
	}

	return func(w http.ResponseWriter, r *http.Request) {
		txn := app.StartTransaction(r.Method + " " + pattern)
		defer txn.End()

		txn.SetWebRequestHTTP(r)
		recorder := &statusRecordingResponseWriter{
			ResponseWriter: txn.SetWebResponse(w),
			statusCode:     http.StatusOK,
		}

		ctx := NewContext(r.Context(), app)
		ctx = newrelic.NewContext(ctx, txn)

		handler(recorder, r.WithContext(ctx))

		txn.AddAttribute(httpResponseStatusCodeLevelAttributeKey, statusCodeLevel(recorder.statusCode))
	}
}

func statusCodeLevel(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return errorLevel
	case statusCode == http.StatusMethodNotAllowed,
		statusCode == http.StatusConflict,
		statusCode == http.StatusTooManyRequests:
		return warningLevel
	default:
		return infoLevel
	}
}

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecordingResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
