package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers_NoAgentIsNoop(t *testing.T) {
	ctx := NewContext(context.Background(), nil)
	assert.Nil(t, ctx.Value(NewRelicContextKey{}))

	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", time.Second)
	RecordEvent(ctx, "event", map[string]interface{}{"key": "value"})

	tracer := TraceMethodCall(ctx, "package", "method")
	require.Nil(t, tracer)
	tracer.AddAttribute("key", "value")
	tracer.AddAttributes(map[string]interface{}{"key": "value"})
	tracer.OnError(errors.New("error"))
	tracer.End()
}

func TestWrapHandlerFunc_NoAgent(t *testing.T) {
	var called bool
	handler := WrapHandlerFunc(nil, "/path", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodPost, "/path", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, recorder.Code)
}

func TestStatusCodeLevel(t *testing.T) {
	for statusCode, expected := range map[int]string{
		http.StatusOK:                  infoLevel,
		http.StatusNoContent:           infoLevel,
		http.StatusBadRequest:          infoLevel,
		http.StatusNotFound:            infoLevel,
		http.StatusMethodNotAllowed:    warningLevel,
		http.StatusConflict:            warningLevel,
		http.StatusTooManyRequests:     warningLevel,
		http.StatusInternalServerError: errorLevel,
		http.StatusServiceUnavailable:  errorLevel,
	} {
		assert.Equal(t, expected, statusCodeLevel(statusCode), statusCode)
	}
}

func TestForwardedMessage(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	entry.Message = "failure"
	assert.Equal(t, "failure", forwardedMessage(entry))

	entry = entry.WithError(errors.New("boom")).WithField("payment", "abc")
	entry.Message = "failure"
	assert.Equal(t, `message="failure", error="boom", data={"payment":"abc"}`, forwardedMessage(entry))
}
