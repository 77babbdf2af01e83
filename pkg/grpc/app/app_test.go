package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/code-payments/payments-server/pkg/testutil"
)

func TestNewHTTPMux(t *testing.T) {
	mux := newHTTPMux(map[string]http.HandlerFunc{
		"/v1/resources": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		},
		"/v1/resources/{id}": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(r.PathValue("id")))
		},
	}, nil, nil)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/resources", nil))
	assert.Equal(t, http.StatusAccepted, recorder.Code)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/resources/abc", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "abc", recorder.Body.String())

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v2/resources", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDefaultOpts_RecoversFromPanics(t *testing.T) {
	defer testutil.DisableLogging()()

	opts := newDefaultOpts(logrus.StandardLogger().WithField("type", "grpc/app"), nil)
	require.Len(t, opts.unaryServerInterceptors, 4)
	require.Len(t, opts.streamServerInterceptors, 4)
	require.Len(t, opts.httpMiddleware, 1)

	info := &grpc.UnaryServerInfo{FullMethod: "/payments.v1.Payments/Create"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	}

	chained := handler
	for i := len(opts.unaryServerInterceptors) - 1; i >= 0; i-- {
		interceptor := opts.unaryServerInterceptors[i]
		next := chained
		chained = func(ctx context.Context, req interface{}) (interface{}, error) {
			return interceptor(ctx, req, info, next)
		}
	}

	_, err := chained(context.Background(), nil)
	testutil.AssertStatusErrorWithCode(t, err, codes.Internal)
}

func TestOptions_AppendAfterDefaults(t *testing.T) {
	opts := newDefaultOpts(logrus.StandardLogger().WithField("type", "grpc/app"), nil)

	var unaryCalled, streamCalled bool
	WithUnaryServerInterceptor(func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		unaryCalled = true
		return handler(ctx, req)
	})(&opts)
	WithStreamServerInterceptor(func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		streamCalled = true
		return handler(srv, ss)
	})(&opts)

	require.Len(t, opts.unaryServerInterceptors, 5)
	require.Len(t, opts.streamServerInterceptors, 5)

	_, err := opts.unaryServerInterceptors[4](context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, unaryCalled)

	err = opts.streamServerInterceptors[4](nil, nil, &grpc.StreamServerInfo{}, func(srv interface{}, stream grpc.ServerStream) error {
		return nil
	})
	require.NoError(t, err)
	assert.True(t, streamCalled)
}

func TestNewHTTPMux_MiddlewareOrder(t *testing.T) {
	defer testutil.DisableLogging()()

	var calls []string
	tagging := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	opts := newDefaultOpts(logrus.StandardLogger().WithField("type", "grpc/app"), nil)
	WithHTTPMiddleware(tagging("first"))(&opts)
	WithHTTPMiddleware(tagging("second"))(&opts)

	mux := newHTTPMux(map[string]http.HandlerFunc{
		"/v1/resources": func(w http.ResponseWriter, r *http.Request) {
			calls = append(calls, "handler")
			w.WriteHeader(http.StatusTeapot)
		},
	}, opts.httpMiddleware, nil)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/resources", nil))
	assert.Equal(t, http.StatusTeapot, recorder.Code)
	assert.Equal(t, []string{"first", "second", "handler"}, calls)
}
