package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpc_core "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

func TestStatusCodeLevel(t *testing.T) {
	for code, expected := range map[codes.Code]string{
		codes.OK:                infoLevel,
		codes.NotFound:          infoLevel,
		codes.InvalidArgument:   infoLevel,
		codes.Aborted:           warningLevel,
		codes.ResourceExhausted: warningLevel,
		codes.Internal:          errorLevel,
		codes.Unknown:           errorLevel,
		codes.Code(1000):        errorLevel,
	} {
		assert.Equal(t, expected, statusCodeLevel(code), code.String())
	}
}

func TestGetURL(t *testing.T) {
	u := getURL("grpc.health.v1.Health/Check", "dns:///payments.internal:8086")
	assert.Equal(t, "grpc", u.Scheme)
	assert.Equal(t, "payments.internal:8086", u.Host)
	assert.Equal(t, "grpc.health.v1.Health/Check", u.Path)

	assert.Equal(t, "localhost", getURL("a.B/C", "unix:///tmp/sock").Host)
}

func TestCustomNewRelicUnaryServerInterceptor_NoApplication(t *testing.T) {
	interceptor := CustomNewRelicUnaryServerInterceptor(nil)

	var called bool
	resp, err := interceptor(
		context.Background(),
		"request",
		&grpc_core.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, req interface{}) (interface{}, error) {
			called = true
			return req, nil
		},
	)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "request", resp)
}
