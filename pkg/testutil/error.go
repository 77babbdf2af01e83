package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AssertStatusErrorWithCode verifies that err is a gRPC status error with the
// provided code
func AssertStatusErrorWithCode(t *testing.T, err error, code codes.Code) {
	t.Helper()

	require.Error(t, err)
	s, ok := status.FromError(err)
	require.True(t, ok, "not a grpc status error: %v", err)
	assert.Equal(t, code, s.Code(), s.Message())
}
