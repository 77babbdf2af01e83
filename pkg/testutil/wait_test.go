package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitFor(t *testing.T) {
	require.NoError(t, WaitFor(50*time.Millisecond, 10*time.Millisecond, func() bool {
		return true
	}))

	var calls int32
	require.NoError(t, WaitFor(time.Second, 5*time.Millisecond, func() bool {
		return atomic.AddInt32(&calls, 1) >= 3
	}))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	require.Error(t, WaitFor(50*time.Millisecond, 10*time.Millisecond, func() bool {
		return false
	}))

	require.Error(t, WaitFor(50*time.Millisecond, 100*time.Millisecond, func() bool {
		return true
	}))
}
