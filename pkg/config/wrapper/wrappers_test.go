package wrapper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/payments-server/pkg/config"
	"github.com/code-payments/payments-server/pkg/config/memory"
)

// testTypedConfig walks a wrapper through the default, override, error and
// cleared states of its underlying config.
func testTypedConfig[T any](t *testing.T, newWrapper func(config.Config, T) config.Typed[T], defaultValue, overridenValue T, rawOverride interface{}) {
	ctx := context.Background()
	mock := memory.NewConfig(nil)
	wrapper := newWrapper(mock, defaultValue)

	// Return the default value when no override is set
	val, err := wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)
	assert.Equal(t, defaultValue, wrapper.Get(ctx))

	// The overriden value is returned when set
	mock.SetValue(rawOverride)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, overridenValue, val)
	assert.Equal(t, overridenValue, wrapper.Get(ctx))

	// The last observed config value is returned on error
	mock.SetError(errors.New("unavailable"))
	val, err = wrapper.GetSafe(ctx)
	require.Error(t, err)
	assert.Equal(t, overridenValue, val)

	// The default value is returned when the override no longer has a value
	mock.SetError(nil)
	mock.SetValue(nil)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)

	// Return an unsupported source value type
	mock.SetValue(struct{}{})
	val, err = wrapper.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, defaultValue, val)

	wrapper.Shutdown()
	_, err = wrapper.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestBoolConfig(t *testing.T) {
	testTypedConfig(t, NewBoolConfig, true, false, false)
	testTypedConfig(t, NewBoolConfig, true, false, []byte("false"))
}

func TestUint64Config(t *testing.T) {
	testTypedConfig(t, NewUint64Config, 20, 100, uint64(100))
	testTypedConfig(t, NewUint64Config, 20, 100, 100)
	testTypedConfig(t, NewUint64Config, 20, 100, []byte("100"))
}

func TestDurationConfig(t *testing.T) {
	testTypedConfig(t, NewDurationConfig, time.Second, time.Minute, time.Minute)
	testTypedConfig(t, NewDurationConfig, time.Second, time.Minute, []byte("1m"))
}

func TestUint64Config_ParseFailure(t *testing.T) {
	mock := memory.NewConfig([]byte("not-a-number"))
	wrapper := NewUint64Config(mock, 20)

	val, err := wrapper.GetSafe(context.Background())
	assert.Error(t, err)
	assert.EqualValues(t, 20, val)

	mock.SetValue(-1)
	_, err = wrapper.GetSafe(context.Background())
	assert.Error(t, err)
}
