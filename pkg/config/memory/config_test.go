package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/payments-server/pkg/config"
)

func TestConfig_Values(t *testing.T) {
	ctx := context.Background()

	c := NewConfig(nil)
	_, err := c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.SetValue(uint64(42))
	val, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), val)

	c.SetValue(nil)
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c = NewConfig("initial")
	val, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "initial", val)
}

func TestConfig_Errors(t *testing.T) {
	ctx := context.Background()
	induced := errors.New("induced")

	c := NewConfig("value")
	c.SetError(induced)
	_, err := c.Get(ctx)
	assert.Equal(t, induced, err)

	c.SetError(nil)
	val, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	c.Shutdown()
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrShutdown, err)

	// Shutdown takes precedence over any other state
	c.SetError(induced)
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}
