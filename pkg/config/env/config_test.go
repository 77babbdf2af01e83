package env

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/payments-server/pkg/config"
)

func TestConfigDoesntExist(t *testing.T) {
	const env = "ENV_CONFIG_TEST_VAR"
	os.Setenv(env, "default")

	v, err := NewConfig(env).Get(context.Background())
	assert.Equal(t, []byte("default"), v)
	assert.Nil(t, err)

	os.Unsetenv(env)

	v, err = NewConfig(env).Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestTypedEnvConfigs(t *testing.T) {
	const env = "ENV_CONFIG_TEST_TYPED_VAR"
	defer os.Unsetenv(env)

	ctx := context.Background()

	uint64Config := NewUint64Config(env, 20)
	assert.EqualValues(t, 20, uint64Config.Get(ctx))
	os.Setenv(env, "50")
	assert.EqualValues(t, 50, uint64Config.Get(ctx))

	durationConfig := NewDurationConfig(env, time.Second)
	os.Setenv(env, "250ms")
	assert.Equal(t, 250*time.Millisecond, durationConfig.Get(ctx))

	boolConfig := NewBoolConfig(env, false)
	os.Setenv(env, "true")
	assert.True(t, boolConfig.Get(ctx))
}
