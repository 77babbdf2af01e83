package lifecycle

import (
	"time"

	"github.com/code-payments/payments-server/pkg/config"
	"github.com/code-payments/payments-server/pkg/config/env"
	"github.com/code-payments/payments-server/pkg/config/memory"
	"github.com/code-payments/payments-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "PAYMENT_LIFECYCLE_"

	DefaultPageSizeConfigEnvName = envConfigPrefix + "DEFAULT_PAGE_SIZE"
	defaultDefaultPageSize       = 20

	MaxPageSizeConfigEnvName = envConfigPrefix + "MAX_PAGE_SIZE"
	defaultMaxPageSize       = 100

	MaxUnitOfWorkAttemptsConfigEnvName = envConfigPrefix + "MAX_UNIT_OF_WORK_ATTEMPTS"
	defaultMaxUnitOfWorkAttempts       = 5

	UnitOfWorkRetryBackoffConfigEnvName = envConfigPrefix + "UNIT_OF_WORK_RETRY_BACKOFF"
	defaultUnitOfWorkRetryBackoff       = 10 * time.Millisecond
)

type conf struct {
	defaultPageSize        config.Uint64
	maxPageSize            config.Uint64
	maxUnitOfWorkAttempts  config.Uint64
	unitOfWorkRetryBackoff config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			defaultPageSize:        env.NewUint64Config(DefaultPageSizeConfigEnvName, defaultDefaultPageSize),
			maxPageSize:            env.NewUint64Config(MaxPageSizeConfigEnvName, defaultMaxPageSize),
			maxUnitOfWorkAttempts:  env.NewUint64Config(MaxUnitOfWorkAttemptsConfigEnvName, defaultMaxUnitOfWorkAttempts),
			unitOfWorkRetryBackoff: env.NewDurationConfig(UnitOfWorkRetryBackoffConfigEnvName, defaultUnitOfWorkRetryBackoff),
		}
	}
}

type testOverrides struct {
	defaultPageSize       uint64
	maxPageSize           uint64
	maxUnitOfWorkAttempts uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			defaultPageSize:        wrapper.NewUint64Config(memory.NewConfig(valueOrUnset(overrides.defaultPageSize)), defaultDefaultPageSize),
			maxPageSize:            wrapper.NewUint64Config(memory.NewConfig(valueOrUnset(overrides.maxPageSize)), defaultMaxPageSize),
			maxUnitOfWorkAttempts:  wrapper.NewUint64Config(memory.NewConfig(valueOrUnset(overrides.maxUnitOfWorkAttempts)), defaultMaxUnitOfWorkAttempts),
			unitOfWorkRetryBackoff: wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), time.Millisecond),
		}
	}
}

// valueOrUnset leaves zero valued overrides unset, so the default applies
func valueOrUnset(value uint64) interface{} {
	if value == 0 {
		return nil
	}
	return value
}
