package app

import (
	"context"
	"database/sql"
	"net/http"
	"sync"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"
	"google.golang.org/grpc"

	pg "github.com/code-payments/payments-server/pkg/database/postgres"
	grpc_app "github.com/code-payments/payments-server/pkg/grpc/app"
	"github.com/code-payments/payments-server/pkg/payments/data"
	"github.com/code-payments/payments-server/pkg/payments/lifecycle"
	"github.com/code-payments/payments-server/pkg/payments/localization"
	"github.com/code-payments/payments-server/pkg/payments/server/web/api"
	"github.com/code-payments/payments-server/pkg/rate"
)

// App serves the payment lifecycle HTTP API
type App struct {
	log *logrus.Entry

	db        *sql.DB
	apiServer *api.Server

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func New() *App {
	return &App{
		log:        logrus.StandardLogger().WithField("type", "payments/app"),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements grpc_app.App.Init
func (a *App) Init(rawConfig grpc_app.Config, metricsProvider *newrelic.Application) error {
	config, err := parseConfig(rawConfig)
	if err != nil {
		return err
	}

	ctx := context.Background()

	var dataProvider data.DatabaseData
	switch config.Store {
	case PostgresStore:
		a.db, err = pg.Open(ctx, config.Postgres)
		if err != nil {
			return errors.Wrap(err, "error initializing postgres data provider")
		}
		dataProvider = data.NewDatabaseProviderFromDB(a.db)
	default:
		dataProvider = data.NewTestDatabaseProvider()
	}

	var limiter rate.Limiter = &rate.NoLimiter{}
	if config.RateLimitPerSecond > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(config.RateLimitPerSecond))
	}

	localizer, err := localization.NewLocalizer()
	if err != nil {
		return errors.Wrap(err, "error initializing localizer")
	}

	engine := lifecycle.NewEngine(dataProvider, lifecycle.WithEnvConfigs())
	a.apiServer = api.NewPaymentServer(engine, limiter, localizer)

	a.log.WithFields(logrus.Fields{
		"store":      config.Store,
		"rate_limit": config.RateLimitPerSecond,
		"new_relic":  metricsProvider != nil,
	}).Info("payments app initialized")
	return nil
}

// RegisterWithGRPC implements grpc_app.App.RegisterWithGRPC. Only the
// standard health service is served over gRPC.
func (a *App) RegisterWithGRPC(server *grpc.Server) {
}

// GetHTTPHandlers implements grpc_app.App.GetHTTPHandlers
func (a *App) GetHTTPHandlers() map[string]http.HandlerFunc {
	return a.apiServer.GetHandlers()
}

// ShutdownChan implements grpc_app.App.ShutdownChan
func (a *App) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements grpc_app.App.Stop
func (a *App) Stop() {
	a.shutdownOnce.Do(func() {
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("failure closing postgres connection pool")
			}
		}
		close(a.shutdownCh)
	})
}
