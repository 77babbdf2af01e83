package data

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	pg "github.com/code-payments/payments-server/pkg/database/postgres"
	"github.com/code-payments/payments-server/pkg/database/query"
	"github.com/code-payments/payments-server/pkg/payments/data/payment"

	payment_memory_client "github.com/code-payments/payments-server/pkg/payments/data/payment/memory"
	payment_postgres_client "github.com/code-payments/payments-server/pkg/payments/data/payment/postgres"
)

type DatabaseData interface {
	// Payments
	// --------------------------------------------------------------------------------
	CreatePayment(ctx context.Context, record *payment.Record) error
	SavePayment(ctx context.Context, record *payment.Record) error
	GetPayment(ctx context.Context, paymentId string) (*payment.Record, error)
	GetPaymentPage(ctx context.Context, filter *payment.Filter, opts ...query.Option) ([]*payment.Record, uint64, error)

	// ExecuteInTx executes fn with a single DB transaction that is scoped to the call.
	// This enables more complex transactions that can span many calls across the provider.
	//
	// Transactions aborted by postgres due to serialization failures are retried
	// from the start, so fn must be safe to re-run.
	ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error
}

type DatabaseProvider struct {
	payments payment.Store

	db *sqlx.DB
}

// NewDatabaseProviderFromDB returns a DatabaseData backed by an existing
// postgres connection pool
func NewDatabaseProviderFromDB(db *sql.DB) DatabaseData {
	return &DatabaseProvider{
		payments: payment_postgres_client.New(db),

		db: sqlx.NewDb(db, "pgx"),
	}
}

// NewTestDatabaseProvider returns a DatabaseData backed by in memory stores
func NewTestDatabaseProvider() DatabaseData {
	return &DatabaseProvider{
		payments: payment_memory_client.New(),
	}
}

func (dp *DatabaseProvider) ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if dp.db == nil {
		return fn(ctx)
	}

	return pg.ExecuteRetryable(ctx, func() error {
		return pg.ExecuteTxWithinCtx(ctx, dp.db, isolation, fn)
	})
}

// Payments
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) CreatePayment(ctx context.Context, record *payment.Record) error {
	if record.Id != 0 || record.Version != 0 {
		return payment.ErrStaleVersion
	}
	return dp.payments.Save(ctx, record)
}
func (dp *DatabaseProvider) SavePayment(ctx context.Context, record *payment.Record) error {
	return dp.payments.Save(ctx, record)
}
func (dp *DatabaseProvider) GetPayment(ctx context.Context, paymentId string) (*payment.Record, error) {
	return dp.payments.GetById(ctx, paymentId)
}
func (dp *DatabaseProvider) GetPaymentPage(ctx context.Context, filter *payment.Filter, opts ...query.Option) ([]*payment.Record, uint64, error) {
	return dp.payments.GetPage(ctx, filter, opts...)
}
