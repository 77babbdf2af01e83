package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/payments-server/pkg/payments/data/payment"
)

func TestTestDatabaseProvider_PaymentRoundTrip(t *testing.T) {
	ctx := context.Background()
	data := NewTestDatabaseProvider()

	record := &payment.Record{
		PaymentId:          uuid.New().String(),
		DebitCode:          123,
		UserIdentification: "12345678901",
		Method:             payment.MethodPix,
		PaymentValue:       decimal.RequireFromString("100.00"),
		State:              payment.StatePending,
	}
	require.NoError(t, data.CreatePayment(ctx, record))
	assert.EqualValues(t, 1, record.Version)

	// Creating the same record twice is rejected
	assert.Equal(t, payment.ErrStaleVersion, data.CreatePayment(ctx, record))

	record.State = payment.StateSucceeded
	require.NoError(t, data.SavePayment(ctx, record))

	actual, err := data.GetPayment(ctx, record.PaymentId)
	require.NoError(t, err)
	assert.Equal(t, payment.StateSucceeded, actual.State)

	page, total, err := data.GetPaymentPage(ctx, &payment.Filter{States: []payment.State{payment.StateSucceeded}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, record.PaymentId, page[0].PaymentId)
}

func TestTestDatabaseProvider_ExecuteInTx(t *testing.T) {
	data := NewTestDatabaseProvider()

	var called bool
	err := data.ExecuteInTx(context.Background(), sql.LevelDefault, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	expected := errors.New("failure")
	err = data.ExecuteInTx(context.Background(), sql.LevelDefault, func(ctx context.Context) error {
		return expected
	})
	assert.Equal(t, expected, err)
}
