package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/payments-server/pkg/payments/data/payment"
	"github.com/code-payments/payments-server/pkg/pointer"
)

func TestToWhereClause(t *testing.T) {
	condition, args := toWhereClause(nil)
	assert.Equal(t, "TRUE", condition)
	assert.Empty(t, args)

	condition, args = toWhereClause(&payment.Filter{})
	assert.Equal(t, "TRUE", condition)
	assert.Empty(t, args)

	condition, args = toWhereClause(&payment.Filter{
		DebitCode:          pointer.Int64(123),
		UserIdentification: pointer.String("12345678901"),
		States:             payment.VisibleStates,
	})
	assert.Equal(t, "debit_code = $1 AND user_identification = $2 AND state IN ($3, $4, $5)", condition)
	assert.Equal(t, []interface{}{int64(123), "12345678901", uint8(payment.StatePending), uint8(payment.StateSucceeded), uint8(payment.StateFailed)}, args)

	condition, args = toWhereClause(&payment.Filter{States: []payment.State{payment.StateFailed}})
	assert.Equal(t, "state IN ($1)", condition)
	assert.Equal(t, []interface{}{uint8(payment.StateFailed)}, args)
}
