package tests

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/payments-server/pkg/database/query"
	"github.com/code-payments/payments-server/pkg/payments/data/payment"
	"github.com/code-payments/payments-server/pkg/pointer"
)

func RunTests(t *testing.T, s payment.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s payment.Store){
		testRoundTrip,
		testUpdateHappyPath,
		testUpdateStaleRecord,
		testInvalidRecord,
		testGetPageFiltering,
		testGetPagePagination,
		testGetPageSorting,
		testGetPageInvalidOptions,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s payment.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.GetById(ctx, "test_payment_id")
		require.Error(t, err)
		assert.Equal(t, payment.ErrNotFound, err)
		assert.Nil(t, actual)

		for i, expected := range []*payment.Record{
			{
				PaymentId:          "test_payment_id",
				DebitCode:          123,
				UserIdentification: "12345678901",
				Method:             payment.MethodPix,
				PaymentValue:       decimal.RequireFromString("100.00"),
				State:              payment.StatePending,
			},
			{
				PaymentId:          "test_card_payment_id",
				DebitCode:          456,
				UserIdentification: "12345678000190",
				Method:             payment.MethodCreditCard,
				CardNumber:         pointer.String("4111111111111111"),
				PaymentValue:       decimal.RequireFromString("12345678901234567890.123456789"),
				State:              payment.StateSucceeded,
			},
		} {
			cloned := expected.Clone()

			start := time.Now().Add(-time.Second)
			err = s.Save(ctx, expected)
			require.NoError(t, err)
			assert.EqualValues(t, i+1, expected.Id)
			assert.EqualValues(t, 1, expected.Version)
			assert.True(t, expected.CreatedAt.After(start))
			assert.True(t, expected.UpdatedAt.After(start))

			actual, err = s.GetById(ctx, expected.PaymentId)
			require.NoError(t, err)
			assertEquivalentRecords(t, &cloned, actual)
			assert.Equal(t, expected.Id, actual.Id)
			assert.EqualValues(t, 1, actual.Version)
		}
	})
}

func testUpdateHappyPath(t *testing.T, s payment.Store) {
	t.Run("testUpdateHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := newTestRecord(123, "12345678901", payment.StatePending)
		err := s.Save(ctx, expected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 1, expected.Version)
		createdAt := expected.CreatedAt

		for i, state := range []payment.State{
			payment.StateFailed,
			payment.StatePending,
			payment.StateSucceeded,
		} {
			expected.State = state

			err = s.Save(ctx, expected)
			require.NoError(t, err)
			assert.EqualValues(t, 1, expected.Id)
			assert.EqualValues(t, i+2, expected.Version)
			assert.Equal(t, createdAt.Unix(), expected.CreatedAt.Unix())
			assert.False(t, expected.UpdatedAt.Before(expected.CreatedAt))

			actual, err := s.GetById(ctx, expected.PaymentId)
			require.NoError(t, err)
			assertEquivalentRecords(t, expected, actual)
			assert.Equal(t, expected.Version, actual.Version)
		}
	})
}

func testUpdateStaleRecord(t *testing.T, s payment.Store) {
	t.Run("testUpdateStaleRecord", func(t *testing.T) {
		ctx := context.Background()

		original := newTestRecord(123, "12345678901", payment.StatePending)
		require.NoError(t, s.Save(ctx, original))

		winner := original.Clone()
		loser := original.Clone()

		winner.State = payment.StateSucceeded
		require.NoError(t, s.Save(ctx, &winner))
		assert.EqualValues(t, 2, winner.Version)

		loser.State = payment.StateFailed
		err := s.Save(ctx, &loser)
		assert.Equal(t, payment.ErrStaleVersion, err)
		assert.EqualValues(t, 1, loser.Version)

		duplicate := newTestRecord(123, "12345678901", payment.StatePending)
		duplicate.PaymentId = original.PaymentId
		assert.Equal(t, payment.ErrStaleVersion, s.Save(ctx, duplicate))

		actual, err := s.GetById(ctx, original.PaymentId)
		require.NoError(t, err)
		assert.Equal(t, payment.StateSucceeded, actual.State)
		assert.EqualValues(t, 2, actual.Version)
	})
}

func testInvalidRecord(t *testing.T, s payment.Store) {
	t.Run("testInvalidRecord", func(t *testing.T) {
		ctx := context.Background()

		for _, invalid := range []*payment.Record{
			{},
			func() *payment.Record {
				r := newTestRecord(123, "123", payment.StatePending)
				return r
			}(),
			func() *payment.Record {
				r := newTestRecord(123, "12345678901", payment.StatePending)
				r.Method = payment.MethodDebitCard
				return r
			}(),
			func() *payment.Record {
				r := newTestRecord(123, "12345678901", payment.StatePending)
				r.CardNumber = pointer.String("4111111111111111")
				return r
			}(),
			func() *payment.Record {
				r := newTestRecord(123, "12345678901", payment.StateUnknown)
				return r
			}(),
		} {
			assert.Error(t, s.Save(ctx, invalid))
		}

		_, total, err := s.GetPage(ctx, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)
	})
}

func testGetPageFiltering(t *testing.T, s payment.Store) {
	t.Run("testGetPageFiltering", func(t *testing.T) {
		ctx := context.Background()

		records := []*payment.Record{
			newTestRecord(1, "11111111111", payment.StatePending),
			newTestRecord(2, "11111111111", payment.StateSucceeded),
			newTestRecord(3, "22222222222222", payment.StateFailed),
			newTestRecord(3, "22222222222222", payment.StateCancelled),
			newTestRecord(4, "11111111111", payment.StatePending),
		}
		for _, record := range records {
			require.NoError(t, s.Save(ctx, record))
		}

		for _, tc := range []struct {
			filter   *payment.Filter
			expected []*payment.Record
		}{
			{nil, records},
			{&payment.Filter{}, records},
			{&payment.Filter{States: payment.VisibleStates}, []*payment.Record{records[0], records[1], records[2], records[4]}},
			{&payment.Filter{DebitCode: pointer.Int64(3)}, []*payment.Record{records[2], records[3]}},
			{&payment.Filter{DebitCode: pointer.Int64(3), States: payment.VisibleStates}, []*payment.Record{records[2]}},
			{&payment.Filter{UserIdentification: pointer.String("11111111111")}, []*payment.Record{records[0], records[1], records[4]}},
			{&payment.Filter{UserIdentification: pointer.String("11111111111"), States: []payment.State{payment.StatePending}}, []*payment.Record{records[0], records[4]}},
			{&payment.Filter{DebitCode: pointer.Int64(2), UserIdentification: pointer.String("22222222222222")}, nil},
			{&payment.Filter{States: []payment.State{payment.StateCancelled}}, []*payment.Record{records[3]}},
			{&payment.Filter{DebitCode: pointer.Int64(5)}, nil},
		} {
			actual, total, err := s.GetPage(ctx, tc.filter)
			require.NoError(t, err)
			assert.EqualValues(t, len(tc.expected), total)
			require.Len(t, actual, len(tc.expected))
			for i := range tc.expected {
				assertEquivalentRecords(t, tc.expected[i], actual[i])
			}
		}
	})
}

func testGetPagePagination(t *testing.T, s payment.Store) {
	t.Run("testGetPagePagination", func(t *testing.T) {
		ctx := context.Background()

		var records []*payment.Record
		for i := 0; i < 10; i++ {
			record := newTestRecord(int64(i), "11111111111", payment.StatePending)
			require.NoError(t, s.Save(ctx, record))
			records = append(records, record)
		}

		filter := &payment.Filter{States: payment.VisibleStates}

		var seen []*payment.Record
		for page := uint64(0); page < 4; page++ {
			actual, total, err := s.GetPage(ctx, filter, query.WithPage(page), query.WithLimit(3))
			require.NoError(t, err)
			assert.EqualValues(t, 10, total)
			seen = append(seen, actual...)

			if page < 3 {
				assert.Len(t, actual, 3)
			} else {
				assert.Len(t, actual, 1)
			}
		}
		require.Len(t, seen, len(records))
		for i := range records {
			assertEquivalentRecords(t, records[i], seen[i])
		}

		actual, total, err := s.GetPage(ctx, filter, query.WithPage(10), query.WithLimit(3))
		require.NoError(t, err)
		assert.EqualValues(t, 10, total)
		assert.Empty(t, actual)

		actual, _, err = s.GetPage(ctx, filter, query.WithLimit(2), query.WithDirection(query.Descending))
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, records[9], actual[0])
		assertEquivalentRecords(t, records[8], actual[1])
	})
}

func testGetPageSorting(t *testing.T, s payment.Store) {
	t.Run("testGetPageSorting", func(t *testing.T) {
		ctx := context.Background()

		values := []string{"10.50", "3", "10.5", "0.01", "250"}
		debitCodes := []int64{5, 1, 4, 2, 3}

		var records []*payment.Record
		for i := range values {
			record := newTestRecord(debitCodes[i], "11111111111", payment.StatePending)
			record.PaymentValue = decimal.RequireFromString(values[i])
			require.NoError(t, s.Save(ctx, record))
			records = append(records, record)
		}

		for _, tc := range []struct {
			field     string
			direction query.Ordering
			expected  []int
		}{
			// Equal values are tie-broken by insertion order in the sort direction
			{payment.SortByPaymentValue, query.Ascending, []int{3, 1, 0, 2, 4}},
			{payment.SortByPaymentValue, query.Descending, []int{4, 2, 0, 1, 3}},
			{payment.SortByDebitCode, query.Ascending, []int{1, 3, 4, 2, 0}},
			{payment.SortByDebitCode, query.Descending, []int{0, 2, 4, 3, 1}},
			{payment.SortByCreatedAt, query.Ascending, []int{0, 1, 2, 3, 4}},
			{payment.SortByUpdatedAt, query.Descending, []int{4, 3, 2, 1, 0}},
		} {
			actual, total, err := s.GetPage(ctx, nil, query.WithSortBy(tc.field), query.WithDirection(tc.direction))
			require.NoError(t, err)
			assert.EqualValues(t, len(records), total)
			require.Len(t, actual, len(tc.expected))
			for i, expectedIndex := range tc.expected {
				assert.Equal(t, records[expectedIndex].PaymentId, actual[i].PaymentId, fmt.Sprintf("%s %d: position %d", tc.field, tc.direction, i))
			}
		}
	})
}

func testGetPageInvalidOptions(t *testing.T, s payment.Store) {
	t.Run("testGetPageInvalidOptions", func(t *testing.T) {
		ctx := context.Background()

		_, _, err := s.GetPage(ctx, nil, query.WithSortBy("cardNumber"))
		assert.Equal(t, payment.ErrInvalidFilter, err)

		_, _, err = s.GetPage(ctx, &payment.Filter{States: []payment.State{payment.StateUnknown}})
		assert.Equal(t, payment.ErrInvalidFilter, err)

		_, _, err = s.GetPage(ctx, nil, query.WithLimit(0))
		assert.Equal(t, query.ErrQueryNotSupported, err)

		_, _, err = s.GetPage(ctx, nil, query.WithLimit(payment.MaxPageLimit+1))
		assert.Equal(t, query.ErrQueryNotSupported, err)

		_, _, err = s.GetPage(ctx, nil, query.WithPage(1<<63), query.WithLimit(2))
		assert.Equal(t, payment.ErrInvalidFilter, err)

		_, _, err = s.GetPage(ctx, nil, query.WithPage(math.MaxInt64/2+1), query.WithLimit(2))
		assert.Equal(t, payment.ErrInvalidFilter, err)

		actual, _, err := s.GetPage(ctx, nil, query.WithPage(math.MaxInt64/2), query.WithLimit(2))
		require.NoError(t, err)
		assert.Empty(t, actual)
	})
}

func newTestRecord(debitCode int64, userIdentification string, state payment.State) *payment.Record {
	return &payment.Record{
		PaymentId:          uuid.New().String(),
		DebitCode:          debitCode,
		UserIdentification: userIdentification,
		Method:             payment.MethodBillet,
		PaymentValue:       decimal.RequireFromString("42.42"),
		State:              state,
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *payment.Record) {
	assert.Equal(t, obj1.PaymentId, obj2.PaymentId)
	assert.Equal(t, obj1.DebitCode, obj2.DebitCode)
	assert.Equal(t, obj1.UserIdentification, obj2.UserIdentification)
	assert.Equal(t, obj1.Method, obj2.Method)
	assert.EqualValues(t, obj1.CardNumber, obj2.CardNumber)
	assert.True(t, obj1.PaymentValue.Equal(obj2.PaymentValue), "%s != %s", obj1.PaymentValue, obj2.PaymentValue)
	assert.Equal(t, obj1.State, obj2.State)
}
