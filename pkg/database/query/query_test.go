package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryOptions_Supported(t *testing.T) {
	qo := &QueryOptions{Supported: CanLimitResults}
	assert.NoError(t, qo.Apply(WithLimit(10)))
	assert.EqualValues(t, 10, qo.Limit)

	assert.Equal(t, ErrQueryNotSupported, qo.Apply(WithPage(1)))
	assert.Equal(t, ErrQueryNotSupported, qo.Apply(WithDirection(Descending)))
	assert.Equal(t, ErrQueryNotSupported, qo.Apply(WithSortBy("field")))
}

func TestDefaultPaginationHandler(t *testing.T) {
	req, err := DefaultPaginationHandler(20, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 20, req.Limit)
	assert.EqualValues(t, 0, req.Page)
	assert.EqualValues(t, 0, req.Offset())
	assert.Equal(t, Ascending, req.SortBy)
	assert.Empty(t, req.OrderBy)

	req, err = DefaultPaginationHandler(20, 100, WithLimit(5), WithPage(3), WithDirection(Descending), WithSortBy("createdAt"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, req.Limit)
	assert.EqualValues(t, 15, req.Offset())
	assert.Equal(t, Descending, req.SortBy)
	assert.Equal(t, "createdAt", req.OrderBy)

	_, err = DefaultPaginationHandler(20, 100, WithLimit(101))
	assert.Equal(t, ErrQueryNotSupported, err)

	_, err = DefaultPaginationHandler(20, 100, WithLimit(0))
	assert.Equal(t, ErrQueryNotSupported, err)
}

func TestPaginateQuery(t *testing.T) {
	query, args := PaginateQuery("SELECT * FROM t WHERE (state = $1)", []interface{}{1}, "", Ascending, 0, 0)
	assert.Equal(t, "SELECT * FROM t WHERE (state = $1) ORDER BY id ASC", query)
	assert.Equal(t, []interface{}{1}, args)

	query, args = PaginateQuery("SELECT * FROM t WHERE (state = $1)", []interface{}{1}, "created_at", Descending, 10, 20)
	assert.Equal(t, "SELECT * FROM t WHERE (state = $1) ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3", query)
	assert.Equal(t, []interface{}{1, uint64(10), uint64(20)}, args)
}

func TestOrdering(t *testing.T) {
	for input, expected := range map[string]Ordering{"asc": Ascending, "ASC": Ascending, "desc": Descending, "Desc": Descending} {
		actual, err := ToOrdering(input)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ToOrdering("sideways")
	assert.Error(t, err)
	assert.Equal(t, Descending, ToOrderingWithFallback("sideways", Descending))

	str, err := FromOrdering(Descending)
	require.NoError(t, err)
	assert.Equal(t, "desc", str)
	assert.Equal(t, "DESC", Descending.SQL())
	assert.Equal(t, "ASC", Ascending.SQL())
}
