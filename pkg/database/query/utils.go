package query

import (
	"strconv"
)

// PaginateQuery returns a page query string for the given input options.
//
// The input query string is expected as follows:
//
//	"SELECT ... WHERE (...)"
//
// The output query string would be as follows:
//
//	"SELECT ... WHERE (...) ORDER BY <column> <dir>, id <dir> LIMIT $n OFFSET $n+1"
//
// An empty orderByColumn sorts by id alone. The id tie-breaker keeps page
// boundaries stable when the sort column has duplicate values.
//
// Example:
//
//	query := "SELECT * FROM table WHERE (state = $1)"
//	PaginateQuery(query, []interface{}{state}, "created_at", Descending, 10, 20)
//	> "SELECT * FROM table WHERE (state = $1) ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3"
func PaginateQuery(query string, opts []interface{},
	orderByColumn string, direction Ordering, limit, offset uint64) (string, []interface{}) {

	if len(orderByColumn) > 0 {
		query += " ORDER BY " + orderByColumn + " " + direction.SQL() + ", id " + direction.SQL()
	} else {
		query += " ORDER BY id " + direction.SQL()
	}

	if limit > 0 {
		query += " LIMIT $" + strconv.Itoa(len(opts)+1)
		opts = append(opts, limit)
	}

	if offset > 0 {
		query += " OFFSET $" + strconv.Itoa(len(opts)+1)
		opts = append(opts, offset)
	}

	return query, opts
}

// DefaultPaginationHandler applies page options on top of a default page size,
// rejecting any page size above maxLimit.
func DefaultPaginationHandler(defaultLimit, maxLimit uint64, opts ...Option) (*QueryOptions, error) {
	req := QueryOptions{
		Limit:     defaultLimit,
		SortBy:    Ascending,
		Supported: CanLimitResults | CanSortBy | CanPageResults | CanSortByField,
	}
	if err := req.Apply(opts...); err != nil {
		return nil, ErrQueryNotSupported
	}

	if req.Limit == 0 || req.Limit > maxLimit {
		return nil, ErrQueryNotSupported
	}

	return &req, nil
}
