package payment

import (
	"context"
	"errors"
	"math"

	"github.com/code-payments/payments-server/pkg/database/query"
)

var (
	ErrNotFound      = errors.New("payment not found")
	ErrStaleVersion  = errors.New("payment version is stale")
	ErrInvalidFilter = errors.New("payment filter is invalid")
)

type Store interface {
	// Save creates or updates a payment. Updates only succeed when the record's
	// version matches the stored version, otherwise ErrStaleVersion is returned.
	// On success, the record is updated with its Id, Version and timestamps.
	Save(ctx context.Context, record *Record) error

	// GetById gets a payment by its payment ID
	GetById(ctx context.Context, paymentId string) (*Record, error)

	// GetPage gets a page of payments matching the filter, along with the total
	// count of payments matching the filter. Supported options are
	// query.WithPage, query.WithLimit, query.WithSortBy and query.WithDirection.
	GetPage(ctx context.Context, filter *Filter, opts ...query.Option) ([]*Record, uint64, error)
}

const (
	defaultPageLimit = 100

	// MaxPageLimit is the largest page size a Store accepts
	MaxPageLimit = 1000
)

// ParsePageOptions applies page query options for a Store.GetPage call. Store
// implementations use this to get consistent defaults and validation.
func ParsePageOptions(opts ...query.Option) (*query.QueryOptions, error) {
	req, err := query.DefaultPaginationHandler(defaultPageLimit, MaxPageLimit, opts...)
	if err != nil {
		return nil, err
	}

	if len(req.OrderBy) > 0 && !IsSortableField(req.OrderBy) {
		return nil, ErrInvalidFilter
	}

	// The offset must fit a postgres bigint
	if req.Page > math.MaxInt64/req.Limit {
		return nil, ErrInvalidFilter
	}

	return req, nil
}
