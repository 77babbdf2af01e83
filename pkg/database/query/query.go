package query

import (
	"errors"
)

var (
	ErrQueryNotSupported = errors.New("the requested query option is not supported")
)

type SupportedOptions byte

const (
	CanLimitResults SupportedOptions = 0x01
	CanSortBy       SupportedOptions = 0x01 << 1
	CanPageResults  SupportedOptions = 0x01 << 2
	CanSortByField  SupportedOptions = 0x01 << 3
)

// QueryOptions is the set of options a store applies to a page query. Page is
// zero-based and counted in units of Limit.
type QueryOptions struct {
	Supported SupportedOptions

	SortBy  Ordering
	OrderBy string
	Limit   uint64
	Page    uint64
}

type Option func(*QueryOptions) error

func (qo *QueryOptions) check(cap SupportedOptions) bool {
	return qo.Supported&cap != cap
}

func (qo *QueryOptions) Apply(opts ...Option) error {
	for _, o := range opts {
		err := o(qo)
		if err != nil {
			return err
		}
	}
	return nil
}

// Offset returns the number of records preceding the requested page
func (qo *QueryOptions) Offset() uint64 {
	return qo.Page * qo.Limit
}

func WithDirection(val Ordering) Option {
	return func(qo *QueryOptions) error {
		if qo.check(CanSortBy) {
			return ErrQueryNotSupported
		}
		qo.SortBy = val
		return nil
	}
}

// WithSortBy orders results by a store-defined field name. An empty value
// leaves results in insertion order.
func WithSortBy(field string) Option {
	return func(qo *QueryOptions) error {
		if qo.check(CanSortByField) {
			return ErrQueryNotSupported
		}
		qo.OrderBy = field
		return nil
	}
}

func WithLimit(val uint64) Option {
	return func(qo *QueryOptions) error {
		if qo.check(CanLimitResults) {
			return ErrQueryNotSupported
		}
		qo.Limit = val
		return nil
	}
}

func WithPage(val uint64) Option {
	return func(qo *QueryOptions) error {
		if qo.check(CanPageResults) {
			return ErrQueryNotSupported
		}
		qo.Page = val
		return nil
	}
}
