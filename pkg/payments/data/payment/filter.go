package payment

// Sortable fields for page queries, supplied via query.WithSortBy
const (
	SortByCreatedAt    = "createdAt"
	SortByUpdatedAt    = "updatedAt"
	SortByDebitCode    = "debitCode"
	SortByPaymentValue = "paymentValue"
)

// IsSortableField returns whether page queries can be ordered by the field
func IsSortableField(field string) bool {
	switch field {
	case SortByCreatedAt, SortByUpdatedAt, SortByDebitCode, SortByPaymentValue:
		return true
	}
	return false
}

// Filter is a conjunction of equality predicates over payment records. Nil
// fields match any value, and an empty States set matches any state.
type Filter struct {
	DebitCode          *int64
	UserIdentification *string
	States             []State
}

func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}

	for _, state := range f.States {
		if state == StateUnknown || state > StateCancelled {
			return ErrInvalidFilter
		}
	}
	return nil
}

// Matches returns whether the record satisfies every predicate in the filter
func (f *Filter) Matches(r *Record) bool {
	if f == nil {
		return true
	}

	if f.DebitCode != nil && *f.DebitCode != r.DebitCode {
		return false
	}

	if f.UserIdentification != nil && *f.UserIdentification != r.UserIdentification {
		return false
	}

	if len(f.States) == 0 {
		return true
	}
	for _, state := range f.States {
		if state == r.State {
			return true
		}
	}
	return false
}
