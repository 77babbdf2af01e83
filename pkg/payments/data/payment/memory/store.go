package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/payments-server/pkg/database/query"
	"github.com/code-payments/payments-server/pkg/payments/data/payment"
)

type store struct {
	mu      sync.RWMutex
	records []*payment.Record
	last    uint64
}

func New() payment.Store {
	return &store{}
}

func (s *store) Save(_ context.Context, data *payment.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if item := s.find(data); item != nil {
		if item.Version != data.Version {
			return payment.ErrStaleVersion
		}

		item.State = data.State
		item.Version++
		item.UpdatedAt = now

		item.CopyTo(data)
	} else {
		s.last++

		data.Id = s.last
		if data.CreatedAt.IsZero() {
			data.CreatedAt = now
		}
		data.UpdatedAt = now
		data.Version = 1

		c := data.Clone()
		s.records = append(s.records, &c)
	}

	return nil
}

func (s *store) GetById(_ context.Context, paymentId string) (*payment.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.findByPaymentId(paymentId)
	if item == nil {
		return nil, payment.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) GetPage(_ context.Context, filter *payment.Filter, opts ...query.Option) ([]*payment.Record, uint64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	req, err := payment.ParsePageOptions(opts...)
	if err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []*payment.Record
	for _, item := range s.records {
		if filter.Matches(item) {
			matching = append(matching, item)
		}
	}

	sortRecords(matching, req.OrderBy, req.SortBy)

	total := uint64(len(matching))
	start := req.Offset()
	if start >= total {
		return nil, total, nil
	}
	end := start + req.Limit
	if end > total {
		end = total
	}

	return cloneRecords(matching[start:end]), total, nil
}

func (s *store) find(data *payment.Record) *payment.Record {
	for _, item := range s.records {
		if data.Id > 0 && item.Id == data.Id {
			return item
		}
		if item.PaymentId == data.PaymentId {
			return item
		}
	}
	return nil
}

func (s *store) findByPaymentId(paymentId string) *payment.Record {
	for _, item := range s.records {
		if item.PaymentId == paymentId {
			return item
		}
	}
	return nil
}

// sortRecords orders records by the sort field, tie-broken by Id, in the
// requested direction. No sort field orders by Id alone.
func sortRecords(items []*payment.Record, field string, direction query.Ordering) {
	compare := func(a, b *payment.Record) int {
		switch field {
		case payment.SortByCreatedAt:
			return a.CreatedAt.Compare(b.CreatedAt)
		case payment.SortByUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case payment.SortByDebitCode:
			return compareInt64(a.DebitCode, b.DebitCode)
		case payment.SortByPaymentValue:
			return a.PaymentValue.Cmp(b.PaymentValue)
		}
		return 0
	}

	sort.SliceStable(items, func(i, j int) bool {
		res := compare(items[i], items[j])
		if res == 0 {
			res = compareUint64(items[i].Id, items[j].Id)
		}

		if direction == query.Descending {
			return res > 0
		}
		return res < 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneRecords(items []*payment.Record) []*payment.Record {
	res := make([]*payment.Record, len(items))
	for i, item := range items {
		cloned := item.Clone()
		res[i] = &cloned
	}
	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
