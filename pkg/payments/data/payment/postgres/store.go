package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/payments-server/pkg/database/query"
	"github.com/code-payments/payments-server/pkg/payments/data/payment"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) payment.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

func (s *store) Save(ctx context.Context, record *payment.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

func (s *store) GetById(ctx context.Context, paymentId string) (*payment.Record, error) {
	obj, err := dbGetById(ctx, s.db, paymentId)
	if err != nil {
		return nil, err
	}
	return fromModel(obj), nil
}

func (s *store) GetPage(ctx context.Context, filter *payment.Filter, opts ...query.Option) ([]*payment.Record, uint64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	req, err := payment.ParsePageOptions(opts...)
	if err != nil {
		return nil, 0, err
	}

	models, total, err := dbGetPage(ctx, s.db, filter, req)
	if err != nil {
		return nil, 0, err
	}

	res := make([]*payment.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, total, nil
}
