package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	pgutil "github.com/code-payments/payments-server/pkg/database/postgres"
	q "github.com/code-payments/payments-server/pkg/database/query"
	"github.com/code-payments/payments-server/pkg/payments/data/payment"
	"github.com/code-payments/payments-server/pkg/pointer"
)

const (
	tableName = "payments__core_payment"

	allColumns = `id, payment_id, debit_code, user_identification, method, card_number, payment_value, state, version, created_at, updated_at`
)

var sortColumns = map[string]string{
	payment.SortByCreatedAt:    "created_at",
	payment.SortByUpdatedAt:    "updated_at",
	payment.SortByDebitCode:    "debit_code",
	payment.SortByPaymentValue: "payment_value",
}

type model struct {
	Id                 sql.NullInt64   `db:"id"`
	PaymentId          string          `db:"payment_id"`
	DebitCode          int64           `db:"debit_code"`
	UserIdentification string          `db:"user_identification"`
	Method             uint8           `db:"method"`
	CardNumber         sql.NullString  `db:"card_number"`
	PaymentValue       decimal.Decimal `db:"payment_value"`
	State              uint8           `db:"state"`
	Version            uint64          `db:"version"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func toModel(obj *payment.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	createdAt := obj.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	return &model{
		Id:                 sql.NullInt64{Int64: int64(obj.Id), Valid: true},
		PaymentId:          obj.PaymentId,
		DebitCode:          obj.DebitCode,
		UserIdentification: obj.UserIdentification,
		Method:             uint8(obj.Method),
		CardNumber:         sql.NullString{String: *pointer.StringOrDefault(obj.CardNumber, ""), Valid: obj.CardNumber != nil},
		PaymentValue:       obj.PaymentValue,
		State:              uint8(obj.State),
		Version:            obj.Version,
		CreatedAt:          createdAt,
		UpdatedAt:          now,
	}, nil
}

func fromModel(m *model) *payment.Record {
	return &payment.Record{
		Id:                 uint64(m.Id.Int64),
		PaymentId:          m.PaymentId,
		DebitCode:          m.DebitCode,
		UserIdentification: m.UserIdentification,
		Method:             payment.Method(m.Method),
		CardNumber:         pointer.StringIfValid(m.CardNumber.Valid, m.CardNumber.String),
		PaymentValue:       m.PaymentValue,
		State:              payment.State(m.State),
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(payment_id, debit_code, user_identification, method, card_number, payment_value, state, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8 + 1, $9, $10)

			ON CONFLICT (payment_id)
			DO UPDATE
				SET state = $7, version = ` + tableName + `.version + 1, updated_at = $10
				WHERE ` + tableName + `.payment_id = $1 AND ` + tableName + `.version = $8

			RETURNING ` + allColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.PaymentId,
			m.DebitCode,
			m.UserIdentification,
			m.Method,
			m.CardNumber,
			m.PaymentValue,
			m.State,
			m.Version,
			m.CreatedAt,
			m.UpdatedAt,
		).StructScan(m)
		if err != nil {
			return pgutil.CheckNoRows(err, payment.ErrStaleVersion)
		}
		return nil
	})
}

func dbGetById(ctx context.Context, db *sqlx.DB, paymentId string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE payment_id = $1
		LIMIT 1`

	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, res, query, paymentId)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, payment.ErrNotFound)
	}
	return res, nil
}

func dbGetPage(ctx context.Context, db *sqlx.DB, filter *payment.Filter, req *q.QueryOptions) ([]*model, uint64, error) {
	condition, args := toWhereClause(filter)

	countQuery := `SELECT COUNT(*) FROM ` + tableName + ` WHERE (` + condition + `)`

	pageQuery := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE (` + condition + `)`
	pageQuery, pageArgs := q.PaginateQuery(pageQuery, args, sortColumns[req.OrderBy], req.SortBy, req.Limit, req.Offset())

	res := []*model{}
	var total uint64
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, countQuery, args...); err != nil {
			return err
		}

		if total <= req.Offset() {
			return nil
		}

		return tx.SelectContext(ctx, &res, pageQuery, pageArgs...)
	})
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

// toWhereClause builds the conjunction of filter predicates with positional
// arguments starting at $1.
func toWhereClause(filter *payment.Filter) (string, []interface{}) {
	if filter == nil {
		return "TRUE", nil
	}

	var conditions []string
	var args []interface{}

	nextArg := func(value interface{}) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.DebitCode != nil {
		conditions = append(conditions, "debit_code = "+nextArg(*filter.DebitCode))
	}

	if filter.UserIdentification != nil {
		conditions = append(conditions, "user_identification = "+nextArg(*filter.UserIdentification))
	}

	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			placeholders[i] = nextArg(uint8(state))
		}
		conditions = append(conditions, "state IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(conditions) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conditions, " AND "), args
}
