package pg

import (
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
)

func CheckNoRows(inErr, outErr error) error {
	if IsNoRows(inErr) {
		return outErr
	}
	return inErr
}

func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows)
}

func CheckUniqueViolation(inErr, outErr error) error {
	if IsUniqueViolation(inErr) {
		return outErr
	}
	return inErr
}

func IsUniqueViolation(err error) bool {
	return hasPgErrorCode(err, pgerrcode.UniqueViolation)
}

// IsSerializationFailure returns whether a transaction was aborted due to a
// serialization conflict with a concurrent transaction. These transactions can
// be safely retried from the start.
func IsSerializationFailure(err error) bool {
	return hasPgErrorCode(err, pgerrcode.SerializationFailure)
}

func hasPgErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
