package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/FindMalek/dukkani-sub000/internal/database"
	"github.com/FindMalek/dukkani-sub000/internal/utils"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// mapError converts driver errors into the service error taxonomy. subject
// names the record for the error message.
func mapError(err error, subject string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return utils.NotFoundf("%s not found", subject)
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%w: %s already exists", utils.ErrBadRequest, subject)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s references an unknown record", utils.ErrBadRequest, subject)
	case pqCheckViolation:
		if strings.Contains(pqErr.Constraint, "stock") {
			return fmt.Errorf("%w: %s stock cannot go below zero", utils.ErrInsufficientStock, subject)
		}
		return fmt.Errorf("%w: %s violates %s", utils.ErrBadRequest, subject, pqErr.Constraint)
	}
	return err
}

// conn returns q, or the pool when the caller is not inside a transaction.
func conn(db *sqlx.DB, q database.Queryer) database.Queryer {
	if q != nil {
		return q
	}
	return db
}
