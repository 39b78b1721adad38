package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	ppostgres "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/postgres"
)

// Error implements repositories.RepositoryError for Postgres backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool { return e.notFound }

func (e *Error) IsConflict() bool { return e.conflict }

func (e *Error) IsUnavailable() bool { return e.unavailable }

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var connErr *pgconn.ConnectError
	return &Error{
		op:          op,
		err:         err,
		notFound:    errors.Is(err, pgx.ErrNoRows),
		conflict:    ppostgres.IsUniqueViolation(err),
		unavailable: errors.As(err, &connErr) || pgconn.SafeToRetry(err),
	}
}

func notFound(op, id string) error {
	return &Error{op: op, err: fmt.Errorf("%s not found", id), notFound: true}
}
