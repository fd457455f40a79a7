// Package store is the Postgres persistence layer for forms, applications,
// responses, the approval ledger and admin notes.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"camp-portal/internal/common/database"
	apperrors "camp-portal/internal/common/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound         = errors.New("NOT_FOUND")
	ErrUniqueViolation  = errors.New("UNIQUE_VIOLATION")
	ErrQuestionNotFound = errors.New("QUESTION_NOT_FOUND")
	ErrFileNotFound     = errors.New("FILE_NOT_FOUND")
	// ErrStatusChanged is returned by guarded status updates whose expected
	// prior status no longer holds.
	ErrStatusChanged = errors.New("STATUS_CHANGED")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	// Every id column is a UUID, so a malformed id names no row.
	pqInvalidText = "22P02"
)

//go:embed schema.sql
var schemaDDL string

// Queries runs statements against either the pool or an open transaction.
type Queries struct {
	db sqlx.ExtContext
}

func NewQueries(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

// Store is the non-transactional entry point. Use InTx for multi-statement work.
type Store struct {
	*Queries
	pg *database.PostgresClient
}

func New(pg *database.PostgresClient) *Store {
	return &Store{Queries: NewQueries(pg.DB), pg: pg}
}

// InTx runs fn with Queries bound to a single transaction. A transaction that
// cannot be opened surfaces as a retryable connection error.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(NewQueries(tx))
	})
	if errors.Is(err, database.ErrBeginTx) {
		return apperrors.NewDatabaseConnectionFailedError(err)
	}
	return err
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pg.DB.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (q *Queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return mapError(sqlx.GetContext(ctx, q.db, dest, query, args...))
}

func (q *Queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return mapError(sqlx.SelectContext(ctx, q.db, dest, query, args...))
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pqErr.Constraint)
		case pqForeignKeyViolation:
			switch pqErr.Constraint {
			case "application_responses_question_fk":
				return fmt.Errorf("%w: %s", ErrQuestionNotFound, pqErr.Detail)
			case "application_responses_file_fk":
				return fmt.Errorf("%w: %s", ErrFileNotFound, pqErr.Detail)
			}
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		case pqInvalidText:
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Message)
		}
	}
	return err
}
