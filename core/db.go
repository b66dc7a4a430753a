package core

import (
	"context"
	"database/sql"
)

// DBExecutor is the slice of *sql.DB that repositories need to run
// queries. A *sql.Tx satisfies it too, so a service can hand repositories
// a transaction and have every call ride on it.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB adds transaction control on top of DBExecutor. Services hold a DB;
// repositories only ever see the executor.
type DB interface {
	DBExecutor

	Begin() (*sql.Tx, error)
	BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
}

// DBOrdering is one ORDER BY term. The zero Ascending means newest or
// largest first, which is what listing endpoints want by default.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
