// Package sqlxrepos implements the core repositories on PostgreSQL,
// mapping rows with sqlx struct scanning. Repositories hold a default
// executor and accept a per-call override so services can run several
// calls inside one transaction.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core"
)

func getExec(repoExec core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repoExec
}

// selectAll scans every row of the query into dest, a pointer to a slice
// of db-tagged structs.
func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	if err = sqlx.StructScan(rows, dest); err != nil {
		return err
	}
	return rows.Err()
}

// countRows returns the number of rows affected, swallowing drivers that
// cannot report it.
func countRows(res sql.Result, err error, msg string) (int64, error) {
	if err != nil {
		return 0, errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func placeholder(n int) string { return "$" + strconv.Itoa(n) }

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(errors.Cause(err), &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
