package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/student"
	"github.com/tabunganku/backend/core/transaction"
)

type transactionRepository struct {
	exec core.DBExecutor
}

var _ transaction.Repository = (*transactionRepository)(nil) // interface compliance check

func NewTransactionRepository(exec core.DBExecutor) *transactionRepository {
	return &transactionRepository{exec: exec}
}

type transactionRow struct {
	ID          string          `db:"id"`
	StudentID   string          `db:"student_id"`
	TeacherID   null.String     `db:"teacher_id"`
	Amount      decimal.Decimal `db:"amount"`
	Type        string          `db:"type"`
	Description null.String     `db:"description"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r transactionRow) toCore() transaction.Transaction {
	return transaction.Transaction{
		ID:          r.ID,
		StudentID:   r.StudentID,
		TeacherID:   r.TeacherID.String,
		Amount:      r.Amount,
		Type:        r.Type,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

type balanceRow struct {
	StudentID        string          `db:"student_id"`
	StudentName      string          `db:"student_name"`
	NISN             string          `db:"nisn"`
	Class            string          `db:"class"`
	TeacherID        null.String     `db:"teacher_id"`
	ParentID         null.String     `db:"parent_id"`
	TotalDeposits    decimal.Decimal `db:"total_deposits"`
	TotalWithdrawals decimal.Decimal `db:"total_withdrawals"`
	CurrentBalance   decimal.Decimal `db:"current_balance"`
}

func (r balanceRow) toCore() transaction.StudentBalance {
	return transaction.StudentBalance{
		StudentID:        r.StudentID,
		StudentName:      r.StudentName,
		NISN:             r.NISN,
		Class:            r.Class,
		TotalDeposits:    r.TotalDeposits,
		TotalWithdrawals: r.TotalWithdrawals,
		CurrentBalance:   r.CurrentBalance,
	}
}

const transactionColumns = "t.id, t.student_id, t.teacher_id, t.amount, t.type, t.description, t.created_at"

func (repo transactionRepository) CreateTransaction(ctx context.Context, txn transaction.Transaction, exec ...core.DBExecutor) (transaction.Transaction, error) {
	txn.ID = uuid.New().String()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions (id, student_id, teacher_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	teacherID := null.NewString(txn.TeacherID, txn.TeacherID != "")
	_, err := getExec(repo.exec, exec).ExecContext(ctx, query,
		txn.ID, txn.StudentID, teacherID, txn.Amount, txn.Type, txn.Description, txn.CreatedAt,
	)
	if err != nil {
		return transaction.Transaction{}, errors.Wrap(err, "inserting transaction")
	}
	return txn, nil
}

func (repo transactionRepository) GetTransactionByID(ctx context.Context, id string, exec ...core.DBExecutor) (transaction.Transaction, error) {
	var rows []transactionRow
	query := "SELECT " + transactionColumns + " FROM transactions t WHERE t.id = $1"
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, id); err != nil {
		return transaction.Transaction{}, errors.Wrap(err, "getting transaction")
	}
	if len(rows) == 0 {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return rows[0].toCore(), nil
}

func (repo transactionRepository) QueryTransactions(ctx context.Context, scope authz.Scope, filter transaction.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]transaction.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions t JOIN students s ON s.id = t.student_id"
	var conds []string
	var args []interface{}

	if cond := scopeCond(scope, &args, "s"); cond != "" {
		conds = append(conds, cond)
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conds = append(conds, "t.student_id = "+placeholder(len(args)))
	}
	if filter.Class != "" {
		args = append(args, filter.Class)
		conds = append(conds, "s.class = "+placeholder(len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, "t.type = "+placeholder(len(args)))
	}
	if !filter.DateFrom.IsZero() {
		args = append(args, filter.DateFrom)
		conds = append(conds, "t.created_at >= "+placeholder(len(args)))
	}
	if !filter.DateTo.IsZero() {
		args = append(args, filter.DateTo)
		conds = append(conds, "t.created_at <= "+placeholder(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		parts := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			parts = append(parts, "t."+ord.String())
		}
		query += " ORDER BY " + strings.Join(parts, ", ")
	}

	var rows []transactionRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying transactions")
	}
	txns := make([]transaction.Transaction, 0, len(rows))
	for _, r := range rows {
		txns = append(txns, r.toCore())
	}
	return txns, nil
}

func (repo transactionRepository) DeleteTransactionByID(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM transactions WHERE id = $1", id)
	n, err := countRows(res, err, "deleting transaction")
	if err != nil {
		return err
	}
	if n == 0 {
		return transaction.ErrNotFound
	}
	return nil
}

func (repo transactionRepository) DeleteAllTransactions(ctx context.Context, exec ...core.DBExecutor) (int64, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM transactions")
	return countRows(res, err, "deleting all transactions")
}

func (repo transactionRepository) QueryStudentBalances(ctx context.Context, scope authz.Scope, class string, exec ...core.DBExecutor) ([]transaction.StudentBalance, error) {
	query := "SELECT * FROM student_balances_view"
	var conds []string
	var args []interface{}

	if cond := scopeCond(scope, &args, ""); cond != "" {
		conds = append(conds, cond)
	}
	if class != "" {
		args = append(args, class)
		conds = append(conds, "class = "+placeholder(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY class, student_name"

	var rows []balanceRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying student balances")
	}
	balances := make([]transaction.StudentBalance, 0, len(rows))
	for _, r := range rows {
		balances = append(balances, r.toCore())
	}
	return balances, nil
}

func (repo transactionRepository) GetStudentBalance(ctx context.Context, studentID string, exec ...core.DBExecutor) (transaction.StudentBalance, error) {
	var rows []balanceRow
	query := "SELECT * FROM student_balances_view WHERE student_id = $1"
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, studentID); err != nil {
		return transaction.StudentBalance{}, errors.Wrap(err, "getting student balance")
	}
	if len(rows) == 0 {
		return transaction.StudentBalance{}, student.ErrNotFound
	}
	return rows[0].toCore(), nil
}

func (repo transactionRepository) GetGlobalStats(ctx context.Context, exec ...core.DBExecutor) (transaction.GlobalStats, error) {
	type statsRow struct {
		TotalStudents    int             `db:"total_students"`
		TotalDeposits    decimal.Decimal `db:"total_deposits"`
		TotalWithdrawals decimal.Decimal `db:"total_withdrawals"`
		TotalBalance     decimal.Decimal `db:"total_balance"`
	}
	var rows []statsRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, "SELECT * FROM app_global_stats_view"); err != nil {
		return transaction.GlobalStats{}, errors.Wrap(err, "getting global stats")
	}
	if len(rows) == 0 {
		return transaction.GlobalStats{}, nil
	}
	return transaction.GlobalStats{
		TotalStudents:    rows[0].TotalStudents,
		TotalBalance:     rows[0].TotalBalance,
		TotalDeposits:    rows[0].TotalDeposits,
		TotalWithdrawals: rows[0].TotalWithdrawals,
	}, nil
}

func (repo transactionRepository) QueryWindow(ctx context.Context, scope authz.Scope, class string, w transaction.Window, exec ...core.DBExecutor) ([]transaction.Entry, error) {
	query := "SELECT t.student_id, t.amount, t.type FROM transactions t JOIN students s ON s.id = t.student_id"
	var conds []string
	var args []interface{}

	if cond := scopeCond(scope, &args, "s"); cond != "" {
		conds = append(conds, cond)
	}
	if class != "" {
		args = append(args, class)
		conds = append(conds, "s.class = "+placeholder(len(args)))
	}
	if !w.From.IsZero() {
		args = append(args, w.From)
		conds = append(conds, "t.created_at >= "+placeholder(len(args)))
	}
	if !w.To.IsZero() {
		args = append(args, w.To)
		conds = append(conds, "t.created_at <= "+placeholder(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	type entryRow struct {
		StudentID string          `db:"student_id"`
		Amount    decimal.Decimal `db:"amount"`
		Type      string          `db:"type"`
	}
	var rows []entryRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying transaction window")
	}
	entries := make([]transaction.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, transaction.Entry{StudentID: r.StudentID, Amount: r.Amount, Type: r.Type})
	}
	return entries, nil
}
