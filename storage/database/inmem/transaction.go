package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/student"
	"github.com/tabunganku/backend/core/transaction"
)

type transactionRepository struct {
	db *DB
}

var _ transaction.Repository = (*transactionRepository)(nil)

func NewTransactionRepository(db *DB) *transactionRepository {
	return &transactionRepository{db: db}
}

func (repo *transactionRepository) all() []transaction.Transaction {
	txns := make([]transaction.Transaction, 0, len(repo.db.transactions))
	for _, t := range repo.db.transactions {
		txns = append(txns, *t)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	return txns
}

func (repo *transactionRepository) studentInScope(scope authz.Scope, studentID string) (student.Student, bool) {
	std, ok := repo.db.students[studentID]
	if !ok {
		return student.Student{}, false
	}
	return *std, inScope(scope, *std)
}

func (repo *transactionRepository) CreateTransaction(ctx context.Context, txn transaction.Transaction, exec ...core.DBExecutor) (transaction.Transaction, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	txn.ID = uuid.New().String()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	repo.db.transactions[txn.ID] = &txn
	return txn, nil
}

func (repo *transactionRepository) GetTransactionByID(ctx context.Context, id string, exec ...core.DBExecutor) (transaction.Transaction, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	txn, ok := repo.db.transactions[id]
	if !ok {
		return transaction.Transaction{}, transaction.ErrNotFound
	}
	return *txn, nil
}

func (repo *transactionRepository) QueryTransactions(ctx context.Context, scope authz.Scope, filter transaction.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]transaction.Transaction, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var txns []transaction.Transaction
	for _, t := range repo.all() {
		std, ok := repo.studentInScope(scope, t.StudentID)
		if !ok {
			continue
		}
		if filter.StudentID != "" && t.StudentID != filter.StudentID {
			continue
		}
		if filter.Class != "" && std.Class != filter.Class {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if !filter.DateFrom.IsZero() && t.CreatedAt.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && t.CreatedAt.After(filter.DateTo) {
			continue
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func (repo *transactionRepository) DeleteTransactionByID(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.transactions[id]; !ok {
		return transaction.ErrNotFound
	}
	delete(repo.db.transactions, id)
	return nil
}

func (repo *transactionRepository) DeleteAllTransactions(ctx context.Context, exec ...core.DBExecutor) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := int64(len(repo.db.transactions))
	repo.db.transactions = make(map[string]*transaction.Transaction)
	return n, nil
}

func (repo *transactionRepository) balanceFor(std student.Student) transaction.StudentBalance {
	var entries []transaction.Entry
	for _, t := range repo.db.transactions {
		if t.StudentID == std.ID {
			entries = append(entries, transaction.Entry{StudentID: t.StudentID, Amount: t.Amount, Type: t.Type})
		}
	}
	sum := transaction.Aggregate(entries)
	return transaction.StudentBalance{
		StudentID:        std.ID,
		StudentName:      std.Name,
		NISN:             std.NISN,
		Class:            std.Class,
		TotalDeposits:    sum.TotalDeposits,
		TotalWithdrawals: sum.TotalWithdrawals,
		CurrentBalance:   sum.Balance,
	}
}

func (repo *transactionRepository) QueryStudentBalances(ctx context.Context, scope authz.Scope, class string, exec ...core.DBExecutor) ([]transaction.StudentBalance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var balances []transaction.StudentBalance
	for _, s := range repo.db.students {
		if !inScope(scope, *s) {
			continue
		}
		if class != "" && s.Class != class {
			continue
		}
		balances = append(balances, repo.balanceFor(*s))
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Class != balances[j].Class {
			return balances[i].Class < balances[j].Class
		}
		return balances[i].StudentName < balances[j].StudentName
	})
	return balances, nil
}

func (repo *transactionRepository) GetStudentBalance(ctx context.Context, studentID string, exec ...core.DBExecutor) (transaction.StudentBalance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	std, ok := repo.db.students[studentID]
	if !ok {
		return transaction.StudentBalance{}, student.ErrNotFound
	}
	return repo.balanceFor(*std), nil
}

func (repo *transactionRepository) GetGlobalStats(ctx context.Context, exec ...core.DBExecutor) (transaction.GlobalStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var entries []transaction.Entry
	for _, t := range repo.db.transactions {
		entries = append(entries, transaction.Entry{Amount: t.Amount, Type: t.Type})
	}
	sum := transaction.Aggregate(entries)
	return transaction.GlobalStats{
		TotalStudents:    len(repo.db.students),
		TotalBalance:     sum.Balance,
		TotalDeposits:    sum.TotalDeposits,
		TotalWithdrawals: sum.TotalWithdrawals,
	}, nil
}

func (repo *transactionRepository) QueryWindow(ctx context.Context, scope authz.Scope, class string, w transaction.Window, exec ...core.DBExecutor) ([]transaction.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var entries []transaction.Entry
	for _, t := range repo.db.transactions {
		std, ok := repo.studentInScope(scope, t.StudentID)
		if !ok {
			continue
		}
		if class != "" && std.Class != class {
			continue
		}
		if !w.Contains(t.CreatedAt) {
			continue
		}
		entries = append(entries, transaction.Entry{StudentID: t.StudentID, Amount: t.Amount, Type: t.Type})
	}
	return entries, nil
}
