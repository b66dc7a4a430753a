package transaction

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
)

var (
	ErrNotFound            = core.NewNotFoundError("transaction not found")
	ErrInsufficientBalance = core.NewValidationError(nil, core.FieldError{
		Field: "amount", Error: "Jumlah penarikan melebihi saldo yang tersedia.",
	})
)

type Repository interface {
	CreateTransaction(ctx context.Context, txn Transaction, exec ...core.DBExecutor) (Transaction, error)
	GetTransactionByID(ctx context.Context, id string, exec ...core.DBExecutor) (Transaction, error)
	QueryTransactions(ctx context.Context, scope authz.Scope, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Transaction, error)
	DeleteTransactionByID(ctx context.Context, id string, exec ...core.DBExecutor) error
	DeleteAllTransactions(ctx context.Context, exec ...core.DBExecutor) (int64, error)
	QueryStudentBalances(ctx context.Context, scope authz.Scope, class string, exec ...core.DBExecutor) ([]StudentBalance, error)
	GetStudentBalance(ctx context.Context, studentID string, exec ...core.DBExecutor) (StudentBalance, error)
	GetGlobalStats(ctx context.Context, exec ...core.DBExecutor) (GlobalStats, error)
	QueryWindow(ctx context.Context, scope authz.Scope, class string, w Window, exec ...core.DBExecutor) ([]Entry, error)
}

// DepositPolicy gates deposits on the student's saving schedule. The
// schedule package provides the implementation; keeping it behind an
// interface here avoids coupling recording to scheduling.
type DepositPolicy interface {
	ValidateDeposit(studentID string, on time.Time) error
}

type ServiceInterface interface {
	Create(scope authz.Scope, nt NewTransaction) (Transaction, error)
	GetByID(id string) (Transaction, error)
	Query(scope authz.Scope, filter QueryFilter) ([]Transaction, error)
	Delete(id string) error
	DeleteAll() (int64, error)
	Balances(scope authz.Scope, class string) ([]StudentBalance, error)
	Balance(studentID string) (StudentBalance, error)
	GlobalStats() (GlobalStats, error)
	Recap(scope authz.Scope, class string, w Window) ([]PeriodSummary, RecapTotals, error)
}

type service struct {
	db       core.DB
	repo     Repository
	validate *validator.Validate
	policy   DepositPolicy
	nowFunc  func() time.Time
}

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, validate *validator.Validate, policy DepositPolicy) *service {
	return &service{
		db:       db,
		repo:     repo,
		validate: validate,
		policy:   policy,
		nowFunc:  time.Now,
	}
}

// Create records a deposit or withdrawal. Only teachers record; the
// withdrawal ceiling is re-checked here against the stored balance so a
// stale client cannot overdraw. Note the ceiling uses the true balance,
// not the clamped display value.
func (s *service) Create(scope authz.Scope, nt NewTransaction) (Transaction, error) {
	ctx := context.Background()
	if !scope.CanWriteTransactions() {
		return Transaction{}, core.NewAuthorizationError("only teachers can record transactions")
	}
	if err := nt.Validate(s.validate); err != nil {
		return Transaction{}, err
	}

	now := s.nowFunc().UTC()
	switch nt.Type {
	case TypeWithdrawal:
		bal, err := s.repo.GetStudentBalance(ctx, nt.StudentID)
		if err != nil {
			return Transaction{}, err
		}
		if nt.Amount.GreaterThan(bal.CurrentBalance) {
			return Transaction{}, ErrInsufficientBalance
		}
	case TypeDeposit:
		if s.policy != nil {
			if err := s.policy.ValidateDeposit(nt.StudentID, now); err != nil {
				return Transaction{}, err
			}
		}
	}

	txn := Transaction{
		StudentID: nt.StudentID,
		TeacherID: scope.ProfileID,
		Amount:    nt.Amount,
		Type:      nt.Type,
		CreatedAt: now,
	}
	if nt.Description != "" {
		txn.Description.SetValid(nt.Description)
	}
	return s.repo.CreateTransaction(ctx, txn)
}

func (s *service) GetByID(id string) (Transaction, error) {
	return s.repo.GetTransactionByID(context.Background(), id)
}

func (s *service) Query(scope authz.Scope, filter QueryFilter) ([]Transaction, error) {
	filter.Clean()
	ordering := []core.DBOrdering{{Field: "created_at"}} // newest first
	return s.repo.QueryTransactions(context.Background(), scope, filter, ordering)
}

func (s *service) Delete(id string) error {
	return s.repo.DeleteTransactionByID(context.Background(), id)
}

func (s *service) DeleteAll() (int64, error) {
	return s.repo.DeleteAllTransactions(context.Background())
}

func (s *service) Balances(scope authz.Scope, class string) ([]StudentBalance, error) {
	return s.repo.QueryStudentBalances(context.Background(), scope, core.CleanString(class))
}

func (s *service) Balance(studentID string) (StudentBalance, error) {
	return s.repo.GetStudentBalance(context.Background(), studentID)
}

func (s *service) GlobalStats() (GlobalStats, error) {
	return s.repo.GetGlobalStats(context.Background())
}

// Recap builds the period report: windowed totals per student joined with
// all-time balances, plus grand totals.
func (s *service) Recap(scope authz.Scope, class string, w Window) ([]PeriodSummary, RecapTotals, error) {
	ctx := context.Background()
	class = core.CleanString(class)
	students, err := s.repo.QueryStudentBalances(ctx, scope, class)
	if err != nil {
		return nil, RecapTotals{}, err
	}
	window, err := s.repo.QueryWindow(ctx, scope, class, w)
	if err != nil {
		return nil, RecapTotals{}, err
	}
	rows := AggregatePeriod(students, window)
	return rows, Totals(rows), nil
}
