package transaction

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
)

// Transaction types
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
)

// Transaction is immutable once recorded; there is no update path, only
// admin deletion. Corrections are delete + re-insert.
type Transaction struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	TeacherID   string          `json:"teacher_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description null.String     `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
}

// NewTransaction contains information needed to record a transaction.
type NewTransaction struct {
	StudentID   string          `json:"student_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" validate:"required,oneof=deposit withdrawal"`
	Description string          `json:"description"`
}

func (nt *NewTransaction) Validate(validate *validator.Validate) error {
	nt.Description = core.CleanString(nt.Description)
	if err := validate.Struct(nt); err != nil {
		return err
	}
	if !nt.Amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "amount", Error: "amount must be greater than zero",
		})
	}
	return nil
}

type QueryFilter struct {
	StudentID string    `query:"student_id"`
	Class     string    `query:"class"`
	Type      string    `query:"type"`
	DateFrom  time.Time `query:"date_from"`
	DateTo    time.Time `query:"date_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Class = core.CleanString(qf.Class)
	qf.Type = core.CleanString(qf.Type, true /* lower */)
}

// StudentBalance is one row of student_balances_view: all-time totals per
// student, precomputed by the store.
type StudentBalance struct {
	StudentID        string          `json:"student_id"`
	StudentName      string          `json:"student_name"`
	NISN             string          `json:"nisn"`
	Class            string          `json:"class"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
}

// GlobalStats is the single row of app_global_stats_view.
type GlobalStats struct {
	TotalStudents    int             `json:"total_students"`
	TotalBalance     decimal.Decimal `json:"total_balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
}
