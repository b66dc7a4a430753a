package transaction

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is the minimal shape the aggregator folds over. Any transaction
// source (full rows, windowed rows) reduces to it.
type Entry struct {
	StudentID string
	Amount    decimal.Decimal
	Type      string
}

// Summary holds the three running totals for one student.
type Summary struct {
	Balance          decimal.Decimal `json:"balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
}

// DisplayBalance clamps the balance at zero for presentation. The stored
// balance keeps its true (possibly negative) value so future deposits
// settle the deficit first.
func (s Summary) DisplayBalance() decimal.Decimal {
	if s.Balance.IsNegative() {
		return decimal.Zero
	}
	return s.Balance
}

// Aggregate folds entries into a Summary. Entries with an unknown type are
// ignored; order of entries does not affect the result.
func Aggregate(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Type {
		case TypeDeposit:
			s.TotalDeposits = s.TotalDeposits.Add(e.Amount)
			s.Balance = s.Balance.Add(e.Amount)
		case TypeWithdrawal:
			s.TotalWithdrawals = s.TotalWithdrawals.Add(e.Amount)
			s.Balance = s.Balance.Sub(e.Amount)
		}
	}
	return s
}

// PeriodSummary is one recap row: totals within the requested date window
// paired with the student's all-time balance. The balance deliberately
// ignores the window so the recap always shows where the student stands
// today.
type PeriodSummary struct {
	StudentID         string          `json:"student_id"`
	StudentName       string          `json:"student_name"`
	NISN              string          `json:"nisn"`
	Class             string          `json:"class"`
	PeriodDeposits    decimal.Decimal `json:"period_deposits"`
	PeriodWithdrawals decimal.Decimal `json:"period_withdrawals"`
	CurrentBalance    decimal.Decimal `json:"current_balance"`
}

// DisplayBalance clamps CurrentBalance at zero, same as Summary's rule:
// exports never show a negative balance.
func (p PeriodSummary) DisplayBalance() decimal.Decimal {
	if p.CurrentBalance.IsNegative() {
		return decimal.Zero
	}
	return p.CurrentBalance
}

// RecapTotals are the grand totals across all rows of a recap. NetChange
// is deposits minus withdrawals within the window.
type RecapTotals struct {
	Deposits    decimal.Decimal `json:"deposits"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	NetChange   decimal.Decimal `json:"net_change"`
}

// AggregatePeriod joins per-student all-time balances with transactions
// falling inside the recap window. Every student appears in the result,
// including students with no activity in the window. Rows are ordered by
// class then name.
func AggregatePeriod(students []StudentBalance, window []Entry) []PeriodSummary {
	sums := make(map[string]Summary, len(students))
	for _, e := range window {
		sums[e.StudentID] = Aggregate([]Entry{e}).merge(sums[e.StudentID])
	}

	rows := make([]PeriodSummary, 0, len(students))
	for _, sb := range students {
		s := sums[sb.StudentID]
		rows = append(rows, PeriodSummary{
			StudentID:         sb.StudentID,
			StudentName:       sb.StudentName,
			NISN:              sb.NISN,
			Class:             sb.Class,
			PeriodDeposits:    s.TotalDeposits,
			PeriodWithdrawals: s.TotalWithdrawals,
			CurrentBalance:    sb.CurrentBalance,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Class != rows[j].Class {
			return rows[i].Class < rows[j].Class
		}
		return rows[i].StudentName < rows[j].StudentName
	})
	return rows
}

func (s Summary) merge(other Summary) Summary {
	return Summary{
		Balance:          s.Balance.Add(other.Balance),
		TotalDeposits:    s.TotalDeposits.Add(other.TotalDeposits),
		TotalWithdrawals: s.TotalWithdrawals.Add(other.TotalWithdrawals),
	}
}

// Totals sums a recap's rows into grand totals.
func Totals(rows []PeriodSummary) RecapTotals {
	var t RecapTotals
	for _, r := range rows {
		t.Deposits = t.Deposits.Add(r.PeriodDeposits)
		t.Withdrawals = t.Withdrawals.Add(r.PeriodWithdrawals)
	}
	t.NetChange = t.Deposits.Sub(t.Withdrawals)
	return t
}

// Window bounds a recap. Zero values mean unbounded on that side.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

// Contains reports whether t falls inside the window, bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}
