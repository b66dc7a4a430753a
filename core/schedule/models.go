package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
)

// Saving frequencies
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

var AllFrequencies = []string{FreqDaily, FreqWeekly, FreqMonthly}

// WeekdayOptions are the Indonesian day names accepted for weekly
// schedules, Monday first to match the school week.
var WeekdayOptions = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu", "Minggu"}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "Senin",
	time.Tuesday:   "Selasa",
	time.Wednesday: "Rabu",
	time.Thursday:  "Kamis",
	time.Friday:    "Jumat",
	time.Saturday:  "Sabtu",
	time.Sunday:    "Minggu",
}

// WeekdayName translates a Go weekday into its Indonesian name.
func WeekdayName(d time.Weekday) string { return weekdayNames[d] }

// Schedule is one student's saving plan. A student has at most one.
type Schedule struct {
	ID             string          `json:"id"`
	StudentID      string          `json:"student_id"`
	Class          string          `json:"class"`
	AmountExpected decimal.Decimal `json:"amount_expected"`
	Frequency      string          `json:"frequency"`
	DayOfWeek      null.String     `json:"day_of_week,omitempty"`
	TeacherID      null.String     `json:"teacher_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewSchedule contains information needed to create schedules for a class.
type NewSchedule struct {
	Class          string          `json:"class" validate:"required,class"`
	AmountExpected decimal.Decimal `json:"amount_expected"`
	Frequency      string          `json:"frequency" validate:"required,frequency"`
	DayOfWeek      string          `json:"day_of_week" validate:"omitempty,weekday"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Class = core.CleanString(ns.Class)
	ns.DayOfWeek = core.CleanString(ns.DayOfWeek)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.AmountExpected.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "amount_expected", Error: "amount_expected must be greater than zero",
		})
	}
	// day_of_week is meaningful only for weekly schedules
	if ns.Frequency == FreqWeekly && ns.DayOfWeek == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "day_of_week", Error: "day_of_week is required for weekly schedules",
		})
	}
	if ns.Frequency != FreqWeekly && ns.DayOfWeek != "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "day_of_week", Error: "day_of_week only applies to weekly schedules",
		})
	}
	return nil
}

// GroupSelector identifies one plan for grouped update/delete: every
// schedule sharing these four fields belongs to the same plan, whichever
// teacher assigned it. DayOfWeek may be empty, matching rows where the
// column is NULL. The teacher name splits the grouped listing for display
// only and never keys a write.
type GroupSelector struct {
	Class          string          `json:"class" validate:"required"`
	AmountExpected decimal.Decimal `json:"amount_expected"`
	Frequency      string          `json:"frequency" validate:"required,frequency"`
	DayOfWeek      string          `json:"day_of_week"`
}

func (gs *GroupSelector) Clean() {
	gs.Class = core.CleanString(gs.Class)
	gs.DayOfWeek = core.CleanString(gs.DayOfWeek)
}

// UpdateGroup carries the replacement values for a grouped update.
type UpdateGroup struct {
	Selector GroupSelector `json:"selector"`
	Changes  NewSchedule   `json:"changes"`
}
