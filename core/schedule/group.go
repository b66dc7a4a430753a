package schedule

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// UnassignedTeacher labels groups whose schedules have no teacher on
// record. The label itself takes part in grouping, so unassigned
// schedules that otherwise match collapse into one row.
const UnassignedTeacher = "Guru Tidak Ditetapkan"

// Row is a schedule joined with its teacher's display name.
type Row struct {
	Schedule
	TeacherName null.String `json:"teacher_name,omitempty"`
}

// Group is one row of the grouped schedule listing: the shared plan plus
// how many students are on it.
type Group struct {
	Class          string          `json:"class"`
	AmountExpected decimal.Decimal `json:"amount_expected"`
	Frequency      string          `json:"frequency"`
	DayOfWeek      string          `json:"day_of_week,omitempty"`
	TeacherName    string          `json:"teacher_name"`
	StudentCount   int             `json:"student_count"`
}

type groupKey struct {
	class     string
	amount    string // decimal normalized via String()
	frequency string
	dayOfWeek string
	teacher   string
}

// GroupSchedules collapses per-student schedules into distinct plans. Two
// schedules group together only when class, amount, frequency, day of week
// and teacher name all match; the result is ordered by class, amount,
// frequency, day, teacher.
func GroupSchedules(rows []Row) []Group {
	groups := make(map[groupKey]*Group, len(rows))
	for _, r := range rows {
		teacher := UnassignedTeacher
		if r.TeacherName.Valid && r.TeacherName.String != "" {
			teacher = r.TeacherName.String
		}
		key := groupKey{
			class:     r.Class,
			amount:    r.AmountExpected.String(),
			frequency: r.Frequency,
			dayOfWeek: r.DayOfWeek.String,
			teacher:   teacher,
		}
		g, ok := groups[key]
		if !ok {
			g = &Group{
				Class:          r.Class,
				AmountExpected: r.AmountExpected,
				Frequency:      r.Frequency,
				DayOfWeek:      r.DayOfWeek.String,
				TeacherName:    teacher,
			}
			groups[key] = g
		}
		g.StudentCount++
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if !a.AmountExpected.Equal(b.AmountExpected) {
			return a.AmountExpected.LessThan(b.AmountExpected)
		}
		if a.Frequency != b.Frequency {
			return a.Frequency < b.Frequency
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.TeacherName < b.TeacherName
	})
	return out
}

// Matches reports whether a row belongs to the selector's plan. An empty
// selector day matches rows without one. The row's teacher is irrelevant
// here; teachers only split the grouped listing.
func (gs GroupSelector) Matches(r Row) bool {
	if r.Class != gs.Class || r.Frequency != gs.Frequency {
		return false
	}
	if !r.AmountExpected.Equal(gs.AmountExpected) {
		return false
	}
	return r.DayOfWeek.String == gs.DayOfWeek
}
