package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func row(student, class string, amount int64, freq, day, teacher string) Row {
	r := Row{
		Schedule: Schedule{
			ID:             "sch-" + student,
			StudentID:      student,
			Class:          class,
			AmountExpected: decimal.NewFromInt(amount),
			Frequency:      freq,
		},
	}
	if day != "" {
		r.DayOfWeek.SetValid(day)
	}
	if teacher != "" {
		r.TeacherName.SetValid(teacher)
	}
	return r
}

func TestGroupSchedules(t *testing.T) {
	rows := []Row{
		row("s1", "Kelas 3", 5000, FreqWeekly, "Senin", "Bu Rina"),
		row("s2", "Kelas 3", 5000, FreqWeekly, "Senin", "Bu Rina"),
		row("s3", "Kelas 3", 5000, FreqWeekly, "Senin", "Bu Rina"),
		row("s4", "Kelas 3", 5000, FreqWeekly, "Senin", "Pak Andi"), // same plan, other teacher
		row("s5", "Kelas 3", 5000, FreqWeekly, "Selasa", "Bu Rina"), // other day
		row("s6", "Kelas 1", 2000, FreqDaily, "", ""),
		row("s7", "Kelas 1", 2000, FreqDaily, "", ""),
	}

	groups := GroupSchedules(rows)
	assert.Len(t, groups, 4)

	// every row lands in exactly one group
	total := 0
	for _, g := range groups {
		total += g.StudentCount
	}
	assert.Equal(t, len(rows), total)

	// ordered by class first; unassigned teachers share the fallback label
	assert.Equal(t, "Kelas 1", groups[0].Class)
	assert.Equal(t, UnassignedTeacher, groups[0].TeacherName)
	assert.Equal(t, 2, groups[0].StudentCount)

	// within a class: amount, frequency, then day ("Selasa" < "Senin")
	assert.Equal(t, "Selasa", groups[1].DayOfWeek)
	assert.Equal(t, "Bu Rina", groups[1].TeacherName)
	assert.Equal(t, 1, groups[1].StudentCount)

	assert.Equal(t, "Senin", groups[2].DayOfWeek)
	assert.Equal(t, "Bu Rina", groups[2].TeacherName)
	assert.Equal(t, 3, groups[2].StudentCount)

	// teacher name alone splits otherwise identical plans in the listing
	assert.Equal(t, "Pak Andi", groups[3].TeacherName)
	assert.Equal(t, 1, groups[3].StudentCount)
}

func TestGroupSchedulesEmpty(t *testing.T) {
	assert.Empty(t, GroupSchedules(nil))
}

func TestGroupSelectorMatches(t *testing.T) {
	sel := GroupSelector{
		Class:          "Kelas 3",
		AmountExpected: decimal.NewFromInt(5000),
		Frequency:      FreqWeekly,
		DayOfWeek:      "Senin",
	}

	assert.True(t, sel.Matches(row("s1", "Kelas 3", 5000, FreqWeekly, "Senin", "Bu Rina")))
	assert.False(t, sel.Matches(row("s1", "Kelas 3", 5000, FreqWeekly, "Selasa", "Bu Rina")))
	assert.False(t, sel.Matches(row("s1", "Kelas 3", 6000, FreqWeekly, "Senin", "Bu Rina")))

	// the plan tuple ignores teachers entirely
	assert.True(t, sel.Matches(row("s1", "Kelas 3", 5000, FreqWeekly, "Senin", "Pak Andi")))
	assert.True(t, sel.Matches(row("s1", "Kelas 3", 5000, FreqWeekly, "Senin", "")))

	// an empty selector day only matches rows without one
	daily := GroupSelector{Class: "Kelas 1", AmountExpected: decimal.NewFromInt(2000), Frequency: FreqDaily}
	assert.True(t, daily.Matches(row("s6", "Kelas 1", 2000, FreqDaily, "", "")))
	assert.False(t, daily.Matches(row("s6", "Kelas 1", 2000, FreqWeekly, "Senin", "")))
}

func TestGroupSelectorSpansTeachers(t *testing.T) {
	sel := GroupSelector{
		Class:          "Kelas 1",
		AmountExpected: decimal.NewFromInt(5000),
		Frequency:      FreqWeekly,
		DayOfWeek:      "Senin",
	}
	rows := []Row{
		row("s1", "Kelas 1", 5000, FreqWeekly, "Senin", "Bu Rina"),
		row("s2", "Kelas 1", 5000, FreqWeekly, "Senin", "Pak Andi"),
		row("s3", "Kelas 1", 5000, FreqWeekly, "Senin", ""),
		row("s4", "Kelas 1", 5000, FreqWeekly, "Selasa", "Bu Rina"),
	}

	var matched int
	for _, r := range rows {
		if sel.Matches(r) {
			matched++
		}
	}
	assert.Equal(t, 3, matched)
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "Senin", WeekdayName(time.Monday))
	assert.Equal(t, "Minggu", WeekdayName(time.Sunday))
}
