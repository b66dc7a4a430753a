package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/schedule"
)

type scheduleRepository struct {
	exec core.DBExecutor
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor) *scheduleRepository {
	return &scheduleRepository{exec: exec}
}

type scheduleRow struct {
	ID             string          `db:"id"`
	StudentID      string          `db:"student_id"`
	Class          string          `db:"class"`
	AmountExpected decimal.Decimal `db:"amount_expected"`
	Frequency      string          `db:"frequency"`
	DayOfWeek      null.String     `db:"day_of_week"`
	TeacherID      null.String     `db:"teacher_id"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	TeacherName    null.String     `db:"teacher_name"`
}

func (r scheduleRow) toCore() schedule.Schedule {
	return schedule.Schedule{
		ID:             r.ID,
		StudentID:      r.StudentID,
		Class:          r.Class,
		AmountExpected: r.AmountExpected,
		Frequency:      r.Frequency,
		DayOfWeek:      r.DayOfWeek,
		TeacherID:      r.TeacherID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const scheduleColumns = "sch.id, sch.student_id, sch.class, sch.amount_expected, sch.frequency, sch.day_of_week, sch.teacher_id, sch.created_at, sch.updated_at"

func (repo scheduleRepository) UpsertSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	sch.ID = uuid.New().String()
	now := time.Now().UTC()
	sch.CreatedAt, sch.UpdatedAt = now, now

	// one plan per student; a new plan replaces the old one
	query := `
		INSERT INTO saving_schedules (id, student_id, class, amount_expected, frequency, day_of_week, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (student_id) DO UPDATE
		SET class = EXCLUDED.class, amount_expected = EXCLUDED.amount_expected, frequency = EXCLUDED.frequency,
		    day_of_week = EXCLUDED.day_of_week, teacher_id = EXCLUDED.teacher_id, updated_at = EXCLUDED.updated_at`
	_, err := getExec(repo.exec, exec).ExecContext(ctx, query,
		sch.ID, sch.StudentID, sch.Class, sch.AmountExpected, sch.Frequency, sch.DayOfWeek, sch.TeacherID, sch.CreatedAt, sch.UpdatedAt,
	)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "upserting schedule")
	}
	return sch, nil
}

func (repo scheduleRepository) GetScheduleForStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) (schedule.Schedule, error) {
	query := "SELECT " + scheduleColumns + ", NULL AS teacher_name FROM saving_schedules sch WHERE sch.student_id = $1"

	var rows []scheduleRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, studentID); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "getting schedule")
	}
	if len(rows) == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return rows[0].toCore(), nil
}

func (repo scheduleRepository) QueryScheduleRows(ctx context.Context, scope authz.Scope, class string, exec ...core.DBExecutor) ([]schedule.Row, error) {
	query := `
		SELECT ` + scheduleColumns + `,
		       NULLIF(TRIM(CONCAT(p.first_name, ' ', p.last_name)), '') AS teacher_name
		FROM saving_schedules sch
		         JOIN students s ON s.id = sch.student_id
		         LEFT JOIN profiles p ON p.id = sch.teacher_id`
	var conds []string
	var args []interface{}

	if cond := scopeCond(scope, &args, "s"); cond != "" {
		conds = append(conds, cond)
	}
	if class != "" {
		args = append(args, class)
		conds = append(conds, "sch.class = "+placeholder(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY sch.class, sch.created_at"

	var rows []scheduleRow
	if err := selectAll(ctx, getExec(repo.exec, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	out := make([]schedule.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, schedule.Row{Schedule: r.toCore(), TeacherName: r.TeacherName})
	}
	return out, nil
}

func (repo scheduleRepository) UpdateSchedulesByID(ctx context.Context, ids []string, changes schedule.NewSchedule, exec ...core.DBExecutor) (int64, error) {
	dayOfWeek := null.NewString(changes.DayOfWeek, changes.DayOfWeek != "")
	query := `
		UPDATE saving_schedules
		SET class = $2, amount_expected = $3, frequency = $4, day_of_week = $5, updated_at = $6
		WHERE id = ANY($1)`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query,
		pq.Array(ids), changes.Class, changes.AmountExpected, changes.Frequency, dayOfWeek, time.Now().UTC(),
	)
	return countRows(res, err, "updating schedules")
}

func (repo scheduleRepository) DeleteSchedulesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM saving_schedules WHERE id = ANY($1)", pq.Array(ids))
	return countRows(res, err, "deleting schedules")
}

func (repo scheduleRepository) QueryClassStudentIDs(ctx context.Context, class string, exec ...core.DBExecutor) ([]string, error) {
	rows, err := getExec(repo.exec, exec).QueryContext(ctx, "SELECT id FROM students WHERE class = $1 ORDER BY name", class)
	if err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "querying class students")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "querying class students")
}
