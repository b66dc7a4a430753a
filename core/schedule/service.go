package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/profile"
)

var ErrNotFound = core.NewNotFoundError("schedule not found")

type Repository interface {
	UpsertSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
	GetScheduleForStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) (Schedule, error)
	QueryScheduleRows(ctx context.Context, scope authz.Scope, class string, exec ...core.DBExecutor) ([]Row, error)
	UpdateSchedulesByID(ctx context.Context, ids []string, changes NewSchedule, exec ...core.DBExecutor) (int64, error)
	DeleteSchedulesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int64, error)
	QueryClassStudentIDs(ctx context.Context, class string, exec ...core.DBExecutor) ([]string, error)
}

type ServiceInterface interface {
	BulkCreateForClass(scope authz.Scope, ns NewSchedule) (core.BatchReport, error)
	QueryGrouped(scope authz.Scope, class string) ([]Group, error)
	UpdateGrouped(scope authz.Scope, ug UpdateGroup) (int64, error)
	DeleteGrouped(scope authz.Scope, sel GroupSelector) (int64, error)
	GetForStudent(studentID string) (Schedule, error)
	ValidateDeposit(studentID string, on time.Time) error
}

type service struct {
	db       core.DB
	repo     Repository
	validate *validator.Validate
	logger   core.Logger
}

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, validate *validator.Validate, logger core.Logger) *service {
	return &service{
		db:       db,
		repo:     repo,
		validate: validate,
		logger:   logger,
	}
}

// BulkCreateForClass puts every student of the class on the given plan.
// A student already on a plan is moved to the new one. Failures on single
// students do not stop the rest; the report carries them per index.
func (s *service) BulkCreateForClass(scope authz.Scope, ns NewSchedule) (core.BatchReport, error) {
	ctx := context.Background()
	if err := ns.Validate(s.validate); err != nil {
		return core.BatchReport{}, err
	}

	studentIDs, err := s.repo.QueryClassStudentIDs(ctx, ns.Class)
	if err != nil {
		return core.BatchReport{}, err
	}
	if len(studentIDs) == 0 {
		return core.BatchReport{}, core.NewValidationError(nil, core.FieldError{
			Field: "class", Error: "no students in class",
		})
	}

	report := core.RunBatch(len(studentIDs), func(i int) error {
		sch := Schedule{
			StudentID:      studentIDs[i],
			Class:          ns.Class,
			AmountExpected: ns.AmountExpected,
			Frequency:      ns.Frequency,
		}
		if ns.DayOfWeek != "" {
			sch.DayOfWeek.SetValid(ns.DayOfWeek)
		}
		if scope.Role == profile.RoleTeacher {
			sch.TeacherID.SetValid(scope.ProfileID)
		}
		_, err := s.repo.UpsertSchedule(ctx, sch)
		return err
	})
	for _, f := range report.Failed {
		s.logger.Warn(fmt.Sprintf("schedule: create for student %s failed: %v", studentIDs[f.Index], f.Err))
	}
	return report, nil
}

func (s *service) QueryGrouped(scope authz.Scope, class string) ([]Group, error) {
	rows, err := s.repo.QueryScheduleRows(context.Background(), scope, core.CleanString(class))
	if err != nil {
		return nil, err
	}
	return GroupSchedules(rows), nil
}

// UpdateGrouped rewrites every schedule on the selected plan and returns
// how many rows changed. Matching happens here rather than in SQL so the
// empty-day rule stays in one place.
func (s *service) UpdateGrouped(scope authz.Scope, ug UpdateGroup) (int64, error) {
	ctx := context.Background()
	if err := ug.Changes.Validate(s.validate); err != nil {
		return 0, err
	}
	ids, err := s.selectGroup(ctx, scope, &ug.Selector)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.UpdateSchedulesByID(ctx, ids, ug.Changes)
}

func (s *service) DeleteGrouped(scope authz.Scope, sel GroupSelector) (int64, error) {
	ctx := context.Background()
	ids, err := s.selectGroup(ctx, scope, &sel)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.DeleteSchedulesByID(ctx, ids)
}

func (s *service) selectGroup(ctx context.Context, scope authz.Scope, sel *GroupSelector) ([]string, error) {
	sel.Clean()
	if err := s.validate.Struct(sel); err != nil {
		return nil, err
	}
	rows, err := s.repo.QueryScheduleRows(ctx, scope, sel.Class)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range rows {
		if sel.Matches(r) {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (s *service) GetForStudent(studentID string) (Schedule, error) {
	return s.repo.GetScheduleForStudent(context.Background(), studentID)
}

// ValidateDeposit enforces the saving plan when recording a deposit: a
// weekly plan only accepts deposits on its day. Students without a plan,
// and daily or monthly plans, accept deposits any day.
func (s *service) ValidateDeposit(studentID string, on time.Time) error {
	sch, err := s.repo.GetScheduleForStudent(context.Background(), studentID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return err
	}
	if sch.Frequency != FreqWeekly || !sch.DayOfWeek.Valid {
		return nil
	}
	if WeekdayName(on.Weekday()) != sch.DayOfWeek.String {
		return core.NewValidationError(nil, core.FieldError{
			Field: "student_id",
			Error: fmt.Sprintf("Setoran hanya dapat dilakukan pada hari %s sesuai jadwal.", sch.DayOfWeek.String),
		})
	}
	return nil
}
